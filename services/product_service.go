package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/qrmenu/caching"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/utils"
	"gorm.io/gorm"
)

const imageUploadExpiry = 15 * time.Minute

var allowedImageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

type ProductInput struct {
	CategoryID  *uint            `json:"category_id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	IsAvailable *bool            `json:"is_available"`
}

type ProductFilter struct {
	CategoryID *uint
	Available  *bool
}

type ImageUpload struct {
	UploadURL string    `json:"upload_url"`
	ImageURL  string    `json:"image_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ProductService struct {
	db      *gorm.DB
	cache   caching.CacheService
	storage ImageStorage
}

// NewProductService accepts a nil storage; image uploads then fail with
// ErrUnavailable.
func NewProductService(db *gorm.DB, cache caching.CacheService, storage ImageStorage) *ProductService {
	return &ProductService{db: db, cache: cache, storage: storage}
}

func (s *ProductService) List(ctx context.Context, establishmentID uint, filter ProductFilter) ([]models.Product, error) {
	q := s.db.WithContext(ctx).Preload("Category").Where("establishment_id = ?", establishmentID)
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Available != nil {
		q = q.Where("is_available = ?", *filter.Available)
	}

	var products []models.Product
	err := q.Order("name asc").Find(&products).Error
	return products, err
}

func (s *ProductService) Get(ctx context.Context, establishmentID, id uint) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Preload("Category").
		Where("establishment_id = ?", establishmentID).
		First(&product, id).Error
	if err != nil {
		return nil, notFound(err, "product")
	}
	return &product, nil
}

func (s *ProductService) Create(ctx context.Context, establishmentID uint, in ProductInput) (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if in.Price == nil {
		return nil, invalid("price is required")
	}
	if in.Price.IsNegative() {
		return nil, invalid("price cannot be negative")
	}
	if err := s.checkCategory(ctx, establishmentID, in.CategoryID); err != nil {
		return nil, err
	}

	product := models.Product{
		EstablishmentID: establishmentID,
		CategoryID:      in.CategoryID,
		Name:            name,
		Description:     in.Description,
		Price:           in.Price.Round(2),
		IsAvailable:     true,
	}
	if in.IsAvailable != nil {
		product.IsAvailable = *in.IsAvailable
	}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}

	s.invalidateMenu(ctx, establishmentID)
	return s.Get(ctx, establishmentID, product.ID)
}

func (s *ProductService) Update(ctx context.Context, establishmentID, id uint, in ProductInput) (*models.Product, error) {
	product, err := s.Get(ctx, establishmentID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name := strings.TrimSpace(in.Name); name != "" {
		updates["name"] = name
	}
	if in.Description != "" {
		updates["description"] = in.Description
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, invalid("price cannot be negative")
		}
		updates["price"] = in.Price.Round(2)
	}
	if in.CategoryID != nil {
		if err := s.checkCategory(ctx, establishmentID, in.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *in.CategoryID
	}
	if in.IsAvailable != nil {
		updates["is_available"] = *in.IsAvailable
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
			return nil, err
		}
		s.invalidateMenu(ctx, establishmentID)
	}
	return s.Get(ctx, establishmentID, id)
}

// SetAvailability is the one product change staff are allowed to make.
func (s *ProductService) SetAvailability(ctx context.Context, establishmentID, id uint, available bool) (*models.Product, error) {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND establishment_id = ?", id, establishmentID).
		Update("is_available", available)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("product %w", ErrNotFound)
	}

	s.invalidateMenu(ctx, establishmentID)
	return s.Get(ctx, establishmentID, id)
}

// Delete keeps past order items intact; they carry their own name and price.
func (s *ProductService) Delete(ctx context.Context, establishmentID, id uint) error {
	product, err := s.Get(ctx, establishmentID, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(product).Error; err != nil {
		return err
	}

	s.removeImage(ctx, product.ImageKey)
	s.invalidateMenu(ctx, establishmentID)
	return nil
}

// PresignImageUpload points the product at a fresh object key and returns a
// URL the client can PUT the file to.
func (s *ProductService) PresignImageUpload(ctx context.Context, establishmentID, id uint, filename string) (*ImageUpload, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("image storage %w", ErrUnavailable)
	}

	ext := strings.ToLower(path.Ext(filename))
	if !allowedImageExt[ext] {
		return nil, invalid("unsupported image type %q", ext)
	}

	product, err := s.Get(ctx, establishmentID, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("establishments/%d/products/%d/%s%s", establishmentID, id, uuid.NewString(), ext)
	uploadURL, err := s.storage.PresignUpload(ctx, key, imageUploadExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	oldKey := product.ImageKey
	imageURL := s.storage.PublicURL(key)
	if err := s.db.WithContext(ctx).Model(product).Updates(map[string]interface{}{
		"image_key": key,
		"image_url": imageURL,
	}).Error; err != nil {
		return nil, err
	}

	s.removeImage(ctx, oldKey)
	s.invalidateMenu(ctx, establishmentID)
	return &ImageUpload{
		UploadURL: uploadURL,
		ImageURL:  imageURL,
		ExpiresAt: time.Now().Add(imageUploadExpiry),
	}, nil
}

func (s *ProductService) checkCategory(ctx context.Context, establishmentID uint, categoryID *uint) error {
	if categoryID == nil {
		return nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("id = ? AND establishment_id = ?", *categoryID, establishmentID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return invalid("category %d does not belong to this establishment", *categoryID)
	}
	return nil
}

func (s *ProductService) removeImage(ctx context.Context, key string) {
	if key == "" || s.storage == nil {
		return
	}
	if err := s.storage.Remove(ctx, key); err != nil {
		utils.ErrorLogger.Printf("Failed to remove image %s: %v", key, err)
	}
}

func (s *ProductService) invalidateMenu(ctx context.Context, establishmentID uint) {
	invalidateMenu(ctx, s.cache, establishmentID)
}
