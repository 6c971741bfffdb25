package services

import (
	"context"
	"strings"

	"github.com/yeremiapane/qrmenu/caching"
	"github.com/yeremiapane/qrmenu/models"
	"gorm.io/gorm"
)

type CategoryInput struct {
	Name      string `json:"name"`
	SortOrder *int   `json:"sort_order"`
}

type CategoryService struct {
	db    *gorm.DB
	cache caching.CacheService
}

func NewCategoryService(db *gorm.DB, cache caching.CacheService) *CategoryService {
	return &CategoryService{db: db, cache: cache}
}

func (s *CategoryService) List(ctx context.Context, establishmentID uint) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.WithContext(ctx).
		Where("establishment_id = ?", establishmentID).
		Order("sort_order asc, name asc").
		Find(&categories).Error
	return categories, err
}

func (s *CategoryService) Get(ctx context.Context, establishmentID, id uint) (*models.Category, error) {
	var category models.Category
	err := s.db.WithContext(ctx).Where("establishment_id = ?", establishmentID).First(&category, id).Error
	if err != nil {
		return nil, notFound(err, "category")
	}
	return &category, nil
}

func (s *CategoryService) Create(ctx context.Context, establishmentID uint, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if err := s.ensureNameFree(ctx, establishmentID, name, 0); err != nil {
		return nil, err
	}

	category := models.Category{EstablishmentID: establishmentID, Name: name}
	if in.SortOrder != nil {
		category.SortOrder = *in.SortOrder
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	s.invalidateMenu(ctx, establishmentID)
	return &category, nil
}

func (s *CategoryService) Update(ctx context.Context, establishmentID, id uint, in CategoryInput) (*models.Category, error) {
	category, err := s.Get(ctx, establishmentID, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" && name != category.Name {
		if err := s.ensureNameFree(ctx, establishmentID, name, category.ID); err != nil {
			return nil, err
		}
		category.Name = name
	}
	if in.SortOrder != nil {
		category.SortOrder = *in.SortOrder
	}

	if err := s.db.WithContext(ctx).Save(category).Error; err != nil {
		return nil, err
	}
	s.invalidateMenu(ctx, establishmentID)
	return category, nil
}

// Delete leaves the category's products uncategorised.
func (s *CategoryService) Delete(ctx context.Context, establishmentID, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Where("establishment_id = ?", establishmentID).First(&category, id).Error; err != nil {
			return notFound(err, "category")
		}
		if err := tx.Model(&models.Product{}).
			Where("establishment_id = ? AND category_id = ?", establishmentID, id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		return err
	}
	s.invalidateMenu(ctx, establishmentID)
	return nil
}

func (s *CategoryService) ensureNameFree(ctx context.Context, establishmentID uint, name string, exceptID uint) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("establishment_id = ? AND name = ? AND id <> ?", establishmentID, name, exceptID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return conflict("category %q already exists", name)
	}
	return nil
}

func (s *CategoryService) invalidateMenu(ctx context.Context, establishmentID uint) {
	invalidateMenu(ctx, s.cache, establishmentID)
}
