package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yeremiapane/qrmenu/caching"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/utils"
	"gorm.io/gorm"
)

type EstablishmentInput struct {
	Name     string `json:"name" binding:"required"`
	Slug     string `json:"slug"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Currency string `json:"currency"`
}

type EstablishmentUpdate struct {
	Name     *string `json:"name"`
	Slug     *string `json:"slug"`
	Address  *string `json:"address"`
	Phone    *string `json:"phone"`
	Currency *string `json:"currency"`
	IsActive *bool   `json:"is_active"`
}

type EstablishmentService struct {
	db            *gorm.DB
	cache         caching.CacheService
	subscriptions *SubscriptionService
}

func NewEstablishmentService(db *gorm.DB, cache caching.CacheService, subscriptions *SubscriptionService) *EstablishmentService {
	return &EstablishmentService{db: db, cache: cache, subscriptions: subscriptions}
}

// ListForUser returns the establishments an owner owns, or the single one a
// staff member works at.
func (s *EstablishmentService) ListForUser(ctx context.Context, user *models.User) ([]models.Establishment, error) {
	var list []models.Establishment
	q := s.db.WithContext(ctx).Order("name asc")
	switch {
	case user.Role == models.RoleOwner:
		q = q.Where("owner_id = ?", user.ID)
	case user.EstablishmentID != nil:
		q = q.Where("id = ?", *user.EstablishmentID)
	default:
		return list, nil
	}
	err := q.Find(&list).Error
	return list, err
}

func (s *EstablishmentService) Get(ctx context.Context, id uint) (*models.Establishment, error) {
	var est models.Establishment
	if err := s.db.WithContext(ctx).First(&est, id).Error; err != nil {
		return nil, notFound(err, "establishment")
	}
	return &est, nil
}

// GetBySlug only finds establishments that are accepting customers.
func (s *EstablishmentService) GetBySlug(ctx context.Context, slug string) (*models.Establishment, error) {
	var est models.Establishment
	err := s.db.WithContext(ctx).Where("slug = ? AND is_active = ?", strings.ToLower(slug), true).First(&est).Error
	if err != nil {
		return nil, notFound(err, "establishment")
	}
	return &est, nil
}

func (s *EstablishmentService) Create(ctx context.Context, ownerID uint, in EstablishmentInput) (*models.Establishment, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name is required")
	}

	limit, err := s.subscriptions.EstablishmentLimit(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var owned int64
	if err := s.db.WithContext(ctx).Model(&models.Establishment{}).Where("owner_id = ?", ownerID).Count(&owned).Error; err != nil {
		return nil, err
	}
	if int(owned) >= limit {
		return nil, conflict("your plan allows %d establishment(s)", limit)
	}

	slug, err := s.resolveSlug(ctx, in.Slug, name)
	if err != nil {
		return nil, err
	}

	est := models.Establishment{
		OwnerID:  ownerID,
		Name:     name,
		Slug:     slug,
		Address:  in.Address,
		Phone:    in.Phone,
		Currency: currencyOrDefault(in.Currency),
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&est).Error; err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Establishment created: %s (id=%d, owner=%d)", est.Slug, est.ID, ownerID)
	return &est, nil
}

// resolveSlug validates an explicit slug, or derives a free one from name by
// appending -2, -3, ...
func (s *EstablishmentService) resolveSlug(ctx context.Context, requested, name string) (string, error) {
	if requested != "" {
		slug := Slugify(requested)
		if slug == "" || slug != strings.ToLower(requested) {
			return "", invalid("slug may only contain lowercase letters, digits and dashes")
		}
		taken, err := s.slugTaken(ctx, slug, 0)
		if err != nil {
			return "", err
		}
		if taken {
			return "", conflict("slug %s is already taken", slug)
		}
		return slug, nil
	}

	base := Slugify(name)
	if base == "" {
		base = "establishment"
	}
	for i := 1; ; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		taken, err := s.slugTaken(ctx, candidate, 0)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}

func (s *EstablishmentService) slugTaken(ctx context.Context, slug string, exceptID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Establishment{}).
		Where("slug = ? AND id <> ?", slug, exceptID).
		Count(&count).Error
	return count > 0, err
}

func (s *EstablishmentService) Update(ctx context.Context, id uint, in EstablishmentUpdate) (*models.Establishment, error) {
	est, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name cannot be empty")
		}
		est.Name = name
	}
	if in.Slug != nil && *in.Slug != est.Slug {
		slug := Slugify(*in.Slug)
		if slug == "" || slug != strings.ToLower(*in.Slug) {
			return nil, invalid("slug may only contain lowercase letters, digits and dashes")
		}
		taken, err := s.slugTaken(ctx, slug, est.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, conflict("slug %s is already taken", slug)
		}
		est.Slug = slug
	}
	if in.Address != nil {
		est.Address = *in.Address
	}
	if in.Phone != nil {
		est.Phone = *in.Phone
	}
	if in.Currency != nil {
		est.Currency = currencyOrDefault(*in.Currency)
	}
	if in.IsActive != nil {
		est.IsActive = *in.IsActive
	}

	if err := s.db.WithContext(ctx).Save(est).Error; err != nil {
		return nil, err
	}
	// The public menu embeds the establishment.
	invalidateMenu(ctx, s.cache, est.ID)
	return est, nil
}

// Delete removes the establishment together with everything it owns.
func (s *EstablishmentService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var est models.Establishment
		if err := tx.First(&est, id).Error; err != nil {
			return notFound(err, "establishment")
		}

		orderIDs := tx.Model(&models.Order{}).Select("id").Where("establishment_id = ?", id)
		steps := []func() error{
			func() error { return tx.Where("order_id IN (?)", orderIDs).Delete(&models.OrderItem{}).Error },
			func() error { return tx.Where("establishment_id = ?", id).Delete(&models.Order{}).Error },
			func() error { return tx.Where("establishment_id = ?", id).Delete(&models.Table{}).Error },
			func() error { return tx.Where("establishment_id = ?", id).Delete(&models.Product{}).Error },
			func() error { return tx.Where("establishment_id = ?", id).Delete(&models.Category{}).Error },
			func() error {
				return tx.Model(&models.User{}).Where("establishment_id = ?", id).Update("establishment_id", nil).Error
			},
			func() error { return tx.Delete(&est).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}

		utils.InfoLogger.Printf("Establishment %d (%s) deleted", est.ID, est.Slug)
		return nil
	})
	if err != nil {
		return err
	}
	invalidateMenu(ctx, s.cache, id)
	return nil
}

func currencyOrDefault(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "IDR"
	}
	return code
}
