package services

import (
	"context"
	"time"

	"github.com/yeremiapane/qrmenu/caching"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/utils"
	"gorm.io/gorm"
)

const menuCacheTTL = 60 * time.Second

type MenuService struct {
	db             *gorm.DB
	cache          caching.CacheService
	establishments *EstablishmentService
}

func NewMenuService(db *gorm.DB, cache caching.CacheService, establishments *EstablishmentService) *MenuService {
	return &MenuService{db: db, cache: cache, establishments: establishments}
}

// PublicMenu returns the categories and available products of an active
// establishment.
func (s *MenuService) PublicMenu(ctx context.Context, slug string) (*models.PublicMenu, error) {
	est, err := s.establishments.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.ForEstablishment(ctx, est)
}

func (s *MenuService) ForEstablishment(ctx context.Context, est *models.Establishment) (*models.PublicMenu, error) {
	key := caching.MenuKey(est.ID)

	var menu models.PublicMenu
	hit, err := s.cache.GetJSON(ctx, key, &menu)
	if err != nil {
		utils.ErrorLogger.Printf("Menu cache read failed for %s: %v", key, err)
	}
	if hit {
		return &menu, nil
	}

	menu = models.PublicMenu{Establishment: *est}
	if err := s.db.WithContext(ctx).
		Where("establishment_id = ?", est.ID).
		Order("sort_order asc, name asc").
		Find(&menu.Categories).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Where("establishment_id = ? AND is_available = ?", est.ID, true).
		Order("name asc").
		Find(&menu.Products).Error; err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, menu, menuCacheTTL); err != nil {
		utils.ErrorLogger.Printf("Menu cache write failed for %s: %v", key, err)
	}
	return &menu, nil
}
