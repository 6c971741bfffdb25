package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/qrmenu/caching"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/utils"
	"gorm.io/gorm"
)

const dashboardCacheTTL = 15 * time.Second

type DashboardStats struct {
	OrdersToday    map[models.OrderStatus]int64 `json:"orders_today"`
	RevenueToday   decimal.Decimal              `json:"revenue_today"`
	OpenTables     int64                        `json:"open_tables"`
	TotalTables    int64                        `json:"total_tables"`
	ActiveProducts int64                        `json:"active_products"`
	GeneratedAt    time.Time                    `json:"generated_at"`
}

type DashboardService struct {
	db    *gorm.DB
	cache caching.CacheService
	now   func() time.Time
}

func NewDashboardService(db *gorm.DB, cache caching.CacheService) *DashboardService {
	return &DashboardService{db: db, cache: cache, now: time.Now}
}

// Stats summarises today's activity. Revenue only counts delivered orders.
func (s *DashboardService) Stats(ctx context.Context, establishmentID uint) (*DashboardStats, error) {
	key := caching.DashboardKey(establishmentID)

	var stats DashboardStats
	hit, err := s.cache.GetJSON(ctx, key, &stats)
	if err != nil {
		utils.ErrorLogger.Printf("Dashboard cache read failed for %s: %v", key, err)
	}
	if hit {
		return &stats, nil
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	db := s.db.WithContext(ctx)

	var todays []models.Order
	if err := db.Select("id", "status", "total_amount").
		Where("establishment_id = ? AND created_at >= ?", establishmentID, startOfDay).
		Find(&todays).Error; err != nil {
		return nil, err
	}

	stats = DashboardStats{
		OrdersToday:  make(map[models.OrderStatus]int64, 5),
		RevenueToday: decimal.Zero,
		GeneratedAt:  now,
	}
	for _, st := range models.AllOrderStatuses() {
		stats.OrdersToday[st] = 0
	}
	for _, o := range todays {
		stats.OrdersToday[o.Status]++
		if o.Status == models.OrderDelivered {
			stats.RevenueToday = stats.RevenueToday.Add(o.TotalAmount)
		}
	}

	if err := db.Model(&models.Table{}).Where("establishment_id = ?", establishmentID).
		Count(&stats.TotalTables).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Table{}).Where("establishment_id = ? AND current_session IS NOT NULL", establishmentID).
		Count(&stats.OpenTables).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Product{}).Where("establishment_id = ? AND is_available = ?", establishmentID, true).
		Count(&stats.ActiveProducts).Error; err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, stats, dashboardCacheTTL); err != nil {
		utils.ErrorLogger.Printf("Dashboard cache write failed for %s: %v", key, err)
	}
	return &stats, nil
}
