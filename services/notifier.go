package services

import (
	"context"

	"github.com/yeremiapane/qrmenu/caching"
	"github.com/yeremiapane/qrmenu/realtime"
	"github.com/yeremiapane/qrmenu/utils"
)

// notifier runs after a committed write: it tells subscribers what changed
// and drops the cached dashboard. Failures are logged, never returned; the
// write already happened.
type notifier struct {
	publisher realtime.Publisher
	cache     caching.CacheService
}

func (n notifier) publish(ctx context.Context, topic, event string, data interface{}) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, topic, realtime.Message{Event: event, Data: data}); err != nil {
		utils.ErrorLogger.Printf("Failed to publish %s to %s: %v", event, topic, err)
	}
}

func (n notifier) invalidateDashboard(ctx context.Context, establishmentID uint) {
	if err := n.cache.Delete(ctx, caching.DashboardKey(establishmentID)); err != nil {
		utils.ErrorLogger.Printf("Dashboard cache invalidation failed for establishment %d: %v", establishmentID, err)
	}
}

// invalidateMenu drops the cached public menu after a catalogue or
// establishment write.
func invalidateMenu(ctx context.Context, cache caching.CacheService, establishmentID uint) {
	if err := cache.Delete(ctx, caching.MenuKey(establishmentID)); err != nil {
		utils.ErrorLogger.Printf("Menu cache invalidation failed for establishment %d: %v", establishmentID, err)
	}
}
