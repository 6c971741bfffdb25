package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/qrmenu/caching"
	"github.com/yeremiapane/qrmenu/metrics"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/realtime"
	"github.com/yeremiapane/qrmenu/utils"
	"gorm.io/gorm"
)

type OrderItemInput struct {
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes"`
}

// CreateOrderInput is what a customer submits from the table menu. SessionID
// is empty for the first order at a free table.
type CreateOrderInput struct {
	SessionID    string           `json:"session_id"`
	CustomerName string           `json:"customer_name"`
	Notes        string           `json:"notes"`
	Items        []OrderItemInput `json:"items"`
}

type OrderFilter struct {
	Status  *models.OrderStatus
	TableID *uint
	Session *uuid.UUID
	From    *time.Time
	To      *time.Time
	Limit   int
}

type OrderService struct {
	db *gorm.DB
	notifier
}

func NewOrderService(db *gorm.DB, cache caching.CacheService, publisher realtime.Publisher) *OrderService {
	return &OrderService{db: db, notifier: notifier{publisher: publisher, cache: cache}}
}

// Create places a customer order on a table. A table without a session gets
// one; an order carrying someone else's session is rejected.
func (s *OrderService) Create(ctx context.Context, tableID uint, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, invalid("order must contain at least one item")
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return nil, invalid("quantity for product %d must be at least 1", item.ProductID)
		}
	}

	var requested *uuid.UUID
	if in.SessionID != "" {
		id, err := uuid.Parse(in.SessionID)
		if err != nil {
			return nil, invalid("session_id is not a valid UUID")
		}
		requested = &id
	}

	var table models.Table
	if err := s.db.WithContext(ctx).Preload("Establishment").First(&table, tableID).Error; err != nil {
		return nil, notFound(err, "table")
	}
	if !table.Establishment.IsActive {
		return nil, fmt.Errorf("table %w", ErrNotFound)
	}

	var order models.Order
	sessionOpened := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The session may have changed since the read above.
		if err := lockTable(tx, &table); err != nil {
			return err
		}
		items, total, err := priceItems(tx, table.EstablishmentID, in.Items)
		if err != nil {
			return err
		}

		session, opened, err := resolveSession(ctx, tx, &table, requested)
		if err != nil {
			return err
		}
		sessionOpened = opened

		order = models.Order{
			EstablishmentID: table.EstablishmentID,
			TableID:         table.ID,
			TableSession:    session,
			Status:          models.OrderPending,
			CustomerName:    strings.TrimSpace(in.CustomerName),
			Notes:           in.Notes,
			TotalAmount:     total,
			OrderItems:      items,
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":         order.ID,
		"establishment_id": order.EstablishmentID,
		"table_id":         order.TableID,
		"total":            order.TotalAmount.StringFixed(2),
	}).Info("Order created")

	if sessionOpened {
		s.publish(ctx, realtime.EstablishmentTopic(table.EstablishmentID), realtime.EventTableUpdated, table)
	}
	s.broadcast(ctx, realtime.EventOrderCreated, &order)
	s.invalidateDashboard(ctx, order.EstablishmentID)
	return &order, nil
}

// resolveSession returns the session the order belongs to, opening one when
// the table is free and the customer did not claim a session.
func resolveSession(ctx context.Context, tx *gorm.DB, table *models.Table, requested *uuid.UUID) (uuid.UUID, bool, error) {
	if table.HasOpenSession() {
		if requested != nil && *requested != *table.CurrentSession {
			return uuid.Nil, false, conflict("table session has ended, scan the QR code again")
		}
		return *table.CurrentSession, false, nil
	}
	if requested != nil {
		return uuid.Nil, false, conflict("table session has ended, scan the QR code again")
	}

	now := time.Now()
	opened, err := openSession(ctx, tx, table.EstablishmentID, table.ID, now)
	if err != nil {
		return uuid.Nil, false, err
	}
	if err := tx.First(table, table.ID).Error; err != nil {
		return uuid.Nil, false, err
	}
	if !table.HasOpenSession() {
		return uuid.Nil, false, conflict("table session could not be opened")
	}
	return *table.CurrentSession, opened, nil
}

// priceItems snapshots product names and prices. Every product must belong
// to the establishment and be available.
func priceItems(tx *gorm.DB, establishmentID uint, in []OrderItemInput) ([]models.OrderItem, decimal.Decimal, error) {
	ids := make([]uint, 0, len(in))
	for _, item := range in {
		ids = append(ids, item.ProductID)
	}

	var products []models.Product
	if err := tx.Where("id IN ? AND establishment_id = ?", ids, establishmentID).Find(&products).Error; err != nil {
		return nil, decimal.Zero, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(in))
	total := decimal.Zero
	for _, item := range in {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: product %d is not on this menu", ErrUnprocessable, item.ProductID)
		}
		if !product.IsAvailable {
			return nil, decimal.Zero, fmt.Errorf("%w: %s is not available", ErrUnprocessable, product.Name)
		}

		subtotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    item.Quantity,
			Subtotal:    subtotal,
			Notes:       item.Notes,
		})
		total = total.Add(subtotal)
	}
	return items, total, nil
}

// List returns an establishment's orders, newest first.
func (s *OrderService) List(ctx context.Context, establishmentID uint, filter OrderFilter) ([]models.Order, error) {
	q := s.db.WithContext(ctx).
		Preload("OrderItems").
		Preload("Table").
		Where("establishment_id = ?", establishmentID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.TableID != nil {
		q = q.Where("table_id = ?", *filter.TableID)
	}
	if filter.Session != nil {
		q = q.Where("table_session = ?", *filter.Session)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var orders []models.Order
	err := q.Order("created_at desc, id desc").Find(&orders).Error
	return orders, err
}

// ListForSession is the customer's view: only orders of the table's current
// session.
func (s *OrderService) ListForSession(ctx context.Context, tableID uint, session uuid.UUID) ([]models.Order, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, tableID).Error; err != nil {
		return nil, notFound(err, "table")
	}
	if !table.HasOpenSession() || *table.CurrentSession != session {
		return nil, conflict("table session has ended, scan the QR code again")
	}

	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("OrderItems").
		Where("table_id = ? AND table_session = ?", tableID, session).
		Order("created_at desc, id desc").
		Find(&orders).Error
	return orders, err
}

func (s *OrderService) Get(ctx context.Context, establishmentID, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("OrderItems").
		Preload("Table").
		Where("establishment_id = ?", establishmentID).
		First(&order, id).Error
	if err != nil {
		return nil, notFound(err, "order")
	}
	return &order, nil
}

// UpdateStatus moves an order one step along its lifecycle.
func (s *OrderService) UpdateStatus(ctx context.Context, establishmentID, id uint, next models.OrderStatus) (*models.Order, error) {
	order, err := s.Get(ctx, establishmentID, id)
	if err != nil {
		return nil, err
	}

	current := order.Status
	if !current.CanTransitionTo(next) {
		allowed := current.NextStatuses()
		if len(allowed) == 0 {
			return nil, conflict("order is %s and can no longer change", current)
		}
		names := make([]string, len(allowed))
		for i, st := range allowed {
			names[i] = string(st)
		}
		return nil, conflict("cannot move order from %s to %s, allowed: %s", current, next, strings.Join(names, ", "))
	}

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, current).
		Update("status", next)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, conflict("order status changed, reload and try again")
	}

	metrics.OrderTransitions.WithLabelValues(string(current), string(next)).Inc()
	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": id,
		"from":     current,
		"to":       next,
	}).Info("Order status updated")

	order, err = s.Get(ctx, establishmentID, id)
	if err != nil {
		return nil, err
	}
	s.broadcast(ctx, realtime.EventOrderUpdated, order)
	s.invalidateDashboard(ctx, establishmentID)
	return order, nil
}

func (s *OrderService) Delete(ctx context.Context, establishmentID, id uint) error {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("establishment_id = ?", establishmentID).First(&order, id).Error; err != nil {
			return notFound(err, "order")
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		return err
	}

	s.broadcast(ctx, realtime.EventOrderDeleted, &order)
	s.invalidateDashboard(ctx, establishmentID)
	return nil
}

// broadcast tells both the dashboard and the diners at the table.
func (s *OrderService) broadcast(ctx context.Context, event string, order *models.Order) {
	s.publish(ctx, realtime.EstablishmentTopic(order.EstablishmentID), event, order)
	s.publish(ctx, realtime.SessionTopic(order.TableSession), event, order)
}
