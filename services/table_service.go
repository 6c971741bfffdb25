package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/qrmenu/caching"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/realtime"
	"github.com/yeremiapane/qrmenu/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TableInput struct {
	Number   string `json:"number"`
	Capacity *int   `json:"capacity"`
}

// TableScan is the public view of a table behind its QR code.
type TableScan struct {
	TableID           uint       `json:"table_id"`
	Number            string     `json:"number"`
	Status            string     `json:"status"`
	EstablishmentID   uint       `json:"establishment_id"`
	EstablishmentName string     `json:"establishment_name"`
	EstablishmentSlug string     `json:"establishment_slug"`
	CurrentSession    *uuid.UUID `json:"current_session"`
}

// SessionClosed tells the diners' devices their session is over.
type SessionClosed struct {
	TableID uint      `json:"table_id"`
	Session uuid.UUID `json:"session"`
}

type TableQR struct {
	TableID uint   `json:"table_id"`
	Number  string `json:"number"`
	URL     string `json:"url"`
}

type TableService struct {
	db            *gorm.DB
	publicBaseURL string
	notifier
}

func NewTableService(db *gorm.DB, cache caching.CacheService, publisher realtime.Publisher, publicBaseURL string) *TableService {
	return &TableService{
		db:            db,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		notifier:      notifier{publisher: publisher, cache: cache},
	}
}

func (s *TableService) List(ctx context.Context, establishmentID uint) ([]models.Table, error) {
	var tables []models.Table
	err := s.db.WithContext(ctx).
		Where("establishment_id = ?", establishmentID).
		Order("number asc").
		Find(&tables).Error
	return tables, err
}

func (s *TableService) Get(ctx context.Context, establishmentID, id uint) (*models.Table, error) {
	var table models.Table
	err := s.db.WithContext(ctx).Where("establishment_id = ?", establishmentID).First(&table, id).Error
	if err != nil {
		return nil, notFound(err, "table")
	}
	return &table, nil
}

func (s *TableService) Create(ctx context.Context, establishmentID uint, in TableInput) (*models.Table, error) {
	number := strings.TrimSpace(in.Number)
	if number == "" {
		return nil, invalid("number is required")
	}
	if err := s.ensureNumberFree(ctx, establishmentID, number, 0); err != nil {
		return nil, err
	}

	table := models.Table{
		EstablishmentID: establishmentID,
		Number:          number,
		Status:          models.TableAvailable,
	}
	if in.Capacity != nil {
		if *in.Capacity < 0 {
			return nil, invalid("capacity cannot be negative")
		}
		table.Capacity = *in.Capacity
	}
	if err := s.db.WithContext(ctx).Create(&table).Error; err != nil {
		return nil, err
	}

	s.invalidateDashboard(ctx, establishmentID)
	return &table, nil
}

func (s *TableService) Update(ctx context.Context, establishmentID, id uint, in TableInput) (*models.Table, error) {
	table, err := s.Get(ctx, establishmentID, id)
	if err != nil {
		return nil, err
	}

	if number := strings.TrimSpace(in.Number); number != "" && number != table.Number {
		if err := s.ensureNumberFree(ctx, establishmentID, number, table.ID); err != nil {
			return nil, err
		}
		table.Number = number
	}
	if in.Capacity != nil {
		if *in.Capacity < 0 {
			return nil, invalid("capacity cannot be negative")
		}
		table.Capacity = *in.Capacity
	}

	if err := s.db.WithContext(ctx).Model(table).Updates(map[string]interface{}{
		"number":   table.Number,
		"capacity": table.Capacity,
	}).Error; err != nil {
		return nil, err
	}
	s.publish(ctx, realtime.EstablishmentTopic(establishmentID), realtime.EventTableUpdated, table)
	return table, nil
}

// Delete removes a free table and its order history.
func (s *TableService) Delete(ctx context.Context, establishmentID, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.Where("establishment_id = ?", establishmentID).First(&table, id).Error; err != nil {
			return notFound(err, "table")
		}
		if table.HasOpenSession() {
			return conflict("table %s has an open session", table.Number)
		}

		orderIDs := tx.Model(&models.Order{}).Select("id").Where("table_id = ?", id)
		if err := tx.Where("order_id IN (?)", orderIDs).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("table_id = ?", id).Delete(&models.Order{}).Error; err != nil {
			return err
		}
		return tx.Delete(&table).Error
	})
	if err != nil {
		return err
	}
	s.invalidateDashboard(ctx, establishmentID)
	return nil
}

// OpenSession seats new diners. Only one session can be open per table.
func (s *TableService) OpenSession(ctx context.Context, establishmentID, id uint) (*models.Table, error) {
	opened, err := openSession(ctx, s.db, establishmentID, id, time.Now())
	if err != nil {
		return nil, err
	}
	if !opened {
		if _, err := s.Get(ctx, establishmentID, id); err != nil {
			return nil, err
		}
		return nil, conflict("table already has an open session")
	}

	table, err := s.Get(ctx, establishmentID, id)
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"table_id": table.ID,
		"session":  table.CurrentSession,
	}).Info("Table session opened")

	s.publish(ctx, realtime.EstablishmentTopic(establishmentID), realtime.EventTableUpdated, table)
	s.invalidateDashboard(ctx, establishmentID)
	return table, nil
}

// openSession assigns a fresh session to a table that has none. It reports
// false when the table is missing or already occupied.
func openSession(ctx context.Context, db *gorm.DB, establishmentID, id uint, now time.Time) (bool, error) {
	session := uuid.New()
	res := db.WithContext(ctx).Model(&models.Table{}).
		Where("id = ? AND establishment_id = ? AND current_session IS NULL", id, establishmentID).
		Updates(map[string]interface{}{
			"current_session":   session,
			"status":            models.TableOccupied,
			"session_opened_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// lockTable re-reads table inside tx. Postgres and MySQL also take a row
// lock, so order placement and session close on one table run one at a time.
// SQLite serialises writers on its own and has no FOR UPDATE.
func lockTable(tx *gorm.DB, table *models.Table) error {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q.First(table, table.ID).Error
}

// CloseSession frees the table. Active orders block the close unless force
// is set, in which case they are cancelled.
func (s *TableService) CloseSession(ctx context.Context, establishmentID, id uint, force bool) (*models.Table, error) {
	table, err := s.Get(ctx, establishmentID, id)
	if err != nil {
		return nil, err
	}
	if !table.HasOpenSession() {
		return nil, conflict("table has no open session")
	}
	session := *table.CurrentSession

	var cancelled []models.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current := models.Table{ID: table.ID}
		if err := lockTable(tx, &current); err != nil {
			return err
		}
		if current.CurrentSession == nil || *current.CurrentSession != session {
			return conflict("session changed while closing")
		}

		var active []models.Order
		if err := tx.Where("table_id = ? AND table_session = ? AND status IN ?", id, session, models.ActiveOrderStatuses()).
			Find(&active).Error; err != nil {
			return err
		}
		if len(active) > 0 && !force {
			return conflict("session still has %d active order(s)", len(active))
		}
		if len(active) > 0 {
			ids := make([]uint, len(active))
			for i := range active {
				ids[i] = active[i].ID
				active[i].Status = models.OrderCancelled
			}
			if err := tx.Model(&models.Order{}).Where("id IN ?", ids).
				Update("status", models.OrderCancelled).Error; err != nil {
				return err
			}
			cancelled = active
		}

		res := tx.Model(&models.Table{}).
			Where("id = ? AND current_session = ?", id, session).
			Updates(map[string]interface{}{
				"current_session":   nil,
				"status":            models.TableAvailable,
				"session_opened_at": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflict("session changed while closing")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	table.CurrentSession = nil
	table.SessionOpenedAt = nil
	table.Status = models.TableAvailable

	utils.InfoLogger.WithFields(logrus.Fields{
		"table_id":  table.ID,
		"session":   session,
		"cancelled": len(cancelled),
	}).Info("Table session closed")

	estTopic := realtime.EstablishmentTopic(establishmentID)
	for i := range cancelled {
		s.publish(ctx, estTopic, realtime.EventOrderUpdated, cancelled[i])
	}
	s.publish(ctx, estTopic, realtime.EventTableUpdated, table)
	s.publish(ctx, realtime.SessionTopic(session), realtime.EventSessionClosed, SessionClosed{TableID: table.ID, Session: session})
	s.invalidateDashboard(ctx, establishmentID)
	return table, nil
}

// CloseStaleSessions closes sessions older than maxAge that have nothing
// left in the kitchen. Tables with active orders are left alone.
func (s *TableService) CloseStaleSessions(ctx context.Context, maxAge time.Duration, now time.Time) (int, error) {
	var tables []models.Table
	err := s.db.WithContext(ctx).
		Where("current_session IS NOT NULL AND session_opened_at < ?", now.Add(-maxAge)).
		Find(&tables).Error
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, t := range tables {
		if _, err := s.CloseSession(ctx, t.EstablishmentID, t.ID, false); err != nil {
			if !isConflict(err) {
				return closed, err
			}
			continue
		}
		closed++
	}
	return closed, nil
}

// Scan resolves a table for a customer who scanned its QR code.
func (s *TableService) Scan(ctx context.Context, id uint) (*TableScan, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).Preload("Establishment").First(&table, id).Error; err != nil {
		return nil, notFound(err, "table")
	}
	if !table.Establishment.IsActive {
		return nil, fmt.Errorf("table %w", ErrNotFound)
	}

	return &TableScan{
		TableID:           table.ID,
		Number:            table.Number,
		Status:            table.Status,
		EstablishmentID:   table.EstablishmentID,
		EstablishmentName: table.Establishment.Name,
		EstablishmentSlug: table.Establishment.Slug,
		CurrentSession:    table.CurrentSession,
	}, nil
}

// MenuURL is the address encoded in a table's QR code.
func (s *TableService) MenuURL(ctx context.Context, establishmentID, id uint) (*TableQR, error) {
	var table models.Table
	err := s.db.WithContext(ctx).Preload("Establishment").
		Where("establishment_id = ?", establishmentID).
		First(&table, id).Error
	if err != nil {
		return nil, notFound(err, "table")
	}

	q := url.Values{}
	q.Set("table", fmt.Sprint(table.ID))
	return &TableQR{
		TableID: table.ID,
		Number:  table.Number,
		URL:     s.publicBaseURL + "/menu/" + url.PathEscape(table.Establishment.Slug) + "?" + q.Encode(),
	}, nil
}

func (s *TableService) ensureNumberFree(ctx context.Context, establishmentID uint, number string, exceptID uint) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Table{}).
		Where("establishment_id = ? AND number = ? AND id <> ?", establishmentID, number, exceptID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return conflict("table %s already exists", number)
	}
	return nil
}

// CheckSession confirms session is the table's current one.
func (s *TableService) CheckSession(ctx context.Context, id uint, session uuid.UUID) (*models.Table, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, id).Error; err != nil {
		return nil, notFound(err, "table")
	}
	if !table.HasOpenSession() || *table.CurrentSession != session {
		return nil, conflict("table session has ended, scan the QR code again")
	}
	return &table, nil
}
