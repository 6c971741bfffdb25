package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/utils"
	"gorm.io/gorm"
)

// Number of establishments an owner may run on each plan.
var planLimits = map[string]int{
	models.PlanFree:     1,
	models.PlanPro:      5,
	models.PlanBusiness: 25,
}

// Billing events sent by the payment provider.
const (
	EventSubscriptionCreated = "subscription.created"
	EventSubscriptionUpdated = "subscription.updated"
	EventSubscriptionDeleted = "subscription.deleted"
	EventInvoiceCreated      = "invoice.created"
	EventInvoicePaid         = "invoice.paid"
	EventInvoiceVoided       = "invoice.voided"
)

type BillingEvent struct {
	ID   string           `json:"id"`
	Type string           `json:"type"`
	Data BillingEventData `json:"data"`
}

type BillingEventData struct {
	SubscriptionID   string          `json:"subscription_id"`
	OwnerID          uint            `json:"owner_id"`
	Plan             string          `json:"plan"`
	Status           string          `json:"status"`
	CurrentPeriodEnd *time.Time      `json:"current_period_end"`
	InvoiceID        string          `json:"invoice_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	HostedURL        string          `json:"hosted_url"`
	IssuedAt         *time.Time      `json:"issued_at"`
}

type SubscriptionService struct {
	db    *gorm.DB
	grace time.Duration
}

func NewSubscriptionService(db *gorm.DB, grace time.Duration) *SubscriptionService {
	return &SubscriptionService{db: db, grace: grace}
}

// Current returns the owner's subscription, or an implicit free plan.
func (s *SubscriptionService) Current(ctx context.Context, ownerID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Subscription{OwnerID: ownerID, Plan: models.PlanFree, Status: models.SubscriptionActive}, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// EstablishmentLimit falls back to the free plan when the paid plan lapsed.
func (s *SubscriptionService) EstablishmentLimit(ctx context.Context, ownerID uint) (int, error) {
	sub, err := s.Current(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if !sub.IsCurrent() {
		return planLimits[models.PlanFree], nil
	}
	if limit, ok := planLimits[sub.Plan]; ok {
		return limit, nil
	}
	return planLimits[models.PlanFree], nil
}

func (s *SubscriptionService) Invoices(ctx context.Context, ownerID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.id = invoices.subscription_id").
		Where("subscriptions.owner_id = ?", ownerID).
		Order("invoices.issued_at desc").
		Find(&invoices).Error
	return invoices, err
}

// HandleBillingEvent applies a verified webhook event. Unknown event types
// are ignored.
func (s *SubscriptionService) HandleBillingEvent(ctx context.Context, event BillingEvent) error {
	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		return s.upsertSubscription(ctx, event)
	case EventInvoiceCreated, EventInvoicePaid, EventInvoiceVoided:
		return s.upsertInvoice(ctx, event)
	default:
		utils.InfoLogger.Printf("Ignoring billing event %s (%s)", event.ID, event.Type)
		return nil
	}
}

func (s *SubscriptionService) upsertSubscription(ctx context.Context, event BillingEvent) error {
	data := event.Data
	if data.OwnerID == 0 {
		return invalid("owner_id is required")
	}
	status := data.Status
	if event.Type == EventSubscriptionDeleted {
		status = models.SubscriptionCanceled
	}
	switch status {
	case models.SubscriptionTrialing, models.SubscriptionActive, models.SubscriptionPastDue, models.SubscriptionCanceled:
	default:
		return invalid("unknown subscription status %q", status)
	}
	plan := data.Plan
	if _, ok := planLimits[plan]; plan != "" && !ok {
		return invalid("unknown plan %q", plan)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.First(&owner, data.OwnerID).Error; err != nil {
			return notFound(err, "owner")
		}

		var sub models.Subscription
		err := tx.Where("owner_id = ?", data.OwnerID).First(&sub).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		sub.OwnerID = data.OwnerID
		// A status-only event keeps the stored plan.
		switch {
		case plan != "":
			sub.Plan = plan
		case sub.ID == 0:
			sub.Plan = models.PlanFree
		}
		sub.Status = status
		if data.SubscriptionID != "" {
			sub.ExternalID = data.SubscriptionID
		}
		if data.CurrentPeriodEnd != nil {
			sub.CurrentPeriodEnd = data.CurrentPeriodEnd
		}
		if err := tx.Save(&sub).Error; err != nil {
			return err
		}

		utils.InfoLogger.WithFields(logrus.Fields{
			"owner_id": sub.OwnerID,
			"plan":     sub.Plan,
			"status":   sub.Status,
		}).Info("Subscription updated")
		return nil
	})
}

func (s *SubscriptionService) upsertInvoice(ctx context.Context, event BillingEvent) error {
	data := event.Data
	if data.InvoiceID == "" || data.SubscriptionID == "" {
		return invalid("invoice_id and subscription_id are required")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if err := tx.Where("external_id = ?", data.SubscriptionID).First(&sub).Error; err != nil {
			return notFound(err, "subscription")
		}

		var invoice models.Invoice
		err := tx.Where("external_id = ?", data.InvoiceID).First(&invoice).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if invoice.ID == 0 {
			invoice = models.Invoice{
				SubscriptionID: sub.ID,
				ExternalID:     data.InvoiceID,
				Status:         models.InvoiceOpen,
				IssuedAt:       time.Now(),
			}
		}
		if !data.Amount.IsZero() {
			invoice.Amount = data.Amount
		}
		if data.Currency != "" {
			invoice.Currency = data.Currency
		}
		if invoice.Currency == "" {
			invoice.Currency = "IDR"
		}
		if data.HostedURL != "" {
			invoice.HostedURL = data.HostedURL
		}
		if data.IssuedAt != nil {
			invoice.IssuedAt = *data.IssuedAt
		}

		switch event.Type {
		case EventInvoicePaid:
			now := time.Now()
			invoice.Status = models.InvoicePaid
			invoice.PaidAt = &now
		case EventInvoiceVoided:
			invoice.Status = models.InvoiceVoid
		}
		if err := tx.Save(&invoice).Error; err != nil {
			return fmt.Errorf("save invoice %s: %w", data.InvoiceID, err)
		}

		// A paid invoice settles an overdue subscription.
		if event.Type == EventInvoicePaid && sub.Status == models.SubscriptionPastDue {
			return tx.Model(&sub).Update("status", models.SubscriptionActive).Error
		}
		return nil
	})
}

// MarkLapsed moves paid subscriptions whose period ended more than the grace
// period ago to past_due.
func (s *SubscriptionService) MarkLapsed(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status IN ?", []string{models.SubscriptionActive, models.SubscriptionTrialing}).
		Where("current_period_end IS NOT NULL AND current_period_end < ?", now.Add(-s.grace)).
		Update("status", models.SubscriptionPastDue)
	return res.RowsAffected, res.Error
}
