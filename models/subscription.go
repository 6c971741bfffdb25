package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PlanFree     = "free"
	PlanPro      = "pro"
	PlanBusiness = "business"
)

const (
	SubscriptionTrialing = "trialing"
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// Subscription is the owner's plan for the platform itself.
type Subscription struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	OwnerID          uint       `gorm:"not null;uniqueIndex" json:"owner_id"`
	Owner            User       `gorm:"foreignKey:OwnerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Plan             string     `gorm:"type:varchar(20);not null;default:'free'" json:"plan"`
	Status           string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	ExternalID       string     `gorm:"type:varchar(255);index" json:"external_id"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
	Invoices         []Invoice  `gorm:"foreignKey:SubscriptionID" json:"invoices,omitempty"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updated_at"`
}

// IsCurrent reports whether the paid plan is in effect.
func (s *Subscription) IsCurrent() bool {
	return s.Status == SubscriptionActive || s.Status == SubscriptionTrialing
}

const (
	InvoiceOpen = "open"
	InvoicePaid = "paid"
	InvoiceVoid = "void"
)

type Invoice struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	SubscriptionID uint            `gorm:"not null;index" json:"subscription_id"`
	ExternalID     string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"external_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency       string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status         string          `gorm:"type:varchar(10);not null;default:'open'" json:"status"`
	HostedURL      string          `gorm:"type:varchar(512)" json:"hosted_url"`
	IssuedAt       time.Time       `gorm:"not null" json:"issued_at"`
	PaidAt         *time.Time      `json:"paid_at"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}
