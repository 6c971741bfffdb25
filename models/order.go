package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	EstablishmentID uint            `gorm:"not null;index" json:"establishment_id"`
	Establishment   Establishment   `gorm:"foreignKey:EstablishmentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	TableID         uint            `gorm:"not null;index" json:"table_id"`
	Table           *Table          `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"table,omitempty"`
	TableSession    uuid.UUID       `gorm:"type:varchar(36);not null;index" json:"table_session"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	CustomerName    string          `gorm:"type:varchar(255)" json:"customer_name"`
	Notes           string          `gorm:"type:text" json:"notes"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`
	OrderItems      []OrderItem     `gorm:"foreignKey:OrderID" json:"order_items"`
	CreatedAt       time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
}
