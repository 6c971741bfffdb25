package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	EstablishmentID uint            `gorm:"not null;index" json:"establishment_id"`
	Establishment   Establishment   `gorm:"foreignKey:EstablishmentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CategoryID      *uint           `gorm:"index" json:"category_id"`
	Category        *Category       `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"category,omitempty"`
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	Description     string          `gorm:"type:text" json:"description"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	ImageKey        string          `gorm:"type:varchar(255)" json:"-"`
	ImageURL        string          `gorm:"type:varchar(512)" json:"image_url"`
	IsAvailable     bool            `gorm:"not null" json:"is_available"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
}
