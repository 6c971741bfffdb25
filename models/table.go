package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TableAvailable = "available"
	TableOccupied  = "occupied"
)

type Table struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	EstablishmentID uint          `gorm:"not null;uniqueIndex:idx_table_establishment_number" json:"establishment_id"`
	Establishment   Establishment `gorm:"foreignKey:EstablishmentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Number          string        `gorm:"type:varchar(50);not null;uniqueIndex:idx_table_establishment_number" json:"number"`
	Capacity        int           `gorm:"not null;default:0" json:"capacity"`
	Status          string        `gorm:"type:varchar(20);not null;default:'available'" json:"status"`
	CurrentSession  *uuid.UUID    `gorm:"type:varchar(36);index" json:"current_session"`
	SessionOpenedAt *time.Time    `json:"session_opened_at"`
	CreatedAt       time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null" json:"updated_at"`
}

// HasOpenSession reports whether diners are currently seated.
func (t *Table) HasOpenSession() bool {
	return t.CurrentSession != nil
}
