package models

import "time"

type Category struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	EstablishmentID uint          `gorm:"not null;uniqueIndex:idx_category_establishment_name" json:"establishment_id"`
	Establishment   Establishment `gorm:"foreignKey:EstablishmentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Name            string        `gorm:"type:varchar(100);not null;uniqueIndex:idx_category_establishment_name" json:"name"`
	SortOrder       int           `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt       time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null" json:"updated_at"`
}
