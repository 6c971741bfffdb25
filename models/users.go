package models

import "time"

const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"type:varchar(255); not null" json:"name"`
	Email            string     `gorm:"type:varchar(255); unique;not null" json:"email"`
	Password         string     `gorm:"type:varchar(255); not null" json:"-"`
	Role             string     `gorm:"type:varchar(20); not null;default:'owner'" json:"role"`
	EstablishmentID  *uint      `gorm:"index" json:"establishment_id,omitempty"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
