// Package models contains domain entities for the storefront: users, wallets, deposits, orders and webhook logs
package models

import (
	"time"
)

// User is keyed by the stable external identity supplied at the boundary.
type User struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Email     *string   `gorm:"type:text" json:"email,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
