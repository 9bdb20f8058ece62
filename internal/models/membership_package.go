package models

import (
	"time"

	"github.com/google/uuid"
)

// MembershipPackage is read-only reference data: the activation engine reads
// tier and duration_months from it and never writes back.
type MembershipPackage struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Tier           string    `json:"tier" db:"tier"`
	Price          float64   `json:"price" db:"price"`
	DurationMonths int       `json:"duration_months" db:"duration_months"`
	PhotoLimit     int       `json:"photo_limit" db:"photo_limit"`
	VideoLimit     int       `json:"video_limit" db:"video_limit"`
	PostLimit      int       `json:"post_limit" db:"post_limit"`
	Featured       bool      `json:"featured" db:"featured"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
