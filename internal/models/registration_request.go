package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RegistrationStatusPending  = "pending"
	RegistrationStatusApproved = "approved"
	RegistrationStatusRejected = "rejected"
)

// RegistrationRequest is a prospective owner's application to list a business
// on the platform. Approval runs the privileged bridge that creates the
// business and invites the owner.
type RegistrationRequest struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	BusinessName string     `json:"business_name" db:"business_name"`
	OwnerName    string     `json:"owner_name" db:"owner_name"`
	OwnerEmail   string     `json:"owner_email" db:"owner_email"`
	OwnerPhone   *string    `json:"owner_phone" db:"owner_phone"`
	Status       string     `json:"status" db:"status"`
	ReviewedAt   *time.Time `json:"reviewed_at" db:"reviewed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}
