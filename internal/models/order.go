package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses. Orders are created as awaiting_confirmation and move to
// exactly one of the terminal statuses; terminal statuses are sticky.
const (
	OrderStatusPending              = "pending"
	OrderStatusAwaitingConfirmation = "awaiting_confirmation"
	OrderStatusCompleted            = "completed"
	OrderStatusRejected             = "rejected"
)

type Order struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	BusinessID      uuid.UUID  `json:"business_id" db:"business_id"`
	PackageID       uuid.UUID  `json:"package_id" db:"package_id"`
	PackageName     string     `json:"package_name" db:"package_name"`
	Amount          float64    `json:"amount" db:"amount"`
	Status          string     `json:"status" db:"status"`
	PaymentMethod   string     `json:"payment_method" db:"payment_method"`
	PaymentProofURL *string    `json:"payment_proof_url" db:"payment_proof_url"`
	Notes           *string    `json:"notes" db:"notes"`
	SubmittedAt     time.Time  `json:"submitted_at" db:"submitted_at"`
	ConfirmedAt     *time.Time `json:"confirmed_at" db:"confirmed_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// OrderStatusTerminal reports whether the status permits no further
// transitions.
func OrderStatusTerminal(status string) bool {
	return status == OrderStatusCompleted || status == OrderStatusRejected
}

func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusAwaitingConfirmation, OrderStatusCompleted, OrderStatusRejected:
		return true
	}
	return false
}
