package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership tiers. Every business is on exactly one tier; the trial grants
// premium for 30 days at creation.
const (
	TierFree    = "free"
	TierPremium = "premium"
	TierVIP     = "vip"
)

type Business struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	Name                 string     `json:"name" db:"name"`
	Slug                 string     `json:"slug" db:"slug"`
	OwnerEmail           string     `json:"owner_email" db:"owner_email"`
	MembershipTier       string     `json:"membership_tier" db:"membership_tier"`
	MembershipExpiryDate *time.Time `json:"membership_expiry_date" db:"membership_expiry_date"`
	IsActive             bool       `json:"is_active" db:"is_active"`
	ExpiryNotifiedAt     *time.Time `json:"expiry_notified_at" db:"expiry_notified_at"`
	Version              int        `json:"version" db:"version"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// TrialExpired reports whether the business holds a lapsed premium trial:
// tier is premium and the expiry date is strictly in the past. is_active is
// deliberately not part of this check.
func (b *Business) TrialExpired(now time.Time) bool {
	if b.MembershipTier != TierPremium || b.MembershipExpiryDate == nil {
		return false
	}
	return b.MembershipExpiryDate.Before(now)
}

func ValidMembershipTier(tier string) bool {
	switch tier {
	case TierFree, TierPremium, TierVIP:
		return true
	}
	return false
}
