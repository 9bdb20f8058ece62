package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"glowdesk/internal/caching"
	"glowdesk/internal/models"
	"glowdesk/internal/repositories"

	"github.com/google/uuid"
)

// TrialDays is the length of the premium trial granted at business creation.
const TrialDays = 30

const businessCacheTTL = 5 * time.Minute

var (
	// ErrOrderRejected is returned when activation is requested for an order
	// that was already rejected.
	ErrOrderRejected = errors.New("order was rejected and cannot be activated")
	// ErrOrderNotTransitionable is returned when the conditional status flip
	// finds no row to update.
	ErrOrderNotTransitionable = errors.New("order is not in a confirmable state")
)

// MembershipService owns the business membership lifecycle: the trial grant
// at creation, activation of completed orders, and the lazy trial-expiry
// sweep on dashboard access.
type MembershipService interface {
	StartTrial(ctx context.Context, businessID uuid.UUID) error
	Activate(ctx context.Context, businessID, orderID uuid.UUID) (*models.Business, error)
	SweepTrial(ctx context.Context, businessID uuid.UUID) (bool, error)
	DashboardBusiness(ctx context.Context, businessID uuid.UUID) (*models.Business, error)
}

type membershipService struct {
	db           repositories.DB
	businessRepo repositories.BusinessRepository
	orderRepo    repositories.OrderRepository
	packageRepo  repositories.PackageRepository
	cacheSvc     caching.CacheService
}

func NewMembershipService(
	db repositories.DB,
	businessRepo repositories.BusinessRepository,
	orderRepo repositories.OrderRepository,
	packageRepo repositories.PackageRepository,
	cacheSvc caching.CacheService,
) MembershipService {
	return &membershipService{
		db:           db,
		businessRepo: businessRepo,
		orderRepo:    orderRepo,
		packageRepo:  packageRepo,
		cacheSvc:     cacheSvc,
	}
}

// StartTrial grants a freshly created business the 30-day premium trial.
func (s *membershipService) StartTrial(ctx context.Context, businessID uuid.UUID) error {
	business, err := s.businessRepo.GetByID(ctx, businessID)
	if err != nil {
		return fmt.Errorf("failed to load business for trial: %w", err)
	}

	expiry := time.Now().AddDate(0, 0, TrialDays)
	business.MembershipTier = models.TierPremium
	business.MembershipExpiryDate = &expiry
	business.IsActive = true

	if err := s.businessRepo.Update(ctx, business); err != nil {
		return fmt.Errorf("failed to start trial: %w", err)
	}

	s.invalidateBusiness(ctx, businessID)
	return nil
}

// Activate applies a completed order's package to the business. The whole
// protocol runs in one transaction: the conditional order status flip, the
// business row lock, the package lookup and the membership write either all
// land or none do.
//
// Re-running activation for an already-completed order is a no-op in effect:
// the expiry is computed from the order's confirmed_at, so the same target
// state is recomputed and rewritten.
func (s *membershipService) Activate(ctx context.Context, businessID, orderID uuid.UUID) (*models.Business, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin activation: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := s.orderRepo.GetByIDTx(ctx, tx, businessID, orderID)
	if err != nil {
		return nil, fmt.Errorf("order lookup failed: %w", err)
	}

	var confirmedAt time.Time
	switch order.Status {
	case models.OrderStatusRejected:
		return nil, ErrOrderRejected
	case models.OrderStatusCompleted:
		// Already activated once: recompute from the original confirmation
		// time so both runs converge on the same expiry.
		if order.ConfirmedAt != nil {
			confirmedAt = *order.ConfirmedAt
		} else {
			confirmedAt = time.Now()
		}
	default:
		confirmedAt = time.Now()
		transitioned, err := s.orderRepo.CompleteTx(ctx, tx, businessID, orderID, confirmedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to complete order: %w", err)
		}
		if !transitioned {
			return nil, ErrOrderNotTransitionable
		}
	}

	business, err := s.businessRepo.GetForUpdateTx(ctx, tx, businessID)
	if err != nil {
		return nil, fmt.Errorf("business lookup failed: %w", err)
	}

	pkg, err := s.packageRepo.GetByIDTx(ctx, tx, order.PackageID)
	if err != nil {
		return nil, fmt.Errorf("package lookup failed: %w", err)
	}

	expiry := addCalendarMonths(confirmedAt, pkg.DurationMonths)
	business.MembershipTier = pkg.Tier
	business.MembershipExpiryDate = &expiry
	business.IsActive = true
	business.ExpiryNotifiedAt = nil // renewal re-arms the approaching-expiry warning

	if err := s.businessRepo.UpdateMembershipTx(ctx, tx, business); err != nil {
		return nil, fmt.Errorf("failed to apply membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit activation: %w", err)
	}

	s.invalidateBusiness(ctx, businessID)
	return business, nil
}

// SweepTrial downgrades a lapsed premium trial to free. is_active is never
// touched: expiry lapse is not deactivation. Returns whether a downgrade
// happened so callers can refresh any cached view.
func (s *membershipService) SweepTrial(ctx context.Context, businessID uuid.UUID) (bool, error) {
	business, err := s.businessRepo.GetByID(ctx, businessID)
	if err != nil {
		return false, fmt.Errorf("failed to load business for sweep: %w", err)
	}

	if !business.TrialExpired(time.Now()) {
		return false, nil
	}

	business.MembershipTier = models.TierFree
	business.MembershipExpiryDate = nil

	if err := s.businessRepo.Update(ctx, business); err != nil {
		if errors.Is(err, repositories.ErrVersionConflict) {
			// Another writer got there first; the next dashboard load
			// re-evaluates from the fresh row.
			return false, nil
		}
		return false, fmt.Errorf("failed to downgrade expired trial: %w", err)
	}

	s.invalidateBusiness(ctx, businessID)
	return true, nil
}

// DashboardBusiness is the owner-dashboard read path: it runs the lazy sweep
// first, then serves the business record. When the sweep changed nothing a
// cached copy is served if present; a downgrade always re-reads the row so
// the response reflects the write that just happened.
func (s *membershipService) DashboardBusiness(ctx context.Context, businessID uuid.UUID) (*models.Business, error) {
	downgraded, err := s.SweepTrial(ctx, businessID)
	if err != nil {
		return nil, err
	}

	if !downgraded {
		cached, err := s.cacheSvc.GetBusiness(ctx, businessID)
		if err != nil {
			log.Printf("Failed to read business cache %s: %v", businessID.String(), err)
		} else if cached != nil {
			return cached, nil
		}
	}

	business, err := s.businessRepo.GetByID(ctx, businessID)
	if err != nil {
		return nil, err
	}

	if err := s.cacheSvc.SetBusiness(ctx, business, businessCacheTTL); err != nil {
		log.Printf("Failed to cache business %s: %v", businessID.String(), err)
	}
	return business, nil
}

func (s *membershipService) invalidateBusiness(ctx context.Context, businessID uuid.UUID) {
	if err := s.cacheSvc.DeleteBusiness(ctx, businessID); err != nil {
		log.Printf("Failed to invalidate business cache %s: %v", businessID.String(), err)
	}
}

// addCalendarMonths advances t by whole calendar months, clamping to the last
// day of the target month instead of letting the date roll over (Jan 31 plus
// one month is the last day of February, not March 3rd).
func addCalendarMonths(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := time.Date(firstOfTarget.Year(), firstOfTarget.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
