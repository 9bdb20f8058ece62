package jobs

import (
	"context"
	"log"
	"time"

	"glowdesk/internal/models"
	"glowdesk/internal/repositories"
	"glowdesk/internal/services"

	"github.com/google/uuid"
)

// ExpiryWarningDays is how far ahead of membership expiry owners are warned.
const ExpiryWarningDays = 7

// ExpiryAlertService finds paid memberships approaching their expiry date and
// emails the owner once per membership period. The sent marker lives on the
// business row, so restarts and overlapping runs cannot double-send.
type ExpiryAlertService struct {
	businessRepo repositories.BusinessRepository
	mailerSvc    services.MailerService
}

type ExpiryAlert struct {
	BusinessID   uuid.UUID
	BusinessName string
	OwnerEmail   string
	ExpiresAt    time.Time
}

func NewExpiryAlertService(businessRepo repositories.BusinessRepository, mailerSvc services.MailerService) *ExpiryAlertService {
	return &ExpiryAlertService{
		businessRepo: businessRepo,
		mailerSvc:    mailerSvc,
	}
}

// CheckApproachingExpiries returns businesses expiring within the warning
// window that have not been warned yet.
func (a *ExpiryAlertService) CheckApproachingExpiries(ctx context.Context, now time.Time) ([]ExpiryAlert, error) {
	windowEnd := now.AddDate(0, 0, ExpiryWarningDays)

	businesses, err := a.businessRepo.ListExpiringBetween(ctx, now, windowEnd, 500)
	if err != nil {
		log.Printf("Failed to list expiring businesses: %v", err)
		return nil, err
	}

	var alerts []ExpiryAlert
	for _, business := range businesses {
		if business.MembershipExpiryDate == nil {
			continue
		}
		alerts = append(alerts, ExpiryAlert{
			BusinessID:   business.ID,
			BusinessName: business.Name,
			OwnerEmail:   business.OwnerEmail,
			ExpiresAt:    *business.MembershipExpiryDate,
		})
	}
	return alerts, nil
}

// SendExpiryWarnings emails each alert and marks the business as notified.
// The marker is only written after a successful send, so a failed send is
// retried on the next run.
func (a *ExpiryAlertService) SendExpiryWarnings(ctx context.Context, alerts []ExpiryAlert) int {
	sent := 0
	for _, alert := range alerts {
		if err := a.mailerSvc.SendExpiryWarning(alert.OwnerEmail, alert.BusinessName, alert.ExpiresAt); err != nil {
			log.Printf("Failed to send expiry warning for business %s: %v", alert.BusinessID.String(), err)
			continue
		}
		if err := a.businessRepo.SetExpiryNotified(ctx, alert.BusinessID, time.Now()); err != nil {
			log.Printf("Failed to mark business %s as notified: %v", alert.BusinessID.String(), err)
			continue
		}
		sent++
	}
	return sent
}

// ScheduledExpiryCheck is the entry point the scheduler calls.
func (a *ExpiryAlertService) ScheduledExpiryCheck(ctx context.Context) error {
	log.Println("Starting scheduled membership expiry check")

	alerts, err := a.CheckApproachingExpiries(ctx, time.Now())
	if err != nil {
		log.Printf("Scheduled expiry check failed: %v", err)
		return err
	}

	sent := a.SendExpiryWarnings(ctx, alerts)
	log.Printf("Scheduled expiry check completed: %d warnings sent (%d candidates)", sent, len(alerts))
	return nil
}

// TrialSweepService bulk-downgrades lapsed premium memberships. The dashboard
// already sweeps lazily on read; this job catches businesses whose owners
// never log in.
type TrialSweepService struct {
	businessRepo  repositories.BusinessRepository
	membershipSvc services.MembershipService
}

func NewTrialSweepService(businessRepo repositories.BusinessRepository, membershipSvc services.MembershipService) *TrialSweepService {
	return &TrialSweepService{
		businessRepo:  businessRepo,
		membershipSvc: membershipSvc,
	}
}

// SweepExpired downgrades every premium business whose expiry has passed.
// Each downgrade goes through the same service path as the lazy sweep, so
// version conflicts with a concurrent dashboard load are quiet no-ops.
func (s *TrialSweepService) SweepExpired(ctx context.Context, asOf time.Time) (int, error) {
	expired, err := s.businessRepo.ListExpiredPremium(ctx, asOf, 500)
	if err != nil {
		log.Printf("Failed to list expired premium businesses: %v", err)
		return 0, err
	}

	downgraded := 0
	for _, business := range expired {
		if business.MembershipTier != models.TierPremium {
			continue
		}
		did, err := s.membershipSvc.SweepTrial(ctx, business.ID)
		if err != nil {
			log.Printf("Failed to sweep business %s: %v", business.ID.String(), err)
			continue
		}
		if did {
			downgraded++
		}
	}
	return downgraded, nil
}

// ScheduledTrialSweep is the entry point the scheduler calls.
func (s *TrialSweepService) ScheduledTrialSweep(ctx context.Context) error {
	log.Println("Starting scheduled trial sweep")

	downgraded, err := s.SweepExpired(ctx, time.Now())
	if err != nil {
		log.Printf("Scheduled trial sweep failed: %v", err)
		return err
	}

	log.Printf("Scheduled trial sweep completed: %d businesses downgraded", downgraded)
	return nil
}
