package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"glowdesk/internal/common"
	"glowdesk/internal/models"
	"glowdesk/internal/repositories"

	"github.com/google/uuid"
	"github.com/labstack/gommon/random"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrRequestAlreadyReviewed = errors.New("registration request has already been reviewed")
)

// RegistrationService runs the privileged registration→approval bridge: it
// creates the business, starts the trial, invites the owner and sends the
// invitation email. The steps span the relational store and the mailer, so
// failures are unwound with best-effort compensating deletes rather than a
// database transaction.
type RegistrationService interface {
	Submit(ctx context.Context, req *SubmitRegistrationRequest) (*models.RegistrationRequest, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.RegistrationRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID) (*models.Business, error)
	Reject(ctx context.Context, requestID uuid.UUID) error
	CreateBusiness(ctx context.Context, name, ownerEmail string) (*models.Business, error)
}

type SubmitRegistrationRequest struct {
	BusinessName string  `json:"business_name"`
	OwnerName    string  `json:"owner_name"`
	OwnerEmail   string  `json:"owner_email"`
	OwnerPhone   *string `json:"owner_phone"`
}

type registrationService struct {
	registrationRepo repositories.RegistrationRepository
	businessRepo     repositories.BusinessRepository
	userRepo         repositories.UserRepository
	membershipSvc    MembershipService
	mailerSvc        MailerService
}

func NewRegistrationService(
	registrationRepo repositories.RegistrationRepository,
	businessRepo repositories.BusinessRepository,
	userRepo repositories.UserRepository,
	membershipSvc MembershipService,
	mailerSvc MailerService,
) RegistrationService {
	return &registrationService{
		registrationRepo: registrationRepo,
		businessRepo:     businessRepo,
		userRepo:         userRepo,
		membershipSvc:    membershipSvc,
		mailerSvc:        mailerSvc,
	}
}

func (s *registrationService) Submit(ctx context.Context, req *SubmitRegistrationRequest) (*models.RegistrationRequest, error) {
	if err := common.ValidateRequiredString(req.BusinessName, "business_name"); err != nil {
		return nil, err
	}
	if err := common.ValidateRequiredString(req.OwnerName, "owner_name"); err != nil {
		return nil, err
	}
	if err := common.ValidateEmail(req.OwnerEmail, "owner_email"); err != nil {
		return nil, err
	}

	request := &models.RegistrationRequest{
		ID:           uuid.New(),
		BusinessName: req.BusinessName,
		OwnerName:    req.OwnerName,
		OwnerEmail:   req.OwnerEmail,
		OwnerPhone:   req.OwnerPhone,
		Status:       models.RegistrationStatusPending,
	}
	if err := s.registrationRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to record registration request: %w", err)
	}
	return request, nil
}

func (s *registrationService) ListPending(ctx context.Context, limit, offset int) ([]*models.RegistrationRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.registrationRepo.ListByStatus(ctx, models.RegistrationStatusPending, limit, offset)
}

// Approve executes the bridge. Step order: mark reviewed, create business,
// start trial, create invited owner, send invitation. Any failure compensates
// in reverse order of creation; a failed compensation is logged, not retried.
func (s *registrationService) Approve(ctx context.Context, requestID uuid.UUID) (*models.Business, error) {
	request, err := s.registrationRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("registration request lookup failed: %w", err)
	}

	reviewed, err := s.registrationRepo.MarkReviewed(ctx, requestID, models.RegistrationStatusApproved, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to approve registration request: %w", err)
	}
	if !reviewed {
		return nil, ErrRequestAlreadyReviewed
	}

	business, err := s.createTrialBusiness(ctx, request.BusinessName, request.OwnerEmail)
	if err != nil {
		s.revertReview(ctx, requestID)
		return nil, err
	}

	tempPassword := random.String(12)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		s.deleteBusiness(ctx, business.ID)
		s.revertReview(ctx, requestID)
		return nil, fmt.Errorf("failed to hash invitation password: %w", err)
	}

	firstName, lastName := splitOwnerName(request.OwnerName)
	owner := &models.User{
		ID:           uuid.New(),
		BusinessID:   &business.ID,
		Email:        request.OwnerEmail,
		PasswordHash: string(passwordHash),
		FirstName:    firstName,
		LastName:     lastName,
		Role:         models.RoleOwner,
		Status:       "invited",
	}
	if err := s.userRepo.Create(ctx, owner); err != nil {
		s.deleteBusiness(ctx, business.ID)
		s.revertReview(ctx, requestID)
		return nil, fmt.Errorf("failed to create invited owner: %w", err)
	}

	if err := s.mailerSvc.SendOwnerInvitation(request.OwnerEmail, request.OwnerName, request.BusinessName, tempPassword); err != nil {
		s.deleteUser(ctx, owner.ID)
		s.deleteBusiness(ctx, business.ID)
		s.revertReview(ctx, requestID)
		return nil, fmt.Errorf("failed to send invitation email: %w", err)
	}

	return business, nil
}

func (s *registrationService) Reject(ctx context.Context, requestID uuid.UUID) error {
	reviewed, err := s.registrationRepo.MarkReviewed(ctx, requestID, models.RegistrationStatusRejected, time.Now())
	if err != nil {
		return fmt.Errorf("failed to reject registration request: %w", err)
	}
	if !reviewed {
		return ErrRequestAlreadyReviewed
	}
	return nil
}

// CreateBusiness is the direct (non-registration) creation path. The trial
// starts immediately, same as approval.
func (s *registrationService) CreateBusiness(ctx context.Context, name, ownerEmail string) (*models.Business, error) {
	if err := common.ValidateRequiredString(name, "name"); err != nil {
		return nil, err
	}
	if err := common.ValidateEmail(ownerEmail, "owner_email"); err != nil {
		return nil, err
	}
	return s.createTrialBusiness(ctx, name, ownerEmail)
}

func (s *registrationService) createTrialBusiness(ctx context.Context, name, ownerEmail string) (*models.Business, error) {
	business := &models.Business{
		ID:             uuid.New(),
		Name:           name,
		Slug:           common.GenerateSlug(name, time.Now()),
		OwnerEmail:     ownerEmail,
		MembershipTier: models.TierFree,
		IsActive:       false,
	}
	if err := s.businessRepo.Create(ctx, business); err != nil {
		return nil, fmt.Errorf("failed to create business: %w", err)
	}

	if err := s.membershipSvc.StartTrial(ctx, business.ID); err != nil {
		s.deleteBusiness(ctx, business.ID)
		return nil, fmt.Errorf("failed to start trial: %w", err)
	}

	// Re-read so the caller sees the trial state the initializer wrote
	return s.businessRepo.GetByID(ctx, business.ID)
}

func (s *registrationService) revertReview(ctx context.Context, requestID uuid.UUID) {
	if err := s.registrationRepo.RevertReview(ctx, requestID); err != nil {
		log.Printf("Compensation failed: could not revert registration request %s: %v", requestID.String(), err)
	}
}

func (s *registrationService) deleteBusiness(ctx context.Context, businessID uuid.UUID) {
	if err := s.businessRepo.Delete(ctx, businessID); err != nil {
		log.Printf("Compensation failed: could not delete business %s: %v", businessID.String(), err)
	}
}

func (s *registrationService) deleteUser(ctx context.Context, userID uuid.UUID) {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		log.Printf("Compensation failed: could not delete user %s: %v", userID.String(), err)
	}
}

func splitOwnerName(fullName string) (string, string) {
	first := fullName
	last := ""
	for i := len(fullName) - 1; i >= 0; i-- {
		if fullName[i] == ' ' {
			first = fullName[:i]
			last = fullName[i+1:]
			break
		}
	}
	return first, last
}
