package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"glowdesk/internal/models"
	"glowdesk/internal/repositories"

	"github.com/google/uuid"
)

// MaxPaymentProofSize caps proof uploads at 5 MB.
const MaxPaymentProofSize = 5 << 20

var (
	// ErrOrderFinalized is returned when a terminal order is asked to change.
	ErrOrderFinalized = errors.New("order has already been completed or rejected")
	ErrProofTooLarge  = errors.New("payment proof exceeds the 5 MB limit")
	ErrProofNotImage  = errors.New("payment proof must be an image file")
)

// OrderService is the order ledger: purchase intents for membership packages
// and the payment evidence attached to them.
type OrderService interface {
	CreateOrder(ctx context.Context, businessID uuid.UUID, req *CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, businessID, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*models.Order, error)
	ListAwaitingConfirmation(ctx context.Context, limit, offset int) ([]*models.Order, error)
	AttachPaymentProof(ctx context.Context, businessID, orderID uuid.UUID, filename, contentType string, reader io.Reader, size int64) (*models.Order, error)
	RejectOrder(ctx context.Context, businessID, orderID uuid.UUID, notes *string) (*models.Order, error)
}

type CreateOrderRequest struct {
	PackageID     uuid.UUID `json:"package_id"`
	PaymentMethod string    `json:"payment_method"`
	Notes         *string   `json:"notes"`
}

type orderService struct {
	orderRepo   repositories.OrderRepository
	packageRepo repositories.PackageRepository
	storageSvc  StorageService
}

func NewOrderService(orderRepo repositories.OrderRepository, packageRepo repositories.PackageRepository, storageSvc StorageService) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		packageRepo: packageRepo,
		storageSvc:  storageSvc,
	}
}

// CreateOrder records a purchase intent. Name and amount are snapshotted from
// the package catalog so later catalog edits never rewrite history. Orders
// always start as awaiting_confirmation.
func (s *orderService) CreateOrder(ctx context.Context, businessID uuid.UUID, req *CreateOrderRequest) (*models.Order, error) {
	if req.PackageID == uuid.Nil {
		return nil, errors.New("package_id is required")
	}

	pkg, err := s.packageRepo.GetByID(ctx, req.PackageID)
	if err != nil {
		return nil, fmt.Errorf("package lookup failed: %w", err)
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "bank_transfer"
	}

	order := &models.Order{
		ID:            uuid.New(),
		BusinessID:    businessID,
		PackageID:     pkg.ID,
		PackageName:   pkg.Name,
		Amount:        pkg.Price,
		Status:        models.OrderStatusAwaitingConfirmation,
		PaymentMethod: paymentMethod,
		Notes:         req.Notes,
		SubmittedAt:   time.Now(),
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, businessID, orderID uuid.UUID) (*models.Order, error) {
	return s.orderRepo.GetByID(ctx, businessID, orderID)
}

func (s *orderService) ListOrders(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.orderRepo.ListByBusiness(ctx, businessID, limit, offset)
}

func (s *orderService) ListAwaitingConfirmation(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.orderRepo.ListByStatus(ctx, models.OrderStatusAwaitingConfirmation, limit, offset)
}

// AttachPaymentProof stores the proof image under the order's namespace and
// writes the resulting URL onto the order. Terminal orders refuse the upload;
// a concurrent second upload simply overwrites the field, which is accepted
// for single-actor usage.
func (s *orderService) AttachPaymentProof(ctx context.Context, businessID, orderID uuid.UUID, filename, contentType string, reader io.Reader, size int64) (*models.Order, error) {
	if size > MaxPaymentProofSize {
		return nil, ErrProofTooLarge
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrProofNotImage
	}

	order, err := s.orderRepo.GetByID(ctx, businessID, orderID)
	if err != nil {
		return nil, fmt.Errorf("order lookup failed: %w", err)
	}
	if models.OrderStatusTerminal(order.Status) {
		return nil, ErrOrderFinalized
	}

	url, err := s.storageSvc.UploadPaymentProof(ctx, orderID, filename, contentType, reader, size)
	if err != nil {
		return nil, fmt.Errorf("failed to store payment proof: %w", err)
	}

	attached, err := s.orderRepo.SetPaymentProofURL(ctx, businessID, orderID, url)
	if err != nil {
		return nil, fmt.Errorf("failed to record payment proof: %w", err)
	}
	if !attached {
		// The order was finalized between the read and the write; drop the
		// orphaned object.
		if cleanupErr := s.storageSvc.RemovePaymentProof(ctx, orderID, filename); cleanupErr != nil {
			log.Printf("Failed to remove orphaned payment proof for order %s: %v", orderID.String(), cleanupErr)
		}
		return nil, ErrOrderFinalized
	}

	order.PaymentProofURL = &url
	return order, nil
}

// RejectOrder moves a non-terminal order to rejected. No activation happens
// and none can happen afterwards.
func (s *orderService) RejectOrder(ctx context.Context, businessID, orderID uuid.UUID, notes *string) (*models.Order, error) {
	transitioned, err := s.orderRepo.Reject(ctx, businessID, orderID, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to reject order: %w", err)
	}
	if !transitioned {
		return nil, ErrOrderFinalized
	}
	return s.orderRepo.GetByID(ctx, businessID, orderID)
}
