package services

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"testing"
	"time"

	"glowdesk/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// MockStorageService mocks the StorageService interface for testing
type MockStorageService struct {
	mock.Mock
}

func (m *MockStorageService) UploadPaymentProof(ctx context.Context, orderID uuid.UUID, filename, contentType string, reader io.Reader, size int64) (string, error) {
	args := m.Called(ctx, orderID, filename, contentType, reader, size)
	return args.String(0), args.Error(1)
}

func (m *MockStorageService) RemovePaymentProof(ctx context.Context, orderID uuid.UUID, filename string) error {
	args := m.Called(ctx, orderID, filename)
	return args.Error(0)
}

func (m *MockStorageService) EnsureBucketExists(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStorageService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type OrderServiceTestSuite struct {
	suite.Suite
	orderRepo   *MockOrderRepository
	packageRepo *MockPackageRepository
	storageSvc  *MockStorageService
	service     OrderService
	businessID  uuid.UUID
	orderID     uuid.UUID
	packageID   uuid.UUID
	context     context.Context
}

func (suite *OrderServiceTestSuite) SetupTest() {
	suite.orderRepo = &MockOrderRepository{}
	suite.packageRepo = &MockPackageRepository{}
	suite.storageSvc = &MockStorageService{}
	suite.service = NewOrderService(suite.orderRepo, suite.packageRepo, suite.storageSvc)
	suite.businessID = uuid.New()
	suite.orderID = uuid.New()
	suite.packageID = uuid.New()
	suite.context = context.Background()
}

func (suite *OrderServiceTestSuite) TearDownTest() {
	suite.orderRepo.AssertExpectations(suite.T())
	suite.packageRepo.AssertExpectations(suite.T())
	suite.storageSvc.AssertExpectations(suite.T())
}

func TestOrderServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

func (suite *OrderServiceTestSuite) TestCreateOrder_SnapshotsCatalogData() {
	pkg := &models.MembershipPackage{
		ID:             suite.packageID,
		Name:           "Premium 6 Months",
		Tier:           models.TierPremium,
		Price:          499000,
		DurationMonths: 6,
		IsActive:       true,
	}
	suite.packageRepo.On("GetByID", suite.context, suite.packageID).Return(pkg, nil)
	suite.orderRepo.On("Create", suite.context, mock.AnythingOfType("*models.Order")).Return(nil)

	order, err := suite.service.CreateOrder(suite.context, suite.businessID, &CreateOrderRequest{PackageID: suite.packageID})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.businessID, order.BusinessID)
	assert.Equal(suite.T(), "Premium 6 Months", order.PackageName)
	assert.Equal(suite.T(), float64(499000), order.Amount)
	assert.Equal(suite.T(), "bank_transfer", order.PaymentMethod)
	assert.Equal(suite.T(), models.OrderStatusAwaitingConfirmation, order.Status)
	assert.Nil(suite.T(), order.PaymentProofURL)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_MissingPackage() {
	order, err := suite.service.CreateOrder(suite.context, suite.businessID, &CreateOrderRequest{})
	assert.Nil(suite.T(), order)
	assert.Error(suite.T(), err)
	suite.packageRepo.AssertNotCalled(suite.T(), "GetByID", mock.Anything, mock.Anything)
}

func (suite *OrderServiceTestSuite) TestAttachPaymentProof_Success() {
	order := &models.Order{
		ID:         suite.orderID,
		BusinessID: suite.businessID,
		Status:     models.OrderStatusAwaitingConfirmation,
	}
	proof := bytes.NewReader([]byte("png-bytes"))
	url := "https://storage.example/payment-proofs/orders/" + suite.orderID.String() + "/receipt.png"

	suite.orderRepo.On("GetByID", suite.context, suite.businessID, suite.orderID).Return(order, nil)
	suite.storageSvc.On("UploadPaymentProof", suite.context, suite.orderID, "receipt.png", "image/png", proof, int64(9)).Return(url, nil)
	suite.orderRepo.On("SetPaymentProofURL", suite.context, suite.businessID, suite.orderID, url).Return(true, nil)

	got, err := suite.service.AttachPaymentProof(suite.context, suite.businessID, suite.orderID, "receipt.png", "image/png", proof, 9)
	assert.NoError(suite.T(), err)
	if assert.NotNil(suite.T(), got.PaymentProofURL) {
		assert.Equal(suite.T(), url, *got.PaymentProofURL)
	}
}

func (suite *OrderServiceTestSuite) TestAttachPaymentProof_TooLarge() {
	got, err := suite.service.AttachPaymentProof(suite.context, suite.businessID, suite.orderID, "receipt.png", "image/png", bytes.NewReader(nil), MaxPaymentProofSize+1)
	assert.Nil(suite.T(), got)
	assert.ErrorIs(suite.T(), err, ErrProofTooLarge)
	suite.storageSvc.AssertNotCalled(suite.T(), "UploadPaymentProof", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *OrderServiceTestSuite) TestAttachPaymentProof_NotAnImage() {
	got, err := suite.service.AttachPaymentProof(suite.context, suite.businessID, suite.orderID, "receipt.pdf", "application/pdf", bytes.NewReader(nil), 128)
	assert.Nil(suite.T(), got)
	assert.ErrorIs(suite.T(), err, ErrProofNotImage)
}

func (suite *OrderServiceTestSuite) TestAttachPaymentProof_RefusedOnFinalizedOrder() {
	order := &models.Order{
		ID:         suite.orderID,
		BusinessID: suite.businessID,
		Status:     models.OrderStatusCompleted,
	}
	suite.orderRepo.On("GetByID", suite.context, suite.businessID, suite.orderID).Return(order, nil)

	got, err := suite.service.AttachPaymentProof(suite.context, suite.businessID, suite.orderID, "receipt.png", "image/png", bytes.NewReader(nil), 64)
	assert.Nil(suite.T(), got)
	assert.ErrorIs(suite.T(), err, ErrOrderFinalized)
	suite.storageSvc.AssertNotCalled(suite.T(), "UploadPaymentProof", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *OrderServiceTestSuite) TestAttachPaymentProof_CleansUpWhenFinalizedMidFlight() {
	order := &models.Order{
		ID:         suite.orderID,
		BusinessID: suite.businessID,
		Status:     models.OrderStatusAwaitingConfirmation,
	}
	proof := bytes.NewReader([]byte("png-bytes"))
	url := "https://storage.example/payment-proofs/orders/" + suite.orderID.String() + "/receipt.png"

	suite.orderRepo.On("GetByID", suite.context, suite.businessID, suite.orderID).Return(order, nil)
	suite.storageSvc.On("UploadPaymentProof", suite.context, suite.orderID, "receipt.png", "image/png", proof, int64(9)).Return(url, nil)
	suite.orderRepo.On("SetPaymentProofURL", suite.context, suite.businessID, suite.orderID, url).Return(false, nil)
	suite.storageSvc.On("RemovePaymentProof", suite.context, suite.orderID, "receipt.png").Return(nil)

	got, err := suite.service.AttachPaymentProof(suite.context, suite.businessID, suite.orderID, "receipt.png", "image/png", proof, 9)
	assert.Nil(suite.T(), got)
	assert.ErrorIs(suite.T(), err, ErrOrderFinalized)
}

func (suite *OrderServiceTestSuite) TestRejectOrder_TerminalOrderStaysPut() {
	suite.orderRepo.On("Reject", suite.context, suite.businessID, suite.orderID, (*string)(nil)).Return(false, nil)

	got, err := suite.service.RejectOrder(suite.context, suite.businessID, suite.orderID, nil)
	assert.Nil(suite.T(), got)
	assert.ErrorIs(suite.T(), err, ErrOrderFinalized)
}

func (suite *OrderServiceTestSuite) TestRejectOrder_RecordsNotes() {
	notes := "amount does not match the transfer"
	rejected := &models.Order{
		ID:         suite.orderID,
		BusinessID: suite.businessID,
		Status:     models.OrderStatusRejected,
		Notes:      &notes,
	}
	suite.orderRepo.On("Reject", suite.context, suite.businessID, suite.orderID, &notes).Return(true, nil)
	suite.orderRepo.On("GetByID", suite.context, suite.businessID, suite.orderID).Return(rejected, nil)

	got, err := suite.service.RejectOrder(suite.context, suite.businessID, suite.orderID, &notes)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.OrderStatusRejected, got.Status)
}

func (suite *OrderServiceTestSuite) TestListOrders_DefaultsPagination() {
	suite.orderRepo.On("ListByBusiness", suite.context, suite.businessID, 50, 0).Return([]*models.Order{}, nil)

	_, err := suite.service.ListOrders(suite.context, suite.businessID, 0, -3)
	assert.NoError(suite.T(), err)
}

// orderLedgerStub is a statusful OrderRepository whose conditional writes
// mirror the SQL guards: a transition only lands while the order is still
// pending or awaiting confirmation.
type orderLedgerStub struct {
	order models.Order
}

func newOrderLedgerStub(businessID, orderID uuid.UUID) *orderLedgerStub {
	return &orderLedgerStub{order: models.Order{
		ID:         orderID,
		BusinessID: businessID,
		Status:     models.OrderStatusAwaitingConfirmation,
	}}
}

func (s *orderLedgerStub) transitionable() bool {
	return s.order.Status == models.OrderStatusPending || s.order.Status == models.OrderStatusAwaitingConfirmation
}

func (s *orderLedgerStub) Create(ctx context.Context, order *models.Order) error { return nil }

func (s *orderLedgerStub) GetByID(ctx context.Context, businessID, id uuid.UUID) (*models.Order, error) {
	cp := s.order
	return &cp, nil
}

func (s *orderLedgerStub) ListByBusiness(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*models.Order, error) {
	return nil, nil
}

func (s *orderLedgerStub) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.Order, error) {
	return nil, nil
}

func (s *orderLedgerStub) SetPaymentProofURL(ctx context.Context, businessID, id uuid.UUID, url string) (bool, error) {
	if !s.transitionable() {
		return false, nil
	}
	s.order.PaymentProofURL = &url
	return true, nil
}

func (s *orderLedgerStub) Reject(ctx context.Context, businessID, id uuid.UUID, notes *string) (bool, error) {
	if !s.transitionable() {
		return false, nil
	}
	s.order.Status = models.OrderStatusRejected
	if notes != nil {
		s.order.Notes = notes
	}
	return true, nil
}

func (s *orderLedgerStub) GetByIDTx(ctx context.Context, tx pgx.Tx, businessID, id uuid.UUID) (*models.Order, error) {
	cp := s.order
	return &cp, nil
}

func (s *orderLedgerStub) CompleteTx(ctx context.Context, tx pgx.Tx, businessID, id uuid.UUID, confirmedAt time.Time) (bool, error) {
	if !s.transitionable() {
		return false, nil
	}
	s.order.Status = models.OrderStatusCompleted
	s.order.ConfirmedAt = &confirmedAt
	return true, nil
}

// TestOrderStatusMonotonicity drives random mutation sequences through the
// order service against a statusful repository that reports the conditional
// write outcomes, and checks that the first terminal transition wins: once
// completed or rejected, no later mutation changes the status.
func TestOrderStatusMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ctx := context.Background()

	for trial := 0; trial < 200; trial++ {
		businessID := uuid.New()
		orderID := uuid.New()
		ledger := newOrderLedgerStub(businessID, orderID)

		storageSvc := &MockStorageService{}
		storageSvc.On("UploadPaymentProof", mock.Anything, orderID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("https://cdn.example/proof.png", nil)
		storageSvc.On("RemovePaymentProof", mock.Anything, orderID, mock.Anything).Return(nil)

		svc := NewOrderService(ledger, &MockPackageRepository{}, storageSvc)

		terminal := ""
		for step := 0; step < 12; step++ {
			switch rng.Intn(3) {
			case 0:
				_, err := svc.RejectOrder(ctx, businessID, orderID, nil)
				if terminal != "" {
					assert.ErrorIs(t, err, ErrOrderFinalized, "rejection landed after terminal state in trial %d", trial)
				} else {
					assert.NoError(t, err)
				}
			case 1:
				// The activation engine's conditional flip.
				transitioned, err := ledger.CompleteTx(ctx, nil, businessID, orderID, time.Now())
				assert.NoError(t, err)
				if terminal != "" {
					assert.False(t, transitioned, "completion landed after terminal state in trial %d", trial)
				} else {
					assert.True(t, transitioned)
				}
			default:
				_, err := svc.AttachPaymentProof(ctx, businessID, orderID, "proof.png", "image/png", bytes.NewReader([]byte("img")), 3)
				if terminal != "" {
					assert.ErrorIs(t, err, ErrOrderFinalized, "proof attached after terminal state in trial %d", trial)
				} else {
					assert.NoError(t, err)
				}
			}

			if terminal != "" {
				assert.Equal(t, terminal, ledger.order.Status, "terminal status changed in trial %d", trial)
			} else if models.OrderStatusTerminal(ledger.order.Status) {
				terminal = ledger.order.Status
			}
		}
	}
}
