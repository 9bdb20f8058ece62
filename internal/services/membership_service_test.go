package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"glowdesk/internal/models"
	"glowdesk/internal/repositories"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// MockBusinessRepository mocks the BusinessRepository interface for testing
type MockBusinessRepository struct {
	mock.Mock
}

func (m *MockBusinessRepository) Create(ctx context.Context, business *models.Business) error {
	args := m.Called(ctx, business)
	return args.Error(0)
}

func (m *MockBusinessRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Business), args.Error(1)
}

func (m *MockBusinessRepository) GetBySlug(ctx context.Context, slug string) (*models.Business, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Business), args.Error(1)
}

func (m *MockBusinessRepository) Update(ctx context.Context, business *models.Business) error {
	args := m.Called(ctx, business)
	return args.Error(0)
}

func (m *MockBusinessRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBusinessRepository) List(ctx context.Context, limit, offset int) ([]*models.Business, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Business), args.Error(1)
}

func (m *MockBusinessRepository) ListExpiringBetween(ctx context.Context, from, to time.Time, limit int) ([]*models.Business, error) {
	args := m.Called(ctx, from, to, limit)
	return args.Get(0).([]*models.Business), args.Error(1)
}

func (m *MockBusinessRepository) ListExpiredPremium(ctx context.Context, asOf time.Time, limit int) ([]*models.Business, error) {
	args := m.Called(ctx, asOf, limit)
	return args.Get(0).([]*models.Business), args.Error(1)
}

func (m *MockBusinessRepository) SetExpiryNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockBusinessRepository) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Business, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Business), args.Error(1)
}

func (m *MockBusinessRepository) UpdateMembershipTx(ctx context.Context, tx pgx.Tx, business *models.Business) error {
	args := m.Called(ctx, tx, business)
	return args.Error(0)
}

// MockOrderRepository mocks the OrderRepository interface for testing
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, businessID, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, businessID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByBusiness(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*models.Order, error) {
	args := m.Called(ctx, businessID, limit, offset)
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.Order, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *MockOrderRepository) SetPaymentProofURL(ctx context.Context, businessID, id uuid.UUID, url string) (bool, error) {
	args := m.Called(ctx, businessID, id, url)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) Reject(ctx context.Context, businessID, id uuid.UUID, notes *string) (bool, error) {
	args := m.Called(ctx, businessID, id, notes)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) GetByIDTx(ctx context.Context, tx pgx.Tx, businessID, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, tx, businessID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) CompleteTx(ctx context.Context, tx pgx.Tx, businessID, id uuid.UUID, confirmedAt time.Time) (bool, error) {
	args := m.Called(ctx, tx, businessID, id, confirmedAt)
	return args.Bool(0), args.Error(1)
}

// MockPackageRepository mocks the PackageRepository interface for testing
type MockPackageRepository struct {
	mock.Mock
}

func (m *MockPackageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MembershipPackage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MembershipPackage), args.Error(1)
}

func (m *MockPackageRepository) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.MembershipPackage, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MembershipPackage), args.Error(1)
}

func (m *MockPackageRepository) ListActive(ctx context.Context) ([]*models.MembershipPackage, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.MembershipPackage), args.Error(1)
}

// MockCacheService mocks the CacheService interface for testing
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetBusiness(ctx context.Context, businessID uuid.UUID) (*models.Business, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Business), args.Error(1)
}

func (m *MockCacheService) SetBusiness(ctx context.Context, business *models.Business, ttl time.Duration) error {
	args := m.Called(ctx, business, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteBusiness(ctx context.Context, businessID uuid.UUID) error {
	args := m.Called(ctx, businessID)
	return args.Error(0)
}

func (m *MockCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) IncrementRateLimit(ctx context.Context, key string, window time.Duration) error {
	args := m.Called(ctx, key, window)
	return args.Error(0)
}

func (m *MockCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheService) GetString(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MembershipServiceTestSuite struct {
	suite.Suite
	db           pgxmock.PgxPoolIface
	businessRepo *MockBusinessRepository
	orderRepo    *MockOrderRepository
	packageRepo  *MockPackageRepository
	cacheSvc     *MockCacheService
	service      MembershipService
	businessID   uuid.UUID
	orderID      uuid.UUID
	packageID    uuid.UUID
	context      context.Context
}

func (suite *MembershipServiceTestSuite) SetupTest() {
	db, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.db = db

	suite.businessRepo = &MockBusinessRepository{}
	suite.orderRepo = &MockOrderRepository{}
	suite.packageRepo = &MockPackageRepository{}
	suite.cacheSvc = &MockCacheService{}
	suite.service = NewMembershipService(db, suite.businessRepo, suite.orderRepo, suite.packageRepo, suite.cacheSvc)

	suite.businessID = uuid.New()
	suite.orderID = uuid.New()
	suite.packageID = uuid.New()
	suite.context = context.Background()
}

func (suite *MembershipServiceTestSuite) TearDownTest() {
	suite.businessRepo.AssertExpectations(suite.T())
	suite.orderRepo.AssertExpectations(suite.T())
	suite.packageRepo.AssertExpectations(suite.T())
	suite.cacheSvc.AssertExpectations(suite.T())
	suite.db.Close()
}

func TestMembershipServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MembershipServiceTestSuite))
}

func (suite *MembershipServiceTestSuite) freshBusiness() *models.Business {
	return &models.Business{
		ID:             suite.businessID,
		Name:           "Serene Scissors",
		Slug:           "serene-scissors-sx9l2a",
		OwnerEmail:     "owner@serene.example",
		MembershipTier: models.TierFree,
		IsActive:       false,
		Version:        1,
	}
}

func (suite *MembershipServiceTestSuite) TestStartTrial_GrantsPremiumFor30Days() {
	business := suite.freshBusiness()
	before := time.Now()

	suite.businessRepo.On("GetByID", suite.context, suite.businessID).Return(business, nil)
	suite.businessRepo.On("Update", suite.context, business).Return(nil)
	suite.cacheSvc.On("DeleteBusiness", suite.context, suite.businessID).Return(nil)

	err := suite.service.StartTrial(suite.context, suite.businessID)
	assert.NoError(suite.T(), err)

	assert.Equal(suite.T(), models.TierPremium, business.MembershipTier)
	assert.True(suite.T(), business.IsActive)
	if assert.NotNil(suite.T(), business.MembershipExpiryDate) {
		expected := before.AddDate(0, 0, TrialDays)
		assert.WithinDuration(suite.T(), expected, *business.MembershipExpiryDate, 2*time.Second)
	}
}

func (suite *MembershipServiceTestSuite) TestStartTrial_PersistenceErrorSurfaces() {
	business := suite.freshBusiness()

	suite.businessRepo.On("GetByID", suite.context, suite.businessID).Return(business, nil)
	suite.businessRepo.On("Update", suite.context, business).Return(errors.New("write failed"))

	err := suite.service.StartTrial(suite.context, suite.businessID)
	assert.Error(suite.T(), err)
}

func (suite *MembershipServiceTestSuite) TestActivate_AppliesPackageToBusiness() {
	suite.db.ExpectBegin()
	suite.db.ExpectCommit()

	order := &models.Order{
		ID:          suite.orderID,
		BusinessID:  suite.businessID,
		PackageID:   suite.packageID,
		PackageName: "VIP 12 Months",
		Amount:      999000,
		Status:      models.OrderStatusAwaitingConfirmation,
	}
	notified := time.Now().Add(-48 * time.Hour)
	business := suite.freshBusiness()
	business.MembershipTier = models.TierPremium
	business.ExpiryNotifiedAt = &notified
	pkg := &models.MembershipPackage{
		ID:             suite.packageID,
		Name:           "VIP 12 Months",
		Tier:           models.TierVIP,
		Price:          999000,
		DurationMonths: 12,
	}

	suite.orderRepo.On("GetByIDTx", suite.context, mock.Anything, suite.businessID, suite.orderID).Return(order, nil)
	suite.orderRepo.On("CompleteTx", suite.context, mock.Anything, suite.businessID, suite.orderID, mock.AnythingOfType("time.Time")).Return(true, nil)
	suite.businessRepo.On("GetForUpdateTx", suite.context, mock.Anything, suite.businessID).Return(business, nil)
	suite.packageRepo.On("GetByIDTx", suite.context, mock.Anything, suite.packageID).Return(pkg, nil)
	suite.businessRepo.On("UpdateMembershipTx", suite.context, mock.Anything, business).Return(nil)
	suite.cacheSvc.On("DeleteBusiness", suite.context, suite.businessID).Return(nil)

	before := time.Now()
	got, err := suite.service.Activate(suite.context, suite.businessID, suite.orderID)
	assert.NoError(suite.T(), err)

	assert.Equal(suite.T(), models.TierVIP, got.MembershipTier)
	assert.True(suite.T(), got.IsActive)
	assert.Nil(suite.T(), got.ExpiryNotifiedAt, "renewal must re-arm the expiry warning")
	if assert.NotNil(suite.T(), got.MembershipExpiryDate) {
		expected := addCalendarMonths(before, 12)
		assert.WithinDuration(suite.T(), expected, *got.MembershipExpiryDate, 2*time.Second)
	}
}

func (suite *MembershipServiceTestSuite) TestActivate_IdempotentForCompletedOrder() {
	confirmedAt := time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)
	pkg := &models.MembershipPackage{
		ID:             suite.packageID,
		Name:           "Premium 6 Months",
		Tier:           models.TierPremium,
		Price:          499000,
		DurationMonths: 6,
	}

	var expiries []time.Time
	for range 2 {
		suite.db.ExpectBegin()
		suite.db.ExpectCommit()

		order := &models.Order{
			ID:          suite.orderID,
			BusinessID:  suite.businessID,
			PackageID:   suite.packageID,
			Status:      models.OrderStatusCompleted,
			ConfirmedAt: &confirmedAt,
		}
		business := suite.freshBusiness()

		suite.orderRepo.On("GetByIDTx", suite.context, mock.Anything, suite.businessID, suite.orderID).Return(order, nil).Once()
		suite.businessRepo.On("GetForUpdateTx", suite.context, mock.Anything, suite.businessID).Return(business, nil).Once()
		suite.packageRepo.On("GetByIDTx", suite.context, mock.Anything, suite.packageID).Return(pkg, nil).Once()
		suite.businessRepo.On("UpdateMembershipTx", suite.context, mock.Anything, business).Return(nil).Once()
		suite.cacheSvc.On("DeleteBusiness", suite.context, suite.businessID).Return(nil).Once()

		got, err := suite.service.Activate(suite.context, suite.businessID, suite.orderID)
		assert.NoError(suite.T(), err)
		assert.Equal(suite.T(), models.TierPremium, got.MembershipTier)
		expiries = append(expiries, *got.MembershipExpiryDate)
	}

	// Both runs recompute from confirmed_at, so the target state is identical
	assert.Equal(suite.T(), expiries[0], expiries[1])
	assert.Equal(suite.T(), addCalendarMonths(confirmedAt, 6), expiries[0])
}

func (suite *MembershipServiceTestSuite) TestActivate_RejectedOrderRefused() {
	suite.db.ExpectBegin()
	suite.db.ExpectRollback()

	order := &models.Order{
		ID:         suite.orderID,
		BusinessID: suite.businessID,
		PackageID:  suite.packageID,
		Status:     models.OrderStatusRejected,
	}
	suite.orderRepo.On("GetByIDTx", suite.context, mock.Anything, suite.businessID, suite.orderID).Return(order, nil)

	got, err := suite.service.Activate(suite.context, suite.businessID, suite.orderID)
	assert.Nil(suite.T(), got)
	assert.ErrorIs(suite.T(), err, ErrOrderRejected)
}

func (suite *MembershipServiceTestSuite) TestActivate_PackageLookupFailureRollsBack() {
	suite.db.ExpectBegin()
	suite.db.ExpectRollback()

	order := &models.Order{
		ID:         suite.orderID,
		BusinessID: suite.businessID,
		PackageID:  suite.packageID,
		Status:     models.OrderStatusAwaitingConfirmation,
	}
	business := suite.freshBusiness()

	suite.orderRepo.On("GetByIDTx", suite.context, mock.Anything, suite.businessID, suite.orderID).Return(order, nil)
	suite.orderRepo.On("CompleteTx", suite.context, mock.Anything, suite.businessID, suite.orderID, mock.AnythingOfType("time.Time")).Return(true, nil)
	suite.businessRepo.On("GetForUpdateTx", suite.context, mock.Anything, suite.businessID).Return(business, nil)
	suite.packageRepo.On("GetByIDTx", suite.context, mock.Anything, suite.packageID).Return(nil, pgx.ErrNoRows)

	got, err := suite.service.Activate(suite.context, suite.businessID, suite.orderID)
	assert.Nil(suite.T(), got)
	assert.Error(suite.T(), err)
	suite.businessRepo.AssertNotCalled(suite.T(), "UpdateMembershipTx", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MembershipServiceTestSuite) runSweepDowngrade(priorActive bool) {
	expired := time.Now().Add(-time.Second)
	business := suite.freshBusiness()
	business.MembershipTier = models.TierPremium
	business.MembershipExpiryDate = &expired
	business.IsActive = priorActive

	suite.businessRepo.On("GetByID", suite.context, suite.businessID).Return(business, nil).Once()
	suite.businessRepo.On("Update", suite.context, business).Return(nil).Once()
	suite.cacheSvc.On("DeleteBusiness", suite.context, suite.businessID).Return(nil).Once()

	downgraded, err := suite.service.SweepTrial(suite.context, suite.businessID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), downgraded)
	assert.Equal(suite.T(), models.TierFree, business.MembershipTier)
	assert.Nil(suite.T(), business.MembershipExpiryDate)
	assert.Equal(suite.T(), priorActive, business.IsActive, "sweeper must never touch is_active")
}

func (suite *MembershipServiceTestSuite) TestSweepTrial_DowngradesExpiredActiveBusiness() {
	suite.runSweepDowngrade(true)
}

func (suite *MembershipServiceTestSuite) TestSweepTrial_DowngradesExpiredInactiveBusiness() {
	suite.runSweepDowngrade(false)
}

func (suite *MembershipServiceTestSuite) TestSweepTrial_NoopWhenNotYetExpired() {
	future := time.Now().Add(time.Second)
	business := suite.freshBusiness()
	business.MembershipTier = models.TierPremium
	business.MembershipExpiryDate = &future
	business.IsActive = true

	suite.businessRepo.On("GetByID", suite.context, suite.businessID).Return(business, nil)

	downgraded, err := suite.service.SweepTrial(suite.context, suite.businessID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), downgraded)
	assert.Equal(suite.T(), models.TierPremium, business.MembershipTier)
	suite.businessRepo.AssertNotCalled(suite.T(), "Update", mock.Anything, mock.Anything)
}

func (suite *MembershipServiceTestSuite) TestSweepTrial_NoopForVIP() {
	expired := time.Now().Add(-time.Hour)
	business := suite.freshBusiness()
	business.MembershipTier = models.TierVIP
	business.MembershipExpiryDate = &expired

	suite.businessRepo.On("GetByID", suite.context, suite.businessID).Return(business, nil)

	downgraded, err := suite.service.SweepTrial(suite.context, suite.businessID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), downgraded)
}

func (suite *MembershipServiceTestSuite) TestSweepTrial_VersionConflictIsQuietNoop() {
	expired := time.Now().Add(-time.Minute)
	business := suite.freshBusiness()
	business.MembershipTier = models.TierPremium
	business.MembershipExpiryDate = &expired

	suite.businessRepo.On("GetByID", suite.context, suite.businessID).Return(business, nil)
	suite.businessRepo.On("Update", suite.context, business).Return(repositories.ErrVersionConflict)

	downgraded, err := suite.service.SweepTrial(suite.context, suite.businessID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), downgraded)
}

func (suite *MembershipServiceTestSuite) TestDashboardBusiness_SweepsThenCaches() {
	expired := time.Now().Add(-time.Minute)
	business := suite.freshBusiness()
	business.MembershipTier = models.TierPremium
	business.MembershipExpiryDate = &expired
	business.IsActive = true

	suite.businessRepo.On("GetByID", suite.context, suite.businessID).Return(business, nil)
	suite.businessRepo.On("Update", suite.context, business).Return(nil)
	suite.cacheSvc.On("DeleteBusiness", suite.context, suite.businessID).Return(nil)
	suite.cacheSvc.On("SetBusiness", suite.context, business, businessCacheTTL).Return(nil)

	got, err := suite.service.DashboardBusiness(suite.context, suite.businessID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TierFree, got.MembershipTier)
	assert.Nil(suite.T(), got.MembershipExpiryDate)
}

func (suite *MembershipServiceTestSuite) TestDashboardBusiness_ServesCachedCopyWhenSweepIdle() {
	future := time.Now().Add(10 * 24 * time.Hour)
	business := suite.freshBusiness()
	business.MembershipTier = models.TierPremium
	business.MembershipExpiryDate = &future
	business.IsActive = true

	cached := *business
	cached.Name = "Serene Scissors (cached)"

	suite.businessRepo.On("GetByID", suite.context, suite.businessID).Return(business, nil).Once()
	suite.cacheSvc.On("GetBusiness", suite.context, suite.businessID).Return(&cached, nil)

	got, err := suite.service.DashboardBusiness(suite.context, suite.businessID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Serene Scissors (cached)", got.Name)

	// The warm entry answered the read: one repository hit (the sweep's) and
	// no re-cache of an unchanged row.
	suite.businessRepo.AssertNumberOfCalls(suite.T(), "GetByID", 1)
	suite.cacheSvc.AssertNotCalled(suite.T(), "SetBusiness", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MembershipServiceTestSuite) TestDashboardBusiness_CacheMissFallsThroughToRepository() {
	future := time.Now().Add(10 * 24 * time.Hour)
	business := suite.freshBusiness()
	business.MembershipTier = models.TierPremium
	business.MembershipExpiryDate = &future
	business.IsActive = true

	suite.businessRepo.On("GetByID", suite.context, suite.businessID).Return(business, nil)
	suite.cacheSvc.On("GetBusiness", suite.context, suite.businessID).Return(nil, nil)
	suite.cacheSvc.On("SetBusiness", suite.context, business, businessCacheTTL).Return(nil)

	got, err := suite.service.DashboardBusiness(suite.context, suite.businessID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), business, got)
	suite.businessRepo.AssertNumberOfCalls(suite.T(), "GetByID", 2)
}

func (suite *MembershipServiceTestSuite) TestTrialThenActivation_ReplacesTrialExpiry() {
	business := suite.freshBusiness()

	suite.businessRepo.On("GetByID", suite.context, suite.businessID).Return(business, nil)
	suite.businessRepo.On("Update", suite.context, business).Return(nil)
	suite.cacheSvc.On("DeleteBusiness", suite.context, suite.businessID).Return(nil)

	err := suite.service.StartTrial(suite.context, suite.businessID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TierPremium, business.MembershipTier)
	assert.True(suite.T(), business.IsActive)
	if !assert.NotNil(suite.T(), business.MembershipExpiryDate) {
		return
	}
	trialExpiry := *business.MembershipExpiryDate
	assert.WithinDuration(suite.T(), time.Now().AddDate(0, 0, TrialDays), trialExpiry, 2*time.Second)

	suite.db.ExpectBegin()
	suite.db.ExpectCommit()

	order := &models.Order{
		ID:          suite.orderID,
		BusinessID:  suite.businessID,
		PackageID:   suite.packageID,
		PackageName: "VIP 12 Months",
		Amount:      999000,
		Status:      models.OrderStatusAwaitingConfirmation,
	}
	pkg := &models.MembershipPackage{
		ID:             suite.packageID,
		Name:           "VIP 12 Months",
		Tier:           models.TierVIP,
		Price:          999000,
		DurationMonths: 12,
	}

	var confirmedAt time.Time
	suite.orderRepo.On("GetByIDTx", suite.context, mock.Anything, suite.businessID, suite.orderID).Return(order, nil)
	suite.orderRepo.On("CompleteTx", suite.context, mock.Anything, suite.businessID, suite.orderID, mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			confirmedAt = args.Get(4).(time.Time)
		}).Return(true, nil)
	suite.businessRepo.On("GetForUpdateTx", suite.context, mock.Anything, suite.businessID).Return(business, nil)
	suite.packageRepo.On("GetByIDTx", suite.context, mock.Anything, suite.packageID).Return(pkg, nil)
	suite.businessRepo.On("UpdateMembershipTx", suite.context, mock.Anything, business).Return(nil)

	got, err := suite.service.Activate(suite.context, suite.businessID, suite.orderID)
	assert.NoError(suite.T(), err)

	// The paid package replaces the trial window outright.
	assert.Equal(suite.T(), models.TierVIP, got.MembershipTier)
	assert.True(suite.T(), got.IsActive)
	if assert.NotNil(suite.T(), got.MembershipExpiryDate) {
		assert.Equal(suite.T(), addCalendarMonths(confirmedAt, 12), *got.MembershipExpiryDate)
		assert.NotEqual(suite.T(), trialExpiry, *got.MembershipExpiryDate)
	}
}

func TestAddCalendarMonths_ClampsToMonthEnd(t *testing.T) {
	cases := []struct {
		name   string
		start  time.Time
		months int
		want   time.Time
	}{
		{
			name:   "jan 31 plus one month clamps to feb 28",
			start:  time.Date(2025, time.January, 31, 10, 0, 0, 0, time.UTC),
			months: 1,
			want:   time.Date(2025, time.February, 28, 10, 0, 0, 0, time.UTC),
		},
		{
			name:   "jan 31 plus one month in a leap year clamps to feb 29",
			start:  time.Date(2024, time.January, 31, 10, 0, 0, 0, time.UTC),
			months: 1,
			want:   time.Date(2024, time.February, 29, 10, 0, 0, 0, time.UTC),
		},
		{
			name:   "mar 31 plus one month clamps to apr 30",
			start:  time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
			months: 1,
			want:   time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "aug 31 plus six months clamps to feb 28",
			start:  time.Date(2025, time.August, 31, 12, 0, 0, 0, time.UTC),
			months: 6,
			want:   time.Date(2026, time.February, 28, 12, 0, 0, 0, time.UTC),
		},
		{
			name:   "mid-month plus twelve months is exact",
			start:  time.Date(2025, time.June, 15, 8, 45, 0, 0, time.UTC),
			months: 12,
			want:   time.Date(2026, time.June, 15, 8, 45, 0, 0, time.UTC),
		},
		{
			name:   "year boundary",
			start:  time.Date(2025, time.November, 30, 0, 0, 0, 0, time.UTC),
			months: 3,
			want:   time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, addCalendarMonths(tc.start, tc.months))
		})
	}
}
