package repositories

import (
	"context"
	"errors"
	"time"

	"glowdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repositories use. Tests substitute a
// pgxmock pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrVersionConflict is returned when an update carries a version that no
// longer matches the stored row.
var ErrVersionConflict = errors.New("business version conflict")

type BusinessRepository interface {
	Create(ctx context.Context, business *models.Business) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Business, error)
	GetBySlug(ctx context.Context, slug string) (*models.Business, error)
	Update(ctx context.Context, business *models.Business) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Business, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time, limit int) ([]*models.Business, error)
	ListExpiredPremium(ctx context.Context, asOf time.Time, limit int) ([]*models.Business, error)
	SetExpiryNotified(ctx context.Context, id uuid.UUID, at time.Time) error
	GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Business, error)
	UpdateMembershipTx(ctx context.Context, tx pgx.Tx, business *models.Business) error
}

type businessRepo struct {
	db DB
}

func NewBusinessRepo(db DB) BusinessRepository {
	return &businessRepo{db: db}
}

const businessColumns = `id, name, slug, owner_email, membership_tier, membership_expiry_date, is_active, expiry_notified_at, version, created_at, updated_at`

func scanBusiness(row pgx.Row) (*models.Business, error) {
	business := &models.Business{}
	err := row.Scan(&business.ID, &business.Name, &business.Slug, &business.OwnerEmail, &business.MembershipTier, &business.MembershipExpiryDate, &business.IsActive, &business.ExpiryNotifiedAt, &business.Version, &business.CreatedAt, &business.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return business, nil
}

func (r *businessRepo) Create(ctx context.Context, business *models.Business) error {
	query := `
		INSERT INTO businesses (id, name, slug, owner_email, membership_tier, membership_expiry_date, is_active, expiry_notified_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, business.ID, business.Name, business.Slug, business.OwnerEmail, business.MembershipTier, business.MembershipExpiryDate, business.IsActive, business.ExpiryNotifiedAt)
	if err != nil {
		return err
	}
	business.Version = 1
	return nil
}

func (r *businessRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	query := `
		SELECT ` + businessColumns + `
		FROM businesses
		WHERE id = $1
	`
	return scanBusiness(r.db.QueryRow(ctx, query, id))
}

func (r *businessRepo) GetBySlug(ctx context.Context, slug string) (*models.Business, error) {
	query := `
		SELECT ` + businessColumns + `
		FROM businesses
		WHERE slug = $1
	`
	return scanBusiness(r.db.QueryRow(ctx, query, slug))
}

// Update writes the full row conditionally on the version the caller read.
// Zero rows affected means a concurrent writer got there first.
func (r *businessRepo) Update(ctx context.Context, business *models.Business) error {
	query := `
		UPDATE businesses
		SET name = $1, slug = $2, owner_email = $3, membership_tier = $4, membership_expiry_date = $5, is_active = $6, expiry_notified_at = $7, version = version + 1, updated_at = NOW()
		WHERE id = $8 AND version = $9
	`
	tag, err := r.db.Exec(ctx, query, business.Name, business.Slug, business.OwnerEmail, business.MembershipTier, business.MembershipExpiryDate, business.IsActive, business.ExpiryNotifiedAt, business.ID, business.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	business.Version++
	return nil
}

func (r *businessRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM businesses WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *businessRepo) List(ctx context.Context, limit, offset int) ([]*models.Business, error) {
	query := `
		SELECT ` + businessColumns + `
		FROM businesses
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBusinesses(rows)
}

// ListExpiringBetween returns premium businesses whose expiry falls inside
// the window and that have not yet been warned.
func (r *businessRepo) ListExpiringBetween(ctx context.Context, from, to time.Time, limit int) ([]*models.Business, error) {
	query := `
		SELECT ` + businessColumns + `
		FROM businesses
		WHERE membership_tier = $1
		  AND membership_expiry_date IS NOT NULL
		  AND membership_expiry_date > $2
		  AND membership_expiry_date <= $3
		  AND expiry_notified_at IS NULL
		ORDER BY membership_expiry_date ASC
		LIMIT $4
	`
	rows, err := r.db.Query(ctx, query, models.TierPremium, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBusinesses(rows)
}

func (r *businessRepo) ListExpiredPremium(ctx context.Context, asOf time.Time, limit int) ([]*models.Business, error) {
	query := `
		SELECT ` + businessColumns + `
		FROM businesses
		WHERE membership_tier = $1
		  AND membership_expiry_date IS NOT NULL
		  AND membership_expiry_date < $2
		ORDER BY membership_expiry_date ASC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, models.TierPremium, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBusinesses(rows)
}

func (r *businessRepo) SetExpiryNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE businesses
		SET expiry_notified_at = $1, updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, at, id)
	return err
}

// GetForUpdateTx locks the business row for the duration of the transaction.
func (r *businessRepo) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Business, error) {
	query := `
		SELECT ` + businessColumns + `
		FROM businesses
		WHERE id = $1
		FOR UPDATE
	`
	return scanBusiness(tx.QueryRow(ctx, query, id))
}

func (r *businessRepo) UpdateMembershipTx(ctx context.Context, tx pgx.Tx, business *models.Business) error {
	query := `
		UPDATE businesses
		SET membership_tier = $1, membership_expiry_date = $2, is_active = $3, expiry_notified_at = $4, version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6
	`
	tag, err := tx.Exec(ctx, query, business.MembershipTier, business.MembershipExpiryDate, business.IsActive, business.ExpiryNotifiedAt, business.ID, business.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	business.Version++
	return nil
}

func collectBusinesses(rows pgx.Rows) ([]*models.Business, error) {
	var businesses []*models.Business
	for rows.Next() {
		business := &models.Business{}
		if err := rows.Scan(&business.ID, &business.Name, &business.Slug, &business.OwnerEmail, &business.MembershipTier, &business.MembershipExpiryDate, &business.IsActive, &business.ExpiryNotifiedAt, &business.Version, &business.CreatedAt, &business.UpdatedAt); err != nil {
			return nil, err
		}
		businesses = append(businesses, business)
	}
	return businesses, rows.Err()
}
