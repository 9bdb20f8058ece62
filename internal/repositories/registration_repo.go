package repositories

import (
	"context"
	"time"

	"glowdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type RegistrationRepository interface {
	Create(ctx context.Context, request *models.RegistrationRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RegistrationRequest, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.RegistrationRequest, error)
	MarkReviewed(ctx context.Context, id uuid.UUID, status string, reviewedAt time.Time) (bool, error)
	RevertReview(ctx context.Context, id uuid.UUID) error
}

type registrationRepo struct {
	db DB
}

func NewRegistrationRepo(db DB) RegistrationRepository {
	return &registrationRepo{db: db}
}

const registrationColumns = `id, business_name, owner_name, owner_email, owner_phone, status, reviewed_at, created_at, updated_at`

func scanRegistration(row pgx.Row) (*models.RegistrationRequest, error) {
	request := &models.RegistrationRequest{}
	err := row.Scan(&request.ID, &request.BusinessName, &request.OwnerName, &request.OwnerEmail, &request.OwnerPhone, &request.Status, &request.ReviewedAt, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (r *registrationRepo) Create(ctx context.Context, request *models.RegistrationRequest) error {
	query := `
		INSERT INTO registration_requests (id, business_name, owner_name, owner_email, owner_phone, status, reviewed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, request.ID, request.BusinessName, request.OwnerName, request.OwnerEmail, request.OwnerPhone, request.Status)
	return err
}

func (r *registrationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RegistrationRequest, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registration_requests
		WHERE id = $1
	`
	return scanRegistration(r.db.QueryRow(ctx, query, id))
}

func (r *registrationRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.RegistrationRequest, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registration_requests
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*models.RegistrationRequest
	for rows.Next() {
		request := &models.RegistrationRequest{}
		if err := rows.Scan(&request.ID, &request.BusinessName, &request.OwnerName, &request.OwnerEmail, &request.OwnerPhone, &request.Status, &request.ReviewedAt, &request.CreatedAt, &request.UpdatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

// MarkReviewed flips a pending request to approved or rejected. Requests
// already reviewed report false so a double-click cannot re-run the bridge.
func (r *registrationRepo) MarkReviewed(ctx context.Context, id uuid.UUID, status string, reviewedAt time.Time) (bool, error) {
	query := `
		UPDATE registration_requests
		SET status = $1, reviewed_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, status, reviewedAt, id, models.RegistrationStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RevertReview puts a request back to pending, used by the approval saga's
// compensation path.
func (r *registrationRepo) RevertReview(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE registration_requests
		SET status = $1, reviewed_at = NULL, updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, models.RegistrationStatusPending, id)
	return err
}
