package repositories

import (
	"context"
	"time"

	"glowdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, businessID, id uuid.UUID) (*models.Order, error)
	ListByBusiness(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*models.Order, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.Order, error)
	SetPaymentProofURL(ctx context.Context, businessID, id uuid.UUID, url string) (bool, error)
	Reject(ctx context.Context, businessID, id uuid.UUID, notes *string) (bool, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, businessID, id uuid.UUID) (*models.Order, error)
	CompleteTx(ctx context.Context, tx pgx.Tx, businessID, id uuid.UUID, confirmedAt time.Time) (bool, error)
}

type orderRepo struct {
	db DB
}

func NewOrderRepo(db DB) OrderRepository {
	return &orderRepo{db: db}
}

const orderColumns = `id, business_id, package_id, package_name, amount, status, payment_method, payment_proof_url, notes, submitted_at, confirmed_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(&order.ID, &order.BusinessID, &order.PackageID, &order.PackageName, &order.Amount, &order.Status, &order.PaymentMethod, &order.PaymentProofURL, &order.Notes, &order.SubmittedAt, &order.ConfirmedAt, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, business_id, package_id, package_name, amount, status, payment_method, payment_proof_url, notes, submitted_at, confirmed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, order.ID, order.BusinessID, order.PackageID, order.PackageName, order.Amount, order.Status, order.PaymentMethod, order.PaymentProofURL, order.Notes, order.SubmittedAt)
	return err
}

func (r *orderRepo) GetByID(ctx context.Context, businessID, id uuid.UUID) (*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE business_id = $1 AND id = $2
	`
	return scanOrder(r.db.QueryRow(ctx, query, businessID, id))
}

func (r *orderRepo) ListByBusiness(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE business_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, businessID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *orderRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1
		ORDER BY submitted_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// SetPaymentProofURL attaches a proof URL to an order still awaiting
// confirmation. Terminal orders are left untouched; the bool reports whether
// a row was written.
func (r *orderRepo) SetPaymentProofURL(ctx context.Context, businessID, id uuid.UUID, url string) (bool, error) {
	query := `
		UPDATE orders
		SET payment_proof_url = $1, updated_at = NOW()
		WHERE business_id = $2 AND id = $3 AND status IN ($4, $5)
	`
	tag, err := r.db.Exec(ctx, query, url, businessID, id, models.OrderStatusPending, models.OrderStatusAwaitingConfirmation)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Reject moves a non-terminal order to rejected. Terminal statuses stay
// sticky: the conditional WHERE means a completed or already-rejected order
// reports false instead of transitioning.
func (r *orderRepo) Reject(ctx context.Context, businessID, id uuid.UUID, notes *string) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, notes = COALESCE($2, notes), updated_at = NOW()
		WHERE business_id = $3 AND id = $4 AND status IN ($5, $6)
	`
	tag, err := r.db.Exec(ctx, query, models.OrderStatusRejected, notes, businessID, id, models.OrderStatusPending, models.OrderStatusAwaitingConfirmation)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *orderRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, businessID, id uuid.UUID) (*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE business_id = $1 AND id = $2
		FOR UPDATE
	`
	return scanOrder(tx.QueryRow(ctx, query, businessID, id))
}

// CompleteTx flips a non-terminal order to completed and stamps confirmed_at,
// inside the caller's transaction. confirmed_at is set if and only if the
// transition happens.
func (r *orderRepo) CompleteTx(ctx context.Context, tx pgx.Tx, businessID, id uuid.UUID, confirmedAt time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, confirmed_at = $2, updated_at = NOW()
		WHERE business_id = $3 AND id = $4 AND status IN ($5, $6)
	`
	tag, err := tx.Exec(ctx, query, models.OrderStatusCompleted, confirmedAt, businessID, id, models.OrderStatusPending, models.OrderStatusAwaitingConfirmation)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func collectOrders(rows pgx.Rows) ([]*models.Order, error) {
	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(&order.ID, &order.BusinessID, &order.PackageID, &order.PackageName, &order.Amount, &order.Status, &order.PaymentMethod, &order.PaymentProofURL, &order.Notes, &order.SubmittedAt, &order.ConfirmedAt, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
