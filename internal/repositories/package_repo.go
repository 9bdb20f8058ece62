package repositories

import (
	"context"

	"glowdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PackageRepository reads the membership-package catalog. Packages are
// reference data; nothing in the membership workflow writes them.
type PackageRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.MembershipPackage, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.MembershipPackage, error)
	ListActive(ctx context.Context) ([]*models.MembershipPackage, error)
}

type packageRepo struct {
	db DB
}

func NewPackageRepo(db DB) PackageRepository {
	return &packageRepo{db: db}
}

const packageColumns = `id, name, tier, price, duration_months, photo_limit, video_limit, post_limit, featured, is_active, created_at, updated_at`

func scanPackage(row pgx.Row) (*models.MembershipPackage, error) {
	pkg := &models.MembershipPackage{}
	err := row.Scan(&pkg.ID, &pkg.Name, &pkg.Tier, &pkg.Price, &pkg.DurationMonths, &pkg.PhotoLimit, &pkg.VideoLimit, &pkg.PostLimit, &pkg.Featured, &pkg.IsActive, &pkg.CreatedAt, &pkg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

func (r *packageRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.MembershipPackage, error) {
	query := `
		SELECT ` + packageColumns + `
		FROM membership_packages
		WHERE id = $1
	`
	return scanPackage(r.db.QueryRow(ctx, query, id))
}

func (r *packageRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.MembershipPackage, error) {
	query := `
		SELECT ` + packageColumns + `
		FROM membership_packages
		WHERE id = $1
	`
	return scanPackage(tx.QueryRow(ctx, query, id))
}

func (r *packageRepo) ListActive(ctx context.Context) ([]*models.MembershipPackage, error) {
	query := `
		SELECT ` + packageColumns + `
		FROM membership_packages
		WHERE is_active = true
		ORDER BY price ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var packages []*models.MembershipPackage
	for rows.Next() {
		pkg := &models.MembershipPackage{}
		if err := rows.Scan(&pkg.ID, &pkg.Name, &pkg.Tier, &pkg.Price, &pkg.DurationMonths, &pkg.PhotoLimit, &pkg.VideoLimit, &pkg.PostLimit, &pkg.Featured, &pkg.IsActive, &pkg.CreatedAt, &pkg.UpdatedAt); err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	return packages, rows.Err()
}
