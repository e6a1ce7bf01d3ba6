package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/appeal-service/internal/domain"
)

// ExpertiseRepository handles persistence for per-category expertise
// records.
type ExpertiseRepository interface {
	Create(ctx context.Context, expertise *domain.AdminCategoryExpertise) error
	Save(ctx context.Context, expertise *domain.AdminCategoryExpertise) error
	GetByAdminAndCategory(ctx context.Context, adminID int64, category domain.AppealCategory) (*domain.AdminCategoryExpertise, error)
	ListByAdmin(ctx context.Context, adminID int64) ([]domain.AdminCategoryExpertise, error)
	ListByCategory(ctx context.Context, category domain.AppealCategory) ([]domain.AdminCategoryExpertise, error)
}

type expertiseRepository struct {
	db DB
}

// NewExpertiseRepository instantiates the repository.
func NewExpertiseRepository(db DB) ExpertiseRepository {
	return &expertiseRepository{db: db}
}

const expertiseColumns = `admin_id, category, experience_level, successful_resolutions,
               total_resolutions, created_at, updated_at`

func (r *expertiseRepository) Create(ctx context.Context, expertise *domain.AdminCategoryExpertise) error {
	const query = `
        INSERT INTO admin_category_expertise (admin_id, category, experience_level,
                                              successful_resolutions, total_resolutions, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.Exec(ctx, query,
		expertise.AdminID,
		expertise.Category,
		expertise.ExperienceLevel,
		expertise.SuccessfulResolutions,
		expertise.TotalResolutions,
		expertise.CreatedAt,
		expertise.UpdatedAt,
	)
	return err
}

func (r *expertiseRepository) Save(ctx context.Context, expertise *domain.AdminCategoryExpertise) error {
	const query = `
        UPDATE admin_category_expertise
        SET experience_level=$1, successful_resolutions=$2, total_resolutions=$3, updated_at=$4
        WHERE admin_id=$5 AND category=$6`
	cmd, err := r.db.Exec(ctx, query,
		expertise.ExperienceLevel,
		expertise.SuccessfulResolutions,
		expertise.TotalResolutions,
		expertise.UpdatedAt,
		expertise.AdminID,
		expertise.Category,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *expertiseRepository) GetByAdminAndCategory(ctx context.Context, adminID int64, category domain.AppealCategory) (*domain.AdminCategoryExpertise, error) {
	query := "SELECT " + expertiseColumns + " FROM admin_category_expertise WHERE admin_id=$1 AND category=$2"
	var expertise domain.AdminCategoryExpertise
	if err := scanExpertise(r.db.QueryRow(ctx, query, adminID, category), &expertise); err != nil {
		return nil, err
	}
	return &expertise, nil
}

func (r *expertiseRepository) ListByAdmin(ctx context.Context, adminID int64) ([]domain.AdminCategoryExpertise, error) {
	query := "SELECT " + expertiseColumns + " FROM admin_category_expertise WHERE admin_id=$1 ORDER BY category"
	rows, err := r.db.Query(ctx, query, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExpertiseRows(rows)
}

func (r *expertiseRepository) ListByCategory(ctx context.Context, category domain.AppealCategory) ([]domain.AdminCategoryExpertise, error) {
	query := "SELECT " + expertiseColumns + " FROM admin_category_expertise WHERE category=$1 ORDER BY admin_id"
	rows, err := r.db.Query(ctx, query, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExpertiseRows(rows)
}

func scanExpertise(row pgx.Row, expertise *domain.AdminCategoryExpertise) error {
	return row.Scan(
		&expertise.AdminID,
		&expertise.Category,
		&expertise.ExperienceLevel,
		&expertise.SuccessfulResolutions,
		&expertise.TotalResolutions,
		&expertise.CreatedAt,
		&expertise.UpdatedAt,
	)
}

func scanExpertiseRows(rows pgx.Rows) ([]domain.AdminCategoryExpertise, error) {
	var result []domain.AdminCategoryExpertise
	for rows.Next() {
		var expertise domain.AdminCategoryExpertise
		if err := scanExpertise(rows, &expertise); err != nil {
			return nil, err
		}
		result = append(result, expertise)
	}
	return result, rows.Err()
}
