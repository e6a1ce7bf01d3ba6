package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/appeal-service/internal/domain"
)

// AppealFilter captures listing parameters.
type AppealFilter struct {
	RequesterID *int64
	AdminID     *int64
	Unassigned  bool
	Statuses    []domain.AppealStatus
	Categories  []domain.AppealCategory
	Limit       int
	Offset      int
}

// AppealRepository encapsulates appeal persistence.
type AppealRepository interface {
	Create(ctx context.Context, appeal *domain.Appeal) error
	Update(ctx context.Context, appeal *domain.Appeal) error
	GetByID(ctx context.Context, id int64) (*domain.Appeal, error)
	ListWithFilter(ctx context.Context, filter AppealFilter) ([]domain.Appeal, error)
	// ListOverdue returns non-closed, non-escalated appeals whose
	// updated_at is older than cutoff.
	ListOverdue(ctx context.Context, cutoff time.Time, limit int) ([]domain.Appeal, error)
	// CountActiveByCategory counts non-closed appeals per category.
	CountActiveByCategory(ctx context.Context) (map[domain.AppealCategory]int, error)
}

type appealRepository struct {
	db DB
}

// NewAppealRepository instantiates repository.
func NewAppealRepository(db DB) AppealRepository {
	return &appealRepository{db: db}
}

const appealColumns = `id, requester_id, requester_name, category, subject, body, status, priority,
               assigned_admin_id, created_at, updated_at, first_response_at, closed_at, closed_by, closed_reason`

func (r *appealRepository) Create(ctx context.Context, appeal *domain.Appeal) error {
	const query = `
        INSERT INTO appeals (requester_id, requester_name, category, subject, body, status, priority,
                             assigned_admin_id, created_at, updated_at, first_response_at, closed_at, closed_by, closed_reason)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		appeal.RequesterID,
		appeal.RequesterName,
		appeal.Category,
		appeal.Subject,
		appeal.Body,
		appeal.Status,
		appeal.Priority,
		appeal.AssignedAdminID,
		appeal.CreatedAt,
		appeal.UpdatedAt,
		appeal.FirstResponseAt,
		appeal.ClosedAt,
		appeal.ClosedBy,
		appeal.ClosedReason,
	).Scan(&appeal.ID)
}

func (r *appealRepository) Update(ctx context.Context, appeal *domain.Appeal) error {
	const query = `
        UPDATE appeals SET category=$1, subject=$2, status=$3, priority=$4, assigned_admin_id=$5,
            updated_at=$6, first_response_at=$7, closed_at=$8, closed_by=$9, closed_reason=$10
        WHERE id=$11`
	cmd, err := r.db.Exec(ctx, query,
		appeal.Category,
		appeal.Subject,
		appeal.Status,
		appeal.Priority,
		appeal.AssignedAdminID,
		appeal.UpdatedAt,
		appeal.FirstResponseAt,
		appeal.ClosedAt,
		appeal.ClosedBy,
		appeal.ClosedReason,
		appeal.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *appealRepository) GetByID(ctx context.Context, id int64) (*domain.Appeal, error) {
	query := fmt.Sprintf("SELECT %s FROM appeals WHERE id=$1", appealColumns)
	var appeal domain.Appeal
	if err := scanAppeal(r.db.QueryRow(ctx, query, id), &appeal); err != nil {
		return nil, err
	}
	return &appeal, nil
}

func (r *appealRepository) ListWithFilter(ctx context.Context, filter AppealFilter) ([]domain.Appeal, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.AdminID != nil {
		args = append(args, *filter.AdminID)
		clauses = append(clauses, fmt.Sprintf("assigned_admin_id=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "assigned_admin_id IS NULL")
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("SELECT %s FROM appeals WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d",
		appealColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppeals(rows)
}

func (r *appealRepository) ListOverdue(ctx context.Context, cutoff time.Time, limit int) ([]domain.Appeal, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`SELECT %s FROM appeals
        WHERE status NOT IN ($1, $2) AND updated_at < $3
        ORDER BY updated_at ASC LIMIT %d`, appealColumns, limit)

	rows, err := r.db.Query(ctx, query, domain.AppealStatusClosed, domain.AppealStatusEscalated, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppeals(rows)
}

func (r *appealRepository) CountActiveByCategory(ctx context.Context) (map[domain.AppealCategory]int, error) {
	const query = `
        SELECT category, COUNT(*) FROM appeals
        WHERE status <> $1 GROUP BY category`
	rows, err := r.db.Query(ctx, query, domain.AppealStatusClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.AppealCategory]int)
	for rows.Next() {
		var category domain.AppealCategory
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		result[category] = count
	}
	return result, rows.Err()
}

func scanAppeal(row pgx.Row, appeal *domain.Appeal) error {
	return row.Scan(
		&appeal.ID,
		&appeal.RequesterID,
		&appeal.RequesterName,
		&appeal.Category,
		&appeal.Subject,
		&appeal.Body,
		&appeal.Status,
		&appeal.Priority,
		&appeal.AssignedAdminID,
		&appeal.CreatedAt,
		&appeal.UpdatedAt,
		&appeal.FirstResponseAt,
		&appeal.ClosedAt,
		&appeal.ClosedBy,
		&appeal.ClosedReason,
	)
}

func scanAppeals(rows pgx.Rows) ([]domain.Appeal, error) {
	var result []domain.Appeal
	for rows.Next() {
		var appeal domain.Appeal
		if err := scanAppeal(rows, &appeal); err != nil {
			return nil, err
		}
		result = append(result, appeal)
	}
	return result, rows.Err()
}
