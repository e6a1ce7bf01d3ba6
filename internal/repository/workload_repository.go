package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/appeal-service/internal/domain"
	apperrors "github.com/spec-kit/appeal-service/pkg/util"
)

// WorkloadRepository handles persistence for admin workload counters.
// Save performs an optimistic version check; a clash surfaces as a
// CONFLICT error the unit-of-work retries.
type WorkloadRepository interface {
	Create(ctx context.Context, workload *domain.AdminWorkload) error
	Save(ctx context.Context, workload *domain.AdminWorkload) error
	GetByAdminID(ctx context.Context, adminID int64) (*domain.AdminWorkload, error)
	// ListAvailable returns available admins ordered by lowest active
	// count first, warmest activity breaking ties.
	ListAvailable(ctx context.Context) ([]domain.AdminWorkload, error)
	ListAll(ctx context.Context) ([]domain.AdminWorkload, error)
}

type workloadRepository struct {
	db DB
}

// NewWorkloadRepository instantiates the repository.
func NewWorkloadRepository(db DB) WorkloadRepository {
	return &workloadRepository{db: db}
}

const workloadColumns = `admin_id, active_appeals, total_appeals, available_flag,
               last_assigned_at, last_activity_at, version, created_at, updated_at`

func (r *workloadRepository) Create(ctx context.Context, workload *domain.AdminWorkload) error {
	const query = `
        INSERT INTO admin_workloads (admin_id, active_appeals, total_appeals, available_flag,
                                     last_assigned_at, last_activity_at, version, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,0,$7,$8)`
	_, err := r.db.Exec(ctx, query,
		workload.AdminID,
		workload.ActiveAppeals,
		workload.TotalAppeals,
		workload.Available,
		workload.LastAssignedAt,
		workload.LastActivityAt,
		workload.CreatedAt,
		workload.UpdatedAt,
	)
	if err == nil {
		workload.Version = 0
	}
	return err
}

func (r *workloadRepository) Save(ctx context.Context, workload *domain.AdminWorkload) error {
	const query = `
        UPDATE admin_workloads
        SET active_appeals=$1, total_appeals=$2, available_flag=$3, last_assigned_at=$4,
            last_activity_at=$5, version=version+1, updated_at=$6
        WHERE admin_id=$7 AND version=$8`
	cmd, err := r.db.Exec(ctx, query,
		workload.ActiveAppeals,
		workload.TotalAppeals,
		workload.Available,
		workload.LastAssignedAt,
		workload.LastActivityAt,
		workload.UpdatedAt,
		workload.AdminID,
		workload.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewConflict("workload version conflict", map[string]any{
			"admin_id": workload.AdminID,
			"version":  workload.Version,
		})
	}
	workload.Version++
	return nil
}

func (r *workloadRepository) GetByAdminID(ctx context.Context, adminID int64) (*domain.AdminWorkload, error) {
	query := "SELECT " + workloadColumns + " FROM admin_workloads WHERE admin_id=$1"
	var workload domain.AdminWorkload
	if err := scanWorkload(r.db.QueryRow(ctx, query, adminID), &workload); err != nil {
		return nil, err
	}
	return &workload, nil
}

func (r *workloadRepository) ListAvailable(ctx context.Context) ([]domain.AdminWorkload, error) {
	query := `SELECT ` + workloadColumns + ` FROM admin_workloads
        WHERE available_flag=TRUE
        ORDER BY active_appeals ASC, last_activity_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkloads(rows)
}

func (r *workloadRepository) ListAll(ctx context.Context) ([]domain.AdminWorkload, error) {
	query := "SELECT " + workloadColumns + " FROM admin_workloads ORDER BY admin_id ASC"
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkloads(rows)
}

func scanWorkload(row pgx.Row, workload *domain.AdminWorkload) error {
	return row.Scan(
		&workload.AdminID,
		&workload.ActiveAppeals,
		&workload.TotalAppeals,
		&workload.Available,
		&workload.LastAssignedAt,
		&workload.LastActivityAt,
		&workload.Version,
		&workload.CreatedAt,
		&workload.UpdatedAt,
	)
}

func scanWorkloads(rows pgx.Rows) ([]domain.AdminWorkload, error) {
	var result []domain.AdminWorkload
	for rows.Next() {
		var workload domain.AdminWorkload
		if err := scanWorkload(rows, &workload); err != nil {
			return nil, err
		}
		result = append(result, workload)
	}
	return result, rows.Err()
}
