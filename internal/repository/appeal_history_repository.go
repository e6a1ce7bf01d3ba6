package repository

import (
	"context"

	"github.com/spec-kit/appeal-service/internal/domain"
)

// AppealHistoryRepository persists the immutable audit trail.
type AppealHistoryRepository interface {
	Create(ctx context.Context, entry *domain.AppealHistory) error
	ListByAppeal(ctx context.Context, appealID int64, limit, offset int) ([]domain.AppealHistory, error)
}

type appealHistoryRepository struct {
	db DB
}

// NewAppealHistoryRepository instantiates the repository.
func NewAppealHistoryRepository(db DB) AppealHistoryRepository {
	return &appealHistoryRepository{db: db}
}

func (r *appealHistoryRepository) Create(ctx context.Context, entry *domain.AppealHistory) error {
	const query = `
        INSERT INTO appeal_history (appeal_id, actor_id, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.AppealID,
		entry.ActorID,
		entry.ChangeType,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *appealHistoryRepository) ListByAppeal(ctx context.Context, appealID int64, limit, offset int) ([]domain.AppealHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, appeal_id, actor_id, change_type, old_value, new_value, created_at
        FROM appeal_history WHERE appeal_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, appealID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AppealHistory
	for rows.Next() {
		var entry domain.AppealHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.AppealID,
			&entry.ActorID,
			&entry.ChangeType,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
