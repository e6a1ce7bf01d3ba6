package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/appeal-service/internal/domain"
)

// AppealMessageRepository handles persistence of appeal thread messages.
type AppealMessageRepository interface {
	Create(ctx context.Context, msg *domain.AppealMessage) error
	ListByAppeal(ctx context.Context, appealID int64) ([]domain.AppealMessage, error)
	// MarkRead flags all unread messages of one side of the
	// conversation (admin or requester) as read.
	MarkRead(ctx context.Context, appealID int64, fromAdmin bool, now time.Time) (int64, error)
}

type appealMessageRepository struct {
	db DB
}

// NewAppealMessageRepository instantiates the repository.
func NewAppealMessageRepository(db DB) AppealMessageRepository {
	return &appealMessageRepository{db: db}
}

func (r *appealMessageRepository) Create(ctx context.Context, msg *domain.AppealMessage) error {
	const query = `
        INSERT INTO appeal_messages (appeal_id, sender_id, from_admin, body, sent_at, read_flag, read_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		msg.AppealID,
		msg.SenderID,
		msg.FromAdmin,
		msg.Body,
		msg.SentAt,
		msg.Read,
		msg.ReadAt,
	).Scan(&msg.ID)
}

func (r *appealMessageRepository) ListByAppeal(ctx context.Context, appealID int64) ([]domain.AppealMessage, error) {
	const query = `
        SELECT id, appeal_id, sender_id, from_admin, body, sent_at, read_flag, read_at
        FROM appeal_messages WHERE appeal_id=$1 ORDER BY sent_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, appealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *appealMessageRepository) MarkRead(ctx context.Context, appealID int64, fromAdmin bool, now time.Time) (int64, error) {
	const query = `
        UPDATE appeal_messages SET read_flag=TRUE, read_at=$1
        WHERE appeal_id=$2 AND from_admin=$3 AND read_flag=FALSE`
	cmd, err := r.db.Exec(ctx, query, now, appealID, fromAdmin)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanMessages(rows pgx.Rows) ([]domain.AppealMessage, error) {
	var result []domain.AppealMessage
	for rows.Next() {
		var msg domain.AppealMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.AppealID,
			&msg.SenderID,
			&msg.FromAdmin,
			&msg.Body,
			&msg.SentAt,
			&msg.Read,
			&msg.ReadAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
