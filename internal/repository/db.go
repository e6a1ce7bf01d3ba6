package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so every
// repository can run either standalone or inside a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles all repositories bound to one database handle. A Store
// built over a transaction gives a logical operation its atomic
// read-modify-write boundary.
type Store struct {
	Appeals   AppealRepository
	Messages  AppealMessageRepository
	Workloads WorkloadRepository
	Expertise ExpertiseRepository
	Admins    AdminRepository
	History   AppealHistoryRepository
}

// NewStore builds pgx-backed repositories over db.
func NewStore(db DB) *Store {
	return &Store{
		Appeals:   NewAppealRepository(db),
		Messages:  NewAppealMessageRepository(db),
		Workloads: NewWorkloadRepository(db),
		Expertise: NewExpertiseRepository(db),
		Admins:    NewAdminRepository(db),
		History:   NewAppealHistoryRepository(db),
	}
}

// UnitOfWork runs a function against a Store inside one transaction.
// Implementations retry bounded-many times on serialization or
// optimistic-version conflicts and never commit partial mutations.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, store *Store) error) error
}
