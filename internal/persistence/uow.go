package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/appeal-service/internal/repository"
)

// pgUnitOfWork implements repository.UnitOfWork on top of Postgres.InTx.
type pgUnitOfWork struct {
	pg *Postgres
}

// NewUnitOfWork wraps the pool in a transactional unit-of-work.
func NewUnitOfWork(pg *Postgres) repository.UnitOfWork {
	return &pgUnitOfWork{pg: pg}
}

func (u *pgUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, store *repository.Store) error) error {
	return u.pg.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, repository.NewStore(tx))
	})
}
