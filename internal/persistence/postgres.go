package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/appeal-service/internal/config"
	apperrors "github.com/spec-kit/appeal-service/pkg/util"
)

// Postgres wraps access to a pgx connection pool.
type Postgres struct {
	Pool          *pgxpool.Pool
	txMaxAttempts int
	logger        *zap.Logger
}

// NewPostgres establishes a connection pool when DSN is provided.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	attempts := cfg.TxMaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; skipping database connection")
		return &Postgres{Pool: nil, txMaxAttempts: attempts, logger: logger}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres")
	return &Postgres{Pool: pool, txMaxAttempts: attempts, logger: logger}, nil
}

// Close releases pool resources.
func (p *Postgres) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// Ping verifies database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

// PoolHandle returns the underlying pgx pool.
func (p *Postgres) PoolHandle() *pgxpool.Pool {
	if p == nil {
		return nil
	}
	return p.Pool
}

// InTx runs fn inside a single transaction so a logical operation
// commits all-or-nothing. Serialization failures and optimistic version
// clashes are retried up to the configured attempt bound; cancellation
// is honored before each attempt.
func (p *Postgres) InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if p == nil || p.Pool == nil {
		return apperrors.NewInternalError(errors.New("postgres pool not configured"))
	}

	var lastErr error
	for attempt := 1; attempt <= p.txMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = p.runTx(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if !retryableTxError(lastErr) {
			return lastErr
		}
		p.logger.Debug("transaction conflict, retrying",
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}
	return apperrors.NewConflict("transaction conflict persisted after retries", map[string]any{
		"attempts": p.txMaxAttempts,
	})
}

func (p *Postgres) runTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func retryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return apperrors.IsCode(err, apperrors.CodeConflict)
}
