package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresCounterRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCounterRepository increments counters inside serializable transactions.
func NewPostgresCounterRepository(pool *pgxpool.Pool) CounterRepository {
	return &postgresCounterRepository{pool: pool}
}

func (r *postgresCounterRepository) Increment(ctx context.Context, counterID string, startValue int64) (next int64, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, classifyCounterError(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var current int64
	err = tx.QueryRow(ctx, `SELECT current_value FROM ticket_counters WHERE id=$1 FOR UPDATE`, counterID).Scan(&current)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		current = startValue - 1
	case err != nil:
		return 0, classifyCounterError(err)
	}

	next = current + 1
	const upsert = `
        INSERT INTO ticket_counters (id, current_value, start_value, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (id) DO UPDATE SET current_value = EXCLUDED.current_value, updated_at = NOW()`
	if _, err = tx.Exec(ctx, upsert, counterID, next, startValue); err != nil {
		return 0, classifyCounterError(err)
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, classifyCounterError(err)
	}
	return next, nil
}

// classifyCounterError maps serialization failures, deadlocks and the lazy
// creation race onto ErrCounterConflict.
func classifyCounterError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return fmt.Errorf("%w: %s", ErrCounterConflict, pgErr.Message)
		}
	}
	return err
}
