package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jsamuelsen/library-catalog/internal/adapters/storage/sqlstore"
)

// querier is what *pgxpool.Pool and pgx.Tx have in common.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// poolDB adapts a pgx pool (or one of its transactions) to sqlstore.DB.
type poolDB struct {
	pool *pgxpool.Pool
	q    querier
}

var _ sqlstore.DB = (*poolDB)(nil)

func newPoolDB(pool *pgxpool.Pool) *poolDB {
	return &poolDB{pool: pool, q: pool}
}

func (p *poolDB) Query(ctx context.Context, query string, args ...any) (sqlstore.Rows, error) {
	rows, err := p.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return pgxRows{rows}, nil
}

func (p *poolDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := p.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (p *poolDB) InTx(ctx context.Context, fn func(tx sqlstore.DB) error) (err error) {
	if _, nested := p.q.(pgx.Tx); nested {
		return fn(p)
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			// Rollback after a failed commit is a no-op.
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	if err = fn(&poolDB{pool: p.pool, q: tx}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (p *poolDB) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// pgxRows closes without an error, so Close is adapted to report Err.
type pgxRows struct {
	pgx.Rows
}

func (r pgxRows) Close() error {
	r.Rows.Close()

	return r.Rows.Err()
}
