package permission

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tellus-gis/tellus/internal/platform/db"
)

// querier is the subset of pgx shared by pools and transactions, so the same
// store code serves both pool-level reads and transaction-bound writes.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewStores constructs the four PostgreSQL-backed permission stores.
func NewStores(pool *pgxpool.Pool) StoreSet {
	return StoreSet{
		UserInstance:  &PGUserInstanceStore{pool: pool, q: pool},
		GroupInstance: &PGGroupInstanceStore{pool: pool, q: pool},
		UserClass:     &PGUserClassStore{pool: pool, q: pool},
		GroupClass:    &PGGroupClassStore{pool: pool, q: pool},
	}
}

// PGTxRunner binds all four stores to one SERIALIZABLE transaction.
type PGTxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner constructs a PGTxRunner.
func NewTxRunner(pool *pgxpool.Pool) *PGTxRunner {
	return &PGTxRunner{pool: pool}
}

// InTx runs fn against a StoreSet bound to a single transaction.
func (r *PGTxRunner) InTx(ctx context.Context, fn func(StoreSet) error) error {
	return db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(StoreSet{
			UserInstance:  &PGUserInstanceStore{pool: r.pool, q: tx},
			GroupInstance: &PGGroupInstanceStore{pool: r.pool, q: tx},
			UserClass:     &PGUserClassStore{pool: r.pool, q: tx},
			GroupClass:    &PGGroupClassStore{pool: r.pool, q: tx},
		})
	})
}

var _ TxRunner = (*PGTxRunner)(nil)
