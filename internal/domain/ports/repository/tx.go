package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an infra-defined transaction handle (pgx.Tx for Postgres).
// Repositories must accept nil and fall back to a non-transactional path.
type Tx interface{}

var NoTX Tx

// TransactionManager runs fn inside one storage transaction. If fn returns
// an error the transaction is rolled back, otherwise committed.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
