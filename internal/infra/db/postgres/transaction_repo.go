package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"popup-shop/internal/domain"
	"popup-shop/internal/domain/model"
	"popup-shop/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

func (r *transactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	items, err := json.Marshal(t.Items)
	if err != nil {
		return domain.ErrInvalidInput
	}
	const q = `
INSERT INTO transactions (id, shop_id, amount, reference, status, items, created_at, verified_at)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8);`
	_, err = execSQL(ctx, r.pool, tx, q,
		t.ID, t.ShopID, t.Amount, t.Reference, string(t.Status), string(items), t.CreatedAt, t.VerifiedAt,
	)
	return mapError(err)
}

func (r *transactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
	const q = `
SELECT id, shop_id, amount, reference, status, items, created_at, verified_at
  FROM transactions
 WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) ListByShop(ctx context.Context, tx repository.Tx, shopID string, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, shop_id, amount, reference, status, items, created_at, verified_at
  FROM transactions
 WHERE shop_id = $1
 ORDER BY id DESC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, shopID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, scanError(err)
	}
	return out, nil
}

// MarkVerified is unconditional: a verified row stays verified and keeps its first verified_at.
func (r *transactionRepo) MarkVerified(ctx context.Context, tx repository.Tx, id string, verifiedAt time.Time) error {
	const q = `
UPDATE transactions
   SET status = 'verified',
       verified_at = COALESCE(verified_at, $2)
 WHERE id = $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, verifiedAt)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	t := &model.Transaction{}
	var status string
	var items []byte
	if err := row.Scan(&t.ID, &t.ShopID, &t.Amount, &t.Reference, &status, &items, &t.CreatedAt, &t.VerifiedAt); err != nil {
		return nil, scanError(err)
	}
	if err := json.Unmarshal(items, &t.Items); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	t.Status = model.TransactionStatus(status)
	return t, nil
}
