package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"popup-shop/internal/domain"
	"popup-shop/internal/domain/model"
	"popup-shop/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.ShopActivationRepository = (*activationRepo)(nil)

type activationRepo struct {
	pool *pgxpool.Pool
}

func NewActivationRepo(pool *pgxpool.Pool) *activationRepo {
	return &activationRepo{pool: pool}
}

// Save inserts the audit row. Activations are never upserted.
func (r *activationRepo) Save(ctx context.Context, tx repository.Tx, a *model.ShopActivation) error {
	const q = `
INSERT INTO shop_activations (id, shop_id, plan, amount, message, active_from, active_until, verification_status, verified_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`
	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.ShopID, string(a.Plan), a.Amount, a.Message, a.ActiveFrom, a.ActiveUntil,
		string(a.VerificationStatus), a.VerifiedAt, a.CreatedAt,
	)
	return mapError(err)
}

func (r *activationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ShopActivation, error) {
	q := `
SELECT id, shop_id, plan, amount, message, active_from, active_until, verification_status, verified_at, created_at
  FROM shop_activations
 WHERE id = $1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanActivation(row)
}

func (r *activationRepo) ListByShop(ctx context.Context, tx repository.Tx, shopID string, limit int) ([]*model.ShopActivation, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, shop_id, plan, amount, message, active_from, active_until, verification_status, verified_at, created_at
  FROM shop_activations
 WHERE shop_id = $1
 ORDER BY created_at DESC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, shopID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var out []*model.ShopActivation
	for rows.Next() {
		a, err := scanActivation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, scanError(err)
	}
	return out, nil
}

func (r *activationRepo) MarkVerified(ctx context.Context, tx repository.Tx, id string, verifiedAt time.Time) error {
	const q = `
UPDATE shop_activations
   SET verification_status = 'verified',
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

func scanActivation(row pgx.Row) (*model.ShopActivation, error) {
	a := &model.ShopActivation{}
	var plan, verification string
	if err := row.Scan(&a.ID, &a.ShopID, &plan, &a.Amount, &a.Message, &a.ActiveFrom, &a.ActiveUntil,
		&verification, &a.VerifiedAt, &a.CreatedAt); err != nil {
		return nil, scanError(err)
	}
	a.Plan = model.ActivationPlan(plan)
	a.VerificationStatus = model.VerificationStatus(verification)
	return a, nil
}
