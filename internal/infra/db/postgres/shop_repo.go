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

var _ repository.ShopRepository = (*shopRepo)(nil)

type shopRepo struct {
	pool   *pgxpool.Pool
	sealer PayoutSealer
}

// PayoutSealer encrypts payout accounts before they reach the table.
type PayoutSealer interface {
	Seal(plain string) (string, error)
	Open(stored string) (string, error)
}

type ShopRepoOption func(*shopRepo)

// WithPayoutSealer stores payout_account sealed. Unsealed legacy values are read as is.
func WithPayoutSealer(s PayoutSealer) ShopRepoOption {
	return func(r *shopRepo) { r.sealer = s }
}

func NewShopRepo(pool *pgxpool.Pool, opts ...ShopRepoOption) *shopRepo {
	r := &shopRepo{pool: pool}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const shopColumns = `id, name, slug, owner_contact, payout_account, activation_status, verification_status,
       activation_plan, active_from, active_until, last_activated_at, created_email_sent_at, created_at, updated_at`

func (r *shopRepo) Create(ctx context.Context, tx repository.Tx, s *model.Shop) error {
	payout := s.PayoutAccount
	if r.sealer != nil {
		sealed, err := r.sealer.Seal(payout)
		if err != nil {
			return domain.ErrOperationFailed
		}
		payout = sealed
	}
	const q = `
INSERT INTO shops (
  id, name, slug, owner_contact, payout_account, activation_status, verification_status,
  activation_plan, active_from, active_until, last_activated_at, created_email_sent_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.Name, s.Slug, s.OwnerContact, payout, string(s.ActivationStatus), string(s.VerificationStatus),
		string(s.ActivationPlan), nullTime(s.ActiveFrom), nullTime(s.ActiveUntil), s.LastActivatedAt, s.CreatedEmailSentAt,
		s.CreatedAt, s.UpdatedAt,
	)
	return mapError(err)
}

func (r *shopRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Shop, error) {
	q := `SELECT ` + shopColumns + ` FROM shops WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	return r.queryOne(ctx, tx, q, id)
}

func (r *shopRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Shop, error) {
	q := `SELECT ` + shopColumns + ` FROM shops WHERE slug=$1`
	return r.queryOne(ctx, tx, q, slug)
}

// ListSlugsWithPrefix relies on slugs never containing LIKE wildcards.
func (r *shopRepo) ListSlugsWithPrefix(ctx context.Context, tx repository.Tx, base string) ([]string, error) {
	const q = `SELECT slug FROM shops WHERE slug = $1 OR slug LIKE $1 || '-%';`
	rows, err := queryRows(ctx, r.pool, tx, q, base)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, scanError(err)
	}
	return out, nil
}

func (r *shopRepo) CompareAndSwapActivation(ctx context.Context, tx repository.Tx, expected model.ActivationSnapshot, s *model.Shop) (bool, error) {
	const q = `
UPDATE shops
   SET activation_status = $2,
       verification_status = $3,
       activation_plan = $4,
       active_from = $5,
       active_until = $6,
       last_activated_at = $7,
       created_email_sent_at = $8,
       updated_at = $9
 WHERE id = $1
   AND activation_status = $10
   AND active_until IS NOT DISTINCT FROM $11::timestamptz;`

	cmd, err := execSQL(ctx, r.pool, tx, q,
		s.ID, string(s.ActivationStatus), string(s.VerificationStatus), string(s.ActivationPlan),
		nullTime(s.ActiveFrom), nullTime(s.ActiveUntil), s.LastActivatedAt, s.CreatedEmailSentAt, s.UpdatedAt,
		string(expected.Status), nullTime(expected.ActiveUntil),
	)
	if err != nil {
		return false, mapError(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *shopRepo) SetVerification(ctx context.Context, tx repository.Tx, id string, status model.VerificationStatus) error {
	const q = `UPDATE shops SET verification_status=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status))
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *shopRepo) ListOverdue(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Shop, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + shopColumns + `
  FROM shops
 WHERE activation_status = 'active'
   AND active_until <= $1
 ORDER BY active_until ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var out []*model.Shop
	for rows.Next() {
		s, err := r.scanShop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, scanError(err)
	}
	return out, nil
}

func (r *shopRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.ActivationStatus]int, error) {
	const q = `SELECT activation_status, COUNT(*) FROM shops GROUP BY activation_status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	counts := make(map[model.ActivationStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		counts[model.ActivationStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, scanError(err)
	}
	return counts, nil
}

func (r *shopRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.Shop, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	return r.scanShop(row)
}

func (r *shopRepo) scanShop(row pgx.Row) (*model.Shop, error) {
	s := &model.Shop{}
	var status, verification, plan string
	var from, until *time.Time
	err := row.Scan(&s.ID, &s.Name, &s.Slug, &s.OwnerContact, &s.PayoutAccount, &status, &verification,
		&plan, &from, &until, &s.LastActivatedAt, &s.CreatedEmailSentAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, scanError(err)
	}
	s.ActivationStatus = model.ActivationStatus(status)
	s.VerificationStatus = model.VerificationStatus(verification)
	s.ActivationPlan = model.ActivationPlan(plan)
	s.ActiveFrom = fromNull(from)
	s.ActiveUntil = fromNull(until)
	if r.sealer != nil {
		plain, err := r.sealer.Open(s.PayoutAccount)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		s.PayoutAccount = plain
	}
	return s, nil
}

// nullTime maps the zero instant to SQL NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func fromNull(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
