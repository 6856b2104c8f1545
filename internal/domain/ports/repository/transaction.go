package repository

import (
	"context"
	"time"

	"popup-shop/internal/domain/model"
)

type TransactionRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Transaction) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Transaction, error)
	ListByShop(ctx context.Context, tx Tx, shopID string, limit int) ([]*model.Transaction, error)
	// MarkVerified sets status=verified. Returns domain.ErrNotFound if no such row.
	MarkVerified(ctx context.Context, tx Tx, id string, verifiedAt time.Time) error
}
