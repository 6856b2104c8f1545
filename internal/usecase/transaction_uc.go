package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"popup-shop/internal/domain"
	"popup-shop/internal/domain/model"
	"popup-shop/internal/domain/ports/repository"
	"popup-shop/internal/infra/metrics"
)

// Compile-time check
var _ TransactionUseCase = (*transactionUC)(nil)

type TransactionUseCase interface {
	// Create records a pending checkout. Amount positivity is the caller's job.
	Create(ctx context.Context, shopID string, amount int64, reference string, items []model.TransactionItem) (string, error)
	// Verify marks a transaction verified. Verifying twice is not an error.
	Verify(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Transaction, error)
	ListByShop(ctx context.Context, shopID string, limit int) ([]*model.Transaction, error)
}

type transactionUC struct {
	txs repository.TransactionRepository
	now func() time.Time
	log *zerolog.Logger
}

func NewTransactionUseCase(txs repository.TransactionRepository, logger *zerolog.Logger) *transactionUC {
	compLog := logger.With().Str("component", "TransactionUC").Logger()
	return &transactionUC{txs: txs, now: time.Now, log: &compLog}
}

func (u *transactionUC) Create(ctx context.Context, shopID string, amount int64, reference string, items []model.TransactionItem) (string, error) {
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" || it.Quantity <= 0 {
			return "", domain.ErrInvalidInput
		}
	}
	if _, err := model.Total(items); err != nil {
		return "", err
	}
	t, err := model.NewTransaction(shopID, amount, reference, items)
	if err != nil {
		return "", err
	}
	if err := u.txs.Save(ctx, repository.NoTX, t); err != nil {
		return "", err
	}
	metrics.IncTransaction(string(model.TransactionStatusPending))
	metrics.AddLedgerAmount("checkout", amount)
	u.log.Info().Str("transaction_id", t.ID).Str("shop_id", shopID).Int64("amount", amount).Msg("transaction recorded")
	return t.ID, nil
}

func (u *transactionUC) Verify(ctx context.Context, id string) error {
	if err := u.txs.MarkVerified(ctx, repository.NoTX, id, model.Millis(u.now())); err != nil {
		return err
	}
	metrics.IncTransaction(string(model.TransactionStatusVerified))
	u.log.Info().Str("transaction_id", id).Msg("transaction verified")
	return nil
}

func (u *transactionUC) Get(ctx context.Context, id string) (*model.Transaction, error) {
	return u.txs.FindByID(ctx, repository.NoTX, id)
}

func (u *transactionUC) ListByShop(ctx context.Context, shopID string, limit int) ([]*model.Transaction, error) {
	return u.txs.ListByShop(ctx, repository.NoTX, shopID, limit)
}
