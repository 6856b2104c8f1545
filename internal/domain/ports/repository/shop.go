package repository

import (
	"context"
	"time"

	"popup-shop/internal/domain/model"
)

type ShopRepository interface {
	// Create inserts a new shop. A slug collision returns domain.ErrConflict.
	Create(ctx context.Context, tx Tx, s *model.Shop) error
	// FindByID locks the row when called inside a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Shop, error)
	FindBySlug(ctx context.Context, tx Tx, slug string) (*model.Shop, error)
	// ListSlugsWithPrefix returns every stored slug equal to base or of the form base-<n>.
	ListSlugsWithPrefix(ctx context.Context, tx Tx, base string) ([]string, error)
	// CompareAndSwapActivation writes the activation fields of s only if the
	// stored (activation_status, active_until) still equal expected.
	// It reports whether the row was updated.
	CompareAndSwapActivation(ctx context.Context, tx Tx, expected model.ActivationSnapshot, s *model.Shop) (bool, error)
	// SetVerification updates the shop's verification status.
	SetVerification(ctx context.Context, tx Tx, id string, status model.VerificationStatus) error
	// ListOverdue returns active shops whose window ended at or before now.
	ListOverdue(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Shop, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.ActivationStatus]int, error)
}

type ShopActivationRepository interface {
	Save(ctx context.Context, tx Tx, a *model.ShopActivation) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.ShopActivation, error)
	ListByShop(ctx context.Context, tx Tx, shopID string, limit int) ([]*model.ShopActivation, error)
	// MarkVerified flips verification once; verifiedAt is kept from the first call.
	MarkVerified(ctx context.Context, tx Tx, id string, verifiedAt time.Time) error
}
