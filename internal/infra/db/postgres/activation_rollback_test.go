//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"popup-shop/internal/domain"
	"popup-shop/internal/domain/model"
	"popup-shop/internal/domain/ports/repository"
	"popup-shop/internal/usecase"
)

// failingActivationRepo writes through to the real table and then fails,
// so the rollback has to undo a row the transaction already inserted.
type failingActivationRepo struct {
	repository.ShopActivationRepository
}

func (r failingActivationRepo) Save(ctx context.Context, tx repository.Tx, a *model.ShopActivation) error {
	if err := r.ShopActivationRepository.Save(ctx, tx, a); err != nil {
		return err
	}
	return domain.ErrOperationFailed
}

type nopScheduler struct{ calls int }

func (s *nopScheduler) ScheduleExpiry(context.Context, model.ExpiryJob) error {
	s.calls++
	return nil
}

type nopNotifier struct{}

func (nopNotifier) SendWelcome(context.Context, *model.Shop) error { return nil }

func TestActivate_FailedAuditRollsBack(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	shops := NewShopRepo(testPool)
	s := createTestShop(t, shops, "Rollback", "rollback")

	logger := zerolog.Nop()
	sched := &nopScheduler{}
	uc := usecase.NewActivationUseCase(shops, failingActivationRepo{NewActivationRepo(testPool)},
		NewTxManager(testPool), sched, nopNotifier{}, &logger)

	_, err := uc.Activate(ctx, s.ID, model.PlanEvent)
	if !errors.Is(err, domain.ErrOperationFailed) {
		t.Fatalf("expected ErrOperationFailed, got %v", err)
	}

	got, err := shops.FindByID(ctx, repository.NoTX, s.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.ActivationStatus != model.ActivationStatusInactive || !got.ActiveUntil.IsZero() || got.CreatedEmailSentAt != nil {
		t.Fatalf("shop changed by a failed activation: %+v", got)
	}

	var rows int
	if err := testPool.QueryRow(ctx, `SELECT COUNT(*) FROM shop_activations WHERE shop_id = $1`, s.ID).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected no shop_activations rows, got %d", rows)
	}
	if sched.calls != 0 {
		t.Fatalf("expected no expiry job, got %d", sched.calls)
	}
}
