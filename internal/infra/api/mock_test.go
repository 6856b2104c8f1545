//go:build !integration

package api

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"popup-shop/internal/domain/model"
	"popup-shop/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type mockShopUC struct {
	CreateFunc    func(ctx context.Context, name, owner, payout, slug string) (*model.Shop, error)
	GetFunc       func(ctx context.Context, id string) (*model.Shop, error)
	AdmissionFunc func(ctx context.Context, slug string) (*model.Shop, bool, error)
}

func (m *mockShopUC) Create(ctx context.Context, name, owner, payout, slug string) (*model.Shop, error) {
	return m.CreateFunc(ctx, name, owner, payout, slug)
}
func (m *mockShopUC) Get(ctx context.Context, id string) (*model.Shop, error) {
	return m.GetFunc(ctx, id)
}
func (m *mockShopUC) GetBySlug(ctx context.Context, slug string) (*model.Shop, error) {
	s, _, err := m.AdmissionFunc(ctx, slug)
	return s, err
}
func (m *mockShopUC) Admission(ctx context.Context, slug string) (*model.Shop, bool, error) {
	return m.AdmissionFunc(ctx, slug)
}

type mockActivationUC struct {
	usecase.ActivationUseCase

	ActivateFunc         func(ctx context.Context, shopID string, plan model.ActivationPlan) (*usecase.ActivationResult, error)
	VerifyActivationFunc func(ctx context.Context, id string) (*model.ShopActivation, error)
	ListActivationsFunc  func(ctx context.Context, shopID string, limit int) ([]*model.ShopActivation, error)
}

func (m *mockActivationUC) Activate(ctx context.Context, shopID string, plan model.ActivationPlan) (*usecase.ActivationResult, error) {
	return m.ActivateFunc(ctx, shopID, plan)
}
func (m *mockActivationUC) VerifyActivation(ctx context.Context, id string) (*model.ShopActivation, error) {
	return m.VerifyActivationFunc(ctx, id)
}
func (m *mockActivationUC) ListActivations(ctx context.Context, shopID string, limit int) ([]*model.ShopActivation, error) {
	return m.ListActivationsFunc(ctx, shopID, limit)
}

type mockTransactionUC struct {
	created []*model.Transaction
	byID    map[string]*model.Transaction
}

func newMockTransactionUC() *mockTransactionUC {
	return &mockTransactionUC{byID: map[string]*model.Transaction{}}
}

func (m *mockTransactionUC) Create(_ context.Context, shopID string, amount int64, reference string, items []model.TransactionItem) (string, error) {
	t, err := model.NewTransaction(shopID, amount, reference, items)
	if err != nil {
		return "", err
	}
	m.created = append(m.created, t)
	m.byID[t.ID] = t
	return t.ID, nil
}
func (m *mockTransactionUC) Verify(_ context.Context, id string) error {
	t, ok := m.byID[id]
	if !ok {
		return errNotFound
	}
	now := time.Now()
	t.Status = model.TransactionStatusVerified
	t.VerifiedAt = &now
	return nil
}
func (m *mockTransactionUC) Get(_ context.Context, id string) (*model.Transaction, error) {
	t, ok := m.byID[id]
	if !ok {
		return nil, errNotFound
	}
	return t, nil
}
func (m *mockTransactionUC) ListByShop(_ context.Context, shopID string, _ int) ([]*model.Transaction, error) {
	var out []*model.Transaction
	for _, t := range m.created {
		if t.ShopID == shopID {
			out = append(out, t)
		}
	}
	return out, nil
}

type mockLimiter struct{ allow bool }

func (m *mockLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return m.allow, nil
}
