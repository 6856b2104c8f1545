package usecase

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"popup-shop/internal/domain"
	"popup-shop/internal/domain/model"
	"popup-shop/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// ---- shops ----

type memShopRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.Shop
	bySlug map[string]string

	// createConflicts makes the next N Create calls fail with ErrConflict.
	createConflicts int
	// casMisses makes the next N CompareAndSwapActivation calls report a miss.
	casMisses int
	casCalls  int
}

func newMemShopRepo() *memShopRepo {
	return &memShopRepo{byID: map[string]*model.Shop{}, bySlug: map[string]string{}}
}

func (m *memShopRepo) Create(_ context.Context, _ repository.Tx, s *model.Shop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createConflicts > 0 {
		m.createConflicts--
		return domain.ErrConflict
	}
	if _, ok := m.bySlug[s.Slug]; ok {
		return domain.ErrConflict
	}
	cp := *s
	m.byID[s.ID] = &cp
	m.bySlug[s.Slug] = s.ID
	return nil
}

func (m *memShopRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memShopRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Shop, error) {
	m.mu.Lock()
	id, ok := m.bySlug[slug]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.FindByID(ctx, tx, id)
}

func (m *memShopRepo) ListSlugsWithPrefix(_ context.Context, _ repository.Tx, base string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for slug := range m.bySlug {
		if slug == base || strings.HasPrefix(slug, base+"-") {
			out = append(out, slug)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memShopRepo) CompareAndSwapActivation(_ context.Context, _ repository.Tx, expected model.ActivationSnapshot, s *model.Shop) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++
	if m.casMisses > 0 {
		m.casMisses--
		return false, nil
	}
	cur, ok := m.byID[s.ID]
	if !ok {
		return false, nil
	}
	if cur.ActivationStatus != expected.Status || !model.Millis(cur.ActiveUntil).Equal(model.Millis(expected.ActiveUntil)) {
		return false, nil
	}
	cp := *s
	m.byID[s.ID] = &cp
	return true, nil
}

func (m *memShopRepo) SetVerification(_ context.Context, _ repository.Tx, id string, status model.VerificationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.VerificationStatus = status
	return nil
}

func (m *memShopRepo) ListOverdue(_ context.Context, _ repository.Tx, now time.Time, limit int) ([]*model.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Shop
	for _, s := range m.byID {
		if s.IsActive() && !s.ActiveUntil.After(now) && len(out) < limit {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memShopRepo) CountByStatus(context.Context, repository.Tx) (map[model.ActivationStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[model.ActivationStatus]int{}
	for _, s := range m.byID {
		out[s.ActivationStatus]++
	}
	return out, nil
}

func (m *memShopRepo) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := make(map[string]*model.Shop, len(m.byID))
	for id, s := range m.byID {
		cp := *s
		byID[id] = &cp
	}
	bySlug := make(map[string]string, len(m.bySlug))
	for slug, id := range m.bySlug {
		bySlug[slug] = id
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.byID, m.bySlug = byID, bySlug
	}
}

// put stores s directly, bypassing slug checks.
func (m *memShopRepo) put(s *model.Shop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.byID[s.ID] = &cp
	m.bySlug[s.Slug] = s.ID
}

// ---- activations ----

type memActivationRepo struct {
	mu      sync.Mutex
	rows    []*model.ShopActivation
	saveErr error
}

func (m *memActivationRepo) Save(_ context.Context, _ repository.Tx, a *model.ShopActivation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *a
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memActivationRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.ShopActivation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memActivationRepo) ListByShop(_ context.Context, _ repository.Tx, shopID string, limit int) ([]*model.ShopActivation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ShopActivation
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].ShopID == shopID {
			cp := *m.rows[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memActivationRepo) MarkVerified(_ context.Context, _ repository.Tx, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ID == id {
			a.VerificationStatus = model.VerificationStatusVerified
			if a.VerifiedAt == nil {
				a.VerifiedAt = &at
			}
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memActivationRepo) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]*model.ShopActivation, 0, len(m.rows))
	for _, a := range m.rows {
		cp := *a
		rows = append(rows, &cp)
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.rows = rows
	}
}

func (m *memActivationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// ---- transactions ----

type memTransactionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Transaction
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{byID: map[string]*model.Transaction{}}
}

func (m *memTransactionRepo) Save(_ context.Context, _ repository.Tx, t *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.byID[t.ID] = &cp
	return nil
}

func (m *memTransactionRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTransactionRepo) ListByShop(_ context.Context, _ repository.Tx, shopID string, _ int) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Transaction
	for _, t := range m.byID {
		if t.ShopID == shopID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTransactionRepo) MarkVerified(_ context.Context, _ repository.Tx, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = model.TransactionStatusVerified
	if t.VerifiedAt == nil {
		t.VerifiedAt = &at
	}
	return nil
}

// ---- tx manager ----

// txStore is a repo whose state the mock transaction manager can restore.
type txStore interface {
	snapshot() (restore func())
}

// mockTxManager rolls back every store it knows about when fn fails.
type mockTxManager struct {
	stores []txStore
}

func (m mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	restores := make([]func(), 0, len(m.stores))
	for _, s := range m.stores {
		restores = append(restores, s.snapshot())
	}
	if err := fn(ctx, repository.NoTX); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

// ---- adapters ----

type fakeScheduler struct {
	mu   sync.Mutex
	jobs []model.ExpiryJob
	err  error
}

func (f *fakeScheduler) ScheduleExpiry(_ context.Context, job model.ExpiryJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeScheduler) scheduled() []model.ExpiryJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ExpiryJob(nil), f.jobs...)
}

type fakeNotifier struct {
	sent chan string
	err  error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(chan string, 16)}
}

func (f *fakeNotifier) SendWelcome(_ context.Context, shop *model.Shop) error {
	f.sent <- shop.ID
	return f.err
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   map[string]string
	unlocked []string
	err      error
}

func (f *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.locked == nil {
		f.locked = map[string]string{}
	}
	f.locked[key] = "tok-" + key
	return f.locked[key], nil
}

func (f *fakeLocker) Unlock(_ context.Context, key, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked[key] == token {
		delete(f.locked, key)
		f.unlocked = append(f.unlocked, key)
	}
	return nil
}
