package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"popup-shop/internal/domain"
	"popup-shop/internal/domain/model"
	"popup-shop/internal/domain/ports/adapter"
	"popup-shop/internal/domain/ports/repository"
	"popup-shop/internal/infra/metrics"
	"popup-shop/internal/infra/worker"
)

const (
	maxActivateAttempts = 5
	maxExpireAttempts   = 3
	notifyTimeout       = 15 * time.Second
)

// ExpiryOutcome describes what an expiry check did. Only ExpiryExpired changes state.
type ExpiryOutcome string

const (
	ExpiryExpired   ExpiryOutcome = "expired"
	ExpiryStale     ExpiryOutcome = "stale"      // a later activation moved active_until
	ExpiryNotDue    ExpiryOutcome = "not_due"    // fired before the window ended
	ExpiryNotActive ExpiryOutcome = "not_active" // already inactive
	ExpiryMissing   ExpiryOutcome = "missing"    // shop no longer exists
)

// ActivationResult is what a payer needs to complete an activation purchase.
type ActivationResult struct {
	ShopID             string
	ActivationID       string
	ActivationStatus   model.ActivationStatus
	VerificationStatus model.VerificationStatus
	Plan               model.ActivationPlan
	ActiveFrom         time.Time
	ActiveUntil        time.Time
	Amount             int64
	Message            string
}

type ActivationUseCase interface {
	// Activate grants plan's window to the shop and schedules its expiry.
	// Calling it on an active shop extends or renews the window.
	Activate(ctx context.Context, shopID string, plan model.ActivationPlan) (*ActivationResult, error)
	// ExpireIfDue deactivates the shop only if it still holds the window
	// ending at expectedActiveUntil and that instant has passed.
	ExpireIfDue(ctx context.Context, shopID string, expectedActiveUntil time.Time) (ExpiryOutcome, error)
	// ExpireOverdue runs ExpireIfDue for up to limit active shops whose window has ended.
	ExpireOverdue(ctx context.Context, limit int) (int, error)
	// VerifyActivation marks an activation payment as verified by a human.
	VerifyActivation(ctx context.Context, activationID string) (*model.ShopActivation, error)
	ListActivations(ctx context.Context, shopID string, limit int) ([]*model.ShopActivation, error)
}

var _ ActivationUseCase = (*activationUC)(nil)

type activationUC struct {
	shops       repository.ShopRepository
	activations repository.ShopActivationRepository
	tm          repository.TransactionManager
	scheduler   adapter.JobScheduler
	notifier    adapter.Notifier
	pool        *worker.Pool

	prefix string
	loc    *time.Location
	now    func() time.Time
	log    *zerolog.Logger
}

type ActivationOption func(*activationUC)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ActivationOption {
	return func(u *activationUC) { u.now = now }
}

// WithLocation sets the time zone "end of day" is computed in.
func WithLocation(loc *time.Location) ActivationOption {
	return func(u *activationUC) {
		if loc != nil {
			u.loc = loc
		}
	}
}

// WithReferencePrefix sets the fixed prefix of activation payment messages.
func WithReferencePrefix(prefix string) ActivationOption {
	return func(u *activationUC) {
		if prefix != "" {
			u.prefix = prefix
		}
	}
}

// WithWorkerPool runs welcome notifications on pool instead of bare goroutines.
func WithWorkerPool(pool *worker.Pool) ActivationOption {
	return func(u *activationUC) { u.pool = pool }
}

func NewActivationUseCase(
	shops repository.ShopRepository,
	activations repository.ShopActivationRepository,
	tm repository.TransactionManager,
	scheduler adapter.JobScheduler,
	notifier adapter.Notifier,
	logger *zerolog.Logger,
	opts ...ActivationOption,
) *activationUC {
	compLog := logger.With().Str("component", "ActivationUC").Logger()
	u := &activationUC{
		shops:       shops,
		activations: activations,
		tm:          tm,
		scheduler:   scheduler,
		notifier:    notifier,
		prefix:      DefaultReferencePrefix,
		loc:         time.Local,
		now:         time.Now,
		log:         &compLog,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *activationUC) clock() time.Time {
	return model.Millis(u.now().In(u.loc))
}

func (u *activationUC) Activate(ctx context.Context, shopID string, plan model.ActivationPlan) (*ActivationResult, error) {
	price, err := plan.Price()
	if err != nil {
		return nil, err
	}

	var (
		res     *ActivationResult
		welcome *model.Shop
	)
	for attempt := 1; ; attempt++ {
		res, welcome, err = u.activateOnce(ctx, shopID, plan, price)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= maxActivateAttempts {
			return nil, err
		}
		u.log.Debug().Str("shop_id", shopID).Int("attempt", attempt).Msg("activation raced, retrying")
	}

	metrics.IncActivation(string(plan))
	metrics.AddLedgerAmount("activation", res.Amount)
	u.log.Info().
		Str("shop_id", res.ShopID).
		Str("plan", string(plan)).
		Time("active_from", res.ActiveFrom).
		Time("active_until", res.ActiveUntil).
		Msg("shop activated")

	if welcome != nil {
		u.sendWelcome(welcome)
	}

	// State is committed at this point. A lost job is picked up by the overdue sweep.
	job := model.ExpiryJob{ShopID: res.ShopID, ActiveUntil: res.ActiveUntil}
	if err := u.scheduler.ScheduleExpiry(ctx, job); err != nil {
		metrics.IncExpiryJob("schedule_failed")
		u.log.Error().Err(err).Str("shop_id", res.ShopID).Time("fire_at", job.FireAt()).Msg("failed to schedule expiry job")
	} else {
		metrics.IncExpiryJob("scheduled")
	}
	return res, nil
}

func (u *activationUC) activateOnce(ctx context.Context, shopID string, plan model.ActivationPlan, price int64) (*ActivationResult, *model.Shop, error) {
	var (
		res     *ActivationResult
		welcome *model.Shop
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		shop, err := u.shops.FindByID(ctx, tx, shopID)
		if err != nil {
			return err
		}
		now := u.clock()
		w, err := ResolveWindow(plan, now, shop.ActiveUntil, shop.IsActive())
		if err != nil {
			return err
		}

		next := *shop
		next.ActivationStatus = model.ActivationStatusActive
		next.VerificationStatus = model.VerificationStatusUnverified
		next.ActivationPlan = plan
		next.ActiveFrom = w.Start
		next.ActiveUntil = model.Millis(w.End)
		next.LastActivatedAt = &now
		next.UpdatedAt = now
		firstActivation := shop.CreatedEmailSentAt == nil
		if firstActivation {
			next.CreatedEmailSentAt = &now
		}

		ok, err := u.shops.CompareAndSwapActivation(ctx, tx, shop.Snapshot(), &next)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConflict
		}

		act := model.NewShopActivation(next.ID, plan, price, ActivationMessage(u.prefix, &next), next.ActiveFrom, next.ActiveUntil, now)
		if err := u.activations.Save(ctx, tx, act); err != nil {
			return err
		}

		res = &ActivationResult{
			ShopID:             next.ID,
			ActivationID:       act.ID,
			ActivationStatus:   next.ActivationStatus,
			VerificationStatus: next.VerificationStatus,
			Plan:               plan,
			ActiveFrom:         next.ActiveFrom,
			ActiveUntil:        next.ActiveUntil,
			Amount:             act.Amount,
			Message:            act.Message,
		}
		if firstActivation {
			welcome = &next
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return res, welcome, nil
}

// sendWelcome is fire-and-forget: the stamp is already committed, so a failed
// send is logged and never retried or surfaced to the caller.
func (u *activationUC) sendWelcome(shop *model.Shop) {
	task := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := u.notifier.SendWelcome(ctx, shop); err != nil {
			metrics.IncNotification("failed")
			u.log.Warn().Err(err).Str("shop_id", shop.ID).Msg("welcome notification failed")
			return nil
		}
		metrics.IncNotification("sent")
		return nil
	}
	if u.pool != nil {
		if err := u.pool.Submit(task); err != nil {
			metrics.IncNotification("dropped")
			u.log.Warn().Err(err).Str("shop_id", shop.ID).Msg("welcome notification not queued")
		}
		return
	}
	go func() { _ = task(context.Background()) }()
}

func (u *activationUC) ExpireIfDue(ctx context.Context, shopID string, expectedActiveUntil time.Time) (ExpiryOutcome, error) {
	expected := model.Millis(expectedActiveUntil)
	for attempt := 1; ; attempt++ {
		outcome, err := u.expireOnce(ctx, shopID, expected)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) && attempt < maxExpireAttempts {
				continue
			}
			return "", err
		}

		metrics.IncExpiryOutcome(string(outcome))
		l := u.log.With().Str("shop_id", shopID).Time("expected_active_until", expected).Str("outcome", string(outcome)).Logger()
		switch outcome {
		case ExpiryExpired:
			l.Info().Msg("shop deactivated")
		case ExpiryNotDue:
			// Fired early (clock skew); put the same job back so the window still closes.
			if err := u.scheduler.ScheduleExpiry(ctx, model.ExpiryJob{ShopID: shopID, ActiveUntil: expected}); err != nil {
				l.Warn().Err(err).Msg("failed to reschedule early expiry job")
			}
			l.Debug().Msg("expiry job fired early, rescheduled")
		default:
			l.Debug().Msg("expiry job is a no-op")
		}
		return outcome, nil
	}
}

func (u *activationUC) expireOnce(ctx context.Context, shopID string, expected time.Time) (ExpiryOutcome, error) {
	var outcome ExpiryOutcome
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		shop, err := u.shops.FindByID(ctx, tx, shopID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				outcome = ExpiryMissing
				return nil
			}
			return err
		}
		now := u.clock()
		switch {
		case !shop.IsActive():
			outcome = ExpiryNotActive
			return nil
		case !model.Millis(shop.ActiveUntil).Equal(expected):
			outcome = ExpiryStale
			return nil
		case !shop.ExpiryDue(expected, now):
			outcome = ExpiryNotDue
			return nil
		}

		next := *shop
		next.ActivationStatus = model.ActivationStatusInactive
		next.UpdatedAt = now
		ok, err := u.shops.CompareAndSwapActivation(ctx, tx, shop.Snapshot(), &next)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConflict
		}
		outcome = ExpiryExpired
		return nil
	})
	return outcome, err
}

func (u *activationUC) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	overdue, err := u.shops.ListOverdue(ctx, repository.NoTX, u.clock(), limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, s := range overdue {
		outcome, err := u.ExpireIfDue(ctx, s.ID, s.ActiveUntil)
		if err != nil {
			u.log.Error().Err(err).Str("shop_id", s.ID).Msg("overdue expiry failed")
			continue
		}
		if outcome == ExpiryExpired {
			expired++
		}
	}
	return expired, nil
}

func (u *activationUC) VerifyActivation(ctx context.Context, activationID string) (*model.ShopActivation, error) {
	var out *model.ShopActivation
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		act, err := u.activations.FindByID(ctx, tx, activationID)
		if err != nil {
			return err
		}
		if act.VerificationStatus != model.VerificationStatusVerified {
			now := u.clock()
			if err := u.activations.MarkVerified(ctx, tx, act.ID, now); err != nil {
				return err
			}
			act.VerificationStatus = model.VerificationStatusVerified
			act.VerifiedAt = &now
		}

		shop, err := u.shops.FindByID(ctx, tx, act.ShopID)
		if err != nil {
			return err
		}
		// Only the activation that produced the current window verifies the shop.
		if model.Millis(shop.ActiveUntil).Equal(act.ActiveUntil) && shop.VerificationStatus != model.VerificationStatusVerified {
			if err := u.shops.SetVerification(ctx, tx, shop.ID, model.VerificationStatusVerified); err != nil {
				return err
			}
		}
		out = act
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("activation_id", out.ID).Str("shop_id", out.ShopID).Msg("activation verified")
	return out, nil
}

func (u *activationUC) ListActivations(ctx context.Context, shopID string, limit int) ([]*model.ShopActivation, error) {
	if _, err := u.shops.FindByID(ctx, repository.NoTX, shopID); err != nil {
		return nil, err
	}
	return u.activations.ListByShop(ctx, repository.NoTX, shopID, limit)
}
