package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"popup-shop/internal/domain/model"
	"popup-shop/internal/infra/metrics"
	"popup-shop/internal/infra/worker"
	"popup-shop/internal/usecase"
)

// ExpiryQueue is the consumer side of the persistent delay queue.
type ExpiryQueue interface {
	Claim(ctx context.Context, now time.Time, limit int, visibility time.Duration) ([]model.ExpiryJob, error)
	Ack(ctx context.Context, job model.ExpiryJob) error
	DeadLetter(ctx context.Context, now time.Time, job model.ExpiryJob) error
	Requeue(ctx context.Context, now time.Time) (int, error)
	Depth(ctx context.Context) (due, inflight int64, err error)
}

// DefaultMaxDeliveries bounds how often a failing job is handed out before it
// is dead-lettered.
const DefaultMaxDeliveries = 5

// ExpiryWorker polls the delay queue and runs each due job through
// ExpireIfDue. A job is acked only after the check returned, so a failed or
// interrupted check is delivered again once its visibility timeout passes.
// A job that fails on its last allowed delivery is dead-lettered.
type ExpiryWorker struct {
	interval      time.Duration
	batch         int
	visibility    time.Duration
	maxDeliveries int
	queue         ExpiryQueue
	actUC         usecase.ActivationUseCase
	pool          *worker.Pool
	now           func() time.Time
	log           *zerolog.Logger
}

type ExpiryWorkerOption func(*ExpiryWorker)

// WithMaxDeliveries sets the delivery cap. n <= 0 keeps the default.
func WithMaxDeliveries(n int) ExpiryWorkerOption {
	return func(w *ExpiryWorker) {
		if n > 0 {
			w.maxDeliveries = n
		}
	}
}

func NewExpiryWorker(interval time.Duration, batch int, visibility time.Duration, queue ExpiryQueue, actUC usecase.ActivationUseCase, pool *worker.Pool, logger *zerolog.Logger, opts ...ExpiryWorkerOption) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	w := &ExpiryWorker{
		interval:      interval,
		batch:         batch,
		visibility:    visibility,
		maxDeliveries: DefaultMaxDeliveries,
		queue:         queue,
		actUC:         actUC,
		pool:          pool,
		now:           time.Now,
		log:           &exprLog,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("expiry worker error")
			}
		}
	}
}

// Poll requeues timed-out jobs, claims a batch and dispatches it. It returns
// the number of jobs dispatched.
func (w *ExpiryWorker) Poll(ctx context.Context) (int, error) {
	now := w.now()
	if n, err := w.queue.Requeue(ctx, now); err != nil {
		return 0, err
	} else if n > 0 {
		metrics.AddExpiryJobs("requeued", n)
		w.log.Warn().Int("count", n).Msg("requeued expiry jobs past their visibility timeout")
	}

	jobs, err := w.queue.Claim(ctx, now, w.batch, w.visibility)
	if err != nil {
		return 0, err
	}
	metrics.AddExpiryJobs("claimed", len(jobs))

	dispatched := 0
	for _, job := range jobs {
		job := job
		task := func(ctx context.Context) error { return w.process(ctx, job) }
		if w.pool == nil {
			_ = task(ctx)
			dispatched++
			continue
		}
		if err := w.pool.SubmitWait(ctx, task); err != nil {
			// Left inflight; Requeue brings it back.
			w.log.Warn().Err(err).Str("shop_id", job.ShopID).Msg("expiry job not dispatched")
			break
		}
		dispatched++
	}

	if due, inflight, err := w.queue.Depth(ctx); err == nil {
		metrics.SetExpiryQueueDepth(due, inflight)
	}
	return dispatched, nil
}

func (w *ExpiryWorker) process(ctx context.Context, job model.ExpiryJob) error {
	outcome, err := w.actUC.ExpireIfDue(ctx, job.ShopID, job.ActiveUntil)
	if err != nil {
		metrics.IncExpiryJob("failed")
		w.log.Error().Err(err).Str("shop_id", job.ShopID).Time("active_until", job.ActiveUntil).
			Int("delivery", job.Deliveries).Msg("expiry check failed")
		if job.Deliveries < w.maxDeliveries {
			return err
		}
		if dlErr := w.queue.DeadLetter(ctx, w.now(), job); dlErr != nil {
			w.log.Warn().Err(dlErr).Str("shop_id", job.ShopID).Msg("dead-letter failed; job will be redelivered")
			return err
		}
		metrics.IncExpiryJob("poisoned")
		w.log.Error().Str("shop_id", job.ShopID).Time("active_until", job.ActiveUntil).
			Int("deliveries", job.Deliveries).Msg("expiry job dead-lettered")
		return err
	}
	if err := w.queue.Ack(ctx, job); err != nil {
		w.log.Warn().Err(err).Str("shop_id", job.ShopID).Msg("expiry ack failed; job will be redelivered")
		return err
	}
	metrics.IncExpiryJob("acked")
	w.log.Debug().Str("shop_id", job.ShopID).Str("outcome", string(outcome)).Msg("expiry job done")
	return nil
}
