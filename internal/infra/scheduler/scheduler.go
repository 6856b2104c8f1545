package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"popup-shop/internal/domain/model"
	"popup-shop/internal/domain/ports/adapter"
	"popup-shop/internal/infra/metrics"
	"popup-shop/internal/infra/worker"
)

var _ adapter.JobScheduler = (*Scheduler)(nil)

var (
	ErrNotStarted = errors.New("scheduler not started")
	ErrStopped    = errors.New("scheduler stopped")
)

// Handler processes one due expiry job.
type Handler func(ctx context.Context, job model.ExpiryJob) error

// Scheduler delivers expiry jobs from in-process timers. Jobs live only in
// memory, so a restart loses them and the overdue sweep has to close those
// windows. It is the fallback when no Redis is configured.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[uint64]*time.Timer
	nextID  uint64
	ctx     context.Context
	handler Handler
	pool    *worker.Pool
	stopped bool

	retryDelay  time.Duration
	maxAttempts int
	now         func() time.Time
	log         *zerolog.Logger
}

type Option func(*Scheduler)

// WithMaxAttempts caps how often a failing job runs before it is dropped.
// The overdue sweep still closes the window. n <= 0 keeps the default of 5.
func WithMaxAttempts(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewScheduler builds a scheduler that runs handlers on pool, or on bare
// goroutines when pool is nil.
func NewScheduler(pool *worker.Pool, logger *zerolog.Logger, opts ...Option) *Scheduler {
	compLog := logger.With().Str("component", "Scheduler").Logger()
	s := &Scheduler{
		timers:      make(map[uint64]*time.Timer),
		pool:        pool,
		retryDelay:  5 * time.Second,
		maxAttempts: 5,
		now:         time.Now,
		log:         &compLog,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start sets the handler. Jobs scheduled before Start are rejected.
func (s *Scheduler) Start(ctx context.Context, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
	s.handler = h
	s.log.Info().Msg("in-process expiry scheduler started")
}

func (s *Scheduler) ScheduleExpiry(_ context.Context, job model.ExpiryJob) error {
	return s.scheduleAt(job, job.FireAt())
}

func (s *Scheduler) scheduleAt(job model.ExpiryJob, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.handler == nil {
		return ErrNotStarted
	}

	delay := at.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.nextID++
	id := s.nextID
	s.timers[id] = time.AfterFunc(delay, func() { s.fire(id, job) })
	return nil
}

func (s *Scheduler) fire(id uint64, job model.ExpiryJob) {
	s.mu.Lock()
	delete(s.timers, id)
	if s.stopped {
		s.mu.Unlock()
		return
	}
	ctx, h := s.ctx, s.handler
	s.mu.Unlock()

	job.Deliveries++
	task := func(ctx context.Context) error {
		if err := h(ctx, job); err != nil {
			metrics.IncExpiryJob("failed")
			if job.Deliveries >= s.maxAttempts {
				metrics.IncExpiryJob("poisoned")
				s.log.Error().Err(err).Str("shop_id", job.ShopID).Int("attempts", job.Deliveries).Msg("expiry job dropped after repeated failures")
				return nil
			}
			s.log.Warn().Err(err).Str("shop_id", job.ShopID).Dur("retry_in", s.retryDelay).Msg("expiry job failed, retrying")
			if err := s.scheduleAt(job, s.now().Add(s.retryDelay)); err != nil {
				s.log.Debug().Err(err).Str("shop_id", job.ShopID).Msg("expiry retry not scheduled")
			}
			return nil
		}
		metrics.IncExpiryJob("acked")
		return nil
	}

	if s.pool == nil {
		go func() { _ = task(ctx) }()
		return
	}
	if err := s.pool.SubmitWait(ctx, task); err != nil {
		s.log.Warn().Err(err).Str("shop_id", job.ShopID).Msg("expiry job not queued")
	}
}

// Pending reports how many timers are armed.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop disarms every pending timer. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[uint64]*time.Timer)
	s.log.Info().Msg("in-process expiry scheduler stopped")
}
