package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"popup-shop/internal/domain/model"
	"popup-shop/internal/infra/worker"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestScheduler_RejectsBeforeStart(t *testing.T) {
	s := NewScheduler(nil, newTestLogger())
	err := s.ScheduleExpiry(context.Background(), model.ExpiryJob{ShopID: "a", ActiveUntil: time.Now()})
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestScheduler_FiresPastDueImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := worker.NewPool(2, newTestLogger())
	pool.Start(ctx)
	defer pool.Stop()

	got := make(chan model.ExpiryJob, 1)
	s := NewScheduler(pool, newTestLogger())
	s.Start(ctx, func(_ context.Context, job model.ExpiryJob) error {
		got <- job
		return nil
	})

	job := model.ExpiryJob{ShopID: "shop-1", ActiveUntil: time.Now().Add(-time.Hour)}
	if err := s.ScheduleExpiry(ctx, job); err != nil {
		t.Fatalf("ScheduleExpiry: %v", err)
	}

	select {
	case j := <-got:
		if j.ShopID != "shop-1" || !j.ActiveUntil.Equal(job.ActiveUntil) {
			t.Fatalf("unexpected job %+v", j)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job did not fire")
	}
}

func TestScheduler_RetriesFailedJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	calls := 0
	done := make(chan struct{})
	s := NewScheduler(nil, newTestLogger())
	s.retryDelay = 10 * time.Millisecond
	s.Start(ctx, func(_ context.Context, _ model.ExpiryJob) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return errors.New("db down")
		}
		close(done)
		return nil
	})

	if err := s.ScheduleExpiry(ctx, model.ExpiryJob{ShopID: "x", ActiveUntil: time.Now()}); err != nil {
		t.Fatalf("ScheduleExpiry: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
}

func TestScheduler_DropsJobAfterMaxAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var attempts []int
	s := NewScheduler(nil, newTestLogger(), WithMaxAttempts(3))
	s.retryDelay = 5 * time.Millisecond
	s.Start(ctx, func(_ context.Context, job model.ExpiryJob) error {
		mu.Lock()
		defer mu.Unlock()
		attempts = append(attempts, job.Deliveries)
		return errors.New("operation failed")
	})

	if err := s.ScheduleExpiry(ctx, model.ExpiryJob{ShopID: "bad", ActiveUntil: time.Now()}); err != nil {
		t.Fatalf("ScheduleExpiry: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(attempts) != 3 || attempts[0] != 1 || attempts[2] != 3 {
		t.Fatalf("expected three attempts, got %v", attempts)
	}
	if n := s.Pending(); n != 0 {
		t.Fatalf("expected no retry armed, got %d", n)
	}
}

func TestScheduler_StopDisarmsTimers(t *testing.T) {
	ctx := context.Background()
	fired := make(chan struct{}, 1)
	s := NewScheduler(nil, newTestLogger())
	s.Start(ctx, func(context.Context, model.ExpiryJob) error {
		fired <- struct{}{}
		return nil
	})

	if err := s.ScheduleExpiry(ctx, model.ExpiryJob{ShopID: "x", ActiveUntil: time.Now().Add(50 * time.Millisecond)}); err != nil {
		t.Fatalf("ScheduleExpiry: %v", err)
	}
	if s.Pending() != 1 {
		t.Fatalf("expected 1 pending timer, got %d", s.Pending())
	}
	s.Stop()
	s.Stop()

	select {
	case <-fired:
		t.Fatal("stopped scheduler fired a job")
	case <-time.After(150 * time.Millisecond):
	}
	if err := s.ScheduleExpiry(ctx, model.ExpiryJob{ShopID: "y", ActiveUntil: time.Now()}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
