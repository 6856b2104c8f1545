package sched

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"popup-shop/internal/domain/model"
	"popup-shop/internal/domain/ports/repository"
	"popup-shop/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type fakeQueue struct {
	mu       sync.Mutex
	due      []model.ExpiryJob
	inflight []model.ExpiryJob
	acked    []model.ExpiryJob
	dead     []model.ExpiryJob
	requeued int
	attempts map[string]int
}

func jobKey(j model.ExpiryJob) string {
	return j.ShopID + "@" + j.ActiveUntil.UTC().Format(time.RFC3339Nano)
}

func (q *fakeQueue) removeInflight(job model.ExpiryJob) {
	for i, j := range q.inflight {
		if jobKey(j) == jobKey(job) {
			q.inflight = append(q.inflight[:i], q.inflight[i+1:]...)
			return
		}
	}
}

func (q *fakeQueue) Claim(_ context.Context, now time.Time, limit int, _ time.Duration) ([]model.ExpiryJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out, rest []model.ExpiryJob
	for _, j := range q.due {
		if len(out) < limit && !j.FireAt().After(now) {
			out = append(out, j)
			continue
		}
		rest = append(rest, j)
	}
	q.due = rest
	if q.attempts == nil {
		q.attempts = map[string]int{}
	}
	for i := range out {
		q.attempts[jobKey(out[i])]++
		out[i].Deliveries = q.attempts[jobKey(out[i])]
	}
	q.inflight = append(q.inflight, out...)
	return out, nil
}

func (q *fakeQueue) Ack(_ context.Context, job model.ExpiryJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeInflight(job)
	delete(q.attempts, jobKey(job))
	q.acked = append(q.acked, job)
	return nil
}

func (q *fakeQueue) DeadLetter(_ context.Context, _ time.Time, job model.ExpiryJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeInflight(job)
	delete(q.attempts, jobKey(job))
	q.dead = append(q.dead, job)
	return nil
}

// redeliver moves every inflight job back to due, as an expired visibility
// timeout would.
func (q *fakeQueue) redeliver() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.due = append(q.due, q.inflight...)
	q.inflight = nil
}

func (q *fakeQueue) Requeue(context.Context, time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := q.requeued
	q.requeued = 0
	return n, nil
}

func (q *fakeQueue) Depth(context.Context) (int64, int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.due)), int64(len(q.inflight)), nil
}

// fakeActivationUC implements only what the workers call.
type fakeActivationUC struct {
	usecase.ActivationUseCase

	ExpireIfDueFunc   func(ctx context.Context, shopID string, expected time.Time) (usecase.ExpiryOutcome, error)
	ExpireOverdueFunc func(ctx context.Context, limit int) (int, error)
}

func (f *fakeActivationUC) ExpireIfDue(ctx context.Context, shopID string, expected time.Time) (usecase.ExpiryOutcome, error) {
	return f.ExpireIfDueFunc(ctx, shopID, expected)
}

func (f *fakeActivationUC) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	return f.ExpireOverdueFunc(ctx, limit)
}

type fakeShopRepo struct {
	repository.ShopRepository
	counts map[model.ActivationStatus]int
}

func (f *fakeShopRepo) CountByStatus(context.Context, repository.Tx) (map[model.ActivationStatus]int, error) {
	return f.counts, nil
}
