package adapter

import (
	"context"

	"popup-shop/internal/domain/model"
)

// JobScheduler delivers an expiry job at or after job.FireAt(), at least once.
// There is no cancellation; stale jobs are fenced by the handler.
type JobScheduler interface {
	ScheduleExpiry(ctx context.Context, job model.ExpiryJob) error
}
