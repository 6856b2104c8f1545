package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"popup-shop/internal/domain/model"
	"popup-shop/internal/domain/ports/adapter"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

var _ adapter.JobScheduler = (*DelayQueue)(nil)

// DelayQueue keeps expiry jobs in two sorted sets. "due" is scored by the
// fire-at instant in ms, "inflight" by the visibility deadline of a claimed
// job. A job is removed only by Ack or DeadLetter, so a crashed consumer's
// jobs come back through Requeue. The "attempts" hash counts claims per
// member; "dead" holds given-up jobs scored by when they were parked.
type DelayQueue struct {
	c        *Client
	due      string
	inflight string
	attempts string
	dead     string
	log      *zerolog.Logger
}

func NewDelayQueue(c *Client, logger *zerolog.Logger) *DelayQueue {
	compLog := logger.With().Str("component", "DelayQueue").Logger()
	return &DelayQueue{
		c:        c,
		due:      c.key("expiry", "due"),
		inflight: c.key("expiry", "inflight"),
		attempts: c.key("expiry", "attempts"),
		dead:     c.key("expiry", "dead"),
		log:      &compLog,
	}
}

// wireJob is the member stored in the sets. Encoding is deterministic, so
// scheduling the same (shop, window) twice collapses into one member.
type wireJob struct {
	ShopID      string `json:"shop_id"`
	ActiveUntil int64  `json:"active_until"` // unix ms
}

func encodeJob(j model.ExpiryJob) (string, error) {
	b, err := json.Marshal(wireJob{ShopID: j.ShopID, ActiveUntil: j.ActiveUntil.UnixMilli()})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJob(member string) (model.ExpiryJob, error) {
	var w wireJob
	if err := json.Unmarshal([]byte(member), &w); err != nil {
		return model.ExpiryJob{}, err
	}
	return model.ExpiryJob{ShopID: w.ShopID, ActiveUntil: time.UnixMilli(w.ActiveUntil)}, nil
}

func (q *DelayQueue) ScheduleExpiry(ctx context.Context, job model.ExpiryJob) error {
	member, err := encodeJob(job)
	if err != nil {
		return err
	}
	return q.c.cli.ZAdd(ctx, q.due, &redis.Z{
		Score:  float64(job.FireAt().UnixMilli()),
		Member: member,
	}).Err()
}

// KEYS[1]=due KEYS[2]=inflight KEYS[3]=attempts
// ARGV[1]=now ms ARGV[2]=limit ARGV[3]=visibility deadline ms
// Returns member, attempts pairs.
var luaClaim = redis.NewScript(`
local items = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, tonumber(ARGV[2]))
local out = {}
for _, m in ipairs(items) do
	redis.call("ZREM", KEYS[1], m)
	redis.call("ZADD", KEYS[2], ARGV[3], m)
	table.insert(out, m)
	table.insert(out, redis.call("HINCRBY", KEYS[3], m, 1))
end
return out`)

// Claim atomically moves up to limit due jobs into the inflight set with a
// deadline of now+visibility. Each job carries its delivery count.
func (q *DelayQueue) Claim(ctx context.Context, now time.Time, limit int, visibility time.Duration) ([]model.ExpiryJob, error) {
	if limit <= 0 {
		return nil, nil
	}
	res, err := luaClaim.Run(ctx, q.c.cli, []string{q.due, q.inflight, q.attempts},
		now.UnixMilli(), limit, now.Add(visibility).UnixMilli()).Slice()
	if err != nil {
		return nil, err
	}

	jobs := make([]model.ExpiryJob, 0, len(res)/2)
	for i := 0; i+1 < len(res); i += 2 {
		m, _ := res[i].(string)
		n, _ := res[i+1].(int64)
		job, err := decodeJob(m)
		if err != nil {
			q.log.Warn().Err(err).Str("member", m).Msg("dropping undecodable expiry job")
			_ = q.forget(ctx, m)
			continue
		}
		job.Deliveries = int(n)
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Ack removes a processed job from the inflight set.
func (q *DelayQueue) Ack(ctx context.Context, job model.ExpiryJob) error {
	member, err := encodeJob(job)
	if err != nil {
		return err
	}
	return q.forget(ctx, member)
}

func (q *DelayQueue) forget(ctx context.Context, member string) error {
	_, err := q.c.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.inflight, member)
		pipe.HDel(ctx, q.attempts, member)
		return nil
	})
	return err
}

// DeadLetter parks a job that keeps failing. It leaves the inflight set and is
// never delivered again; operators inspect the dead set by hand.
func (q *DelayQueue) DeadLetter(ctx context.Context, now time.Time, job model.ExpiryJob) error {
	member, err := encodeJob(job)
	if err != nil {
		return err
	}
	_, err = q.c.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.inflight, member)
		pipe.HDel(ctx, q.attempts, member)
		pipe.ZAdd(ctx, q.dead, &redis.Z{Score: float64(now.UnixMilli()), Member: member})
		return nil
	})
	return err
}

// Dead lists parked jobs, oldest first.
func (q *DelayQueue) Dead(ctx context.Context, limit int64) ([]model.ExpiryJob, error) {
	members, err := q.c.cli.ZRange(ctx, q.dead, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.ExpiryJob, 0, len(members))
	for _, m := range members {
		job, err := decodeJob(m)
		if err != nil {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

// KEYS[1]=inflight KEYS[2]=due ARGV[1]=now ms
var luaRequeue = redis.NewScript(`
local items = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
for _, m in ipairs(items) do
	redis.call("ZREM", KEYS[1], m)
	redis.call("ZADD", KEYS[2], ARGV[1], m)
end
return #items`)

// Requeue returns inflight jobs whose visibility deadline passed to the due set.
func (q *DelayQueue) Requeue(ctx context.Context, now time.Time) (int, error) {
	n, err := luaRequeue.Run(ctx, q.c.cli, []string{q.inflight, q.due}, strconv.FormatInt(now.UnixMilli(), 10)).Int()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Depth reports the sizes of the due and inflight sets.
func (q *DelayQueue) Depth(ctx context.Context) (due, inflight int64, err error) {
	pipe := q.c.cli.Pipeline()
	dueCmd := pipe.ZCard(ctx, q.due)
	inflightCmd := pipe.ZCard(ctx, q.inflight)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return dueCmd.Val(), inflightCmd.Val(), nil
}
