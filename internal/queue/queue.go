// Package queue implements named, Redis-backed job queues: a work list per
// queue, a delay sorted-set for retry backoff, and a dead-letter list for
// jobs that exhaust their attempts.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	r "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chattyapp/chatty-server/internal/domain"
)

type Options struct {
	MaxAttempts int
	Backoff     time.Duration
}

func defaultOptions() Options {
	return Options{MaxAttempts: 3, Backoff: 5 * time.Second}
}

// Queue is one named queue. Independent queues share a Redis client but
// nothing else; each has its own retry policy.
type Queue struct {
	name string
	rdb  *r.Client
	log  *zap.Logger
	opts Options
}

func New(name string, rdb *r.Client, log *zap.Logger, opts ...Options) *Queue {
	o := defaultOptions()
	if len(opts) > 0 {
		if opts[0].MaxAttempts > 0 {
			o.MaxAttempts = opts[0].MaxAttempts
		}
		if opts[0].Backoff > 0 {
			o.Backoff = opts[0].Backoff
		}
	}
	return &Queue{name: name, rdb: rdb, log: log.Named(name + "Queue"), opts: o}
}

func (q *Queue) Name() string { return q.name }

func (q *Queue) workKey() string  { return "queue:" + q.name }
func (q *Queue) delayKey() string { return "delay:" + q.name }
func (q *Queue) deadKey() string  { return "dead:" + q.name }

// Enqueue submits a job and returns its handle. Submission is fire-and-forget
// from the caller's perspective: the job handle may be ignored, and nothing
// blocks on the job ever running.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload any) (*domain.Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal job payload")
	}
	job := &domain.Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Payload:     raw,
		Attempt:     0,
		MaxAttempts: q.opts.MaxAttempts,
		EnqueuedAt:  time.Now().UTC(),
	}
	if err := q.push(ctx, job); err != nil {
		return nil, err
	}
	q.log.Debug("job enqueued", zap.String("jobId", job.ID), zap.String("jobType", jobType))
	return job, nil
}

func (q *Queue) push(ctx context.Context, job *domain.Job) error {
	env, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "marshal job envelope")
	}
	return errors.Wrap(q.rdb.LPush(ctx, q.workKey(), env).Err(), "push job")
}

// dequeue blocks up to the given duration for the next job. A nil job with a
// nil error means the wait timed out.
func (q *Queue) dequeue(ctx context.Context, block time.Duration) (*domain.Job, error) {
	res, err := q.rdb.BRPop(ctx, block, q.workKey()).Result()
	if err == r.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		return nil, nil
	}
	var job domain.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, errors.Wrap(err, "decode job envelope")
	}
	return &job, nil
}

// retry schedules the failed job into the delay set with exponential backoff,
// or dead-letters it once its attempts are spent.
func (q *Queue) retry(ctx context.Context, job *domain.Job, cause error) error {
	job.Attempt++
	job.LastError = cause.Error()
	env, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "marshal job envelope")
	}
	if job.Attempt >= job.MaxAttempts {
		q.log.Error("job failed permanently",
			zap.String("jobId", job.ID),
			zap.String("jobType", job.Type),
			zap.Int("attempts", job.Attempt),
			zap.Error(cause))
		return errors.Wrap(q.rdb.LPush(ctx, q.deadKey(), env).Err(), "dead-letter job")
	}
	backoff := q.opts.Backoff << (job.Attempt - 1)
	due := time.Now().Add(backoff)
	q.log.Warn("job failed, retrying",
		zap.String("jobId", job.ID),
		zap.String("jobType", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Duration("backoff", backoff),
		zap.Error(cause))
	return errors.Wrap(
		q.rdb.ZAdd(ctx, q.delayKey(), r.Z{Score: float64(due.Unix()), Member: string(env)}).Err(),
		"schedule retry")
}

// MoveDue moves delayed jobs whose due time has passed back onto the work
// list, at most batch per call.
func (q *Queue) MoveDue(ctx context.Context, now int64, batch int64) error {
	members, err := q.rdb.ZRangeByScore(ctx, q.delayKey(), &r.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%d", now), Offset: 0, Count: batch,
	}).Result()
	if err != nil || len(members) == 0 {
		return err
	}
	pipe := q.rdb.TxPipeline()
	for _, m := range members {
		pipe.LPush(ctx, q.workKey(), m)
		pipe.ZRem(ctx, q.delayKey(), m)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Stats is the queue's monitoring surface. Permanently failed jobs appear
// only here; they are never reported back to the request that enqueued them.
type Stats struct {
	Queued  int64 `json:"queued"`
	Delayed int64 `json:"delayed"`
	Dead    int64 `json:"dead"`
}

func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.rdb.TxPipeline()
	queued := pipe.LLen(ctx, q.workKey())
	delayed := pipe.ZCard(ctx, q.delayKey())
	dead := pipe.LLen(ctx, q.deadKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "queue stats")
	}
	return Stats{Queued: queued.Val(), Delayed: delayed.Val(), Dead: dead.Val()}, nil
}
