// Package worker runs the background side of the sync service: an
// interval scheduler that enqueues jobs, a Redis-backed job queue, and
// the worker loop that executes sync runs under a per-content-type
// distributed lock.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cpconnect/chms-sync/internal/domain"
)

// jobsKey is the Redis list the scheduler pushes to and workers pop from.
const jobsKey = "chms_sync:jobs"

// Job is one queued sync request.
type Job struct {
	ID          uuid.UUID          `json:"id"`
	ContentType domain.ContentType `json:"content_type"`
	Force       bool               `json:"force"`
	EnqueuedAt  time.Time          `json:"enqueued_at"`
}

// NewJob creates a job for a content type.
func NewJob(ct domain.ContentType, force bool) Job {
	return Job{
		ID:          uuid.New(),
		ContentType: ct,
		Force:       force,
		EnqueuedAt:  time.Now().UTC(),
	}
}

// Queue is a FIFO job queue on a Redis list.
type Queue struct {
	client *redis.Client
}

// NewQueue creates a Redis-backed job queue.
func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Enqueue pushes a job onto the queue.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, jobsKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job. Returns (nil, nil)
// when the timeout passes with an empty queue.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BRPop(ctx, timeout, jobsKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue job: %w", err)
	}
	// BRPop returns [key, value].
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// Length returns the number of queued jobs.
func (q *Queue) Length(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, jobsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}
