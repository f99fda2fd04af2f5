package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gradekit/site-grader/internal/audit"
)

// Memory is a bounded in-memory audit.Queue for local development and
// tests. Delivery is at-least-once within one process; nacked jobs come
// back after the policy's backoff with the attempt bumped.
type Memory struct {
	ch      chan audit.Job
	policy  RetryPolicy
	logger  *zap.Logger
	closeMu sync.Mutex
	closed  bool
}

// NewMemory constructs a queue with the provided capacity.
func NewMemory(capacity int, policy RetryPolicy, logger *zap.Logger) *Memory {
	if policy == nil {
		policy = audit.NewExponentialRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		ch:     make(chan audit.Job, capacity),
		policy: policy,
		logger: logger,
	}
}

// Enqueue pushes a job or returns if the context ends.
func (q *Memory) Enqueue(ctx context.Context, job audit.Job) error {
	if job.Attempt <= 0 {
		job.Attempt = 1
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- job:
		return nil
	}
}

// Dequeue pops the next job, respecting context cancellation.
func (q *Memory) Dequeue(ctx context.Context) (audit.Job, error) {
	select {
	case <-ctx.Done():
		return audit.Job{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case job, ok := <-q.ch:
		if !ok {
			return audit.Job{}, errors.New("queue closed")
		}
		return job, nil
	}
}

// Ack is a no-op: a dequeued job is already off the channel.
func (q *Memory) Ack(_ context.Context, _ audit.Job) error {
	return nil
}

// Nack redelivers the job after backoff with the attempt bumped, or drops
// it when attempts are exhausted.
func (q *Memory) Nack(_ context.Context, job audit.Job) (int, error) {
	if job.Attempt >= q.policy.MaxAttempts() {
		return 0, nil
	}
	job.Attempt++
	time.AfterFunc(q.policy.Backoff(job.Attempt-1), func() {
		q.closeMu.Lock()
		defer q.closeMu.Unlock()
		if q.closed {
			return
		}
		select {
		case q.ch <- job:
		default:
			// The lease reaper model does not apply in memory, so a full
			// queue loses the retry for good.
			q.logger.Warn("memory queue full, dropping retry",
				zap.String("audit_id", job.AuditID),
				zap.Int("attempt", job.Attempt))
		}
	})
	return job.Attempt, nil
}

// Close closes the underlying channel for shutdown.
func (q *Memory) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
