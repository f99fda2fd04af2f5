package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gradekit/site-grader/internal/audit"
)

type fixedPolicy struct {
	max     int
	backoff time.Duration
}

func (p fixedPolicy) MaxAttempts() int {
	return p.max
}

func (p fixedPolicy) Backoff(_ int) time.Duration {
	return p.backoff
}

func TestMemory_EnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewMemory(1, nil, nil)
	require.NoError(t, q.Enqueue(context.Background(), audit.Job{AuditID: "audit-1"}))

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "audit-1", job.AuditID)
	require.Equal(t, 1, job.Attempt, "first delivery is attempt 1")
	require.NoError(t, q.Ack(context.Background(), job))
}

func TestMemory_CancelationErrors(t *testing.T) {
	t.Parallel()

	q := NewMemory(1, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Dequeue(ctx)
	require.EqualError(t, err, "dequeue canceled: context canceled")

	require.NoError(t, q.Enqueue(context.Background(), audit.Job{AuditID: "primed"}))
	err = q.Enqueue(ctx, audit.Job{AuditID: "blocked"})
	require.EqualError(t, err, "enqueue canceled: context canceled")
}

func TestMemory_NackRedelivers(t *testing.T) {
	t.Parallel()

	q := NewMemory(1, fixedPolicy{max: 3, backoff: time.Millisecond}, nil)
	require.NoError(t, q.Enqueue(context.Background(), audit.Job{AuditID: "audit-1"}))

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)

	next, err := q.Nack(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, 2, next)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	redelivered, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "audit-1", redelivered.AuditID)
	require.Equal(t, 2, redelivered.Attempt)
}

func TestMemory_NackExhausted(t *testing.T) {
	t.Parallel()

	q := NewMemory(1, fixedPolicy{max: 3, backoff: time.Millisecond}, nil)
	next, err := q.Nack(context.Background(), audit.Job{AuditID: "audit-1", Attempt: 3})
	require.NoError(t, err)
	require.Zero(t, next, "exhausted job is not redelivered")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = q.Dequeue(ctx)
	require.Error(t, err)
}

func TestMemory_NackDropLogged(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	q := NewMemory(1, fixedPolicy{max: 3, backoff: time.Millisecond}, zap.New(core))

	// Fill the only slot so the redelivery has nowhere to land.
	require.NoError(t, q.Enqueue(context.Background(), audit.Job{AuditID: "filler"}))

	next, err := q.Nack(context.Background(), audit.Job{AuditID: "audit-1", Attempt: 1})
	require.NoError(t, err)
	require.Equal(t, 2, next)

	require.Eventually(t, func() bool {
		return logs.FilterMessageSnippet("dropping retry").Len() == 1
	}, time.Second, 5*time.Millisecond)
	entry := logs.FilterMessageSnippet("dropping retry").All()[0]
	require.Equal(t, "audit-1", entry.ContextMap()["audit_id"])
}

func TestMemory_Close(t *testing.T) {
	t.Parallel()

	q := NewMemory(1, nil, nil)
	q.Close()
	_, err := q.Dequeue(context.Background())
	require.EqualError(t, err, "queue closed")
	// Closing twice should be safe.
	q.Close()
}
