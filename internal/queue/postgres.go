// Package queue provides durable delivery of audit jobs.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/gradekit/site-grader/internal/audit"
)

// RetryPolicy decides redelivery scheduling for nacked jobs.
type RetryPolicy interface {
	MaxAttempts() int
	Backoff(attempt int) time.Duration
}

// PostgresConfig controls the job table connection and claim behavior.
type PostgresConfig struct {
	DSN          string
	Lease        time.Duration
	PollInterval time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres implements audit.Queue on a jobs table. Claims take a lease so
// a crashed worker's job returns to pending once the lease expires.
type Postgres struct {
	pool   dbPool
	policy RetryPolicy
	lease  time.Duration
	poll   time.Duration
	logger *zap.Logger
}

// NewPostgres connects and builds a Postgres-backed queue.
func NewPostgres(ctx context.Context, cfg PostgresConfig, policy RetryPolicy, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newPostgres(pool, cfg, policy, logger), nil
}

// NewPostgresWithPool constructs a queue from an existing pool (primarily for testing).
func NewPostgresWithPool(pool dbPool, cfg PostgresConfig, policy RetryPolicy, logger *zap.Logger) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newPostgres(pool, cfg, policy, logger), nil
}

func newPostgres(pool dbPool, cfg PostgresConfig, policy RetryPolicy, logger *zap.Logger) *Postgres {
	if policy == nil {
		policy = audit.NewExponentialRetryPolicy()
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 5 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{
		pool:   pool,
		policy: policy,
		lease:  cfg.Lease,
		poll:   cfg.PollInterval,
		logger: logger,
	}
}

// Close releases the underlying pool resources.
func (q *Postgres) Close() {
	if q == nil || q.pool == nil {
		return
	}
	q.pool.Close()
}

// Enqueue inserts a pending job. Re-enqueueing an audit that is already
// queued is a conflict no-op, so a double submit cannot double-run.
func (q *Postgres) Enqueue(ctx context.Context, job audit.Job) error {
	if job.AuditID == "" {
		return fmt.Errorf("audit id is required")
	}
	attempt := job.Attempt
	if attempt <= 0 {
		attempt = 1
	}
	query := `
INSERT INTO audit_jobs (
	audit_id,
	website_url,
	user_email,
	user_id,
	attempt,
	status,
	run_at,
	created_at,
	updated_at
) VALUES ($1,$2,$3,$4,$5,'pending',now(),now(),now())
ON CONFLICT (audit_id) DO NOTHING`
	_, err := q.pool.Exec(ctx, query,
		job.AuditID, job.WebsiteURL, job.UserEmail, job.UserID, attempt)
	if err != nil {
		return fmt.Errorf("enqueue audit job: %w", err)
	}
	return nil
}

const claimSQL = `
WITH next AS (
	SELECT audit_id FROM audit_jobs
	WHERE status = 'pending' AND run_at <= now()
	ORDER BY run_at ASC, created_at ASC
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
UPDATE audit_jobs j
SET status = 'running',
	lease_expires_at = now() + $1,
	updated_at = now()
FROM next
WHERE j.audit_id = next.audit_id
RETURNING j.audit_id, j.website_url, j.user_email, j.user_id, j.attempt`

// Dequeue claims the next due job, polling until one is available or the
// context ends. Each poll first returns expired leases to pending.
func (q *Postgres) Dequeue(ctx context.Context) (audit.Job, error) {
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return audit.Job{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
		default:
		}
		if err := q.requeueExpired(ctx); err != nil {
			q.logger.Warn("requeue expired leases failed", zap.Error(err))
		}
		job, err := q.claim(ctx)
		if err == nil {
			return job, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return audit.Job{}, err
		}
		select {
		case <-ctx.Done():
			return audit.Job{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (q *Postgres) claim(ctx context.Context) (audit.Job, error) {
	var job audit.Job
	var userID *string
	err := q.pool.QueryRow(ctx, claimSQL, q.lease).Scan(
		&job.AuditID, &job.WebsiteURL, &job.UserEmail, &userID, &job.Attempt)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.Job{}, err
	}
	if err != nil {
		return audit.Job{}, fmt.Errorf("claim audit job: %w", err)
	}
	if userID != nil {
		job.UserID = *userID
	}
	return job, nil
}

func (q *Postgres) requeueExpired(ctx context.Context) error {
	tag, err := q.pool.Exec(ctx, `
UPDATE audit_jobs
SET status = 'pending', lease_expires_at = NULL, updated_at = now()
WHERE status = 'running'
	AND lease_expires_at IS NOT NULL
	AND lease_expires_at < now()`)
	if err != nil {
		return err
	}
	if n := tag.RowsAffected(); n > 0 {
		q.logger.Info("requeued expired job leases", zap.Int64("count", n))
	}
	return nil
}

// Ack deletes the finished job.
func (q *Postgres) Ack(ctx context.Context, job audit.Job) error {
	if _, err := q.pool.Exec(ctx,
		`DELETE FROM audit_jobs WHERE audit_id = $1`, job.AuditID); err != nil {
		return fmt.Errorf("ack audit job: %w", err)
	}
	return nil
}

// Nack schedules redelivery with backoff, or drops the job when its
// attempts are exhausted. It returns the attempt that will run next, 0 on
// exhaustion.
func (q *Postgres) Nack(ctx context.Context, job audit.Job) (int, error) {
	if job.Attempt >= q.policy.MaxAttempts() {
		if _, err := q.pool.Exec(ctx,
			`DELETE FROM audit_jobs WHERE audit_id = $1`, job.AuditID); err != nil {
			return 0, fmt.Errorf("drop exhausted job: %w", err)
		}
		return 0, nil
	}
	next := job.Attempt + 1
	backoff := q.policy.Backoff(job.Attempt)
	query := `
UPDATE audit_jobs
SET status = 'pending',
	attempt = $2,
	run_at = now() + $3,
	lease_expires_at = NULL,
	updated_at = now()
WHERE audit_id = $1 AND status = 'running'`
	if _, err := q.pool.Exec(ctx, query, job.AuditID, next, backoff); err != nil {
		return 0, fmt.Errorf("nack audit job: %w", err)
	}
	return next, nil
}
