// Package store provides persistence for audit records.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gradekit/site-grader/internal/audit"
)

// PostgresConfig controls the Postgres connection pool used for audit rows.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres implements audit.RecordStore on top of a pgx pool.
type Postgres struct {
	pool dbPool
}

// NewPostgres creates a Postgres-backed record store using the provided config.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresWithPool constructs a store from an existing pool (primarily for testing).
func NewPostgresWithPool(pool dbPool) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Postgres) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateRecord inserts a new pending audit row.
func (s *Postgres) CreateRecord(ctx context.Context, rec audit.Record) error {
	if rec.AuditID == "" {
		return fmt.Errorf("audit id is required")
	}
	query := `
INSERT INTO audit_records (
	audit_id,
	website_url,
	status,
	user_id,
	requested_email,
	created_at,
	updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$6)`
	_, err := s.pool.Exec(ctx, query,
		rec.AuditID,
		rec.WebsiteURL,
		rec.Status,
		rec.UserID,
		rec.RequestedEmail,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// GetRecord loads one audit row by ID.
func (s *Postgres) GetRecord(ctx context.Context, auditID string) (audit.Record, error) {
	query := `
SELECT
	audit_id,
	website_url,
	status,
	overall_score,
	performance_score,
	seo_score,
	conversion_score,
	branding_score,
	presence_score,
	report_pdf_url,
	raw_data,
	user_id,
	requested_email,
	error_text,
	email_sent_at,
	created_at,
	updated_at
FROM audit_records
WHERE audit_id = $1`
	var rec audit.Record
	err := s.pool.QueryRow(ctx, query, auditID).Scan(
		&rec.AuditID,
		&rec.WebsiteURL,
		&rec.Status,
		&rec.OverallScore,
		&rec.PerformanceScore,
		&rec.SEOScore,
		&rec.ConversionScore,
		&rec.BrandingScore,
		&rec.PresenceScore,
		&rec.ReportPDFURL,
		&rec.RawData,
		&rec.UserID,
		&rec.RequestedEmail,
		&rec.ErrorText,
		&rec.EmailSentAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.Record{}, audit.ErrNotFound
	}
	if err != nil {
		return audit.Record{}, fmt.Errorf("select audit record: %w", err)
	}
	return rec, nil
}

// SetStatus transitions the record. Terminal rows are guarded in SQL: the
// update matches only non-terminal rows, so a late writer cannot flip a
// completed or failed audit.
func (s *Postgres) SetStatus(ctx context.Context, auditID string, status audit.Status, errText string) error {
	query := `
UPDATE audit_records
SET status = $2, error_text = $3, updated_at = now()
WHERE audit_id = $1 AND status NOT IN ('completed','failed')`
	tag, err := s.pool.Exec(ctx, query, auditID, status, errText)
	if err != nil {
		return fmt.Errorf("update audit status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.guardMiss(ctx, auditID)
	}
	return nil
}

// SaveScores persists category and overall scores plus the raw analysis
// JSON. Scores written here survive later pipeline failures.
func (s *Postgres) SaveScores(ctx context.Context, auditID string, analysis audit.Analysis) error {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	query := `
UPDATE audit_records
SET overall_score = $2,
	performance_score = $3,
	seo_score = $4,
	conversion_score = $5,
	branding_score = $6,
	presence_score = $7,
	raw_data = $8,
	updated_at = now()
WHERE audit_id = $1 AND status NOT IN ('completed','failed')`
	tag, err := s.pool.Exec(ctx, query,
		auditID,
		analysis.OverallScore,
		analysis.CategoryScore(audit.CategoryPerformance),
		analysis.CategoryScore(audit.CategorySEO),
		analysis.CategoryScore(audit.CategoryConversion),
		analysis.CategoryScore(audit.CategoryBranding),
		analysis.CategoryScore(audit.CategoryPresence),
		raw,
	)
	if err != nil {
		return fmt.Errorf("update audit scores: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.guardMiss(ctx, auditID)
	}
	return nil
}

// SetReportURL records the public PDF location.
func (s *Postgres) SetReportURL(ctx context.Context, auditID string, url string) error {
	query := `
UPDATE audit_records
SET report_pdf_url = $2, updated_at = now()
WHERE audit_id = $1 AND status NOT IN ('completed','failed')`
	tag, err := s.pool.Exec(ctx, query, auditID, url)
	if err != nil {
		return fmt.Errorf("update report url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.guardMiss(ctx, auditID)
	}
	return nil
}

// MarkEmailSent stamps the email-sent time once. A second call is a no-op
// at the SQL level, which keeps retried jobs from re-sending mail.
func (s *Postgres) MarkEmailSent(ctx context.Context, auditID string, at time.Time) error {
	query := `
UPDATE audit_records
SET email_sent_at = $2, updated_at = now()
WHERE audit_id = $1 AND email_sent_at IS NULL`
	if _, err := s.pool.Exec(ctx, query, auditID, at); err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	return nil
}

// GetSubscriptionTier looks up the user's tier. A missing row means free;
// real query failures are surfaced so the caller can decide to degrade.
func (s *Postgres) GetSubscriptionTier(ctx context.Context, userID string) (audit.Tier, error) {
	if userID == "" {
		return audit.TierFree, nil
	}
	query := `SELECT tier FROM subscriptions WHERE user_id = $1 AND active`
	var tier audit.Tier
	err := s.pool.QueryRow(ctx, query, userID).Scan(&tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.TierFree, nil
	}
	if err != nil {
		return audit.TierFree, fmt.Errorf("select subscription tier: %w", err)
	}
	if tier != audit.TierPro {
		return audit.TierFree, nil
	}
	return tier, nil
}

// guardMiss distinguishes an unknown record from a terminal one after a
// guarded update matched nothing.
func (s *Postgres) guardMiss(ctx context.Context, auditID string) error {
	var status audit.Status
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM audit_records WHERE audit_id = $1`, auditID,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("select audit status: %w", err)
	}
	if status.Terminal() {
		return audit.ErrTerminal
	}
	return audit.ErrNotFound
}
