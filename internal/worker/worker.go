// Package worker implements the audit pipeline execution loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gradekit/site-grader/internal/audit"
	"github.com/gradekit/site-grader/internal/metrics"
)

// Analyzer runs the category heuristics over a fetched page.
type Analyzer interface {
	Analyze(ctx context.Context, page audit.Page) (audit.Analysis, error)
}

// Config controls Worker behavior.
type Config struct {
	ContentType string
	BlobPrefix  string
	Topic       string
	// DequeueRetryDelay paces the consume loop after a dequeue error.
	DequeueRetryDelay time.Duration
}

// Worker consumes audit jobs and executes the grade pipeline: fetch,
// analyze, persist scores, render, upload, email, publish. Scores are
// saved before the render stage, so an audit that fails later keeps them.
type Worker struct {
	queue     audit.Queue
	records   audit.RecordStore
	blobStore audit.BlobStore
	fetcher   audit.Fetcher
	analyzer  Analyzer
	renderer  audit.Renderer
	mailer    audit.Mailer
	publisher audit.Publisher
	hasher    audit.Hasher
	clock     audit.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. The publisher may be nil when completion events
// are not configured.
func New(
	queue audit.Queue,
	records audit.RecordStore,
	blobStore audit.BlobStore,
	fetcher audit.Fetcher,
	analyzer Analyzer,
	renderer audit.Renderer,
	mailer audit.Mailer,
	publisher audit.Publisher,
	hasher audit.Hasher,
	clock audit.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.ContentType == "" {
		cfg.ContentType = "application/pdf"
	}
	if cfg.BlobPrefix == "" {
		cfg.BlobPrefix = "reports"
	}
	if cfg.DequeueRetryDelay <= 0 {
		cfg.DequeueRetryDelay = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Worker{
		queue:     queue,
		records:   records,
		blobStore: blobStore,
		fetcher:   fetcher,
		analyzer:  analyzer,
		renderer:  renderer,
		mailer:    mailer,
		publisher: publisher,
		hasher:    hasher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, consuming jobs until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			// A broken backend would otherwise spin this loop flat out.
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.cfg.DequeueRetryDelay):
			}
			continue
		}
		w.logger.Debug("dequeued audit job",
			zap.String("audit_id", job.AuditID),
			zap.Int("attempt", job.Attempt),
		)
		w.processJob(ctx, job)
	}
}

func (w *Worker) processJob(ctx context.Context, job audit.Job) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	if err := w.records.SetStatus(ctx, job.AuditID, audit.StatusProcessing, ""); err != nil {
		if errors.Is(err, audit.ErrTerminal) {
			// A redelivered job for a finished audit: nothing left to do.
			w.logger.Info("audit already finished, dropping job", zap.String("audit_id", job.AuditID))
			w.ack(ctx, job)
			return
		}
		if errors.Is(err, audit.ErrNotFound) {
			w.logger.Warn("audit record missing, dropping job", zap.String("audit_id", job.AuditID))
			w.ack(ctx, job)
			return
		}
		w.logger.Error("mark processing failed", zap.String("audit_id", job.AuditID), zap.Error(err))
		w.fail(ctx, job, fmt.Errorf("mark processing: %w", err))
		return
	}

	page, err := w.fetchPage(ctx, job)
	if err != nil {
		w.fail(ctx, job, err)
		return
	}

	analysis, err := w.analyze(ctx, job, page)
	if err != nil {
		w.fail(ctx, job, err)
		return
	}

	if err := w.records.SaveScores(ctx, job.AuditID, analysis); err != nil {
		w.fail(ctx, job, fmt.Errorf("save scores: %w", err))
		return
	}

	reportURL, pdf, err := w.renderAndStore(ctx, job, analysis)
	if err != nil {
		w.fail(ctx, job, err)
		return
	}

	w.sendEmail(ctx, job, reportURL, pdf)

	if err := w.records.SetStatus(ctx, job.AuditID, audit.StatusCompleted, ""); err != nil {
		w.fail(ctx, job, fmt.Errorf("mark completed: %w", err))
		return
	}

	w.publishCompletion(ctx, job, analysis, reportURL)
	w.ack(ctx, job)

	metrics.ObserveJob("completed")
	metrics.ObserveScore(analysis.OverallScore)
	w.logger.Info("audit completed",
		zap.String("audit_id", job.AuditID),
		zap.Int("overall_score", analysis.OverallScore),
	)
}

func (w *Worker) fetchPage(ctx context.Context, job audit.Job) (audit.Page, error) {
	start := time.Now()
	page, err := w.fetcher.Fetch(ctx, job.WebsiteURL)
	metrics.ObserveStage("fetch", time.Since(start))
	if err != nil {
		return audit.Page{}, fmt.Errorf("fetch %s: %w", job.WebsiteURL, err)
	}
	return page, nil
}

func (w *Worker) analyze(ctx context.Context, job audit.Job, page audit.Page) (audit.Analysis, error) {
	start := time.Now()
	analysis, err := w.analyzer.Analyze(ctx, page)
	metrics.ObserveStage("analyze", time.Since(start))
	if err != nil {
		return audit.Analysis{}, fmt.Errorf("analyze %s: %w", job.AuditID, err)
	}
	return analysis, nil
}

// renderAndStore builds the tier-gated PDF and uploads it under a
// content-addressed path. Re-running the same analysis lands on the same
// object, which makes redelivered jobs idempotent at the blob layer.
func (w *Worker) renderAndStore(ctx context.Context, job audit.Job, analysis audit.Analysis) (string, []byte, error) {
	tier, err := w.records.GetSubscriptionTier(ctx, job.UserID)
	if err != nil {
		w.logger.Warn("tier lookup failed, degrading to free",
			zap.String("audit_id", job.AuditID), zap.Error(err))
		tier = audit.TierFree
	}

	start := time.Now()
	pdf, err := w.renderer.Render(job.WebsiteURL, analysis, tier)
	metrics.ObserveStage("render", time.Since(start))
	if err != nil {
		return "", nil, fmt.Errorf("render report: %w", err)
	}

	hash, err := w.hasher.Hash(pdf)
	if err != nil {
		return "", nil, fmt.Errorf("hash report: %w", err)
	}

	start = time.Now()
	url, err := w.blobStore.PutObject(ctx, w.buildBlobPath(job.AuditID, hash), w.cfg.ContentType, pdf)
	metrics.ObserveStage("upload", time.Since(start))
	if err != nil {
		return "", nil, fmt.Errorf("upload report: %w", err)
	}

	if err := w.records.SetReportURL(ctx, job.AuditID, url); err != nil {
		return "", nil, fmt.Errorf("save report url: %w", err)
	}
	return url, pdf, nil
}

// sendEmail is best effort: a delivery failure never fails the audit. The
// persisted email_sent_at stamp keeps redelivered jobs from mailing twice.
func (w *Worker) sendEmail(ctx context.Context, job audit.Job, reportURL string, pdf []byte) {
	if job.UserEmail == "" {
		return
	}
	rec, err := w.records.GetRecord(ctx, job.AuditID)
	if err == nil && rec.EmailSentAt != nil {
		w.logger.Debug("email already sent, skipping", zap.String("audit_id", job.AuditID))
		return
	}

	start := time.Now()
	err = w.mailer.SendReport(ctx, job.UserEmail, job.WebsiteURL, reportURL, pdf)
	metrics.ObserveStage("email", time.Since(start))
	if err != nil {
		metrics.ObserveEmail("failed")
		w.logger.Warn("report email failed",
			zap.String("audit_id", job.AuditID), zap.Error(err))
		return
	}
	metrics.ObserveEmail("sent")
	if err := w.records.MarkEmailSent(ctx, job.AuditID, w.clock.Now()); err != nil {
		w.logger.Warn("mark email sent failed",
			zap.String("audit_id", job.AuditID), zap.Error(err))
	}
}

func (w *Worker) publishCompletion(ctx context.Context, job audit.Job, analysis audit.Analysis, reportURL string) {
	if w.publisher == nil || w.cfg.Topic == "" {
		return
	}
	event := map[string]any{
		"audit_id":       job.AuditID,
		"website_url":    job.WebsiteURL,
		"status":         audit.StatusCompleted,
		"overall_score":  analysis.OverallScore,
		"report_pdf_url": reportURL,
	}
	if _, err := w.publisher.Publish(ctx, w.cfg.Topic, event); err != nil {
		w.logger.Warn("publish completion event failed",
			zap.String("audit_id", job.AuditID), zap.Error(err))
	}
}

// fail hands the job back to the queue. When attempts remain the record
// returns to pending for the retry; on exhaustion it is marked failed for
// good.
func (w *Worker) fail(ctx context.Context, job audit.Job, cause error) {
	w.logger.Error("audit attempt failed",
		zap.String("audit_id", job.AuditID),
		zap.Int("attempt", job.Attempt),
		zap.Error(cause),
	)

	next, err := w.queue.Nack(ctx, job)
	if err != nil {
		w.logger.Error("nack failed", zap.String("audit_id", job.AuditID), zap.Error(err))
	}
	if next > 0 {
		metrics.ObserveJob("retried")
		if err := w.records.SetStatus(ctx, job.AuditID, audit.StatusPending, ""); err != nil {
			w.logger.Error("return to pending failed",
				zap.String("audit_id", job.AuditID), zap.Error(err))
		}
		return
	}

	metrics.ObserveJob("failed")
	if err := w.records.SetStatus(ctx, job.AuditID, audit.StatusFailed, cause.Error()); err != nil {
		w.logger.Error("mark failed failed",
			zap.String("audit_id", job.AuditID), zap.Error(err))
	}
}

func (w *Worker) ack(ctx context.Context, job audit.Job) {
	if err := w.queue.Ack(ctx, job); err != nil {
		w.logger.Warn("ack failed", zap.String("audit_id", job.AuditID), zap.Error(err))
	}
}

func (w *Worker) buildBlobPath(auditID, hash string) string {
	prefix := strings.Trim(w.cfg.BlobPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.pdf", auditID, hash)
	}
	return fmt.Sprintf("%s/%s/%s.pdf", prefix, auditID, hash)
}
