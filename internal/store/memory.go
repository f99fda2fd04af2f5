package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gradekit/site-grader/internal/audit"
)

// Memory is an in-memory audit.RecordStore for tests and local runs. It
// enforces the same terminal-status and email-once guards as Postgres.
type Memory struct {
	mu      sync.Mutex
	records map[string]audit.Record
	tiers   map[string]audit.Tier
}

// NewMemory creates an empty in-memory record store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]audit.Record),
		tiers:   make(map[string]audit.Tier),
	}
}

// SetTier registers a subscription tier for lookups.
func (s *Memory) SetTier(userID string, tier audit.Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[userID] = tier
}

// CreateRecord implements audit.RecordStore.
func (s *Memory) CreateRecord(_ context.Context, rec audit.Record) error {
	if rec.AuditID == "" {
		return fmt.Errorf("audit id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.AuditID]; ok {
		return fmt.Errorf("audit record %s already exists", rec.AuditID)
	}
	rec.UpdatedAt = rec.CreatedAt
	s.records[rec.AuditID] = rec
	return nil
}

// GetRecord implements audit.RecordStore.
func (s *Memory) GetRecord(_ context.Context, auditID string) (audit.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[auditID]
	if !ok {
		return audit.Record{}, audit.ErrNotFound
	}
	return rec, nil
}

// SetStatus implements audit.RecordStore.
func (s *Memory) SetStatus(_ context.Context, auditID string, status audit.Status, errText string) error {
	return s.update(auditID, func(rec *audit.Record) {
		rec.Status = status
		rec.ErrorText = errText
	})
}

// SaveScores implements audit.RecordStore.
func (s *Memory) SaveScores(_ context.Context, auditID string, analysis audit.Analysis) error {
	overall := analysis.OverallScore
	perf := analysis.CategoryScore(audit.CategoryPerformance)
	seo := analysis.CategoryScore(audit.CategorySEO)
	conv := analysis.CategoryScore(audit.CategoryConversion)
	brand := analysis.CategoryScore(audit.CategoryBranding)
	pres := analysis.CategoryScore(audit.CategoryPresence)
	return s.update(auditID, func(rec *audit.Record) {
		rec.OverallScore = &overall
		rec.PerformanceScore = &perf
		rec.SEOScore = &seo
		rec.ConversionScore = &conv
		rec.BrandingScore = &brand
		rec.PresenceScore = &pres
	})
}

// SetReportURL implements audit.RecordStore.
func (s *Memory) SetReportURL(_ context.Context, auditID string, url string) error {
	return s.update(auditID, func(rec *audit.Record) {
		rec.ReportPDFURL = &url
	})
}

// MarkEmailSent implements audit.RecordStore.
func (s *Memory) MarkEmailSent(_ context.Context, auditID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[auditID]
	if !ok {
		return audit.ErrNotFound
	}
	if rec.EmailSentAt != nil {
		return nil
	}
	rec.EmailSentAt = &at
	rec.UpdatedAt = at
	s.records[auditID] = rec
	return nil
}

// GetSubscriptionTier implements audit.RecordStore.
func (s *Memory) GetSubscriptionTier(_ context.Context, userID string) (audit.Tier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tier, ok := s.tiers[userID]; ok && tier == audit.TierPro {
		return audit.TierPro, nil
	}
	return audit.TierFree, nil
}

func (s *Memory) update(auditID string, fn func(*audit.Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[auditID]
	if !ok {
		return audit.ErrNotFound
	}
	if rec.Status.Terminal() {
		return audit.ErrTerminal
	}
	fn(&rec)
	rec.UpdatedAt = time.Now().UTC()
	s.records[auditID] = rec
	return nil
}
