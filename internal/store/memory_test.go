package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gradekit/site-grader/internal/audit"
)

func seedRecord(t *testing.T, s *Memory, status audit.Status) audit.Record {
	t.Helper()
	rec := audit.Record{
		AuditID:        "audit-1",
		WebsiteURL:     "https://example.com",
		Status:         audit.StatusPending,
		RequestedEmail: "owner@example.com",
		CreatedAt:      time.Unix(1700000000, 0).UTC(),
	}
	require.NoError(t, s.CreateRecord(context.Background(), rec))
	if status != audit.StatusPending {
		require.NoError(t, s.SetStatus(context.Background(), rec.AuditID, status, ""))
	}
	return rec
}

func TestMemory_CreateAndGet(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	rec := seedRecord(t, s, audit.StatusPending)

	got, err := s.GetRecord(context.Background(), rec.AuditID)
	require.NoError(t, err)
	require.Equal(t, audit.StatusPending, got.Status)
	require.Equal(t, rec.CreatedAt, got.UpdatedAt)

	_, err = s.GetRecord(context.Background(), "ghost")
	require.ErrorIs(t, err, audit.ErrNotFound)

	require.Error(t, s.CreateRecord(context.Background(), rec), "duplicate id")
}

func TestMemory_TerminalStatusFrozen(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	rec := seedRecord(t, s, audit.StatusCompleted)

	err := s.SetStatus(context.Background(), rec.AuditID, audit.StatusFailed, "late")
	require.ErrorIs(t, err, audit.ErrTerminal)
	err = s.SetReportURL(context.Background(), rec.AuditID, "https://blob/late.pdf")
	require.ErrorIs(t, err, audit.ErrTerminal)

	got, err := s.GetRecord(context.Background(), rec.AuditID)
	require.NoError(t, err)
	require.Equal(t, audit.StatusCompleted, got.Status)
	require.Nil(t, got.ReportPDFURL)
}

func TestMemory_SaveScores(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	rec := seedRecord(t, s, audit.StatusProcessing)

	analysis := audit.Analysis{
		Categories: []audit.CategoryResult{
			{Category: audit.CategoryPerformance, Score: 65},
			{Category: audit.CategorySEO, Score: 60},
			{Category: audit.CategoryConversion, Score: 50},
			{Category: audit.CategoryBranding, Score: 100},
			{Category: audit.CategoryPresence, Score: 33},
		},
		OverallScore: 62,
	}
	require.NoError(t, s.SaveScores(context.Background(), rec.AuditID, analysis))

	got, err := s.GetRecord(context.Background(), rec.AuditID)
	require.NoError(t, err)
	require.Equal(t, 62, *got.OverallScore)
	require.Equal(t, 100, *got.BrandingScore)
	require.Equal(t, 33, *got.PresenceScore)
}

func TestMemory_MarkEmailSentOnce(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	rec := seedRecord(t, s, audit.StatusProcessing)

	first := time.Unix(1700000000, 0).UTC()
	second := first.Add(time.Hour)
	require.NoError(t, s.MarkEmailSent(context.Background(), rec.AuditID, first))
	require.NoError(t, s.MarkEmailSent(context.Background(), rec.AuditID, second))

	got, err := s.GetRecord(context.Background(), rec.AuditID)
	require.NoError(t, err)
	require.Equal(t, first, *got.EmailSentAt)
}

func TestMemory_SubscriptionTier(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	s.SetTier("user-pro", audit.TierPro)

	tier, err := s.GetSubscriptionTier(context.Background(), "user-pro")
	require.NoError(t, err)
	require.Equal(t, audit.TierPro, tier)

	tier, err = s.GetSubscriptionTier(context.Background(), "unknown")
	require.NoError(t, err)
	require.Equal(t, audit.TierFree, tier)
}
