package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/gradekit/site-grader/internal/audit"
	"github.com/gradekit/site-grader/internal/pagespeed"
)

const (
	httpsProbeTimeout = 10 * time.Second

	// Category weighting: measured speed dominates, transport security
	// contributes the rest.
	speedWeight = 0.7
	httpsWeight = 0.3

	// A continuous speed score at or above this counts as passing for the
	// report's findings section.
	speedPassThreshold = 50
)

// Performance combines the external speed measurement with an HTTPS probe.
// It is the only analyzer that performs network calls of its own; both
// degrade rather than error.
type Performance struct {
	speed  *pagespeed.Client
	client *http.Client
	logger *zap.Logger
}

// NewPerformance builds the performance analyzer.
func NewPerformance(speed *pagespeed.Client, client *http.Client, logger *zap.Logger) *Performance {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Performance{speed: speed, client: client, logger: logger}
}

// Category implements Analyzer.
func (a *Performance) Category() audit.Category { return audit.CategoryPerformance }

// Analyze implements Analyzer.
func (a *Performance) Analyze(ctx context.Context, _ *goquery.Document, finalURL string) audit.CategoryResult {
	checks := []audit.CheckResult{
		a.checkPageSpeed(ctx, finalURL),
		a.checkHTTPS(ctx, finalURL),
	}
	return audit.CategoryResult{
		Category: audit.CategoryPerformance,
		Score:    audit.CategoryScore(checks),
		Checks:   checks,
	}
}

func (a *Performance) checkPageSpeed(ctx context.Context, finalURL string) audit.CheckResult {
	score, evidence := a.speed.Score(ctx, finalURL)
	return audit.CheckResult{
		Kind:     audit.CheckPageSpeed,
		Passed:   score >= speedPassThreshold,
		Score:    score,
		Weight:   speedWeight,
		Evidence: evidence,
	}
}

func (a *Performance) checkHTTPS(ctx context.Context, finalURL string) audit.CheckResult {
	fail := func(evidence string) audit.CheckResult {
		return audit.CheckResult{Kind: audit.CheckHTTPS, Score: audit.ScoreFail, Weight: httpsWeight, Evidence: evidence}
	}

	parsed, err := url.Parse(finalURL)
	if err != nil {
		return fail("unparseable URL")
	}
	if parsed.Scheme != "https" {
		return fail(fmt.Sprintf("site served over %s", parsed.Scheme))
	}

	probeCtx, cancel := context.WithTimeout(ctx, httpsProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, finalURL, nil)
	if err != nil {
		return fail("https probe could not be built")
	}
	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("https probe failed", zap.String("url", finalURL), zap.Error(err))
		return fail("tls connection failed")
	}
	defer resp.Body.Close()

	return audit.CheckResult{
		Kind:     audit.CheckHTTPS,
		Passed:   true,
		Score:    audit.ScorePass,
		Weight:   httpsWeight,
		Evidence: "valid https",
	}
}
