// Package analyzer runs the category heuristics against a fetched page.
package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gradekit/site-grader/internal/audit"
	"github.com/gradekit/site-grader/internal/pagespeed"
)

// Analyzer scores one category of a parsed page. Implementations are
// stateless; any network dependency they carry must catch its own errors
// and degrade rather than fail the audit.
type Analyzer interface {
	Category() audit.Category
	Analyze(ctx context.Context, doc *goquery.Document, finalURL string) audit.CategoryResult
}

// Config controls the runner.
type Config struct {
	SnapshotBytes int
}

// Runner fans the five analyzers out over one parsed document and joins
// the results into an Analysis.
type Runner struct {
	analyzers []Analyzer
	cfg       Config
	clock     audit.Clock
	logger    *zap.Logger
}

// NewRunner wires the standard five analyzers.
func NewRunner(
	speed *pagespeed.Client,
	headClient *http.Client,
	cfg Config,
	clock audit.Clock,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SnapshotBytes == 0 {
		cfg.SnapshotBytes = 65536
	}
	return &Runner{
		analyzers: []Analyzer{
			NewPerformance(speed, headClient, logger.Named("performance")),
			NewSEO(headClient, logger.Named("seo")),
			NewConversion(),
			NewBranding(),
			NewPresence(),
		},
		cfg:    cfg,
		clock:  clock,
		logger: logger,
	}
}

// NewRunnerWith builds a runner over an explicit analyzer set (tests).
func NewRunnerWith(analyzers []Analyzer, cfg Config, clock audit.Clock, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SnapshotBytes == 0 {
		cfg.SnapshotBytes = 65536
	}
	return &Runner{analyzers: analyzers, cfg: cfg, clock: clock, logger: logger}
}

// Analyze parses the page once and runs every analyzer concurrently. The
// analyzers share no mutable state, so the fan-out cannot change results
// relative to a sequential run. Only a parse failure is fatal.
func (r *Runner) Analyze(ctx context.Context, page audit.Page) (audit.Analysis, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return audit.Analysis{}, fmt.Errorf("parse html: %w", err)
	}

	results := make([]audit.CategoryResult, len(r.analyzers))
	g, groupCtx := errgroup.WithContext(ctx)
	for i, a := range r.analyzers {
		i, a := i, a
		g.Go(func() error {
			start := time.Now()
			results[i] = a.Analyze(groupCtx, doc, page.FinalURL)
			r.logger.Debug("analyzer finished",
				zap.String("category", string(a.Category())),
				zap.Int("score", results[i].Score),
				zap.Duration("took", time.Since(start)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return audit.Analysis{}, fmt.Errorf("run analyzers: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return categoryOrder(results[i].Category) < categoryOrder(results[j].Category)
	})

	return audit.Analysis{
		FinalURL:     page.FinalURL,
		Categories:   results,
		OverallScore: audit.OverallScore(results),
		HTMLSnapshot: truncate(page.HTML, r.cfg.SnapshotBytes),
		AnalyzedAt:   r.clock.Now(),
	}, nil
}

func categoryOrder(c audit.Category) int {
	for i, cat := range audit.Categories() {
		if cat == c {
			return i
		}
	}
	return len(audit.Categories())
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}
