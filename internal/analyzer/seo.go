package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/gradekit/site-grader/internal/audit"
)

const (
	sitemapTimeout = 5 * time.Second
	// Fraction of images that must carry non-empty alt text.
	altTextThreshold = 0.8
)

// SEO scores title, meta description, heading structure, image alt text and
// sitemap reachability. The sitemap probe is the only network dependency;
// its failure fails that one check, never the audit.
type SEO struct {
	client *http.Client
	logger *zap.Logger
}

// NewSEO builds the SEO analyzer.
func NewSEO(client *http.Client, logger *zap.Logger) *SEO {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SEO{client: client, logger: logger}
}

// Category implements Analyzer.
func (a *SEO) Category() audit.Category { return audit.CategorySEO }

// Analyze implements Analyzer.
func (a *SEO) Analyze(ctx context.Context, doc *goquery.Document, finalURL string) audit.CategoryResult {
	checks := []audit.CheckResult{
		a.checkTitle(doc),
		a.checkMetaDescription(doc),
		a.checkSingleH1(doc),
		a.checkImageAltText(doc),
		a.checkSitemap(ctx, finalURL),
	}
	return audit.CategoryResult{
		Category: audit.CategorySEO,
		Score:    audit.CategoryScore(checks),
		Checks:   checks,
	}
}

func (a *SEO) checkTitle(doc *goquery.Document) audit.CheckResult {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return binaryCheck(audit.CheckTitleTag, false, "no title tag found")
	}
	return binaryCheck(audit.CheckTitleTag, true, fmt.Sprintf("title: %q", title))
}

func (a *SEO) checkMetaDescription(doc *goquery.Document) audit.CheckResult {
	desc := strings.TrimSpace(doc.Find(`meta[name="description"]`).First().AttrOr("content", ""))
	if desc == "" {
		return binaryCheck(audit.CheckMetaDescription, false, "no meta description found")
	}
	return binaryCheck(audit.CheckMetaDescription, true, fmt.Sprintf("%d characters", len(desc)))
}

func (a *SEO) checkSingleH1(doc *goquery.Document) audit.CheckResult {
	count := doc.Find("h1").Length()
	// Zero and multiple H1s both fail: crawlers want exactly one.
	return binaryCheck(audit.CheckSingleH1, count == 1, fmt.Sprintf("%d h1 elements", count))
}

func (a *SEO) checkImageAltText(doc *goquery.Document) audit.CheckResult {
	images := doc.Find("img")
	total := images.Length()
	if total == 0 {
		// Vacuous pass: nothing to caption.
		return binaryCheck(audit.CheckImageAltText, true, "no images on page")
	}
	withAlt := 0
	images.Each(func(_ int, img *goquery.Selection) {
		if strings.TrimSpace(img.AttrOr("alt", "")) != "" {
			withAlt++
		}
	})
	ratio := float64(withAlt) / float64(total)
	evidence := fmt.Sprintf("%d of %d images have alt text", withAlt, total)
	return binaryCheck(audit.CheckImageAltText, ratio >= altTextThreshold, evidence)
}

func (a *SEO) checkSitemap(ctx context.Context, finalURL string) audit.CheckResult {
	parsed, err := url.Parse(finalURL)
	if err != nil || parsed.Host == "" {
		return binaryCheck(audit.CheckSitemap, false, "could not derive site root")
	}
	sitemapURL := fmt.Sprintf("%s://%s/sitemap.xml", parsed.Scheme, parsed.Host)

	probeCtx, cancel := context.WithTimeout(ctx, sitemapTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, sitemapURL, nil)
	if err != nil {
		return binaryCheck(audit.CheckSitemap, false, "sitemap probe could not be built")
	}
	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("sitemap probe failed", zap.String("url", sitemapURL), zap.Error(err))
		return binaryCheck(audit.CheckSitemap, false, "sitemap unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("sitemap probe returned non-200",
			zap.String("url", sitemapURL),
			zap.Int("status", resp.StatusCode),
		)
		return binaryCheck(audit.CheckSitemap, false, fmt.Sprintf("sitemap returned status %d", resp.StatusCode))
	}
	return binaryCheck(audit.CheckSitemap, true, "sitemap.xml found")
}
