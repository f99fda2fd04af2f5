package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gradekit/site-grader/internal/audit"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func findCheck(t *testing.T, result audit.CategoryResult, kind audit.CheckKind) audit.CheckResult {
	t.Helper()
	for _, c := range result.Checks {
		if c.Kind == kind {
			return c
		}
	}
	t.Fatalf("check %s not found", kind)
	return audit.CheckResult{}
}

func newSitemapServer(t *testing.T, sitemapStatus int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sitemap.xml" {
			w.WriteHeader(sitemapStatus)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSEO_TitleAndMetaDescription(t *testing.T) {
	t.Parallel()

	srv := newSitemapServer(t, http.StatusOK)
	a := NewSEO(srv.Client(), zap.NewNop())

	full := a.Analyze(context.Background(), parseDoc(t,
		`<html><head><title>Acme</title><meta name="description" content="We fix pipes"></head><body><h1>Hi</h1></body></html>`,
	), srv.URL)
	require.True(t, findCheck(t, full, audit.CheckTitleTag).Passed)
	require.True(t, findCheck(t, full, audit.CheckMetaDescription).Passed)

	empty := a.Analyze(context.Background(), parseDoc(t,
		`<html><head><title>  </title></head><body></body></html>`,
	), srv.URL)
	require.False(t, findCheck(t, empty, audit.CheckTitleTag).Passed)
	require.False(t, findCheck(t, empty, audit.CheckMetaDescription).Passed)
}

func TestSEO_SingleH1Boundaries(t *testing.T) {
	t.Parallel()

	srv := newSitemapServer(t, http.StatusOK)
	a := NewSEO(srv.Client(), zap.NewNop())

	cases := []struct {
		h1s  int
		pass bool
	}{
		{0, false},
		{1, true},
		{2, false},
		{5, false},
	}
	for _, tc := range cases {
		var b strings.Builder
		b.WriteString("<html><body>")
		for i := 0; i < tc.h1s; i++ {
			fmt.Fprintf(&b, "<h1>heading %d</h1>", i)
		}
		b.WriteString("</body></html>")
		got := a.Analyze(context.Background(), parseDoc(t, b.String()), srv.URL)
		require.Equal(t, tc.pass, findCheck(t, got, audit.CheckSingleH1).Passed, "h1 count %d", tc.h1s)
	}
}

func TestSEO_ImageAltTextBoundaries(t *testing.T) {
	t.Parallel()

	srv := newSitemapServer(t, http.StatusOK)
	a := NewSEO(srv.Client(), zap.NewNop())

	buildPage := func(withAlt, bare int) string {
		var b strings.Builder
		b.WriteString("<html><body>")
		for i := 0; i < withAlt; i++ {
			fmt.Fprintf(&b, `<img src="/i%d.jpg" alt="image %d">`, i, i)
		}
		for i := 0; i < bare; i++ {
			fmt.Fprintf(&b, `<img src="/b%d.jpg">`, i)
		}
		b.WriteString("</body></html>")
		return b.String()
	}

	// No images at all: vacuous pass.
	none := a.Analyze(context.Background(), parseDoc(t, "<html><body><p>text</p></body></html>"), srv.URL)
	check := findCheck(t, none, audit.CheckImageAltText)
	require.True(t, check.Passed)
	require.Equal(t, audit.ScorePass, check.Score)

	// Exactly 80% passes.
	exact := a.Analyze(context.Background(), parseDoc(t, buildPage(8, 2)), srv.URL)
	require.True(t, findCheck(t, exact, audit.CheckImageAltText).Passed)

	// Just under 80% fails.
	under := a.Analyze(context.Background(), parseDoc(t, buildPage(799, 201)), srv.URL)
	require.False(t, findCheck(t, under, audit.CheckImageAltText).Passed)

	// Whitespace-only alt counts as missing.
	blank := a.Analyze(context.Background(), parseDoc(t,
		`<html><body><img src="a.jpg" alt="   "></body></html>`), srv.URL)
	require.False(t, findCheck(t, blank, audit.CheckImageAltText).Passed)
}

func TestSEO_SitemapProbe(t *testing.T) {
	t.Parallel()

	okSrv := newSitemapServer(t, http.StatusOK)
	a := NewSEO(okSrv.Client(), zap.NewNop())
	got := a.Analyze(context.Background(), parseDoc(t, "<html></html>"), okSrv.URL+"/some/page")
	require.True(t, findCheck(t, got, audit.CheckSitemap).Passed)

	missingSrv := newSitemapServer(t, http.StatusNotFound)
	b := NewSEO(missingSrv.Client(), zap.NewNop())
	got = b.Analyze(context.Background(), parseDoc(t, "<html></html>"), missingSrv.URL)
	require.False(t, findCheck(t, got, audit.CheckSitemap).Passed)

	// Unreachable host: the check fails, the analyzer does not.
	c := NewSEO(&http.Client{}, zap.NewNop())
	got = c.Analyze(context.Background(), parseDoc(t, "<html></html>"), "http://127.0.0.1:1")
	require.False(t, findCheck(t, got, audit.CheckSitemap).Passed)
}

func TestSEO_ScoreIsRoundedMeanOfChecks(t *testing.T) {
	t.Parallel()

	srv := newSitemapServer(t, http.StatusOK)
	a := NewSEO(srv.Client(), zap.NewNop())

	// title yes, meta no, h1 no, alt yes (3/3), sitemap yes -> 60.
	html := `<html><head><title>Acme</title></head><body>
		<img src="a.jpg" alt="a"><img src="b.jpg" alt="b"><img src="c.jpg" alt="c">
	</body></html>`
	got := a.Analyze(context.Background(), parseDoc(t, html), srv.URL)
	require.Equal(t, 60, got.Score)
}
