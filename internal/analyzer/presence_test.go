package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gradekit/site-grader/internal/audit"
)

func TestPresence_SocialLinks(t *testing.T) {
	t.Parallel()

	a := NewPresence()

	// Exactly two distinct platforms is the full-pass boundary.
	two := a.Analyze(context.Background(), parseDoc(t, `<html><body>
		<a href="https://facebook.com/acme">Facebook</a>
		<a href="https://www.instagram.com/acme">Instagram</a>
	</body></html>`), "")
	check := findCheck(t, two, audit.CheckSocialLinks)
	require.True(t, check.Passed)
	require.Equal(t, audit.ScorePass, check.Score)
	require.Equal(t, "2 platforms: facebook, instagram", check.Evidence)

	// One platform earns partial credit but does not pass.
	one := a.Analyze(context.Background(), parseDoc(t,
		`<html><body><a href="https://twitter.com/acme">Follow</a></body></html>`), "")
	check = findCheck(t, one, audit.CheckSocialLinks)
	require.False(t, check.Passed)
	require.Equal(t, audit.ScorePartial, check.Score)

	// Duplicate links to one platform still count once.
	dupes := a.Analyze(context.Background(), parseDoc(t, `<html><body>
		<a href="https://youtube.com/@acme">Watch</a>
		<a href="https://youtu.be/abc123">Latest video</a>
	</body></html>`), "")
	require.Equal(t, audit.ScorePartial, findCheck(t, dupes, audit.CheckSocialLinks).Score)

	// Icon classes count without an href.
	icons := a.Analyze(context.Background(), parseDoc(t, `<html><body>
		<i class="fa-brands fa-linkedin"></i>
		<span class="icon-tiktok"></span>
	</body></html>`), "")
	require.True(t, findCheck(t, icons, audit.CheckSocialLinks).Passed)

	none := a.Analyze(context.Background(), parseDoc(t,
		`<html><body><a href="/about">About</a></body></html>`), "")
	check = findCheck(t, none, audit.CheckSocialLinks)
	require.False(t, check.Passed)
	require.Equal(t, audit.ScoreFail, check.Score)

	// Hosts that merely end in x.com are not Twitter.
	notTwitter := a.Analyze(context.Background(), parseDoc(t, `<html><body>
		<a href="https://linux.com/news">Linux</a>
		<a href="https://www.netflix.com/browse">Netflix</a>
	</body></html>`), "")
	require.Equal(t, audit.ScoreFail, findCheck(t, notTwitter, audit.CheckSocialLinks).Score)

	isTwitter := a.Analyze(context.Background(), parseDoc(t,
		`<html><body><a href="https://x.com/acme">Follow us</a></body></html>`), "")
	require.Equal(t, audit.ScorePartial, findCheck(t, isTwitter, audit.CheckSocialLinks).Score)
}

func TestPresence_GoogleBusiness(t *testing.T) {
	t.Parallel()

	a := NewPresence()

	byMaps := a.Analyze(context.Background(), parseDoc(t,
		`<html><body><a href="https://goo.gl/maps/xyz">Find us</a></body></html>`), "")
	require.True(t, findCheck(t, byMaps, audit.CheckGoogleBusiness).Passed)

	byPhrase := a.Analyze(context.Background(), parseDoc(t,
		`<html><body><a href="/visit">Directions</a></body></html>`), "")
	require.True(t, findCheck(t, byPhrase, audit.CheckGoogleBusiness).Passed)

	none := a.Analyze(context.Background(), parseDoc(t,
		`<html><body><a href="https://example.com">Partner site</a></body></html>`), "")
	require.False(t, findCheck(t, none, audit.CheckGoogleBusiness).Passed)
}

func TestPresence_Content(t *testing.T) {
	t.Parallel()

	a := NewPresence()

	byLink := a.Analyze(context.Background(), parseDoc(t,
		`<html><body><a href="/blog">Read more</a></body></html>`), "")
	require.True(t, findCheck(t, byLink, audit.CheckContentPresence).Passed)

	byHeading := a.Analyze(context.Background(), parseDoc(t,
		`<html><body><h2>Latest News</h2></body></html>`), "")
	require.True(t, findCheck(t, byHeading, audit.CheckContentPresence).Passed)

	byDate := a.Analyze(context.Background(), parseDoc(t,
		`<html><body><p>Posted on March 5, 2026 by the team.</p></body></html>`), "")
	require.True(t, findCheck(t, byDate, audit.CheckContentPresence).Passed)

	byISODate := a.Analyze(context.Background(), parseDoc(t,
		`<html><body><time>2026-01-15</time></body></html>`), "")
	require.True(t, findCheck(t, byISODate, audit.CheckContentPresence).Passed)

	none := a.Analyze(context.Background(), parseDoc(t,
		`<html><body><h2>Our Services</h2><p>We fix pipes.</p></body></html>`), "")
	require.False(t, findCheck(t, none, audit.CheckContentPresence).Passed)
}

func TestPresence_Score(t *testing.T) {
	t.Parallel()

	// Two social platforms pass, no google signals, no content: one of
	// three equal-weight checks -> 33.
	got := NewPresence().Analyze(context.Background(), parseDoc(t, `<html><body>
		<a href="https://facebook.com/acme">fb</a>
		<a href="https://instagram.com/acme">ig</a>
	</body></html>`), "")
	require.Equal(t, 33, got.Score)
}
