package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gradekit/site-grader/internal/audit"
)

// socialPlatforms maps a platform name to the fragments that identify it in
// hrefs, link text, class names or icon classes. The x.com fragments carry a
// host boundary so linux.com, netflix.com and the like do not count as
// Twitter.
var socialPlatforms = map[string][]string{
	"facebook":  {"facebook.com", "fb.com", "facebook"},
	"instagram": {"instagram.com", "instagram"},
	"twitter":   {"twitter.com", "//x.com/", ".x.com/", "twitter"},
	"linkedin":  {"linkedin.com", "linkedin"},
	"youtube":   {"youtube.com", "youtu.be", "youtube"},
	"tiktok":    {"tiktok.com", "tiktok"},
	"pinterest": {"pinterest.com", "pinterest"},
	"snapchat":  {"snapchat.com", "snapchat"},
	"reddit":    {"reddit.com", "reddit"},
	"threads":   {"threads.net", "threads"},
}

var (
	googlePresenceFragments = []string{
		"google.com/maps", "maps.google", "goo.gl/maps", "g.page",
		"google.com/search?q=", "business.google.com",
	}
	googlePresencePhrases = []string{
		"find us on google", "google business", "google reviews", "directions",
	}

	contentSectionWords = []string{"blog", "article", "news", "press", "insights"}
	contentHeadingWords = []string{"blog", "news", "article", "insights", "resources", "updates", "stories"}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{4}\b`),
	}
)

// Presence scores the site's footprint beyond its own pages: social links,
// Google Business signals and fresh content.
type Presence struct{}

// NewPresence builds the presence analyzer.
func NewPresence() *Presence {
	return &Presence{}
}

// Category implements Analyzer.
func (a *Presence) Category() audit.Category { return audit.CategoryPresence }

// Analyze implements Analyzer.
func (a *Presence) Analyze(_ context.Context, doc *goquery.Document, _ string) audit.CategoryResult {
	checks := []audit.CheckResult{
		a.checkSocialLinks(doc),
		a.checkGoogleBusiness(doc),
		a.checkContent(doc),
	}
	return audit.CategoryResult{
		Category: audit.CategoryPresence,
		Score:    audit.CategoryScore(checks),
		Checks:   checks,
	}
}

// checkSocialLinks counts distinct platforms: two or more is a full pass,
// exactly one earns partial credit, none fails.
func (a *Presence) checkSocialLinks(doc *goquery.Document) audit.CheckResult {
	found := map[string]struct{}{}
	scan := func(haystack string) {
		lower := strings.ToLower(haystack)
		for platform, fragments := range socialPlatforms {
			if _, ok := found[platform]; ok {
				continue
			}
			for _, frag := range fragments {
				if strings.Contains(lower, frag) {
					found[platform] = struct{}{}
					break
				}
			}
		}
	}
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		scan(s.AttrOr("href", "") + " " + normalizeSpace(s.Text()) + " " + s.AttrOr("class", ""))
	})
	doc.Find("i, span, svg").Each(func(_ int, s *goquery.Selection) {
		scan(s.AttrOr("class", ""))
	})

	platforms := make([]string, 0, len(found))
	for p := range found {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	var score int
	switch {
	case len(platforms) >= 2:
		score = audit.ScorePass
	case len(platforms) == 1:
		score = audit.ScorePartial
	default:
		score = audit.ScoreFail
	}
	return audit.CheckResult{
		Kind:     audit.CheckSocialLinks,
		Passed:   score == audit.ScorePass,
		Score:    score,
		Evidence: fmt.Sprintf("%d platforms: %s", len(platforms), strings.Join(platforms, ", ")),
	}
}

func (a *Presence) checkGoogleBusiness(doc *goquery.Document) audit.CheckResult {
	found := false
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.ToLower(s.AttrOr("href", ""))
		text := strings.ToLower(normalizeSpace(s.Text()))
		if containsAny(href, googlePresenceFragments) || containsAny(text, googlePresencePhrases) {
			found = true
			return false
		}
		return true
	})
	evidence := "no google business signals"
	if found {
		evidence = "google business link found"
	}
	return binaryCheck(audit.CheckGoogleBusiness, found, evidence)
}

// checkContent passes on any one of three signals: a content-labeled
// section or link, a content-related heading, or date-like text anywhere.
func (a *Presence) checkContent(doc *goquery.Document) audit.CheckResult {
	found := false
	doc.Find("section, div, a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		haystack := attrText(s, "href")
		if containsAny(haystack, contentSectionWords) {
			found = true
			return false
		}
		return true
	})
	if found {
		return binaryCheck(audit.CheckContentPresence, true, "content section or link found")
	}

	doc.Find("h1, h2, h3, h4").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if containsAny(normalizeSpace(s.Text()), contentHeadingWords) {
			found = true
			return false
		}
		return true
	})
	if found {
		return binaryCheck(audit.CheckContentPresence, true, "content heading found")
	}

	body := normalizeSpace(doc.Find("body").Text())
	for _, re := range datePatterns {
		if re.MatchString(body) {
			return binaryCheck(audit.CheckContentPresence, true, "dated content found")
		}
	}
	return binaryCheck(audit.CheckContentPresence, false, "no content signals")
}
