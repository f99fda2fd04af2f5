package analyzer

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gradekit/site-grader/internal/audit"
)

// Free-hosting suffixes that undermine a professional appearance.
var freeHostSuffixes = []string{
	".blogspot.com", ".wordpress.com", ".wix.com", ".wixsite.com",
	".weebly.com", ".squarespace.com", ".github.io", ".netlify.app",
	".vercel.app", ".herokuapp.com", ".web.app", ".firebaseapp.com",
	".pages.dev", ".webflow.io",
}

var (
	colorPattern      = regexp.MustCompile(`#[0-9a-fA-F]{3,8}\b|rgba?\([^)]*\)`)
	fontFamilyPattern = regexp.MustCompile(`font-family\s*:\s*([^;}]+)`)
)

// Brand-consistency component thresholds: fewer distinct values reads as a
// deliberate design system, more as ad-hoc styling.
const (
	colorFullCredit   = 10
	colorHalfCredit   = 20
	fontFullCredit    = 3
	fontHalfCredit    = 6
	headingFullCredit = 5
	headingHalfCredit = 10

	consistencyPassValue = 50
	hierarchyPassValue   = 75
)

// Branding scores logo presence, styling consistency, domain
// professionalism and visual hierarchy.
type Branding struct{}

// NewBranding builds the branding analyzer.
func NewBranding() *Branding {
	return &Branding{}
}

// Category implements Analyzer.
func (a *Branding) Category() audit.Category { return audit.CategoryBranding }

// Analyze implements Analyzer.
func (a *Branding) Analyze(_ context.Context, doc *goquery.Document, finalURL string) audit.CategoryResult {
	checks := []audit.CheckResult{
		a.checkLogo(doc),
		a.checkConsistency(doc),
		a.checkDomain(finalURL),
		a.checkHierarchy(doc),
	}
	return audit.CategoryResult{
		Category: audit.CategoryBranding,
		Score:    audit.CategoryScore(checks),
		Checks:   checks,
	}
}

func (a *Branding) checkLogo(doc *goquery.Document) audit.CheckResult {
	found := doc.Find("header img, header svg, nav img, nav svg").Length() > 0
	if !found {
		doc.Find("div, span, a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if containsAny(attrText(s), []string{"logo", "brand", "header"}) &&
				s.Find("img, svg").Length() > 0 {
				found = true
				return false
			}
			return true
		})
	}
	if !found {
		doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			haystack := strings.ToLower(img.AttrOr("alt", "") + " " + img.AttrOr("src", ""))
			if strings.Contains(haystack, "logo") {
				found = true
				return false
			}
			return true
		})
	}
	evidence := "no logo detected"
	if found {
		evidence = "logo detected"
	}
	return binaryCheck(audit.CheckLogoPresence, found, evidence)
}

// checkConsistency averages four styling signals into a 0-100 consistency
// value and passes when that value reaches the midpoint.
func (a *Branding) checkConsistency(doc *goquery.Document) audit.CheckResult {
	var styles []string
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		styles = append(styles, s.AttrOr("style", ""))
	})
	allStyle := strings.Join(styles, ";")

	colorScore := steppedScore(distinctMatches(colorPattern, allStyle), colorFullCredit, colorHalfCredit)
	fontScore := steppedScore(distinctSubmatches(fontFamilyPattern, allStyle), fontFullCredit, fontHalfCredit)

	headingStyles := map[string]struct{}{}
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if style := strings.TrimSpace(s.AttrOr("style", "")); style != "" {
			headingStyles[style] = struct{}{}
		}
	})
	headingScore := steppedScore(len(headingStyles), headingFullCredit, headingHalfCredit)

	stylesheetScore := audit.ScoreFail
	if doc.Find("link[rel='stylesheet']").Length() > 0 {
		stylesheetScore = audit.ScorePass
	}

	value := (colorScore + fontScore + headingScore + stylesheetScore) / 4
	return binaryCheck(
		audit.CheckBrandConsistent,
		value >= consistencyPassValue,
		fmt.Sprintf("consistency value %d/100", value),
	)
}

func (a *Branding) checkDomain(finalURL string) audit.CheckResult {
	parsed, err := url.Parse(finalURL)
	if err != nil || parsed.Host == "" {
		return binaryCheck(audit.CheckProDomain, false, "could not determine host")
	}
	host := strings.ToLower(parsed.Hostname())
	for _, suffix := range freeHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return binaryCheck(audit.CheckProDomain, false, fmt.Sprintf("hosted on %s", strings.TrimPrefix(suffix, ".")))
		}
	}
	return binaryCheck(audit.CheckProDomain, true, host)
}

// checkHierarchy sums four independent 25-point signals and passes at 75.
func (a *Branding) checkHierarchy(doc *goquery.Document) audit.CheckResult {
	h1 := doc.Find("h1").Length()
	h2 := doc.Find("h2").Length()
	h3 := doc.Find("h3").Length()

	raw := 0
	if h1 >= 1 {
		raw += 25
	}
	if h1 <= h2 && h2 >= h3 {
		raw += 25
	}
	if doc.Find("section, article, main").Length() > 0 {
		raw += 25
	}
	if doc.Find("nav, [role='navigation'], [class*='nav'], [class*='menu']").Length() > 0 {
		raw += 25
	}
	return binaryCheck(
		audit.CheckVisualHierarchy,
		raw >= hierarchyPassValue,
		fmt.Sprintf("hierarchy score %d/100", raw),
	)
}

func steppedScore(count, full, half int) int {
	switch {
	case count < full:
		return audit.ScorePass
	case count < half:
		return audit.ScorePartial
	default:
		return audit.ScoreFail
	}
}

func distinctMatches(re *regexp.Regexp, s string) int {
	seen := map[string]struct{}{}
	for _, m := range re.FindAllString(s, -1) {
		seen[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return len(seen)
}

func distinctSubmatches(re *regexp.Regexp, s string) int {
	seen := map[string]struct{}{}
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		if len(m) > 1 {
			seen[strings.ToLower(strings.TrimSpace(m[1]))] = struct{}{}
		}
	}
	return len(seen)
}
