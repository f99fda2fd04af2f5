package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gradekit/site-grader/internal/audit"
)

// Action phrases and class fragments that mark a call-to-action control.
var (
	ctaPhrases = []string{
		"sign up", "signup", "get started", "buy", "subscribe", "order",
		"book now", "try free", "free trial", "start now", "join",
		"add to cart", "shop now", "register", "download", "request a quote",
	}
	ctaClassFragments = []string{"cta", "call-to-action", "btn-primary", "button-primary"}

	trustBadgeWords = []string{
		"secure", "ssl", "bbb", "verified", "trusted", "guarantee",
		"certified", "norton", "mcafee", "badge",
	}
	trustContainerWords = []string{"testimonial", "review", "rating", "stars"}

	contactPhrases = []string{"contact us", "get in touch", "reach out", "contact form"}
)

// Conversion scores the page's ability to turn a visitor into a lead:
// calls to action, capture forms, trust signals and contact methods.
type Conversion struct{}

// NewConversion builds the conversion analyzer.
func NewConversion() *Conversion {
	return &Conversion{}
}

// Category implements Analyzer.
func (a *Conversion) Category() audit.Category { return audit.CategoryConversion }

// Analyze implements Analyzer.
func (a *Conversion) Analyze(_ context.Context, doc *goquery.Document, _ string) audit.CategoryResult {
	checks := []audit.CheckResult{
		a.checkCallToAction(doc),
		a.checkForms(doc),
		a.checkTrustElements(doc),
		a.checkContactMethod(doc),
	}
	return audit.CategoryResult{
		Category: audit.CategoryConversion,
		Score:    audit.CategoryScore(checks),
		Checks:   checks,
	}
}

func (a *Conversion) checkCallToAction(doc *goquery.Document) audit.CheckResult {
	count := 0
	doc.Find("a, button, input[type='submit'], input[type='button']").Each(func(_ int, s *goquery.Selection) {
		text := strings.ToLower(normalizeSpace(s.Text())) + " " + strings.ToLower(s.AttrOr("value", ""))
		if containsAny(text, ctaPhrases) || containsAny(attrText(s), ctaClassFragments) {
			count++
		}
	})
	return binaryCheck(audit.CheckCallToAction, count > 0, fmt.Sprintf("%d call-to-action elements", count))
}

func (a *Conversion) checkForms(doc *goquery.Document) audit.CheckResult {
	forms := doc.Find("form").Length()
	inputs := doc.Find("input[type='text'], input[type='email'], input[type='tel'], textarea").Length()
	total := forms + inputs
	evidence := fmt.Sprintf("%d forms, %d capture fields", forms, inputs)
	return binaryCheck(audit.CheckFormPresence, total > 0, evidence)
}

func (a *Conversion) checkTrustElements(doc *goquery.Document) audit.CheckResult {
	count := 0
	doc.Find("div, section, span, blockquote").Each(func(_ int, s *goquery.Selection) {
		if containsAny(attrText(s), trustContainerWords) {
			count++
		}
	})
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		haystack := strings.ToLower(img.AttrOr("alt", "") + " " + img.AttrOr("src", ""))
		if containsAny(haystack, trustBadgeWords) {
			count++
		}
	})
	return binaryCheck(audit.CheckTrustElements, count > 0, fmt.Sprintf("%d trust elements", count))
}

func (a *Conversion) checkContactMethod(doc *goquery.Document) audit.CheckResult {
	count := 0
	doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		if strings.Contains(attrText(s, "action", "name"), "contact") {
			count++
		}
	})
	count += doc.Find("a[href^='mailto:']").Length()
	count += doc.Find("a[href^='tel:']").Length()
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		text := strings.ToLower(normalizeSpace(s.Text()))
		href := strings.ToLower(s.AttrOr("href", ""))
		if containsAny(text, contactPhrases) || strings.Contains(href, "contact") {
			count++
		}
	})
	return binaryCheck(audit.CheckContactMethod, count > 0, fmt.Sprintf("%d contact methods", count))
}
