package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gradekit/site-grader/internal/audit"
)

// binaryCheck builds the common pass-100 / fail-0 check result.
func binaryCheck(kind audit.CheckKind, passed bool, evidence string) audit.CheckResult {
	score := audit.ScoreFail
	if passed {
		score = audit.ScorePass
	}
	return audit.CheckResult{
		Kind:     kind,
		Passed:   passed,
		Score:    score,
		Evidence: evidence,
	}
}

// containsAny reports whether s (lowercased) contains any of the needles.
func containsAny(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// attrText joins the class, id and given attributes of a selection into one
// lowercase haystack for vocabulary matching.
func attrText(s *goquery.Selection, attrs ...string) string {
	var b strings.Builder
	b.WriteString(s.AttrOr("class", ""))
	b.WriteString(" ")
	b.WriteString(s.AttrOr("id", ""))
	for _, a := range attrs {
		b.WriteString(" ")
		b.WriteString(s.AttrOr(a, ""))
	}
	return strings.ToLower(b.String())
}

// normalizeSpace collapses whitespace runs so regex and substring matches
// behave on pretty-printed HTML.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
