package audit

import "math"

// Check score points. PageSpeed is the one check scored on a continuous
// 0-100 scale; everything else is binary or one of these steps.
const (
	ScoreFail    = 0
	ScorePartial = 50
	ScorePass    = 100
)

// CategoryScore aggregates check scores into a 0-100 category score.
// Checks with a zero weight are treated as equally weighted; otherwise the
// weights are normalized, so Performance's 70/30 split and the plain means
// of the other categories share this path.
func CategoryScore(checks []CheckResult) int {
	if len(checks) == 0 {
		return 0
	}
	var totalWeight float64
	for _, c := range checks {
		totalWeight += c.Weight
	}
	if totalWeight == 0 {
		sum := 0
		for _, c := range checks {
			sum += c.Score
		}
		return roundInt(float64(sum) / float64(len(checks)))
	}
	var weighted float64
	for _, c := range checks {
		weighted += float64(c.Score) * (c.Weight / totalWeight)
	}
	return roundInt(weighted)
}

// OverallScore is the rounded mean of the five category scores. Categories
// are equally weighted regardless of how many checks each contains.
func OverallScore(categories []CategoryResult) int {
	if len(categories) == 0 {
		return 0
	}
	sum := 0
	for _, c := range categories {
		sum += c.Score
	}
	return roundInt(float64(sum) / float64(len(categories)))
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
