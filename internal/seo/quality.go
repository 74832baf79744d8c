// Package seo turns raw query results into graded summaries. All
// scoring functions are pure threshold arithmetic: no I/O, no state.
package seo

// Quality grades.
const (
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
	GradeD = "D"
	GradeF = "F"
)

// Page quality bands.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityPoor      = "poor"
	QualityVeryPoor  = "very_poor"
)

// SourceQualityScore rates a traffic source from its bounce rate
// (percent) and visit duration (seconds). Bounce rate contributes up to
// 60 points, duration up to 40; band boundaries are inclusive on the
// side that awards the points.
func SourceQualityScore(bounceRate, visitDuration float64) (int, string) {
	score := 0

	switch {
	case bounceRate <= 30:
		score += 60
	case bounceRate <= 50:
		score += 45
	case bounceRate <= 70:
		score += 25
	}

	switch {
	case visitDuration >= 180:
		score += 40
	case visitDuration >= 60:
		score += 30
	case visitDuration >= 30:
		score += 15
	}

	return score, scoreGrade(score)
}

func scoreGrade(score int) string {
	switch {
	case score >= 80:
		return GradeA
	case score >= 60:
		return GradeB
	case score >= 40:
		return GradeC
	case score >= 20:
		return GradeD
	default:
		return GradeF
	}
}

// PageQuality classifies a page from its bounce rate and average visit
// duration. Both conditions of a band must hold; this is a conjunction,
// not independent scoring, so a page with a great bounce rate but a
// short duration still drops a band.
func PageQuality(bounceRate, avgDuration float64) string {
	switch {
	case bounceRate < 30 && avgDuration > 180:
		return QualityExcellent
	case bounceRate < 50 && avgDuration > 60:
		return QualityGood
	case bounceRate < 70 && avgDuration > 30:
		return QualityPoor
	default:
		return QualityVeryPoor
	}
}
