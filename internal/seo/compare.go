package seo

import "math"

// Direction of a period-over-period change.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionFlat = "flat"
)

// Significance buckets for a percent change.
const (
	SignificanceSignificant = "significant"
	SignificanceNotable     = "notable"
	SignificanceNormal      = "normal"
)

// Comparison describes how a metric moved between two periods.
type Comparison struct {
	Current      float64 `json:"current"`
	Previous     float64 `json:"previous"`
	Absolute     float64 `json:"absolute_change"`
	Percent      float64 `json:"percent_change"`
	Direction    string  `json:"direction"`
	Significance string  `json:"significance"`
}

// ComparePeriods computes the change between two values of one metric.
//
// When the previous value is 0 the percent change is defined as 0.
// That is a policy choice to avoid division by zero, not a mathematical
// identity: the direction still reports the true movement, so a caller
// showing "0% change, up" for a from-nothing jump should decide its own
// display fallback.
func ComparePeriods(current, previous float64) Comparison {
	c := Comparison{
		Current:  current,
		Previous: previous,
		Absolute: current - previous,
	}

	if previous != 0 {
		c.Percent = c.Absolute / previous * 100
	}

	switch {
	case current > previous:
		c.Direction = DirectionUp
	case current < previous:
		c.Direction = DirectionDown
	default:
		c.Direction = DirectionFlat
	}

	switch pct := math.Abs(c.Percent); {
	case pct >= 30:
		c.Significance = SignificanceSignificant
	case pct >= 15:
		c.Significance = SignificanceNotable
	default:
		c.Significance = SignificanceNormal
	}

	return c
}
