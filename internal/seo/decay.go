package seo

// Decay severity buckets.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

// DefaultDecayThreshold is the minimum visitor drop (percent) that
// counts as decay at all.
const DefaultDecayThreshold = 10.0

// Decay describes a sustained visitor drop between a baseline period
// and a more recent one.
type Decay struct {
	Baseline    float64 `json:"baseline"`
	Recent      float64 `json:"recent"`
	DropPercent float64 `json:"drop_percent"`
	Severity    string  `json:"severity"`
}

// DecaySeverity judges the drop from baseline to recent. A zero
// baseline yields no judgment at all (ok=false): no baseline means no
// decay, not infinite decay. Drops below threshold also report
// ok=false; threshold values at or below zero fall back to the default.
func DecaySeverity(baseline, recent, threshold float64) (Decay, bool) {
	if baseline == 0 {
		return Decay{}, false
	}
	if threshold <= 0 {
		threshold = DefaultDecayThreshold
	}

	dropPercent := (baseline - recent) / baseline * 100
	if dropPercent < threshold {
		return Decay{}, false
	}

	d := Decay{Baseline: baseline, Recent: recent, DropPercent: dropPercent}
	switch {
	case dropPercent >= 50:
		d.Severity = SeverityCritical
	case dropPercent >= 30:
		d.Severity = SeverityHigh
	default:
		d.Severity = SeverityMedium
	}
	return d, true
}
