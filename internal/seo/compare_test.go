package seo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComparePeriods(t *testing.T) {
	tests := []struct {
		name         string
		current      float64
		previous     float64
		percent      float64
		direction    string
		significance string
	}{
		{"growth", 150, 100, 50, DirectionUp, SignificanceSignificant},
		{"decline", 70, 100, -30, DirectionDown, SignificanceSignificant},
		{"notable decline", 85, 100, -15, DirectionDown, SignificanceNotable},
		{"small change", 114, 100, 14, DirectionUp, SignificanceNormal},
		{"flat", 100, 100, 0, DirectionFlat, SignificanceNormal},
		{"both zero", 0, 0, 0, DirectionFlat, SignificanceNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ComparePeriods(tt.current, tt.previous)
			assert.Equal(t, tt.current, c.Current)
			assert.Equal(t, tt.previous, c.Previous)
			assert.Equal(t, tt.current-tt.previous, c.Absolute)
			assert.InDelta(t, tt.percent, c.Percent, 0.0001)
			assert.Equal(t, tt.direction, c.Direction)
			assert.Equal(t, tt.significance, c.Significance)
		})
	}
}

// A zero previous value pins the percent change to 0 while direction
// still reports the true movement.
func TestComparePeriodsZeroPrevious(t *testing.T) {
	c := ComparePeriods(500, 0)
	assert.Equal(t, 0.0, c.Percent)
	assert.Equal(t, 500.0, c.Absolute)
	assert.Equal(t, DirectionUp, c.Direction)
	assert.Equal(t, SignificanceNormal, c.Significance)
}
