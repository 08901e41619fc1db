package scoring

import "math"

// Placement describes where a value sits relative to a range.
type Placement int

const (
	// Within means the value satisfies every bound.
	Within Placement = iota
	// Below means the value is under the minimum but inside the tolerance band.
	Below
	// Above means the value is over the maximum but inside the tolerance band.
	Above
	// TooLow means the value is under the tolerance-widened minimum.
	TooLow
	// TooHigh means the value is over the tolerance-widened maximum.
	TooHigh
	// Inverted means min > max; nothing can satisfy the range.
	Inverted
)

// Miss reports whether the placement is outside the tolerance band.
func (p Placement) Miss() bool {
	return p == TooLow || p == TooHigh || p == Inverted
}

// Fit is the result of scoring one value against one range.
type Fit struct {
	Score     float64 // 0..100
	Placement Placement
	// Off is how far outside the nearer bound the value is, as a percentage
	// of that bound. Zero when Within.
	Off float64
}

// scoreWithTolerance scores value against [min, max] with a tolerance band
// expressed as a percentage of the nearer bound. Inside the range scores 100;
// inside the widened range the score decays linearly to 0 at the widened edge,
// min*(1-t/100) below and max*(1+t/100) above.
func scoreWithTolerance(value float64, min, max *float64, toleranceBand int) Fit {
	t := float64(toleranceBand)
	var lo, hi float64
	if min != nil {
		lo = *min * (1 - t/100)
	}
	if max != nil {
		hi = *max * (1 + t/100)
	}
	return scoreWithin(value, min, max, lo, hi)
}

// scoreWithSpan is scoreWithTolerance with explicit band widths below the
// minimum and above the maximum.
func scoreWithSpan(value float64, min, max *float64, below, above float64) Fit {
	var lo, hi float64
	if min != nil {
		lo = *min - below
	}
	if max != nil {
		hi = *max + above
	}
	return scoreWithin(value, min, max, lo, hi)
}

// scoreWithin scores value against [min, max] widened to the edges lo and hi.
// A value exactly on an edge scores 0 but is still inside the band.
func scoreWithin(value float64, min, max *float64, lo, hi float64) Fit {
	if min != nil && max != nil && *min > *max {
		return Fit{Score: 0, Placement: Inverted}
	}

	if min != nil && value < *min {
		off := percentOff(*min-value, *min)
		band := *min - lo
		if band <= 0 || value < lo {
			return Fit{Score: 0, Placement: TooLow, Off: off}
		}
		return Fit{Score: 100 * (value - lo) / band, Placement: Below, Off: off}
	}

	if max != nil && value > *max {
		off := percentOff(value-*max, *max)
		band := hi - *max
		if band <= 0 || value > hi {
			return Fit{Score: 0, Placement: TooHigh, Off: off}
		}
		return Fit{Score: 100 * (hi - value) / band, Placement: Above, Off: off}
	}

	return Fit{Score: 100, Placement: Within}
}

// percentOff returns diff as a percentage of base, or 100 when base is zero.
func percentOff(diff, base float64) float64 {
	if base == 0 {
		return 100
	}
	return diff / base * 100
}

// round returns the nearest integer, half away from zero.
func round(v float64) int {
	return int(math.Round(v))
}

// clamp100 limits v to 0..100.
func clamp100(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
