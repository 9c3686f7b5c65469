// Package ta holds the small statistical helpers used when deriving
// trending movers from a listings page, plus a trend label for ticks.
package ta

import "math"

// trendDeadband is the percent-change band treated as flat.
const trendDeadband = 0.1

// TrendLabel classifies a 24h percent change as "up", "down", or "flat".
func TrendLabel(changePct float64) string {
	switch {
	case changePct > trendDeadband:
		return "up"
	case changePct < -trendDeadband:
		return "down"
	default:
		return "flat"
	}
}

// MeanStd returns the mean and population standard deviation of values.
func MeanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// ZScore reports how many standard deviations v sits from mean. A zero
// std yields 0 rather than an infinity.
func ZScore(v, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (v - mean) / std
}
