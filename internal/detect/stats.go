package detect

import "math"

// Alert severity bands.
const (
	SeverityInfo     = "INFO"
	SeverityWarn     = "WARN"
	SeverityCritical = "CRITICAL"
)

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleVariance returns the n-1 denominator variance, 0 when fewer
// than two values exist.
func SampleVariance(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}
	return sum / float64(n-1)
}

// SampleStdDev returns the sample standard deviation.
func SampleStdDev(values []float64) float64 {
	return math.Sqrt(SampleVariance(values))
}

// ZScore computes a z-score, guarded to 0 for near-zero variance.
func ZScore(value, mean, stdDev float64) float64 {
	if stdDev <= 1e-9 {
		return 0
	}
	return (value - mean) / stdDev
}

// SeverityFromZ maps a test statistic magnitude to a severity band.
func SeverityFromZ(z float64) string {
	absZ := math.Abs(z)
	if absZ >= 4 {
		return SeverityCritical
	}
	if absZ >= 3 {
		return SeverityWarn
	}
	return SeverityInfo
}
