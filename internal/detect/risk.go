package detect

import (
	"math"
	"time"
)

// RiskScore combines impact, confidence, and persistence into a
// unitless prioritisation score. Each factor is floored at zero, so the
// score is monotone in every factor and never negative.
func RiskScore(impact, confidence, persistence float64) float64 {
	return math.Max(0, impact) * math.Max(0, confidence) * math.Max(0, persistence)
}

// ImpactFromMetric translates a metric deviation into business impact.
// Scaling and direction are metric-specific: failure rates hurt when
// they rise, volume-style metrics when they fall.
func ImpactFromMetric(metric string, observed, referenceMean float64) float64 {
	switch metric {
	case "tx_fail_rate":
		return math.Max(0, observed-referenceMean) * 100.0
	case "latency_p95_ms":
		return math.Max(0, observed-referenceMean) / 100.0
	case "tx_completed":
		return math.Max(0, (referenceMean-observed)/math.Max(1, referenceMean)) * 10.0
	default:
		return math.Max(0, (referenceMean-observed)/math.Max(1, referenceMean)) * 5.0
	}
}

// PersistenceFactor rewards alerts that continue an already-deviating
// trend: 1.3 when the previous day's value sat beyond |z| > 2 against
// the same baseline, 1.0 otherwise. Computed once per metric/date and
// shared by all methods.
func PersistenceFactor(series *Series, target time.Time, baselineMean, baselineStd float64) float64 {
	if baselineStd <= 0 {
		return 1.0
	}
	previous, ok := series.ValueOn(NormalizeDate(target).AddDate(0, 0, -1))
	if !ok {
		return 1.0
	}
	if math.Abs(ZScore(previous, baselineMean, baselineStd)) > 2 {
		return 1.3
	}
	return 1.0
}
