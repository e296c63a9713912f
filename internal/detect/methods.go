package detect

import (
	"fmt"
	"math"
	"time"
)

// Input is the shared contract every detection method receives. Methods
// are order-independent and never suppress each other.
type Input struct {
	Metric       string
	Date         time.Time
	Observed     float64
	Series       *Series
	Baseline     []float64
	BaselineMean float64
	BaselineStd  float64
	Persistence  float64
	Rules        RuleConfig
}

// Draft is a method's decision to raise an alert, before persistence.
type Draft struct {
	Severity  string
	RiskScore float64
	Message   string
	Context   map[string]interface{}
}

// Method evaluates one statistical test against the shared input and
// returns nil when nothing fires.
type Method func(in Input) *Draft

// Methods returns the detection suite in its fixed evaluation order.
func Methods() []Method {
	return []Method{
		ZScoreMethod,
		EWMAMethod,
		ChangePointMethod,
		SeasonalMethod,
		RegimeShiftMethod,
	}
}

func confidenceFromZ(z float64) float64 {
	return math.Min(1.0, math.Abs(z)/5.0)
}

// ZScoreMethod flags deviations using a rolling z-score control.
func ZScoreMethod(in Input) *Draft {
	z := ZScore(in.Observed, in.BaselineMean, in.BaselineStd)
	if math.Abs(z) < 3 {
		return nil
	}

	impact := ImpactFromMetric(in.Metric, in.Observed, in.BaselineMean)
	confidence := confidenceFromZ(z)

	return &Draft{
		Severity:  SeverityFromZ(z),
		RiskScore: RiskScore(impact, confidence, in.Persistence),
		Message: fmt.Sprintf("%s anomalous on %s: observed=%.4g, baseline_mean=%.4g, z=%.2f",
			in.Metric, dateKey(in.Date), in.Observed, in.BaselineMean, z),
		Context: map[string]interface{}{
			"method":               "z_score",
			"observed":             in.Observed,
			"baseline_mean":        in.BaselineMean,
			"baseline_std":         in.BaselineStd,
			"z_score":              z,
			"impact":               impact,
			"confidence":           confidence,
			"persistence":          in.Persistence,
			"baseline_window_days": len(in.Baseline),
		},
	}
}

// EWMAMethod flags deviations using an EWMA control chart seeded from
// the baseline window.
func EWMAMethod(in Input) *Draft {
	if in.BaselineStd <= 0 || len(in.Baseline) < 2 {
		return nil
	}

	lambda := in.Rules.EWMALambda
	ewma := in.Baseline[0]
	for _, v := range in.Baseline[1:] {
		ewma = lambda*v + (1-lambda)*ewma
	}
	ewma = lambda*in.Observed + (1-lambda)*ewma

	sigma := in.BaselineStd * math.Sqrt(lambda/(2-lambda))
	if sigma <= 0 {
		return nil
	}
	z := (ewma - in.BaselineMean) / sigma
	if math.Abs(z) < in.Rules.EWMALimit {
		return nil
	}

	impact := ImpactFromMetric(in.Metric, in.Observed, in.BaselineMean)
	confidence := confidenceFromZ(z)

	return &Draft{
		Severity:  SeverityFromZ(z),
		RiskScore: RiskScore(impact, confidence, in.Persistence),
		Message: fmt.Sprintf("%s EWMA signal on %s: observed=%.4g, ewma=%.4g, z=%.2f",
			in.Metric, dateKey(in.Date), in.Observed, ewma, z),
		Context: map[string]interface{}{
			"method":        "ewma",
			"observed":      in.Observed,
			"ewma":          ewma,
			"baseline_mean": in.BaselineMean,
			"baseline_std":  in.BaselineStd,
			"ewma_z":        z,
			"impact":        impact,
			"confidence":    confidence,
			"persistence":   in.Persistence,
		},
	}
}

// ChangePointMethod flags level shifts using a two-window pooled
// variance test over the most recent 2*window points.
func ChangePointMethod(in Input) *Draft {
	window := in.Rules.ChangePointWindow
	values := in.Series.Values()
	if window <= 1 || len(values) < 2*window {
		return nil
	}

	recent := values[len(values)-window:]
	prior := values[len(values)-2*window : len(values)-window]

	recentMean := Mean(recent)
	priorMean := Mean(prior)
	recentVar := SampleVariance(recent)
	priorVar := SampleVariance(prior)

	pooledVar := (float64(len(recent)-1)*recentVar + float64(len(prior)-1)*priorVar) /
		float64(len(recent)+len(prior)-2)
	if pooledVar <= 0 {
		return nil
	}
	pooledStd := math.Sqrt(pooledVar)

	z := (recentMean - priorMean) / (pooledStd * math.Sqrt(2/float64(len(recent))))
	if math.Abs(z) < in.Rules.ChangePointZ {
		return nil
	}

	impact := ImpactFromMetric(in.Metric, in.Observed, in.BaselineMean)
	confidence := confidenceFromZ(z)

	return &Draft{
		Severity:  SeverityFromZ(z),
		RiskScore: RiskScore(impact, confidence, in.Persistence),
		Message: fmt.Sprintf("%s change-point on %s: prev_mean=%.4g, recent_mean=%.4g",
			in.Metric, dateKey(in.Date), priorMean, recentMean),
		Context: map[string]interface{}{
			"method":         "change_point",
			"observed":       in.Observed,
			"previous_mean":  priorMean,
			"recent_mean":    recentMean,
			"change_point_z": z,
			"impact":         impact,
			"confidence":     confidence,
			"persistence":    in.Persistence,
			"window":         window,
		},
	}
}

// SeasonalMethod flags deviations against a weekday baseline built from
// up to the last four same-weekday observations.
func SeasonalMethod(in Input) *Draft {
	seasonal := in.Series.SameWeekday(in.Date, 4)
	if len(seasonal) < in.Rules.SeasonalMinPoints {
		return nil
	}

	seasonalMean := Mean(seasonal)
	seasonalStd := SampleStdDev(seasonal)
	if seasonalStd <= 0 {
		return nil
	}

	z := (in.Observed - seasonalMean) / seasonalStd
	if math.Abs(z) < in.Rules.SeasonalZ {
		return nil
	}

	impact := ImpactFromMetric(in.Metric, in.Observed, seasonalMean)
	confidence := confidenceFromZ(z)

	return &Draft{
		Severity:  SeverityFromZ(z),
		RiskScore: RiskScore(impact, confidence, in.Persistence),
		Message: fmt.Sprintf("%s seasonal deviation on %s: observed=%.4g, seasonal_mean=%.4g",
			in.Metric, dateKey(in.Date), in.Observed, seasonalMean),
		Context: map[string]interface{}{
			"method":        "seasonal_decomposition",
			"observed":      in.Observed,
			"seasonal_mean": seasonalMean,
			"seasonal_std":  seasonalStd,
			"seasonal_z":    z,
			"impact":        impact,
			"confidence":    confidence,
			"persistence":   in.Persistence,
		},
	}
}

// RegimeShiftMethod flags sustained mean or variance shifts between a
// recent window and the prior baseline regime.
func RegimeShiftMethod(in Input) *Draft {
	recentDays := in.Rules.RegimeRecentDays
	baselineDays := in.Rules.RegimeBaselineDays
	values := in.Series.Values()
	if len(values) < recentDays+baselineDays {
		return nil
	}

	recent := values[len(values)-recentDays:]
	prior := values[len(values)-(recentDays+baselineDays) : len(values)-recentDays]
	if len(recent) < 2 || len(prior) < 2 {
		return nil
	}

	priorMean := Mean(prior)
	priorStd := SampleStdDev(prior)
	recentMean := Mean(recent)
	recentVar := SampleVariance(recent)
	priorVar := SampleVariance(prior)

	meanZ := 0.0
	if priorStd > 0 {
		meanZ = (recentMean - priorMean) / (priorStd / math.Sqrt(float64(len(recent))))
	}
	varRatio := math.Inf(1)
	if priorVar > 0 {
		varRatio = recentVar / priorVar
	}

	ratioLimit := in.Rules.RegimeVarRatio
	if math.Abs(meanZ) < in.Rules.RegimeZ && varRatio < ratioLimit && varRatio > 1/ratioLimit {
		return nil
	}

	impact := ImpactFromMetric(in.Metric, in.Observed, priorMean)
	confidence := confidenceFromZ(meanZ)

	// Inf is not representable in the JSON context payload.
	ctxVarRatio := interface{}(varRatio)
	if math.IsInf(varRatio, 0) {
		ctxVarRatio = nil
	}

	return &Draft{
		Severity:  SeverityFromZ(meanZ),
		RiskScore: RiskScore(impact, confidence, in.Persistence),
		Message: fmt.Sprintf("%s regime shift on %s: prior_mean=%.4g, recent_mean=%.4g",
			in.Metric, dateKey(in.Date), priorMean, recentMean),
		Context: map[string]interface{}{
			"method":      "regime_shift",
			"observed":    in.Observed,
			"prior_mean":  priorMean,
			"recent_mean": recentMean,
			"mean_z":      meanZ,
			"prior_var":   priorVar,
			"recent_var":  recentVar,
			"var_ratio":   ctxVarRatio,
			"impact":      impact,
			"confidence":  confidence,
			"persistence": in.Persistence,
		},
	}
}
