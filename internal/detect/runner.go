package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"metric-anomaly-alerts/internal/storage"
)

// Skip gates: a metric/date is evaluated only with enough history.
const (
	minSeriesPoints   = 6
	minBaselinePoints = 5
)

// AlertWriter persists alerts raised by detection methods.
type AlertWriter interface {
	InsertAlert(ctx context.Context, alert storage.NewAlert) error
}

// Sources bundles the stores a detection pass reads and writes. All
// three are expected to be bound to the same transaction.
type Sources struct {
	Series storage.MetricSeriesStore
	Rules  storage.RuleStore
	Alerts AlertWriter
}

// Runner evaluates every detection method against every tracked metric
// for one target date.
type Runner struct {
	metrics      []string
	lookbackDays int
	logger       zerolog.Logger
}

// NewRunner constructs a Runner for the configured metric set.
func NewRunner(metrics []string, lookbackDays int, logger zerolog.Logger) *Runner {
	return &Runner{
		metrics:      metrics,
		lookbackDays: lookbackDays,
		logger:       logger.With().Str("component", "detect").Logger(),
	}
}

// Run executes the full detection pass. Metrics with insufficient
// history are skipped silently; any persistence failure propagates so
// the surrounding transaction rolls back the whole run.
func (r *Runner) Run(ctx context.Context, src Sources, targetDate time.Time) error {
	target := NormalizeDate(targetDate)
	rules := LoadRuleConfig(ctx, src.Rules, r.logger)

	r.logger.Info().
		Str("target_date", dateKey(target)).
		Str("rule_version", rules.RuleVersion).
		Msg("detection run started")

	for _, metric := range r.metrics {
		if err := r.runMetric(ctx, src, metric, target, rules); err != nil {
			return err
		}
	}

	r.logger.Info().Str("target_date", dateKey(target)).Msg("detection run complete")
	return nil
}

func (r *Runner) runMetric(ctx context.Context, src Sources, metric string, target time.Time, rules RuleConfig) error {
	from := target.AddDate(0, 0, -r.lookbackDays)
	points, err := src.Series.ListMetricValues(ctx, metric, from, target)
	if err != nil {
		return fmt.Errorf("load series for %s: %w", metric, err)
	}

	series := BuildSeries(points)
	if series.Len() < minSeriesPoints {
		return nil
	}

	observed, ok := series.ValueOn(target)
	if !ok {
		return nil
	}

	baseline := series.Baseline(target)
	if len(baseline) < minBaselinePoints {
		return nil
	}

	baselineMean := Mean(baseline)
	baselineStd := SampleStdDev(baseline)
	persistence := PersistenceFactor(series, target, baselineMean, baselineStd)

	in := Input{
		Metric:       metric,
		Date:         target,
		Observed:     observed,
		Series:       series,
		Baseline:     baseline,
		BaselineMean: baselineMean,
		BaselineStd:  baselineStd,
		Persistence:  persistence,
		Rules:        rules,
	}

	for _, method := range Methods() {
		draft := method(in)
		if draft == nil {
			continue
		}

		payload, err := json.Marshal(draft.Context)
		if err != nil {
			return fmt.Errorf("encode alert context: %w", err)
		}

		alert := storage.NewAlert{
			MetricName:  metric,
			MetricDate:  target,
			Severity:    draft.Severity,
			RuleVersion: rules.RuleVersion,
			RiskScore:   draft.RiskScore,
			Message:     draft.Message,
			Context:     payload,
		}
		if err := src.Alerts.InsertAlert(ctx, alert); err != nil {
			return fmt.Errorf("persist alert for %s: %w", metric, err)
		}

		r.logger.Info().
			Str("metric", metric).
			Str("method", fmt.Sprint(draft.Context["method"])).
			Str("severity", draft.Severity).
			Float64("risk_score", draft.RiskScore).
			Msg("alert raised")
	}

	return nil
}
