package detect

import (
	"math"
	"testing"
	"time"
)

func inputFor(metric string, target time.Time, series *Series, observed float64) Input {
	baseline := series.Baseline(target)
	mean := Mean(baseline)
	std := SampleStdDev(baseline)
	return Input{
		Metric:       metric,
		Date:         target,
		Observed:     observed,
		Series:       series,
		Baseline:     baseline,
		BaselineMean: mean,
		BaselineStd:  std,
		Persistence:  PersistenceFactor(series, target, mean, std),
		Rules:        DefaultRuleConfig(),
	}
}

func TestZScoreMethodFiresOnSpike(t *testing.T) {
	target := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	history := []float64{0.01, 0.02, 0.015, 0.012, 0.018, 0.011, 0.019, 0.2}
	series := seriesFrom(target.AddDate(0, 0, -7), history)

	in := inputFor("tx_fail_rate", target, series, 0.2)
	draft := ZScoreMethod(in)
	if draft == nil {
		t.Fatal("失败率激增应触发 z_score 告警")
	}
	if draft.Severity != SeverityCritical {
		t.Fatalf("期望 CRITICAL, 实际 %s", draft.Severity)
	}
	if draft.Context["method"] != "z_score" {
		t.Fatalf("method 标记不正确: %v", draft.Context["method"])
	}
	if draft.Context["baseline_window_days"] != 7 {
		t.Fatalf("基线窗口应为 7 天, 实际 %v", draft.Context["baseline_window_days"])
	}

	// impact = (0.2 - 0.015) * 100, confidence clamps to 1.
	if math.Abs(draft.RiskScore-18.5) > 1e-9 {
		t.Fatalf("期望风险分 18.5, 实际 %v", draft.RiskScore)
	}
}

func TestZScoreMethodQuietOnStableSeries(t *testing.T) {
	target := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	series := seriesFrom(target.AddDate(0, 0, -7), []float64{10, 10.1, 9.9, 10, 10.1, 9.9, 10, 10.05})

	if draft := ZScoreMethod(inputFor("dau", target, series, 10.05)); draft != nil {
		t.Fatalf("平稳序列不应触发告警: %+v", draft)
	}
}

func TestZScoreMethodZeroVarianceNeverFires(t *testing.T) {
	target := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	series := seriesFrom(target.AddDate(0, 0, -7), []float64{5, 5, 5, 5, 5, 5, 5, 100})

	if draft := ZScoreMethod(inputFor("dau", target, series, 100)); draft != nil {
		t.Fatalf("零方差基线不应触发 z_score: %+v", draft)
	}
}

func TestEWMAMethodZeroVarianceNeverFires(t *testing.T) {
	target := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	series := seriesFrom(target.AddDate(0, 0, -7), []float64{5, 5, 5, 5, 5, 5, 5, 100})

	if draft := EWMAMethod(inputFor("dau", target, series, 100)); draft != nil {
		t.Fatalf("零方差基线不应触发 EWMA: %+v", draft)
	}
}

func TestEWMAMethodFiresOnSpike(t *testing.T) {
	target := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	history := []float64{0.01, 0.02, 0.015, 0.012, 0.018, 0.011, 0.019, 0.2}
	series := seriesFrom(target.AddDate(0, 0, -7), history)

	draft := EWMAMethod(inputFor("tx_fail_rate", target, series, 0.2))
	if draft == nil {
		t.Fatal("失败率激增应触发 EWMA 告警")
	}
	if draft.Context["method"] != "ewma" {
		t.Fatalf("method 标记不正确: %v", draft.Context["method"])
	}
}

func TestChangePointMethodFiresOnLevelShift(t *testing.T) {
	target := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	history := []float64{
		10, 10.1, 9.9, 10, 10.1, 9.9, 10,
		20, 20.1, 19.9, 20, 20.1, 19.9, 20,
	}
	series := seriesFrom(target.AddDate(0, 0, -13), history)

	draft := ChangePointMethod(inputFor("latency_p95_ms", target, series, 20))
	if draft == nil {
		t.Fatal("均值跳变应触发 change_point 告警")
	}
	if draft.Context["method"] != "change_point" {
		t.Fatalf("method 标记不正确: %v", draft.Context["method"])
	}
}

func TestChangePointMethodNeedsTwoWindows(t *testing.T) {
	target := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	series := seriesFrom(target.AddDate(0, 0, -7), []float64{10, 10.1, 9.9, 10, 10.1, 9.9, 10, 30})

	if draft := ChangePointMethod(inputFor("dau", target, series, 30)); draft != nil {
		t.Fatalf("数据不足两个窗口时不应触发: %+v", draft)
	}
}

func TestSeasonalMethodFiresOnWeekdayDeviation(t *testing.T) {
	// target 为周一, 历史三个周一在 10 附近, 观测值 30.
	target := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	series := seriesFrom(target.AddDate(0, 0, -21), []float64{
		10, 1, 1, 1, 1, 1, 1,
		10.2, 1, 1, 1, 1, 1, 1,
		9.8, 1, 1, 1, 1, 1, 1,
		30,
	})

	draft := SeasonalMethod(inputFor("dau", target, series, 30))
	if draft == nil {
		t.Fatal("周一基线偏离应触发季节性告警")
	}
	if draft.Context["method"] != "seasonal_decomposition" {
		t.Fatalf("method 标记不正确: %v", draft.Context["method"])
	}
}

func TestSeasonalMethodNeedsMinPoints(t *testing.T) {
	target := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	series := seriesFrom(target.AddDate(0, 0, -14), []float64{
		10, 1, 1, 1, 1, 1, 1,
		10.2, 1, 1, 1, 1, 1, 1,
		30,
	})

	if draft := SeasonalMethod(inputFor("dau", target, series, 30)); draft != nil {
		t.Fatalf("同周几样本不足时不应触发: %+v", draft)
	}
}

func TestRegimeShiftMethodFiresOnMeanShift(t *testing.T) {
	target := time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC)
	history := make([]float64, 0, 21)
	for i := 0; i < 14; i++ {
		if i%2 == 0 {
			history = append(history, 9.9)
		} else {
			history = append(history, 10.1)
		}
	}
	for i := 0; i < 7; i++ {
		history = append(history, 50)
	}
	series := seriesFrom(target.AddDate(0, 0, -20), history)

	draft := RegimeShiftMethod(inputFor("dau", target, series, 50))
	if draft == nil {
		t.Fatal("均值移位应触发 regime_shift 告警")
	}
	if draft.Context["method"] != "regime_shift" {
		t.Fatalf("method 标记不正确: %v", draft.Context["method"])
	}
}

func TestRegimeShiftMethodQuietOnStableSeries(t *testing.T) {
	target := time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC)
	history := make([]float64, 0, 21)
	for i := 0; i < 21; i++ {
		if i%2 == 0 {
			history = append(history, 9.9)
		} else {
			history = append(history, 10.1)
		}
	}
	series := seriesFrom(target.AddDate(0, 0, -20), history)

	if draft := RegimeShiftMethod(inputFor("dau", target, series, 10.1)); draft != nil {
		t.Fatalf("稳定序列不应触发 regime_shift: %+v", draft)
	}
}

func TestSeriesBaselineExcludesTarget(t *testing.T) {
	target := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	series := seriesFrom(target.AddDate(0, 0, -7), []float64{1, 2, 3, 4, 5, 6, 7, 99})

	baseline := series.Baseline(target)
	if len(baseline) != 7 {
		t.Fatalf("基线应含 7 个点, 实际 %d", len(baseline))
	}
	for _, v := range baseline {
		if v == 99 {
			t.Fatal("基线不应包含目标日取值")
		}
	}
}

func TestSeriesSameWeekdayKeepsLatest(t *testing.T) {
	target := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC) // Monday
	series := seriesFrom(target.AddDate(0, 0, -35), []float64{
		1, 0, 0, 0, 0, 0, 0,
		2, 0, 0, 0, 0, 0, 0,
		3, 0, 0, 0, 0, 0, 0,
		4, 0, 0, 0, 0, 0, 0,
		5, 0, 0, 0, 0, 0, 0,
		99,
	})

	got := series.SameWeekday(target, 4)
	if len(got) != 4 {
		t.Fatalf("应取 4 个同周几样本, 实际 %d", len(got))
	}
	want := []float64{2, 3, 4, 5}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("第 %d 个样本期望 %v, 实际 %v", i, v, got[i])
		}
	}
}
