package detect

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"metric-anomaly-alerts/internal/storage"
)

type fakeSeriesStore struct {
	points map[string][]storage.MetricPoint
	err    error
}

func (f *fakeSeriesStore) ListMetricValues(_ context.Context, metric string, from, to time.Time) ([]storage.MetricPoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]storage.MetricPoint, 0)
	for _, p := range f.points[metric] {
		if !p.Date.Before(from) && !p.Date.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeRuleStore struct {
	row storage.RuleRow
	err error
}

func (f *fakeRuleStore) LoadRuleConfig(context.Context) (storage.RuleRow, error) {
	return f.row, f.err
}

type fakeAlertWriter struct {
	alerts []storage.NewAlert
	err    error
}

func (f *fakeAlertWriter) InsertAlert(_ context.Context, alert storage.NewAlert) error {
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, alert)
	return nil
}

func dailyPoints(start time.Time, values []float64) []storage.MetricPoint {
	points := make([]storage.MetricPoint, 0, len(values))
	for i, v := range values {
		points = append(points, storage.MetricPoint{
			Date:  start.AddDate(0, 0, i),
			Value: decimal.NewFromFloat(v),
		})
	}
	return points
}

func TestRunnerRaisesAlertOnSpike(t *testing.T) {
	target := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	series := &fakeSeriesStore{points: map[string][]storage.MetricPoint{
		"tx_fail_rate": dailyPoints(target.AddDate(0, 0, -7),
			[]float64{0.01, 0.02, 0.015, 0.012, 0.018, 0.011, 0.019, 0.2}),
	}}
	writer := &fakeAlertWriter{}

	runner := NewRunner([]string{"tx_fail_rate"}, 30, zerolog.Nop())
	src := Sources{Series: series, Rules: &fakeRuleStore{err: errors.New("no rules")}, Alerts: writer}

	if err := runner.Run(context.Background(), src, target); err != nil {
		t.Fatalf("检测运行不应失败: %v", err)
	}
	if len(writer.alerts) == 0 {
		t.Fatal("失败率激增应写入告警")
	}

	alert := writer.alerts[0]
	if alert.MetricName != "tx_fail_rate" {
		t.Fatalf("metric 不正确: %s", alert.MetricName)
	}
	if !alert.MetricDate.Equal(target) {
		t.Fatalf("告警日期不正确: %v", alert.MetricDate)
	}
	if alert.RuleVersion != "v1" {
		t.Fatalf("规则缺失时应回退默认版本 v1, 实际 %s", alert.RuleVersion)
	}
	if alert.Severity != SeverityCritical {
		t.Fatalf("期望 CRITICAL, 实际 %s", alert.Severity)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(alert.Context, &payload); err != nil {
		t.Fatalf("context 应为合法 JSON: %v", err)
	}
	if payload["method"] != "z_score" {
		t.Fatalf("首条告警应来自 z_score, 实际 %v", payload["method"])
	}
}

func TestRunnerSkipsShortSeries(t *testing.T) {
	target := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	series := &fakeSeriesStore{points: map[string][]storage.MetricPoint{
		"dau": dailyPoints(target.AddDate(0, 0, -4), []float64{1, 2, 3, 4, 100}),
	}}
	writer := &fakeAlertWriter{}

	runner := NewRunner([]string{"dau"}, 30, zerolog.Nop())
	src := Sources{Series: series, Rules: &fakeRuleStore{}, Alerts: writer}

	if err := runner.Run(context.Background(), src, target); err != nil {
		t.Fatalf("数据不足应静默跳过: %v", err)
	}
	if len(writer.alerts) != 0 {
		t.Fatalf("数据不足不应写入告警: %d 条", len(writer.alerts))
	}
}

func TestRunnerSkipsMissingTargetValue(t *testing.T) {
	target := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	series := &fakeSeriesStore{points: map[string][]storage.MetricPoint{
		"dau": dailyPoints(target.AddDate(0, 0, -8),
			[]float64{10, 10, 11, 9, 10, 11, 9, 10}),
	}}
	writer := &fakeAlertWriter{}

	runner := NewRunner([]string{"dau"}, 30, zerolog.Nop())
	src := Sources{Series: series, Rules: &fakeRuleStore{}, Alerts: writer}

	if err := runner.Run(context.Background(), src, target); err != nil {
		t.Fatalf("目标日缺值应静默跳过: %v", err)
	}
	if len(writer.alerts) != 0 {
		t.Fatalf("目标日缺值不应写入告警: %d 条", len(writer.alerts))
	}
}

func TestRunnerPropagatesWriteFailure(t *testing.T) {
	target := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	series := &fakeSeriesStore{points: map[string][]storage.MetricPoint{
		"tx_fail_rate": dailyPoints(target.AddDate(0, 0, -7),
			[]float64{0.01, 0.02, 0.015, 0.012, 0.018, 0.011, 0.019, 0.2}),
	}}
	writer := &fakeAlertWriter{err: errors.New("insert failed")}

	runner := NewRunner([]string{"tx_fail_rate"}, 30, zerolog.Nop())
	src := Sources{Series: series, Rules: &fakeRuleStore{}, Alerts: writer}

	if err := runner.Run(context.Background(), src, target); err == nil {
		t.Fatal("写入失败应向上传播以回滚事务")
	}
}

func TestLoadRuleConfigOverrides(t *testing.T) {
	row := storage.RuleRow{
		RuleVersion: "v2",
		Config:      json.RawMessage(`{"ewma_lambda": 0.5, "change_point_window": 10}`),
	}
	cfg := LoadRuleConfig(context.Background(), &fakeRuleStore{row: row}, zerolog.Nop())

	if cfg.RuleVersion != "v2" {
		t.Fatalf("规则版本应为 v2, 实际 %s", cfg.RuleVersion)
	}
	if cfg.EWMALambda != 0.5 {
		t.Fatalf("ewma_lambda 应被覆盖, 实际 %v", cfg.EWMALambda)
	}
	if cfg.ChangePointWindow != 10 {
		t.Fatalf("change_point_window 应被覆盖, 实际 %v", cfg.ChangePointWindow)
	}
	if cfg.EWMALimit != 3.0 {
		t.Fatalf("未覆盖字段应保留默认值, 实际 %v", cfg.EWMALimit)
	}
}

func TestLoadRuleConfigBadPayloadFallsBack(t *testing.T) {
	row := storage.RuleRow{RuleVersion: "v9", Config: json.RawMessage(`{broken`)}
	cfg := LoadRuleConfig(context.Background(), &fakeRuleStore{row: row}, zerolog.Nop())

	defaults := DefaultRuleConfig()
	if cfg != defaults {
		t.Fatalf("非法配置应整体回退默认值: %+v", cfg)
	}
}
