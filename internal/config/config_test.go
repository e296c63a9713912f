package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: metricwatcher\n"))
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Scheduler.Interval != 24*time.Hour {
		t.Fatalf("默认调度间隔应为 24h, 实际 %v", cfg.Scheduler.Interval)
	}
	if len(cfg.Detection.Metrics) != 4 {
		t.Fatalf("默认应跟踪 4 项指标, 实际 %v", cfg.Detection.Metrics)
	}
	if cfg.Detection.LookbackDays != 30 {
		t.Fatalf("默认回看窗口应为 30 天, 实际 %d", cfg.Detection.LookbackDays)
	}
	if cfg.Notify.Limit != 50 {
		t.Fatalf("默认批量上限应为 50, 实际 %d", cfg.Notify.Limit)
	}
	if cfg.API.ListenAddr != ":8080" {
		t.Fatalf("默认监听地址不正确: %s", cfg.API.ListenAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
detection:
  metrics:
    - tx_fail_rate
  lookback_days: 14
scheduler:
  interval: 1h
notify:
  limit: 10
  webhook:
    urls:
      - http://hooks.example/alerts
    request_timeout: 2s
`))
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if len(cfg.Detection.Metrics) != 1 || cfg.Detection.Metrics[0] != "tx_fail_rate" {
		t.Fatalf("指标列表应被覆盖: %v", cfg.Detection.Metrics)
	}
	if cfg.Detection.LookbackDays != 14 {
		t.Fatalf("回看窗口应被覆盖, 实际 %d", cfg.Detection.LookbackDays)
	}
	if cfg.Scheduler.Interval != time.Hour {
		t.Fatalf("调度间隔应被覆盖, 实际 %v", cfg.Scheduler.Interval)
	}
	if cfg.Notify.Webhook.RequestTimeout != 2*time.Second {
		t.Fatalf("webhook 超时应被覆盖, 实际 %v", cfg.Notify.Webhook.RequestTimeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []string{
		"scheduler:\n  interval: 0s\n",
		"detection:\n  metrics: []\n",
		"detection:\n  lookback_days: -1\n",
		"notify:\n  limit: 0\n",
	}
	for _, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Fatalf("非法配置应被拒绝: %s", content)
		}
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 1000}}

	if got := cfg.ResolveMaxPoints(0); got != 1000 {
		t.Fatalf("无覆盖时应取配置值, 实际 %d", got)
	}
	if got := cfg.ResolveMaxPoints(50); got != 50 {
		t.Fatalf("CLI 覆盖应生效, 实际 %d", got)
	}
}
