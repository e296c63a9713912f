package notify

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"metric-anomaly-alerts/internal/config"
)

func TestEmailChannelTargets(t *testing.T) {
	ch := NewEmailChannel(config.EmailConfig{}, zerolog.Nop())
	if len(ch.Targets()) != 0 {
		t.Fatal("无收件人配置时应无 target")
	}

	ch = NewEmailChannel(config.EmailConfig{
		Recipients: []string{"ops@example.com", " oncall@example.com ", ""},
	}, zerolog.Nop())

	targets := ch.Targets()
	if len(targets) != 1 {
		t.Fatalf("全部收件人应合并为单一 target, 实际 %d", len(targets))
	}
	if targets[0] != "ops@example.com,oncall@example.com" {
		t.Fatalf("target 合并不正确: %s", targets[0])
	}
}

func TestRenderEmailBody(t *testing.T) {
	body := renderEmailBody(pendingAlert(42))

	for _, fragment := range []string{
		"Alert details:",
		"Metric: tx_fail_rate",
		"Severity: WARN",
		"Risk score: 1.5",
		"Message: tx_fail_rate anomalous",
		`Context: {"method":"z_score"}`,
	} {
		if !strings.Contains(body, fragment) {
			t.Fatalf("邮件正文应包含 %q:\n%s", fragment, body)
		}
	}
}
