package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"metric-anomaly-alerts/internal/config"
	"metric-anomaly-alerts/internal/storage"
)

// WebhookChannel POSTs alert payloads as JSON, one target per
// configured endpoint, each dispatched independently.
type WebhookChannel struct {
	urls   []string
	client *http.Client
	logger zerolog.Logger
}

// NewWebhookChannel constructs the webhook channel from configuration.
func NewWebhookChannel(cfg config.WebhookConfig, logger zerolog.Logger) *WebhookChannel {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &WebhookChannel{
		urls:   cfg.URLs,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "notify_webhook").Logger(),
	}
}

// Name returns the channel identifier.
func (c *WebhookChannel) Name() string { return "webhook" }

// Targets returns one target per configured endpoint URL.
func (c *WebhookChannel) Targets() []string { return c.urls }

// Send posts one alert to a webhook endpoint.
func (c *WebhookChannel) Send(ctx context.Context, target string, alert storage.PendingAlert) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"alert_id":    alert.AlertID,
		"metric_name": alert.MetricName,
		"metric_date": alert.MetricDate.UTC().Format("2006-01-02"),
		"severity":    alert.Severity,
		"risk_score":  alert.RiskScore,
		"message":     alert.Message,
		"context":     alert.Context,
		"timestamp":   alert.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return payload, fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return payload, fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return payload, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	c.logger.Info().Int64("alert_id", alert.AlertID).Str("target", target).Msg("alert webhook sent")
	return payload, nil
}

var _ Channel = (*WebhookChannel)(nil)
