package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"metric-anomaly-alerts/internal/config"
	"metric-anomaly-alerts/internal/storage"
)

// EmailChannel delivers alerts over SMTP. All configured recipients
// form one combined destination, so an alert counts as delivered once
// the whole group received it.
type EmailChannel struct {
	cfg    config.EmailConfig
	logger zerolog.Logger
}

// NewEmailChannel constructs the email channel from configuration.
func NewEmailChannel(cfg config.EmailConfig, logger zerolog.Logger) *EmailChannel {
	return &EmailChannel{
		cfg:    cfg,
		logger: logger.With().Str("component", "notify_email").Logger(),
	}
}

// Name returns the channel identifier.
func (c *EmailChannel) Name() string { return "email" }

// Targets returns the single comma-joined recipient list, or nothing
// when no recipients are configured.
func (c *EmailChannel) Targets() []string {
	recipients := c.recipients()
	if len(recipients) == 0 {
		return nil
	}
	return []string{strings.Join(recipients, ",")}
}

func (c *EmailChannel) recipients() []string {
	out := make([]string, 0, len(c.cfg.Recipients))
	for _, r := range c.cfg.Recipients {
		if trimmed := strings.TrimSpace(r); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Send renders and delivers one alert email.
func (c *EmailChannel) Send(ctx context.Context, target string, alert storage.PendingAlert) (json.RawMessage, error) {
	recipients := c.recipients()
	subject := fmt.Sprintf("[metricwatcher] %s %s %s",
		alert.Severity, alert.MetricName, alert.MetricDate.UTC().Format("2006-01-02"))

	payload, err := json.Marshal(map[string]interface{}{
		"subject":    subject,
		"recipients": recipients,
		"alert_id":   alert.AlertID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal email payload: %w", err)
	}

	body := renderEmailBody(alert)
	if err := c.send(ctx, recipients, subject, body); err != nil {
		return payload, err
	}

	c.logger.Info().Int64("alert_id", alert.AlertID).Str("target", target).Msg("alert email sent")
	return payload, nil
}

func renderEmailBody(alert storage.PendingAlert) string {
	builder := strings.Builder{}
	builder.WriteString("Alert details:\n")
	builder.WriteString(fmt.Sprintf("Metric: %s\n", alert.MetricName))
	builder.WriteString(fmt.Sprintf("Severity: %s\n", alert.Severity))
	builder.WriteString(fmt.Sprintf("Risk score: %g\n", alert.RiskScore))
	builder.WriteString(fmt.Sprintf("Message: %s\n", alert.Message))
	builder.WriteString(fmt.Sprintf("Timestamp: %s\n", alert.CreatedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Context: %s\n", string(alert.Context)))
	return builder.String()
}

func (c *EmailChannel) send(ctx context.Context, recipients []string, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", c.cfg.SMTPHost, c.cfg.SMTPPort)

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}

	client, err := smtp.NewClient(conn, c.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if c.cfg.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: c.cfg.SMTPHost}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if c.cfg.Username != "" && c.cfg.Password != "" {
		auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(c.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		c.cfg.From, strings.Join(recipients, ", "), subject, body)
	if _, err := writer.Write([]byte(message)); err != nil {
		writer.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}

	return client.Quit()
}

var _ Channel = (*EmailChannel)(nil)
