package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Alert statuses. Transitions only move forward: OPEN -> ACK -> RESOLVED.
const (
	StatusOpen     = "OPEN"
	StatusAck      = "ACK"
	StatusResolved = "RESOLVED"
)

// Notification outcomes.
const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// MetricPoint is one observed daily value for a metric.
type MetricPoint struct {
	Date  time.Time
	Value decimal.Decimal
}

// RuleRow is the persisted detection rule configuration.
type RuleRow struct {
	RuleVersion string
	Config      json.RawMessage
	UpdatedAt   time.Time
}

// NewAlert carries the fields written when a detection method fires.
type NewAlert struct {
	MetricName  string
	MetricDate  time.Time
	Severity    string
	RuleVersion string
	RiskScore   float64
	Message     string
	Context     json.RawMessage
}

// Alert is a persisted alert with its full lifecycle state.
type Alert struct {
	ID          int64
	CreatedAt   time.Time
	MetricName  string
	MetricDate  time.Time
	Severity    string
	RuleVersion string
	RiskScore   float64
	Message     string
	Context     json.RawMessage
	Status      string
	AckedBy     *string
	AckedAt     *time.Time
	ResolvedBy  *string
	ResolvedAt  *time.Time
}

// PendingAlert is an alert still lacking a successful delivery for one
// channel/target pair.
type PendingAlert struct {
	AlertID    int64
	MetricName string
	MetricDate time.Time
	Severity   string
	RiskScore  float64
	Message    string
	Context    json.RawMessage
	CreatedAt  time.Time
}

// NotificationRecord captures one delivery outcome, upserted per
// (alert_id, channel, target).
type NotificationRecord struct {
	AlertID   int64
	Channel   string
	Target    string
	Status    string
	Payload   json.RawMessage
	LastError *string
}
