package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	listMetricValuesSQL = `SELECT
        metric_date,
        value::text
    FROM metrics_daily
    WHERE metric_name = $1
      AND metric_date >= $2
      AND metric_date <= $3
      AND value IS NOT NULL
    ORDER BY metric_date ASC;`

	loadRuleConfigSQL = `SELECT rule_version, config, updated_at
    FROM anomaly_rules
    WHERE rule_name = 'anomaly_rules'
    ORDER BY updated_at DESC
    LIMIT 1;`

	insertAlertSQL = `INSERT INTO alerts (
        metric_name,
        metric_date,
        severity,
        rule_version,
        risk_score,
        message,
        context
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    );`

	alertColumns = `alert_id, ts, metric_name, metric_date, severity, rule_version,
        risk_score, message, context, status, acked_by, acked_at,
        resolved_by, resolved_at`

	listRecentAlertsSQL = `SELECT ` + alertColumns + `
    FROM alerts
    ORDER BY ts DESC
    LIMIT $1;`

	acknowledgeAlertSQL = `UPDATE alerts
    SET status   = CASE WHEN status = 'OPEN' THEN 'ACK' ELSE status END,
        acked_by = COALESCE(acked_by, $2),
        acked_at = COALESCE(acked_at, NOW())
    WHERE alert_id = $1
    RETURNING ` + alertColumns + `;`

	resolveAlertSQL = `UPDATE alerts
    SET status      = 'RESOLVED',
        resolved_by = COALESCE(resolved_by, $2),
        resolved_at = COALESCE(resolved_at, NOW()),
        acked_by    = COALESCE(acked_by, $2),
        acked_at    = COALESCE(acked_at, NOW())
    WHERE alert_id = $1
    RETURNING ` + alertColumns + `;`

	listPendingAlertsSQL = `SELECT
        a.alert_id,
        a.metric_name,
        a.metric_date,
        a.severity,
        a.risk_score,
        a.message,
        a.context,
        a.ts
    FROM alerts a
    LEFT JOIN alert_notifications n
      ON n.alert_id = a.alert_id
     AND n.channel = $1
     AND n.target = $2
     AND n.status = 'sent'
    WHERE n.notification_id IS NULL
    ORDER BY a.ts ASC
    LIMIT $3;`

	recordNotificationSQL = `INSERT INTO alert_notifications (
        alert_id,
        channel,
        target,
        status,
        payload,
        last_error,
        sent_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,
        CASE WHEN $4::text = 'sent' THEN NOW() ELSE NULL END
    )
    ON CONFLICT (alert_id, channel, target)
    DO UPDATE SET
        status     = EXCLUDED.status,
        payload    = EXCLUDED.payload,
        last_error = EXCLUDED.last_error,
        sent_at    = EXCLUDED.sent_at,
        updated_at = NOW();`
)

// MetricSeriesStore reads the daily metric history produced by the
// external aggregation job.
type MetricSeriesStore interface {
	ListMetricValues(ctx context.Context, metric string, from, to time.Time) ([]MetricPoint, error)
}

// RuleStore reads the persisted detection rule configuration.
type RuleStore interface {
	LoadRuleConfig(ctx context.Context) (RuleRow, error)
}

// AlertStore persists alerts and exposes lifecycle mutations.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert NewAlert) error
	ListRecentAlerts(ctx context.Context, limit int) ([]Alert, error)
	AcknowledgeAlert(ctx context.Context, alertID int64, actor string) (Alert, error)
	ResolveAlert(ctx context.Context, alertID int64, actor string) (Alert, error)
}

// NotificationStore selects undelivered alerts and records delivery
// outcomes.
type NotificationStore interface {
	ListPendingAlerts(ctx context.Context, channel, target string, limit int) ([]PendingAlert, error)
	RecordNotification(ctx context.Context, record NotificationRecord) error
}

// ListMetricValues returns observed values inside the window, ascending
// by date.
func (s *Store) ListMetricValues(ctx context.Context, metric string, from, to time.Time) ([]MetricPoint, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, queryErr := db.Query(ctx, listMetricValuesSQL, metric, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list metric values: %w", queryErr)
	}
	defer rows.Close()

	points := make([]MetricPoint, 0)
	for rows.Next() {
		var (
			date     time.Time
			valueStr string
		)
		if scanErr := rows.Scan(&date, &valueStr); scanErr != nil {
			return nil, scanErr
		}
		value, convErr := decimal.NewFromString(valueStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse metric value: %w", convErr)
		}
		points = append(points, MetricPoint{Date: date, Value: value})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return points, nil
}

// LoadRuleConfig returns the most recently updated rule configuration
// row. pgx.ErrNoRows is returned when no configuration exists.
func (s *Store) LoadRuleConfig(ctx context.Context) (RuleRow, error) {
	db, err := s.getDB()
	if err != nil {
		return RuleRow{}, err
	}

	var row RuleRow
	if scanErr := db.QueryRow(ctx, loadRuleConfigSQL).Scan(&row.RuleVersion, &row.Config, &row.UpdatedAt); scanErr != nil {
		return RuleRow{}, fmt.Errorf("load rule config: %w", scanErr)
	}
	return row, nil
}

// InsertAlert persists a freshly raised alert in OPEN status.
func (s *Store) InsertAlert(ctx context.Context, alert NewAlert) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload := alert.Context
	if payload == nil {
		payload = json.RawMessage("{}")
	}

	if _, execErr := db.Exec(ctx, insertAlertSQL,
		alert.MetricName,
		alert.MetricDate,
		alert.Severity,
		alert.RuleVersion,
		alert.RiskScore,
		alert.Message,
		[]byte(payload),
	); execErr != nil {
		return fmt.Errorf("insert alert: %w", execErr)
	}
	return nil
}

// ListRecentAlerts lists most recent alerts, newest first.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]Alert, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, queryErr := db.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]Alert, 0, limit)
	for rows.Next() {
		alert, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, alert)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// AcknowledgeAlert moves an OPEN alert to ACK. Actor and timestamp are
// written only when unset, so repeated acknowledgements never overwrite
// the original acknowledger. Returns pgx.ErrNoRows for unknown ids.
func (s *Store) AcknowledgeAlert(ctx context.Context, alertID int64, actor string) (Alert, error) {
	db, err := s.getDB()
	if err != nil {
		return Alert{}, err
	}

	alert, scanErr := scanAlert(db.QueryRow(ctx, acknowledgeAlertSQL, alertID, actor))
	if scanErr != nil {
		if scanErr == pgx.ErrNoRows {
			return Alert{}, pgx.ErrNoRows
		}
		return Alert{}, fmt.Errorf("acknowledge alert: %w", scanErr)
	}
	return alert, nil
}

// ResolveAlert moves an alert to RESOLVED, backfilling the acknowledge
// fields when the alert was never acknowledged. Returns pgx.ErrNoRows
// for unknown ids.
func (s *Store) ResolveAlert(ctx context.Context, alertID int64, actor string) (Alert, error) {
	db, err := s.getDB()
	if err != nil {
		return Alert{}, err
	}

	alert, scanErr := scanAlert(db.QueryRow(ctx, resolveAlertSQL, alertID, actor))
	if scanErr != nil {
		if scanErr == pgx.ErrNoRows {
			return Alert{}, pgx.ErrNoRows
		}
		return Alert{}, fmt.Errorf("resolve alert: %w", scanErr)
	}
	return alert, nil
}

// ListPendingAlerts returns alerts lacking a sent notification record
// for the channel/target pair, oldest first. Alerts whose last attempt
// failed remain eligible.
func (s *Store) ListPendingAlerts(ctx context.Context, channel, target string, limit int) ([]PendingAlert, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, queryErr := db.Query(ctx, listPendingAlertsSQL, channel, target, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list pending alerts: %w", queryErr)
	}
	defer rows.Close()

	pending := make([]PendingAlert, 0, limit)
	for rows.Next() {
		var (
			alert      PendingAlert
			rawContext json.RawMessage
		)
		if scanErr := rows.Scan(
			&alert.AlertID,
			&alert.MetricName,
			&alert.MetricDate,
			&alert.Severity,
			&alert.RiskScore,
			&alert.Message,
			&rawContext,
			&alert.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		alert.Context = rawContext
		pending = append(pending, alert)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return pending, nil
}

// RecordNotification upserts a delivery outcome for one
// (alert, channel, target) triple.
func (s *Store) RecordNotification(ctx context.Context, record NotificationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload := record.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}

	var lastError interface{}
	if record.LastError != nil {
		lastError = *record.LastError
	}

	if _, execErr := db.Exec(ctx, recordNotificationSQL,
		record.AlertID,
		record.Channel,
		record.Target,
		record.Status,
		[]byte(payload),
		lastError,
	); execErr != nil {
		return fmt.Errorf("record notification: %w", execErr)
	}
	return nil
}

func scanAlert(row pgx.Row) (Alert, error) {
	var (
		alert      Alert
		rawContext json.RawMessage
		ackedBy    sql.NullString
		ackedAt    sql.NullTime
		resolvedBy sql.NullString
		resolvedAt sql.NullTime
	)

	if err := row.Scan(
		&alert.ID,
		&alert.CreatedAt,
		&alert.MetricName,
		&alert.MetricDate,
		&alert.Severity,
		&alert.RuleVersion,
		&alert.RiskScore,
		&alert.Message,
		&rawContext,
		&alert.Status,
		&ackedBy,
		&ackedAt,
		&resolvedBy,
		&resolvedAt,
	); err != nil {
		return Alert{}, err
	}

	alert.Context = rawContext
	if ackedBy.Valid {
		value := ackedBy.String
		alert.AckedBy = &value
	}
	if ackedAt.Valid {
		value := ackedAt.Time
		alert.AckedAt = &value
	}
	if resolvedBy.Valid {
		value := resolvedBy.String
		alert.ResolvedBy = &value
	}
	if resolvedAt.Valid {
		value := resolvedAt.Time
		alert.ResolvedAt = &value
	}

	return alert, nil
}
