package notify

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"metric-anomaly-alerts/internal/storage"
)

// Channel delivers alert payloads to one kind of destination. A channel
// with no targets is configured off and is skipped without error.
type Channel interface {
	Name() string
	Targets() []string
	// Send attempts delivery to one target. The returned payload is
	// what was (or would have been) delivered and is recorded with the
	// outcome even when the send fails.
	Send(ctx context.Context, target string, alert storage.PendingAlert) (json.RawMessage, error)
}

// Dispatcher pushes undelivered alerts through a channel and records
// each outcome. The send happens outside the record write, so delivery
// is at-least-once: a crash between the two leaves the alert eligible
// for the next run.
type Dispatcher struct {
	store  storage.NotificationStore
	logger zerolog.Logger
}

// NewDispatcher wires the notification store into a Dispatcher.
func NewDispatcher(store storage.NotificationStore, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

// Dispatch selects alerts still lacking a sent record for each of the
// channel's targets, attempts delivery oldest-first up to limit per
// target, and upserts the outcome. A failed send never blocks later
// alerts in the same run. Returns the number of successful deliveries.
func (d *Dispatcher) Dispatch(ctx context.Context, ch Channel, limit int) (int, error) {
	targets := ch.Targets()
	if len(targets) == 0 {
		d.logger.Info().Str("channel", ch.Name()).Msg("channel not configured; skipped")
		return 0, nil
	}

	sent := 0
	for _, target := range targets {
		pending, err := d.store.ListPendingAlerts(ctx, ch.Name(), target, limit)
		if err != nil {
			return sent, err
		}

		for _, alert := range pending {
			payload, sendErr := ch.Send(ctx, target, alert)

			record := storage.NotificationRecord{
				AlertID: alert.AlertID,
				Channel: ch.Name(),
				Target:  target,
				Payload: payload,
			}
			if sendErr != nil {
				errText := sendErr.Error()
				record.Status = storage.NotificationFailed
				record.LastError = &errText
				d.logger.Error().Err(sendErr).
					Str("channel", ch.Name()).
					Int64("alert_id", alert.AlertID).
					Msg("notification delivery failed")
			} else {
				record.Status = storage.NotificationSent
				sent++
			}

			if err := d.store.RecordNotification(ctx, record); err != nil {
				return sent, err
			}
		}
	}

	d.logger.Info().Str("channel", ch.Name()).Int("sent", sent).Msg("dispatch complete")
	return sent, nil
}
