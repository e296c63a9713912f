package alerts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"metric-anomaly-alerts/internal/storage"
)

var (
	// ErrNotFound indicates the alert id does not exist.
	ErrNotFound = errors.New("alert not found")
	// ErrForbidden indicates the caller's capability level is too low.
	ErrForbidden = errors.New("forbidden")
)

// Maximum page size for the recent-alerts query surface.
const MaxRecentLimit = 200

// Service exposes alert lifecycle mutations and the outward read
// surface, gated by caller capability.
type Service struct {
	store  storage.AlertStore
	logger zerolog.Logger
}

// NewService wires the alert store into a lifecycle service.
func NewService(store storage.AlertStore, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "alerts").Logger(),
	}
}

// Recent lists the most recent alerts, newest first. The limit is
// clamped to [1, MaxRecentLimit].
func (s *Service) Recent(ctx context.Context, limit int) ([]storage.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	return s.store.ListRecentAlerts(ctx, limit)
}

// Acknowledge moves an alert to ACK on behalf of actor. Repeated
// acknowledgements are idempotent: an existing acknowledger is never
// overwritten. Requires at least operator capability.
func (s *Service) Acknowledge(ctx context.Context, alertID int64, actor string, role Role) (storage.Alert, error) {
	if !role.AtLeast(RoleOperator) {
		return storage.Alert{}, fmt.Errorf("%w: acknowledging requires operator capability", ErrForbidden)
	}
	if actor == "" {
		return storage.Alert{}, fmt.Errorf("actor is required")
	}

	alert, err := s.store.AcknowledgeAlert(ctx, alertID, actor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Alert{}, ErrNotFound
		}
		return storage.Alert{}, err
	}

	s.logger.Info().Int64("alert_id", alertID).Str("actor", actor).Msg("alert acknowledged")
	return alert, nil
}

// Resolve moves an alert to RESOLVED, backfilling the acknowledge
// fields when the alert was never acknowledged. Requires at least
// operator capability.
func (s *Service) Resolve(ctx context.Context, alertID int64, actor string, role Role) (storage.Alert, error) {
	if !role.AtLeast(RoleOperator) {
		return storage.Alert{}, fmt.Errorf("%w: resolving requires operator capability", ErrForbidden)
	}
	if actor == "" {
		return storage.Alert{}, fmt.Errorf("actor is required")
	}

	alert, err := s.store.ResolveAlert(ctx, alertID, actor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Alert{}, ErrNotFound
		}
		return storage.Alert{}, err
	}

	s.logger.Info().Int64("alert_id", alertID).Str("actor", actor).Msg("alert resolved")
	return alert, nil
}
