package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"metric-anomaly-alerts/internal/config"
	"metric-anomaly-alerts/internal/detect"
	"metric-anomaly-alerts/internal/notify"
	"metric-anomaly-alerts/internal/scheduler"
	"metric-anomaly-alerts/internal/storage"
)

// Service orchestrates detection runs and notification dispatch.
type Service struct {
	scheduler     *scheduler.Scheduler
	store         *storage.Store
	runner        *detect.Runner
	channels      []notify.Channel
	dispatchLimit int
	logger        zerolog.Logger
}

// New constructs the detection/dispatch service.
func New(cfg *config.Config, sched *scheduler.Scheduler, store *storage.Store, channels []notify.Channel, logger zerolog.Logger) *Service {
	return &Service{
		scheduler:     sched,
		store:         store,
		runner:        detect.NewRunner(cfg.Detection.Metrics, cfg.Detection.LookbackDays, logger),
		channels:      channels,
		dispatchLimit: cfg.Notify.Limit,
		logger:        logger.With().Str("component", "service").Logger(),
	}
}

// Run begins the aligned daily loop: detection for the previous day,
// then dispatch.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, func(ctx context.Context, bucket time.Time) error {
		target := detect.NormalizeDate(bucket).AddDate(0, 0, -1)
		if err := s.RunDetection(ctx, target); err != nil {
			return err
		}
		return s.RunDispatch(ctx)
	})
}

// RunDetection executes one detection pass for targetDate inside a
// single transaction: either every alert the pass raises is committed,
// or none are.
func (s *Service) RunDetection(ctx context.Context, targetDate time.Time) error {
	if s.store == nil {
		return storage.ErrNotConfigured
	}
	return s.store.WithTx(ctx, func(tx *storage.Store) error {
		src := detect.Sources{Series: tx, Rules: tx, Alerts: tx}
		return s.runner.Run(ctx, src, targetDate)
	})
}

// RunDispatch pushes undelivered alerts through each enabled channel in
// turn. Channel failures are logged per alert and never abort the pass;
// only storage failures do.
func (s *Service) RunDispatch(ctx context.Context) error {
	if s.store == nil {
		return storage.ErrNotConfigured
	}

	for _, channel := range s.channels {
		err := s.store.WithTx(ctx, func(tx *storage.Store) error {
			dispatcher := notify.NewDispatcher(tx, s.logger)
			sent, err := dispatcher.Dispatch(ctx, channel, s.dispatchLimit)
			if err != nil {
				return err
			}
			s.logger.Info().Str("channel", channel.Name()).Int("delivered", sent).Msg("dispatch pass finished")
			return nil
		})
		if err != nil {
			return fmt.Errorf("dispatch %s: %w", channel.Name(), err)
		}
	}
	return nil
}

// YesterdayUTC returns the default detection target date.
func YesterdayUTC() time.Time {
	return detect.NormalizeDate(time.Now().UTC()).AddDate(0, 0, -1)
}
