package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"metric-anomaly-alerts/internal/config"
	"metric-anomaly-alerts/internal/notify"
	"metric-anomaly-alerts/internal/scheduler"
	"metric-anomaly-alerts/internal/service"
	"metric-anomaly-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI
// commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newChannels builds the configured notification channels. A channel
// with no configured destinations reports no targets and is skipped by
// the dispatcher.
func (a *App) newChannels() []notify.Channel {
	return []notify.Channel{
		notify.NewEmailChannel(a.Config.Notify.Email, a.Logger),
		notify.NewWebhookChannel(a.Config.Notify.Webhook, a.Logger),
	}
}

func (a *App) newService(store *storage.Store) *service.Service {
	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToStart,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	return service.New(a.Config, sched, store, a.newChannels(), a.Logger)
}

// Run executes the long-running detection/dispatch loop.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store)

	a.Logger.Info().Msg("starting detection service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("detection service stopped")
	return nil
}

// Detect runs one detection pass for targetDate.
func (a *App) Detect(ctx context.Context, targetDate time.Time) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	return a.newService(store).RunDetection(ctx, targetDate)
}

// Dispatch runs one notification pass over every enabled channel.
func (a *App) Dispatch(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	return a.newService(store).RunDispatch(ctx)
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting one metric's history.
type ExportOptions struct {
	Metric    string
	From      *time.Time
	To        *time.Time
	CSVPath   string
	PNGPath   string
	MaxPoints int
}
