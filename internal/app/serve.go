package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"metric-anomaly-alerts/internal/alerts"
	"metric-anomaly-alerts/internal/api"
)

// Serve runs the HTTP API for alert reads and lifecycle mutations.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := alerts.NewService(store, a.Logger)
	server := api.NewServer(a.Config.API, svc, a.Logger)

	err = server.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
