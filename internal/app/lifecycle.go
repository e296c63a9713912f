package app

import (
	"context"
	"fmt"
	"os"

	"metric-anomaly-alerts/internal/alerts"
)

// Acknowledge marks one alert acknowledged on behalf of actor. CLI
// invocations act with admin capability.
func (a *App) Acknowledge(ctx context.Context, alertID int64, actor string) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := alerts.NewService(store, a.Logger)
	alert, err := svc.Acknowledge(ctx, alertID, actor, alerts.RoleAdmin)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "alert %d status=%s acked_by=%s\n", alert.ID, alert.Status, deref(alert.AckedBy))
	return nil
}

// Resolve marks one alert resolved on behalf of actor.
func (a *App) Resolve(ctx context.Context, alertID int64, actor string) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := alerts.NewService(store, a.Logger)
	alert, err := svc.Resolve(ctx, alertID, actor, alerts.RoleAdmin)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "alert %d status=%s resolved_by=%s\n", alert.ID, alert.Status, deref(alert.ResolvedBy))
	return nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
