package cli

import (
	"context"
	"strings"
)

func (a *App) Status(ctx context.Context) error {
	st, err := a.sync.Status(ctx)
	if err != nil {
		return err
	}
	renderStatus(a.out, st)
	return nil
}

// Sync replays queued changes now.
func (a *App) Sync(ctx context.Context) error {
	report, err := a.sync.Sync(ctx)
	if err != nil {
		return err
	}
	a.printf("Synced %d change(s).\n", len(report.Applied))
	for _, d := range report.Discarded {
		a.printf("Dropped %s %s/%s: %s\n", d.Op.Kind, d.Op.Collection, d.Op.EntityID, describe(d.Err))
	}
	if report.Stopped != nil {
		a.printf("%d change(s) still waiting: %v\n", report.Remaining, report.Stopped)
	}
	return nil
}

func (a *App) Pending(ctx context.Context) error {
	ops, err := a.sync.Pending(ctx)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		a.printf("Nothing waiting to sync.\n")
		return nil
	}
	for _, op := range ops {
		line := op.OpID + "  " + string(op.Kind) + " " + op.Collection + "/" + op.EntityID + "  queued " + ago(op.CreatedAt)
		if op.Attempts > 0 {
			line += "  last error: " + strings.TrimSpace(op.LastError)
		}
		a.printf("%s\n", line)
	}
	return nil
}

// SetOffline forces offline mode on or off.
func (a *App) SetOffline(ctx context.Context, offline bool) error {
	a.sync.SetOffline(ctx, offline)
	if offline {
		a.printf("Offline mode on: changes are saved locally.\n")
	} else {
		a.printf("Offline mode off.\n")
	}
	return nil
}
