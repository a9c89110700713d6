package app

import (
	"context"
	"errors"
	"time"

	"gridshift/internal/service"
	"gridshift/internal/storage"
)

// Backfill evaluates every complete day in a date range.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	from := opts.From.UTC().Truncate(24 * time.Hour)
	to := opts.To.UTC().Truncate(24 * time.Hour)
	if from.After(to) {
		return errors.New("backfill range is empty; check --from/--to")
	}

	var runStore storage.ScenarioRunStore
	if opts.DryRun {
		a.Logger.Warn().Msg("backfill dry-run: nothing will be written to the database")
	} else {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("database.dsn not configured; cannot backfill")
		}
		defer closeStore()
		runStore = store
	}

	provider, err := a.openDataset()
	if err != nil {
		return err
	}

	svc, err := service.New(a.Config, nil, provider, runStore, nil, a.Logger)
	if err != nil {
		return err
	}

	processed := 0
	failed := 0
	for day := from; !day.After(to); day = day.Add(24 * time.Hour) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := svc.EvaluateDay(ctx, day); err != nil {
			failed++
			a.Logger.Error().Err(err).Time("day", day).Msg("backfill day failed")
			continue
		}
		processed++
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("backfill finished")
	if failed > 0 {
		return errors.New("some days failed to backfill; check the logs")
	}
	return nil
}
