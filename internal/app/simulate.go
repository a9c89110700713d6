package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"gridshift/internal/config"
	"gridshift/internal/render"
	"gridshift/internal/scenario"
	"gridshift/internal/service"
	"gridshift/internal/storage"
)

// Simulate evaluates the shift scenario for one day and prints the outcome.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	cfg := *a.Config
	cfg.Scenario = overrideScenario(cfg.Scenario, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	provider, err := a.openDataset()
	if err != nil {
		return err
	}

	day := opts.Date
	if day.IsZero() {
		latest, ok := provider.LatestCompleteDay()
		if !ok {
			return errors.New("no complete day available in the datasets")
		}
		day = latest
	}

	var runStore storage.ScenarioRunStore
	if opts.Persist {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("database not configured; cannot persist the run")
		}
		defer closeStore()
		runStore = store
	}

	svc, err := service.New(&cfg, nil, provider, runStore, nil, a.Logger)
	if err != nil {
		return err
	}

	res, err := svc.EvaluateDay(ctx, day)
	if err != nil {
		return err
	}

	printResult(day, cfg.Scenario.Strategy, cfg.Scenario.CISource, res)

	if opts.CSVPath != "" {
		if err := render.WriteDayCSV(opts.CSVPath, res); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Msg("day written as CSV")
	}
	if opts.LoadPNGPath != "" {
		if err := render.WriteLoadPNG(opts.LoadPNGPath, res); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.LoadPNGPath).Msg("load chart written")
	}
	if opts.EmissionsPNGPath != "" {
		if err := render.WriteEmissionsPNG(opts.EmissionsPNGPath, res); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.EmissionsPNGPath).Msg("emissions chart written")
	}

	return nil
}

func overrideScenario(base config.ScenarioConfig, opts SimulateOptions) config.ScenarioConfig {
	if opts.DailyKWh != nil {
		base.DailyKWh = *opts.DailyKWh
	}
	if opts.FlexibleShare != nil {
		base.FlexibleShare = *opts.FlexibleShare
	}
	if opts.TargetHours != nil {
		base.TargetHours = *opts.TargetHours
	}
	if opts.Strategy != "" {
		base.Strategy = opts.Strategy
	}
	if opts.CISource != "" {
		base.CISource = opts.CISource
	}
	return base
}

func printResult(day time.Time, strategy, source string, res *scenario.Result) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Day\t%s\n", day.UTC().Format("2006-01-02"))
	fmt.Fprintf(writer, "Strategy\t%s (%s)\n", strategy, source)
	fmt.Fprintf(writer, "Baseline emissions\t%.1f gCO2\n", res.TotalBaselineEmissions)
	fmt.Fprintf(writer, "Shifted emissions\t%.1f gCO2\n", res.TotalShiftedEmissions)
	fmt.Fprintf(writer, "Reduction\t%.2f%%\n", res.RelativeReduction*100.0)
	fmt.Fprintf(writer, "Target hours\t%s\n", formatTargetHours(res.SelectedHours))
	writer.Flush()
}

func formatTargetHours(hours []time.Time) string {
	if len(hours) == 0 {
		return "-"
	}
	parts := make([]string, len(hours))
	for i, ts := range hours {
		parts[i] = ts.UTC().Format("15:04")
	}
	return strings.Join(parts, ", ")
}
