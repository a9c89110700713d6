package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gridshift/internal/app"
)

var (
	simulateDate         string
	simulateDailyKWh     float64
	simulateFlexShare    float64
	simulateTargetHours  int
	simulateStrategy     string
	simulateCISource     string
	simulateCSVPath      string
	simulateLoadPNG      string
	simulateEmissionsPNG string
	simulatePersist      bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the shift scenario for one day",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SimulateOptions{
			Strategy:         simulateStrategy,
			CISource:         simulateCISource,
			CSVPath:          simulateCSVPath,
			LoadPNGPath:      simulateLoadPNG,
			EmissionsPNGPath: simulateEmissionsPNG,
			Persist:          simulatePersist,
		}

		if simulateDate != "" {
			date, err := time.Parse("2006-01-02", simulateDate)
			if err != nil {
				return fmt.Errorf("invalid --date value: %w", err)
			}
			opts.Date = date
		}

		if cmd.Flags().Changed("daily-kwh") {
			opts.DailyKWh = &simulateDailyKWh
		}
		if cmd.Flags().Changed("flexible-share") {
			opts.FlexibleShare = &simulateFlexShare
		}
		if cmd.Flags().Changed("target-hours") {
			opts.TargetHours = &simulateTargetHours
		}

		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateDate, "date", "", "Day to simulate (YYYY-MM-DD, defaults to latest complete day)")
	simulateCmd.Flags().Float64Var(&simulateDailyKWh, "daily-kwh", 0, "Daily household consumption in kWh")
	simulateCmd.Flags().Float64Var(&simulateFlexShare, "flexible-share", 0, "Fraction of consumption that can move (0..1)")
	simulateCmd.Flags().IntVar(&simulateTargetHours, "target-hours", 0, "Number of hours to shift load into (1..24)")
	simulateCmd.Flags().StringVar(&simulateStrategy, "strategy", "", "Shift strategy: low_intensity or max_renewable")
	simulateCmd.Flags().StringVar(&simulateCISource, "ci-source", "", "Carbon-intensity source: historical or predicted")
	simulateCmd.Flags().StringVar(&simulateCSVPath, "csv", "", "Path to write the hourly breakdown as CSV")
	simulateCmd.Flags().StringVar(&simulateLoadPNG, "png-load", "", "Path to write the load chart")
	simulateCmd.Flags().StringVar(&simulateEmissionsPNG, "png-emissions", "", "Path to write the emissions chart")
	simulateCmd.Flags().BoolVar(&simulatePersist, "persist", false, "Persist the outcome to the database")
}
