// Package render turns scenario results and persisted run history into CSV
// files and PNG charts.
package render

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"gridshift/internal/scenario"
	"gridshift/internal/storage"
)

// WriteDayCSV writes the per-hour arrays of one simulated day.
func WriteDayCSV(path string, res *scenario.Result) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"hour_ts", "ci_g_per_kwh", "baseline_load_kwh", "shifted_load_kwh", "baseline_emissions_g", "shifted_emissions_g"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for h, ts := range res.Times {
		record := []string{
			ts.UTC().Format(time.RFC3339),
			formatFloat(res.CI[h]),
			formatFloat(res.BaselineLoad[h]),
			formatFloat(res.ShiftedLoad[h]),
			formatFloat(res.BaselineEmissions[h]),
			formatFloat(res.ShiftedEmissions[h]),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// WriteLoadPNG renders household load before and after shifting.
func WriteLoadPNG(path string, res *scenario.Result) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	graph := chart.Chart{
		Title:  "Household load before and after shifting",
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: hourFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Load (kWh)",
			ValueFormatter: loadFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Baseline load",
				XValues: res.Times,
				YValues: res.BaselineLoad,
			},
			chart.TimeSeries{
				Name:    "Shifted load",
				XValues: res.Times,
				YValues: res.ShiftedLoad,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return renderPNG(path, graph)
}

// WriteEmissionsPNG renders the carbon-intensity profile with baseline and
// shifted emissions on a secondary axis.
func WriteEmissionsPNG(path string, res *scenario.Result) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	graph := chart.Chart{
		Title:  "Carbon intensity and hourly emissions",
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: hourFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Carbon intensity (gCO2/kWh)",
			ValueFormatter: loadFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Emissions (gCO2)",
			ValueFormatter: loadFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Carbon intensity",
				XValues: res.Times,
				YValues: res.CI,
			},
			chart.TimeSeries{
				Name:    "Baseline emissions",
				XValues: res.Times,
				YValues: res.BaselineEmissions,
				YAxis:   chart.YAxisSecondary,
			},
			chart.TimeSeries{
				Name:    "Shifted emissions",
				XValues: res.Times,
				YValues: res.ShiftedEmissions,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return renderPNG(path, graph)
}

// Downsample thins a run history down to at most max points, keeping the
// endpoints.
func Downsample(runs []storage.ScenarioRun, max int) []storage.ScenarioRun {
	if max <= 0 || len(runs) <= max {
		return runs
	}
	if max == 1 {
		return runs[len(runs)-1:]
	}

	result := make([]storage.ScenarioRun, 0, max)
	step := float64(len(runs)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(runs) {
			idx = len(runs) - 1
		}
		result = append(result, runs[idx])
	}
	return result
}

// WriteHistoryCSV writes persisted evaluations, one row per day.
func WriteHistoryCSV(path string, runs []storage.ScenarioRun) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"day_ts", "strategy", "ci_source", "daily_kwh", "flexible_share", "target_hour_count", "baseline_emissions_g", "shifted_emissions_g", "reduction_pct", "status", "error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, run := range runs {
		errMsg := ""
		if run.Error != nil {
			errMsg = *run.Error
		}
		record := []string{
			run.Day.UTC().Format("2006-01-02"),
			run.Strategy,
			run.CISource,
			run.DailyKWh.String(),
			run.FlexibleShare.String(),
			strconv.Itoa(run.TargetHourCount),
			run.BaselineEmissions.String(),
			run.ShiftedEmissions.String(),
			run.ReductionPct.String(),
			run.Status,
			errMsg,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// WriteHistoryPNG charts daily emission totals with the achieved reduction on
// a secondary axis.
func WriteHistoryPNG(path string, runs []storage.ScenarioRun) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(runs))
	baseline := make([]float64, len(runs))
	shifted := make([]float64, len(runs))
	reduction := make([]float64, len(runs))

	for i, run := range runs {
		x[i] = run.Day
		baseline[i] = run.BaselineEmissions.InexactFloat64()
		shifted[i] = run.ShiftedEmissions.InexactFloat64()
		reduction[i] = run.ReductionPct.InexactFloat64()
	}

	graph := chart.Chart{
		Title:  "Daily emissions and shift reduction",
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Emissions (gCO2)",
			ValueFormatter: loadFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Reduction (%)",
			ValueFormatter: loadFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Baseline",
				XValues: x,
				YValues: baseline,
			},
			chart.TimeSeries{
				Name:    "Shifted",
				XValues: x,
				YValues: shifted,
			},
			chart.TimeSeries{
				Name:    "Reduction %",
				XValues: x,
				YValues: reduction,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return renderPNG(path, graph)
}

func renderPNG(path string, graph chart.Chart) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func hourFormatter(v interface{}) string {
	return chart.TimeValueFormatterWithFormat("15:04")(v)
}

func loadFormatter(v interface{}) string {
	return chart.FloatValueFormatterWithFormat(v, "%.2f")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
