// Package dataset loads the hourly generation-mix and carbon-intensity
// datasets from parquet files and slices them into single calendar days.
package dataset

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"gridshift/internal/scenario"
)

// MixRow is one hourly row of the generation-mix dataset. Quantities are MW.
type MixRow struct {
	Ts         time.Time `parquet:"ts,snappy"`
	Renewable  float64   `parquet:"RENEWABLE,snappy"`
	Generation float64   `parquet:"GENERATION,snappy"`
}

// PredictionRow is one hourly row of the carbon-intensity dataset, carrying
// both the measured value and the model prediction in gCO2/kWh.
type PredictionRow struct {
	Ts       time.Time `parquet:"ts,snappy"`
	CIActual float64   `parquet:"CI_actual,snappy"`
	CIPred   float64   `parquet:"CI_pred,snappy"`
}

// Day is a complete 24-hour slice of the aligned datasets.
type Day struct {
	Date       time.Time
	Hours      []time.Time
	Renewable  []float64
	Generation []float64
	CIActual   []float64
	CIPred     []float64
}

// CarbonIntensity returns the day's carbon-intensity series for the given
// source.
func (d *Day) CarbonIntensity(src scenario.Source) scenario.Series {
	values := d.CIActual
	if src == scenario.SourcePredicted {
		values = d.CIPred
	}
	return scenario.Series{Times: d.Hours, Values: values}
}

// RenewableShare derives the day's clipped renewable-share series.
func (d *Day) RenewableShare() (scenario.Series, error) {
	values, err := scenario.RenewableShare(d.Renewable, d.Generation)
	if err != nil {
		return scenario.Series{}, err
	}
	return scenario.Series{Times: d.Hours, Values: values}, nil
}

// Provider supplies day slices to the evaluation service.
type Provider interface {
	ExtractDay(date time.Time) (*Day, error)
	AvailableDates() []time.Time
	LatestCompleteDay() (time.Time, bool)
	Refresh() error
}

// Options locate the datasets on disk.
type Options struct {
	MixPath         string
	PredictionsPath string
	// Cutoff drops all rows before this instant. Zero keeps everything.
	Cutoff time.Time
}

// Dataset holds both series aligned on their common hourly timestamp index.
type Dataset struct {
	opts   Options
	logger zerolog.Logger

	mu         sync.RWMutex
	hours      []time.Time
	renewable  []float64
	generation []float64
	ciActual   []float64
	ciPred     []float64
}

// Load reads and aligns both parquet files.
func Load(opts Options, logger zerolog.Logger) (*Dataset, error) {
	d := &Dataset{opts: opts, logger: logger.With().Str("component", "dataset").Logger()}
	if err := d.Refresh(); err != nil {
		return nil, err
	}
	return d, nil
}

// Refresh re-reads both files, picking up rows appended by the upstream
// pipeline since the last load.
func (d *Dataset) Refresh() error {
	mix, err := readRows[MixRow](d.opts.MixPath)
	if err != nil {
		return fmt.Errorf("read generation mix: %w", err)
	}
	preds, err := readRows[PredictionRow](d.opts.PredictionsPath)
	if err != nil {
		return fmt.Errorf("read predictions: %w", err)
	}

	sort.SliceStable(mix, func(i, j int) bool { return mix[i].Ts.Before(mix[j].Ts) })
	sort.SliceStable(preds, func(i, j int) bool { return preds[i].Ts.Before(preds[j].Ts) })

	predByTime := make(map[int64]PredictionRow, len(preds))
	for _, row := range preds {
		predByTime[row.Ts.UnixNano()] = row
	}

	// Keep only timestamps present in both datasets, past the cutoff.
	hours := make([]time.Time, 0, len(mix))
	renewable := make([]float64, 0, len(mix))
	generation := make([]float64, 0, len(mix))
	ciActual := make([]float64, 0, len(mix))
	ciPred := make([]float64, 0, len(mix))

	for _, row := range mix {
		if !d.opts.Cutoff.IsZero() && row.Ts.Before(d.opts.Cutoff) {
			continue
		}
		pred, ok := predByTime[row.Ts.UnixNano()]
		if !ok {
			continue
		}
		hours = append(hours, row.Ts.UTC())
		renewable = append(renewable, row.Renewable)
		generation = append(generation, row.Generation)
		ciActual = append(ciActual, pred.CIActual)
		ciPred = append(ciPred, pred.CIPred)
	}

	d.mu.Lock()
	d.hours = hours
	d.renewable = renewable
	d.generation = generation
	d.ciActual = ciActual
	d.ciPred = ciPred
	d.mu.Unlock()

	d.logger.Debug().
		Int("mix_rows", len(mix)).
		Int("prediction_rows", len(preds)).
		Int("aligned_rows", len(hours)).
		Msg("datasets loaded")
	return nil
}

// ExtractDay returns the 24 hourly rows of one calendar day (UTC). Days with
// any other row count fail with IncompleteDayError.
func (d *Dataset) ExtractDay(date time.Time) (*Day, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	day := date.UTC().Truncate(24 * time.Hour)

	start := sort.Search(len(d.hours), func(i int) bool { return !d.hours[i].Before(day) })
	end := sort.Search(len(d.hours), func(i int) bool { return !d.hours[i].Before(day.Add(24 * time.Hour)) })

	if end-start != scenario.HoursPerDay {
		return nil, &scenario.IncompleteDayError{Date: day, Rows: end - start}
	}

	out := &Day{
		Date:       day,
		Hours:      append([]time.Time(nil), d.hours[start:end]...),
		Renewable:  append([]float64(nil), d.renewable[start:end]...),
		Generation: append([]float64(nil), d.generation[start:end]...),
		CIActual:   append([]float64(nil), d.ciActual[start:end]...),
		CIPred:     append([]float64(nil), d.ciPred[start:end]...),
	}
	return out, nil
}

// AvailableDates lists the calendar days (UTC) covered by exactly 24 rows.
func (d *Dataset) AvailableDates() []time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()

	counts := make(map[time.Time]int)
	order := make([]time.Time, 0)
	for _, ts := range d.hours {
		day := ts.Truncate(24 * time.Hour)
		if _, seen := counts[day]; !seen {
			order = append(order, day)
		}
		counts[day]++
	}

	dates := make([]time.Time, 0, len(order))
	for _, day := range order {
		if counts[day] == scenario.HoursPerDay {
			dates = append(dates, day)
		}
	}
	return dates
}

// LatestCompleteDay returns the most recent fully-covered day, if any.
func (d *Dataset) LatestCompleteDay() (time.Time, bool) {
	dates := d.AvailableDates()
	if len(dates) == 0 {
		return time.Time{}, false
	}
	return dates[len(dates)-1], true
}

func readRows[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return rows[:n], nil
}

var _ Provider = (*Dataset)(nil)
