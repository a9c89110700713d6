package scenario

import (
	"errors"
	"math"
	"sort"
	"testing"
	"time"
)

func hourlyIndex(t *testing.T) []time.Time {
	t.Helper()
	start := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, HoursPerDay)
	for h := range times {
		times[h] = start.Add(time.Duration(h) * time.Hour)
	}
	return times
}

func flatSeries(t *testing.T, value float64) Series {
	t.Helper()
	values := make([]float64, HoursPerDay)
	for h := range values {
		values[h] = value
	}
	return Series{Times: hourlyIndex(t), Values: values}
}

// rampSeries has strictly increasing intensity, so hours 0..n-1 are always the
// cheapest n hours.
func rampSeries(t *testing.T) Series {
	t.Helper()
	values := make([]float64, HoursPerDay)
	for h := range values {
		values[h] = 100.0 + 10.0*float64(h)
	}
	return Series{Times: hourlyIndex(t), Values: values}
}

func defaultParams() Params {
	return Params{DailyKWh: 14.0, FlexibleShare: 0.3, Strategy: StrategyLowIntensity, TargetHours: 4}
}

func TestRunShiftScenarioEnergyConservation(t *testing.T) {
	res, err := RunShiftScenario(rampSeries(t), defaultParams(), nil)
	if err != nil {
		t.Fatalf("scenario failed: %v", err)
	}

	sumBase := 0.0
	sumShift := 0.0
	for h := 0; h < HoursPerDay; h++ {
		sumBase += res.BaselineLoad[h]
		sumShift += res.ShiftedLoad[h]
	}

	if math.Abs(sumBase-14.0) > 1e-9 {
		t.Fatalf("baseline load should sum to daily energy, got %g", sumBase)
	}
	if math.Abs(sumShift-sumBase) > 1e-9*sumBase {
		t.Fatalf("shifted load %g must conserve baseline energy %g", sumShift, sumBase)
	}
}

func TestRunShiftScenarioSelectionCount(t *testing.T) {
	params := defaultParams()
	res, err := RunShiftScenario(rampSeries(t), params, nil)
	if err != nil {
		t.Fatalf("scenario failed: %v", err)
	}

	if len(res.SelectedHours) != params.TargetHours {
		t.Fatalf("expected %d target hours, got %d", params.TargetHours, len(res.SelectedHours))
	}

	// Non-target hours retain exactly the fixed component.
	targeted := make(map[int64]bool, len(res.SelectedHours))
	for _, ts := range res.SelectedHours {
		targeted[ts.UnixNano()] = true
	}
	changed := 0
	for h := 0; h < HoursPerDay; h++ {
		nonFlex := res.BaselineLoad[h] * (1.0 - params.FlexibleShare)
		if targeted[res.Times[h].UnixNano()] {
			changed++
			if res.ShiftedLoad[h] <= nonFlex {
				t.Fatalf("target hour %d should receive shifted energy", h)
			}
			continue
		}
		if math.Abs(res.ShiftedLoad[h]-nonFlex) > 1e-12 {
			t.Fatalf("non-target hour %d should hold exactly the fixed load: got %g want %g", h, res.ShiftedLoad[h], nonFlex)
		}
	}
	if changed != params.TargetHours {
		t.Fatalf("exactly %d hours should change, got %d", params.TargetHours, changed)
	}
}

func TestRunShiftScenarioLowIntensityPicksCheapestHours(t *testing.T) {
	ci := flatSeries(t, 200.0)
	// Scatter the four lowest values across the day.
	for _, h := range []int{21, 3, 14, 8} {
		ci.Values[h] = 50.0 + float64(h)
	}

	res, err := RunShiftScenario(ci, defaultParams(), nil)
	if err != nil {
		t.Fatalf("scenario failed: %v", err)
	}

	// Brute-force the expected set.
	type hv struct {
		h int
		v float64
	}
	ranked := make([]hv, HoursPerDay)
	for h, v := range ci.Values {
		ranked[h] = hv{h, v}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].v < ranked[j].v })

	want := make(map[int64]bool)
	for _, r := range ranked[:4] {
		want[ci.Times[r.h].UnixNano()] = true
	}
	for _, ts := range res.SelectedHours {
		if !want[ts.UnixNano()] {
			t.Fatalf("hour %s is not among the four cheapest", ts.Format(time.RFC3339))
		}
	}
}

func TestRunShiftScenarioMaxRenewablePicksGreenestHours(t *testing.T) {
	ci := flatSeries(t, 200.0)
	shareValues := make([]float64, HoursPerDay)
	for h := range shareValues {
		shareValues[h] = 0.2
	}
	for _, h := range []int{1, 12, 13, 22} {
		shareValues[h] = 0.9
	}
	share := Series{Times: hourlyIndex(t), Values: shareValues}

	params := defaultParams()
	params.Strategy = StrategyMaxRenewable

	res, err := RunShiftScenario(ci, params, &share)
	if err != nil {
		t.Fatalf("scenario failed: %v", err)
	}

	want := map[int]bool{1: true, 12: true, 13: true, 22: true}
	for _, ts := range res.SelectedHours {
		if !want[ts.Hour()] {
			t.Fatalf("hour %02d is not among the greenest hours", ts.Hour())
		}
	}
}

func TestRunShiftScenarioMaxRenewableRequiresShare(t *testing.T) {
	params := defaultParams()
	params.Strategy = StrategyMaxRenewable

	_, err := RunShiftScenario(rampSeries(t), params, nil)
	var missing *MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingInputError, got %v", err)
	}
}

func TestRunShiftScenarioMisalignedShare(t *testing.T) {
	params := defaultParams()
	params.Strategy = StrategyMaxRenewable

	share := flatSeries(t, 0.5)
	for i := range share.Times {
		share.Times[i] = share.Times[i].Add(24 * time.Hour)
	}

	_, err := RunShiftScenario(rampSeries(t), params, &share)
	var missing *MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingInputError for misaligned share, got %v", err)
	}
}

func TestRunShiftScenarioWrongSeriesLength(t *testing.T) {
	for _, n := range []int{23, 25} {
		times := make([]time.Time, n)
		values := make([]float64, n)
		start := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
		for i := range times {
			times[i] = start.Add(time.Duration(i) * time.Hour)
			values[i] = 100.0
		}

		_, err := RunShiftScenario(Series{Times: times, Values: values}, defaultParams(), nil)
		var lengthErr *InvalidSeriesLengthError
		if !errors.As(err, &lengthErr) {
			t.Fatalf("length %d: expected InvalidSeriesLengthError, got %v", n, err)
		}
		if lengthErr.Got != n {
			t.Fatalf("length %d: error should carry the observed length, got %d", n, lengthErr.Got)
		}
	}
}

func TestRunShiftScenarioZeroFlexibleShare(t *testing.T) {
	params := defaultParams()
	params.FlexibleShare = 0.0

	res, err := RunShiftScenario(rampSeries(t), params, nil)
	if err != nil {
		t.Fatalf("scenario failed: %v", err)
	}
	for h := 0; h < HoursPerDay; h++ {
		if res.ShiftedLoad[h] != res.BaselineLoad[h] {
			t.Fatalf("hour %d: zero flexible share must leave the load untouched", h)
		}
	}
	if res.RelativeReduction != 0 {
		t.Fatalf("zero flexible share should yield zero reduction, got %g", res.RelativeReduction)
	}
}

func TestRunShiftScenarioFullFlexibleShare(t *testing.T) {
	params := defaultParams()
	params.FlexibleShare = 1.0

	res, err := RunShiftScenario(rampSeries(t), params, nil)
	if err != nil {
		t.Fatalf("scenario failed: %v", err)
	}

	targeted := make(map[int64]bool, len(res.SelectedHours))
	for _, ts := range res.SelectedHours {
		targeted[ts.UnixNano()] = true
	}

	inTargets := 0.0
	for h := 0; h < HoursPerDay; h++ {
		if targeted[res.Times[h].UnixNano()] {
			inTargets += res.ShiftedLoad[h]
			continue
		}
		if res.ShiftedLoad[h] != 0 {
			t.Fatalf("hour %d: with full flexibility non-target hours must carry zero load", h)
		}
	}
	if math.Abs(inTargets-params.DailyKWh) > 1e-9 {
		t.Fatalf("all energy should land in the target hours, got %g", inTargets)
	}
}

func TestRunShiftScenarioReferenceExample(t *testing.T) {
	// Hours 2..5 carry the four lowest intensities.
	ci := flatSeries(t, 300.0)
	ci.Values[2] = 90.0
	ci.Values[3] = 80.0
	ci.Values[4] = 85.0
	ci.Values[5] = 95.0

	res, err := RunShiftScenario(ci, defaultParams(), nil)
	if err != nil {
		t.Fatalf("scenario failed: %v", err)
	}

	profile := MakeProfile(14.0)
	perHour := 14.0 * 0.3 / 4.0 // 1.05 kWh into each target hour
	for _, h := range []int{2, 3, 4, 5} {
		want := 0.7*profile[h] + perHour
		if math.Abs(res.ShiftedLoad[h]-want) > 1e-9 {
			t.Fatalf("hour %d: got %g want %g", h, res.ShiftedLoad[h], want)
		}
	}

	if res.RelativeReduction < 0 {
		t.Fatalf("shifting into the cheapest hours must not increase emissions, got reduction %g", res.RelativeReduction)
	}
}

func TestRunShiftScenarioIdempotent(t *testing.T) {
	ci := rampSeries(t)
	params := defaultParams()

	first, err := RunShiftScenario(ci, params, nil)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := RunShiftScenario(ci, params, nil)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if first.TotalBaselineEmissions != second.TotalBaselineEmissions ||
		first.TotalShiftedEmissions != second.TotalShiftedEmissions ||
		first.RelativeReduction != second.RelativeReduction {
		t.Fatal("identical inputs must produce identical totals")
	}
	for h := 0; h < HoursPerDay; h++ {
		if first.ShiftedLoad[h] != second.ShiftedLoad[h] {
			t.Fatalf("hour %d: shifted load differs between runs", h)
		}
	}
}

func TestRunShiftScenarioUnsortedInput(t *testing.T) {
	sorted := rampSeries(t)

	shuffled := sorted.Clone()
	for i := 0; i < HoursPerDay/2; i++ {
		j := HoursPerDay - 1 - i
		shuffled.Times[i], shuffled.Times[j] = shuffled.Times[j], shuffled.Times[i]
		shuffled.Values[i], shuffled.Values[j] = shuffled.Values[j], shuffled.Values[i]
	}

	want, err := RunShiftScenario(sorted, defaultParams(), nil)
	if err != nil {
		t.Fatalf("sorted run failed: %v", err)
	}
	got, err := RunShiftScenario(shuffled, defaultParams(), nil)
	if err != nil {
		t.Fatalf("shuffled run failed: %v", err)
	}

	if got.TotalShiftedEmissions != want.TotalShiftedEmissions {
		t.Fatal("caller ordering must not change the result")
	}
}

func TestRunShiftScenarioDegenerateBaseline(t *testing.T) {
	_, err := RunShiftScenario(flatSeries(t, 0.0), defaultParams(), nil)
	if !errors.Is(err, ErrDegenerateBaseline) {
		t.Fatalf("expected ErrDegenerateBaseline, got %v", err)
	}
}

func TestParamsValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero energy", func(p *Params) { p.DailyKWh = 0 }},
		{"negative energy", func(p *Params) { p.DailyKWh = -1 }},
		{"negative share", func(p *Params) { p.FlexibleShare = -0.1 }},
		{"share above one", func(p *Params) { p.FlexibleShare = 1.1 }},
		{"zero target hours", func(p *Params) { p.TargetHours = 0 }},
		{"too many target hours", func(p *Params) { p.TargetHours = 25 }},
		{"unknown strategy", func(p *Params) { p.Strategy = Strategy(99) }},
	}

	for _, tc := range cases {
		params := defaultParams()
		tc.mutate(&params)
		if err := params.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}

	if err := defaultParams().Validate(); err != nil {
		t.Fatalf("default params should validate: %v", err)
	}
}

func TestParseStrategy(t *testing.T) {
	if s, err := ParseStrategy("low_intensity"); err != nil || s != StrategyLowIntensity {
		t.Fatalf("low_intensity: got %v, %v", s, err)
	}
	if s, err := ParseStrategy("max_renewable"); err != nil || s != StrategyMaxRenewable {
		t.Fatalf("max_renewable: got %v, %v", s, err)
	}

	_, err := ParseStrategy("price_based")
	var invalid *InvalidStrategyError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStrategyError, got %v", err)
	}
}

func TestParseSource(t *testing.T) {
	if s, err := ParseSource("historical"); err != nil || s != SourceHistorical {
		t.Fatalf("historical: got %v, %v", s, err)
	}
	if s, err := ParseSource("predicted"); err != nil || s != SourcePredicted {
		t.Fatalf("predicted: got %v, %v", s, err)
	}
	if _, err := ParseSource("oracle"); err == nil {
		t.Fatal("unknown source should fail to parse")
	}
}
