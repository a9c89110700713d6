package scenario

import (
	"fmt"
	"sort"
	"time"
)

// Params are the knobs of a single-day shift scenario.
type Params struct {
	// DailyKWh is the household's total daily consumption, domain (0, inf).
	DailyKWh float64
	// FlexibleShare is the fraction of load that can be shifted, domain [0,1].
	FlexibleShare float64
	// Strategy picks the target-hour ranking.
	Strategy Strategy
	// TargetHours is how many hours receive the shifted energy, domain [1,24].
	TargetHours int
}

// Validate checks the parameter domains.
func (p Params) Validate() error {
	if p.DailyKWh <= 0 {
		return fmt.Errorf("daily energy must be greater than zero, got %g", p.DailyKWh)
	}
	if p.FlexibleShare < 0 || p.FlexibleShare > 1 {
		return fmt.Errorf("flexible share must be within [0,1], got %g", p.FlexibleShare)
	}
	if p.TargetHours < 1 || p.TargetHours > HoursPerDay {
		return fmt.Errorf("target hour count must be within [1,%d], got %d", HoursPerDay, p.TargetHours)
	}
	switch p.Strategy {
	case StrategyLowIntensity, StrategyMaxRenewable:
		return nil
	default:
		return &InvalidStrategyError{Token: p.Strategy.String()}
	}
}

// Result holds one simulated day. It is created once per invocation and never
// mutated afterwards; the engine retains no reference to it.
type Result struct {
	Times             []time.Time
	CI                []float64
	BaselineLoad      []float64
	ShiftedLoad       []float64
	BaselineEmissions []float64
	ShiftedEmissions  []float64

	TotalBaselineEmissions float64
	TotalShiftedEmissions  float64
	RelativeReduction      float64

	// SelectedHours are the timestamps of the hours the flexible energy was
	// shifted into, in chronological order.
	SelectedHours []time.Time
}

// RunShiftScenario partitions the baseline household load into fixed and
// flexible components, concentrates the flexible energy into the hours chosen
// by the strategy, and integrates emissions before and after the shift.
//
// The carbon-intensity series must contain exactly 24 hourly values; it is
// re-sorted by timestamp so callers need not order it. For StrategyMaxRenewable
// a renewable-share series covering the same timestamps is required. Total
// shifted load equals total baseline load up to floating-point rounding.
//
// The function is pure: identical inputs yield identical results, and inputs
// are never mutated, so concurrent invocations are safe.
func RunShiftScenario(ci Series, params Params, renewableShare *Series) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if ci.Len() != HoursPerDay {
		return nil, &InvalidSeriesLengthError{Got: ci.Len()}
	}

	ci = ci.Sorted()

	var share []float64
	if params.Strategy == StrategyMaxRenewable {
		if renewableShare == nil {
			return nil, &MissingInputError{Input: "renewable_share", Reason: "required by the max_renewable strategy"}
		}
		aligned, err := renewableShare.AlignTo(ci.Times)
		if err != nil {
			return nil, &MissingInputError{Input: "renewable_share", Reason: err.Error()}
		}
		share = aligned.Values
	}

	// Baseline load follows the canonical household shape, aligned positionally
	// to the sorted hourly index.
	profile := MakeProfile(params.DailyKWh)
	baseline := make([]float64, HoursPerDay)
	copy(baseline, profile[:])

	nonFlex := make([]float64, HoursPerDay)
	totalFlex := 0.0
	for h, load := range baseline {
		nonFlex[h] = load * (1.0 - params.FlexibleShare)
		totalFlex += load * params.FlexibleShare
	}

	targets, err := params.Strategy.selectTargets(ci.Values, share, params.TargetHours)
	if err != nil {
		return nil, err
	}

	shifted := make([]float64, HoursPerDay)
	copy(shifted, nonFlex)
	perHour := totalFlex / float64(len(targets))
	targetTimes := make([]time.Time, len(targets))
	for i, h := range targets {
		shifted[h] += perHour
		targetTimes[i] = ci.Times[h]
	}
	sort.Slice(targetTimes, func(i, j int) bool { return targetTimes[i].Before(targetTimes[j]) })

	baselineEmissions := make([]float64, HoursPerDay)
	shiftedEmissions := make([]float64, HoursPerDay)
	totalBaseline := 0.0
	totalShifted := 0.0
	for h := range baseline {
		baselineEmissions[h] = baseline[h] * ci.Values[h]
		shiftedEmissions[h] = shifted[h] * ci.Values[h]
		totalBaseline += baselineEmissions[h]
		totalShifted += shiftedEmissions[h]
	}

	if totalBaseline == 0 {
		return nil, ErrDegenerateBaseline
	}

	times := make([]time.Time, HoursPerDay)
	copy(times, ci.Times)
	values := make([]float64, HoursPerDay)
	copy(values, ci.Values)

	return &Result{
		Times:                  times,
		CI:                     values,
		BaselineLoad:           baseline,
		ShiftedLoad:            shifted,
		BaselineEmissions:      baselineEmissions,
		ShiftedEmissions:       shiftedEmissions,
		TotalBaselineEmissions: totalBaseline,
		TotalShiftedEmissions:  totalShifted,
		RelativeReduction:      (totalBaseline - totalShifted) / totalBaseline,
		SelectedHours:          targetTimes,
	}, nil
}
