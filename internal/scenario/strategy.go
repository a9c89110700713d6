package scenario

import (
	"fmt"
	"sort"
)

// Strategy selects which hours flexible load is concentrated into. It is a
// closed enumeration; adding a variant requires extending selectTargets.
type Strategy int

const (
	// StrategyLowIntensity targets the hours with the lowest carbon intensity.
	StrategyLowIntensity Strategy = iota
	// StrategyMaxRenewable targets the hours with the highest renewable share.
	StrategyMaxRenewable
)

// String returns the configuration token for the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyLowIntensity:
		return "low_intensity"
	case StrategyMaxRenewable:
		return "max_renewable"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy maps a configuration token to a Strategy.
func ParseStrategy(token string) (Strategy, error) {
	switch token {
	case "low_intensity":
		return StrategyLowIntensity, nil
	case "max_renewable":
		return StrategyMaxRenewable, nil
	default:
		return 0, &InvalidStrategyError{Token: token}
	}
}

// selectTargets returns the indices of the n hours chosen by the strategy.
// Ties are broken by original index order via the stable sort, so selection is
// deterministic for identical inputs.
func (s Strategy) selectTargets(ci, renewableShare []float64, n int) ([]int, error) {
	idx := make([]int, len(ci))
	for i := range idx {
		idx[i] = i
	}

	switch s {
	case StrategyLowIntensity:
		sort.SliceStable(idx, func(a, b int) bool { return ci[idx[a]] < ci[idx[b]] })
	case StrategyMaxRenewable:
		sort.SliceStable(idx, func(a, b int) bool { return renewableShare[idx[a]] > renewableShare[idx[b]] })
	default:
		return nil, &InvalidStrategyError{Token: s.String()}
	}

	return idx[:n], nil
}

// Source selects which carbon-intensity field feeds the engine.
type Source int

const (
	// SourceHistorical feeds the engine measured carbon intensity.
	SourceHistorical Source = iota
	// SourcePredicted feeds the engine model-predicted carbon intensity.
	SourcePredicted
)

// String returns the configuration token for the source.
func (s Source) String() string {
	switch s {
	case SourceHistorical:
		return "historical"
	case SourcePredicted:
		return "predicted"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// ParseSource maps a configuration token to a Source.
func ParseSource(token string) (Source, error) {
	switch token {
	case "historical":
		return SourceHistorical, nil
	case "predicted":
		return SourcePredicted, nil
	default:
		return 0, fmt.Errorf("unknown carbon-intensity source %q (expected %q or %q)", token, SourceHistorical, SourcePredicted)
	}
}
