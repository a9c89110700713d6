package scenario

import (
	"errors"
	"fmt"
	"time"
)

// ErrDegenerateBaseline indicates total baseline emissions of zero, which makes
// the relative reduction undefined.
var ErrDegenerateBaseline = errors.New("scenario: total baseline emissions is zero; relative reduction undefined")

// IncompleteDayError reports a calendar day that does not resolve to exactly 24
// hourly rows (missing data, DST-irregular local days, dataset boundaries).
type IncompleteDayError struct {
	Date time.Time
	Rows int
}

func (e *IncompleteDayError) Error() string {
	return fmt.Sprintf("expected 24 hourly rows for %s, got %d", e.Date.Format("2006-01-02"), e.Rows)
}

// InvalidSeriesLengthError reports a series handed to the engine that does not
// contain exactly 24 values.
type InvalidSeriesLengthError struct {
	Got int
}

func (e *InvalidSeriesLengthError) Error() string {
	return fmt.Sprintf("series must contain exactly 24 hourly values, got %d", e.Got)
}

// MissingInputError reports a required input that was not supplied or could not
// be aligned to the carbon-intensity index.
type MissingInputError struct {
	Input  string
	Reason string
}

func (e *MissingInputError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing required input %q", e.Input)
	}
	return fmt.Sprintf("missing required input %q: %s", e.Input, e.Reason)
}

// InvalidStrategyError reports an unrecognized strategy token.
type InvalidStrategyError struct {
	Token string
}

func (e *InvalidStrategyError) Error() string {
	return fmt.Sprintf("unknown strategy %q (expected %q or %q)", e.Token, StrategyLowIntensity, StrategyMaxRenewable)
}
