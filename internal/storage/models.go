package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScenarioRun represents one persisted single-day shift evaluation.
type ScenarioRun struct {
	Day             time.Time
	Strategy        string
	CISource        string
	DailyKWh        decimal.Decimal
	FlexibleShare   decimal.Decimal
	TargetHourCount int
	// TargetHours are the selected hours of day (0-23).
	TargetHours []int32
	// Emission totals in gCO2.
	BaselineEmissions decimal.Decimal
	ShiftedEmissions  decimal.Decimal
	ReductionPct      decimal.Decimal
	Status            string
	Error             *string
	CreatedAt         time.Time
}
