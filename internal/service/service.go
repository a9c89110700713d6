package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"gridshift/internal/alerting"
	"gridshift/internal/config"
	"gridshift/internal/dataset"
	"gridshift/internal/scenario"
	"gridshift/internal/scheduler"
	"gridshift/internal/storage"
)

// Service orchestrates day extraction, scenario evaluation, persistence, and
// advisories.
type Service struct {
	scheduler *scheduler.Scheduler
	provider  dataset.Provider
	store     storage.ScenarioRunStore
	notifier  alerting.Notifier
	logger    zerolog.Logger

	params          scenario.Params
	source          scenario.Source
	advisoryOn      bool
	minReductionPct float64
	locker          storage.AdvisoryLocker
	lockKey         int64
}

// New constructs the evaluation service from configured defaults.
func New(cfg *config.Config, sched *scheduler.Scheduler, provider dataset.Provider, store storage.ScenarioRunStore, notifier alerting.Notifier, logger zerolog.Logger) (*Service, error) {
	params, err := cfg.Scenario.Params()
	if err != nil {
		return nil, err
	}
	source, err := scenario.ParseSource(cfg.Scenario.CISource)
	if err != nil {
		return nil, err
	}

	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:       sched,
		provider:        provider,
		store:           store,
		notifier:        notifier,
		logger:          logger.With().Str("component", "service").Logger(),
		params:          params,
		source:          source,
		advisoryOn:      cfg.Advisory.Enabled,
		minReductionPct: cfg.Advisory.MinReductionPct,
		locker:          locker,
		lockKey:         cfg.Scheduler.AdvisoryLockKey,
	}, nil
}

// Run begins the aligned advisory loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick refreshes the dataset and evaluates the newest complete day.
func (s *Service) ProcessTick(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip tick because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	if err := s.provider.Refresh(); err != nil {
		return fmt.Errorf("refresh dataset: %w", err)
	}

	day, ok := s.provider.LatestCompleteDay()
	if !ok {
		s.logger.Warn().Time("bucket", bucket).Msg("no complete day available yet")
		return nil
	}

	_, err = s.EvaluateDay(ctx, day)
	return err
}

// EvaluateDay runs the shift scenario for one calendar day, persists the
// outcome, and sends an advisory when the achievable reduction clears the
// configured threshold. Scenario errors abort only this day's evaluation.
func (s *Service) EvaluateDay(ctx context.Context, day time.Time) (*scenario.Result, error) {
	dayData, err := s.provider.ExtractDay(day)
	if err != nil {
		s.recordFailure(ctx, day, err)
		return nil, err
	}

	ci := dayData.CarbonIntensity(s.source)

	share, err := dayData.RenewableShare()
	if err != nil {
		s.recordFailure(ctx, day, err)
		return nil, fmt.Errorf("renewable share for %s: %w", day.Format("2006-01-02"), err)
	}

	res, err := scenario.RunShiftScenario(ci, s.params, &share)
	if err != nil {
		s.recordFailure(ctx, day, err)
		return nil, fmt.Errorf("scenario for %s: %w", day.Format("2006-01-02"), err)
	}

	reductionPct := res.RelativeReduction * 100.0

	if s.store != nil {
		if err := s.store.UpsertRun(ctx, s.runRecord(day, res)); err != nil {
			s.logger.Error().Err(err).Time("day", day).Msg("failed to upsert scenario run")
		}
	}

	s.logger.Info().Time("day", day).
		Str("strategy", s.params.Strategy.String()).
		Str("ci_source", s.source.String()).
		Float64("reduction_pct", reductionPct).
		Msg("scenario evaluated")

	if s.advisoryOn && s.notifier != nil && reductionPct >= s.minReductionPct {
		advisory := alerting.Advisory{
			Day:               day,
			Strategy:          s.params.Strategy.String(),
			CISource:          s.source.String(),
			TargetHours:       targetHoursOfDay(res),
			BaselineEmissions: res.TotalBaselineEmissions,
			ShiftedEmissions:  res.TotalShiftedEmissions,
			ReductionPct:      reductionPct,
			ThresholdPct:      s.minReductionPct,
		}
		if err := s.notifier.Notify(ctx, advisory); err != nil {
			s.logger.Error().Err(err).Time("day", day).Msg("failed to dispatch advisory")
		}
	}

	return res, nil
}

func (s *Service) runRecord(day time.Time, res *scenario.Result) storage.ScenarioRun {
	hours := targetHoursOfDay(res)
	hours32 := make([]int32, len(hours))
	for i, h := range hours {
		hours32[i] = int32(h)
	}

	return storage.ScenarioRun{
		Day:               day,
		Strategy:          s.params.Strategy.String(),
		CISource:          s.source.String(),
		DailyKWh:          decimal.NewFromFloat(s.params.DailyKWh),
		FlexibleShare:     decimal.NewFromFloat(s.params.FlexibleShare),
		TargetHourCount:   s.params.TargetHours,
		TargetHours:       hours32,
		BaselineEmissions: decimal.NewFromFloat(res.TotalBaselineEmissions).Round(3),
		ShiftedEmissions:  decimal.NewFromFloat(res.TotalShiftedEmissions).Round(3),
		ReductionPct:      decimal.NewFromFloat(res.RelativeReduction * 100.0).Round(4),
		Status:            "complete",
		CreatedAt:         time.Now().UTC(),
	}
}

func (s *Service) recordFailure(ctx context.Context, day time.Time, cause error) {
	if s.store == nil {
		return
	}

	msg := cause.Error()
	run := storage.ScenarioRun{
		Day:             day,
		Strategy:        s.params.Strategy.String(),
		CISource:        s.source.String(),
		DailyKWh:        decimal.NewFromFloat(s.params.DailyKWh),
		FlexibleShare:   decimal.NewFromFloat(s.params.FlexibleShare),
		TargetHourCount: s.params.TargetHours,
		// Empty, not nil: the target_hours column is NOT NULL and pgx encodes a
		// nil slice as SQL NULL.
		TargetHours: []int32{},
		Status:      "errored",
		Error:       &msg,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.UpsertRun(ctx, run); err != nil {
		s.logger.Error().Err(err).Time("day", day).Msg("failed to record errored run")
	}
}

func targetHoursOfDay(res *scenario.Result) []int {
	hours := make([]int, len(res.SelectedHours))
	for i, ts := range res.SelectedHours {
		hours[i] = ts.UTC().Hour()
	}
	return hours
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
