package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gridshift/internal/alerting"
	"gridshift/internal/config"
	"gridshift/internal/dataset"
	"gridshift/internal/scenario"
	"gridshift/internal/storage"
)

type staticProvider struct {
	day     *dataset.Day
	dayErr  error
	refresh int
}

func (p *staticProvider) ExtractDay(date time.Time) (*dataset.Day, error) {
	if p.dayErr != nil {
		return nil, p.dayErr
	}
	return p.day, nil
}

func (p *staticProvider) AvailableDates() []time.Time {
	if p.day == nil {
		return nil
	}
	return []time.Time{p.day.Date}
}

func (p *staticProvider) LatestCompleteDay() (time.Time, bool) {
	if p.day == nil {
		return time.Time{}, false
	}
	return p.day.Date, true
}

func (p *staticProvider) Refresh() error {
	p.refresh++
	return nil
}

type memoryStore struct {
	mu   sync.Mutex
	runs []storage.ScenarioRun
}

func (m *memoryStore) UpsertRun(ctx context.Context, run storage.ScenarioRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memoryStore) ListRunsBetween(ctx context.Context, from, to time.Time) ([]storage.ScenarioRun, error) {
	return m.runs, nil
}

func (m *memoryStore) ListRecentRuns(ctx context.Context, limit int) ([]storage.ScenarioRun, error) {
	return m.runs, nil
}

func (m *memoryStore) CountRuns(ctx context.Context) (int64, error) {
	return int64(len(m.runs)), nil
}

type recordingNotifier struct {
	advisories []alerting.Advisory
}

func (r *recordingNotifier) Notify(ctx context.Context, advisory alerting.Advisory) error {
	r.advisories = append(r.advisories, advisory)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Scenario: config.ScenarioConfig{
			DailyKWh:      14.0,
			FlexibleShare: 0.3,
			TargetHours:   4,
			Strategy:      "low_intensity",
			CISource:      "historical",
		},
		Advisory: config.AdvisoryConfig{
			Enabled:         true,
			MinReductionPct: 1.0,
		},
	}
}

func testDay(t *testing.T) *dataset.Day {
	t.Helper()
	date := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	day := &dataset.Day{
		Date:       date,
		Hours:      make([]time.Time, scenario.HoursPerDay),
		Renewable:  make([]float64, scenario.HoursPerDay),
		Generation: make([]float64, scenario.HoursPerDay),
		CIActual:   make([]float64, scenario.HoursPerDay),
		CIPred:     make([]float64, scenario.HoursPerDay),
	}
	for h := 0; h < scenario.HoursPerDay; h++ {
		day.Hours[h] = date.Add(time.Duration(h) * time.Hour)
		day.Renewable[h] = 40.0
		day.Generation[h] = 100.0
		day.CIActual[h] = 300.0
		day.CIPred[h] = 290.0
	}
	// Cheap overnight hours make a clear reduction.
	for _, h := range []int{1, 2, 3, 4} {
		day.CIActual[h] = 80.0
	}
	return day
}

func TestEvaluateDayPersistsAndNotifies(t *testing.T) {
	provider := &staticProvider{day: testDay(t)}
	store := &memoryStore{}
	notifier := &recordingNotifier{}

	svc, err := New(testConfig(), nil, provider, store, notifier, zerolog.Nop())
	if err != nil {
		t.Fatalf("service construction failed: %v", err)
	}

	res, err := svc.EvaluateDay(context.Background(), provider.day.Date)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if res.RelativeReduction <= 0 {
		t.Fatalf("cheap overnight hours should yield a positive reduction, got %g", res.RelativeReduction)
	}

	if len(store.runs) != 1 {
		t.Fatalf("expected one persisted run, got %d", len(store.runs))
	}
	run := store.runs[0]
	if run.Status != "complete" {
		t.Fatalf("unexpected status %q", run.Status)
	}
	if len(run.TargetHours) != 4 {
		t.Fatalf("expected 4 target hours, got %v", run.TargetHours)
	}

	if len(notifier.advisories) != 1 {
		t.Fatalf("expected one advisory, got %d", len(notifier.advisories))
	}
	advisory := notifier.advisories[0]
	if advisory.Strategy != "low_intensity" {
		t.Fatalf("unexpected advisory strategy %q", advisory.Strategy)
	}
	want := map[int]bool{1: true, 2: true, 3: true, 4: true}
	for _, h := range advisory.TargetHours {
		if !want[h] {
			t.Fatalf("hour %d should not be targeted", h)
		}
	}
}

func TestEvaluateDayBelowThresholdSkipsAdvisory(t *testing.T) {
	day := testDay(t)
	for h := range day.CIActual {
		day.CIActual[h] = 250.0 // flat intensity, nothing to gain
	}

	provider := &staticProvider{day: day}
	notifier := &recordingNotifier{}

	svc, err := New(testConfig(), nil, provider, nil, notifier, zerolog.Nop())
	if err != nil {
		t.Fatalf("service construction failed: %v", err)
	}

	if _, err := svc.EvaluateDay(context.Background(), day.Date); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if len(notifier.advisories) != 0 {
		t.Fatal("flat intensity should not trigger an advisory")
	}
}

func TestEvaluateDayRecordsFailure(t *testing.T) {
	dayErr := &scenario.IncompleteDayError{Date: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), Rows: 23}
	provider := &staticProvider{dayErr: dayErr}
	store := &memoryStore{}

	svc, err := New(testConfig(), nil, provider, store, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("service construction failed: %v", err)
	}

	_, err = svc.EvaluateDay(context.Background(), dayErr.Date)
	var incomplete *scenario.IncompleteDayError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteDayError, got %v", err)
	}

	if len(store.runs) != 1 {
		t.Fatalf("failure should be recorded, got %d runs", len(store.runs))
	}
	if store.runs[0].Status != "errored" || store.runs[0].Error == nil {
		t.Fatalf("errored run should carry status and message: %+v", store.runs[0])
	}
	// target_hours is NOT NULL in the database; a nil slice would be encoded as
	// SQL NULL and fail the upsert.
	if store.runs[0].TargetHours == nil {
		t.Fatal("errored run must carry an empty target-hours slice, not nil")
	}
}

func TestProcessTickUsesLatestDay(t *testing.T) {
	provider := &staticProvider{day: testDay(t)}
	store := &memoryStore{}

	svc, err := New(testConfig(), nil, provider, store, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("service construction failed: %v", err)
	}

	if err := svc.ProcessTick(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if provider.refresh != 1 {
		t.Fatalf("tick should refresh the dataset once, got %d", provider.refresh)
	}
	if len(store.runs) != 1 {
		t.Fatalf("tick should evaluate the latest day, got %d runs", len(store.runs))
	}
}

func TestNewRejectsBadDefaults(t *testing.T) {
	cfg := testConfig()
	cfg.Scenario.Strategy = "price_based"

	if _, err := New(cfg, nil, &staticProvider{}, nil, nil, zerolog.Nop()); err == nil {
		t.Fatal("unknown strategy should fail service construction")
	}
}
