package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertScenarioRunSQL = `INSERT INTO scenario_runs (
        day_ts,
        strategy,
        ci_source,
        daily_kwh,
        flexible_share,
        target_hour_count,
        target_hours,
        baseline_emissions_g,
        shifted_emissions_g,
        reduction_pct,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
    )
    ON CONFLICT (day_ts, strategy, ci_source) DO UPDATE
    SET
        daily_kwh            = EXCLUDED.daily_kwh,
        flexible_share       = EXCLUDED.flexible_share,
        target_hour_count    = EXCLUDED.target_hour_count,
        target_hours         = EXCLUDED.target_hours,
        baseline_emissions_g = EXCLUDED.baseline_emissions_g,
        shifted_emissions_g  = EXCLUDED.shifted_emissions_g,
        reduction_pct        = EXCLUDED.reduction_pct,
        status               = EXCLUDED.status,
        error                = EXCLUDED.error;`

	listRunsBetweenSQL = `SELECT
        day_ts,
        strategy,
        ci_source,
        daily_kwh,
        flexible_share,
        target_hour_count,
        target_hours,
        baseline_emissions_g,
        shifted_emissions_g,
        reduction_pct,
        status,
        error,
        created_at
    FROM scenario_runs
    WHERE day_ts >= $1
      AND day_ts < $2
    ORDER BY day_ts;`

	listRecentRunsSQL = `SELECT
        day_ts,
        strategy,
        ci_source,
        daily_kwh,
        flexible_share,
        target_hour_count,
        target_hours,
        baseline_emissions_g,
        shifted_emissions_g,
        reduction_pct,
        status,
        error,
        created_at
    FROM scenario_runs
    ORDER BY day_ts DESC
    LIMIT $1;`

	countRunsSQL = `SELECT COUNT(*) FROM scenario_runs;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ScenarioRunStore defines operations for scenario evaluation persistence.
type ScenarioRunStore interface {
	UpsertRun(ctx context.Context, run ScenarioRun) error
	ListRunsBetween(ctx context.Context, from, to time.Time) ([]ScenarioRun, error)
	ListRecentRuns(ctx context.Context, limit int) ([]ScenarioRun, error)
	CountRuns(ctx context.Context) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to persisted scenario runs.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertRun persists or updates a scenario evaluation for its day and knobs.
func (s *Store) UpsertRun(ctx context.Context, run ScenarioRun) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var errMsg interface{}
	if run.Error != nil {
		errMsg = *run.Error
	}

	_, execErr := pool.Exec(ctx, upsertScenarioRunSQL,
		run.Day,
		run.Strategy,
		run.CISource,
		run.DailyKWh.String(),
		run.FlexibleShare.String(),
		run.TargetHourCount,
		run.TargetHours,
		run.BaselineEmissions.String(),
		run.ShiftedEmissions.String(),
		run.ReductionPct.String(),
		run.Status,
		errMsg,
	)
	if execErr != nil {
		return fmt.Errorf("upsert scenario run: %w", execErr)
	}
	return nil
}

// ListRunsBetween lists runs whose day falls within a time window.
func (s *Store) ListRunsBetween(ctx context.Context, from, to time.Time) ([]ScenarioRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRunsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list runs between: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]ScenarioRun, 0)
	for rows.Next() {
		run, scanErr := scanScenarioRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

// ListRecentRuns lists the most recent runs ordered by descending day.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]ScenarioRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRunsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent runs: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]ScenarioRun, 0, limit)
	for rows.Next() {
		run, scanErr := scanScenarioRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

// CountRuns counts stored scenario runs.
func (s *Store) CountRuns(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countRunsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count runs: %w", scanErr)
	}
	return count, nil
}

func scanScenarioRun(rows pgx.Rows) (ScenarioRun, error) {
	var (
		day             time.Time
		strategy        string
		ciSource        string
		dailyKWhStr     string
		flexShareStr    string
		targetHourCount int
		targetHours     []int32
		baselineStr     string
		shiftedStr      string
		reductionStr    string
		status          string
		errMsg          sql.NullString
		createdAt       time.Time
	)

	if err := rows.Scan(
		&day,
		&strategy,
		&ciSource,
		&dailyKWhStr,
		&flexShareStr,
		&targetHourCount,
		&targetHours,
		&baselineStr,
		&shiftedStr,
		&reductionStr,
		&status,
		&errMsg,
		&createdAt,
	); err != nil {
		return ScenarioRun{}, err
	}

	dailyKWh, err := decimal.NewFromString(dailyKWhStr)
	if err != nil {
		return ScenarioRun{}, fmt.Errorf("parse daily kwh: %w", err)
	}
	flexShare, err := decimal.NewFromString(flexShareStr)
	if err != nil {
		return ScenarioRun{}, fmt.Errorf("parse flexible share: %w", err)
	}
	baseline, err := decimal.NewFromString(baselineStr)
	if err != nil {
		return ScenarioRun{}, fmt.Errorf("parse baseline emissions: %w", err)
	}
	shifted, err := decimal.NewFromString(shiftedStr)
	if err != nil {
		return ScenarioRun{}, fmt.Errorf("parse shifted emissions: %w", err)
	}
	reduction, err := decimal.NewFromString(reductionStr)
	if err != nil {
		return ScenarioRun{}, fmt.Errorf("parse reduction pct: %w", err)
	}

	run := ScenarioRun{
		Day:               day,
		Strategy:          strategy,
		CISource:          ciSource,
		DailyKWh:          dailyKWh,
		FlexibleShare:     flexShare,
		TargetHourCount:   targetHourCount,
		TargetHours:       targetHours,
		BaselineEmissions: baseline,
		ShiftedEmissions:  shifted,
		ReductionPct:      reduction,
		Status:            status,
		CreatedAt:         createdAt,
	}

	if errMsg.Valid {
		msg := errMsg.String
		run.Error = &msg
	}

	return run, nil
}
