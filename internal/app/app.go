package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"gridshift/internal/alerting"
	"gridshift/internal/config"
	"gridshift/internal/dataset"
	"gridshift/internal/scheduler"
	"gridshift/internal/service"
	"gridshift/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openDataset() (*dataset.Dataset, error) {
	cutoff, err := a.Config.Data.Cutoff()
	if err != nil {
		return nil, err
	}
	return dataset.Load(dataset.Options{
		MixPath:         a.Config.Data.MixPath,
		PredictionsPath: a.Config.Data.PredictionsPath,
		Cutoff:          cutoff,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Advisory.Telegram.Enabled {
		cfg := a.Config.Advisory.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running advisory service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	provider, err := a.openDataset()
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	notifier := a.newNotifier()

	var runStore storage.ScenarioRunStore
	if store != nil {
		runStore = store
	}

	svc, err := service.New(a.Config, sched, provider, runStore, notifier, a.Logger)
	if err != nil {
		return err
	}

	a.Logger.Info().Msg("starting advisory service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("advisory service stopped")
	return nil
}

// SimulateOptions configure a one-off scenario simulation.
type SimulateOptions struct {
	// Date is the day to simulate; zero picks the latest complete day.
	Date time.Time
	// Overrides for the configured scenario defaults. Nil keeps the default.
	DailyKWh      *float64
	FlexibleShare *float64
	TargetHours   *int
	Strategy      string
	CISource      string
	// Optional output artifacts.
	CSVPath          string
	LoadPNGPath      string
	EmissionsPNGPath string
	// Persist writes the outcome to the database when configured.
	Persist bool
}

// ExportOptions hold parameters for exporting the run history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	From   time.Time
	To     time.Time
	DryRun bool
}
