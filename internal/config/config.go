package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"gridshift/internal/logging"
	"gridshift/internal/scenario"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Data      DataConfig      `mapstructure:"data"`
	Scenario  ScenarioConfig  `mapstructure:"scenario"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Advisory  AdvisoryConfig  `mapstructure:"advisory"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DataConfig locates the on-disk datasets.
type DataConfig struct {
	MixPath         string `mapstructure:"mix_path"`
	PredictionsPath string `mapstructure:"predictions_path"`
	CutoffDate      string `mapstructure:"cutoff_date"`
}

// Cutoff parses the configured cutoff date (UTC midnight).
func (d DataConfig) Cutoff() (time.Time, error) {
	if d.CutoffDate == "" {
		return time.Time{}, nil
	}
	cutoff, err := time.Parse("2006-01-02", d.CutoffDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid data.cutoff_date: %w", err)
	}
	return cutoff, nil
}

// ScenarioConfig holds the default simulation knobs.
type ScenarioConfig struct {
	DailyKWh      float64 `mapstructure:"daily_kwh"`
	FlexibleShare float64 `mapstructure:"flexible_share"`
	TargetHours   int     `mapstructure:"target_hours"`
	Strategy      string  `mapstructure:"strategy"`
	CISource      string  `mapstructure:"ci_source"`
}

// Params converts the configured defaults into engine parameters.
func (s ScenarioConfig) Params() (scenario.Params, error) {
	strategy, err := scenario.ParseStrategy(s.Strategy)
	if err != nil {
		return scenario.Params{}, err
	}
	return scenario.Params{
		DailyKWh:      s.DailyKWh,
		FlexibleShare: s.FlexibleShare,
		Strategy:      strategy,
		TargetHours:   s.TargetHours,
	}, nil
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs the advisory loop cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// AdvisoryConfig defines the shift-advisory threshold and routing.
type AdvisoryConfig struct {
	Enabled         bool           `mapstructure:"enabled"`
	MinReductionPct float64        `mapstructure:"min_reduction_pct"`
	Telegram        TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram delivery channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GRIDSHIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gridshift")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("data.mix_path", "data/processed/df_carbon.parquet")
	v.SetDefault("data.predictions_path", "data/predictions/ci_predictions.parquet")
	v.SetDefault("data.cutoff_date", "2020-01-01")

	v.SetDefault("scenario.daily_kwh", 14.0)
	v.SetDefault("scenario.flexible_share", 0.3)
	v.SetDefault("scenario.target_hours", 4)
	v.SetDefault("scenario.strategy", "low_intensity")
	v.SetDefault("scenario.ci_source", "historical")

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x67726964))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("advisory.enabled", false)
	v.SetDefault("advisory.min_reduction_pct", 5.0)
	v.SetDefault("advisory.telegram.enabled", false)
	v.SetDefault("advisory.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Data.MixPath == "" {
		return fmt.Errorf("data.mix_path must be configured")
	}
	if c.Data.PredictionsPath == "" {
		return fmt.Errorf("data.predictions_path must be configured")
	}
	if _, err := c.Data.Cutoff(); err != nil {
		return err
	}
	params, err := c.Scenario.Params()
	if err != nil {
		return fmt.Errorf("scenario defaults: %w", err)
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("scenario defaults: %w", err)
	}
	if _, err := scenario.ParseSource(c.Scenario.CISource); err != nil {
		return fmt.Errorf("scenario.ci_source: %w", err)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Advisory.MinReductionPct < 0 {
		return fmt.Errorf("advisory.min_reduction_pct cannot be negative")
	}
	if c.Advisory.Telegram.Enabled {
		if c.Advisory.Telegram.BotToken == "" {
			return fmt.Errorf("advisory.telegram.bot_token must be configured")
		}
		if c.Advisory.Telegram.ChatID == "" {
			return fmt.Errorf("advisory.telegram.chat_id must be configured")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
