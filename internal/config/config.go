package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Market    MarketConfig    `mapstructure:"market_data"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Brokerage BrokerageConfig `mapstructure:"brokerage"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// MarketConfig controls where daily price bars come from. Provider
// "synthetic" generates a deterministic series per code, so the engine runs
// without a market-data entitlement.
type MarketConfig struct {
	Provider    string `mapstructure:"provider"`
	HistoryDays int    `mapstructure:"history_days"`
}

// SchedulerConfig drives the recurring refresh pipeline: prices are pulled
// first, then signals recompute and the auto-trade tick runs.
type SchedulerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	RefreshSpecs     []string      `mapstructure:"refresh_specs"`
	WatchdogInterval time.Duration `mapstructure:"watchdog_interval"`
	StartupCatchUp   bool          `mapstructure:"startup_catch_up"`
}

type BrokerageConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type BacktestConfig struct {
	MaxConcurrentRuns int `mapstructure:"max_concurrent_runs"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8734")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("market_data.provider", "synthetic")
	v.SetDefault("market_data.history_days", 365)
	v.SetDefault("scheduler.enabled", true)
	// Hourly during the trading session, weekdays only (cron specs with a
	// seconds field, matching the runner).
	v.SetDefault("scheduler.refresh_specs", []string{
		"0 30 9 * * MON-FRI",
		"0 30 10 * * MON-FRI",
		"0 30 11 * * MON-FRI",
		"0 30 12 * * MON-FRI",
		"0 30 13 * * MON-FRI",
		"0 30 14 * * MON-FRI",
		"0 30 15 * * MON-FRI",
	})
	v.SetDefault("scheduler.watchdog_interval", "5m")
	v.SetDefault("scheduler.startup_catch_up", true)
	v.SetDefault("brokerage.timeout", "15s")
	v.SetDefault("backtest.max_concurrent_runs", 4)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
