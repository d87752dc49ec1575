package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cron     CronConfig     `mapstructure:"cron"`
	Assessor AssessorConfig `mapstructure:"assessor"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Market   MarketConfig   `mapstructure:"market"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Seeding  SeedingConfig  `mapstructure:"seeding"`
	Stats    StatsConfig    `mapstructure:"stats"`
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

	// File sink with rotation; empty disables it.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type CronConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	SeedScan     string `mapstructure:"seed_scan"`
	ReassessScan string `mapstructure:"reassess_scan"`
}

type AssessorConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type MarketConfig struct {
	// SeedPool is the starting balance of each outcome pool, i.e. a 50%
	// implied probability at creation.
	SeedPool        float64 `mapstructure:"seed_pool"`
	StartingCredits float64 `mapstructure:"starting_credits"`
}

type TradingConfig struct {
	// MaxRetries bounds the retry loop around serialization conflicts
	// before the conflict is surfaced to the caller.
	MaxRetries int `mapstructure:"max_retries"`
}

type SeedingConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence"`
	// MaxShift clamps the seeded target probability to 0.5 +/- this value.
	MaxShift float64 `mapstructure:"max_shift"`

	ReassessAfter         time.Duration `mapstructure:"reassess_after"`
	ReassessMaxTrades     int64         `mapstructure:"reassess_max_trades"`
	ReassessMinConfidence float64       `mapstructure:"reassess_min_confidence"`
	ReassessMinGap        float64       `mapstructure:"reassess_min_gap"`
	ReassessMaxAmount     float64       `mapstructure:"reassess_max_amount"`
	ReassessSeedFraction  float64       `mapstructure:"reassess_seed_fraction"`

	ScanLimit   int `mapstructure:"scan_limit"`
	Parallelism int `mapstructure:"parallelism"`
}

type StatsConfig struct {
	LeaderboardCacheTTL time.Duration `mapstructure:"leaderboard_cache_ttl"`
	LeaderboardDays     int           `mapstructure:"leaderboard_days"`
	LeaderboardLimit    int           `mapstructure:"leaderboard_limit"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.seed_scan", "@every 5m")
	v.SetDefault("cron.reassess_scan", "@every 1h")

	v.SetDefault("assessor.base_url", "")
	v.SetDefault("assessor.timeout", "30s")

	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.timeout", "5s")

	v.SetDefault("market.seed_pool", 1000)
	v.SetDefault("market.starting_credits", 1000)

	v.SetDefault("trading.max_retries", 3)

	v.SetDefault("seeding.min_confidence", 0.4)
	v.SetDefault("seeding.max_shift", 0.20)
	v.SetDefault("seeding.reassess_after", "24h")
	v.SetDefault("seeding.reassess_max_trades", 10)
	v.SetDefault("seeding.reassess_min_confidence", 0.6)
	v.SetDefault("seeding.reassess_min_gap", 0.15)
	v.SetDefault("seeding.reassess_max_amount", 30)
	v.SetDefault("seeding.reassess_seed_fraction", 0.3)
	v.SetDefault("seeding.scan_limit", 50)
	v.SetDefault("seeding.parallelism", 4)

	v.SetDefault("stats.leaderboard_cache_ttl", "1m")
	v.SetDefault("stats.leaderboard_days", 30)
	v.SetDefault("stats.leaderboard_limit", 20)

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
