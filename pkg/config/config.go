package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Runtime
	Port      string `mapstructure:"PORT"`
	Env       string `mapstructure:"ENV"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Database
	DatabaseURL string        `mapstructure:"DATABASE_URL"`
	DBTimeout   time.Duration `mapstructure:"DB_TIMEOUT"`

	// Redis
	RedisURL string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	// Fallback JSON inputs
	DataDir    string        `mapstructure:"DATA_DIR"`
	StaleAfter time.Duration `mapstructure:"STALE_AFTER"`

	// External opportunities / odds API
	OpportunitiesAPIURL     string        `mapstructure:"OPPORTUNITIES_API_URL"`
	OpportunitiesAPIKey     string        `mapstructure:"OPPORTUNITIES_API_KEY"`
	ExternalAPITimeout      time.Duration `mapstructure:"EXTERNAL_API_TIMEOUT"`
	ExternalAPIRetries      int           `mapstructure:"EXTERNAL_API_RETRIES"`
	ExternalAPIBackoff      time.Duration `mapstructure:"EXTERNAL_API_BACKOFF"`
	ExternalAPIRate         float64       `mapstructure:"EXTERNAL_API_RATE"`
	CircuitBreakerThreshold int           `mapstructure:"CIRCUIT_BREAKER_THRESHOLD"`

	// Workers
	Workers int `mapstructure:"WORKERS"`

	// Schedules (cron syntax)
	ResolveSchedule     string `mapstructure:"RESOLVE_SCHEDULE"`
	ReloadSchedule      string `mapstructure:"RELOAD_SCHEDULE"`
	ClosingOddsSchedule string `mapstructure:"CLOSING_ODDS_SCHEDULE"`

	// Decision matrix thresholds
	ChaosExtreme    float64 `mapstructure:"CHAOS_EXTREME"`
	ChaosHigh       float64 `mapstructure:"CHAOS_HIGH"`
	FrictionHigh    float64 `mapstructure:"FRICTION_HIGH"`
	FrictionNeutral float64 `mapstructure:"FRICTION_NEUTRAL"`
	XGShootout      float64 `mapstructure:"XG_SHOOTOUT"`
	XGLow           float64 `mapstructure:"XG_LOW"`
	ZStrong         float64 `mapstructure:"Z_STRONG"`
	ZMedium         float64 `mapstructure:"Z_MEDIUM"`

	// Market profiles
	MinSample int     `mapstructure:"MIN_SAMPLE"`
	MinOdds   float64 `mapstructure:"MIN_ODDS"`
	MinH2H    int     `mapstructure:"MIN_H2H"`

	// Referees
	MinRefereeMatches     int     `mapstructure:"MIN_REFEREE_MATCHES"`
	RefereeHighConfidence int     `mapstructure:"REFEREE_HIGH_CONFIDENCE"`
	LeagueAvgTrigger      float64 `mapstructure:"LEAGUE_AVG_TRIGGER"`

	// Value scoring / staking
	PenaltyTableVersion string  `mapstructure:"PENALTY_TABLE_VERSION"`
	BaseStake           float64 `mapstructure:"BASE_STAKE"`
	PickSource          string  `mapstructure:"PICK_SOURCE"`
}

// DefaultWorkers bounds fixture-level parallelism to min(NumCPU, 8).
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if n > 8 {
		return 8
	}
	if n < 1 {
		return 1
	}
	return n
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")

	setDefaults(v)

	// Read from environment
	v.AutomaticEnv()

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.Workers <= 0 {
		config.Workers = DefaultWorkers()
	}
	config.PenaltyTableVersion = strings.ToLower(strings.TrimSpace(config.PenaltyTableVersion))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("LOG_FORMAT", "")

	v.SetDefault("DATABASE_URL", "sqlite://mon_ps.db")
	v.SetDefault("DB_TIMEOUT", "10s")

	v.SetDefault("REDIS_URL", "") // cache disabled unless configured
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("STALE_AFTER", "720h") // 30 days

	v.SetDefault("OPPORTUNITIES_API_URL", "")
	v.SetDefault("OPPORTUNITIES_API_KEY", "")
	v.SetDefault("EXTERNAL_API_TIMEOUT", "20s")
	v.SetDefault("EXTERNAL_API_RETRIES", 3)
	v.SetDefault("EXTERNAL_API_BACKOFF", "2s")
	v.SetDefault("EXTERNAL_API_RATE", 2.0)
	v.SetDefault("CIRCUIT_BREAKER_THRESHOLD", 5)

	v.SetDefault("WORKERS", 0)

	v.SetDefault("RESOLVE_SCHEDULE", "@every 30m")
	v.SetDefault("RELOAD_SCHEDULE", "0 4 * * *")
	v.SetDefault("CLOSING_ODDS_SCHEDULE", "@every 5m")

	v.SetDefault("CHAOS_EXTREME", 80.0)
	v.SetDefault("CHAOS_HIGH", 70.0)
	v.SetDefault("FRICTION_HIGH", 70.0)
	v.SetDefault("FRICTION_NEUTRAL", 60.0)
	v.SetDefault("XG_SHOOTOUT", 3.5)
	v.SetDefault("XG_LOW", 2.5)
	v.SetDefault("Z_STRONG", 2.0)
	v.SetDefault("Z_MEDIUM", 1.0)

	v.SetDefault("MIN_SAMPLE", 10)
	v.SetDefault("MIN_ODDS", 1.50)
	v.SetDefault("MIN_H2H", 5)

	v.SetDefault("MIN_REFEREE_MATCHES", 50)
	v.SetDefault("REFEREE_HIGH_CONFIDENCE", 100)
	v.SetDefault("LEAGUE_AVG_TRIGGER", 16.5)

	v.SetDefault("PENALTY_TABLE_VERSION", "v2.3")
	v.SetDefault("BASE_STAKE", 1.0)
	v.SetDefault("PICK_SOURCE", "engine")
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.MinOdds < 1.01 {
		return fmt.Errorf("MIN_ODDS must be >= 1.01, got %.2f", c.MinOdds)
	}
	if c.MinSample < 0 || c.MinH2H < 0 || c.MinRefereeMatches < 0 {
		return fmt.Errorf("sample thresholds must be non-negative")
	}
	if c.RefereeHighConfidence <= 0 {
		return fmt.Errorf("REFEREE_HIGH_CONFIDENCE must be positive")
	}
	if c.BaseStake < 0 {
		return fmt.Errorf("BASE_STAKE must be non-negative")
	}
	switch c.PenaltyTableVersion {
	case "v2.2", "v2.3":
	default:
		return fmt.Errorf("unknown PENALTY_TABLE_VERSION %q", c.PenaltyTableVersion)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
