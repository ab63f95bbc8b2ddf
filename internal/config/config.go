// Package config loads application configuration from YAML files and
// environment variables.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Workflow   WorkflowConfig   `mapstructure:"workflow"`
	Risk       RiskConfig       `mapstructure:"risk"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // "json" or "console"
}

// DatabaseConfig contains PostgreSQL settings for the price store.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	PoolSize int    `mapstructure:"pool_size"`
}

// DSN builds a pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

// RedisConfig contains settings for the price series cache.
type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// WorkflowConfig bounds the advisory revision loops.
type WorkflowConfig struct {
	MaxReviewRevisions int `mapstructure:"max_review_revisions"`
	MaxRiskRevisions   int `mapstructure:"max_risk_revisions"`
}

// RiskConfig tunes the risk metrics engine and gate bounds.
type RiskConfig struct {
	RiskFreeRate       float64 `mapstructure:"risk_free_rate"`
	Confidence         float64 `mapstructure:"confidence"`
	LookbackDays       int     `mapstructure:"lookback_days"`
	MaxVaR95           float64 `mapstructure:"max_var_95"`
	MaxDrawdown        float64 `mapstructure:"max_drawdown"`
	MinDiversification float64 `mapstructure:"min_diversification"`
	ScenarioFile       string  `mapstructure:"scenario_file"`
}

// MarketDataConfig tunes providers.
type MarketDataConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// MonitoringConfig contains metrics exposure settings.
type MonitoringConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

// Load reads configuration from the given file, falling back to
// ./configs/config.yaml, with ALPINIST_* environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("ALPINIST")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults and environment variables apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Alpinist")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "alpinist")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl_minutes", 15)

	v.SetDefault("workflow.max_review_revisions", 2)
	v.SetDefault("workflow.max_risk_revisions", 2)

	v.SetDefault("risk.risk_free_rate", 0.02)
	v.SetDefault("risk.confidence", 0.95)
	v.SetDefault("risk.lookback_days", 730)
	v.SetDefault("risk.max_var_95", 0.04)
	v.SetDefault("risk.max_drawdown", 0.40)
	v.SetDefault("risk.min_diversification", 0.20)

	v.SetDefault("market_data.requests_per_minute", 60)

	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.metrics_port", 9090)
}

// Validate checks configuration sanity.
func (c *Config) Validate() error {
	if c.Workflow.MaxReviewRevisions < 0 {
		return fmt.Errorf("workflow.max_review_revisions must be >= 0, got %d", c.Workflow.MaxReviewRevisions)
	}
	if c.Workflow.MaxRiskRevisions < 0 {
		return fmt.Errorf("workflow.max_risk_revisions must be >= 0, got %d", c.Workflow.MaxRiskRevisions)
	}
	if c.Risk.Confidence <= 0 || c.Risk.Confidence >= 1 {
		return fmt.Errorf("risk.confidence must be in (0,1), got %f", c.Risk.Confidence)
	}
	if c.Risk.LookbackDays <= 0 {
		return fmt.Errorf("risk.lookback_days must be positive, got %d", c.Risk.LookbackDays)
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port out of range: %d", c.Database.Port)
	}
	if c.MarketData.RequestsPerMinute <= 0 {
		return fmt.Errorf("market_data.requests_per_minute must be positive, got %d", c.MarketData.RequestsPerMinute)
	}
	return nil
}
