package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// StorageConfig selects the persistence backend. "postgres" is the hosted
// database; "memory" is the in-process mock store for demos and tests.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LedgerConfig tunes the transaction processor.
type LedgerConfig struct {
	// MaxRetries bounds the optimistic-concurrency retry loop. Domain
	// errors are never retried.
	MaxRetries int `mapstructure:"max_retries"`
	// IdempotencyTTL bounds how long processed purchases stay in the
	// Redis fast path. The transaction log remains the durable guard.
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// AnalyticsConfig carries the spending-pattern heuristic tunables. These
// are product-level approximations, not measured facts; the defaults match
// the reporting dashboards but every value is overridable.
type AnalyticsConfig struct {
	FrequentThreshold   float64 `mapstructure:"frequent_threshold"`   // usage % for the Frequent tier
	RegularThreshold    float64 `mapstructure:"regular_threshold"`    // usage % for the Regular tier
	OccasionalThreshold float64 `mapstructure:"occasional_threshold"` // usage % for the Occasional tier
	MinReferenceBalance int64   `mapstructure:"min_reference_balance"`
	HighBalanceCutoff   int64   `mapstructure:"high_balance_cutoff"`
	LowBalanceCutoff    int64   `mapstructure:"low_balance_cutoff"`
	HighBalanceDamping  float64 `mapstructure:"high_balance_damping"`
	HighBalanceUsageCap float64 `mapstructure:"high_balance_usage_cap"`
	LowBalanceBoost     float64 `mapstructure:"low_balance_boost"`
	LowBalanceUsageCap  float64 `mapstructure:"low_balance_usage_cap"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CMW_ (Campus Meal
// Wallet). Nested keys use underscore: CMW_DATABASE_HOST, CMW_LOG_LEVEL.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("storage.backend", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "meal_wallet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ledger.max_retries", 3)
	v.SetDefault("ledger.idempotency_ttl", "24h")
	v.SetDefault("analytics.frequent_threshold", 70.0)
	v.SetDefault("analytics.regular_threshold", 40.0)
	v.SetDefault("analytics.occasional_threshold", 10.0)
	v.SetDefault("analytics.min_reference_balance", 50000)
	v.SetDefault("analytics.high_balance_cutoff", 40000)
	v.SetDefault("analytics.low_balance_cutoff", 10000)
	v.SetDefault("analytics.high_balance_damping", 0.7)
	v.SetDefault("analytics.high_balance_usage_cap", 60.0)
	v.SetDefault("analytics.low_balance_boost", 1.2)
	v.SetDefault("analytics.low_balance_usage_cap", 95.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CMW_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CMW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
