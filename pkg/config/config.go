package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	WorkRules WorkRulesConfig
	Conflicts ConflictsConfig
	Reports   ReportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WorkRulesConfig carries the working-time limits fed into the validation
// engine. Defaults are the statutory values; override only for tenants with
// stricter collective agreements.
type WorkRulesConfig struct {
	MaxDailyHours     float64
	MaxWeeklyHours    float64
	MinWeeklyHours    float64
	TargetWeeklyHours float64
	MinRestHours      float64
	VarianceThreshold float64
}

// ConflictsConfig tunes the conflict-detection endpoints and the background
// rescan worker.
type ConflictsConfig struct {
	CacheTTL          time.Duration
	ScanEnabled       bool
	WorkerConcurrency int
	WorkerRetries     int
}

// ReportsConfig gates the reporting and payroll-export endpoints.
type ReportsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.WorkRules = WorkRulesConfig{
		MaxDailyHours:     v.GetFloat64("RULE_MAX_DAILY_HOURS"),
		MaxWeeklyHours:    v.GetFloat64("RULE_MAX_WEEKLY_HOURS"),
		MinWeeklyHours:    v.GetFloat64("RULE_MIN_WEEKLY_HOURS"),
		TargetWeeklyHours: v.GetFloat64("RULE_TARGET_WEEKLY_HOURS"),
		MinRestHours:      v.GetFloat64("RULE_MIN_REST_HOURS"),
		VarianceThreshold: v.GetFloat64("RULE_VARIANCE_THRESHOLD_HOURS"),
	}

	cfg.Conflicts = ConflictsConfig{
		CacheTTL:          parseDuration(v.GetString("CONFLICTS_CACHE_TTL"), 5*time.Minute),
		ScanEnabled:       v.GetBool("ENABLE_CONFLICT_SCAN"),
		WorkerConcurrency: v.GetInt("CONFLICT_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("CONFLICT_WORKER_RETRIES"),
	}

	cfg.Reports = ReportsConfig{
		Enabled: v.GetBool("ENABLE_REPORTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "wfm_time")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RULE_MAX_DAILY_HOURS", 10)
	v.SetDefault("RULE_MAX_WEEKLY_HOURS", 48)
	v.SetDefault("RULE_MIN_WEEKLY_HOURS", 30)
	v.SetDefault("RULE_TARGET_WEEKLY_HOURS", 35)
	v.SetDefault("RULE_MIN_REST_HOURS", 11)
	v.SetDefault("RULE_VARIANCE_THRESHOLD_HOURS", 2)

	v.SetDefault("CONFLICTS_CACHE_TTL", "5m")
	v.SetDefault("ENABLE_CONFLICT_SCAN", true)
	v.SetDefault("CONFLICT_WORKER_CONCURRENCY", 1)
	v.SetDefault("CONFLICT_WORKER_RETRIES", 3)

	v.SetDefault("ENABLE_REPORTS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
