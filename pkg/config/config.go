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

	Database     DatabaseConfig
	CommandQueue DatabaseConfig
	Redis        RedisConfig
	CORS         CORSConfig
	Log          LogConfig
	Pipeline     PipelineConfig
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PipelineConfig governs schedule expansion and setpoint synchronization.
type PipelineConfig struct {
	// DebounceWindow skips entries whose progress marker was written within
	// this window, so quickly retried runs do not recompute.
	DebounceWindow time.Duration
	// ExpansionCeiling caps the dates expanded per entry per invocation.
	ExpansionCeiling int
	// DefaultLookaheadDays bounds the sync window when the trigger omits one.
	DefaultLookaheadDays int
	// SourceTimezone is the wall-clock zone of the SIS meeting times.
	SourceTimezone string
	// ControllerTimezone is the BAS command queue's native timezone.
	ControllerTimezone string
	// PointPrefix and PointSuffix wrap a zone code into its BAS point name.
	PointPrefix string
	PointSuffix string
	// Buildings lists building IDs the background scheduler sweeps.
	Buildings []string
	// SyncInterval is the background scheduler period; zero disables it.
	SyncInterval time.Duration
	// LockTTL bounds how long a per-building run lock may be held.
	LockTTL time.Duration
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

	cfg.CommandQueue = DatabaseConfig{
		Host:         v.GetString("CMDQ_HOST"),
		Port:         v.GetInt("CMDQ_PORT"),
		User:         v.GetString("CMDQ_USER"),
		Password:     v.GetString("CMDQ_PASSWORD"),
		Name:         v.GetString("CMDQ_NAME"),
		SSLMode:      v.GetString("CMDQ_SSL_MODE"),
		MaxOpenConns: v.GetInt("CMDQ_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("CMDQ_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Pipeline = PipelineConfig{
		DebounceWindow:       parseDuration(v.GetString("SYNC_DEBOUNCE_WINDOW"), 2*time.Hour),
		ExpansionCeiling:     v.GetInt("SYNC_EXPANSION_CEILING"),
		DefaultLookaheadDays: v.GetInt("SYNC_DEFAULT_LOOKAHEAD_DAYS"),
		SourceTimezone:       v.GetString("SYNC_SOURCE_TIMEZONE"),
		ControllerTimezone:   v.GetString("SYNC_CONTROLLER_TIMEZONE"),
		PointPrefix:          v.GetString("SYNC_POINT_PREFIX"),
		PointSuffix:          v.GetString("SYNC_POINT_SUFFIX"),
		Buildings:            splitAndTrim(v.GetString("SYNC_BUILDINGS")),
		SyncInterval:         parseDuration(v.GetString("SYNC_INTERVAL"), 0),
		LockTTL:              parseDuration(v.GetString("SYNC_LOCK_TTL"), 10*time.Minute),
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
	v.SetDefault("DB_NAME", "campus_dcv")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("CMDQ_HOST", "localhost")
	v.SetDefault("CMDQ_PORT", 5432)
	v.SetDefault("CMDQ_USER", "postgres")
	v.SetDefault("CMDQ_PASSWORD", "postgres")
	v.SetDefault("CMDQ_NAME", "bas_command_queue")
	v.SetDefault("CMDQ_SSL_MODE", "disable")
	v.SetDefault("CMDQ_MAX_OPEN_CONNS", 5)
	v.SetDefault("CMDQ_MAX_IDLE_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SYNC_DEBOUNCE_WINDOW", "2h")
	v.SetDefault("SYNC_EXPANSION_CEILING", 200)
	v.SetDefault("SYNC_DEFAULT_LOOKAHEAD_DAYS", 7)
	v.SetDefault("SYNC_SOURCE_TIMEZONE", "America/New_York")
	v.SetDefault("SYNC_CONTROLLER_TIMEZONE", "America/New_York")
	v.SetDefault("SYNC_POINT_PREFIX", "")
	v.SetDefault("SYNC_POINT_SUFFIX", ".OA-SP")
	v.SetDefault("SYNC_BUILDINGS", "")
	v.SetDefault("SYNC_INTERVAL", "")
	v.SetDefault("SYNC_LOCK_TTL", "10m")
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
