package config

import (
	"errors"
	"os"
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
	CORS      CORSConfig
	Log       LogConfig
	Cache     CacheConfig
	Scheduler SchedulerConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	IOTimeout   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig toggles the Redis backed response cache.
type CacheConfig struct {
	Enabled           bool
	ActiveConfigTTL   time.Duration
	ExportResultTTL   time.Duration
	InvalidateOnWrite bool
}

// SchedulerConfig tunes the asynchronous generation pipeline.
type SchedulerConfig struct {
	Workers       int
	QueueBuffer   int
	JobRetention  time.Duration
	PruneInterval time.Duration
	GenerateRate  float64
	GenerateBurst int
	MaxIterations int
	DefaultSeed   int64
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),

		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
		ConnectTimeout:  parseDuration(v.GetString("DB_CONNECT_TIMEOUT"), 5*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		PoolSize: v.GetInt("REDIS_POOL_SIZE"),

		DialTimeout: parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 3*time.Second),
		IOTimeout:   parseDuration(v.GetString("REDIS_IO_TIMEOUT"), time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:           v.GetBool("ENABLE_CACHE"),
		ActiveConfigTTL:   parseDuration(v.GetString("CACHE_ACTIVE_CONFIG_TTL"), 5*time.Minute),
		ExportResultTTL:   parseDuration(v.GetString("SCHEDULER_EXPORT_CACHE_TTL"), 10*time.Minute),
		InvalidateOnWrite: v.GetBool("CACHE_INVALIDATE_ON_WRITE"),
	}

	workers := v.GetInt("SCHEDULER_WORKERS")
	if workers <= 0 {
		workers = 1
	}
	cfg.Scheduler = SchedulerConfig{
		Workers:       workers,
		QueueBuffer:   v.GetInt("SCHEDULER_QUEUE_BUFFER"),
		JobRetention:  parseDuration(v.GetString("SCHEDULER_JOB_RETENTION"), 24*time.Hour),
		PruneInterval: parseDuration(v.GetString("SCHEDULER_PRUNE_INTERVAL"), 15*time.Minute),
		GenerateRate:  v.GetFloat64("SCHEDULER_GENERATE_RATE"),
		GenerateBurst: v.GetInt("SCHEDULER_GENERATE_BURST"),
		MaxIterations: v.GetInt("SCHEDULER_MAX_ITERATIONS"),
		DefaultSeed:   v.GetInt64("SCHEDULER_DEFAULT_SEED"),
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
	v.SetDefault("DB_NAME", "school_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "3s")
	v.SetDefault("REDIS_IO_TIMEOUT", "1s")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_ACTIVE_CONFIG_TTL", "5m")
	v.SetDefault("CACHE_INVALIDATE_ON_WRITE", true)

	v.SetDefault("SCHEDULER_WORKERS", 4)
	v.SetDefault("SCHEDULER_QUEUE_BUFFER", 32)
	v.SetDefault("SCHEDULER_JOB_RETENTION", "24h")
	v.SetDefault("SCHEDULER_PRUNE_INTERVAL", "15m")
	v.SetDefault("SCHEDULER_EXPORT_CACHE_TTL", "10m")
	v.SetDefault("SCHEDULER_GENERATE_RATE", 1.0)
	v.SetDefault("SCHEDULER_GENERATE_BURST", 5)
	v.SetDefault("SCHEDULER_MAX_ITERATIONS", 5000)
	v.SetDefault("SCHEDULER_DEFAULT_SEED", 0)
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
