package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Store
	StoreDriver string

	// Database
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSSLMode    string
	DBEnforceRLS bool

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Admin (out-of-band role management)
	AdminToken string

	// Change notification
	BroadcastDriver string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	AMQPURL         string
	AMQPExchange    string

	// Object storage
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3Bucket      string
	S3UseSSL      bool
	S3PublicURL   string
	MediaMaxBytes int64

	// Logging
	LogLevel         string
	LogRetentionDays int
	SentryDSN        string
	AppEnv           string

	// Server
	Port        string
	CORSOrigins string
	RateLimit   bool
}

func Load() *Config {
	return &Config{
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),

		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "postgres"),
		DBPassword:   getEnv("DB_PASSWORD", ""),
		DBName:       getEnv("DB_NAME", "incident_reports"),
		DBSSLMode:    getEnv("DB_SSLMODE", "disable"),
		DBEnforceRLS: parseBool(getEnv("DB_ENFORCE_RLS", "true"), true),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m")),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h")),

		AdminToken: getEnv("ADMIN_TOKEN", ""),

		BroadcastDriver: strings.ToLower(getEnv("BROADCAST_DRIVER", "memory")),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         parseInt(getEnv("REDIS_DB", "0"), 0),
		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "incident.changes"),

		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		S3AccessKey:   getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:   getEnv("S3_SECRET_KEY", ""),
		S3Bucket:      getEnv("S3_BUCKET", "report-images"),
		S3UseSSL:      parseBool(getEnv("S3_USE_SSL", "false"), false),
		S3PublicURL:   getEnv("S3_PUBLIC_URL", ""),
		MediaMaxBytes: int64(parseInt(getEnv("MEDIA_MAX_BYTES", "5242880"), 5<<20)),

		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
		SentryDSN:        getEnv("SENTRY_DSN", ""),
		AppEnv:           getEnv("APP_ENV", "development"),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		RateLimit:   parseBool(getEnv("RATE_LIMIT", "true"), true),
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable is required"))
	}
	switch c.StoreDriver {
	case "postgres":
		if c.DBPassword == "" {
			errs = append(errs, errors.New("DB_PASSWORD environment variable is required"))
		}
	case "memory":
	default:
		errs = append(errs, errors.New("STORE_DRIVER must be postgres or memory"))
	}
	switch c.BroadcastDriver {
	case "memory", "redis":
	default:
		errs = append(errs, errors.New("BROADCAST_DRIVER must be memory or redis"))
	}
	return errors.Join(errs...)
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// MediaEnabled is true when object storage is configured.
func (c *Config) MediaEnabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

func parseBool(s string, fallback bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return b
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
