package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	AI       AIConfig
	Queue    QueueConfig
	Delivery DeliveryConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// AIConfig controls the generative suggestion backend.
type AIConfig struct {
	Enabled        bool
	APIKey         string
	Model          string
	TimeoutSeconds int
	MaxTokens      int
}

// QueueConfig controls the notification queue and dispatch worker.
type QueueConfig struct {
	MaxRetryCount           int
	DispatchIntervalSeconds int
	LeaseTTLSeconds         int
}

// DeliveryConfig selects and configures the outbound transport.
type DeliveryConfig struct {
	AMQPURL      string
	AMQPExchange string
	EmailFrom    string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "triage-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		AI: AIConfig{
			Enabled:        getEnvAsBool("AI_ENABLED", false),
			APIKey:         os.Getenv("AI_API_KEY"),
			Model:          getEnv("AI_MODEL", "gpt-4o-mini"),
			TimeoutSeconds: getEnvAsInt("AI_TIMEOUT_SECONDS", 20),
			MaxTokens:      getEnvAsInt("AI_MAX_TOKENS", 700),
		},
		Queue: QueueConfig{
			MaxRetryCount:           getEnvAsInt("QUEUE_MAX_RETRY_COUNT", 3),
			DispatchIntervalSeconds: getEnvAsInt("QUEUE_DISPATCH_INTERVAL_SECONDS", 30),
			LeaseTTLSeconds:         getEnvAsInt("QUEUE_LEASE_TTL_SECONDS", 60),
		},
		Delivery: DeliveryConfig{
			AMQPURL:      os.Getenv("DELIVERY_AMQP_URL"),
			AMQPExchange: getEnv("DELIVERY_AMQP_EXCHANGE", "notifications"),
			EmailFrom:    getEnv("DELIVERY_EMAIL_FROM", "noreply@example.com"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Active reports whether the generative backend should be constructed: the
// enabled flag must be set and a credential present.
func (c AIConfig) Active() bool {
	return c.Enabled && strings.TrimSpace(c.APIKey) != ""
}

// Timeout returns the bounded timeout for generative calls.
func (c AIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DispatchInterval returns the background dispatcher tick interval.
func (q QueueConfig) DispatchInterval() time.Duration {
	if q.DispatchIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(q.DispatchIntervalSeconds) * time.Second
}

// LeaseTTL returns the per-message dispatch lease duration.
func (q QueueConfig) LeaseTTL() time.Duration {
	if q.LeaseTTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(q.LeaseTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
