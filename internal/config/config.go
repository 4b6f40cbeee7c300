package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds dashboard-agent configuration (shape as streaming-service template).
type Config struct {
	AppEnv   string // APP_ENV
	AppHost  string // APP_HOST
	HTTPPort string // APP_PORT or HTTP_PORT
	LogLevel string // LOG_LEVEL

	// Recorder backend this agent synchronizes against.
	BackendBaseURL string        // BACKEND_BASE_URL
	BackendTimeout time.Duration // BACKEND_TIMEOUT_SECONDS

	// Cycle cadences. The two timers are independent on purpose.
	RefreshInterval    time.Duration // REFRESH_INTERVAL_SECONDS
	AutoRecordInterval time.Duration // AUTO_RECORD_INTERVAL_SECONDS
	AutoRecordFanOut   int           // AUTO_RECORD_FANOUT (concurrent per-model probes)

	// Cache TTLs per class.
	ModelsTTL   time.Duration // CACHE_MODELS_TTL_SECONDS
	StatusTTL   time.Duration // CACHE_STATUS_TTL_SECONDS
	SnapshotTTL time.Duration // CACHE_SNAPSHOT_TTL_SECONDS

	// Optional advisory cache persistence (PostgreSQL). When disabled or
	// unreachable the agent runs on the in-memory store.
	CachePersist bool // CACHE_PERSIST
	DB           struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	// WebSocket patch stream.
	WSReadBufferSize  int // WS_READ_BUFFER_SIZE
	WSWriteBufferSize int // WS_WRITE_BUFFER_SIZE
	WSSendBuffer      int // WS_SEND_BUFFER (per-client queued batches)
}

// Load loads config from environment (.env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	readBuf, _ := strconv.Atoi(getEnv("WS_READ_BUFFER_SIZE", "4096"))
	writeBuf, _ := strconv.Atoi(getEnv("WS_WRITE_BUFFER_SIZE", "4096"))
	sendBuf, _ := strconv.Atoi(getEnv("WS_SEND_BUFFER", "64"))
	fanOut, _ := strconv.Atoi(getEnv("AUTO_RECORD_FANOUT", "4"))

	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		AppHost:            getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:           firstEnv("APP_PORT", "HTTP_PORT", "8091"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		BackendBaseURL:     getEnv("BACKEND_BASE_URL", "http://localhost:8080"),
		BackendTimeout:     secondsEnv("BACKEND_TIMEOUT_SECONDS", 10),
		RefreshInterval:    secondsEnv("REFRESH_INTERVAL_SECONDS", 15),
		AutoRecordInterval: secondsEnv("AUTO_RECORD_INTERVAL_SECONDS", 60),
		AutoRecordFanOut:   fanOut,
		ModelsTTL:          secondsEnv("CACHE_MODELS_TTL_SECONDS", 300),
		StatusTTL:          secondsEnv("CACHE_STATUS_TTL_SECONDS", 30),
		SnapshotTTL:        secondsEnv("CACHE_SNAPSHOT_TTL_SECONDS", 60),
		CachePersist:       getEnv("CACHE_PERSIST", "false") == "true",
		WSReadBufferSize:   readBuf,
		WSWriteBufferSize:  writeBuf,
		WSSendBuffer:       sendBuf,
	}
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "dashboard_agent")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg, nil
}

// Validate checks required fields and production safety.
func (c *Config) Validate() error {
	if c.BackendBaseURL == "" {
		return errors.New("config: BACKEND_BASE_URL is required")
	}
	if _, err := url.Parse(c.BackendBaseURL); err != nil {
		return fmt.Errorf("config: BACKEND_BASE_URL invalid: %w", err)
	}
	if c.RefreshInterval <= 0 {
		return errors.New("config: REFRESH_INTERVAL_SECONDS must be positive")
	}
	if c.AutoRecordInterval <= 0 {
		return errors.New("config: AUTO_RECORD_INTERVAL_SECONDS must be positive")
	}
	if c.CachePersist {
		if c.DB.Host == "" {
			return errors.New("config: CACHE_PERSIST requires DB_HOST")
		}
		if c.DB.User == "" {
			return errors.New("config: CACHE_PERSIST requires DB_USER")
		}
		if c.DB.Database == "" {
			return errors.New("config: CACHE_PERSIST requires DB_DATABASE")
		}
		if c.AppEnv == "production" && c.DB.Password == "" {
			return errors.New("config: in production DB_PASSWORD is required")
		}
	}
	return nil
}

// DSN returns PostgreSQL connection string for GORM.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

// DatabaseURL returns postgres URL for golang-migrate.
func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

// Addr returns listen address for HTTP server.
func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func secondsEnv(key string, def int) time.Duration {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(def)))
	if err != nil || n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	keys := keysAndDef[:len(keysAndDef)-1]
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
