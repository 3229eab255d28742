package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"todo_api/internal/logger"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Store     StoreConfig
	Auth      AuthConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
}

type AppConfig struct {
	Env     string `env:"APP_ENV" env-default:"dev"`
	Version string `env:"APP_VERSION" env-default:"0.1.0"`
}

type HTTPConfig struct {
	Port         string   `env:"APP_PORT" env-default:"8000"`
	CORSOrigins  []string `env:"CORS_ORIGINS" env-default:"*" env-separator:","`
	ReadTimeout  Seconds  `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout Seconds  `env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  Seconds  `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type StoreConfig struct {
	Driver string `env:"DB_DRIVER" env-default:"sqlite"`
	// Path is the SQLite file; its directory is created on demand.
	Path string `env:"DB_PATH" env-default:"./data/todo.db"`
	// URL is the PostgreSQL DSN, required when Driver is postgres.
	URL string `env:"DATABASE_URL" env-default:""`
}

type AuthConfig struct {
	// APIKey empty means write endpoints are open.
	APIKey string `env:"TODO_API_KEY" env-default:""`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
	JSON  bool   `env:"LOG_JSON" env-default:"false"`
}

type RateLimitConfig struct {
	// Limit <= 0 disables rate limiting.
	Limit  int     `env:"API_RATE_LIMIT" env-default:"600"`
	Window Seconds `env:"API_RATE_WINDOW_SECONDS" env-default:"60"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:""`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// Seconds parses "10s", "5m" or a bare number of seconds.
type Seconds time.Duration

func (s *Seconds) SetValue(raw string) error {
	d, err := ParseDuration(raw)
	if err != nil {
		return err
	}
	*s = Seconds(d)
	return nil
}

func (s Seconds) Duration() time.Duration { return time.Duration(s) }

func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration must be like 10s, 5m or a number of seconds: %w", err)
	}
	return d, nil
}

// Load reads .env (if present) and the environment, exiting on invalid config.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Read()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// Read decodes the current environment without touching .env files.
func Read() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Store.URL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Store.Driver)
	}
	if c.HTTP.Port == "" {
		return fmt.Errorf("APP_PORT is empty")
	}
	return nil
}
