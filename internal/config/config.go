// Package config loads the server configuration: a YAML file, then
// OPENWIRE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// State backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds server configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
	State     State     `yaml:"state"`
	Security  Security  `yaml:"security"`
	Templates Templates `yaml:"templates"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// WebSocket enables the /openwire/ws bridge.
	WebSocket bool `yaml:"websocket"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type State struct {
	Backend       string        `yaml:"backend"`
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	SQLitePath    string        `yaml:"sqlite_path"`
}

type Security struct {
	// StateKey enables sealed state tokens when set.
	StateKey      string  `yaml:"state_key"`
	RequireHeader bool    `yaml:"require_header"`
	SecureCookie  bool    `yaml:"secure_cookie"`
	BodyLimit     int64   `yaml:"body_limit"`
	RateLimit     float64 `yaml:"rate_limit"`
	RateBurst     int     `yaml:"rate_burst"`
}

type Templates struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			WebSocket:       true,
		},
		Log: Log{Level: "info", Format: "text"},
		State: State{
			Backend:    BackendMemory,
			TTL:        24 * time.Hour,
			RedisAddr:  "localhost:6379",
			SQLitePath: "openwire.db",
		},
		Security: Security{
			RequireHeader: true,
			BodyLimit:     4 << 20,
			RateLimit:     20,
			RateBurst:     40,
		},
	}
}

// Load reads path (when non-empty and present) over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = env("OPENWIRE_ADDR", cfg.Server.Addr)
	cfg.Server.WebSocket = envBool("OPENWIRE_WEBSOCKET", cfg.Server.WebSocket)
	cfg.Log.Level = env("OPENWIRE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = env("OPENWIRE_LOG_FORMAT", cfg.Log.Format)
	cfg.State.Backend = env("OPENWIRE_STATE_BACKEND", cfg.State.Backend)
	cfg.State.TTL = envDuration("OPENWIRE_STATE_TTL", cfg.State.TTL)
	cfg.State.RedisAddr = env("OPENWIRE_REDIS_ADDR", cfg.State.RedisAddr)
	cfg.State.RedisPassword = env("OPENWIRE_REDIS_PASSWORD", cfg.State.RedisPassword)
	cfg.State.RedisDB = envInt("OPENWIRE_REDIS_DB", cfg.State.RedisDB)
	cfg.State.SQLitePath = env("OPENWIRE_SQLITE_PATH", cfg.State.SQLitePath)
	cfg.Security.StateKey = env("OPENWIRE_STATE_KEY", cfg.Security.StateKey)
	cfg.Security.RequireHeader = envBool("OPENWIRE_REQUIRE_HEADER", cfg.Security.RequireHeader)
	cfg.Security.SecureCookie = envBool("OPENWIRE_SECURE_COOKIE", cfg.Security.SecureCookie)
	cfg.Security.RateLimit = envFloat("OPENWIRE_RATE_LIMIT", cfg.Security.RateLimit)
	cfg.Security.RateBurst = envInt("OPENWIRE_RATE_BURST", cfg.Security.RateBurst)
	cfg.Templates.Dir = env("OPENWIRE_TEMPLATES_DIR", cfg.Templates.Dir)
	cfg.Templates.Watch = envBool("OPENWIRE_TEMPLATES_WATCH", cfg.Templates.Watch)
}

// Validate checks values Load cannot repair.
func (c Config) Validate() error {
	switch c.State.Backend {
	case BackendMemory, BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("config: unknown state backend %q", c.State.Backend)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if c.Server.Addr == "" {
		return errors.New("config: server addr is required")
	}
	if c.Security.BodyLimit <= 0 {
		return errors.New("config: body limit must be positive")
	}
	return nil
}

func env(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
