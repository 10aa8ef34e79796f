package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	defaultDBPath = "./dev.db"
	defaultPort   = "8080"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	DBDriver    string
	DBPath      string
	DatabaseURL string

	CatalogPath string
	// OverheadRate overrides the catalog's rate when set.
	OverheadRate *float64

	SessionSecret string

	GenAI GenAIConfig

	// Warnings collected while loading. Logged by LogWarnings once the logger is set up.
	Warnings []Warning
}

// Warning describes a setting that was missing or unusable.
type Warning struct {
	Key   string
	Value string
	Msg   string
}

// GenAIConfig configures the text generator used by AI estimates.
type GenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	RPS       float64
	Burst     int
	RedisAddr string
	CacheTTL  time.Duration
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an error;
// production should use real env injection. Variables already set win over the file.
func LoadFile(path string) Config {
	var warnings []Warning
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		warnings = append(warnings, Warning{Key: "dotenv", Value: path, Msg: "could not load dotenv file: " + err.Error()})
	}
	l := &loader{warnings: warnings}

	cfg := Config{
		Port:     getEnv("PORT", defaultPort),
		AppEnv:   getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:      getEnv("DB_PATH", defaultDBPath),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		CatalogPath:   getEnv("CATALOG_PATH", ""),
		SessionSecret: getEnv("SESSION_SECRET", ""),

		GenAI: GenAIConfig{
			APIKey:    getEnv("GENAI_API_KEY", ""),
			BaseURL:   getEnv("GENAI_BASE_URL", ""),
			Model:     getEnv("GENAI_MODEL", "gpt-4o-mini"),
			Timeout:   l.getEnvAsDuration("GENAI_TIMEOUT", 30*time.Second),
			RPS:       l.getEnvAsFloat("GENAI_RPS", 1),
			Burst:     l.getEnvAsInt("GENAI_BURST", 3),
			RedisAddr: getEnv("REDIS_ADDR", ""),
			CacheTTL:  l.getEnvAsDuration("GENAI_CACHE_TTL", 24*time.Hour),
		},
	}

	if v := strings.TrimSpace(os.Getenv("OVERHEAD_RATE")); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			l.warn("OVERHEAD_RATE", v, "not a number, using the catalog rate")
		} else {
			cfg.OverheadRate = &rate
		}
	}

	if cfg.SessionSecret == "" {
		l.warn("SESSION_SECRET", "", "not set, estimates will not be saved")
	}
	if cfg.GenAI.APIKey == "" {
		l.warn("GENAI_API_KEY", "", "not set, AI estimates are disabled")
	}

	cfg.Warnings = l.warnings
	return cfg
}

// LogWarnings writes the warnings collected by Load to the global logger.
func (c Config) LogWarnings() {
	for _, w := range c.Warnings {
		ev := log.Warn().Str("key", w.Key)
		if w.Value != "" {
			ev = ev.Str("value", w.Value)
		}
		ev.Msg(w.Msg)
	}
}

// IsDev reports whether the app runs in development mode.
func (c Config) IsDev() bool {
	env := strings.ToLower(c.AppEnv)
	return env == "development" || env == "dev" || env == "local"
}

// Validate checks combinations that Load cannot default its way out of.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", c.DBDriver)
	}

	if c.OverheadRate != nil && (*c.OverheadRate < 0 || *c.OverheadRate > 1) {
		return fmt.Errorf("OVERHEAD_RATE must be between 0 and 1, got %v", *c.OverheadRate)
	}
	if c.GenAI.Timeout <= 0 {
		return fmt.Errorf("GENAI_TIMEOUT must be positive")
	}
	if c.GenAI.Burst < 1 {
		return fmt.Errorf("GENAI_BURST must be at least 1")
	}
	return nil
}

type loader struct {
	warnings []Warning
}

func (l *loader) warn(key, value, msg string) {
	l.warnings = append(l.warnings, Warning{Key: key, Value: value, Msg: msg})
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (l *loader) getEnvAsInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.warn(key, v, "not an integer, using default")
		return def
	}
	return n
}

func (l *loader) getEnvAsFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.warn(key, v, "not a number, using default")
		return def
	}
	return f
}

func (l *loader) getEnvAsDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.warn(key, v, "not a duration, using default")
		return def
	}
	return d
}
