package config

import (
	"crypto/rand"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	DBPath              string
	Port                int
	SessionSecret       []byte
	Environment         string
	AllowBrandOverride  bool
	EventRatePerSecond  float64
	EventBurst          int
	GeneratedSessionKey bool
}

func (c *Config) Development() bool {
	return c.Environment == EnvDevelopment
}

const DefaultDBPath = "./bookfront.db"

// LoadDotEnv loads an optional .env file from the working directory.
// Variables already set in the environment are left alone.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}
}

// DBPath returns the database path from the environment.
func DBPath() string {
	return getEnvOrDefault("BOOKFRONT_DB_PATH", DefaultDBPath)
}

// BaseURL is the local address a server started with the current
// environment listens on.
func BaseURL() string {
	return "http://localhost:" + getEnvOrDefault("BOOKFRONT_PORT", "8080")
}

// Load reads configuration from the environment, after loading an optional
// .env file from the working directory.
func Load() (*Config, error) {
	LoadDotEnv()

	cfg := &Config{
		DBPath:      DBPath(),
		Environment: getEnvOrDefault("BOOKFRONT_ENV", EnvProduction),
	}

	var err error
	if cfg.Port, err = intEnv("BOOKFRONT_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.AllowBrandOverride, err = boolEnv("BOOKFRONT_ALLOW_BRAND_OVERRIDE", false); err != nil {
		return nil, err
	}
	if cfg.EventRatePerSecond, err = floatEnv("BOOKFRONT_EVENT_RATE", 5); err != nil {
		return nil, err
	}
	if cfg.EventBurst, err = intEnv("BOOKFRONT_EVENT_BURST", 20); err != nil {
		return nil, err
	}

	secret := os.Getenv("BOOKFRONT_SESSION_SECRET")
	switch {
	case secret != "":
		if len(secret) < 32 {
			return nil, fmt.Errorf("BOOKFRONT_SESSION_SECRET must be at least 32 bytes")
		}
		cfg.SessionSecret = []byte(secret)
	case cfg.Development():
		cfg.SessionSecret = make([]byte, 32)
		if _, err := rand.Read(cfg.SessionSecret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		cfg.GeneratedSessionKey = true
	default:
		return nil, fmt.Errorf("BOOKFRONT_SESSION_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
