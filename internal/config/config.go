// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every runtime setting.
type Config struct {
	Port            string
	LogLevel        logrus.Level
	LogJSON         bool
	RedisURL        string
	DatabaseURL     string
	JWTSecret       []byte
	PublicURL       string
	DisconnectGrace time.Duration
	AllowedOrigins  []string
}

var (
	cfg      *Config
	loadOnce sync.Once
	loadErr  error
)

// Load reads .env (if present) and the environment once per process.
func Load() (*Config, error) {
	loadOnce.Do(func() {
		// A missing .env is normal in production.
		_ = godotenv.Load()
		cfg, loadErr = FromLookup(os.LookupEnv)
	})
	return cfg, loadErr
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	c := &Config{
		Port:        get("PORT", "8080"),
		LogJSON:     get("LOG_FORMAT", "text") == "json",
		RedisURL:    get("REDIS_URL", ""),
		DatabaseURL: get("DATABASE_URL", ""),
	}

	level, err := logrus.ParseLevel(get("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	c.LogLevel = level

	graceSecs, err := strconv.Atoi(get("DISCONNECT_GRACE_SECONDS", "30"))
	if err != nil || graceSecs <= 0 {
		return nil, fmt.Errorf("DISCONNECT_GRACE_SECONDS must be a positive integer, got %q", get("DISCONNECT_GRACE_SECONDS", ""))
	}
	c.DisconnectGrace = time.Duration(graceSecs) * time.Second

	c.PublicURL = strings.TrimRight(get("PUBLIC_URL", "http://localhost:"+c.Port), "/")

	for _, o := range strings.Split(get("ALLOWED_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.AllowedOrigins = append(c.AllowedOrigins, o)
		}
	}

	if secret := get("JWT_SECRET", ""); secret != "" {
		c.JWTSecret = []byte(secret)
	} else {
		// Dev fallback: tokens stop validating across restarts.
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		c.JWTSecret = []byte(hex.EncodeToString(b))
	}
	return c, nil
}

// NewLogger builds the root logger for the configured level and format.
func (c *Config) NewLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(c.LogLevel)
	if c.LogJSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}
