// Package clientconfig loads opdctl settings from OPDCTL_* environment
// variables, after an optional .env file.
package clientconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/jwalitptl/opd-desk/pkg/logger"
)

const Prefix = "OPDCTL"

type Config struct {
	APIURL       string        `envconfig:"API_URL" default:"http://localhost:8080/api/v1"`
	SessionFile  string        `envconfig:"SESSION_FILE"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"10s"`
	PrintDir     string        `envconfig:"PRINT_DIR"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"30s"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"warn"`
	// SessionKey seals the stored token; empty stores it in the clear.
	SessionKey string        `envconfig:"SESSION_KEY"`
	CacheTTL   time.Duration `envconfig:"CACHE_TTL" default:"5m"`
}

// Load reads envFiles (default ".env") if present, then the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s environment: %w", Prefix, err)
	}
	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) fill() {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.SessionFile != "" && c.PrintDir != "" {
		return
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	dir := filepath.Join(base, "opdctl")
	if c.SessionFile == "" {
		c.SessionFile = filepath.Join(dir, "session.json")
	}
	if c.PrintDir == "" {
		c.PrintDir = filepath.Join(dir, "prints")
	}
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("%s_API_URL must be an http(s) URL, got %q", Prefix, c.APIURL)
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("%s_POLL_INTERVAL must be at least 1s", Prefix)
	}
	return nil
}

func (c *Config) Level() logger.Level {
	return logger.ParseLevel(c.LogLevel)
}
