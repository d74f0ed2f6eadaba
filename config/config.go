// Package config loads onesocket settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds the server settings. Every field can be set through an
// ONESOCKET_ prefixed environment variable.
type Config struct {
	Addr           string        `env:"ONESOCKET_ADDR" envDefault:":8080"`
	ReadLimit      int64         `env:"ONESOCKET_READ_LIMIT" envDefault:"1048576"`
	WriteTimeout   time.Duration `env:"ONESOCKET_WRITE_TIMEOUT" envDefault:"10s"`
	PingInterval   time.Duration `env:"ONESOCKET_PING_INTERVAL" envDefault:"30s"`
	AllowedOrigins []string      `env:"ONESOCKET_ALLOWED_ORIGINS" envSeparator:","`
	LogLevel       int           `env:"ONESOCKET_LOG_LEVEL" envDefault:"0"`
}

// Load reads the given .env files, if they exist, into the process
// environment and then parses it. Without arguments ".env" in the working
// directory is tried. Variables already set in the environment win over
// values from the files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: ONESOCKET_ADDR must not be empty")
	}
	if c.ReadLimit <= 0 {
		return fmt.Errorf("config: ONESOCKET_READ_LIMIT must be positive, got %d", c.ReadLimit)
	}
	if c.WriteTimeout < 0 || c.PingInterval < 0 {
		return errors.New("config: timeouts must not be negative")
	}
	return nil
}
