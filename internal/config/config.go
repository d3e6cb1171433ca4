// Package config loads the dundie configuration.
//
// Values come from, lowest precedence first: defaults, config.yaml in the
// data directory, .env files, then DUNDIE_* environment variables.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/maruel/dundie/internal/auth"
	"github.com/maruel/dundie/internal/email"
	"github.com/maruel/dundie/internal/ledger"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file in the data directory.
const FileName = "config.yaml"

// Backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

const defaultDatabase = "database.json"

// Config is the dundie configuration.
type Config struct {
	// Database is the path of the database; relative paths are relative to
	// the data directory.
	Database   string        `yaml:"database"`
	Backend    string        `yaml:"backend"`
	History    bool          `yaml:"history"`
	From       string        `yaml:"from"`
	Locale     string        `yaml:"locale"`
	SMTP       email.Config  `yaml:"smtp"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`

	dataDir string
}

// Default returns the configuration used when nothing is set.
func Default(dataDir string) *Config {
	return &Config{
		Database:   defaultDatabase,
		Backend:    BackendJSON,
		From:       ledger.DefaultFrom,
		Locale:     string(email.DefaultLocale),
		SMTP:       email.Config{Port: 8025, Timeout: 5 * time.Second},
		SessionTTL: auth.DefaultSessionTTL,
		dataDir:    dataDir,
	}
}

// Load reads the configuration of dataDir. A missing config.yaml is fine.
// .env files in the working directory and in dataDir are loaded into the
// environment without overriding variables already set.
func Load(dataDir string) (*Config, error) {
	c := Default(dataDir)
	raw, err := os.ReadFile(c.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", c.Path(), err)
		}
	}
	for _, p := range []string{".env", filepath.Join(dataDir, ".env")} {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("DUNDIE_DATABASE", &c.Database)
	setString("DUNDIE_BACKEND", &c.Backend)
	setString("DUNDIE_FROM", &c.From)
	setString("DUNDIE_LOCALE", &c.Locale)
	setString("DUNDIE_JWT_SECRET", &c.JWTSecret)
	setString("DUNDIE_SMTP_HOST", &c.SMTP.Host)
	setString("DUNDIE_SMTP_USERNAME", &c.SMTP.Username)
	setString("DUNDIE_SMTP_PASSWORD", &c.SMTP.Password)
	if v := os.Getenv("DUNDIE_SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DUNDIE_SMTP_PORT %q: %w", v, err)
		}
		c.SMTP.Port = port
	}
	if v := os.Getenv("DUNDIE_HISTORY"); v != "" {
		h, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DUNDIE_HISTORY %q: %w", v, err)
		}
		c.History = h
	}
	return nil
}

// Validate checks the configuration and applies defaults.
func (c *Config) Validate() error {
	switch c.Backend {
	case "":
		c.Backend = BackendJSON
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Backend == BackendSQLite && c.Database == defaultDatabase {
		c.Database = "database.sqlite"
	}
	if c.History && c.Backend != BackendJSON {
		return errors.New("history requires the json backend")
	}
	if c.SessionTTL < 0 {
		return errors.New("session_ttl must not be negative")
	}
	if c.Database == "" {
		return errors.New("database is required")
	}
	if c.From != "" && !email.IsValid(c.From) {
		return fmt.Errorf("invalid from address %q", c.From)
	}
	return c.SMTP.Validate()
}

// DataDir returns the data directory.
func (c *Config) DataDir() string {
	return c.dataDir
}

// Path returns the path of the configuration file.
func (c *Config) Path() string {
	return filepath.Join(c.dataDir, FileName)
}

// DatabasePath returns the absolute or data directory relative database path.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(c.dataDir, c.Database)
}

// EnsureSecret generates and saves a JWT secret when none is configured.
func (c *Config) EnsureSecret() error {
	if c.JWTSecret != "" {
		return nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("failed to generate secret: %w", err)
	}
	c.JWTSecret = hex.EncodeToString(b)
	return c.Save()
}

// Save writes the configuration file.
func (c *Config) Save() error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", c.dataDir, err)
	}
	if err := os.WriteFile(c.Path(), raw, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
