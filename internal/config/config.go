package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docutrack/docutrack/internal/log"
	"github.com/docutrack/docutrack/internal/types"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Enabled reports whether outgoing mail is configured at all.
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

type Config struct {
	Port string `yaml:"port"`

	// StoreDriver selects the store adapter: postgres, mongo or memory.
	StoreDriver string `yaml:"store_driver"`
	DatabaseURL string `yaml:"database_url"`
	// PGNotify fans change notifications out to other instances through
	// postgres LISTEN/NOTIFY.
	PGNotify      bool   `yaml:"pg_notify"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`

	JWTSecret      string   `yaml:"jwt_secret"`
	CookieDomain   string   `yaml:"cookie_domain"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// Timezone is the IANA zone used for every date-only comparison.
	Timezone     string `yaml:"timezone"`
	ReminderCron string `yaml:"reminder_cron"`

	SMTP     SMTPConfig `yaml:"smtp"`
	LogLevel string     `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		Port:          "3000",
		StoreDriver:   DriverPostgres,
		MongoDatabase: "docutrack",
		Timezone:      "UTC",
		ReminderCron:  "0 8 * * *",
		SMTP:          SMTPConfig{Port: 587},
		LogLevel:      string(log.LevelInfo),
	}
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Port == "" {
		c.Port = def.Port
	}
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	if c.StoreDriver == "" {
		c.StoreDriver = def.StoreDriver
	}
	if c.MongoDatabase == "" {
		c.MongoDatabase = def.MongoDatabase
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.ReminderCron == "" {
		c.ReminderCron = def.ReminderCron
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = def.SMTP.Port
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.User
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = types.AllowedOrigins
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable is not set"))
	}

	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err))
	}

	if _, err := cron.ParseStandard(c.ReminderCron); err != nil {
		errs = append(errs, fmt.Errorf("invalid reminder schedule %q: %w", c.ReminderCron, err))
	}

	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads .env, then the optional YAML file named by CONFIG_FILE, then
// environment overrides. The result is normalized and validated.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file loaded", "reason", err)
	}

	cfg := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg, os.LookupEnv)
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("Config file not found, using environment only", "path", path)
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("PORT", &cfg.Port)
	str("STORE_DRIVER", &cfg.StoreDriver)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("MONGO_URI", &cfg.MongoURI)
	str("MONGO_DB", &cfg.MongoDatabase)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("DOMAIN", &cfg.CookieDomain)
	str("TIMEZONE", &cfg.Timezone)
	str("REMINDER_CRON", &cfg.ReminderCron)
	str("SMTP_HOST", &cfg.SMTP.Host)
	str("SMTP_USER", &cfg.SMTP.User)
	str("SMTP_PASSWORD", &cfg.SMTP.Password)
	str("SMTP_FROM", &cfg.SMTP.From)
	str("LOG_LEVEL", &cfg.LogLevel)

	if v, ok := lookup("SMTP_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.SMTP.Port = port
		}
	}

	if v, ok := lookup("PG_NOTIFY"); ok {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.PGNotify = enabled
		}
	}
}
