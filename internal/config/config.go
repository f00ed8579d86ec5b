package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Error reports a single bad configuration value.
type Error struct {
	Field string
	Value any
	Rule  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s=%v: %s", e.Field, e.Value, e.Rule)
}

func (e *Error) Unwrap() error {
	return ErrInvalid
}

type Config struct {
	// Stop condition
	TargetCount    int
	MaxRunDuration time.Duration

	// Fetching
	PerFetchTimeout      time.Duration
	Concurrency          int
	MaxSecondaryAttempts int
	UserAgent            string
	HostRate             float64 // requests per second per host
	HostBurst            int
	RespectRobots        bool

	// Run behaviour
	DryRun      bool
	SkipInvalid bool

	// Collaborators
	DomainsFile string
	SheetPath   string
	DatabaseURL string
	ReportPath  string
	ProfilePath string

	// Service mode
	Addr        string
	RunInterval time.Duration
	Retention   time.Duration

	LogLevel string
}

func Default() Config {
	return Config{
		TargetCount:          10,
		MaxRunDuration:       120 * time.Minute,
		PerFetchTimeout:      15 * time.Second,
		Concurrency:          8,
		MaxSecondaryAttempts: 4,
		UserAgent:            "fresher-hunter-bot/1.0",
		HostRate:             1,
		HostBurst:            2,
		RespectRobots:        true,
		SkipInvalid:          true,
		Addr:                 ":8080",
		RunInterval:          24 * time.Hour,
		Retention:            30 * 24 * time.Hour,
		LogLevel:             "info",
	}
}

// Load returns the defaults overridden by a .env file (if present) and JOBHUNT_* variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	var errs []error
	setInt(&cfg.TargetCount, "JOBHUNT_TARGET_COUNT", &errs)
	setDuration(&cfg.MaxRunDuration, "JOBHUNT_MAX_RUN_DURATION", &errs)
	setDuration(&cfg.PerFetchTimeout, "JOBHUNT_PER_FETCH_TIMEOUT", &errs)
	setInt(&cfg.Concurrency, "JOBHUNT_CONCURRENCY", &errs)
	setInt(&cfg.MaxSecondaryAttempts, "JOBHUNT_MAX_SECONDARY_ATTEMPTS", &errs)
	setString(&cfg.UserAgent, "JOBHUNT_USER_AGENT")
	setFloat(&cfg.HostRate, "JOBHUNT_HOST_RATE", &errs)
	setInt(&cfg.HostBurst, "JOBHUNT_HOST_BURST", &errs)
	setBool(&cfg.RespectRobots, "JOBHUNT_RESPECT_ROBOTS", &errs)
	setBool(&cfg.DryRun, "JOBHUNT_DRY_RUN", &errs)
	setBool(&cfg.SkipInvalid, "JOBHUNT_SKIP_INVALID", &errs)
	setString(&cfg.DomainsFile, "JOBHUNT_DOMAINS_FILE")
	setString(&cfg.SheetPath, "JOBHUNT_SHEET")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.ReportPath, "JOBHUNT_REPORT")
	setString(&cfg.ProfilePath, "JOBHUNT_PROFILE")
	setString(&cfg.Addr, "JOBHUNT_ADDR")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("JOBHUNT_ADDR") == "" {
		cfg.Addr = ":" + port
	}
	setDuration(&cfg.RunInterval, "JOBHUNT_RUN_INTERVAL", &errs)
	setDuration(&cfg.Retention, "JOBHUNT_RETENTION", &errs)
	setString(&cfg.LogLevel, "LOG_LEVEL")

	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate rejects values the crawler cannot run with. It is called before any crawling starts.
func (c Config) Validate() error {
	switch {
	case c.TargetCount <= 0:
		return &Error{Field: "TargetCount", Value: c.TargetCount, Rule: "must be > 0"}
	case c.MaxRunDuration <= 0:
		return &Error{Field: "MaxRunDuration", Value: c.MaxRunDuration, Rule: "must be > 0"}
	case c.PerFetchTimeout <= 0:
		return &Error{Field: "PerFetchTimeout", Value: c.PerFetchTimeout, Rule: "must be > 0"}
	case c.Concurrency < 1 || c.Concurrency > 64:
		return &Error{Field: "Concurrency", Value: c.Concurrency, Rule: "must be within 1..64"}
	case c.MaxSecondaryAttempts < 0:
		return &Error{Field: "MaxSecondaryAttempts", Value: c.MaxSecondaryAttempts, Rule: "must be >= 0"}
	case c.HostRate <= 0:
		return &Error{Field: "HostRate", Value: c.HostRate, Rule: "must be > 0"}
	case c.HostBurst < 1:
		return &Error{Field: "HostBurst", Value: c.HostBurst, Rule: "must be >= 1"}
	}
	return nil
}

// SlogLevel maps LogLevel onto slog, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string, errs *[]error) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func setFloat(dst *float64, key string, errs *[]error) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = f
}

func setBool(dst *bool, key string, errs *[]error) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}

func setDuration(dst *time.Duration, key string, errs *[]error) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
