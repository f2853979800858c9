package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Mode selects how far a run goes.
type Mode string

const (
	// ModeResolve stops after dependency resolution and materialization.
	ModeResolve Mode = "resolve"
	// ModePlan also validates the build-step graph and reports the plan.
	ModePlan Mode = "plan"
	// ModeBuild executes the plan.
	ModeBuild Mode = "build"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	WorkspacePath string // hcl files
	Mode          Mode
	DevMode       bool

	LogFormat string
	LogLevel  string
	// WorkerCount bounds concurrently running steps; 0 means GOMAXPROCS.
	WorkerCount int
	// JournalDSN enables the build journal when set: a SQLite path or a
	// postgres:// URL.
	JournalDSN string
	// OutputPath receives the JSON report; the app's writer is used when
	// empty.
	OutputPath      string
	CacheSize       int
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkspacePath == "" {
		return nil, errors.New("WorkspacePath is a required configuration field and cannot be empty")
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeBuild
	}
	switch cfg.Mode {
	case ModeResolve, ModePlan, ModeBuild:
	default:
		return nil, fmt.Errorf("invalid mode %q: must be 'resolve', 'plan' or 'build'", cfg.Mode)
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("invalid worker count %d: must not be negative", cfg.WorkerCount)
	}
	if cfg.HealthcheckPort < 0 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}

// Environment variables read by LoadEnv.
const (
	EnvLogLevel  = "EXTFORGE_LOG_LEVEL"
	EnvLogFormat = "EXTFORGE_LOG_FORMAT"
	EnvWorkers   = "EXTFORGE_WORKERS"
	EnvJournal   = "EXTFORGE_JOURNAL"
)

// EnvDefaults are configuration defaults taken from the environment.
type EnvDefaults struct {
	LogLevel   string
	LogFormat  string
	Workers    int
	JournalDSN string
}

// LoadEnv reads .env files into the process environment, without
// overriding variables already set, and returns the defaults found there.
// Missing files are ignored; with no arguments ./.env is tried.
func LoadEnv(files ...string) (EnvDefaults, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return EnvDefaults{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	env := EnvDefaults{
		LogLevel:   firstNonEmpty(os.Getenv(EnvLogLevel), "info"),
		LogFormat:  firstNonEmpty(os.Getenv(EnvLogFormat), "text"),
		JournalDSN: strings.TrimSpace(os.Getenv(EnvJournal)),
	}
	if raw := strings.TrimSpace(os.Getenv(EnvWorkers)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return EnvDefaults{}, fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		env.Workers = n
	}
	return env, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
