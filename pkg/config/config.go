// Package config loads run settings from .env, config.yaml and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is shared by the CLI and the server
type Config struct {
	ProjectRoot string `yaml:"project_root"`

	FuzzyThreshold     int    `yaml:"fuzzy_threshold"`
	AutoGuessThreshold int    `yaml:"auto_guess_threshold"`
	IncludeBackups     bool   `yaml:"include_backups"`
	ElectionDate       string `yaml:"election_date"`
	XLSXExport         bool   `yaml:"xlsx_export"`
	ReportFormat       string `yaml:"report_format"`

	Port            string `yaml:"port"`
	ProcessSchedule string `yaml:"process_schedule"`
	WatchAliases    bool   `yaml:"watch_aliases"`

	LogFile   string `yaml:"log_file"`
	LogFormat string `yaml:"log_format"`
	Verbose   bool   `yaml:"verbose"`
}

// Default returns the settings used when nothing else is configured
func Default() Config {
	return Config{
		ProjectRoot:        ".",
		FuzzyThreshold:     85,
		AutoGuessThreshold: 5,
		IncludeBackups:     true,
		ElectionDate:       "TBD",
		ReportFormat:       "csv",
		Port:               "8000",
		WatchAliases:       true,
		LogFormat:          "json",
	}
}

// LoadDotEnv loads the first .env found in the working directory or its
// parents. A missing file is not an error.
func LoadDotEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Load reads path (or CONFIG_PATH, or config.yaml) over the defaults, then
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = "config.yaml"
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			path = envPath
		}
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	overrides := []error{
		envOverride(&cfg.ProjectRoot, "PROJECT_ROOT"),
		envOverrideInt(&cfg.FuzzyThreshold, "FUZZY_THRESHOLD"),
		envOverrideInt(&cfg.AutoGuessThreshold, "AUTO_GUESS_THRESHOLD"),
		envOverride(&cfg.ElectionDate, "ELECTION_DATE"),
		envOverrideBool(&cfg.XLSXExport, "XLSX_EXPORT"),
		envOverride(&cfg.ReportFormat, "REPORT_FORMAT"),
		envOverride(&cfg.Port, "PORT"),
		envOverride(&cfg.ProcessSchedule, "PROCESS_SCHEDULE"),
		envOverrideBool(&cfg.WatchAliases, "WATCH_ALIASES"),
		envOverride(&cfg.LogFile, "LOG_FILE"),
		envOverride(&cfg.LogFormat, "LOG_FORMAT"),
		envOverrideBool(&cfg.Verbose, "VERBOSE"),
	}
	var noBackups bool
	overrides = append(overrides, envOverrideBool(&noBackups, "NO_BACKUPS"))
	if err := errors.Join(overrides...); err != nil {
		return cfg, err
	}
	if noBackups {
		cfg.IncludeBackups = false
	}

	return cfg, cfg.Validate()
}

// Validate checks ranges and enumerations
func (c Config) Validate() error {
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100 {
		return fmt.Errorf("invalid fuzzy_threshold '%d': must be between 0 and 100", c.FuzzyThreshold)
	}
	if c.AutoGuessThreshold < 0 {
		return fmt.Errorf("invalid auto_guess_threshold '%d': must be >= 0", c.AutoGuessThreshold)
	}
	switch c.ReportFormat {
	case "csv", "markdown":
	default:
		return fmt.Errorf("report_format must be 'csv' or 'markdown', got '%s'", c.ReportFormat)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be 'json' or 'console', got '%s'", c.LogFormat)
	}
	if s := strings.TrimSpace(c.ProcessSchedule); s != "" {
		if _, err := cron.ParseStandard(s); err != nil {
			return fmt.Errorf("invalid process_schedule '%s': %w", s, err)
		}
	}
	return nil
}

func envOverride(field *string, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
	return nil
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideBool(field *bool, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}
