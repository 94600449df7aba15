// Package config loads pricing, fixing-store and logging settings.
//
// Values come from DefaultConfig, then an optional YAML file, then FRALIB_* environment
// variables (FRALIB_PRICING_CONCURRENCY overrides pricing.concurrency).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/meenmo/fralib/calendar"
	"github.com/meenmo/fralib/utils"
)

const envPrefix = "FRALIB"

type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Pricing PricingConfig `mapstructure:"pricing" yaml:"pricing"`
	Fixings FixingsConfig `mapstructure:"fixings" yaml:"fixings"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

type PricingConfig struct {
	// EvaluationDate pins "today" (YYYY-MM-DD). Empty means the curve reference date.
	EvaluationDate string `mapstructure:"evaluation_date" yaml:"evaluation_date"`
	// IncludeReferenceDateEvents keeps trades valued on the evaluation date alive.
	IncludeReferenceDateEvents bool   `mapstructure:"include_reference_date_events" yaml:"include_reference_date_events"`
	Calendar                   string `mapstructure:"calendar"                      yaml:"calendar"`
	// Concurrency caps the number of trades priced at once.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// AmountDecimals is the number of decimals kept in reported money amounts.
	AmountDecimals int32 `mapstructure:"amount_decimals" yaml:"amount_decimals"`
}

type FixingsConfig struct {
	Driver       string        `mapstructure:"driver"        yaml:"driver"` // "", "postgres" or "sqlite"
	DSN          string        `mapstructure:"dsn"           yaml:"dsn"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"     yaml:"cache_ttl"`
	QueryTimeout time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	Logging: LoggingConfig{
		Level:  "info",
		Format: "text",
	},
	Pricing: PricingConfig{
		Calendar:       string(calendar.TARGET),
		Concurrency:    4,
		AmountDecimals: 2,
	},
	Fixings: FixingsConfig{
		CacheTTL:     5 * time.Minute,
		QueryTimeout: 5 * time.Second,
	},
}

// Load reads path, or searches ./fralib.yaml, ~/.fralib/fralib.yaml and
// /etc/fralib/fralib.yaml when path is empty. A missing file in the search path is not
// an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fralib")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(homeDir(), ".fralib"))
		v.AddConfigPath("/etc/fralib")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("Load: reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("Load: decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("pricing.evaluation_date", d.Pricing.EvaluationDate)
	v.SetDefault("pricing.include_reference_date_events", d.Pricing.IncludeReferenceDateEvents)
	v.SetDefault("pricing.calendar", d.Pricing.Calendar)
	v.SetDefault("pricing.concurrency", d.Pricing.Concurrency)
	v.SetDefault("pricing.amount_decimals", d.Pricing.AmountDecimals)

	v.SetDefault("fixings.driver", d.Fixings.Driver)
	v.SetDefault("fixings.dsn", d.Fixings.DSN)
	v.SetDefault("fixings.cache_ttl", d.Fixings.CacheTTL)
	v.SetDefault("fixings.query_timeout", d.Fixings.QueryTimeout)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var result *multierror.Error
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		result = multierror.Append(result, fmt.Errorf("logging.level: %w", err))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.format: %q is not text or json", c.Logging.Format))
	}
	if c.Pricing.EvaluationDate != "" {
		if _, err := utils.ParseDate(c.Pricing.EvaluationDate); err != nil {
			result = multierror.Append(result, fmt.Errorf("pricing.evaluation_date: %w", err))
		}
	}
	if c.Pricing.Concurrency < 1 {
		result = multierror.Append(result, fmt.Errorf("pricing.concurrency must be >= 1, got %d", c.Pricing.Concurrency))
	}
	if c.Pricing.AmountDecimals < 0 {
		result = multierror.Append(result, fmt.Errorf("pricing.amount_decimals must be >= 0, got %d", c.Pricing.AmountDecimals))
	}
	switch c.Fixings.Driver {
	case "":
	case "postgres", "sqlite":
		if c.Fixings.DSN == "" {
			result = multierror.Append(result, fmt.Errorf("fixings.dsn is required for driver %q", c.Fixings.Driver))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("fixings.driver: unsupported %q", c.Fixings.Driver))
	}
	if c.Fixings.QueryTimeout < 0 || c.Fixings.CacheTTL < 0 {
		result = multierror.Append(result, fmt.Errorf("fixings: durations must not be negative"))
	}
	return result.ErrorOrNil()
}

// NewLogger builds a logger from the logging section.
func NewLogger(c LoggingConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("NewLogger: %w", err)
	}
	logger := logrus.New()
	logger.SetLevel(level)
	if strings.EqualFold(c.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
