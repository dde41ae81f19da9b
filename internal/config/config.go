package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the stake fetcher application.
type Config struct {
	// Blockfrost API access
	BlockfrostProjectID string `mapstructure:"blockfrost_project_id"`
	BlockfrostBaseURL   string `mapstructure:"blockfrost_base_url"`

	// Upstream request policy
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`

	// Background worker pool size
	Workers int `mapstructure:"workers"`

	// Startup connectivity check
	ConnectivityAddress   string        `mapstructure:"connectivity_address"`
	ConnectivityTimeout   time.Duration `mapstructure:"connectivity_timeout"`
	SkipConnectivityCheck bool          `mapstructure:"skip_connectivity_check"`

	// Prometheus listen address, empty to disable
	MetricsAddr string `mapstructure:"metrics_addr"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Key, when set, runs a single fetch for this stake key and exits
	Key string `mapstructure:"key"`
}

// Flags returns the command-line flags understood by Load.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("stakefetcher", pflag.ContinueOnError)
	fs.String("key", "", "fetch staking information for this stake key once and exit")
	fs.String("blockfrost-base-url", "", "Blockfrost API base URL")
	fs.Duration("request-timeout", 0, "timeout of a single API request")
	fs.Int("workers", 0, "number of background fetch workers")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	fs.String("log-level", "", "log level (trace, debug, info, warn, error)")
	fs.Bool("skip-connectivity-check", false, "do not check network reachability at startup")
	return fs
}

// Load reads configuration from flags, environment variables and an
// optional config file. Flags take precedence over environment variables,
// which take precedence over config file values.
//
// Expected environment variables:
//   - BLOCKFROST_PROJECT_ID
//   - BLOCKFROST_BASE_URL (optional, defaults to mainnet)
//   - STAKEFETCHER_* for every other key (e.g. STAKEFETCHER_WORKERS)
//
// fs may be nil; it must have been parsed already.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("stakefetcher")
	v.AutomaticEnv()

	v.SetDefault("blockfrost_base_url", "https://cardano-mainnet.blockfrost.io/api/v0")
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("rate_limit_rps", 10)
	v.SetDefault("rate_limit_burst", 10)
	v.SetDefault("workers", 2)
	v.SetDefault("connectivity_address", "cardano-mainnet.blockfrost.io:443")
	v.SetDefault("connectivity_timeout", 5*time.Second)
	v.SetDefault("skip_connectivity_check", false)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("key", "")

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.stakefetcher")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The upstream credential keeps its conventional name
	v.BindEnv("blockfrost_project_id", "BLOCKFROST_PROJECT_ID")
	v.BindEnv("blockfrost_base_url", "BLOCKFROST_BASE_URL")

	if fs != nil {
		if err := bindFlags(v, fs); err != nil {
			return nil, err
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// bindFlags binds every flag that was set on the command line; dashes map to
// underscores.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || !f.Changed {
			return
		}
		err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	if err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	var problems []string
	if c.BlockfrostProjectID == "" {
		problems = append(problems, "BLOCKFROST_PROJECT_ID is required")
	}
	if c.BlockfrostBaseURL == "" {
		problems = append(problems, "blockfrost_base_url must not be empty")
	}
	if c.Workers < 1 {
		problems = append(problems, "workers must be at least 1")
	}
	if c.RequestTimeout < 0 {
		problems = append(problems, "request_timeout must not be negative")
	}
	if c.RateLimitRPS < 0 {
		problems = append(problems, "rate_limit_rps must not be negative")
	}
	if !c.SkipConnectivityCheck && c.ConnectivityAddress == "" {
		problems = append(problems, "connectivity_address must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}
