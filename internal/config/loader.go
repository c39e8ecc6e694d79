// Package config provides configuration management for the cloud backtest runner.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every setting read from the environment.
const EnvPrefix = "CLOUD_BACKTEST"

// flagBindings maps configuration keys to the command-line flags that override them.
var flagBindings = map[string]string{
	"app.log_level": "log-level",
	"lean.binary":   "lean-bin",
	"reports.root":  "reports-dir",
	"metrics.file":  "metrics-file",
}

// Load reads configuration from defaults, an optional YAML file, the
// environment and any changed flags in that order of precedence (last wins).
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	// Set environment variable prefix
	v.SetEnvPrefix(EnvPrefix)

	// Enable automatic binding of environment variables
	v.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The bare ENVIRONMENT variable is honoured after the prefixed one
	if err := v.BindEnv("app.environment", EnvPrefix+"_APP_ENVIRONMENT", "ENVIRONMENT"); err != nil {
		return nil, fmt.Errorf("failed to bind app.environment: %w", err)
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Credentials bypass viper so no file or prefixed variable can supply them
	cfg.Credentials = CredentialsFromEnv()

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("lean.binary", "lean")
	v.SetDefault("reports.root", "reports/backtests")
	v.SetDefault("metrics.file", "")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for key, name := range flagBindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}
