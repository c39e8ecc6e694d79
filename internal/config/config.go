// Package config provides configuration management for the cloud backtest runner.
package config

import (
	"errors"
	"fmt"
	"os"
)

// Environment variables holding the platform credentials.
const (
	EnvUserID   = "QC_USER_ID"
	EnvAPIToken = "QC_API_TOKEN"
)

// ErrMissingCredentials is returned when a credential variable is unset or empty.
var ErrMissingCredentials = errors.New("missing credentials")

// Config represents the complete application configuration
type Config struct {
	App         AppConfig     `mapstructure:"app" validate:"required"`
	Lean        LeanConfig    `mapstructure:"lean" validate:"required"`
	Reports     ReportsConfig `mapstructure:"reports" validate:"required"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Credentials Credentials   `mapstructure:"-" validate:"-"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// LeanConfig configures the external lean CLI.
type LeanConfig struct {
	Binary string `mapstructure:"binary" validate:"required"`
}

// ReportsConfig configures where run archives are written.
type ReportsConfig struct {
	Root string `mapstructure:"root" validate:"required"`
}

// MetricsConfig configures the optional Prometheus textfile export.
type MetricsConfig struct {
	File string `mapstructure:"file"`
}

// Credentials authenticate against the cloud platform. They are read from
// QC_USER_ID and QC_API_TOKEN only and must never be written to disk or
// passed as arguments.
type Credentials struct {
	UserID   string
	APIToken string
}

// CredentialsFromEnv reads the two credential variables.
func CredentialsFromEnv() Credentials {
	return Credentials{
		UserID:   os.Getenv(EnvUserID),
		APIToken: os.Getenv(EnvAPIToken),
	}
}

// Validate checks that both credentials are present.
func (c Credentials) Validate() error {
	var missing []string
	if c.UserID == "" {
		missing = append(missing, EnvUserID)
	}
	if c.APIToken == "" {
		missing = append(missing, EnvAPIToken)
	}
	switch len(missing) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%w: %s is not set", ErrMissingCredentials, missing[0])
	default:
		return fmt.Errorf("%w: %s and %s are not set", ErrMissingCredentials, missing[0], missing[1])
	}
}

// String redacts the token.
func (c Credentials) String() string {
	token := ""
	if c.APIToken != "" {
		token = "[REDACTED]"
	}
	return fmt.Sprintf("Credentials{UserID:%s APIToken:%s}", c.UserID, token)
}

// GoString keeps %#v from printing the token.
func (c Credentials) GoString() string {
	return c.String()
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
