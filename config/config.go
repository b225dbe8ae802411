// Package config loads birdkit configuration from a YAML file, an optional
// .env file, the environment and command-line flags, in increasing order of
// precedence.
//
// # Usage
//
//	cfg, err := config.Load("birdctl", config.WithConfigFile(path))
//
// Environment variables map onto nested keys by splitting on underscores, so
// HTTP_TIMEOUT sets http.timeout and CREDENTIALS_CONSUMER_KEY sets
// credentials.consumer_key. A BIRDKIT_ prefix is accepted and stripped.
package config

import (
	"github.com/kbukum/birdkit/callback"
	"github.com/kbukum/birdkit/errors"
	"github.com/kbukum/birdkit/httpclient"
	"github.com/kbukum/birdkit/logger"
	"github.com/kbukum/birdkit/observability"
	"github.com/kbukum/birdkit/validation"
)

// Config is the complete client configuration.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging     logger.Config        `yaml:"logging" mapstructure:"logging"`
	HTTP        httpclient.Config    `yaml:"http" mapstructure:"http"`
	Credentials Credentials          `yaml:"credentials" mapstructure:"credentials"`
	Callback    callback.Config      `yaml:"callback" mapstructure:"callback"`
	Telemetry   observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// Credentials are the application and, optionally, the pre-authorized user
// or bearer credentials.
type Credentials struct {
	ConsumerKey       string `yaml:"consumer_key" mapstructure:"consumer_key"`
	ConsumerSecret    string `yaml:"consumer_secret" mapstructure:"consumer_secret" validate:"required_with=ConsumerKey"`
	AccessToken       string `yaml:"access_token" mapstructure:"access_token"`
	AccessTokenSecret string `yaml:"access_token_secret" mapstructure:"access_token_secret" validate:"required_with=AccessToken"`
	BearerToken       string `yaml:"bearer_token" mapstructure:"bearer_token"`
}

// ApplyDefaults fills in zero-value fields across all sections.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
	c.HTTP.ApplyDefaults()
	c.Callback.ApplyDefaults()
	if c.Telemetry.ServiceVersion == "" {
		c.Telemetry.ServiceVersion = c.Version
	}
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = c.Environment
	}
	c.Telemetry.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return errors.InvalidConfig(err.Error())
	}
	return nil
}
