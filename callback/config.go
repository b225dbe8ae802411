package callback

import "github.com/kbukum/birdkit/validation"

// Config configures the loopback callback listener.
type Config struct {
	// Host is the interface to bind. Defaults to 127.0.0.1.
	Host string `yaml:"host" mapstructure:"host" validate:"required"`
	// Port is the TCP port. 0 picks a free port at Start.
	Port int `yaml:"port" mapstructure:"port" validate:"min=0,max=65535"`
	// Path is the callback route. Defaults to /callback.
	Path string `yaml:"path" mapstructure:"path" validate:"required,startswith=/"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Path == "" {
		c.Path = "/callback"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
