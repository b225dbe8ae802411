package httpclient

import (
	"time"

	"github.com/kbukum/birdkit/validation"
	"github.com/kbukum/birdkit/version"
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultAPIURL    = "https://api.twitter.com/1.1/"
	DefaultUploadURL = "https://upload.twitter.com/1.1/"
	DefaultStreamURL = "https://stream.twitter.com/1.1/"
	defaultChunkSize = 32 * 1024
)

// Config configures the HTTP client.
type Config struct {
	// APIURL is the base for REST and OAuth endpoints.
	APIURL string `yaml:"api_url" mapstructure:"api_url" validate:"required,httpurl"`
	// UploadURL is the base for media uploads.
	UploadURL string `yaml:"upload_url" mapstructure:"upload_url" validate:"required,httpurl"`
	// StreamURL is the base for streaming endpoints.
	StreamURL string `yaml:"stream_url" mapstructure:"stream_url" validate:"required,httpurl"`

	// Timeout is the default idle timeout per request. Defaults to 60s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"min=0"`

	// UserAgent is sent with every request.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// RateLimit caps outgoing requests per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"min=0"`
	// RateBurst is the limiter bucket size. Defaults to 1 when limiting.
	RateBurst int `yaml:"rate_burst" mapstructure:"rate_burst" validate:"min=0"`

	// ForceHTTP2 configures the transport for HTTP/2 even with a custom TLS config.
	ForceHTTP2 bool `yaml:"force_http2" mapstructure:"force_http2"`

	// ChunkSize is the read buffer size for response bodies.
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size" validate:"min=0"`

	// TLS configures TLS settings for the HTTP transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.UploadURL == "" {
		c.UploadURL = DefaultUploadURL
	}
	if c.StreamURL == "" {
		c.StreamURL = DefaultStreamURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent("birdkit")
	}
	if c.RateLimit > 0 && c.RateBurst == 0 {
		c.RateBurst = 1
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
