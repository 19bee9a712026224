// Package config loads the site configuration from a YAML file, applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/finreveal/site/internal/build"
	"github.com/finreveal/site/internal/contact"
	"github.com/finreveal/site/internal/delivery"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvServiceID  = "FINREVEAL_EMAILJS_SERVICE_ID"
	EnvTemplateID = "FINREVEAL_EMAILJS_TEMPLATE_ID"
	EnvPublicKey  = "FINREVEAL_EMAILJS_PUBLIC_KEY"
	EnvPrivateKey = "FINREVEAL_EMAILJS_PRIVATE_KEY"
	EnvAddr       = "FINREVEAL_ADDR"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full site configuration.
type Config struct {
	EmailJS EmailJS         `yaml:"emailjs"`
	Routing contact.Routing `yaml:"routing"`
	Web     Web             `yaml:"web"`
	Breaker Breaker         `yaml:"breaker"`
	Log     Log             `yaml:"log"`
}

// EmailJS holds the delivery account. The keys usually come from the
// environment rather than the file.
type EmailJS struct {
	ServiceID  string        `yaml:"service_id"`
	TemplateID string        `yaml:"template_id"`
	PublicKey  string        `yaml:"public_key"`
	PrivateKey string        `yaml:"private_key"`
	Endpoint   string        `yaml:"endpoint"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Web configures the HTTP server.
type Web struct {
	Addr string `yaml:"addr"`

	// SessionTTL is how long an idle visitor keeps its form.
	SessionTTL time.Duration `yaml:"session_ttl"`

	// MaxSessions caps the live visitor sessions. A new visitor beyond
	// the cap evicts the least recently seen one.
	MaxSessions int `yaml:"max_sessions"`

	// SubmitWait bounds how long a plain form post waits for delivery
	// before redirecting with the form still pending.
	SubmitWait time.Duration `yaml:"submit_wait"`

	// SubmitRate is the sustained submits per second allowed per client
	// address, with SubmitBurst on top.
	SubmitRate  float64 `yaml:"submit_rate"`
	SubmitBurst int     `yaml:"submit_burst"`
}

// Breaker configures the circuit breaker in front of EmailJS.
type Breaker struct {
	Enabled                bool          `yaml:"enabled"`
	MaxConsecutiveFailures uint32        `yaml:"max_consecutive_failures"`
	OpenTimeout            time.Duration `yaml:"open_timeout"`
	HalfOpenRequests       uint32        `yaml:"half_open_requests"`
}

// Log configures logging. An empty Dir disables the log file.
type Log struct {
	Level       string `yaml:"level"`
	Dir         string `yaml:"dir"`
	MaxFiles    int    `yaml:"max_files"`
	MaxFileSize int    `yaml:"max_file_size_mb"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	breaker := delivery.DefaultBreakerConfig()

	return &Config{
		EmailJS: EmailJS{
			Endpoint: delivery.DefaultEndpoint,
			Timeout:  delivery.DefaultTimeout,
		},
		Routing: contact.DefaultRouting(),
		Web: Web{
			Addr:        ":8080",
			SessionTTL:  30 * time.Minute,
			MaxSessions: 10000,
			SubmitWait:  20 * time.Second,
			SubmitRate:  0.2,
			SubmitBurst: 3,
		},
		Breaker: Breaker{
			Enabled:                true,
			MaxConsecutiveFailures: breaker.MaxConsecutiveFailures,
			OpenTimeout:            breaker.OpenTimeout,
			HalfOpenRequests:       breaker.HalfOpenRequests,
		},
		Log: Log{
			Level:       "info",
			MaxFiles:    build.DefaultMaxLogFiles,
			MaxFileSize: build.DefaultMaxLogFileSize,
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)

	return cfg, nil
}

// ApplyEnv overrides fields with the non-empty variables returned by
// getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	override(&c.EmailJS.ServiceID, EnvServiceID)
	override(&c.EmailJS.TemplateID, EnvTemplateID)
	override(&c.EmailJS.PublicKey, EnvPublicKey)
	override(&c.EmailJS.PrivateKey, EnvPrivateKey)
	override(&c.Web.Addr, EnvAddr)
}

// Validate checks the settings every command needs. Delivery credentials
// are checked separately by DeliveryCredentials because validate and
// version run without them.
func (c *Config) Validate() error {
	var errs []error

	if _, err := build.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Web.Addr == "" {
		errs = append(errs, errors.New("web.addr must be set"))
	}
	if c.Web.SessionTTL <= 0 {
		errs = append(errs, errors.New("web.session_ttl must be positive"))
	}
	if c.Web.MaxSessions <= 0 {
		errs = append(errs, errors.New("web.max_sessions must be positive"))
	}
	if c.Web.SubmitWait <= 0 {
		errs = append(errs, errors.New("web.submit_wait must be positive"))
	}
	if c.Web.SubmitRate <= 0 || c.Web.SubmitBurst < 1 {
		errs = append(errs, errors.New(
			"web.submit_rate and web.submit_burst must be positive",
		))
	}
	if c.EmailJS.Timeout < 0 {
		errs = append(errs, errors.New("emailjs.timeout must not be negative"))
	}
	if c.Routing.ToName == "" || c.Routing.Subject == "" {
		errs = append(errs, errors.New(
			"routing.to_name and routing.subject must be set",
		))
	}
	if c.Breaker.Enabled && c.Breaker.OpenTimeout <= 0 {
		errs = append(errs, errors.New(
			"breaker.open_timeout must be positive",
		))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

// DeliveryCredentials returns the EmailJS credentials, or an error naming
// the missing ones.
func (c *Config) DeliveryCredentials() (delivery.Credentials, error) {
	creds := delivery.Credentials{
		ServiceID:  c.EmailJS.ServiceID,
		TemplateID: c.EmailJS.TemplateID,
		PublicKey:  c.EmailJS.PublicKey,
		PrivateKey: c.EmailJS.PrivateKey,
	}
	if err := creds.Validate(); err != nil {
		return delivery.Credentials{}, err
	}

	return creds, nil
}

// BreakerConfig converts the breaker section for the delivery package.
func (c *Config) BreakerConfig() *delivery.BreakerConfig {
	return &delivery.BreakerConfig{
		MaxConsecutiveFailures: c.Breaker.MaxConsecutiveFailures,
		OpenTimeout:            c.Breaker.OpenTimeout,
		HalfOpenRequests:       c.Breaker.HalfOpenRequests,
	}
}

// LogConfig converts the log section for the build package. Console output
// is left for the caller to set.
func (c *Config) LogConfig() *build.LogConfig {
	cfg := &build.LogConfig{Level: c.Log.Level}
	if c.Log.Dir != "" {
		cfg.File = &build.LogRotatorConfig{
			LogDir:         c.Log.Dir,
			MaxLogFiles:    c.Log.MaxFiles,
			MaxLogFileSize: c.Log.MaxFileSize,
			Filename:       build.DefaultLogFilename,
		}
	}

	return cfg
}

// DeliveryClient builds the EmailJS client with the configured decorators.
// Metrics are skipped when m is nil.
func (c *Config) DeliveryClient(m *delivery.Metrics) (delivery.Client,
	error) {

	creds, err := c.DeliveryCredentials()
	if err != nil {
		return nil, err
	}

	emailjs, err := delivery.NewEmailJSClient(&delivery.EmailJSConfig{
		Endpoint:    c.EmailJS.Endpoint,
		Credentials: creds,
		Timeout:     c.EmailJS.Timeout,
	})
	if err != nil {
		return nil, err
	}

	var client delivery.Client = delivery.NewLoggingClient(emailjs)
	if c.Breaker.Enabled {
		client = delivery.NewBreakerClient(client, c.BreakerConfig())
	}
	if m != nil {
		client = delivery.NewInstrumentedClient(client, m)
	}

	return client, nil
}
