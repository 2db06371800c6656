package config

import (
	"fmt"
	"time"

	"github.com/kbukum/hollowfoot/observability"
	"github.com/kbukum/hollowfoot/validation"
)

// Config is the top-level hollowfoot configuration.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Engine        Engine  `yaml:"engine" mapstructure:"engine"`
	Tracing       Tracing `yaml:"tracing" mapstructure:"tracing"`
	Metrics       Metrics `yaml:"metrics" mapstructure:"metrics"`
}

// Engine configures pipeline evaluation.
type Engine struct {
	// Eager evaluates every step as soon as it is appended.
	Eager bool `yaml:"eager" mapstructure:"eager"`
	// FreezeRegistry makes the default registry read-only after startup registration.
	FreezeRegistry bool `yaml:"freeze_registry" mapstructure:"freeze_registry"`
	// RecipeDirs are searched, in order, for recipe includes.
	RecipeDirs []string `yaml:"recipe_dirs" mapstructure:"recipe_dirs" validate:"unique"`
}

// Tracing configures the OTLP trace exporter.
type Tracing struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// Metrics configures the OTLP metric exporter.
type Metrics struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if len(c.Engine.RecipeDirs) == 0 {
		c.Engine.RecipeDirs = []string{"."}
	}
	if c.Tracing.Enabled {
		if c.Tracing.Endpoint == "" {
			c.Tracing.Endpoint = "localhost:4318"
		}
		if c.Tracing.SampleRate == 0 {
			c.Tracing.SampleRate = 1.0
		}
	}
	if c.Metrics.Enabled {
		if c.Metrics.Endpoint == "" {
			c.Metrics.Endpoint = "localhost:4318"
		}
		if c.Metrics.Interval == 0 {
			c.Metrics.Interval = 15 * time.Second
		}
	}
}

// Validate checks the service fields and the struct tags of every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// TracerConfig converts the tracing section for observability.InitTracer.
func (c *Config) TracerConfig() observability.TracerConfig {
	return observability.TracerConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.Tracing.Endpoint,
		Insecure:       c.Tracing.Insecure,
		SampleRate:     c.Tracing.SampleRate,
	}
}

// MeterConfig converts the metrics section for observability.InitMeter.
func (c *Config) MeterConfig() observability.MeterConfig {
	return observability.MeterConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.Metrics.Endpoint,
		Insecure:       c.Metrics.Insecure,
		Interval:       c.Metrics.Interval,
	}
}
