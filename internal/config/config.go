package config

import (
	"time"

	"github.com/vyrodovalexey/apimorph/internal/observability"
	"github.com/vyrodovalexey/apimorph/internal/transform"
)

// Default values applied before a configuration file is parsed.
const (
	DefaultAddress         = ":8080"
	DefaultFormat          = "json"
	DefaultFormatParam     = "format"
	DefaultCallbackParam   = "callback"
	DefaultServiceName     = "apimorph"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config is the root configuration of the morph service.
type Config struct {
	Server       ServerConfig        `yaml:"server" json:"server" validate:"required"`
	Logging      LoggingConfig       `yaml:"logging" json:"logging"`
	Tracing      TracingConfig       `yaml:"tracing" json:"tracing"`
	Formats      []FormatConfig      `yaml:"formats,omitempty" json:"formats,omitempty" validate:"dive"`
	Transformers []TransformerConfig `yaml:"transformers,omitempty" json:"transformers,omitempty" validate:"dive"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Address string `yaml:"address" json:"address" validate:"required"`

	// DefaultFormat is used when neither the format parameter nor the
	// Accept header selects a format.
	DefaultFormat string `yaml:"defaultFormat" json:"defaultFormat" validate:"required"`

	// FormatParam is the query parameter that selects a format explicitly.
	FormatParam string `yaml:"formatParam" json:"formatParam"`

	// CallbackParam is the query parameter carrying the JSONP callback.
	CallbackParam string `yaml:"callbackParam" json:"callbackParam"`

	ReadTimeout     Duration `yaml:"readTimeout" json:"readTimeout" validate:"gte=0"`
	WriteTimeout    Duration `yaml:"writeTimeout" json:"writeTimeout" validate:"gte=0"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout" json:"shutdownTimeout" validate:"gte=0"`
}

// LoggingConfig configures the service logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=json console"`
}

// TracingConfig configures the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName" json:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" json:"otlpEndpoint" validate:"required_if=Enabled true"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate" validate:"gte=0,lte=1"`
}

// FormatConfig registers a formatter in the catalog.
type FormatConfig struct {
	// Name is the format id used for lookup and the format parameter.
	Name string `yaml:"name" json:"name" validate:"required,printascii,excludesall=/"`

	// Kind selects the built-in formatter implementation.
	Kind string `yaml:"kind" json:"kind" validate:"required,oneof=json jsonp xml yaml cbor protobuf"`

	// ContentType overrides the formatter's own content type.
	ContentType string `yaml:"contentType,omitempty" json:"contentType,omitempty"`

	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// TransformerConfig declares a transformation rule for one resource.
type TransformerConfig struct {
	Resource string            `yaml:"resource" json:"resource" validate:"required"`
	Allow    []string          `yaml:"allow,omitempty" json:"allow,omitempty" validate:"dive,required"`
	Deny     []string          `yaml:"deny,omitempty" json:"deny,omitempty" validate:"dive,required"`
	Rename   map[string]string `yaml:"rename,omitempty" json:"rename,omitempty" validate:"dive,keys,required,endkeys,required"`
	Links    map[string]string `yaml:"links,omitempty" json:"links,omitempty" validate:"dive,keys,required,endkeys,required"`
	Filter   string            `yaml:"filter,omitempty" json:"filter,omitempty"`
	Meta     map[string]any    `yaml:"meta,omitempty" json:"meta,omitempty"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         DefaultAddress,
			DefaultFormat:   DefaultFormat,
			FormatParam:     DefaultFormatParam,
			CallbackParam:   DefaultCallbackParam,
			ReadTimeout:     Duration(DefaultReadTimeout),
			WriteTimeout:    Duration(DefaultWriteTimeout),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			ServiceName:  DefaultServiceName,
			SamplingRate: 1.0,
		},
	}
}

// LogConfig converts the logging section for observability.NewLogger.
func (c *Config) LogConfig() observability.LogConfig {
	return observability.LogConfig{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: "stdout",
	}
}

// TracerConfig converts the tracing section for observability.NewTracer.
func (c *Config) TracerConfig() observability.TracerConfig {
	return observability.TracerConfig{
		ServiceName:  c.Tracing.ServiceName,
		OTLPEndpoint: c.Tracing.OTLPEndpoint,
		SamplingRate: c.Tracing.SamplingRate,
		Enabled:      c.Tracing.Enabled,
	}
}

// FormatNames returns the names of the configured formats in order.
func (c *Config) FormatNames() []string {
	names := make([]string, 0, len(c.Formats))
	for _, f := range c.Formats {
		names = append(names, f.Name)
	}
	return names
}

// RuleConfig converts the transformer declaration into a rule configuration.
func (t *TransformerConfig) RuleConfig() transform.RuleConfig {
	return transform.RuleConfig{
		Resource: t.Resource,
		Allow:    t.Allow,
		Deny:     t.Deny,
		Rename:   t.Rename,
		Links:    t.Links,
		Filter:   t.Filter,
		Meta:     t.Meta,
	}
}
