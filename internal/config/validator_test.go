package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*Config)
		wantPath string
		wantMsg  string
	}{
		{
			name:     "missing address",
			mutate:   func(c *Config) { c.Server.Address = "" },
			wantPath: "server.address",
			wantMsg:  "is required",
		},
		{
			name:     "invalid log level",
			mutate:   func(c *Config) { c.Logging.Level = "trace" },
			wantPath: "logging.level",
			wantMsg:  "must be one of",
		},
		{
			name:     "tracing without endpoint",
			mutate:   func(c *Config) { c.Tracing.Enabled = true },
			wantPath: "tracing.otlpEndpoint",
			wantMsg:  "is required",
		},
		{
			name:     "sampling rate out of range",
			mutate:   func(c *Config) { c.Tracing.SamplingRate = 1.5 },
			wantPath: "tracing.samplingRate",
			wantMsg:  "must be at most 1",
		},
		{
			name: "unknown format kind",
			mutate: func(c *Config) {
				c.Formats = []FormatConfig{{Name: "json", Kind: "toml"}}
			},
			wantPath: "formats[0].kind",
			wantMsg:  "must be one of",
		},
		{
			name: "format name with slash",
			mutate: func(c *Config) {
				c.Formats = []FormatConfig{{Name: "json", Kind: "json"}, {Name: "a/b", Kind: "json"}}
			},
			wantPath: "formats[1].name",
			wantMsg:  "must not contain",
		},
		{
			name: "duplicate format",
			mutate: func(c *Config) {
				c.Formats = []FormatConfig{{Name: "json", Kind: "json"}, {Name: "json", Kind: "xml"}}
			},
			wantPath: "formats[1].name",
			wantMsg:  "duplicate format",
		},
		{
			name:     "default format not built in",
			mutate:   func(c *Config) { c.Server.DefaultFormat = "csv" },
			wantPath: "server.defaultFormat",
			wantMsg:  `format "csv" is not configured`,
		},
		{
			name: "default format not configured",
			mutate: func(c *Config) {
				c.Formats = []FormatConfig{{Name: "xml", Kind: "xml"}}
			},
			wantPath: "server.defaultFormat",
			wantMsg:  "available: xml",
		},
		{
			name: "transformer without resource",
			mutate: func(c *Config) {
				c.Transformers = []TransformerConfig{{Deny: []string{"a"}}}
			},
			wantPath: "transformers[0].resource",
			wantMsg:  "is required",
		},
		{
			name: "duplicate transformer",
			mutate: func(c *Config) {
				c.Transformers = []TransformerConfig{{Resource: "user"}, {Resource: "user"}}
			},
			wantPath: "transformers[1].resource",
			wantMsg:  "duplicate transformer",
		},
		{
			name: "invalid filter",
			mutate: func(c *Config) {
				c.Transformers = []TransformerConfig{{Resource: "user", Filter: "item.("}}
			},
			wantPath: "transformers[0]",
		},
		{
			name: "empty rename target",
			mutate: func(c *Config) {
				c.Transformers = []TransformerConfig{{Resource: "user", Rename: map[string]string{"a": ""}}}
			},
			wantPath: "transformers[0].rename[a]",
			wantMsg:  "is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))

			var found bool
			for _, ve := range verrs {
				if ve.Path == tt.wantPath {
					found = true
					assert.Contains(t, ve.Message, tt.wantMsg)
				}
			}
			assert.True(t, found, "no error at %s in %v", tt.wantPath, verrs)
		})
	}
}

func TestValidateConfig_Nil(t *testing.T) {
	t.Parallel()

	err := ValidateConfig(nil)
	require.Error(t, err)
	assert.Equal(t, "configuration is nil", err.Error())
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
	assert.Equal(t, "a: b", ValidationErrors{{Path: "a", Message: "b"}}.Error())
	assert.Equal(t, "msg", (&ValidationError{Message: "msg"}).Error())

	multi := ValidationErrors{{Path: "a", Message: "b"}, {Path: "c", Message: "d"}}
	assert.Equal(t, "2 validation errors:\n  1. a: b\n  2. c: d\n", multi.Error())
	assert.True(t, multi.HasErrors())
}
