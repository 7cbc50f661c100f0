package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "json", cfg.Server.DefaultFormat)
	assert.Equal(t, "format", cfg.Server.FormatParam)
	assert.Equal(t, "callback", cfg.Server.CallbackParam)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Empty(t, cfg.Formats)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestConfig_Conversions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Logging = LoggingConfig{Level: "debug", Format: "console"}
	cfg.Tracing = TracingConfig{
		Enabled:      true,
		ServiceName:  "svc",
		OTLPEndpoint: "collector:4317",
		SamplingRate: 0.5,
	}
	cfg.Formats = []FormatConfig{{Name: "json", Kind: "json"}, {Name: "pretty", Kind: "json"}}

	logCfg := cfg.LogConfig()
	assert.Equal(t, "debug", logCfg.Level)
	assert.Equal(t, "console", logCfg.Format)
	assert.Equal(t, "stdout", logCfg.Output)

	tracerCfg := cfg.TracerConfig()
	assert.True(t, tracerCfg.Enabled)
	assert.Equal(t, "svc", tracerCfg.ServiceName)
	assert.Equal(t, "collector:4317", tracerCfg.OTLPEndpoint)
	assert.InDelta(t, 0.5, tracerCfg.SamplingRate, 0.0001)

	assert.Equal(t, []string{"json", "pretty"}, cfg.FormatNames())
}

func TestTransformerConfig_RuleConfig(t *testing.T) {
	t.Parallel()

	tc := TransformerConfig{
		Resource: "user",
		Allow:    []string{"id"},
		Deny:     []string{"password"},
		Rename:   map[string]string{"id": "user_id"},
		Links:    map[string]string{"self": "/users/{id}"},
		Filter:   "item.active",
		Meta:     map[string]any{"v": 1},
	}

	rc := tc.RuleConfig()
	assert.Equal(t, "user", rc.Resource)
	assert.Equal(t, tc.Allow, rc.Allow)
	assert.Equal(t, tc.Deny, rc.Deny)
	assert.Equal(t, tc.Rename, rc.Rename)
	assert.Equal(t, tc.Links, rc.Links)
	assert.Equal(t, "item.active", rc.Filter)
	assert.Equal(t, tc.Meta, rc.Meta)
}
