package player

import (
	"github.com/wehubfusion/Fabula/internal/tracing"
)

// TracingConfig configures OpenTelemetry tracing for a session. When nil no
// tracing is set up.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	SampleRatio    float64
}

// DefaultTracingConfig returns a tracing configuration with development
// defaults.
func DefaultTracingConfig(serviceName string) *TracingConfig {
	cfg := tracing.DefaultConfig(serviceName)
	return &TracingConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRatio:    cfg.SampleRatio,
	}
}

func (c *TracingConfig) internal() tracing.Config {
	return tracing.Config{
		ServiceName:    c.ServiceName,
		ServiceVersion: c.ServiceVersion,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTLPEndpoint,
		SampleRatio:    c.SampleRatio,
	}
}
