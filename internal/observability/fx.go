package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/smallbiznis/fatoora/internal/observability/metrics"
	"github.com/smallbiznis/fatoora/internal/observability/tracing"
)

// Module wires tracing and metrics into the fx graph.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideTracingConfig,
		tracing.NewProvider,
		provideRegistry,
		provideHTTPMetrics,
		provideComplianceMetrics,
	),
)

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func provideHTTPMetrics(reg *prometheus.Registry) *metrics.HTTPMetrics {
	return metrics.NewHTTPMetrics(reg)
}

func provideComplianceMetrics(reg *prometheus.Registry) *metrics.ComplianceMetrics {
	return metrics.NewComplianceMetrics(reg)
}
