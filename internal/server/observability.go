package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/FACorreiaa/go-lookup/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-lookup/internal/app/observability/tracer"
)

// ObservabilityShutdownFunc flushes exporters and stops the metrics listener.
type ObservabilityShutdownFunc func(context.Context) error

// InitObservability stands up tracing, the meter provider and the app's
// counter instruments. Must run before any request handling: the instruments
// are resolved through the global meter provider set here.
func InitObservability(serviceName, metricsEndpoint string, logger *zap.Logger) (ObservabilityShutdownFunc, error) {
	otelShutdown, err := tracer.InitOtelProviders(serviceName, metricsEndpoint)
	if err != nil {
		return nil, fmt.Errorf("otel providers: %w", err)
	}

	metrics.InitAppMetrics()
	logger.Info("Observability ready", zap.String("metrics_endpoint", metricsEndpoint+"/metrics"))

	return otelShutdown, nil
}
