package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal     metric.Int64Counter
	HTTPRequestDuration   metric.Float64Histogram
	PingsTotal            metric.Int64Counter
	CrossingsCreatedTotal metric.Int64Counter
	CrossingConflictTotal metric.Int64Counter
	GeocodeFailuresTotal  metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("lookup-api")
		var err error
		m := &AppMetrics{}

		m.HTTPRequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_requests_total: %v", err)
		}

		m.HTTPRequestDuration, err = meter.Float64Histogram(
			"http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_request_duration_seconds: %v", err)
		}

		m.PingsTotal, err = meter.Int64Counter(
			"location_pings_total",
			metric.WithDescription("Total number of location pings ingested"),
			metric.WithUnit("{ping}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create location_pings_total: %v", err)
		}

		m.CrossingsCreatedTotal, err = meter.Int64Counter(
			"crossings_created_total",
			metric.WithDescription("Total number of crossings created by the detector"),
			metric.WithUnit("{crossing}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create crossings_created_total: %v", err)
		}

		m.CrossingConflictTotal, err = meter.Int64Counter(
			"crossing_insert_conflicts_total",
			metric.WithDescription("Crossings dropped because a racing request inserted the pair first"),
			metric.WithUnit("{conflict}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create crossing_insert_conflicts_total: %v", err)
		}

		m.GeocodeFailuresTotal, err = meter.Int64Counter(
			"geocode_failures_total",
			metric.WithDescription("Reverse geocoding failures degraded to a placeholder name"),
			metric.WithUnit("{failure}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create geocode_failures_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
