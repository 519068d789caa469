package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	RelayStreamsTotal       metric.Int64Counter
	StreamFragmentsTotal    metric.Int64Counter
	StreamDurationSeconds   metric.Float64Histogram
	ProviderErrorsTotal     metric.Int64Counter
	ChatPersistFailuresTotal metric.Int64Counter
	DBQueryDurationSeconds  metric.Float64Histogram
	DBQueryErrorsTotal      metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("tripflow")
		var err error
		m := &AppMetrics{}

		m.RelayStreamsTotal, err = meter.Int64Counter(
			"relay_streams_total",
			metric.WithDescription("Total number of itinerary streams started"),
			metric.WithUnit("{stream}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create relay_streams_total: %v", err)
		}

		m.StreamFragmentsTotal, err = meter.Int64Counter(
			"stream_fragments_total",
			metric.WithDescription("Total number of content fragments relayed to clients"),
			metric.WithUnit("{fragment}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create stream_fragments_total: %v", err)
		}

		m.StreamDurationSeconds, err = meter.Float64Histogram(
			"stream_duration_seconds",
			metric.WithDescription("Duration of itinerary streams in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create stream_duration_seconds: %v", err)
		}

		m.ProviderErrorsTotal, err = meter.Int64Counter(
			"provider_errors_total",
			metric.WithDescription("Total number of completion provider failures"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create provider_errors_total: %v", err)
		}

		m.ChatPersistFailuresTotal, err = meter.Int64Counter(
			"chat_persist_failures_total",
			metric.WithDescription("Total number of chat history writes that failed after streaming"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create chat_persist_failures_total: %v", err)
		}

		m.DBQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DBQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
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
