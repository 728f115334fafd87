// Package observe provides OpenTelemetry metrics for practice sessions and
// the Prometheus bridge that exposes them.
package observe

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const meterName = "github.com/verte-zerg/sayit"

// Metrics holds the instruments recorded by the session engine and server.
// All fields are safe for concurrent use.
type Metrics struct {
	// SessionsFinished counts sessions by terminal status
	// (attribute "status": complete, error, abandoned).
	SessionsFinished metric.Int64Counter

	// ActiveSessions tracks sessions currently holding a capture device.
	ActiveSessions metric.Int64UpDownCounter

	// Attempts counts listening attempts by outcome
	// (attribute "outcome": correct, incorrect, timeout).
	Attempts metric.Int64Counter

	// Prompts counts prompts by terminal outcome (cleared, failed).
	Prompts metric.Int64Counter

	// RecognitionLatency is the time from listening start to a recognized
	// utterance.
	RecognitionLatency metric.Float64Histogram

	// Similarity records the score of every recognized utterance.
	Similarity metric.Float64Histogram
}

var latencyBuckets = []float64{0.25, 0.5, 1, 1.5, 2, 3, 4, 5}

var similarityBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

// NewMetrics creates the instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionsFinished, err = m.Int64Counter("sayit.sessions.finished",
		metric.WithDescription("Practice sessions by terminal status."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("sayit.sessions.active",
		metric.WithDescription("Practice sessions currently capturing audio."),
	); err != nil {
		return nil, err
	}
	if met.Attempts, err = m.Int64Counter("sayit.attempts",
		metric.WithDescription("Listening attempts by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Prompts, err = m.Int64Counter("sayit.prompts",
		metric.WithDescription("Prompts by terminal outcome."),
	); err != nil {
		return nil, err
	}
	if met.RecognitionLatency, err = m.Float64Histogram("sayit.recognition.latency",
		metric.WithDescription("Time from listening start to a recognized utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Similarity, err = m.Float64Histogram("sayit.similarity",
		metric.WithDescription("Similarity of recognized utterances to their prompt."),
		metric.WithExplicitBucketBoundaries(similarityBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// Discard returns instruments backed by a no-op provider.
func Discard() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop metrics: " + err.Error())
	}
	return m
}

// Provider bundles a Prometheus-backed meter provider with its scrape
// handler.
type Provider struct {
	MeterProvider *sdkmetric.MeterProvider
	Handler       http.Handler
}

// NewPrometheusProvider builds a meter provider that exports to the default
// Prometheus registry.
func NewPrometheusProvider(serviceVersion string) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName("sayit"),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}
	exp, err := promexporter.New()
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exp),
	)
	return &Provider{MeterProvider: mp, Handler: promhttp.Handler()}, nil
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.MeterProvider.Shutdown(ctx)
}
