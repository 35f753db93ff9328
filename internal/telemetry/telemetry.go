// Package telemetry wires the metric instruments both daemons report.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/lanternhq/lantern"

// Instruments the service records. Initialized by Init; before that they are
// no-op instruments from the global provider, so call sites never nil-check.
var (
	SearchesTotal    metric.Int64Counter
	DocumentsIndexed metric.Int64Counter
	SchemasCreated   metric.Int64Counter
	SearchLatency    metric.Float64Histogram
)

func init() {
	registerInstruments(otel.Meter(meterName))
}

func registerInstruments(m metric.Meter) {
	SearchesTotal, _ = m.Int64Counter("lantern.searches.total",
		metric.WithDescription("Search requests served"))
	DocumentsIndexed, _ = m.Int64Counter("lantern.documents.indexed",
		metric.WithDescription("Documents accepted on the write path"))
	SchemasCreated, _ = m.Int64Counter("lantern.schemas.created",
		metric.WithDescription("Schemas created at runtime"))
	SearchLatency, _ = m.Float64Histogram("lantern.search.latency",
		metric.WithDescription("Search latency in seconds"),
		metric.WithUnit("s"))
}

// Init installs a periodic stdout metric pipeline and rebinds the
// instruments to it. The returned shutdown flushes on exit.
func Init(ctx context.Context) (func(context.Context) error, error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(time.Minute))),
	)
	otel.SetMeterProvider(provider)
	registerInstruments(otel.Meter(meterName))

	return provider.Shutdown, nil
}
