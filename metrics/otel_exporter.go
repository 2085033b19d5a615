package metrics

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter provides OpenTelemetry metrics export in Prometheus format
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector
	gatherer      promclient.Gatherer

	// OTel meters and instruments
	meter            metric.Meter
	pendingGauge     metric.Int64ObservableGauge
	viewersGauge     metric.Int64ObservableGauge
	appendedCounter  metric.Int64ObservableCounter
	flushesCounter   metric.Int64ObservableCounter
	recordsCounter   metric.Int64ObservableCounter
	broadcastCounter metric.Int64ObservableCounter
	mirrorCounter    metric.Int64ObservableCounter
}

// NewOTelExporter creates a new OpenTelemetry metrics exporter. A nil
// registry means the Prometheus default registry.
func NewOTelExporter(collector Collector, registry *promclient.Registry) (*OTelExporter, error) {
	var (
		registerer promclient.Registerer = promclient.DefaultRegisterer
		gatherer   promclient.Gatherer   = promclient.DefaultGatherer
	)
	if registry != nil {
		registerer, gatherer = registry, registry
	}

	exporter, err := prometheus.New(prometheus.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(
		"webhook-tester",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		gatherer:      gatherer,
		meter:         meter,
	}

	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	oe.pendingGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.buffer.pending",
		metric.WithDescription("Number of captured webhooks waiting for the next flush"),
		metric.WithUnit("{webhooks}"),
		metric.WithInt64Callback(oe.observePending),
	)
	if err != nil {
		return fmt.Errorf("creating pending gauge: %w", err)
	}

	oe.viewersGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.viewers.connected",
		metric.WithDescription("Number of registered live viewers"),
		metric.WithUnit("{viewers}"),
		metric.WithInt64Callback(oe.observeViewers),
	)
	if err != nil {
		return fmt.Errorf("creating viewers gauge: %w", err)
	}

	oe.appendedCounter, err = oe.meter.Int64ObservableCounter(
		"webhook.captured",
		metric.WithDescription("Number of webhooks captured since start"),
		metric.WithUnit("{webhooks}"),
		metric.WithInt64Callback(oe.observeAppended),
	)
	if err != nil {
		return fmt.Errorf("creating captured counter: %w", err)
	}

	// Flushes by result
	oe.flushesCounter, err = oe.meter.Int64ObservableCounter(
		"webhook.flushes",
		metric.WithDescription("Number of batch flushes by result"),
		metric.WithUnit("{batches}"),
		metric.WithInt64Callback(oe.observeFlushes),
	)
	if err != nil {
		return fmt.Errorf("creating flushes counter: %w", err)
	}

	// Flushed records by outcome
	oe.recordsCounter, err = oe.meter.Int64ObservableCounter(
		"webhook.flushed.records",
		metric.WithDescription("Number of records handed to the batch writer by outcome"),
		metric.WithUnit("{webhooks}"),
		metric.WithInt64Callback(oe.observeRecords),
	)
	if err != nil {
		return fmt.Errorf("creating records counter: %w", err)
	}

	// Broadcast deliveries by outcome
	oe.broadcastCounter, err = oe.meter.Int64ObservableCounter(
		"webhook.broadcast.messages",
		metric.WithDescription("Number of live messages by delivery outcome"),
		metric.WithUnit("{messages}"),
		metric.WithInt64Callback(oe.observeBroadcasts),
	)
	if err != nil {
		return fmt.Errorf("creating broadcast counter: %w", err)
	}

	// Mirror writes by result
	oe.mirrorCounter, err = oe.meter.Int64ObservableCounter(
		"webhook.mirror.batches",
		metric.WithDescription("Number of batches sent to the mirror by result"),
		metric.WithUnit("{batches}"),
		metric.WithInt64Callback(oe.observeMirror),
	)
	if err != nil {
		return fmt.Errorf("creating mirror counter: %w", err)
	}

	return nil
}

func (oe *OTelExporter) observePending(ctx context.Context, observer metric.Int64Observer) error {
	buffer, err := oe.collector.GetBufferMetrics(ctx)
	if err != nil {
		return err
	}
	observer.Observe(buffer.Pending)
	return nil
}

func (oe *OTelExporter) observeViewers(ctx context.Context, observer metric.Int64Observer) error {
	live, err := oe.collector.GetLiveMetrics(ctx)
	if err != nil {
		return err
	}
	observer.Observe(live.Viewers)
	return nil
}

func (oe *OTelExporter) observeAppended(ctx context.Context, observer metric.Int64Observer) error {
	buffer, err := oe.collector.GetBufferMetrics(ctx)
	if err != nil {
		return err
	}
	observer.Observe(buffer.Appended)
	return nil
}

func (oe *OTelExporter) observeFlushes(ctx context.Context, observer metric.Int64Observer) error {
	buffer, err := oe.collector.GetBufferMetrics(ctx)
	if err != nil {
		return err
	}

	observer.Observe(buffer.FlushedBatches, metric.WithAttributes(
		attribute.String("flush.result", "ok"),
	))
	observer.Observe(buffer.FailedFlushes, metric.WithAttributes(
		attribute.String("flush.result", "failed"),
	))

	return nil
}

func (oe *OTelExporter) observeRecords(ctx context.Context, observer metric.Int64Observer) error {
	buffer, err := oe.collector.GetBufferMetrics(ctx)
	if err != nil {
		return err
	}

	observer.Observe(buffer.PersistedRecords, metric.WithAttributes(
		attribute.String("record.outcome", "persisted"),
	))
	observer.Observe(buffer.DroppedRecords, metric.WithAttributes(
		attribute.String("record.outcome", "dropped"),
	))

	return nil
}

func (oe *OTelExporter) observeBroadcasts(ctx context.Context, observer metric.Int64Observer) error {
	live, err := oe.collector.GetLiveMetrics(ctx)
	if err != nil {
		return err
	}

	observer.Observe(live.Delivered, metric.WithAttributes(
		attribute.String("delivery.outcome", "delivered"),
	))
	observer.Observe(live.Lagged, metric.WithAttributes(
		attribute.String("delivery.outcome", "lagged"),
	))
	observer.Observe(live.NoSubscribers, metric.WithAttributes(
		attribute.String("delivery.outcome", "unheard"),
	))

	return nil
}

func (oe *OTelExporter) observeMirror(ctx context.Context, observer metric.Int64Observer) error {
	buffer, err := oe.collector.GetBufferMetrics(ctx)
	if err != nil {
		return err
	}

	observer.Observe(buffer.MirroredBatches, metric.WithAttributes(
		attribute.String("mirror.result", "ok"),
	))
	observer.Observe(buffer.MirrorFailures, metric.WithAttributes(
		attribute.String("mirror.result", "failed"),
	))

	return nil
}

// ServeHTTP returns a handler serving Prometheus-formatted metrics
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.HandlerFor(oe.gatherer, promhttp.HandlerOpts{})
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
