package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var errNilGatherer = errors.New("[observability] nil prometheus gatherer")

// NewConsoleMetricsExporter serves for test/dev environment.
// The metrics are written to w periodically and once more
// on the provider shutdown.
func NewConsoleMetricsExporter(
	w io.Writer,
	interval, timeout time.Duration,
	opts ...stdoutmetric.Option,
) (*sdkmetric.MeterProvider, error) {
	if w != nil {
		opts = append(opts, stdoutmetric.WithWriter(w))
	}
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create stdout metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(interval),
		sdkmetric.WithTimeout(timeout),
	)))
	return mp, nil
}

// NewPrometheusMetricsExporter serves for the product environment,
// the metrics are pulled from the registerer.
// The nil registerer falls back to the prometheus default one.
func NewPrometheusMetricsExporter(registerer prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	opts := make([]promexporter.Option, 0, 1)
	if registerer != nil {
		opts = append(opts, promexporter.WithRegisterer(registerer))
	}
	exporter, err := promexporter.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)), nil
}

// WritePrometheusText dumps the gathered metric families in the
// prometheus text exposition format.
func WritePrometheusText(w io.Writer, gatherer prometheus.Gatherer) error {
	if gatherer == nil {
		return errNilGatherer
	}
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather prometheus metrics: %w", err)
	}
	for _, mf := range families {
		if _, err = expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
