package observability

import (
	"context"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/process"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
)

const appMeterPrefix = "xrbtree/app"

// AppMeterName is the meter name of the application stats.
func AppMeterName(name string) string {
	builder := &strings.Builder{}
	builder.WriteString(appMeterPrefix)
	builder.WriteString("/")
	if name = strings.TrimSpace(name); len(name) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	return builder.String()
}

type appStats struct {
	proc       *process.Process
	goroutines metric.Int64ObservableUpDownCounter
	processes  metric.Int64ObservableUpDownCounter
	rss        metric.Int64ObservableGauge
}

func (stats *appStats) observe(_ context.Context, ob metric.Observer) error {
	ob.ObserveInt64(stats.goroutines, int64(runtime.NumGoroutine()))
	ob.ObserveInt64(stats.processes, int64(runtime.GOMAXPROCS(0)))
	if stats.proc == nil {
		return nil
	}
	mem, err := stats.proc.MemoryInfo()
	if err != nil {
		return err
	}
	ob.ObserveInt64(stats.rss, int64(mem.RSS))
	return nil
}

// StartAppStats registers the application goroutines, the
// GOMAXPROCS, the process resident memory and the go runtime
// metrics into the provider.
func StartAppStats(provider metric.MeterProvider, name string) error {
	meter := provider.Meter(
		AppMeterName(name),
		metric.WithInstrumentationVersion(otelruntime.Version()),
	)
	stats := &appStats{
		goroutines: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"app.core.goroutines",
			metric.WithDescription(`The application goroutines' info.`),
		)),
		processes: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"app.core.processes",
			metric.WithDescription(`The application processes' info.`),
		)),
		rss: lo.Must[metric.Int64ObservableGauge](meter.Int64ObservableGauge(
			"app.process.rss",
			metric.WithDescription(`The application resident set size.`),
			metric.WithUnit("By"),
		)),
	}
	proc, procErr := process.NewProcess(int32(os.Getpid()))
	if procErr == nil {
		stats.proc = proc
	}
	_, regErr := meter.RegisterCallback(stats.observe, stats.goroutines, stats.processes, stats.rss)
	runtimeErr := otelruntime.Start(
		otelruntime.WithMeterProvider(provider),
		otelruntime.WithMinimumReadMemStatsInterval(time.Second),
	)
	return multierr.Combine(procErr, regErr, runtimeErr)
}
