package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xrbtree/lib/xlog"
	"github.com/benz9527/xrbtree/observability"
)

const (
	metricsNone       = "none"
	metricsStdout     = "stdout"
	metricsPrometheus = "prometheus"

	treeMeterName = "github.com/benz9527/xrbtree/lib/tree"

	// envPrefix is the environment variable prefix of the global flags,
	// i.e. XRBTREE_LOG_LEVEL overrides the --log-level default.
	envPrefix = "XRBTREE"
)

var (
	errUnknownEncoder = errors.New("unknown log encoder")
	errUnknownMetrics = errors.New("unknown metrics exporter")
)

type globalFlags struct {
	logLevel        string
	logEncoder      string
	metrics         string
	metricsInterval time.Duration
}

// app owns the state shared by the subcommands. The logger and
// the meter provider are built before a subcommand runs and
// released after it.
type app struct {
	root     *cobra.Command
	flags    globalFlags
	log      xlog.XLogger
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
	undo     func()
}

func newApp() *app {
	a := &app{}
	a.root = &cobra.Command{
		Use:   "xrbtree",
		Short: "Red-black tree ordered set playground",
		Long: `xrbtree drives the arena backed red-black tree.
It replays the reference scenarios or soaks the tree with
random insertions and deletions, checking the red-black
properties after every mutation.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	pf := a.root.PersistentFlags()
	pf.StringVar(&a.flags.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	pf.StringVar(&a.flags.logEncoder, "log-encoder", "json", "log encoder (json|text)")
	pf.StringVar(&a.flags.metrics, "metrics", metricsNone, "metrics exporter (none|stdout|prometheus)")
	pf.DurationVar(&a.flags.metricsInterval, "metrics-interval", 10*time.Second, "stdout metrics export interval")

	a.root.AddCommand(a.scenarioCmd())
	a.root.AddCommand(a.soakCmd())
	return a
}

func (a *app) logger() xlog.XLogger {
	if a.log == nil {
		a.log = xlog.NewXLogger(xlog.WithXLoggerWriter(xlog.StdErr))
	}
	return a.log
}

// meter is nil if the metrics are disabled.
func (a *app) meter() metric.Meter {
	if a.provider == nil {
		return nil
	}
	return a.provider.Meter(treeMeterName)
}

func parseEncoder(enc string) (xlog.LogEncoderType, error) {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "json":
		return xlog.JSON, nil
	case "text", "console", "plain":
		return xlog.PlainText, nil
	default:
	}
	return xlog.JSON, fmt.Errorf("%w: %q", errUnknownEncoder, enc)
}

// loadFlags resolves the global flags, the explicit flags first,
// then the environment variables and the flag defaults last.
func (a *app) loadFlags(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	a.flags.logLevel = v.GetString("log-level")
	a.flags.logEncoder = v.GetString("log-encoder")
	a.flags.metrics = v.GetString("metrics")
	a.flags.metricsInterval = v.GetDuration("metrics-interval")
	return nil
}

func (a *app) setup(cmd *cobra.Command, _ []string) (err error) {
	if err = a.loadFlags(cmd); err != nil {
		return err
	}
	enc, err := parseEncoder(a.flags.logEncoder)
	if err != nil {
		return err
	}
	a.log = xlog.NewXLogger(
		xlog.WithXLoggerLevel(xlog.ParseLogLevel(a.flags.logLevel)),
		xlog.WithXLoggerEncoder(enc),
		xlog.WithXLoggerWriteSyncer(xlog.AddSync(cmd.ErrOrStderr())),
	).Named("xrbtree")

	if a.undo, err = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		a.log.Logf(zapcore.DebugLevel, format, args...)
	})); err != nil {
		a.log.Warn("[xrbtree] unable to set GOMAXPROCS", zap.Error(err))
	}
	// The post run hook is skipped if the setup fails.
	defer func() {
		if err != nil && a.undo != nil {
			a.undo()
			a.undo = nil
		}
	}()

	switch metrics := strings.ToLower(strings.TrimSpace(a.flags.metrics)); metrics {
	case metricsNone:
		return nil
	case metricsStdout:
		a.provider, err = observability.NewConsoleMetricsExporter(
			cmd.OutOrStdout(),
			a.flags.metricsInterval,
			a.flags.metricsInterval,
		)
	case metricsPrometheus:
		a.registry = prometheus.NewRegistry()
		a.provider, err = observability.NewPrometheusMetricsExporter(a.registry)
	default:
		return fmt.Errorf("%w: %q", errUnknownMetrics, a.flags.metrics)
	}
	if err != nil {
		return err
	}
	otel.SetMeterProvider(a.provider)
	if err = observability.StartAppStats(a.provider, cmd.Name()); err != nil {
		a.log.Warn("[xrbtree] app stats are partially registered", zap.Error(err))
	}
	a.log.Debug("[xrbtree] metrics enabled", zap.String("exporter", a.flags.metrics))
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	var merr error
	if a.registry != nil {
		merr = multierr.Append(merr, observability.WritePrometheusText(cmd.OutOrStdout(), a.registry))
	}
	if a.provider != nil {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		merr = multierr.Append(merr, a.provider.Shutdown(ctx))
	}
	if a.undo != nil {
		a.undo()
	}
	// Sync of a terminal may fail with EINVAL, it is not an error of the command.
	_ = a.log.Sync()
	return merr
}
