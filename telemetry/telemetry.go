// Package telemetry wires OpenTelemetry trace and log export for processes
// that run state machines.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/amp-labs/fsm/envutil"
	"github.com/amp-labs/fsm/logger"
)

const (
	defaultServiceVersion = "1.0.0"
	kubernetesEndpoint    = "http://opentelemetry-collector.opentelemetry.svc.cluster.local:4318"
)

var (
	tracerProvider *sdktrace.TracerProvider
	loggerProvider *sdklog.LoggerProvider
	logHandler     slog.Handler
)

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string // traces
	LogsEndpoint   string
	Enabled        bool
	LogsEnabled    bool
	Timeout        time.Duration
}

type envConfig struct {
	Enabled               bool          `env:"OTEL_ENABLED"                       envDefault:"false"`
	LogsEnabled           bool          `env:"OTEL_LOGS_ENABLED"                  envDefault:"false"`
	ServiceName           string        `env:"OTEL_SERVICE_NAME"`
	ServiceVersion        string        `env:"OTEL_SERVICE_VERSION"               envDefault:"1.0.0"`
	Endpoint              string        `env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	LogsEndpoint          string        `env:"OTEL_EXPORTER_OTLP_LOGS_ENDPOINT"`
	Timeout               time.Duration `env:"OTEL_EXPORTER_OTLP_TRACES_TIMEOUT"  envDefault:"5s"`
	KubernetesServiceHost string        `env:"KUBERNETES_SERVICE_HOST"`
}

// LoadConfigFromEnv loads OpenTelemetry configuration from environment
// variables. The service name defaults to the subsystem carried by ctx.
// Inside Kubernetes the endpoint defaults to the in-cluster collector.
func LoadConfigFromEnv(ctx context.Context, runningEnv string, opts ...envutil.Option) (*Config, error) {
	raw, err := envutil.Parse[envConfig](opts...)
	if err != nil {
		return nil, err
	}

	if raw.ServiceName == "" {
		raw.ServiceName = logger.GetSubsystem(ctx)
	}

	if raw.ServiceVersion == "" {
		raw.ServiceVersion = defaultServiceVersion
	}

	if raw.Endpoint == "" && raw.KubernetesServiceHost != "" {
		raw.Endpoint = kubernetesEndpoint
	}

	if raw.LogsEndpoint == "" {
		raw.LogsEndpoint = raw.Endpoint
	}

	return &Config{
		ServiceName:    raw.ServiceName,
		ServiceVersion: raw.ServiceVersion,
		Environment:    runningEnv,
		Endpoint:       raw.Endpoint,
		LogsEndpoint:   raw.LogsEndpoint,
		Enabled:        raw.Enabled,
		LogsEnabled:    raw.LogsEnabled,
		Timeout:        raw.Timeout,
	}, nil
}

// Initialize sets up OpenTelemetry tracing, and log export when enabled,
// with the given configuration.
func Initialize(ctx context.Context, config *Config) error {
	if !config.Enabled {
		slog.Info("OpenTelemetry tracing is disabled")

		return nil
	}

	if config.Endpoint == "" {
		slog.Warn("OpenTelemetry endpoint not configured, tracing will be disabled")

		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(config.Endpoint),
		otlptracehttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tracerProvider)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if config.LogsEnabled && config.LogsEndpoint != "" {
		if err := initializeLogs(ctx, config, res); err != nil {
			return err
		}
	}

	slog.Info("OpenTelemetry tracing initialized",
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"environment", config.Environment,
		"endpoint", config.Endpoint,
		"logs", logHandler != nil,
	)

	return nil
}

func initializeLogs(ctx context.Context, config *Config, res *resource.Resource) error {
	exporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpointURL(config.LogsEndpoint),
		otlploghttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	loggerProvider = sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)

	logHandler = otelslog.NewHandler(config.ServiceName,
		otelslog.WithLoggerProvider(loggerProvider))

	return nil
}

// LogHandler returns the slog handler exporting to OTLP, or nil when log
// export is not initialized.
func LogHandler() slog.Handler {
	return logHandler
}

// LoggingOptions returns the logger options that fan log records out to
// OTLP when log export is initialized.
//
// Example:
//
//	_ = telemetry.Initialize(ctx, cfg)
//	_, err := logger.ConfigureLogging("door-service", telemetry.LoggingOptions()...)
func LoggingOptions() []logger.Option {
	if logHandler == nil {
		return nil
	}

	return []logger.Option{logger.WithExtraHandler(logHandler)}
}

// Shutdown gracefully shuts down the OpenTelemetry providers.
func Shutdown(ctx context.Context) error {
	var errs []error

	if tracerProvider != nil {
		slog.Info("Shutting down OpenTelemetry tracer provider")

		errs = append(errs, tracerProvider.Shutdown(ctx))
		tracerProvider = nil
	}

	if loggerProvider != nil {
		errs = append(errs, loggerProvider.Shutdown(ctx))
		loggerProvider = nil
		logHandler = nil
	}

	return errors.Join(errs...)
}
