package telemetry

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

const (
	initTimeout   = 5 * time.Second
	exportTimeout = 3 * time.Second
)

// ShutdownFunc сбрасывает накопленные спаны и останавливает экспортёр
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

type Config struct {
	// Endpoint - OTLP/HTTP коллектор, "http://host:4318" или "host:4318". Пустой выключает трейсинг.
	Endpoint    string
	ServiceName string
}

// Init ставит глобальный TracerProvider и пропагатор W3C.
// Без endpoint или при ошибке экспортёра бот работает без трейсов.
func Init(ctx context.Context, cfg Config, logger *zap.Logger) (ShutdownFunc, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	host, insecure := parseEndpoint(cfg.Endpoint)
	if host == "" {
		logger.Debug("tracing disabled")
		return noop, nil
	}

	exporter, err := newExporter(ctx, host, insecure)
	if err != nil {
		logger.Warn("trace exporter unavailable, tracing disabled",
			zap.String("endpoint", cfg.Endpoint),
			zap.Error(err),
		)
		return noop, nil
	}

	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing enabled", zap.String("collector", host), zap.Bool("insecure", insecure))
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, host string, insecure bool) (*otlptrace.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(host),
		otlptracehttp.WithTimeout(exportTimeout),
		// потерянный батч не повод задерживать ответы бота
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{Enabled: false}),
	}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

// parseEndpoint отдаёт host:port и нужен ли plain HTTP. Без схемы считаем http.
func parseEndpoint(raw string) (host string, insecure bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimSuffix(raw, "/"), true
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	return u.Host, u.Scheme != "https"
}
