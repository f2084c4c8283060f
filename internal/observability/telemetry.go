package observability

import (
	"context"
	"time"

	"github.com/annel0/place-snapshot/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/annel0/place-snapshot"

const shutdownTimeout = 5 * time.Second

// TelemetryOptions - параметры трассировки одного прогона
type TelemetryOptions struct {
	ServiceName string
	RunID       string
	Endpoint    string  // host:port коллектора; пусто - настройки OTLP из окружения
	Insecure    bool    // HTTP вместо HTTPS
	SampleRatio float64 // доля записываемых трасс, 0..1
}

func (o TelemetryOptions) exporterOptions() []otlptracehttp.Option {
	var opts []otlptracehttp.Option
	if o.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(o.Endpoint))
	}
	if o.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

// InitTelemetry ставит глобальный TracerProvider с OTLP/HTTP экспортером.
// Экспортер подключается лениво, поэтому недоступный коллектор здесь
// ошибкой не является. Возвращает shutdown, сбрасывающий буфер спанов.
func InitTelemetry(ctx context.Context, o TelemetryOptions) (func(context.Context) error, error) {
	exp, err := otlptracehttp.New(ctx, o.exporterOptions()...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(o.ServiceName),
			attribute.String("place.run_id", o.RunID),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(o.SampleRatio))),
	)
	otel.SetTracerProvider(tp)

	endpoint := o.Endpoint
	if endpoint == "" {
		endpoint = "OTLP env/default"
	}
	logging.Info("📡 OpenTelemetry: %s, service=%s, sample=%.2f", endpoint, o.ServiceName, o.SampleRatio)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

// Tracer возвращает трейсер приложения. Без InitTelemetry спаны no-op.
func Tracer() oteltrace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan открывает спан этапа конвейера
func StartSpan(ctx context.Context, name string) (context.Context, oteltrace.Span) {
	return Tracer().Start(ctx, name)
}
