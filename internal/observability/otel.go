package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/questline-backend/internal/platform/envutil"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type OtelConfig struct {
	ServiceName string
	Environment string
	Version     string
}

// tracingSettings is the OTEL_* environment, read once at startup.
type tracingSettings struct {
	enabled  bool
	endpoint string
	insecure bool
	headers  map[string]string
	ratio    float64
}

func loadTracingSettings() tracingSettings {
	return tracingSettings{
		enabled:  envutil.Bool("OTEL_ENABLED", false),
		endpoint: envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		insecure: envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		headers:  parseHeaders(envutil.List("OTEL_EXPORTER_OTLP_HEADERS")),
		ratio:    clamp01(envutil.Float("OTEL_SAMPLER_RATIO", 0.1)),
	}
}

// parseHeaders reads "k=v" pairs; malformed pairs are skipped.
func parseHeaders(pairs []string) map[string]string {
	var out map[string]string
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		if out == nil {
			out = map[string]string{}
		}
		out[k] = v
	}
	return out
}

var (
	otelOnce     sync.Once
	otelShutdown func(context.Context) error
)

// InitOTel installs the global tracer provider when OTEL_ENABLED is set and
// returns its shutdown func (nil when tracing stays off). Exporter failures
// are logged and tracing continues without export.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		st := loadTracingSettings()
		if !st.enabled {
			return
		}
		if log == nil {
			log = logger.Nop()
		}
		name := strings.TrimSpace(cfg.ServiceName)
		if name == "" {
			name = "questline"
		}
		res, err := resource.New(ctx, resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
			attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
		))
		if err != nil {
			log.Warn("otel resource incomplete", "error", err)
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(st.ratio))),
			sdktrace.WithResource(res),
		}
		if exp, err := newSpanExporter(ctx, st); err != nil {
			log.Warn("otel exporter unavailable, spans will not be exported", "error", err)
		} else {
			opts = append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)))
		}
		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		otelShutdown = tp.Shutdown
		log.Info("otel tracing initialized", "service", name, "endpoint", st.endpoint, "sample_ratio", st.ratio)
	})
	return otelShutdown
}

// newSpanExporter ships spans over OTLP/HTTP, or pretty-prints them to stdout
// when no endpoint is configured.
func newSpanExporter(ctx context.Context, st tracingSettings) (sdktrace.SpanExporter, error) {
	if st.endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(st.endpoint)}
	if st.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(st.headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(st.headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

// Tracer returns a named tracer from the global provider. Spans are no-ops
// until InitOTel installs a real provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer("questline/" + strings.TrimSpace(name))
}
