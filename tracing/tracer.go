package tracing

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// NewTracerProvider 创建将 span 交给 r 上报的 TracerProvider.
//
// 使用示例:
//
//	tp, err := tracing.NewTracerProvider(&tracing.Config{}, tel)
//	if err != nil {
//	    return err
//	}
//	defer tp.Shutdown(context.Background())
//
//	ctx, span := tp.Tracer("app/worker").Start(ctx, "work")
//	defer span.End()
func NewTracerProvider(cfg *Config, r SpanReporter) (*sdktrace.TracerProvider, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	exp, err := NewExporter(r)
	if err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(r.ServiceName())}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateResource, err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if cfg.Synchronous {
		opts = append(opts, sdktrace.WithSyncer(exp))
	} else {
		var batchOpts []sdktrace.BatchSpanProcessorOption
		if cfg.BatchTimeout > 0 {
			batchOpts = append(batchOpts, sdktrace.WithBatchTimeout(cfg.BatchTimeout))
		}
		opts = append(opts, sdktrace.WithBatcher(exp, batchOpts...))
	}

	if cfg.OTLP != nil && cfg.OTLP.Endpoint != "" {
		otlp, err := newOTLPExporter(cfg.OTLP)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(otlp))
	}

	tp := sdktrace.NewTracerProvider(opts...)

	if cfg.Global {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}

	return tp, nil
}

// MustNewTracerProvider 创建 TracerProvider，失败时 panic.
func MustNewTracerProvider(cfg *Config, r SpanReporter) *sdktrace.TracerProvider {
	tp, err := NewTracerProvider(cfg, r)
	if err != nil {
		panic(err)
	}
	return tp
}

// newOTLPExporter 创建 OTLP HTTP 导出器.
func newOTLPExporter(cfg *OTLPConfig) (sdktrace.SpanExporter, error) {
	// 移除协议前缀
	endpoint := cfg.Endpoint
	if after, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint = after
	}
	if after, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint = after
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}

	exp, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateExporter, err)
	}
	return exp, nil
}
