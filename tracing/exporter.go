package tracing

import (
	"context"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tsukikage7/telemetry-kit/record"
)

// 级别.
const (
	LevelInfo  = "INFO"
	LevelError = "ERROR"
)

// 附加属性名.
const (
	AttrSpanKind          = "otel.span_kind"
	AttrStatusDescription = "otel.status_description"
)

// SpanReporter 接收转换后的记录，*telemetry.Telemetry 实现了该接口.
type SpanReporter interface {
	ReportSpan(s *record.Span)
	ReportEvent(e *record.Event)
	ServiceName() string
}

// Exporter 实现 sdktrace.SpanExporter.
type Exporter struct {
	reporter SpanReporter
	stopped  atomic.Bool
}

var _ sdktrace.SpanExporter = (*Exporter)(nil)

// NewExporter 创建导出器.
func NewExporter(r SpanReporter) (*Exporter, error) {
	if r == nil {
		return nil, ErrNilReporter
	}
	return &Exporter{reporter: r}, nil
}

// ExportSpans 转换并上报 span，每个 span 之后紧跟其 event.
func (e *Exporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if e.stopped.Load() {
		return nil
	}

	for _, s := range spans {
		if err := ctx.Err(); err != nil {
			return err
		}

		span := convertSpan(s)
		e.reporter.ReportSpan(span)
		for _, ev := range s.Events() {
			e.reporter.ReportEvent(convertEvent(span, ev))
		}
	}
	return nil
}

// Shutdown 停止导出，之后的 ExportSpans 为空操作.
func (e *Exporter) Shutdown(ctx context.Context) error {
	e.stopped.Store(true)
	return ctx.Err()
}

func convertSpan(s sdktrace.ReadOnlySpan) *record.Span {
	sc := s.SpanContext()
	span := &record.Span{
		ID:          record.SpanID(sc.SpanID().String()),
		TraceID:     record.TraceID(sc.TraceID().String()),
		Name:        s.Name(),
		Target:      s.InstrumentationScope().Name,
		Level:       LevelInfo,
		ServiceName: serviceName(s.Resource()),
		StartTime:   s.StartTime(),
		EndTime:     s.EndTime(),
	}
	if parent := s.Parent(); parent.IsValid() {
		span.ParentID = record.SpanID(parent.SpanID().String())
	}

	span.Attributes = convertAttributes(s.Attributes())
	if kind := s.SpanKind(); kind != trace.SpanKindInternal && kind != trace.SpanKindUnspecified {
		span.SetAttribute(AttrSpanKind, kind.String())
	}
	if status := s.Status(); status.Code == codes.Error {
		span.Level = LevelError
		if status.Description != "" {
			span.SetAttribute(AttrStatusDescription, status.Description)
		}
	}
	return span
}

func convertEvent(span *record.Span, ev sdktrace.Event) *record.Event {
	level := LevelInfo
	if ev.Name == semconv.ExceptionEventName {
		level = LevelError
	}
	return &record.Event{
		SpanID:      span.ID,
		TraceID:     span.TraceID,
		Name:        ev.Name,
		Target:      span.Target,
		Level:       level,
		ServiceName: span.ServiceName,
		Timestamp:   ev.Time,
		Attributes:  convertAttributes(ev.Attributes),
	}
}

func convertAttributes(kvs []attribute.KeyValue) []record.Attribute {
	if len(kvs) == 0 {
		return nil
	}
	attrs := make([]record.Attribute, 0, len(kvs))
	for _, kv := range kvs {
		attrs = append(attrs, record.Attribute{Key: string(kv.Key), Value: convertValue(kv.Value)})
	}
	return attrs
}

// convertValue 标量原样转换，切片编码为 JSON 字符串.
func convertValue(v attribute.Value) record.Value {
	switch v.Type() {
	case attribute.BOOL:
		return record.Bool(v.AsBool())
	case attribute.INT64:
		return record.Int(v.AsInt64())
	case attribute.FLOAT64:
		return record.Float(v.AsFloat64())
	case attribute.STRING:
		return record.String(v.AsString())
	case attribute.INVALID:
		return record.Null()
	default:
		return record.String(v.Emit())
	}
}

// serviceName 读取资源中的服务名，SDK 生成的 unknown_service 视为未设置.
func serviceName(res *resource.Resource) string {
	if res == nil {
		return ""
	}
	v, ok := res.Set().Value(semconv.ServiceNameKey)
	if !ok {
		return ""
	}
	name := v.AsString()
	if strings.HasPrefix(name, "unknown_service") {
		return ""
	}
	return name
}
