package record

import (
	"time"
)

// 保留字段名.
const (
	FieldTraceID     = "trace.trace_id"
	FieldSpanID      = "trace.span_id"
	FieldParentID    = "trace.parent_id"
	FieldKind        = "meta.kind"
	FieldName        = "name"
	FieldTarget      = "target"
	FieldLevel       = "level"
	FieldServiceName = "service_name"
	FieldTimestamp   = "Timestamp"
	FieldDuration    = "duration_ms"
)

// 记录类型.
const (
	KindSpan  = "span"
	KindEvent = "event"
)

// ReservedPrefix 与保留字段冲突的用户属性会加上该前缀.
const ReservedPrefix = "tracing."

var reserved = map[string]struct{}{
	FieldTraceID:     {},
	FieldSpanID:      {},
	FieldParentID:    {},
	FieldKind:        {},
	FieldName:        {},
	FieldTarget:      {},
	FieldLevel:       {},
	FieldServiceName: {},
	FieldTimestamp:   {},
	FieldDuration:    {},
}

// IsReserved 判断字段名是否为保留字段.
func IsReserved(key string) bool {
	_, ok := reserved[key]
	return ok
}

// Fields 展平后的记录，字段名唯一.
type Fields map[string]Value

// Get 获取字段值.
func (f Fields) Get(key string) (Value, bool) {
	v, ok := f[key]
	return v, ok
}

// FlattenSpan 将 span 展平为键值记录，返回记录及其时间戳（span 开始时间）.
func FlattenSpan(s *Span) (Fields, time.Time) {
	fields := userFields(s.Attributes, 10)

	fields[FieldTraceID] = String(s.TraceID.String())
	fields[FieldSpanID] = String(s.ID.String())
	if s.HasParent() {
		fields[FieldParentID] = String(s.ParentID.String())
	}
	fields[FieldKind] = String(KindSpan)
	fields[FieldName] = String(s.Name)
	fields[FieldTarget] = String(s.Target)
	fields[FieldLevel] = String(s.Level)
	fields[FieldServiceName] = String(s.ServiceName)
	fields[FieldTimestamp] = String(formatTimestamp(s.StartTime))
	fields[FieldDuration] = Int(s.Duration().Milliseconds())

	return fields, s.StartTime
}

// FlattenEvent 将 event 展平为键值记录，返回记录及事件时间.
//
// event 的 trace.span_id 为所属 span 的标识，duration_ms 固定为 0.
func FlattenEvent(e *Event) (Fields, time.Time) {
	fields := userFields(e.Attributes, 9)

	fields[FieldTraceID] = String(e.TraceID.String())
	fields[FieldSpanID] = String(e.SpanID.String())
	fields[FieldKind] = String(KindEvent)
	fields[FieldName] = String(e.Name)
	fields[FieldTarget] = String(e.Target)
	fields[FieldLevel] = String(e.Level)
	fields[FieldServiceName] = String(e.ServiceName)
	fields[FieldTimestamp] = String(formatTimestamp(e.Timestamp))
	fields[FieldDuration] = Int(0)

	return fields, e.Timestamp
}

// userFields 复制用户属性，同名属性后写覆盖先写.
func userFields(attrs []Attribute, extra int) Fields {
	fields := make(Fields, len(attrs)+extra)
	for _, a := range attrs {
		fields[fieldName(a.Key)] = a.Value
	}
	return fields
}

func fieldName(key string) string {
	if IsReserved(key) {
		return ReservedPrefix + key
	}
	return key
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
