package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var start = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func TestFlattenSpan(t *testing.T) {
	span := &Span{
		ID:          "S1",
		TraceID:     "T1",
		ParentID:    "P1",
		Name:        "work",
		Target:      "app::worker",
		Level:       "INFO",
		ServiceName: "svc",
		StartTime:   start,
		EndTime:     start.Add(5 * time.Millisecond),
		Attributes:  []Attribute{Attr("a", 1), Attr("b", "x")},
	}

	fields, ts := FlattenSpan(span)

	assert.Equal(t, start, ts)
	assert.Equal(t, "T1", fields[FieldTraceID].AsString())
	assert.Equal(t, "S1", fields[FieldSpanID].AsString())
	assert.Equal(t, "P1", fields[FieldParentID].AsString())
	assert.Equal(t, KindSpan, fields[FieldKind].AsString())
	assert.Equal(t, "work", fields[FieldName].AsString())
	assert.Equal(t, "app::worker", fields[FieldTarget].AsString())
	assert.Equal(t, "INFO", fields[FieldLevel].AsString())
	assert.Equal(t, "svc", fields[FieldServiceName].AsString())
	assert.Equal(t, "2024-01-02T03:04:05Z", fields[FieldTimestamp].AsString())
	assert.Equal(t, int64(5), fields[FieldDuration].AsInt())
	assert.Equal(t, Int(1), fields["a"])
	assert.Equal(t, String("x"), fields["b"])
	assert.Len(t, fields, 12)
}

func TestFlattenSpan_NoParent(t *testing.T) {
	fields, _ := FlattenSpan(&Span{ID: "S1", TraceID: "T1", StartTime: start, EndTime: start})

	_, ok := fields.Get(FieldParentID)
	assert.False(t, ok)
	assert.Equal(t, int64(0), fields[FieldDuration].AsInt())
}

func TestFlattenSpan_EndBeforeStart(t *testing.T) {
	fields, _ := FlattenSpan(&Span{StartTime: start, EndTime: start.Add(-time.Second)})
	assert.Equal(t, int64(0), fields[FieldDuration].AsInt())
}

func TestFlattenSpan_ReservedFieldWins(t *testing.T) {
	span := &Span{
		ID:        "S1",
		TraceID:   "T1",
		Name:      "work",
		StartTime: start,
		EndTime:   start,
		Attributes: []Attribute{
			Attr("name", "user-name"),
			Attr("trace.trace_id", "forged"),
			Attr("duration_ms", 999),
		},
	}

	fields, _ := FlattenSpan(span)

	assert.Equal(t, "work", fields[FieldName].AsString())
	assert.Equal(t, "T1", fields[FieldTraceID].AsString())
	assert.Equal(t, int64(0), fields[FieldDuration].AsInt())
	assert.Equal(t, "user-name", fields["tracing.name"].AsString())
	assert.Equal(t, "forged", fields["tracing.trace.trace_id"].AsString())
	assert.Equal(t, int64(999), fields["tracing.duration_ms"].AsInt())
}

func TestFlattenSpan_LastAttributeWins(t *testing.T) {
	span := &Span{Attributes: []Attribute{Attr("k", 1), Attr("k", 2)}}

	fields, _ := FlattenSpan(span)

	assert.Equal(t, int64(2), fields["k"].AsInt())
}

func TestFlattenEvent(t *testing.T) {
	event := &Event{
		SpanID:      "S1",
		TraceID:     "T1",
		Name:        "cache miss",
		Level:       "WARN",
		ServiceName: "svc",
		Timestamp:   start,
		Attributes:  []Attribute{Attr("key", "user:1"), Attr("level", "shadowed")},
	}

	fields, ts := FlattenEvent(event)

	assert.Equal(t, start, ts)
	assert.Equal(t, "T1", fields[FieldTraceID].AsString())
	assert.Equal(t, "S1", fields[FieldSpanID].AsString())
	assert.Equal(t, KindEvent, fields[FieldKind].AsString())
	assert.Equal(t, "cache miss", fields[FieldName].AsString())
	assert.Equal(t, "WARN", fields[FieldLevel].AsString())
	assert.Equal(t, "shadowed", fields["tracing.level"].AsString())
	assert.Equal(t, int64(0), fields[FieldDuration].AsInt())
	assert.Equal(t, "user:1", fields["key"].AsString())
	_, ok := fields.Get(FieldParentID)
	assert.False(t, ok)
}

func TestIsReserved(t *testing.T) {
	assert.True(t, IsReserved(FieldName))
	assert.True(t, IsReserved(FieldDuration))
	assert.False(t, IsReserved("http.method"))
}

func TestSpan_SetAttribute(t *testing.T) {
	span := &Span{}
	span.SetAttribute("a", 1)
	span.SetAttribute("b", "x")

	assert.Equal(t, []Attribute{{Key: "a", Value: Int(1)}, {Key: "b", Value: String("x")}}, span.Attributes)
}
