package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFields(t *testing.T) {
	fields, err := ParseFields([]byte(`{"name":"work","duration_ms":5,"ratio":0.25,"ok":true,"missing":null,"tags":["a","b"],"big":1e30}`))
	require.NoError(t, err)

	assert.Equal(t, String("work"), fields["name"])
	assert.Equal(t, Int(5), fields["duration_ms"])
	assert.Equal(t, Float(0.25), fields["ratio"])
	assert.Equal(t, Bool(true), fields["ok"])
	assert.True(t, fields["missing"].IsNull())
	assert.Equal(t, String(`["a","b"]`), fields["tags"])
	assert.Equal(t, KindFloat, fields["big"].Kind())
}

func TestParseFields_Invalid(t *testing.T) {
	_, err := ParseFields([]byte(`{"name":`))
	assert.Error(t, err)

	_, err = ParseFields([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestParseFields_RoundTrip(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	span := &Span{
		ID:        "S1",
		TraceID:   "T1",
		ParentID:  "P1",
		Name:      "work",
		StartTime: start,
		EndTime:   start.Add(5 * time.Millisecond),
	}
	span.SetAttribute("user_id", 42)
	span.SetAttribute("name", "shadow")

	fields, ts := FlattenSpan(span)
	data, err := json.Marshal(fields)
	require.NoError(t, err)

	parsed, err := ParseFields(data)
	require.NoError(t, err)
	assert.Equal(t, fields, parsed)

	parsedTS, ok := parsed.Timestamp()
	require.True(t, ok)
	assert.True(t, ts.Equal(parsedTS))
}

func TestFields_Timestamp(t *testing.T) {
	_, ok := Fields{}.Timestamp()
	assert.False(t, ok)

	_, ok = Fields{FieldTimestamp: Int(1)}.Timestamp()
	assert.False(t, ok)

	_, ok = Fields{FieldTimestamp: String("yesterday")}.Timestamp()
	assert.False(t, ok)
}
