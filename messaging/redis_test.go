package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tsukikage7/telemetry-kit/record"
)

type fakeStream struct {
	mu      sync.Mutex
	entries []*redis.XAddArgs
	err     error
	closed  bool
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	f.entries = append(f.entries, a)
	return redis.NewStringResult("1-0", nil)
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func newTestRedisClient(stream *fakeStream, maxLen int64) *RedisClient {
	cfg := &Config{Type: TypeRedis, Addr: "localhost:6379", Topic: "spans", MaxLen: maxLen}
	cfg.ApplyDefaults()
	return newRedisClient(stream, cfg, applyClientOptions(nil))
}

func TestRedisClient_Send(t *testing.T) {
	stream := &fakeStream{}
	client := newTestRedisClient(stream, 1000)

	ev := client.NewEvent()
	ev.Add(record.Fields{
		record.FieldTraceID: record.String("T1"),
		record.FieldName:    record.String("work"),
	})
	ev.Metadata = "m1"
	require.NoError(t, client.Send(ev))

	resp := waitResponse(t, client.Responses())
	assert.NoError(t, resp.Err)
	assert.Equal(t, "m1", resp.Metadata)

	require.NoError(t, client.Close())
	assert.True(t, stream.closed)

	require.Len(t, stream.entries, 1)
	args := stream.entries[0]
	assert.Equal(t, "spans", args.Stream)
	assert.Equal(t, int64(1000), args.MaxLen)
	assert.True(t, args.Approx)

	values := args.Values.(map[string]any)
	assert.Equal(t, "T1", values["trace_id"])
	assert.JSONEq(t, `{"trace.trace_id":"T1","name":"work"}`, string(values["data"].([]byte)))
}

func TestRedisClient_SendError(t *testing.T) {
	stream := &fakeStream{err: errors.New("READONLY")}
	client := newTestRedisClient(stream, 0)

	require.NoError(t, client.Send(client.NewEvent()))

	resp := waitResponse(t, client.Responses())
	assert.ErrorIs(t, resp.Err, ErrSendMessage)

	require.NoError(t, client.Close())
	_, ok := <-client.Responses()
	assert.False(t, ok)
	assert.ErrorIs(t, client.Send(client.NewEvent()), ErrClientClosed)
}

func TestNewRedisClient_InvalidConfig(t *testing.T) {
	_, err := NewRedisClient(nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = NewRedisClient(&Config{Type: TypeRedis, Topic: "spans"})
	assert.ErrorIs(t, err, ErrNoBrokers)

	_, err = NewRedisClient(&Config{Type: TypeRedis, Addr: "localhost:6379"})
	assert.ErrorIs(t, err, ErrEmptyTopic)
}
