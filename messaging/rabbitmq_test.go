package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tsukikage7/telemetry-kit/record"
)

type fakePublisher struct {
	mu        sync.Mutex
	confirms  chan amqp.Confirmation
	tag       uint64
	nack      bool
	err       error
	closed    bool
	published []fakePublishing
}

type fakePublishing struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{confirms: make(chan amqp.Confirmation, 16)}
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.tag++
	f.published = append(f.published, fakePublishing{exchange: exchange, key: key, msg: msg})
	f.confirms <- amqp.Confirmation{DeliveryTag: f.tag, Ack: !f.nack}
	return nil
}

func (f *fakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		f.closed = true
		close(f.confirms)
	}
	return nil
}

func (f *fakePublisher) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func newTestRabbitMQClient(t *testing.T) (*RabbitMQClient, *fakePublisher, *fakeConn) {
	t.Helper()

	pub := newFakePublisher()
	conn := &fakeConn{}
	cfg := &Config{Type: TypeRabbitMQ, URL: "amqp://localhost", Exchange: "telemetry", Topic: "spans"}
	cfg.ApplyDefaults()

	client := newRabbitMQClient(pub, conn, pub.confirms, cfg, applyClientOptions(nil))
	t.Cleanup(func() {
		go func() {
			for range client.Responses() {
			}
		}()
		_ = client.Close()
	})
	return client, pub, conn
}

func waitResponse(t *testing.T, ch <-chan Response) Response {
	t.Helper()
	select {
	case resp, ok := <-ch:
		require.True(t, ok, "结果通道已关闭")
		return resp
	case <-time.After(2 * time.Second):
		t.Fatal("等待投递结果超时")
		return Response{}
	}
}

func TestRabbitMQClient_Ack(t *testing.T) {
	client, pub, _ := newTestRabbitMQClient(t)

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

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.published, 1)
	published := pub.published[0]
	assert.Equal(t, "telemetry", published.exchange)
	assert.Equal(t, "spans", published.key)
	assert.Equal(t, "application/json", published.msg.ContentType)
	assert.Equal(t, "T1", published.msg.CorrelationId)
	assert.JSONEq(t, `{"trace.trace_id":"T1","name":"work"}`, string(published.msg.Body))
}

func TestRabbitMQClient_Nack(t *testing.T) {
	client, pub, _ := newTestRabbitMQClient(t)
	pub.nack = true

	ev := client.NewEvent()
	ev.Metadata = "m2"
	require.NoError(t, client.Send(ev))

	resp := waitResponse(t, client.Responses())
	assert.ErrorIs(t, resp.Err, ErrNacked)
	assert.Equal(t, "m2", resp.Metadata)
}

func TestRabbitMQClient_PublishError(t *testing.T) {
	client, pub, _ := newTestRabbitMQClient(t)
	pub.setErr(errors.New("channel closed"))

	ev := client.NewEvent()
	ev.Metadata = "failed"
	require.NoError(t, client.Send(ev))

	resp := waitResponse(t, client.Responses())
	assert.ErrorIs(t, resp.Err, ErrSendMessage)
	assert.Equal(t, "failed", resp.Metadata)

	// 失败的发布不占用投递序号
	pub.setErr(nil)
	ev = client.NewEvent()
	ev.Metadata = "ok"
	require.NoError(t, client.Send(ev))

	resp = waitResponse(t, client.Responses())
	assert.NoError(t, resp.Err)
	assert.Equal(t, "ok", resp.Metadata)
}

func TestRabbitMQClient_Close(t *testing.T) {
	pub := newFakePublisher()
	conn := &fakeConn{}
	cfg := &Config{Type: TypeRabbitMQ, URL: "amqp://localhost", Topic: "spans"}
	cfg.ApplyDefaults()
	client := newRabbitMQClient(pub, conn, pub.confirms, cfg, applyClientOptions(nil))

	for i := range 3 {
		ev := client.NewEvent()
		ev.Metadata = i
		require.NoError(t, client.Send(ev))
	}

	require.NoError(t, client.Close())

	var got []any
	for resp := range client.Responses() {
		assert.NoError(t, resp.Err)
		got = append(got, resp.Metadata)
	}
	assert.Equal(t, []any{0, 1, 2}, got)
	assert.True(t, pub.closed)
	assert.True(t, conn.closed)

	assert.ErrorIs(t, client.Send(client.NewEvent()), ErrClientClosed)
	assert.NoError(t, client.Close())
}

func TestNewRabbitMQClient_InvalidConfig(t *testing.T) {
	_, err := NewRabbitMQClient(nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = NewRabbitMQClient(&Config{Type: TypeRabbitMQ})
	assert.ErrorIs(t, err, ErrNoBrokers)
}
