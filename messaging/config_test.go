package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Tsukikage7/telemetry-kit/retry"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{name: "nil", cfg: nil, wantErr: ErrNilConfig},
		{name: "kafka ok", cfg: &Config{Type: TypeKafka, Brokers: []string{"b:9092"}, Topic: "spans"}},
		{name: "default type is kafka", cfg: &Config{Brokers: []string{"b:9092"}, Topic: "spans"}},
		{name: "kafka no brokers", cfg: &Config{Type: TypeKafka, Topic: "spans"}, wantErr: ErrNoBrokers},
		{name: "kafka no topic", cfg: &Config{Type: TypeKafka, Brokers: []string{"b:9092"}}, wantErr: ErrEmptyTopic},
		{name: "rabbitmq ok", cfg: &Config{Type: TypeRabbitMQ, URL: "amqp://localhost"}},
		{name: "rabbitmq no url", cfg: &Config{Type: TypeRabbitMQ}, wantErr: ErrNoBrokers},
		{name: "redis ok", cfg: &Config{Type: TypeRedis, Addr: "localhost:6379", Topic: "spans"}},
		{name: "redis no addr", cfg: &Config{Type: TypeRedis, Topic: "spans"}, wantErr: ErrNoBrokers},
		{name: "redis no stream", cfg: &Config{Type: TypeRedis, Addr: "localhost:6379"}, wantErr: ErrEmptyTopic},
		{name: "negative max len", cfg: &Config{Type: TypeRedis, Addr: "localhost:6379", Topic: "spans", MaxLen: -1}, wantErr: ErrCreateClient},
		{name: "unsupported", cfg: &Config{Type: "nats"}, wantErr: ErrUnsupportedType},
		{name: "negative queue", cfg: &Config{Type: TypeRabbitMQ, URL: "amqp://localhost", QueueSize: -1}, wantErr: ErrCreateClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, TypeKafka, cfg.Type)
	assert.Equal(t, DefaultQueueSize, cfg.QueueSize)
	assert.Equal(t, DefaultResponseSize, cfg.ResponseSize)
	assert.Equal(t, DefaultFlushInterval, cfg.FlushInterval)
	assert.Equal(t, DefaultPublishTimeout, cfg.PublishTimeout)
	assert.Equal(t, 3, cfg.ConnectRetry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.ConnectRetry.Delay)

	cfg = &Config{QueueSize: 8, ResponseSize: 4, ConnectRetry: retry.Config{MaxAttempts: 1}}
	cfg.ApplyDefaults()
	assert.Equal(t, 8, cfg.QueueSize)
	assert.Equal(t, 4, cfg.ResponseSize)
	assert.Equal(t, 1, cfg.ConnectRetry.MaxAttempts)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(&Config{
		Type:           TypeRedis,
		Addr:           "127.0.0.1:1",
		Topic:          "spans",
		PublishTimeout: 50 * time.Millisecond,
		ConnectRetry:   retry.Config{MaxAttempts: 2, Delay: time.Millisecond},
	})
	assert.ErrorIs(t, err, ErrCreateClient)
}

func TestNewClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = NewClient(&Config{Type: "nats"})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = NewClient(&Config{Type: TypeKafka, Topic: "spans"})
	assert.ErrorIs(t, err, ErrNoBrokers)
}
