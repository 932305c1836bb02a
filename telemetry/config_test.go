package telemetry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tsukikage7/telemetry-kit/config"
	"github.com/Tsukikage7/telemetry-kit/logger"
	"github.com/Tsukikage7/telemetry-kit/messaging"
	"github.com/Tsukikage7/telemetry-kit/record"
)

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service_name: checkout
reporter: kafka
sample_rate: 10
messaging:
  brokers: ["k1:9092"]
  topic: spans
  queue_size: 64
  flush_interval: 50ms
logger:
  level: warn
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "checkout", cfg.ServiceName)
	assert.Equal(t, ReporterKafka, cfg.Reporter)
	require.NotNil(t, cfg.SampleRate)
	assert.Equal(t, uint32(10), *cfg.SampleRate)
	assert.Equal(t, messaging.TypeKafka, cfg.Messaging.Type)
	assert.Equal(t, []string{"k1:9092"}, cfg.Messaging.Brokers)
	assert.Equal(t, 64, cfg.Messaging.QueueSize)
	assert.Equal(t, messaging.DefaultResponseSize, cfg.Messaging.ResponseSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Messaging.FlushInterval)
	assert.Equal(t, logger.LevelWarn, cfg.Logger.Level)
	assert.Equal(t, "checkout", cfg.Logger.ServiceName)
	assert.Equal(t, "telemetry", cfg.Metrics.Namespace)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service_name: checkout\nreporter: stdout\n"), 0o644))
	t.Setenv("TELEMETRY_REPORTER", "discard")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ReporterDiscard, cfg.Reporter)
	assert.Nil(t, cfg.SampleRate)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reporter: stdout\n"), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, config.ErrValidation)
	assert.ErrorIs(t, err, ErrEmptyServiceName)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"service_name":"checkout","reporter":"rabbitmq","messaging":{"url":"amqp://localhost"}}`), "json")
	require.NoError(t, err)
	assert.Equal(t, messaging.TypeRabbitMQ, cfg.Messaging.Type)
	assert.Equal(t, messaging.DefaultPublishTimeout, cfg.Messaging.PublishTimeout)
}

func TestConfig_Validate(t *testing.T) {
	zero := uint32(0)
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{name: "nil", cfg: nil, wantErr: ErrNilConfig},
		{name: "empty service", cfg: &Config{}, wantErr: ErrEmptyServiceName},
		{name: "zero rate", cfg: &Config{ServiceName: "s", SampleRate: &zero}, wantErr: ErrInvalidSampleRate},
		{name: "unknown reporter", cfg: &Config{ServiceName: "s", Reporter: "udp"}, wantErr: ErrUnknownReporter},
		{name: "kafka without brokers", cfg: &Config{ServiceName: "s", Reporter: ReporterKafka}, wantErr: messaging.ErrNoBrokers},
		{name: "redis without stream", cfg: &Config{ServiceName: "s", Reporter: ReporterRedis, Messaging: messaging.Config{Addr: "localhost:6379"}}, wantErr: messaging.ErrEmptyTopic},
		{name: "stdout", cfg: &Config{ServiceName: "s", Reporter: ReporterStdout}},
		{name: "default reporter", cfg: &Config{ServiceName: "s"}},
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

func TestNewFromConfig(t *testing.T) {
	rate := uint32(4)
	tel, err := NewFromConfig(&Config{ServiceName: "checkout", Reporter: ReporterDiscard, SampleRate: &rate})
	require.NoError(t, err)

	assert.Equal(t, "checkout", tel.ServiceName())
	assert.Equal(t, uint32(4), tel.SampleRate())
	assert.NotNil(t, tel.Metrics())
	assert.NotPanics(t, func() {
		tel.ReportSpan(&record.Span{TraceID: "T1", ID: "S1", Name: "work"})
	})
	assert.NoError(t, tel.Close())
}

func TestNewFromConfig_Errors(t *testing.T) {
	_, err := NewFromConfig(nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = NewFromConfig(&Config{ServiceName: "checkout", Reporter: ReporterKafka})
	assert.ErrorIs(t, err, messaging.ErrNoBrokers)

	_, err = NewFromConfig(&Config{ServiceName: "checkout", Logger: logger.Config{Level: "loud"}})
	var cfgErr *logger.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
