package telemetry

import (
	"fmt"

	"github.com/Tsukikage7/telemetry-kit/config"
	"github.com/Tsukikage7/telemetry-kit/logger"
	"github.com/Tsukikage7/telemetry-kit/messaging"
	"github.com/Tsukikage7/telemetry-kit/metrics"
)

// 上报端类型.
const (
	ReporterStdout   = "stdout"
	ReporterKafka    = messaging.TypeKafka
	ReporterRabbitMQ = messaging.TypeRabbitMQ
	ReporterRedis    = messaging.TypeRedis
	ReporterDiscard  = "discard"
)

// EnvPrefix 环境变量前缀，例如 TELEMETRY_SAMPLE_RATE.
const EnvPrefix = "TELEMETRY"

// Config 遥测配置.
//
// 示例:
//
//	service_name: checkout
//	reporter: kafka
//	sample_rate: 10
//	messaging:
//	  brokers: ["localhost:9092"]
//	  topic: spans
//	logger:
//	  level: info
type Config struct {
	// ServiceName 服务名，必填.
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`

	// Reporter 上报端类型，支持: stdout（默认）、kafka、rabbitmq、redis、discard.
	Reporter string `json:"reporter" yaml:"reporter" mapstructure:"reporter"`

	// SampleRate 采样率，每 N 条链路保留 1 条，不设置时全部保留.
	SampleRate *uint32 `json:"sample_rate" yaml:"sample_rate" mapstructure:"sample_rate"`

	// Messaging 接入端配置，reporter 为 kafka、rabbitmq 或 redis 时使用.
	Messaging messaging.Config `json:"messaging" yaml:"messaging" mapstructure:"messaging"`

	// Logger 诊断日志配置.
	Logger logger.Config `json:"logger" yaml:"logger" mapstructure:"logger"`

	// Metrics 指标配置.
	Metrics metrics.Config `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

// ApplyDefaults 应用默认值.
func (c *Config) ApplyDefaults() {
	if c.Reporter == "" {
		c.Reporter = ReporterStdout
	}
	if c.usesMessaging() {
		c.Messaging.Type = c.Reporter
		c.Messaging.ApplyDefaults()
	}
	if c.Logger.ServiceName == "" {
		c.Logger.ServiceName = c.ServiceName
	}
	c.Logger.ApplyDefaults()

	defaults := metrics.DefaultConfig()
	if c.Metrics.Path == "" {
		c.Metrics.Path = defaults.Path
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = defaults.Namespace
	}
}

// Validate 验证配置.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if c.ServiceName == "" {
		return ErrEmptyServiceName
	}
	if c.SampleRate != nil && *c.SampleRate == 0 {
		return ErrInvalidSampleRate
	}

	switch c.Reporter {
	case ReporterStdout, ReporterDiscard, "":
	case ReporterKafka, ReporterRabbitMQ, ReporterRedis:
		msg := c.Messaging
		msg.Type = c.Reporter
		if err := msg.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownReporter, c.Reporter)
	}

	return c.Logger.Validate()
}

func (c *Config) usesMessaging() bool {
	switch c.Reporter {
	case ReporterKafka, ReporterRabbitMQ, ReporterRedis:
		return true
	}
	return false
}

// LoadConfig 从文件加载配置，环境变量使用 TELEMETRY 前缀覆盖.
func LoadConfig(path string, opts ...config.Option) (*Config, error) {
	opts = append([]config.Option{config.WithEnvPrefix(EnvPrefix)}, opts...)
	return config.Load[Config](path, opts...)
}

// ParseConfig 从字节数组解析配置.
func ParseConfig(data []byte, configType string) (*Config, error) {
	return config.LoadFromBytes[Config](data, configType, config.WithEnvPrefix(EnvPrefix))
}

// NewFromConfig 根据配置创建 Telemetry，包括日志、指标和接入客户端.
func NewFromConfig(cfg *Config) (*Telemetry, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("创建日志记录器失败: %w", err)
	}

	collector, err := metrics.NewMetrics(&cfg.Metrics)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("创建指标收集器失败: %w", err)
	}

	var b *Builder
	switch cfg.Reporter {
	case ReporterDiscard:
		b = NewBlackholeBuilder(cfg.ServiceName)
	case ReporterKafka, ReporterRabbitMQ, ReporterRedis:
		client, err := messaging.NewClient(&cfg.Messaging, messaging.WithClientLogger(log))
		if err != nil {
			log.Close()
			return nil, err
		}
		b = NewTransportBuilder(cfg.ServiceName, client)
	default:
		b = NewStdoutBuilder(cfg.ServiceName)
	}

	if cfg.SampleRate != nil {
		b.WithTraceSampling(*cfg.SampleRate)
	}

	t, err := b.WithLogger(log).WithMetrics(collector).withCloser(log).Build()
	if err != nil {
		log.Close()
		return nil, err
	}
	return t, nil
}
