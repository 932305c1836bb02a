// Package messaging 提供遥测记录的外部接入客户端.
//
// Client 的语义与 Honeycomb libhoney 一致：调用方先 NewEvent，填充字段和时间戳后 Send，
// Send 只把事件放入有界队列，由后台 goroutine 异步投递. 投递结果写入有界的 Responses 通道，
// 调用方必须持续消费该通道，否则通道写满后投递停滞，最终 Send 全部返回 ErrQueueOverflow.
//
// 目前支持 Kafka（sarama AsyncProducer）、RabbitMQ（amqp091 发布确认）和 Redis Stream（go-redis XADD）.
//
// 示例:
//
//	client, _ := messaging.NewClient(&messaging.Config{
//	    Type:    messaging.TypeKafka,
//	    Brokers: []string{"localhost:9092"},
//	    Topic:   "spans",
//	})
//	go func() {
//	    for range client.Responses() {
//	    }
//	}()
//	ev := client.NewEvent()
//	ev.Add(fields)
//	ev.SetTimestamp(ts)
//	if err := client.Send(ev); err != nil {
//	    // 队列已满，记录被丢弃
//	}
package messaging

import (
	"time"

	"github.com/Tsukikage7/telemetry-kit/logger"
	"github.com/Tsukikage7/telemetry-kit/record"
)

// 客户端类型.
const (
	TypeKafka    = "kafka"
	TypeRabbitMQ = "rabbitmq"
	TypeRedis    = "redis"
)

// Client 外部接入端客户端.
//
// Client 不支持并发调用，多个 goroutine 共用时需要由调用方加锁.
type Client interface {
	// NewEvent 创建一个空事件.
	NewEvent() *Event
	// Send 将事件放入发送队列，队列已满时立即返回 ErrQueueOverflow，不会阻塞.
	Send(ev *Event) error
	// Responses 返回投递结果通道，客户端关闭后该通道被关闭.
	Responses() <-chan Response
	// Close 停止接收新事件，等待在途事件投递完成.
	Close() error
}

// Event 待投递的事件.
type Event struct {
	// Fields 展平后的字段.
	Fields record.Fields
	// Timestamp 事件时间.
	Timestamp time.Time
	// Metadata 调用方附带的数据，原样出现在对应的 Response 中.
	Metadata any

	enqueuedAt time.Time
}

// Add 合并字段，同名字段被覆盖.
func (e *Event) Add(fields record.Fields) {
	if e.Fields == nil {
		e.Fields = make(record.Fields, len(fields))
	}
	for k, v := range fields {
		e.Fields[k] = v
	}
}

// AddField 添加单个字段.
func (e *Event) AddField(key string, value any) {
	if e.Fields == nil {
		e.Fields = make(record.Fields)
	}
	e.Fields[key] = record.ValueOf(value)
}

// SetTimestamp 设置事件时间.
func (e *Event) SetTimestamp(t time.Time) {
	e.Timestamp = t
}

// Response 投递结果.
type Response struct {
	// Metadata 对应 Event.Metadata.
	Metadata any
	// Err 投递失败原因，成功时为 nil.
	Err error
	// Duration 从入队到收到确认的耗时.
	Duration time.Duration
}

// ClientOption 客户端配置选项.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger logger.Logger
}

// WithClientLogger 设置日志记录器.
func WithClientLogger(log logger.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = log
	}
}

func applyClientOptions(opts []ClientOption) *clientOptions {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewClient 根据配置创建客户端.
func NewClient(cfg *Config, opts ...ClientOption) (Client, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	switch cfg.Type {
	case TypeKafka, "":
		return NewKafkaClient(cfg, opts...)
	case TypeRabbitMQ:
		return NewRabbitMQClient(cfg, opts...)
	case TypeRedis:
		return NewRedisClient(cfg, opts...)
	default:
		return nil, ErrUnsupportedType
	}
}
