package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/IBM/sarama"

	"github.com/Tsukikage7/telemetry-kit/logger"
	"github.com/Tsukikage7/telemetry-kit/record"
	"github.com/Tsukikage7/telemetry-kit/retry"
)

// KafkaClient 基于 sarama AsyncProducer 的接入客户端.
//
// 消息值为字段的 JSON 编码，消息键为 trace id，保证同一条链路落在同一分区.
// 重试、批量发送由 sarama 负责.
type KafkaClient struct {
	*pipeline

	producer sarama.AsyncProducer
	topic    string
	logger   logger.Logger
}

// NewKafkaClient 创建 Kafka 客户端.
func NewKafkaClient(cfg *Config, opts ...ClientOption) (*KafkaClient, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg.Topic == "" {
		return nil, ErrEmptyTopic
	}
	cfg.ApplyDefaults()

	var producer sarama.AsyncProducer
	err := retry.Do(context.Background(), &cfg.ConnectRetry, func(context.Context) error {
		var err error
		producer, err = sarama.NewAsyncProducer(cfg.Brokers, newSaramaConfig(cfg))
		return err
	})
	if err != nil {
		return nil, errors.Join(ErrCreateClient, err)
	}

	c := newKafkaClient(producer, cfg, applyClientOptions(opts))
	if c.logger != nil {
		c.logger.Debugf("[Messaging] Kafka客户端启动: brokers=%v topic=%s", cfg.Brokers, cfg.Topic)
	}
	return c, nil
}

// newSaramaConfig 构建 sarama 配置.
func newSaramaConfig(cfg *Config) *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V3_8_0_0
	config.ClientID = "telemetry-kit"
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Retry.Max = 3
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = cfg.FlushInterval
	config.ChannelBufferSize = cfg.QueueSize
	return config
}

// newKafkaClient 使用已有的 producer 创建客户端.
func newKafkaClient(producer sarama.AsyncProducer, cfg *Config, o *clientOptions) *KafkaClient {
	c := &KafkaClient{
		pipeline: newPipeline(cfg.QueueSize, cfg.ResponseSize),
		producer: producer,
		topic:    cfg.Topic,
		logger:   o.logger,
	}

	go c.pump()
	go c.forward()

	return c
}

// NewEvent 创建空事件.
func (c *KafkaClient) NewEvent() *Event {
	return c.newEvent()
}

// Send 将事件放入发送队列.
func (c *KafkaClient) Send(ev *Event) error {
	return c.enqueue(ev)
}

// Responses 返回投递结果通道.
func (c *KafkaClient) Responses() <-chan Response {
	return c.responses
}

// Close 关闭客户端，等待在途消息得到确认.
//
// 调用方必须在 Close 返回前持续消费 Responses.
func (c *KafkaClient) Close() error {
	if c.shutdown() {
		c.wait()
	}
	return nil
}

// pump 将队列中的事件转交给 producer，队列关闭后关闭 producer.
func (c *KafkaClient) pump() {
	defer c.producer.AsyncClose()

	for ev := range c.queue {
		msg, err := c.buildMessage(ev)
		if err != nil {
			c.respond(ev.Metadata, ev.enqueuedAt, err)
			continue
		}
		c.producer.Input() <- msg
	}
}

// buildMessage 构建 sarama 消息.
func (c *KafkaClient) buildMessage(ev *Event) (*sarama.ProducerMessage, error) {
	value, err := encodeFields(ev)
	if err != nil {
		return nil, err
	}

	msg := &sarama.ProducerMessage{
		Topic:     c.topic,
		Value:     sarama.ByteEncoder(value),
		Timestamp: ev.Timestamp,
		Metadata:  &inflight{metadata: ev.Metadata, enqueuedAt: ev.enqueuedAt},
	}
	if traceID := ev.Fields[record.FieldTraceID].AsString(); traceID != "" {
		msg.Key = sarama.StringEncoder(traceID)
	}
	return msg, nil
}

// forward 合并 Successes 与 Errors 写入结果通道，两者都关闭后结束.
func (c *KafkaClient) forward() {
	defer c.finish()

	successes := c.producer.Successes()
	errs := c.producer.Errors()

	for successes != nil || errs != nil {
		select {
		case msg, ok := <-successes:
			if !ok {
				successes = nil
				continue
			}
			metadata, enqueuedAt := unwrapMetadata(msg.Metadata)
			c.respond(metadata, enqueuedAt, nil)
		case perr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			var metadata any
			enqueuedAt := time.Now()
			if perr.Msg != nil {
				metadata, enqueuedAt = unwrapMetadata(perr.Msg.Metadata)
			}
			c.respond(metadata, enqueuedAt, errors.Join(ErrSendMessage, perr.Err))
		}
	}
}

func unwrapMetadata(v any) (any, time.Time) {
	if in, ok := v.(*inflight); ok {
		return in.metadata, in.enqueuedAt
	}
	return v, time.Now()
}
