package messaging

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Tsukikage7/telemetry-kit/logger"
	"github.com/Tsukikage7/telemetry-kit/record"
	"github.com/Tsukikage7/telemetry-kit/retry"
)

// amqpPublisher RabbitMQ channel 的发布能力.
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQClient 基于 amqp091 发布确认的接入客户端.
//
// 每条确认（ack/nack）对应一条 Response. amqp091 要求 NotifyPublish 通道被持续消费，
// 否则 channel 阻塞，这里把确认转发到 Responses，同样需要调用方消费.
type RabbitMQClient struct {
	*pipeline

	channel  amqpPublisher
	conn     io.Closer
	confirms <-chan amqp.Confirmation

	exchange       string
	routingKey     string
	publishTimeout time.Duration
	logger         logger.Logger

	mu       sync.Mutex
	tag      uint64
	inflight map[uint64]*inflight
}

// NewRabbitMQClient 创建 RabbitMQ 客户端.
func NewRabbitMQClient(cfg *Config, opts ...ClientOption) (*RabbitMQClient, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if cfg.URL == "" {
		return nil, ErrNoBrokers
	}
	cfg.ApplyDefaults()

	var conn *amqp.Connection
	err := retry.Do(context.Background(), &cfg.ConnectRetry, func(context.Context) error {
		var err error
		conn, err = amqp.Dial(cfg.URL)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateClient, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrCreateClient, err)
	}

	if cfg.Exchange != "" {
		if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("声明交换机失败: %w", err)
		}
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("启用发布确认失败: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, cfg.ResponseSize))

	c := newRabbitMQClient(ch, conn, confirms, cfg, applyClientOptions(opts))
	if c.logger != nil {
		c.logger.Debugf("[Messaging] RabbitMQ客户端启动: exchange=%s routingKey=%s", cfg.Exchange, cfg.Topic)
	}
	return c, nil
}

// newRabbitMQClient 使用已有的 channel 创建客户端.
func newRabbitMQClient(ch amqpPublisher, conn io.Closer, confirms <-chan amqp.Confirmation, cfg *Config, o *clientOptions) *RabbitMQClient {
	c := &RabbitMQClient{
		pipeline:       newPipeline(cfg.QueueSize, cfg.ResponseSize),
		channel:        ch,
		conn:           conn,
		confirms:       confirms,
		exchange:       cfg.Exchange,
		routingKey:     cfg.Topic,
		publishTimeout: cfg.PublishTimeout,
		logger:         o.logger,
		inflight:       make(map[uint64]*inflight),
	}

	go c.pump()
	go c.forward()

	return c
}

// NewEvent 创建空事件.
func (c *RabbitMQClient) NewEvent() *Event {
	return c.newEvent()
}

// Send 将事件放入发送队列.
func (c *RabbitMQClient) Send(ev *Event) error {
	return c.enqueue(ev)
}

// Responses 返回投递结果通道.
func (c *RabbitMQClient) Responses() <-chan Response {
	return c.responses
}

// Close 关闭客户端，等待在途消息得到确认后关闭连接.
//
// 调用方必须在 Close 返回前持续消费 Responses.
func (c *RabbitMQClient) Close() error {
	if !c.shutdown() {
		return nil
	}
	c.wait()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// pump 逐条发布队列中的事件，队列关闭后关闭 channel.
func (c *RabbitMQClient) pump() {
	defer c.channel.Close()

	for ev := range c.queue {
		if err := c.publish(ev); err != nil {
			c.respond(ev.Metadata, ev.enqueuedAt, err)
		}
	}
	c.awaitConfirms()
}

// awaitConfirms 等待在途消息确认，最长等待一个发布超时.
func (c *RabbitMQClient) awaitConfirms() {
	deadline := time.NewTimer(c.publishTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for c.pending() > 0 {
		select {
		case <-deadline.C:
			return
		case <-ticker.C:
		}
	}
}

func (c *RabbitMQClient) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

func (c *RabbitMQClient) publish(ev *Event) error {
	body, err := encodeFields(ev)
	if err != nil {
		return err
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.Timestamp,
	}
	if traceID := ev.Fields[record.FieldTraceID].AsString(); traceID != "" {
		publishing.CorrelationId = traceID
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.publishTimeout)
	defer cancel()

	// 先登记再发布，避免确认先于登记到达
	c.mu.Lock()
	c.tag++
	tag := c.tag
	c.inflight[tag] = &inflight{metadata: ev.Metadata, enqueuedAt: ev.enqueuedAt}
	c.mu.Unlock()

	if err := c.channel.PublishWithContext(ctx, c.exchange, c.routingKey, false, false, publishing); err != nil {
		c.mu.Lock()
		delete(c.inflight, tag)
		c.tag--
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrSendMessage, err)
	}
	return nil
}

// forward 将发布确认写入结果通道，confirms 关闭后结束.
func (c *RabbitMQClient) forward() {
	defer c.finish()

	for confirm := range c.confirms {
		c.mu.Lock()
		in, ok := c.inflight[confirm.DeliveryTag]
		delete(c.inflight, confirm.DeliveryTag)
		c.mu.Unlock()

		var metadata any
		enqueuedAt := time.Now()
		if ok {
			metadata, enqueuedAt = in.metadata, in.enqueuedAt
		}

		var err error
		if !confirm.Ack {
			err = ErrNacked
		}
		c.respond(metadata, enqueuedAt, err)
	}

	c.mu.Lock()
	pending := len(c.inflight)
	clear(c.inflight)
	c.mu.Unlock()
	if pending > 0 && c.logger != nil {
		c.logger.Warnf("[Messaging] RabbitMQ channel 关闭，%d 条消息未确认", pending)
	}
}
