package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Tsukikage7/telemetry-kit/logger"
	"github.com/Tsukikage7/telemetry-kit/record"
	"github.com/Tsukikage7/telemetry-kit/retry"
)

// streamAdder Redis Stream 的写入能力.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisClient 基于 Redis Stream 的接入客户端.
//
// 每条记录写入一个 stream entry，字段 data 为 JSON 编码，trace_id 便于消费端按链路聚合.
// XADD 返回即视为投递完成.
type RedisClient struct {
	*pipeline

	client         streamAdder
	stream         string
	maxLen         int64
	publishTimeout time.Duration
	logger         logger.Logger
}

// NewRedisClient 创建 Redis Stream 客户端.
func NewRedisClient(cfg *Config, opts ...ClientOption) (*RedisClient, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if cfg.Addr == "" {
		return nil, ErrNoBrokers
	}
	if cfg.Topic == "" {
		return nil, ErrEmptyTopic
	}
	cfg.ApplyDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := retry.Do(context.Background(), &cfg.ConnectRetry, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.PublishTimeout)
		defer cancel()
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("%w: %v", ErrCreateClient, err)
	}

	c := newRedisClient(rdb, cfg, applyClientOptions(opts))
	if c.logger != nil {
		c.logger.Debugf("[Messaging] Redis客户端启动: addr=%s stream=%s", cfg.Addr, cfg.Topic)
	}
	return c, nil
}

// newRedisClient 使用已有的连接创建客户端.
func newRedisClient(client streamAdder, cfg *Config, o *clientOptions) *RedisClient {
	c := &RedisClient{
		pipeline:       newPipeline(cfg.QueueSize, cfg.ResponseSize),
		client:         client,
		stream:         cfg.Topic,
		maxLen:         cfg.MaxLen,
		publishTimeout: cfg.PublishTimeout,
		logger:         o.logger,
	}

	go c.pump()

	return c
}

// NewEvent 创建空事件.
func (c *RedisClient) NewEvent() *Event {
	return c.newEvent()
}

// Send 将事件放入发送队列.
func (c *RedisClient) Send(ev *Event) error {
	return c.enqueue(ev)
}

// Responses 返回投递结果通道.
func (c *RedisClient) Responses() <-chan Response {
	return c.responses
}

// Close 关闭客户端，等待队列中的事件写入完成后关闭连接.
//
// 调用方必须在 Close 返回前持续消费 Responses.
func (c *RedisClient) Close() error {
	if !c.shutdown() {
		return nil
	}
	c.wait()
	return c.client.Close()
}

// pump 逐条写入队列中的事件.
func (c *RedisClient) pump() {
	defer c.finish()

	for ev := range c.queue {
		c.respond(ev.Metadata, ev.enqueuedAt, c.add(ev))
	}
}

func (c *RedisClient) add(ev *Event) error {
	data, err := encodeFields(ev)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: c.stream,
		Values: map[string]any{
			"data":      data,
			"trace_id":  ev.Fields[record.FieldTraceID].AsString(),
			"timestamp": ev.Timestamp.UnixMilli(),
		},
	}
	if c.maxLen > 0 {
		args.MaxLen = c.maxLen
		args.Approx = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.publishTimeout)
	defer cancel()

	if err := c.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSendMessage, err)
	}
	return nil
}
