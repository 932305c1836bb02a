package reporter

import (
	"errors"
	"sync"
	"time"

	"github.com/Tsukikage7/telemetry-kit/logger"
	"github.com/Tsukikage7/telemetry-kit/messaging"
	"github.com/Tsukikage7/telemetry-kit/metrics"
	"github.com/Tsukikage7/telemetry-kit/record"
	"github.com/Tsukikage7/telemetry-kit/recovery"
)

// Transport 通过 messaging.Client 投递记录的上报端.
//
// Client 本身不支持并发，所有调用都在互斥锁内进行. 发送失败（包括发送队列已满）的记录被记录日志后丢弃，
// 不重试. 临界区内发生 panic 后上报端进入失效状态，此后所有记录直接丢弃，不再访问 Client.
//
// 创建时启动一个 goroutine 持续消费 Client.Responses，Close 时等待其退出.
// Close 开始后到达的记录直接丢弃，不会等待 Client 关闭完成.
type Transport struct {
	mu       sync.Mutex
	client   messaging.Client
	poisoned bool
	closing  bool

	logger  logger.Logger
	metrics *metrics.PrometheusCollector

	drained  chan struct{}
	closed   chan struct{}
	closeErr error
}

// TransportOption 配置选项.
type TransportOption func(*Transport)

// WithLogger 设置诊断日志记录器.
func WithLogger(log logger.Logger) TransportOption {
	return func(t *Transport) {
		if log != nil {
			t.logger = log
		}
	}
}

// WithMetrics 设置指标收集器.
func WithMetrics(c *metrics.PrometheusCollector) TransportOption {
	return func(t *Transport) {
		t.metrics = c
	}
}

// NewTransport 创建上报端并启动结果消费 goroutine.
func NewTransport(client messaging.Client, opts ...TransportOption) *Transport {
	t := &Transport{
		client:  client,
		drained: make(chan struct{}),
		closed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Default()
	}

	recovery.Go(t.drain, recovery.WithLogger(t.logger))
	return t
}

// ReportData 实现 Reporter.
func (t *Transport) ReportData(fields record.Fields, timestamp time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.poisoned {
		t.metrics.RecordDrop(metrics.ReasonPoisoned)
		return
	}
	if t.closing {
		t.metrics.RecordDrop(metrics.ReasonClosed)
		return
	}

	err := recovery.Do(func() error {
		ev := t.client.NewEvent()
		ev.Add(fields)
		ev.SetTimestamp(timestamp)
		return t.client.Send(ev)
	}, recovery.WithLogger(t.logger))
	if err == nil {
		return
	}

	var pe *recovery.PanicError
	switch {
	case errors.As(err, &pe):
		t.poisoned = true
		t.metrics.RecordDrop(metrics.ReasonPoisoned)
		t.logger.Errorf("[Reporter] 上报端已失效，后续记录将被丢弃: %v", pe.Value)
	case errors.Is(err, messaging.ErrQueueOverflow):
		t.metrics.RecordDrop(metrics.ReasonBackpressure)
		t.logger.Warnf("[Reporter] 发送队列已满，记录被丢弃: %v", err)
	default:
		t.metrics.RecordDrop(metrics.ReasonSendError)
		t.logger.Errorf("[Reporter] 发送记录失败: %v", err)
	}
}

// Poisoned 返回上报端是否已失效.
func (t *Transport) Poisoned() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.poisoned
}

// Close 关闭 Client 并等待结果消费 goroutine 退出，可重复调用.
//
// 只在标记关闭时持有锁，Client 等待在途记录期间 ReportData 不会被阻塞.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closing {
		t.mu.Unlock()
		<-t.closed
		return t.closeErr
	}
	t.closing = true
	t.mu.Unlock()

	err := recovery.Do(t.client.Close, recovery.WithLogger(t.logger))

	var pe *recovery.PanicError
	if !errors.As(err, &pe) {
		<-t.drained
	}

	t.closeErr = err
	close(t.closed)
	return err
}

// drain 消费投递结果直到 Client 关闭结果通道.
func (t *Transport) drain() {
	defer close(t.drained)

	for resp := range t.client.Responses() {
		if resp.Err != nil {
			t.metrics.RecordDrop(metrics.ReasonResponseError)
			t.logger.Debugf("[Reporter] 记录投递失败: %v", resp.Err)
		}
	}
}
