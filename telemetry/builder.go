package telemetry

import (
	"errors"
	"io"

	"github.com/Tsukikage7/telemetry-kit/logger"
	"github.com/Tsukikage7/telemetry-kit/messaging"
	"github.com/Tsukikage7/telemetry-kit/metrics"
	"github.com/Tsukikage7/telemetry-kit/reporter"
	"github.com/Tsukikage7/telemetry-kit/sampler"
)

// Builder 构建 Telemetry.
//
// 示例:
//
//	tel := telemetry.NewTransportBuilder("checkout", client).
//	    WithTraceSampling(4).
//	    WithLogger(log).
//	    MustBuild()
type Builder struct {
	serviceName string
	reporter    reporter.Reporter
	client      messaging.Client
	sampleRate  *uint32
	logger      logger.Logger
	metrics     *metrics.PrometheusCollector
	closers     []io.Closer
}

// NewBuilder 使用任意上报端创建构建器.
func NewBuilder(serviceName string, r reporter.Reporter) *Builder {
	return &Builder{serviceName: serviceName, reporter: r}
}

// NewStdoutBuilder 创建输出到标准输出的构建器，用于本地调试.
func NewStdoutBuilder(serviceName string) *Builder {
	return NewBuilder(serviceName, reporter.NewStdout())
}

// NewTransportBuilder 创建通过 messaging.Client 投递的构建器.
//
// Build 时创建 reporter.Transport 并启动结果消费 goroutine，Close 时关闭 client.
func NewTransportBuilder(serviceName string, client messaging.Client) *Builder {
	return &Builder{serviceName: serviceName, client: client}
}

// NewBlackholeBuilder 创建丢弃所有记录的构建器.
func NewBlackholeBuilder(serviceName string) *Builder {
	return NewBuilder(serviceName, reporter.Discard)
}

// WithTraceSampling 按链路采样，每 rate 条链路保留 1 条.
//
// rate 为 1 时保留全部，为 0 时 Build 返回 ErrInvalidSampleRate.
func (b *Builder) WithTraceSampling(rate uint32) *Builder {
	b.sampleRate = &rate
	return b
}

// WithLogger 设置诊断日志记录器.
func (b *Builder) WithLogger(log logger.Logger) *Builder {
	b.logger = log
	return b
}

// WithMetrics 设置指标收集器.
func (b *Builder) WithMetrics(c *metrics.PrometheusCollector) *Builder {
	b.metrics = c
	return b
}

// withCloser 登记随 Telemetry 关闭的资源.
func (b *Builder) withCloser(c io.Closer) *Builder {
	b.closers = append(b.closers, c)
	return b
}

// Build 构建 Telemetry.
func (b *Builder) Build() (*Telemetry, error) {
	if b.serviceName == "" {
		return nil, ErrEmptyServiceName
	}
	if b.reporter == nil && b.client == nil {
		return nil, ErrNilReporter
	}

	var s *sampler.Sampler
	if b.sampleRate != nil {
		var err error
		if s, err = sampler.New(*b.sampleRate); err != nil {
			return nil, errors.Join(ErrInvalidSampleRate, err)
		}
	}

	log := b.logger
	if log == nil {
		log = logger.Default()
	}

	r := b.reporter
	if r == nil {
		r = reporter.NewTransport(b.client,
			reporter.WithLogger(log),
			reporter.WithMetrics(b.metrics),
		)
	}

	t := &Telemetry{
		serviceName: b.serviceName,
		reporter:    r,
		sampler:     s,
		logger:      log,
		metrics:     b.metrics,
		closers:     b.closers,
	}

	log.With(
		logger.String("service", b.serviceName),
		logger.Int64("sample_rate", int64(s.Rate())),
	).Debug("[Telemetry] 初始化完成")

	return t, nil
}

// MustBuild 构建 Telemetry，失败时 panic.
func (b *Builder) MustBuild() *Telemetry {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
