// Package metrics 提供遥测上报链路的 Prometheus 指标.
package metrics

import (
	"net/http"
	"time"
)

// 记录处理结果.
const (
	OutcomeReported   = "reported"
	OutcomeSampledOut = "sampled_out"
)

// 丢弃原因.
const (
	ReasonBackpressure  = "backpressure"
	ReasonSendError     = "send_error"
	ReasonPoisoned      = "poisoned"
	ReasonResponseError = "response_error"
	ReasonClosed        = "closed"
)

// Collector 指标收集器接口.
type Collector interface {
	// 上报链路指标
	RecordReport(kind, outcome string)
	RecordDrop(reason string)
	ObserveReportDuration(kind string, duration time.Duration)

	// 自定义指标
	Counter(name string, labels map[string]string)
	Histogram(name string, value float64, labels map[string]string)
	Gauge(name string, value float64, labels map[string]string)

	// Handler
	GetHandler() http.Handler
	GetPath() string
}

// NewMetrics 创建指标收集器.
func NewMetrics(cfg *Config) (*PrometheusCollector, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	return NewPrometheus(cfg)
}

// MustNewMetrics 创建指标收集器，失败时 panic.
func MustNewMetrics(cfg *Config) *PrometheusCollector {
	c, err := NewMetrics(cfg)
	if err != nil {
		panic(err)
	}
	return c
}
