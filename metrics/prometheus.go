package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector Prometheus 指标收集器实现.
//
// 所有方法均可并发调用，nil 收集器上的上报方法为空操作.
type PrometheusCollector struct {
	config *Config

	recordsTotal   *prometheus.CounterVec
	droppedTotal   *prometheus.CounterVec
	reportDuration *prometheus.HistogramVec

	// 自定义指标注册表
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
	mu         sync.RWMutex

	registry *prometheus.Registry
}

// NewPrometheus 创建 Prometheus 指标收集器.
func NewPrometheus(cfg *Config) (*PrometheusCollector, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "telemetry"
	}
	namespace := cfg.Namespace

	// 创建新的注册表，避免与默认注册表冲突
	registry := prometheus.NewRegistry()

	c := &PrometheusCollector{
		config:     cfg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		registry:   registry,
	}

	c.recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Total number of spans and events seen by the reporter, by outcome",
		},
		[]string{"kind", "outcome"},
	)

	c.droppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_total",
			Help:      "Total number of records dropped after sampling",
		},
		[]string{"reason"},
	)

	c.reportDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "Time spent flattening and handing a record to the reporter",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
		[]string{"kind"},
	)

	for _, collector := range []prometheus.Collector{c.recordsTotal, c.droppedTotal, c.reportDuration} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRegisterMetric, err)
		}
	}

	return c, nil
}

// RecordReport 记录一条 span/event 的处理结果.
func (c *PrometheusCollector) RecordReport(kind, outcome string) {
	if c == nil {
		return
	}
	c.recordsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordDrop 记录一次丢弃.
func (c *PrometheusCollector) RecordDrop(reason string) {
	if c == nil {
		return
	}
	c.droppedTotal.WithLabelValues(reason).Inc()
}

// ObserveReportDuration 记录上报耗时.
func (c *PrometheusCollector) ObserveReportDuration(kind string, duration time.Duration) {
	if c == nil {
		return
	}
	c.reportDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// Counter 增加计数器.
//
// 使用示例:
//
//	collector.Counter("kafka_responses_total", map[string]string{"topic": "spans"})
func (c *PrometheusCollector) Counter(name string, labels map[string]string) {
	if c == nil {
		return
	}

	c.mu.RLock()
	counter, exists := c.counters[name]
	c.mu.RUnlock()

	// 提取 label 名称和值（保持顺序一致）
	labelNames, labelValues := extractLabels(labels)

	if !exists {
		c.mu.Lock()
		// 双重检查
		if counter, exists = c.counters[name]; !exists {
			counter = prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: c.config.Namespace,
					Name:      name,
					Help:      "Custom counter: " + name,
				},
				labelNames,
			)

			if err := c.registry.Register(counter); err == nil {
				c.counters[name] = counter
			} else {
				counter = nil
			}
		}
		c.mu.Unlock()
	}

	if counter != nil {
		counter.WithLabelValues(labelValues...).Inc()
	}
}

// Histogram 观察自定义直方图.
func (c *PrometheusCollector) Histogram(name string, value float64, labels map[string]string) {
	if c == nil {
		return
	}

	c.mu.RLock()
	histogram, exists := c.histograms[name]
	c.mu.RUnlock()

	labelNames, labelValues := extractLabels(labels)

	if !exists {
		c.mu.Lock()
		if histogram, exists = c.histograms[name]; !exists {
			histogram = prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: c.config.Namespace,
					Name:      name,
					Help:      "Custom histogram: " + name,
					Buckets:   prometheus.DefBuckets,
				},
				labelNames,
			)

			if err := c.registry.Register(histogram); err == nil {
				c.histograms[name] = histogram
			} else {
				histogram = nil
			}
		}
		c.mu.Unlock()
	}

	if histogram != nil {
		histogram.WithLabelValues(labelValues...).Observe(value)
	}
}

// Gauge 设置自定义仪表盘.
func (c *PrometheusCollector) Gauge(name string, value float64, labels map[string]string) {
	if c == nil {
		return
	}

	c.mu.RLock()
	gauge, exists := c.gauges[name]
	c.mu.RUnlock()

	labelNames, labelValues := extractLabels(labels)

	if !exists {
		c.mu.Lock()
		if gauge, exists = c.gauges[name]; !exists {
			gauge = prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: c.config.Namespace,
					Name:      name,
					Help:      "Custom gauge: " + name,
				},
				labelNames,
			)

			if err := c.registry.Register(gauge); err == nil {
				c.gauges[name] = gauge
			} else {
				gauge = nil
			}
		}
		c.mu.Unlock()
	}

	if gauge != nil {
		gauge.WithLabelValues(labelValues...).Set(value)
	}
}

// extractLabels 从 map 中提取 label 名称和值，确保顺序一致.
func extractLabels(labels map[string]string) ([]string, []string) {
	labelNames := make([]string, 0, len(labels))
	for k := range labels {
		labelNames = append(labelNames, k)
	}
	sort.Strings(labelNames)

	labelValues := make([]string, 0, len(labels))
	for _, k := range labelNames {
		labelValues = append(labelValues, labels[k])
	}

	return labelNames, labelValues
}

// Registry 返回底层注册表.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}

// GetHandler 返回 metrics 的 HTTP 处理器.
func (c *PrometheusCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// GetPath 返回 metrics 路径.
func (c *PrometheusCollector) GetPath() string {
	if c.config.Path == "" {
		return "/metrics"
	}
	return c.config.Path
}
