// Package tracing 将 OpenTelemetry SDK 结束的 span 转交给遥测上报.
//
// 业务代码继续使用 OpenTelemetry API 创建 span，SDK 在 span 结束时调用 Exporter，
// Exporter 把 span 及其 event 转换为 record.Span / record.Event 后上报.
// SDK 一侧始终全量采样，是否上报由上报端按 TraceID 决定.
package tracing

import (
	"errors"
	"time"
)

// 预定义错误.
var (
	// ErrNilConfig 配置为空.
	ErrNilConfig = errors.New("tracing: 配置为空")

	// ErrNilReporter 上报端为空.
	ErrNilReporter = errors.New("tracing: 上报端为空")

	// ErrCreateExporter 创建导出器失败.
	ErrCreateExporter = errors.New("tracing: 创建导出器失败")

	// ErrCreateResource 创建资源失败.
	ErrCreateResource = errors.New("tracing: 创建资源失败")
)

// Config 链路追踪配置.
type Config struct {
	// ServiceVersion 服务版本[可选]
	ServiceVersion string `json:"service_version" yaml:"service_version" mapstructure:"service_version"`

	// Synchronous 是否在 span 结束时同步上报，默认批量上报
	Synchronous bool `json:"synchronous" yaml:"synchronous" mapstructure:"synchronous"`

	// BatchTimeout 批量上报间隔，默认 5s
	BatchTimeout time.Duration `json:"batch_timeout" yaml:"batch_timeout" mapstructure:"batch_timeout"`

	// Global 是否设置为全局 TracerProvider 和传播器
	Global bool `json:"global" yaml:"global" mapstructure:"global"`

	// OTLP 同时导出到 OTLP Collector[可选]
	OTLP *OTLPConfig `json:"otlp" yaml:"otlp" mapstructure:"otlp"`
}

// OTLPConfig OTLP配置.
type OTLPConfig struct {
	// Endpoint OTLP Collector端点
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	// Headers 请求头[可选]
	Headers map[string]string `json:"headers" yaml:"headers" mapstructure:"headers"`
}
