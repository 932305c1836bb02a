// Package telemetry 将结束的 span 与发生的 event 采样、展平后交给上报端.
//
// 基本用法:
//
//	tel, err := telemetry.NewStdoutBuilder("checkout").
//	    WithTraceSampling(10).
//	    Build()
//	if err != nil {
//	    return err
//	}
//	defer tel.Close()
//
//	tel.ReportSpan(span)
//	tel.ReportEvent(event)
//
// 采样只取决于 TraceID，同一条链路上的 span 和 event 要么全部上报，要么全部丢弃.
// 上报过程中的任何失败都不会传递给调用方.
package telemetry

import (
	"io"
	"maps"
	"time"

	"github.com/Tsukikage7/telemetry-kit/logger"
	"github.com/Tsukikage7/telemetry-kit/metrics"
	"github.com/Tsukikage7/telemetry-kit/record"
	"github.com/Tsukikage7/telemetry-kit/reporter"
	"github.com/Tsukikage7/telemetry-kit/sampler"
)

// kindRecord 无法识别类型的已展平记录的指标标签.
const kindRecord = "record"

// Telemetry 遥测上报能力，可并发使用.
type Telemetry struct {
	serviceName string
	reporter    reporter.Reporter
	sampler     *sampler.Sampler
	logger      logger.Logger
	metrics     *metrics.PrometheusCollector

	// closers 随 Close 一并关闭的资源，按顺序关闭.
	closers []io.Closer
}

// ReportSpan 上报一个已结束的 span.
//
// span 未设置服务名时使用 Telemetry 的服务名，传入的 span 不会被修改.
func (t *Telemetry) ReportSpan(s *record.Span) {
	if t == nil || s == nil {
		return
	}
	if !t.sampler.ShouldReport(s.TraceID) {
		t.metrics.RecordReport(record.KindSpan, metrics.OutcomeSampledOut)
		return
	}

	start := time.Now()
	span := *s
	if span.ServiceName == "" {
		span.ServiceName = t.serviceName
	}
	fields, timestamp := record.FlattenSpan(&span)
	t.reporter.ReportData(fields, timestamp)

	t.metrics.RecordReport(record.KindSpan, metrics.OutcomeReported)
	t.metrics.ObserveReportDuration(record.KindSpan, time.Since(start))
}

// ReportEvent 上报一个 event.
//
// event 未设置服务名时使用 Telemetry 的服务名，传入的 event 不会被修改.
func (t *Telemetry) ReportEvent(e *record.Event) {
	if t == nil || e == nil {
		return
	}
	if !t.sampler.ShouldReport(e.TraceID) {
		t.metrics.RecordReport(record.KindEvent, metrics.OutcomeSampledOut)
		return
	}

	start := time.Now()
	event := *e
	if event.ServiceName == "" {
		event.ServiceName = t.serviceName
	}
	fields, timestamp := record.FlattenEvent(&event)
	t.reporter.ReportData(fields, timestamp)

	t.metrics.RecordReport(record.KindEvent, metrics.OutcomeReported)
	t.metrics.ObserveReportDuration(record.KindEvent, time.Since(start))
}

// ReportFields 上报已展平的记录，按 trace.trace_id 字段采样.
//
// 用于转发其他进程输出的记录，service_name 为空时使用 Telemetry 的服务名.
func (t *Telemetry) ReportFields(fields record.Fields, timestamp time.Time) {
	if t == nil || len(fields) == 0 {
		return
	}

	kind := fieldsKind(fields)
	if !t.sampler.ShouldReport(record.TraceID(fields[record.FieldTraceID].AsString())) {
		t.metrics.RecordReport(kind, metrics.OutcomeSampledOut)
		return
	}

	start := time.Now()
	if fields[record.FieldServiceName].AsString() == "" {
		fields = maps.Clone(fields)
		fields[record.FieldServiceName] = record.String(t.serviceName)
	}
	t.reporter.ReportData(fields, timestamp)

	t.metrics.RecordReport(kind, metrics.OutcomeReported)
	t.metrics.ObserveReportDuration(kind, time.Since(start))
}

// fieldsKind 返回用作指标标签的记录类型，只允许 span、event 和 record.
func fieldsKind(fields record.Fields) string {
	switch kind := fields[record.FieldKind].AsString(); kind {
	case record.KindSpan, record.KindEvent:
		return kind
	}
	return kindRecord
}

// ServiceName 返回服务名.
func (t *Telemetry) ServiceName() string {
	return t.serviceName
}

// SampleRate 返回采样率，未启用采样时返回 1.
func (t *Telemetry) SampleRate() uint32 {
	return t.sampler.Rate()
}

// Logger 返回诊断日志记录器，由 Close 一并关闭.
func (t *Telemetry) Logger() logger.Logger {
	return t.logger
}

// Metrics 返回指标收集器，未配置时返回 nil.
func (t *Telemetry) Metrics() *metrics.PrometheusCollector {
	return t.metrics
}

// Close 关闭上报端及其持有的资源.
//
// 上报端实现 io.Closer 时会被关闭，例如 Transport 会等待在途记录投递完成.
func (t *Telemetry) Close() error {
	if t == nil {
		return nil
	}

	var firstErr error
	if c, ok := t.reporter.(io.Closer); ok {
		if err := c.Close(); err != nil {
			firstErr = err
		}
	}
	for _, c := range t.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.closers = nil
	return firstErr
}
