// Package reporter 提供展平记录的上报端.
//
// Reporter 只有一个方法 ReportData，调用即发即弃：任何失败都在内部消化，不会返回给调用方，
// 也不会 panic.
//
//   - Writer: 每条记录输出一行 JSON，用于本地调试.
//   - Transport: 通过 messaging.Client 投递到外部接入端.
//   - Discard: 丢弃所有记录.
//   - Capture: 保存在内存中，用于测试.
package reporter

import (
	"time"

	"github.com/Tsukikage7/telemetry-kit/record"
)

// Reporter 记录上报端.
//
// 实现必须支持并发调用.
type Reporter interface {
	// ReportData 上报一条展平后的记录.
	ReportData(fields record.Fields, timestamp time.Time)
}

// ReporterFunc 函数适配器.
type ReporterFunc func(fields record.Fields, timestamp time.Time)

// ReportData 实现 Reporter.
func (f ReporterFunc) ReportData(fields record.Fields, timestamp time.Time) {
	f(fields, timestamp)
}

// Discard 丢弃所有记录.
var Discard Reporter = discard{}

type discard struct{}

func (discard) ReportData(record.Fields, time.Time) {}
