package reporter

import (
	"maps"
	"sync"
	"time"

	"github.com/Tsukikage7/telemetry-kit/record"
)

// Captured 一条被捕获的记录.
type Captured struct {
	Fields    record.Fields
	Timestamp time.Time
}

// Capture 将记录保存在内存中.
type Capture struct {
	mu      sync.Mutex
	records []Captured
}

// NewCapture 创建内存上报端.
func NewCapture() *Capture {
	return &Capture{}
}

// ReportData 实现 Reporter.
func (c *Capture) ReportData(fields record.Fields, timestamp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = append(c.records, Captured{Fields: maps.Clone(fields), Timestamp: timestamp})
}

// Records 返回已捕获记录的副本.
func (c *Capture) Records() []Captured {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Captured, len(c.records))
	copy(out, c.records)
	return out
}

// Len 返回已捕获记录数.
func (c *Capture) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Reset 清空已捕获记录.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
}
