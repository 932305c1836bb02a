package reporter

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Tsukikage7/telemetry-kit/record"
)

// Writer 调试用上报端，每条记录编码为一行 JSON.
//
// 记录时间戳不单独输出，字段中已包含 Timestamp. 编码或写入失败时该行被跳过.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriter 创建写入 w 的上报端.
func NewWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{enc: enc}
}

// NewStdout 创建写入标准输出的上报端.
func NewStdout() *Writer {
	return NewWriter(os.Stdout)
}

// ReportData 实现 Reporter.
func (w *Writer) ReportData(fields record.Fields, _ time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	_ = w.enc.Encode(fields)
}
