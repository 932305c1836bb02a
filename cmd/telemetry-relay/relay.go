package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/Tsukikage7/telemetry-kit/logger"
	"github.com/Tsukikage7/telemetry-kit/metrics"
	"github.com/Tsukikage7/telemetry-kit/record"
)

// maxLineSize 单行记录的最大长度.
const maxLineSize = 1 << 20

// fieldsReporter 接收已展平的记录.
type fieldsReporter interface {
	ReportFields(fields record.Fields, timestamp time.Time)
}

// Relay 从输入流逐行读取 JSON 记录并转发.
//
// 输入读完后调用 onEOF，通常用于停止应用.
type Relay struct {
	input    io.Reader
	reporter fieldsReporter
	logger   logger.Logger
	metrics  *metrics.PrometheusCollector
	onEOF    func()

	forwarded atomic.Int64
	invalid   atomic.Int64
}

func newRelay(input io.Reader, r fieldsReporter, log logger.Logger, collector *metrics.PrometheusCollector, onEOF func()) *Relay {
	return &Relay{
		input:    input,
		reporter: r,
		logger:   log,
		metrics:  collector,
		onEOF:    onEOF,
	}
}

// Start 转发输入直到读完或 ctx 取消.
func (r *Relay) Start(ctx context.Context) error {
	lines := make(chan []byte)
	errCh := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r.input)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := bytes.Clone(scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				r.logger.Infof("[Relay] 输入结束 [forwarded:%d] [invalid:%d]", r.forwarded.Load(), r.invalid.Load())
				if r.onEOF != nil {
					r.onEOF()
				}
				select {
				case err := <-errCh:
					return err
				default:
					return nil
				}
			}
			r.forward(line)
		}
	}
}

func (r *Relay) forward(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}

	r.metrics.Histogram("relay_line_bytes", float64(len(line)), nil)

	fields, err := record.ParseFields(line)
	if err != nil {
		r.invalid.Add(1)
		r.metrics.Counter("relay_lines_total", map[string]string{"result": "invalid"})
		r.logger.Warnf("[Relay] 无法解析的记录: %v", err)
		return
	}

	timestamp, ok := fields.Timestamp()
	if !ok {
		timestamp = time.Now()
	}
	r.reporter.ReportFields(fields, timestamp)
	r.forwarded.Add(1)
	r.metrics.Counter("relay_lines_total", map[string]string{"result": "forwarded"})
}

// Stop 实现 server.Server，Start 随 ctx 取消退出.
func (r *Relay) Stop(context.Context) error {
	return nil
}

// Name 实现 server.Server.
func (r *Relay) Name() string {
	return "relay"
}

// Addr 实现 server.Server.
func (r *Relay) Addr() string {
	return "stdin"
}
