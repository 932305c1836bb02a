// Package sampler 提供链路级确定性采样.
//
// 采样结果只取决于 (采样率, TraceID)，同一条链路上的所有 span 和 event、
// 以及调用链上的其他进程都会得到相同的结论，无需任何协调.
package sampler

import (
	"crypto/sha1"
	"encoding/binary"
	"errors"

	"github.com/Tsukikage7/telemetry-kit/record"
)

// ErrZeroRate 采样率为 0.
var ErrZeroRate = errors.New("sampler: 采样率必须大于 0")

// Sampler 按 1/N 比例保留链路.
//
// nil *Sampler 表示不采样，保留全部链路.
type Sampler struct {
	rate uint32
}

// New 创建采样器，rate 表示每 rate 条链路保留 1 条.
func New(rate uint32) (*Sampler, error) {
	if rate == 0 {
		return nil, ErrZeroRate
	}
	return &Sampler{rate: rate}, nil
}

// MustNew 创建采样器，失败时 panic.
func MustNew(rate uint32) *Sampler {
	s, err := New(rate)
	if err != nil {
		panic(err)
	}
	return s
}

// Rate 返回采样率，nil 采样器返回 1.
func (s *Sampler) Rate() uint32 {
	if s == nil {
		return 1
	}
	return s.rate
}

// ShouldReport 判断该链路是否需要上报.
func (s *Sampler) ShouldReport(traceID record.TraceID) bool {
	if s == nil {
		return true
	}
	return Sample(s.rate, traceID)
}

// Sample 对 TraceID 做确定性采样.
//
// 取 TraceID 的 SHA-1 摘要前 4 字节（大端）对 rate 取模，结果为 0 时保留.
// rate 不大于 1 时全部保留.
func Sample(rate uint32, traceID record.TraceID) bool {
	if rate <= 1 {
		return true
	}
	sum := sha1.Sum(traceID.Bytes())
	return binary.BigEndian.Uint32(sum[:4])%rate == 0
}
