// Package recovery 提供 panic 隔离.
//
// 上报路径上发生的 panic 不允许传播到业务代码，统一转换为 *PanicError 交给调用方处理.
package recovery

import (
	"fmt"
	"runtime"

	"github.com/Tsukikage7/telemetry-kit/logger"
)

// Handler 是 panic 处理函数.
type Handler func(p any, stack []byte)

// Options 配置选项.
type Options struct {
	// Logger 日志记录器，为 nil 时不记录.
	Logger logger.Logger

	// Handler 自定义 panic 处理函数.
	Handler Handler

	// StackSize 堆栈大小，默认 64KB.
	StackSize int

	// StackAll 是否捕获所有 goroutine 的堆栈，默认 false.
	StackAll bool
}

// Option 是配置函数.
type Option func(*Options)

// WithLogger 设置日志记录器.
func WithLogger(l logger.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithHandler 设置自定义 panic 处理函数.
func WithHandler(h Handler) Option {
	return func(o *Options) {
		o.Handler = h
	}
}

// WithStackSize 设置堆栈大小.
func WithStackSize(size int) Option {
	return func(o *Options) {
		o.StackSize = size
	}
}

// WithStackAll 设置是否捕获所有 goroutine 的堆栈.
func WithStackAll(all bool) Option {
	return func(o *Options) {
		o.StackAll = all
	}
}

func applyOptions(opts []Option) *Options {
	o := &Options{StackSize: 64 * 1024}
	for _, opt := range opts {
		opt(o)
	}
	if o.StackSize <= 0 {
		o.StackSize = 64 * 1024
	}
	return o
}

// captureStack 捕获堆栈信息.
func captureStack(size int, all bool) []byte {
	stack := make([]byte, size)
	n := runtime.Stack(stack, all)
	return stack[:n]
}

// PanicError 表示 panic 错误.
type PanicError struct {
	// Value 是 panic 的值.
	Value any
	// Stack 是堆栈信息.
	Stack []byte
}

// Error 实现 error 接口.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap 返回原始错误（如果 panic 值是 error）.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Do 执行 fn，fn 内的 panic 被转换为 *PanicError 返回.
//
// fn 正常返回的错误原样返回.
func Do(fn func() error, opts ...Option) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = handle(p, applyOptions(opts))
		}
	}()
	return fn()
}

// Go 在新的 goroutine 中执行 fn，panic 被记录后丢弃.
func Go(fn func(), opts ...Option) {
	o := applyOptions(opts)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				_ = handle(p, o)
			}
		}()
		fn()
	}()
}

func handle(p any, o *Options) *PanicError {
	pe := &PanicError{Value: p, Stack: captureStack(o.StackSize, o.StackAll)}

	if o.Logger != nil {
		o.Logger.With(
			logger.Any("panic", p),
			logger.String("stack", string(pe.Stack)),
		).Error("[Recovery] panic recovered")
	}
	if o.Handler != nil {
		o.Handler(p, pe.Stack)
	}
	return pe
}
