package telemetry

import "errors"

// 预定义错误.
var (
	// ErrNilConfig 配置为空.
	ErrNilConfig = errors.New("telemetry: 配置为空")

	// ErrEmptyServiceName 服务名为空.
	ErrEmptyServiceName = errors.New("telemetry: 服务名不能为空")

	// ErrNilReporter 未指定上报端.
	ErrNilReporter = errors.New("telemetry: 上报端为空")

	// ErrInvalidSampleRate 采样率无效.
	ErrInvalidSampleRate = errors.New("telemetry: 采样率必须大于 0")

	// ErrUnknownReporter 不支持的上报端类型.
	ErrUnknownReporter = errors.New("telemetry: 不支持的上报端类型")
)
