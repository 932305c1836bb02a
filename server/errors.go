package server

import "errors"

// 预定义错误.
var (
	// ErrServerRunning 应用正在运行.
	ErrServerRunning = errors.New("server: 应用正在运行")

	// ErrNilHandler 处理器为空.
	ErrNilHandler = errors.New("server: 处理器为空")
)
