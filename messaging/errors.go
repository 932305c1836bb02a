package messaging

import "errors"

// 预定义错误.
//
// 所有错误均可通过 errors.Is 进行判断:
//
//	if errors.Is(err, messaging.ErrQueueOverflow) {
//	    // 发送队列已满
//	}
var (
	// ErrNilConfig 配置为空.
	ErrNilConfig = errors.New("messaging: 配置为空")

	// ErrQueueOverflow 发送队列已满.
	ErrQueueOverflow = errors.New("messaging: 发送队列已满")

	// ErrClientClosed 客户端已关闭.
	ErrClientClosed = errors.New("messaging: 客户端已关闭")

	// ErrNilEvent 事件为空.
	ErrNilEvent = errors.New("messaging: 事件为空")

	// ErrEmptyTopic 主题为空.
	ErrEmptyTopic = errors.New("messaging: 主题为空")

	// ErrNoBrokers 未配置服务器地址.
	ErrNoBrokers = errors.New("messaging: 未配置服务器地址")

	// ErrUnsupportedType 不支持的客户端类型.
	ErrUnsupportedType = errors.New("messaging: 不支持的客户端类型")

	// ErrCreateClient 创建客户端失败.
	ErrCreateClient = errors.New("messaging: 创建客户端失败")

	// ErrEncodeEvent 事件编码失败.
	ErrEncodeEvent = errors.New("messaging: 事件编码失败")

	// ErrSendMessage 消息发送失败.
	ErrSendMessage = errors.New("messaging: 消息发送失败")

	// ErrNacked 消息被服务端拒绝.
	ErrNacked = errors.New("messaging: 消息被拒绝")
)
