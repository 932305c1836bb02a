package messaging

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// pipeline 客户端共用的有界发送队列与结果通道.
//
// 发送队列写满时 enqueue 立即失败；结果通道使用阻塞写入，消费方停止消费时投递随之停滞.
type pipeline struct {
	mu     sync.RWMutex
	closed bool

	queue     chan *Event
	responses chan Response
	done      chan struct{}
}

func newPipeline(queueSize, responseSize int) *pipeline {
	return &pipeline{
		queue:     make(chan *Event, queueSize),
		responses: make(chan Response, responseSize),
		done:      make(chan struct{}),
	}
}

// newEvent 创建空事件.
func (p *pipeline) newEvent() *Event {
	return &Event{Timestamp: time.Now()}
}

// enqueue 非阻塞入队.
func (p *pipeline) enqueue(ev *Event) error {
	if ev == nil {
		return ErrNilEvent
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClientClosed
	}

	ev.enqueuedAt = time.Now()
	select {
	case p.queue <- ev:
		return nil
	default:
		return ErrQueueOverflow
	}
}

// respond 写入投递结果，通道已满时阻塞.
func (p *pipeline) respond(metadata any, enqueuedAt time.Time, err error) {
	p.responses <- Response{
		Metadata: metadata,
		Err:      err,
		Duration: time.Since(enqueuedAt),
	}
}

// shutdown 关闭发送队列，重复调用返回 false.
func (p *pipeline) shutdown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	p.closed = true
	close(p.queue)
	return true
}

// finish 关闭结果通道，由最后一个写结果的 goroutine 调用.
func (p *pipeline) finish() {
	close(p.responses)
	close(p.done)
}

// wait 等待 finish.
func (p *pipeline) wait() {
	<-p.done
}

// inflight 随消息一起传递的元数据.
type inflight struct {
	metadata   any
	enqueuedAt time.Time
}

// encodeFields 将事件字段编码为 JSON.
func encodeFields(ev *Event) ([]byte, error) {
	data, err := json.Marshal(ev.Fields)
	if err != nil {
		return nil, errors.Join(ErrEncodeEvent, err)
	}
	return data, nil
}
