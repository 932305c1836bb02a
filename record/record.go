package record

import "time"

// Span 已结束的一段工作单元.
//
// 在作用域结束时创建，由上报流程消费一次后丢弃.
type Span struct {
	ID       SpanID
	TraceID  TraceID
	ParentID SpanID // 为空表示根 span

	Name        string
	Target      string
	Level       string
	ServiceName string

	StartTime time.Time
	EndTime   time.Time

	Attributes []Attribute
}

// Duration 返回 span 耗时，结束时间早于开始时间时返回 0.
func (s *Span) Duration() time.Duration {
	if s.EndTime.Before(s.StartTime) {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// HasParent 判断是否存在父 span.
func (s *Span) HasParent() bool { return !s.ParentID.IsZero() }

// SetAttribute 追加属性.
func (s *Span) SetAttribute(key string, value any) {
	s.Attributes = append(s.Attributes, Attr(key, value))
}

// Event 某一时刻发生的事件，挂在所属 span 上.
type Event struct {
	SpanID  SpanID // 所属 span
	TraceID TraceID

	Name        string
	Target      string
	Level       string
	ServiceName string

	Timestamp time.Time

	Attributes []Attribute
}

// SetAttribute 追加属性.
func (e *Event) SetAttribute(key string, value any) {
	e.Attributes = append(e.Attributes, Attr(key, value))
}
