package record

// TraceID 链路标识，同一条链路内的所有 span/event 共享.
type TraceID string

// String 实现 fmt.Stringer.
func (id TraceID) String() string { return string(id) }

// Bytes 返回用于采样摘要计算的字节表示.
func (id TraceID) Bytes() []byte { return []byte(id) }

// IsZero 判断是否为空标识.
func (id TraceID) IsZero() bool { return id == "" }

// SpanID span 标识，在链路内唯一.
type SpanID string

// String 实现 fmt.Stringer.
func (id SpanID) String() string { return string(id) }

// IsZero 判断是否为空标识.
func (id SpanID) IsZero() bool { return id == "" }
