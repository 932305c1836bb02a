// Package record 定义链路上报使用的数据模型，并负责把 span/event 展平为键值记录.
//
// 展平后的记录使用以下保留字段，用户属性与保留字段同名时会被改写为 "tracing.<key>"，
// 保证后端的 schema 字段不会被任意用户数据覆盖:
//
//	trace.trace_id  trace.span_id  trace.parent_id  meta.kind
//	name  target  level  service_name  Timestamp  duration_ms
package record
