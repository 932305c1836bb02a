package record

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// Kind 标量值类型.
type Kind uint8

// 标量值类型常量.
const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
)

// String 返回类型名称.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "null"
	}
}

// Value 展平记录中的标量值.
//
// 零值为 null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// Null 返回 null 值.
func Null() Value { return Value{} }

// Int 创建整数值.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float 创建浮点值.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool 创建布尔值.
func Bool(v bool) Value {
	if v {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// String 创建字符串值.
func String(v string) Value { return Value{kind: KindString, s: v} }

// ValueOf 将任意 Go 值转换为最接近的标量值，不会失败.
//
// 无法直接表示的类型按 %+v 格式化为字符串.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return fromUint64(uint64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return fromUint64(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case bool:
		return Bool(x)
	case string:
		return String(x)
	case []byte:
		return String(string(x))
	case time.Duration:
		return Int(x.Milliseconds())
	case time.Time:
		return String(x.UTC().Format(time.RFC3339Nano))
	case error:
		if isNilValue(x) {
			return Null()
		}
		return safeString(x.Error)
	case fmt.Stringer:
		if isNilValue(x) {
			return Null()
		}
		return safeString(x.String)
	default:
		return String(fmt.Sprintf("%+v", x))
	}
}

// isNilValue 判断接口中是否持有 nil 指针、map、slice 等引用类型.
func isNilValue(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// safeString 调用 Error/String 方法，方法 panic 时退化为占位字符串.
func safeString(fn func() string) (v Value) {
	defer func() {
		if r := recover(); r != nil {
			v = String(fmt.Sprintf("%%!v(PANIC=%v)", r))
		}
	}()
	return String(fn())
}

// fromUint64 超出 int64 范围的无符号整数退化为浮点数.
func fromUint64(v uint64) Value {
	if v > math.MaxInt64 {
		return Float(float64(v))
	}
	return Int(int64(v))
}

// Kind 返回值类型.
func (v Value) Kind() Kind { return v.kind }

// IsNull 判断是否为 null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt 返回整数值，类型不符时返回 0.
func (v Value) AsInt() int64 {
	if v.kind == KindInt {
		return v.i
	}
	return 0
}

// AsFloat 返回浮点值，整数会被转换.
func (v Value) AsFloat() float64 {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInt:
		return float64(v.i)
	}
	return 0
}

// AsBool 返回布尔值.
func (v Value) AsBool() bool { return v.kind == KindBool && v.i == 1 }

// AsString 返回字符串值，类型不符时返回空串.
func (v Value) AsString() string {
	if v.kind == KindString {
		return v.s
	}
	return ""
}

// Interface 返回对应的 Go 值.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.AsBool()
	case KindString:
		return v.s
	default:
		return nil
	}
}

// String 实现 fmt.Stringer.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.AsBool())
	case KindString:
		return v.s
	default:
		return "null"
	}
}

// MarshalJSON 编码为裸标量.
//
// NaN 和 Inf 无法用 JSON 表示，编码为字符串.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindFloat && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		return json.Marshal(v.String())
	}
	return json.Marshal(v.Interface())
}

// Attribute 用户属性键值对.
type Attribute struct {
	Key   string
	Value Value
}

// Attr 创建属性，值按 ValueOf 规则转换.
func Attr(key string, value any) Attribute {
	return Attribute{Key: key, Value: ValueOf(value)}
}
