package record

import (
	"bytes"
	"encoding/json"
	"time"
)

// ParseFields 解析一行 JSON 编码的展平记录，与 Value.MarshalJSON 互逆.
//
// 整数解析为 Int，其余数字为 Float，嵌套的对象和数组保留为 JSON 字符串.
func ParseFields(data []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	fields := make(Fields, len(raw))
	for k, v := range raw {
		fields[k] = fromJSON(v)
	}
	return fields, nil
}

func fromJSON(v any) Value {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i)
		}
		f, err := x.Float64()
		if err != nil {
			return String(x.String())
		}
		return Float(f)
	case map[string]any, []any:
		data, err := json.Marshal(x)
		if err != nil {
			return Null()
		}
		return String(string(data))
	default:
		return ValueOf(x)
	}
}

// Timestamp 解析 Timestamp 字段，字段缺失或格式错误时返回 false.
func (f Fields) Timestamp() (time.Time, bool) {
	v, ok := f[FieldTimestamp]
	if !ok || v.Kind() != KindString {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v.AsString())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
