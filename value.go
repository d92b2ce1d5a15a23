package smartobjects

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "datetime"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is an untyped scalar carried by an ingestion row. The zero Value is null.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	t    time.Time
}

// NullValue returns the null Value.
func NullValue() Value { return Value{} }

// BoolValue wraps a boolean.
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// IntValue wraps a 64-bit integer.
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// FloatValue wraps a 64-bit float.
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// StringValue wraps a string.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// TimeValue wraps a datetime.
func TimeValue(v time.Time) Value { return Value{kind: KindTime, t: v} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

// Bool returns the held boolean, false for other kinds. The other typed
// accessors behave the same way.
func (v Value) Bool() bool      { return v.b }
func (v Value) Int() int64      { return v.i }
func (v Value) Float() float64  { return v.f }
func (v Value) Str() string     { return v.s }
func (v Value) Time() time.Time { return v.t }

// ValueOf converts a Go scalar into a Value.
func ValueOf(x any) (Value, error) {
	switch val := x.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return val, nil
	case bool:
		return BoolValue(val), nil
	case int:
		return IntValue(int64(val)), nil
	case int8:
		return IntValue(int64(val)), nil
	case int16:
		return IntValue(int64(val)), nil
	case int32:
		return IntValue(int64(val)), nil
	case int64:
		return IntValue(val), nil
	case uint8:
		return IntValue(int64(val)), nil
	case uint16:
		return IntValue(int64(val)), nil
	case uint32:
		return IntValue(int64(val)), nil
	case float32:
		return FloatValue(float64(val)), nil
	case float64:
		return FloatValue(val), nil
	case string:
		return StringValue(val), nil
	case time.Time:
		return TimeValue(val), nil
	case *time.Time:
		if val == nil {
			return NullValue(), nil
		}
		return TimeValue(*val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return IntValue(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", ErrMsgUnsupportedValueKind, err)
		}
		return FloatValue(f), nil
	default:
		return Value{}, fmt.Errorf("%s: %T", ErrMsgUnsupportedValueKind, x)
	}
}

// Interface returns the held scalar as a plain Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindTime:
		return v.t
	default:
		return nil
	}
}

// MarshalJSON writes datetimes as RFC 3339 strings with nanosecond precision.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindTime:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	default:
		return json.Marshal(v.Interface())
	}
}

// UnmarshalJSON keeps integers apart from floats. Strings stay strings, even
// when they look like timestamps.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Row is one ingestion record: field key to value.
type Row map[string]Value

// NewRow returns an empty row.
func NewRow() Row {
	return make(Row)
}

// Set converts x with ValueOf and stores it under key.
func (r Row) Set(key string, x any) error {
	v, err := ValueOf(x)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	r[key] = v
	return nil
}

// Keys returns the row's field keys sorted alphabetically.
func (r Row) Keys() []string {
	keys := lo.Keys(r)
	slices.Sort(keys)
	return keys
}

// RowFromMap builds a Row from a map of Go scalars.
func RowFromMap(m map[string]any) (Row, error) {
	row := make(Row, len(m))
	for k, x := range m {
		if err := row.Set(k, x); err != nil {
			return nil, err
		}
	}
	return row, nil
}
