package flags

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which member of Value is set.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindStringList
	KindNumberList
)

// Value is a reference value of a property condition.
// The concrete kind is decided once when the definition is decoded, so matching never
// inspects loosely typed JSON.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	strs []string
	nums []float64
}

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue returns a numeric Value.
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// StringList returns a list Value of strings.
func StringList(s ...string) Value { return Value{kind: KindStringList, strs: s} }

// NumberList returns a list Value of numbers.
func NumberList(n ...float64) Value { return Value{kind: KindNumberList, nums: n} }

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsList reports whether the value is a list of strings or numbers.
func (v Value) IsList() bool { return v.kind == KindStringList || v.kind == KindNumberList }

// String renders scalar values the way they are compared as text.
// Lists render as their JSON representation.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindStringList, KindNumberList:
		b, _ := v.MarshalJSON()
		return string(b)
	default:
		return ""
	}
}

// Float returns the numeric form of a scalar value, parsing strings when possible.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		return parseNumber(v.str)
	default:
		return 0, false
	}
}

// Strings returns the list elements rendered as text. Scalars yield a single element.
func (v Value) Strings() []string {
	switch v.kind {
	case KindStringList:
		return v.strs
	case KindNumberList:
		out := make([]string, len(v.nums))
		for i, n := range v.nums {
			out[i] = formatNumber(n)
		}
		return out
	case KindNull:
		return nil
	default:
		return []string{v.String()}
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindStringList:
		return json.Marshal(v.strs)
	case KindNumberList:
		return json.Marshal(v.nums)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
// Lists mixing numbers and strings become string lists; booleans inside lists are
// rendered as "true"/"false".
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	parsed, err := valueFromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func valueFromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s", ErrInvalidValue, t.String())
		}
		return NumberValue(n), nil
	case float64:
		return NumberValue(t), nil
	case []any:
		return listFromAny(t)
	default:
		return Value{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, raw)
	}
}

func listFromAny(items []any) (Value, error) {
	nums := make([]float64, 0, len(items))
	allNumbers := true
	for _, item := range items {
		switch t := item.(type) {
		case json.Number:
			n, err := t.Float64()
			if err != nil {
				return Value{}, fmt.Errorf("%w: %s", ErrInvalidValue, t.String())
			}
			nums = append(nums, n)
		case float64:
			nums = append(nums, t)
		default:
			allNumbers = false
		}
		if !allNumbers {
			break
		}
	}
	if allNumbers {
		return NumberList(nums...), nil
	}

	strs := make([]string, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case nil:
			continue
		case string:
			strs = append(strs, t)
		case bool:
			strs = append(strs, strconv.FormatBool(t))
		case json.Number:
			strs = append(strs, t.String())
		case float64:
			strs = append(strs, formatNumber(t))
		default:
			return Value{}, fmt.Errorf("%w: unsupported list element %T", ErrInvalidValue, item)
		}
	}
	return StringList(strs...), nil
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
