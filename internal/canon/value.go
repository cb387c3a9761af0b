package canon

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is the closed set of canonical values. There is no null.
type Value interface {
	canonValue()
}

// String is a JSON string. It is NFC-normalized when serialized.
type String string

// Int is a JSON integer.
type Int int64

// Float is a JSON number written as its shortest round-trip decimal.
// NaN and infinities cannot be serialized. JSON has one number type, so a
// Float with an integral value serializes exactly like the equal Int and
// yields the same key.
type Float float64

// Bool is a JSON boolean.
type Bool bool

// List is a JSON array.
type List []Value

// Object is a JSON object. Keys serialize in UTF-16 code unit order.
type Object map[string]Value

func (String) canonValue() {}
func (Int) canonValue()    {}
func (Float) canonValue()  {}
func (Bool) canonValue()   {}
func (List) canonValue()   {}
func (Object) canonValue() {}

// SortedKeys returns the keys in RFC 8785 order.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 orders strings by UTF-16 code units, which differs from
// Go's byte-wise UTF-8 order for characters above U+FFFF.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// FromGo converts plain Go values (as produced by yaml or json decoding)
// into a Value.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("canon: null is not allowed")
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case []any:
		out := make(List, len(val))
		for i, elem := range val {
			c, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		out := make(Object, len(val))
		for k, elem := range val {
			c, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = c
		}
		return out, nil
	default:
		return nil, fmt.Errorf("canon: unsupported type %T", v)
	}
}
