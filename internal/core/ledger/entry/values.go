package entry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// AsUint64 converts a decoded field value to an unsigned integer. Strings are
// read as hex, which is how UInt64 fields appear in JSON.
func AsUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	case uint:
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("%w: negative %d", ErrInvalidField, n)
		}
		return uint64(n), nil
	case int8, int16, int32, int64:
		i := toInt64(n)
		if i < 0 {
			return 0, fmt.Errorf("%w: negative %d", ErrInvalidField, i)
		}
		return uint64(i), nil
	case float64:
		if n < 0 || n != math.Trunc(n) || n > math.MaxUint64 {
			return 0, fmt.Errorf("%w: %v is not an unsigned integer", ErrInvalidField, n)
		}
		return uint64(n), nil
	case json.Number:
		return strconv.ParseUint(n.String(), 10, 64)
	case string:
		u, err := strconv.ParseUint(n, 16, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidField, err)
		}
		return u, nil
	default:
		return 0, fmt.Errorf("%w: unexpected %T", ErrInvalidField, v)
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	}
	return 0
}

// Uint64Hex renders a UInt64 field value in its JSON form.
func Uint64Hex(v uint64) string {
	return fmt.Sprintf("%016X", v)
}

// FieldUint64 reads a numeric field; absent fields read as zero.
func (e *Entry) FieldUint64(name string) (uint64, error) {
	v, ok := e.Fields[name]
	if !ok {
		return 0, nil
	}
	n, err := AsUint64(v)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", name, err)
	}
	return n, nil
}

// FieldString reads a string field.
func (e *Entry) FieldString(name string) (string, bool) {
	v, ok := e.Fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// FieldHash reads a Hash256 field.
func (e *Entry) FieldHash(name string) ([32]byte, error) {
	s, ok := e.FieldString(name)
	if !ok {
		return [32]byte{}, fmt.Errorf("%w: %s missing", ErrInvalidField, name)
	}
	return ParseHash(s)
}

// FieldObject reads a nested object field, such as an issued amount.
func (e *Entry) FieldObject(name string) (map[string]any, bool) {
	switch obj := e.Fields[name].(type) {
	case map[string]any:
		return obj, true
	case Fields:
		return obj, true
	default:
		return nil, false
	}
}
