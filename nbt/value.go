// Package nbt is the structured-data model virtual pockets are stored in.
//
// A value is one of:
//
//	Compound                      named fields
//	List                          ordered values
//	string
//	int8, int16, int32, int64     byte, short, int, long tags
//	float32, float64              float, double tags
//	[]byte, []int32, []int64      array tags
//
// Values are read from and written to binary NBT, SNBT, JSON and YAML.
// Normalize turns the generic output of a decoder into this model.
package nbt

import (
	"fmt"
	"math"
	"sort"

	mcnbt "github.com/Tnze/go-mc/nbt"
)

// Compound is a record of named values.
type Compound map[string]any

// List is an ordered sequence of values.
type List []any

// Keys returns the field names in sorted order.
func (c Compound) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether the field exists.
func (c Compound) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// GetString returns a string field.
func (c Compound) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// GetCompound returns a compound field.
func (c Compound) GetCompound(key string) (Compound, bool) {
	switch v := c[key].(type) {
	case Compound:
		return v, true
	case map[string]any:
		return Compound(v), true
	}
	return nil, false
}

// GetList returns a list field.
func (c Compound) GetList(key string) (List, bool) {
	switch v := c[key].(type) {
	case List:
		return v, true
	case []any:
		return List(v), true
	}
	return nil, false
}

// GetFloat returns any numeric field as float64.
func (c Compound) GetFloat(key string) (float64, bool) {
	return AsFloat(c[key])
}

// GetInt returns an integral field as int64.
func (c Compound) GetInt(key string) (int64, bool) {
	return AsInt(c[key])
}

// GetBool returns a byte field as a boolean, the way the game stores flags.
func (c Compound) GetBool(key string) (bool, bool) {
	switch v := c[key].(type) {
	case bool:
		return v, true
	case int8:
		return v != 0, true
	}
	if n, ok := AsInt(c[key]); ok {
		return n != 0, true
	}
	return false, false
}

// Bool encodes a flag as a byte tag.
func Bool(b bool) int8 {
	if b {
		return 1
	}
	return 0
}

// Strings builds a list of strings.
func Strings(values []string) List {
	out := make(List, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// AsFloat converts any numeric value to float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// AsInt converts an integral value to int64.
func AsInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// TagOf returns the NBT tag id of a model value, or TagEnd if v is not one.
func TagOf(v any) byte {
	switch v.(type) {
	case int8:
		return mcnbt.TagByte
	case int16:
		return mcnbt.TagShort
	case int32:
		return mcnbt.TagInt
	case int64:
		return mcnbt.TagLong
	case float32:
		return mcnbt.TagFloat
	case float64:
		return mcnbt.TagDouble
	case []byte:
		return mcnbt.TagByteArray
	case string:
		return mcnbt.TagString
	case List:
		return mcnbt.TagList
	case Compound:
		return mcnbt.TagCompound
	case []int32:
		return mcnbt.TagIntArray
	case []int64:
		return mcnbt.TagLongArray
	}
	return mcnbt.TagEnd
}

// TypeName names the tag of v for error messages.
func TypeName(v any) string {
	switch TagOf(v) {
	case mcnbt.TagByte:
		return "byte"
	case mcnbt.TagShort:
		return "short"
	case mcnbt.TagInt:
		return "int"
	case mcnbt.TagLong:
		return "long"
	case mcnbt.TagFloat:
		return "float"
	case mcnbt.TagDouble:
		return "double"
	case mcnbt.TagByteArray:
		return "byte_array"
	case mcnbt.TagString:
		return "string"
	case mcnbt.TagList:
		return "list"
	case mcnbt.TagCompound:
		return "compound"
	case mcnbt.TagIntArray:
		return "int_array"
	case mcnbt.TagLongArray:
		return "long_array"
	}
	return fmt.Sprintf("%T", v)
}

// Normalize converts decoder output (maps, slices, Go numbers) into the model.
// Untyped integers become int tags when they fit and long tags otherwise;
// booleans become byte tags. A single-entry compound keyed "" inside a list is
// unwrapped, which is how mixed-type lists are written.
func Normalize(v any) (any, error) {
	return normalize(v, false)
}

// normalize in loose mode also narrows int64 values, since text decoders
// report every integer as a long.
func normalize(v any, loose bool) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("nbt: null value has no tag")
	case Compound:
		return normalizeMap(val, loose)
	case map[string]any:
		return normalizeMap(val, loose)
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[fmt.Sprint(k)] = e
		}
		return normalizeMap(m, loose)
	case List:
		return normalizeList(val, loose)
	case []any:
		return normalizeList(val, loose)
	case []string:
		return Strings(val), nil
	case []map[string]any:
		out := make(List, len(val))
		for i, e := range val {
			n, err := normalizeMap(e, loose)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case int64:
		if loose {
			return fitInt(val), nil
		}
		return val, nil
	case string, int8, int16, int32, float32, float64, []byte, []int32, []int64:
		return val, nil
	case []int8:
		out := make([]byte, len(val))
		for i, b := range val {
			out[i] = byte(b)
		}
		return out, nil
	case bool:
		return Bool(val), nil
	case uint8:
		return int8(val), nil
	case int:
		return fitInt(int64(val)), nil
	case uint16:
		return int32(val), nil
	case uint32:
		return fitInt(int64(val)), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("nbt: %d overflows a long tag", val)
		}
		return fitInt(int64(val)), nil
	case uint:
		return fitInt(int64(val)), nil
	}
	return nil, fmt.Errorf("nbt: unsupported value of type %T", v)
}

func fitInt(n int64) any {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return int32(n)
	}
	return n
}

func normalizeMap(m map[string]any, loose bool) (Compound, error) {
	out := make(Compound, len(m))
	for k, e := range m {
		n, err := normalize(e, loose)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

func normalizeList(l []any, loose bool) (List, error) {
	out := make(List, len(l))
	for i, e := range l {
		n, err := normalize(e, loose)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		if c, ok := n.(Compound); ok && len(c) == 1 {
			if inner, ok := c[""]; ok {
				n = inner
			}
		}
		out[i] = n
	}
	return out, nil
}

// Plain converts a model value into plain maps and slices for JSON and YAML
// encoders.
func Plain(v any) any {
	switch val := v.(type) {
	case Compound:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = Plain(e)
		}
		return m
	case map[string]any:
		return Plain(Compound(val))
	case List:
		s := make([]any, len(val))
		for i, e := range val {
			s[i] = Plain(e)
		}
		return s
	case []any:
		return Plain(List(val))
	case []byte:
		s := make([]any, len(val))
		for i, e := range val {
			s[i] = int64(int8(e))
		}
		return s
	case []int32:
		s := make([]any, len(val))
		for i, e := range val {
			s[i] = int64(e)
		}
		return s
	case []int64:
		s := make([]any, len(val))
		for i, e := range val {
			s[i] = e
		}
		return s
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	}
	return v
}
