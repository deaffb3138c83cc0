package nbt

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"reflect"

	mcnbt "github.com/Tnze/go-mc/nbt"
)

// Marshal encodes v as an unnamed root tag in binary NBT.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalGzip encodes v like Marshal and gzip-compresses the result, the way
// structure and level files are stored on disk.
func MarshalGzip(v any) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := Write(zw, v); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("nbt: gzip: %w", err)
	}
	return buf.Bytes(), nil
}

// Write encodes v to w as an unnamed root tag.
func Write(w io.Writer, v any) error {
	enc, err := encodable(v)
	if err != nil {
		return err
	}
	if err := mcnbt.NewEncoder(w).Encode(enc, ""); err != nil {
		return fmt.Errorf("nbt: encode: %w", err)
	}
	return nil
}

// Unmarshal decodes binary NBT, gzip-compressed or not, into the model.
func Unmarshal(data []byte) (any, error) {
	return Read(bytes.NewReader(data))
}

// Read decodes one root tag from r. Gzip input is detected by its magic bytes.
func Read(r io.Reader) (any, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("nbt: gzip: %w", err)
		}
		defer func() { _ = zr.Close() }()
		return decode(zr)
	}
	return decode(br)
}

func decode(r io.Reader) (any, error) {
	var raw any
	if _, err := mcnbt.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("nbt: decode: %w", err)
	}
	return Normalize(raw)
}

var compoundType = reflect.TypeOf(map[string]any{})

// encodable converts a model value into types the reflective encoder writes
// as the intended tags. Lists become typed slices; a list mixing tag types is
// written as compounds with the element under the "" key.
func encodable(v any) (any, error) {
	switch val := v.(type) {
	case Compound:
		return encodableMap(val)
	case map[string]any:
		return encodableMap(val)
	case List:
		return encodableList(val)
	case []any:
		return encodableList(val)
	case string, int8, int16, int32, int64, float32, float64, []byte, []int32, []int64:
		return val, nil
	}
	n, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	return encodable(n)
}

func encodableMap(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, e := range m {
		enc, err := encodable(e)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = enc
	}
	return out, nil
}

func encodableList(l []any) (any, error) {
	if len(l) == 0 {
		return []string{}, nil
	}

	elems := make([]any, len(l))
	var elemType reflect.Type
	mixed := false
	for i, e := range l {
		enc, err := encodable(e)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		elems[i] = enc
		t := reflect.TypeOf(enc)
		if elemType == nil {
			elemType = t
		} else if t != elemType {
			mixed = true
		}
	}

	if mixed {
		elemType = compoundType
		for i, e := range elems {
			if m, ok := e.(map[string]any); ok && !(len(m) == 1 && m[""] != nil) {
				continue
			}
			elems[i] = map[string]any{"": e}
		}
	}

	out := reflect.MakeSlice(reflect.SliceOf(elemType), len(elems), len(elems))
	for i, e := range elems {
		out.Index(i).Set(reflect.ValueOf(e))
	}
	return out.Interface(), nil
}
