package nbt

import (
	"bytes"
	"fmt"
	"strings"

	mcnbt "github.com/Tnze/go-mc/nbt"
	"github.com/goccy/go-yaml"
	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

// Format names a text or binary encoding of structured data.
type Format string

const (
	FormatNBT  Format = "nbt"
	FormatSNBT Format = "snbt"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForExt maps a file extension (with or without the dot) to a format.
func FormatForExt(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "nbt", "dat":
		return FormatNBT, true
	case "snbt":
		return FormatSNBT, true
	case "json":
		return FormatJSON, true
	case "yaml", "yml":
		return FormatYAML, true
	}
	return "", false
}

// Parse decodes data written in format.
func Parse(format Format, data []byte) (any, error) {
	switch format {
	case FormatNBT:
		return Unmarshal(data)
	case FormatSNBT:
		return ParseSNBT(string(data))
	case FormatJSON:
		return ParseJSON(data)
	case FormatYAML:
		return ParseYAML(data)
	}
	return nil, fmt.Errorf("nbt: unknown format %q", format)
}

// Encode writes v in format. Text formats are indented for people to read.
func Encode(format Format, v any) ([]byte, error) {
	switch format {
	case FormatNBT:
		return Marshal(v)
	case FormatSNBT:
		s, err := FormatSNBTString(v)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	case FormatJSON:
		return []byte(FormatJSONString(v, 2)), nil
	case FormatYAML:
		return FormatYAMLBytes(v)
	}
	return nil, fmt.Errorf("nbt: unknown format %q", format)
}

// ParseSNBT parses stringified NBT, e.g. {type:"dimdoors:none"}.
func ParseSNBT(s string) (any, error) {
	var buf bytes.Buffer
	if err := mcnbt.NewEncoder(&buf).Encode(mcnbt.StringifiedMessage(strings.TrimSpace(s)), ""); err != nil {
		return nil, fmt.Errorf("nbt: parse snbt: %w", err)
	}
	return Unmarshal(buf.Bytes())
}

// FormatSNBTString renders v as stringified NBT.
func FormatSNBTString(v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", err
	}
	var msg mcnbt.StringifiedMessage
	if _, err := mcnbt.NewDecoder(bytes.NewReader(data)).Decode(&msg); err != nil {
		return "", fmt.Errorf("nbt: format snbt: %w", err)
	}
	return string(msg), nil
}

// ParseJSON parses JSON into the model. JSON numbers without a fraction become
// int tags when they fit, other numbers become doubles.
func ParseJSON(data []byte) (any, error) {
	v, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("nbt: parse json: %w", err)
	}
	return normalize(v, true)
}

// FormatJSONString renders v as JSON with sorted keys.
func FormatJSONString(v any, indent int) string {
	return oj.JSON(Plain(v), &ojg.Options{Indent: indent, Sort: true})
}

// ParseYAML parses YAML into the model.
func ParseYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("nbt: parse yaml: %w", err)
	}
	return normalize(v, true)
}

// FormatYAMLBytes renders v as YAML.
func FormatYAMLBytes(v any) ([]byte, error) {
	data, err := yaml.Marshal(Plain(v))
	if err != nil {
		return nil, fmt.Errorf("nbt: format yaml: %w", err)
	}
	return data, nil
}
