package virtual

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/nbt"
)

var (
	equationSchema = map[string]any{"type": []any{"string", "number"}}
	childSchema    = map[string]any{"type": []any{"object", "string"}}
)

var noneSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"type": map[string]any{"type": "string"},
	},
}

var idReferenceSchema = map[string]any{
	"type":     "object",
	"required": []any{"id"},
	"properties": map[string]any{
		"type":   map[string]any{"type": "string"},
		"id":     map[string]any{"type": "string", "minLength": 1},
		"weight": equationSchema,
	},
}

var tagReferenceSchema = map[string]any{
	"type":     "object",
	"required": []any{"tag"},
	"properties": map[string]any{
		"type": map[string]any{"type": "string"},
		"tag":  map[string]any{"type": "string", "minLength": 1},
		"blacklist": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"weight": equationSchema,
	},
}

var conditionalSelectorSchema = map[string]any{
	"type":     "object",
	"required": []any{"entries"},
	"properties": map[string]any{
		"type": map[string]any{"type": "string"},
		"entries": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"condition", "pocket"},
				"properties": map[string]any{
					"condition": equationSchema,
					"pocket":    childSchema,
				},
			},
		},
	},
}

var pathSelectorSchema = map[string]any{
	"type":     "object",
	"required": []any{"pockets"},
	"properties": map[string]any{
		"type": map[string]any{"type": "string"},
		"pockets": map[string]any{
			"type":  "array",
			"items": childSchema,
		},
		"weight": equationSchema,
	},
}

var compiledSchemas sync.Map // *Type -> *gojsonschema.Schema

// ValidateFields checks tag against the field schema of typ. Types without a
// schema accept anything.
func ValidateFields(typ *Type, tag nbt.Compound) error {
	if len(typ.schema) == 0 {
		return nil
	}

	schema, err := compiledSchema(typ)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(nbt.Plain(tag)))
	if err != nil {
		return fmt.Errorf("%w: validate %s: %v", pocket.ErrMalformed, typ.key, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s fields: %s", pocket.ErrMalformed, typ.key, strings.Join(msgs, "; "))
	}
	return nil
}

func compiledSchema(typ *Type) (*gojsonschema.Schema, error) {
	if s, ok := compiledSchemas.Load(typ); ok {
		return s.(*gojsonschema.Schema), nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(typ.schema))
	if err != nil {
		return nil, fmt.Errorf("schema for %s: %w", typ.key, err)
	}
	actual, _ := compiledSchemas.LoadOrStore(typ, s)
	return actual.(*gojsonschema.Schema), nil
}
