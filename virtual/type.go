// Package virtual implements virtual pockets: serializable trees describing how
// a pocket is obtained, either by naming a generator directly, by drawing from
// a tagged pool of generators, or by selecting between child trees.
//
// Trees are values. Resolution never mutates a tree; the random source and the
// used-generator history travel in the pocket.GenerationContext.
package virtual

import (
	"github.com/dimdev/pocket"
)

// Factory creates the default instance of a variant.
type Factory func() VirtualPocket

// Type pairs a registered identifier with the factory for its variant.
// A Type is immutable once created.
type Type struct {
	key         pocket.Identifier
	factory     Factory
	description string
	schema      map[string]any
}

// TypeOption configures a Type.
type TypeOption func(*Type)

// WithDescription sets a human readable description.
func WithDescription(description string) TypeOption {
	return func(t *Type) {
		t.description = description
	}
}

// WithSchema sets a JSON schema describing the serialized fields.
func WithSchema(schema map[string]any) TypeOption {
	return func(t *Type) {
		t.schema = schema
	}
}

// NewType creates a type descriptor.
func NewType(key pocket.Identifier, factory Factory, opts ...TypeOption) *Type {
	t := &Type{key: key, factory: factory}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Key returns the registered identifier.
func (t *Type) Key() pocket.Identifier {
	return t.key
}

// New returns a default instance.
func (t *Type) New() VirtualPocket {
	return t.factory()
}

// Description returns the description, if any.
func (t *Type) Description() string {
	return t.description
}

// Schema returns the field schema, or nil.
func (t *Type) Schema() map[string]any {
	return t.schema
}

// Metadata describes a type for tooling.
type Metadata struct {
	Key         string         `json:"key" yaml:"key"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      map[string]any `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Metadata returns the tooling description of t.
func (t *Type) Metadata() Metadata {
	return Metadata{
		Key:         t.key.String(),
		Description: t.description,
		Schema:      t.schema,
	}
}
