package virtual

import (
	"context"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/nbt"
)

// Namespace of the built-in variants.
const Namespace = "dimdoors"

// Built-in type keys.
var (
	NoneKey                = pocket.NewIdentifier(Namespace, "none")
	IDReferenceKey         = pocket.NewIdentifier(Namespace, "id_reference")
	TagReferenceKey        = pocket.NewIdentifier(Namespace, "tag_reference")
	ConditionalSelectorKey = pocket.NewIdentifier(Namespace, "conditional_selector")
	PathSelectorKey        = pocket.NewIdentifier(Namespace, "path_selector")
)

// VirtualPocket is one node of a virtual pocket tree.
type VirtualPocket interface {
	// Type returns the descriptor of this variant.
	Type() *Type

	// Key returns the registered type identifier.
	Key() pocket.Identifier

	// PrepareAndPlace resolves the tree down to a generator and places a pocket.
	PrepareAndPlace(ctx context.Context, gen *pocket.GenerationContext) (pocket.Pocket, error)

	// NextGeneratorReference resolves the tree down to a generator reference,
	// advancing the random source of gen.
	NextGeneratorReference(gen *pocket.GenerationContext) (GeneratorReference, error)

	// PeekNextGeneratorReference runs the same selection as
	// NextGeneratorReference without any observable effect on gen.
	PeekNextGeneratorReference(gen *pocket.GenerationContext) (GeneratorReference, error)

	// Weight is the selection weight used by a parent PathSelector.
	Weight(gen *pocket.GenerationContext) float64

	// FromNBT returns a copy populated from the variant fields of tag.
	FromNBT(dec *Decoder, tag nbt.Compound) (VirtualPocket, error)

	// ToNBT writes the variant fields into tag.
	ToNBT(enc *Encoder, tag nbt.Compound, allowReference bool) error
}

// GeneratorReference is a leaf of the tree that names generators.
type GeneratorReference interface {
	VirtualPocket

	// Generator selects the referenced generator and records it as used.
	Generator(gen *pocket.GenerationContext) (pocket.Generator, error)

	// PeekGenerator selects like Generator without effects on gen.
	PeekGenerator(gen *pocket.GenerationContext) (pocket.Generator, error)
}

// Child is a node owned by a selector. Resource holds the name it was loaded
// from when the serialized form was a string reference.
type Child struct {
	Pocket   VirtualPocket
	Resource string
}

// Inline wraps vp as a child without a resource name.
func Inline(vp VirtualPocket) Child {
	return Child{Pocket: vp}
}

// Referenced wraps vp as a child loaded from the named resource.
func Referenced(name string, vp VirtualPocket) Child {
	return Child{Pocket: vp, Resource: name}
}

func (c Child) pocket() VirtualPocket {
	if c.Pocket == nil {
		return None{}
	}
	return c.Pocket
}

var (
	noneType                *Type
	idReferenceType         *Type
	tagReferenceType        *Type
	conditionalSelectorType *Type
	pathSelectorType        *Type
)

func init() {
	noneType = NewType(NoneKey, func() VirtualPocket { return None{} },
		WithDescription("Absent or invalid pocket definition; every resolution fails."),
		WithSchema(noneSchema))
	idReferenceType = NewType(IDReferenceKey, func() VirtualPocket { return IDReference{} },
		WithDescription("Names one generator by identifier."),
		WithSchema(idReferenceSchema))
	tagReferenceType = NewType(TagReferenceKey, func() VirtualPocket { return TagReference{} },
		WithDescription("Draws one generator from the pool carrying a tag."),
		WithSchema(tagReferenceSchema))
	conditionalSelectorType = NewType(ConditionalSelectorKey, func() VirtualPocket { return ConditionalSelector{} },
		WithDescription("Selects the first child whose condition holds."),
		WithSchema(conditionalSelectorSchema))
	pathSelectorType = NewType(PathSelectorKey, func() VirtualPocket { return PathSelector{} },
		WithDescription("Selects a child at random, proportionally to child weights."),
		WithSchema(pathSelectorSchema))
}

// Builtins returns the built-in types.
func Builtins() []*Type {
	return []*Type{
		noneType,
		idReferenceType,
		tagReferenceType,
		conditionalSelectorType,
		pathSelectorType,
	}
}
