package virtual

import (
	"context"
	"fmt"
	"slices"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/equation"
	"github.com/dimdev/pocket/nbt"
)

// DefaultReferenceWeight applies to references without a weight equation.
var DefaultReferenceWeight = equation.Constant(5)

// IDReference names one generator.
type IDReference struct {
	ID             pocket.Identifier
	WeightEquation equation.Equation
}

var _ GeneratorReference = IDReference{}

func (IDReference) Type() *Type { return idReferenceType }

func (IDReference) Key() pocket.Identifier { return IDReferenceKey }

func (r IDReference) PrepareAndPlace(ctx context.Context, gen *pocket.GenerationContext) (pocket.Pocket, error) {
	g, err := r.Generator(gen)
	if err != nil {
		return pocket.Pocket{}, err
	}
	return g.Place(ctx, gen)
}

func (r IDReference) NextGeneratorReference(*pocket.GenerationContext) (GeneratorReference, error) {
	return r, nil
}

func (r IDReference) PeekNextGeneratorReference(*pocket.GenerationContext) (GeneratorReference, error) {
	return r, nil
}

func (r IDReference) Weight(gen *pocket.GenerationContext) float64 {
	return referenceWeight(r.WeightEquation, gen)
}

// Generator looks the id up in the context's generator source.
func (r IDReference) Generator(gen *pocket.GenerationContext) (pocket.Generator, error) {
	g, err := r.PeekGenerator(gen)
	if err != nil {
		return nil, err
	}
	gen.Record(g.Key())
	return g, nil
}

func (r IDReference) PeekGenerator(gen *pocket.GenerationContext) (pocket.Generator, error) {
	if gen.Generators == nil {
		return nil, fmt.Errorf("%w: generation context has no generators", pocket.ErrUnsupported)
	}
	g, ok := gen.Generators.Generator(r.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", pocket.ErrUnknownGenerator, r.ID)
	}
	return g, nil
}

func (r IDReference) FromNBT(dec *Decoder, tag nbt.Compound) (VirtualPocket, error) {
	s, ok := tag.GetString("id")
	if !ok {
		return nil, fmt.Errorf("%w: %s requires a string id", pocket.ErrMalformed, IDReferenceKey)
	}
	id, err := pocket.ParseIdentifier(s)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", pocket.ErrMalformed, err)
	}
	weight, err := dec.Equation(tag, "weight")
	if err != nil {
		return nil, err
	}
	return IDReference{ID: id, WeightEquation: weight}, nil
}

func (r IDReference) ToNBT(_ *Encoder, tag nbt.Compound, _ bool) error {
	if r.ID.IsZero() {
		return fmt.Errorf("%w: %s without id", pocket.ErrMalformed, IDReferenceKey)
	}
	tag["id"] = r.ID.String()
	if !r.WeightEquation.IsZero() {
		tag["weight"] = r.WeightEquation.String()
	}
	return nil
}

// TagReference draws from every generator carrying Tag and none of the
// Blacklist tags. Unique generators already used in the context's history
// are left out of the pool.
type TagReference struct {
	Tag            string
	Blacklist      []string
	WeightEquation equation.Equation
}

var _ GeneratorReference = TagReference{}

func (TagReference) Type() *Type { return tagReferenceType }

func (TagReference) Key() pocket.Identifier { return TagReferenceKey }

func (r TagReference) PrepareAndPlace(ctx context.Context, gen *pocket.GenerationContext) (pocket.Pocket, error) {
	g, err := r.Generator(gen)
	if err != nil {
		return pocket.Pocket{}, err
	}
	return g.Place(ctx, gen)
}

func (r TagReference) NextGeneratorReference(*pocket.GenerationContext) (GeneratorReference, error) {
	return r, nil
}

func (r TagReference) PeekNextGeneratorReference(*pocket.GenerationContext) (GeneratorReference, error) {
	return r, nil
}

func (r TagReference) Weight(gen *pocket.GenerationContext) float64 {
	return referenceWeight(r.WeightEquation, gen)
}

// Generator draws one member of the pool and records it as used.
func (r TagReference) Generator(gen *pocket.GenerationContext) (pocket.Generator, error) {
	g, err := r.pick(gen)
	if err != nil {
		return nil, err
	}
	gen.Record(g.Key())
	return g, nil
}

func (r TagReference) PeekGenerator(gen *pocket.GenerationContext) (pocket.Generator, error) {
	return r.pick(gen.Preview())
}

// Candidates returns the current pool in generator source order.
func (r TagReference) Candidates(gen *pocket.GenerationContext) ([]pocket.Generator, error) {
	if gen.Generators == nil {
		return nil, fmt.Errorf("%w: generation context has no generators", pocket.ErrUnsupported)
	}
	var out []pocket.Generator
	for _, g := range gen.Generators.Generators() {
		tags := g.Tags()
		if !slices.Contains(tags, r.Tag) {
			continue
		}
		if slices.ContainsFunc(r.Blacklist, func(b string) bool { return slices.Contains(tags, b) }) {
			continue
		}
		if g.Unique() && gen.Used(g.Key()) {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (r TagReference) pick(gen *pocket.GenerationContext) (pocket.Generator, error) {
	candidates, err := r.Candidates(gen)
	if err != nil {
		return nil, err
	}
	weights := make([]float64, len(candidates))
	for i, g := range candidates {
		weights[i] = g.Weight(gen)
	}
	i, err := gen.PickWeighted(weights)
	if err != nil {
		return nil, fmt.Errorf("tag %q: %w", r.Tag, err)
	}
	return candidates[i], nil
}

func (r TagReference) FromNBT(dec *Decoder, tag nbt.Compound) (VirtualPocket, error) {
	name, ok := tag.GetString("tag")
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: %s requires a string tag", pocket.ErrMalformed, TagReferenceKey)
	}
	out := TagReference{Tag: name}

	if raw, ok := tag["blacklist"]; ok {
		list, ok := raw.(nbt.List)
		if !ok {
			return nil, fmt.Errorf("%w: blacklist must be a list, got %s", pocket.ErrMalformed, nbt.TypeName(raw))
		}
		for i, e := range list {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: blacklist[%d] must be a string", pocket.ErrMalformed, i)
			}
			out.Blacklist = append(out.Blacklist, s)
		}
	}

	weight, err := dec.Equation(tag, "weight")
	if err != nil {
		return nil, err
	}
	out.WeightEquation = weight
	return out, nil
}

func (r TagReference) ToNBT(_ *Encoder, tag nbt.Compound, _ bool) error {
	if r.Tag == "" {
		return fmt.Errorf("%w: %s without tag", pocket.ErrMalformed, TagReferenceKey)
	}
	tag["tag"] = r.Tag
	if len(r.Blacklist) > 0 {
		tag["blacklist"] = nbt.Strings(r.Blacklist)
	}
	if !r.WeightEquation.IsZero() {
		tag["weight"] = r.WeightEquation.String()
	}
	return nil
}

func referenceWeight(eq equation.Equation, gen *pocket.GenerationContext) float64 {
	if eq.IsZero() {
		eq = DefaultReferenceWeight
	}
	w, err := eq.Float(gen.Variables())
	if err != nil {
		return 0
	}
	return w
}
