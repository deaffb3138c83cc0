package virtual

import (
	"context"
	"fmt"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/equation"
	"github.com/dimdev/pocket/nbt"
)

// ConditionalEntry pairs a condition with the child chosen when it holds.
type ConditionalEntry struct {
	Condition equation.Equation
	Pocket    Child
}

// ConditionalSelector resolves through the first entry whose condition holds
// against the context variables. With no match it resolves through None.
type ConditionalSelector struct {
	Entries []ConditionalEntry
}

var _ VirtualPocket = ConditionalSelector{}

func (ConditionalSelector) Type() *Type { return conditionalSelectorType }

func (ConditionalSelector) Key() pocket.Identifier { return ConditionalSelectorKey }

// Select returns the child chosen for gen.
func (s ConditionalSelector) Select(gen *pocket.GenerationContext) (VirtualPocket, error) {
	vars := gen.Variables()
	for i, e := range s.Entries {
		ok, err := e.Condition.Bool(vars)
		if err != nil {
			return nil, fmt.Errorf("entries[%d] condition: %w", i, err)
		}
		if ok {
			return e.Pocket.pocket(), nil
		}
	}
	return None{}, nil
}

func (s ConditionalSelector) PrepareAndPlace(ctx context.Context, gen *pocket.GenerationContext) (pocket.Pocket, error) {
	child, err := s.Select(gen)
	if err != nil {
		return pocket.Pocket{}, err
	}
	return child.PrepareAndPlace(ctx, gen)
}

func (s ConditionalSelector) NextGeneratorReference(gen *pocket.GenerationContext) (GeneratorReference, error) {
	child, err := s.Select(gen)
	if err != nil {
		return nil, err
	}
	return child.NextGeneratorReference(gen)
}

func (s ConditionalSelector) PeekNextGeneratorReference(gen *pocket.GenerationContext) (GeneratorReference, error) {
	child, err := s.Select(gen)
	if err != nil {
		return nil, err
	}
	return child.PeekNextGeneratorReference(gen)
}

func (s ConditionalSelector) Weight(gen *pocket.GenerationContext) float64 {
	child, err := s.Select(gen)
	if err != nil {
		return 0
	}
	return child.Weight(gen)
}

func (s ConditionalSelector) FromNBT(dec *Decoder, tag nbt.Compound) (VirtualPocket, error) {
	list, ok := tag.GetList("entries")
	if !ok {
		return nil, fmt.Errorf("%w: %s requires an entries list", pocket.ErrMalformed, ConditionalSelectorKey)
	}
	var out ConditionalSelector
	for i, raw := range list {
		entry, ok := raw.(nbt.Compound)
		if !ok {
			return nil, fmt.Errorf("%w: entries[%d] must be a compound, got %s", pocket.ErrMalformed, i, nbt.TypeName(raw))
		}
		cond, err := dec.Equation(entry, "condition")
		if err != nil {
			return nil, fmt.Errorf("entries[%d]: %w", i, err)
		}
		if cond.IsZero() {
			return nil, fmt.Errorf("%w: entries[%d] requires a condition", pocket.ErrMalformed, i)
		}
		value, ok := entry["pocket"]
		if !ok {
			return nil, fmt.Errorf("%w: entries[%d] requires a pocket", pocket.ErrMalformed, i)
		}
		child, err := dec.Child(fmt.Sprintf(".entries[%d].pocket", i), value)
		if err != nil {
			return nil, err
		}
		out.Entries = append(out.Entries, ConditionalEntry{Condition: cond, Pocket: child})
	}
	return out, nil
}

func (s ConditionalSelector) ToNBT(enc *Encoder, tag nbt.Compound, allowReference bool) error {
	list := make(nbt.List, 0, len(s.Entries))
	for i, e := range s.Entries {
		if e.Condition.IsZero() {
			return fmt.Errorf("%w: entries[%d] without condition", pocket.ErrMalformed, i)
		}
		value, err := enc.Child(fmt.Sprintf(".entries[%d].pocket", i), e.Pocket, allowReference)
		if err != nil {
			return err
		}
		list = append(list, nbt.Compound{
			"condition": e.Condition.String(),
			"pocket":    value,
		})
	}
	tag["entries"] = list
	return nil
}

// PathSelector resolves through a child drawn with probability proportional
// to its weight. Children weighing zero or less are never drawn.
type PathSelector struct {
	Pockets []Child

	// WeightEquation overrides the default weight, the sum of child weights.
	WeightEquation equation.Equation
}

var _ VirtualPocket = PathSelector{}

func (PathSelector) Type() *Type { return pathSelectorType }

func (PathSelector) Key() pocket.Identifier { return PathSelectorKey }

// Select draws a child, advancing the random source of gen.
func (s PathSelector) Select(gen *pocket.GenerationContext) (VirtualPocket, error) {
	weights := make([]float64, len(s.Pockets))
	for i, c := range s.Pockets {
		weights[i] = c.pocket().Weight(gen)
	}
	i, err := gen.PickWeighted(weights)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", PathSelectorKey, err)
	}
	return s.Pockets[i].pocket(), nil
}

func (s PathSelector) PrepareAndPlace(ctx context.Context, gen *pocket.GenerationContext) (pocket.Pocket, error) {
	child, err := s.Select(gen)
	if err != nil {
		return pocket.Pocket{}, err
	}
	return child.PrepareAndPlace(ctx, gen)
}

func (s PathSelector) NextGeneratorReference(gen *pocket.GenerationContext) (GeneratorReference, error) {
	child, err := s.Select(gen)
	if err != nil {
		return nil, err
	}
	return child.NextGeneratorReference(gen)
}

func (s PathSelector) PeekNextGeneratorReference(gen *pocket.GenerationContext) (GeneratorReference, error) {
	preview := gen.Preview()
	child, err := s.Select(preview)
	if err != nil {
		return nil, err
	}
	return child.PeekNextGeneratorReference(preview)
}

func (s PathSelector) Weight(gen *pocket.GenerationContext) float64 {
	if !s.WeightEquation.IsZero() {
		w, err := s.WeightEquation.Float(gen.Variables())
		if err != nil {
			return 0
		}
		return w
	}
	total := 0.0
	for _, c := range s.Pockets {
		if w := c.pocket().Weight(gen); w > 0 {
			total += w
		}
	}
	return total
}

func (s PathSelector) FromNBT(dec *Decoder, tag nbt.Compound) (VirtualPocket, error) {
	list, ok := tag.GetList("pockets")
	if !ok {
		return nil, fmt.Errorf("%w: %s requires a pockets list", pocket.ErrMalformed, PathSelectorKey)
	}
	var out PathSelector
	for i, value := range list {
		child, err := dec.Child(fmt.Sprintf(".pockets[%d]", i), value)
		if err != nil {
			return nil, err
		}
		out.Pockets = append(out.Pockets, child)
	}
	weight, err := dec.Equation(tag, "weight")
	if err != nil {
		return nil, err
	}
	out.WeightEquation = weight
	return out, nil
}

func (s PathSelector) ToNBT(enc *Encoder, tag nbt.Compound, allowReference bool) error {
	list := make(nbt.List, 0, len(s.Pockets))
	for i, c := range s.Pockets {
		value, err := enc.Child(fmt.Sprintf(".pockets[%d]", i), c, allowReference)
		if err != nil {
			return err
		}
		list = append(list, value)
	}
	tag["pockets"] = list
	if !s.WeightEquation.IsZero() {
		tag["weight"] = s.WeightEquation.String()
	}
	return nil
}
