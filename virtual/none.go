package virtual

import (
	"context"
	"fmt"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/nbt"
)

// None is the absent pocket. Decoding falls back to it for unknown types,
// and every resolution through it fails with pocket.ErrUnsupported.
type None struct{}

var _ VirtualPocket = None{}

func (None) Type() *Type { return noneType }

func (None) Key() pocket.Identifier { return NoneKey }

func (None) PrepareAndPlace(context.Context, *pocket.GenerationContext) (pocket.Pocket, error) {
	return pocket.Pocket{}, errNone("place")
}

func (None) NextGeneratorReference(*pocket.GenerationContext) (GeneratorReference, error) {
	return nil, errNone("select a generator reference")
}

func (None) PeekNextGeneratorReference(*pocket.GenerationContext) (GeneratorReference, error) {
	return nil, errNone("peek a generator reference")
}

func (None) Weight(*pocket.GenerationContext) float64 { return 0 }

func (n None) FromNBT(*Decoder, nbt.Compound) (VirtualPocket, error) { return n, nil }

func (None) ToNBT(*Encoder, nbt.Compound, bool) error { return nil }

func errNone(op string) error {
	return fmt.Errorf("%w: cannot %s from %s", pocket.ErrUnsupported, op, NoneKey)
}
