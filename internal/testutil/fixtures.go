package testutil

import (
	"github.com/dimdev/pocket"
)

// ScriptedRandom replays a fixed sequence of draws, cycling when exhausted.
type ScriptedRandom struct {
	Draws []float64
	next  int
}

// NewScriptedRandom creates a random source returning draws in order.
func NewScriptedRandom(draws ...float64) *ScriptedRandom {
	return &ScriptedRandom{Draws: draws}
}

func (r *ScriptedRandom) Float64() float64 {
	if len(r.Draws) == 0 {
		return 0
	}
	v := r.Draws[r.next%len(r.Draws)]
	r.next++
	return v
}

func (r *ScriptedRandom) Clone() pocket.Random {
	c := *r
	return &c
}

// Calls returns how many draws were taken.
func (r *ScriptedRandom) Calls() int {
	return r.next
}

// Fixtures builds the generators and contexts shared by tests.
type Fixtures struct{}

// NewFixtures creates fixtures.
func NewFixtures() *Fixtures {
	return &Fixtures{}
}

// Dungeon returns a small generator set:
//
//	dimdoors:hall      weight 1, tags dungeon
//	dimdoors:vault     weight 3, tags dungeon treasure
//	dimdoors:library   weight 2, tags dungeon, unique
//	dimdoors:crypt     weight 4, tags crypt
func (f *Fixtures) Dungeon() *MockSource {
	library := NewMockGenerator("dimdoors:library", 2, "dungeon")
	library.IsUnique = true
	return NewMockSource(
		NewMockGenerator("dimdoors:hall", 1, "dungeon"),
		NewMockGenerator("dimdoors:vault", 3, "dungeon", "treasure"),
		library,
		NewMockGenerator("dimdoors:crypt", 4, "crypt"),
	)
}

// Context returns a generation context over source with a seeded random
// source.
func (f *Fixtures) Context(source pocket.GeneratorSource, opts ...pocket.ContextOption) *pocket.GenerationContext {
	base := []pocket.ContextOption{
		pocket.WithSeed(7),
		pocket.WithDepth(3),
		pocket.WithSize(2),
		pocket.WithWorld("dimdoors:dungeon_pockets", "minecraft:overworld"),
		pocket.WithGenerators(source),
	}
	return pocket.NewGenerationContext(append(base, opts...)...)
}
