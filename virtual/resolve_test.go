package virtual

import (
	"context"
	"errors"
	"testing"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/equation"
	"github.com/dimdev/pocket/internal/testutil"
)

func id(s string) pocket.Identifier {
	return pocket.MustParseIdentifier(s)
}

func TestNoneFailsEverything(t *testing.T) {
	fixtures := testutil.NewFixtures()
	contexts := map[string]*pocket.GenerationContext{
		"empty":    pocket.NewGenerationContext(),
		"dungeon":  fixtures.Context(fixtures.Dungeon()),
		"deep":     fixtures.Context(fixtures.Dungeon(), pocket.WithDepth(100)),
		"no rng":   {},
		"scripted": fixtures.Context(nil, pocket.WithRandom(testutil.NewScriptedRandom(0.5))),
	}

	for name, gen := range contexts {
		t.Run(name, func(t *testing.T) {
			assert := testutil.NewAssert(t)
			var vp VirtualPocket = None{}

			_, err := vp.PrepareAndPlace(context.Background(), gen)
			assert.ErrorIs(err, pocket.ErrUnsupported)
			_, err = vp.NextGeneratorReference(gen)
			assert.ErrorIs(err, pocket.ErrUnsupported)
			_, err = vp.PeekNextGeneratorReference(gen)
			assert.ErrorIs(err, pocket.ErrUnsupported)
			assert.Equal(0.0, vp.Weight(gen))
		})
	}
}

func TestIDReference(t *testing.T) {
	fixtures := testutil.NewFixtures()

	t.Run("resolves to itself and places", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		source := fixtures.Dungeon()
		gen := fixtures.Context(source)
		ref := IDReference{ID: id("dimdoors:vault")}

		next, err := ref.NextGeneratorReference(gen)
		assert.NoError(err)
		assert.Equal(GeneratorReference(ref), next)

		p, err := ref.PrepareAndPlace(context.Background(), gen)
		assert.NoError(err)
		assert.Equal(pocket.Pocket{ID: 1, World: "dimdoors:dungeon_pockets", Generator: id("dimdoors:vault"), Size: 2}, p)
		assert.True(gen.Used(id("dimdoors:vault")))
	})

	t.Run("default and custom weight", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		gen := fixtures.Context(nil)
		assert.Equal(5.0, IDReference{ID: id("dimdoors:hall")}.Weight(gen))
		assert.Equal(6.0, IDReference{ID: id("dimdoors:hall"), WeightEquation: equation.MustParse("depth * 2")}.Weight(gen))
		assert.Equal(0.0, IDReference{ID: id("dimdoors:hall"), WeightEquation: equation.MustParse(`"heavy"`)}.Weight(gen))
	})

	t.Run("unknown generator", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		gen := fixtures.Context(fixtures.Dungeon())
		_, err := IDReference{ID: id("dimdoors:nowhere")}.PrepareAndPlace(context.Background(), gen)
		assert.ErrorIs(err, pocket.ErrUnknownGenerator)
	})

	t.Run("no generator source", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		_, err := IDReference{ID: id("dimdoors:hall")}.Generator(pocket.NewGenerationContext())
		assert.ErrorIs(err, pocket.ErrUnsupported)
	})

	t.Run("peek leaves history alone", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		gen := fixtures.Context(fixtures.Dungeon())
		g, err := IDReference{ID: id("dimdoors:hall")}.PeekGenerator(gen)
		assert.NoError(err)
		assert.Equal(id("dimdoors:hall"), g.Key())
		assert.Equal(0, gen.History.Len())
	})

	t.Run("generator failures propagate", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		broken := testutil.NewMockGenerator("dimdoors:broken", 1)
		broken.Err = errors.New("no room")
		gen := fixtures.Context(testutil.NewMockSource(broken))
		_, err := IDReference{ID: id("dimdoors:broken")}.PrepareAndPlace(context.Background(), gen)
		assert.ErrorIs(err, broken.Err)
	})
}

func TestTagReference(t *testing.T) {
	fixtures := testutil.NewFixtures()

	keys := func(gs []pocket.Generator) []string {
		out := make([]string, 0, len(gs))
		for _, g := range gs {
			out = append(out, g.Key().String())
		}
		return out
	}

	t.Run("pool", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		gen := fixtures.Context(fixtures.Dungeon())

		pool, err := TagReference{Tag: "dungeon"}.Candidates(gen)
		assert.NoError(err)
		assert.Equal([]string{"dimdoors:hall", "dimdoors:vault", "dimdoors:library"}, keys(pool))

		pool, err = TagReference{Tag: "dungeon", Blacklist: []string{"treasure"}}.Candidates(gen)
		assert.NoError(err)
		assert.Equal([]string{"dimdoors:hall", "dimdoors:library"}, keys(pool))
	})

	t.Run("weighted draw", func(t *testing.T) {
		// hall 1, vault 3, library 2: cumulative bounds 1/6, 4/6, 6/6.
		tests := []struct {
			draw float64
			want string
		}{
			{0.0, "dimdoors:hall"},
			{0.16, "dimdoors:hall"},
			{0.2, "dimdoors:vault"},
			{0.6, "dimdoors:vault"},
			{0.7, "dimdoors:library"},
			{0.99, "dimdoors:library"},
		}
		for _, tt := range tests {
			assert := testutil.NewAssert(t)
			gen := fixtures.Context(fixtures.Dungeon(), pocket.WithRandom(testutil.NewScriptedRandom(tt.draw)))
			g, err := TagReference{Tag: "dungeon"}.Generator(gen)
			assert.NoError(err)
			assert.Equal(tt.want, g.Key().String(), "draw %v", tt.draw)
		}
	})

	t.Run("unique generators are used up", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		gen := fixtures.Context(fixtures.Dungeon(), pocket.WithRandom(testutil.NewScriptedRandom(0.9)))
		ref := TagReference{Tag: "dungeon"}

		p, err := ref.PrepareAndPlace(context.Background(), gen)
		assert.NoError(err)
		assert.Equal(id("dimdoors:library"), p.Generator)

		pool, err := ref.Candidates(gen)
		assert.NoError(err)
		assert.Equal([]string{"dimdoors:hall", "dimdoors:vault"}, keys(pool))

		g, err := ref.Generator(gen)
		assert.NoError(err)
		assert.Equal("dimdoors:vault", g.Key().String())
	})

	t.Run("peek does not use up generators", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		random := testutil.NewScriptedRandom(0.9)
		gen := fixtures.Context(fixtures.Dungeon(), pocket.WithRandom(random))
		ref := TagReference{Tag: "dungeon"}

		for i := 0; i < 3; i++ {
			g, err := ref.PeekGenerator(gen)
			assert.NoError(err)
			assert.Equal("dimdoors:library", g.Key().String())
		}
		assert.Equal(0, gen.History.Len())
		assert.Equal(0, random.Calls())
	})

	t.Run("empty pool", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		gen := fixtures.Context(fixtures.Dungeon())
		_, err := TagReference{Tag: "missing"}.Generator(gen)
		assert.ErrorIs(err, pocket.ErrNoCandidates)

		weightless := testutil.NewMockSource(testutil.NewMockGenerator("dimdoors:flat", 0, "flat"))
		_, err = TagReference{Tag: "flat"}.Generator(fixtures.Context(weightless))
		assert.ErrorIs(err, pocket.ErrNoCandidates)
	})

	t.Run("deterministic for a seed", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		draw := func() []string {
			gen := fixtures.Context(fixtures.Dungeon(), pocket.WithSeed(99))
			var out []string
			for i := 0; i < 20; i++ {
				g, err := TagReference{Tag: "dungeon", Blacklist: []string{"none"}}.Generator(gen)
				assert.NoError(err)
				out = append(out, g.Key().String())
			}
			return out
		}
		assert.Equal(draw(), draw())
	})
}

func TestConditionalSelector(t *testing.T) {
	fixtures := testutil.NewFixtures()
	selector := ConditionalSelector{Entries: []ConditionalEntry{
		{Condition: equation.MustParse("depth > 5"), Pocket: Inline(IDReference{ID: id("dimdoors:crypt")})},
		{Condition: equation.MustParse("cel:depth > 1"), Pocket: Inline(IDReference{ID: id("dimdoors:hall"), WeightEquation: equation.Constant(2)})},
	}}

	t.Run("first match wins", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		deep := fixtures.Context(fixtures.Dungeon(), pocket.WithDepth(8))
		ref, err := selector.NextGeneratorReference(deep)
		assert.NoError(err)
		assert.Equal(GeneratorReference(IDReference{ID: id("dimdoors:crypt")}), ref)
		assert.Equal(5.0, selector.Weight(deep))

		shallow := fixtures.Context(fixtures.Dungeon(), pocket.WithDepth(3))
		ref, err = selector.PeekNextGeneratorReference(shallow)
		assert.NoError(err)
		assert.Equal(id("dimdoors:hall"), ref.(IDReference).ID)
		assert.Equal(2.0, selector.Weight(shallow))

		p, err := selector.PrepareAndPlace(context.Background(), shallow)
		assert.NoError(err)
		assert.Equal(id("dimdoors:hall"), p.Generator)
	})

	t.Run("fall through fails loudly", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		gen := fixtures.Context(fixtures.Dungeon(), pocket.WithDepth(0))

		_, err := selector.NextGeneratorReference(gen)
		assert.ErrorIs(err, pocket.ErrUnsupported)
		_, err = selector.PeekNextGeneratorReference(gen)
		assert.ErrorIs(err, pocket.ErrUnsupported)
		_, err = selector.PrepareAndPlace(context.Background(), gen)
		assert.ErrorIs(err, pocket.ErrUnsupported)
		assert.Equal(0.0, selector.Weight(gen))
	})

	t.Run("condition errors propagate", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		bad := ConditionalSelector{Entries: []ConditionalEntry{
			{Condition: equation.MustParse(`"maybe"`), Pocket: Inline(None{})},
		}}
		_, err := bad.NextGeneratorReference(fixtures.Context(nil))
		var evalErr *equation.EvaluationError
		assert.True(errors.As(err, &evalErr))
		assert.Equal(0.0, bad.Weight(fixtures.Context(nil)))
	})
}

func TestPathSelector(t *testing.T) {
	fixtures := testutil.NewFixtures()
	selector := PathSelector{Pockets: []Child{
		Inline(IDReference{ID: id("dimdoors:hall"), WeightEquation: equation.Constant(1)}),
		Inline(IDReference{ID: id("dimdoors:vault"), WeightEquation: equation.Constant(3)}),
	}}

	t.Run("proportional to child weights with a scripted source", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		const trials = 400
		draws := make([]float64, trials)
		for i := range draws {
			draws[i] = float64(i) / trials
		}
		gen := fixtures.Context(fixtures.Dungeon(), pocket.WithRandom(testutil.NewScriptedRandom(draws...)))

		counts := map[string]int{}
		for i := 0; i < trials; i++ {
			ref, err := selector.NextGeneratorReference(gen)
			assert.NoError(err)
			counts[ref.(IDReference).ID.String()]++
		}
		assert.Equal(map[string]int{"dimdoors:hall": 100, "dimdoors:vault": 300}, counts)
	})

	t.Run("proportional to child weights with a seeded source", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		const trials = 20000
		gen := fixtures.Context(fixtures.Dungeon(), pocket.WithSeed(2024))

		vault := 0
		for i := 0; i < trials; i++ {
			ref, err := selector.NextGeneratorReference(gen)
			assert.NoError(err)
			if ref.(IDReference).ID == id("dimdoors:vault") {
				vault++
			}
		}
		assert.InDelta(0.75, float64(vault)/trials, 0.02)
	})

	t.Run("weight", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		gen := fixtures.Context(nil)
		assert.Equal(4.0, selector.Weight(gen))

		withNegative := PathSelector{Pockets: append(selector.Pockets,
			Inline(IDReference{ID: id("dimdoors:crypt"), WeightEquation: equation.Constant(-2)}))}
		assert.Equal(4.0, withNegative.Weight(gen))

		overridden := selector
		overridden.WeightEquation = equation.MustParse("size * 10")
		assert.Equal(20.0, overridden.Weight(gen))
	})

	t.Run("non positive children are never drawn", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		s := PathSelector{Pockets: []Child{
			Inline(None{}),
			Inline(IDReference{ID: id("dimdoors:crypt"), WeightEquation: equation.Constant(-1)}),
			Inline(IDReference{ID: id("dimdoors:hall"), WeightEquation: equation.Constant(1)}),
		}}
		gen := fixtures.Context(fixtures.Dungeon(), pocket.WithRandom(testutil.NewScriptedRandom(0, 0.5, 0.999)))
		for i := 0; i < 3; i++ {
			ref, err := s.NextGeneratorReference(gen)
			assert.NoError(err)
			assert.Equal(id("dimdoors:hall"), ref.(IDReference).ID)
		}
	})

	t.Run("no selectable child", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		gen := fixtures.Context(fixtures.Dungeon())
		for _, s := range []PathSelector{{}, {Pockets: []Child{Inline(None{}), Inline(None{})}}} {
			_, err := s.NextGeneratorReference(gen)
			assert.ErrorIs(err, pocket.ErrNoCandidates)
			_, err = s.PrepareAndPlace(context.Background(), gen)
			assert.ErrorIs(err, pocket.ErrNoCandidates)
		}
	})

	t.Run("places through the drawn child", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		source := fixtures.Dungeon()
		gen := fixtures.Context(source, pocket.WithRandom(testutil.NewScriptedRandom(0.9)))
		p, err := selector.PrepareAndPlace(context.Background(), gen)
		assert.NoError(err)
		assert.Equal(id("dimdoors:vault"), p.Generator)
		assert.Equal([]pocket.Identifier{id("dimdoors:vault")}, gen.History.Entries())
	})
}

func TestPeekIsSideEffectFree(t *testing.T) {
	fixtures := testutil.NewFixtures()
	tree := PathSelector{Pockets: []Child{
		Inline(TagReference{Tag: "dungeon"}),
		Inline(PathSelector{Pockets: []Child{
			Inline(IDReference{ID: id("dimdoors:hall")}),
			Inline(IDReference{ID: id("dimdoors:crypt")}),
		}}),
		Inline(IDReference{ID: id("dimdoors:vault"), WeightEquation: equation.Constant(2)}),
	}}

	for seed := uint64(0); seed < 25; seed++ {
		assert := testutil.NewAssert(t)
		gen := fixtures.Context(fixtures.Dungeon(), pocket.WithSeed(seed))
		before := gen.Random.Clone()

		first, err := tree.PeekNextGeneratorReference(gen)
		assert.NoError(err)
		second, err := tree.PeekNextGeneratorReference(gen)
		assert.NoError(err)
		assert.Equal(first, second)

		assert.Equal(before.Clone().Float64(), gen.Random.Clone().Float64(), "seed %d: random source advanced", seed)
		assert.Equal(0, gen.History.Len())

		next, err := tree.NextGeneratorReference(gen)
		assert.NoError(err)
		assert.Equal(first, next, "seed %d: next differs from peek", seed)
	}
}

func TestResolutionIsConcurrencySafe(t *testing.T) {
	fixtures := testutil.NewFixtures()
	tree := PathSelector{Pockets: []Child{
		Inline(TagReference{Tag: "dungeon"}),
		Inline(IDReference{ID: id("dimdoors:crypt")}),
	}}
	source := fixtures.Dungeon()

	done := make(chan []string)
	for w := 0; w < 8; w++ {
		go func() {
			gen := fixtures.Context(source, pocket.WithSeed(11))
			var out []string
			for i := 0; i < 50; i++ {
				ref, err := tree.NextGeneratorReference(gen)
				if err != nil {
					t.Error(err)
					break
				}
				out = append(out, ref.Key().String())
			}
			done <- out
		}()
	}
	first := <-done
	for w := 1; w < 8; w++ {
		if got := <-done; len(got) != len(first) {
			t.Fatalf("worker produced %d references, want %d", len(got), len(first))
		}
	}
}
