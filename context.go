package pocket

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Equation variable names exposed by GenerationContext.Variables.
const (
	VarDepth       = "depth"
	VarWorld       = "world"
	VarSourceWorld = "source_world"
	VarSize        = "size"
	VarVars        = "vars"
)

// GenerationContext carries everything a resolution call may consult.
//
// Virtual pockets never mutate themselves; the random source and the history
// are the only state a resolution advances, and both live here. A context is
// not safe for concurrent use.
type GenerationContext struct {
	// World is the dimension the pocket is generated in.
	World string

	// SourceWorld is the dimension the traveller came from.
	SourceWorld string

	// Depth is the pocket depth relative to the overworld.
	Depth int

	// Size is the requested pocket size.
	Size int

	// Vars holds extra equation variables supplied by the caller.
	Vars map[string]any

	// Random is the deterministic random source for selections.
	Random Random

	// Generators resolves generator references.
	Generators GeneratorSource

	// History tracks generators already used.
	History *History

	preview bool
}

// ContextOption configures a GenerationContext.
type ContextOption func(*GenerationContext)

// WithWorld sets the target and source worlds.
func WithWorld(world, source string) ContextOption {
	return func(g *GenerationContext) {
		g.World = world
		g.SourceWorld = source
	}
}

// WithDepth sets the pocket depth.
func WithDepth(depth int) ContextOption {
	return func(g *GenerationContext) {
		g.Depth = depth
	}
}

// WithSize sets the requested pocket size.
func WithSize(size int) ContextOption {
	return func(g *GenerationContext) {
		g.Size = size
	}
}

// WithVar adds an equation variable.
func WithVar(name string, value any) ContextOption {
	return func(g *GenerationContext) {
		if g.Vars == nil {
			g.Vars = make(map[string]any)
		}
		g.Vars[name] = value
	}
}

// WithRandom sets the random source.
func WithRandom(r Random) ContextOption {
	return func(g *GenerationContext) {
		g.Random = r
	}
}

// WithSeed sets a PCG random source seeded with seed.
func WithSeed(seed uint64) ContextOption {
	return WithRandom(NewRandom(seed))
}

// WithGenerators sets the generator source.
func WithGenerators(source GeneratorSource) ContextOption {
	return func(g *GenerationContext) {
		g.Generators = source
	}
}

// WithHistory shares an existing history.
func WithHistory(h *History) ContextOption {
	return func(g *GenerationContext) {
		g.History = h
	}
}

// NewGenerationContext creates a context with a zero-seeded random source and
// an empty history.
func NewGenerationContext(opts ...ContextOption) *GenerationContext {
	g := &GenerationContext{
		Random:  NewRandom(0),
		History: NewHistory(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Variables returns the equation environment for this context.
func (g *GenerationContext) Variables() map[string]any {
	vars := make(map[string]any, len(g.Vars)+5)
	for k, v := range g.Vars {
		vars[k] = v
	}
	custom := g.Vars
	if custom == nil {
		custom = map[string]any{}
	}
	vars[VarDepth] = g.Depth
	vars[VarWorld] = g.World
	vars[VarSourceWorld] = g.SourceWorld
	vars[VarSize] = g.Size
	vars[VarVars] = custom
	return vars
}

// Preview returns a copy that can be resolved against without side effects:
// the random source is cloned and the history becomes read-only.
func (g *GenerationContext) Preview() *GenerationContext {
	p := *g
	p.preview = true
	if g.Random != nil {
		p.Random = g.Random.Clone()
	}
	return &p
}

// IsPreview reports whether g was created by Preview.
func (g *GenerationContext) IsPreview() bool {
	return g.preview
}

// Record marks a generator as used. It is a no-op on previews.
func (g *GenerationContext) Record(key Identifier) {
	if g.preview || g.History == nil {
		return
	}
	g.History.Record(key)
}

// Used reports whether the history already holds key.
func (g *GenerationContext) Used(key Identifier) bool {
	return g.History != nil && g.History.Used(key)
}

// PickWeighted draws one index with probability proportional to its weight.
// Entries with a weight that is not a positive finite number are never picked.
func (g *GenerationContext) PickWeighted(weights []float64) (int, error) {
	if g.Random == nil {
		return -1, fmt.Errorf("%w: generation context has no random source", ErrUnsupported)
	}

	total := 0.0
	last := -1
	for i, w := range weights {
		if !selectable(w) {
			continue
		}
		total += w
		last = i
	}
	if last < 0 {
		return -1, ErrNoCandidates
	}

	draw := g.Random.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		if !selectable(w) {
			continue
		}
		cumulative += w
		if draw < cumulative {
			return i, nil
		}
	}
	// Rounding can leave draw == total.
	return last, nil
}

func selectable(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}

// Random is a deterministic random source.
type Random interface {
	// Float64 returns a number in [0, 1).
	Float64() float64

	// Clone returns an independent source in the same state.
	Clone() Random
}

type pcgRandom struct {
	src rand.PCG
}

// NewRandom returns a PCG-backed Random seeded with seed.
func NewRandom(seed uint64) Random {
	return &pcgRandom{src: *rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

func (r *pcgRandom) Float64() float64 {
	return rand.New(&r.src).Float64()
}

func (r *pcgRandom) Clone() Random {
	c := *r
	return &c
}
