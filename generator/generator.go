// Package generator provides a generator catalog loaded from data packs.
//
// The placement engine proper lives in the host; catalog generators only
// allocate pocket ids and report what would be placed, which is what the
// command line tools and tests need.
package generator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/equation"
	"github.com/dimdev/pocket/nbt"
	"github.com/dimdev/pocket/resource"
)

// DefaultWeight applies to definitions without a weight.
var DefaultWeight = equation.Constant(5)

// Definition is the serialized form of a generator.
type Definition struct {
	Tags   []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Weight string   `json:"weight,omitempty" yaml:"weight,omitempty"`
	Unique bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
	Size   int      `json:"size,omitempty" yaml:"size,omitempty"`
}

// ParseDefinition reads a definition from a structured value.
func ParseDefinition(v any) (Definition, error) {
	tag, ok := v.(nbt.Compound)
	if !ok {
		return Definition{}, fmt.Errorf("%w: generator must be a compound, got %s", pocket.ErrMalformed, nbt.TypeName(v))
	}

	var def Definition
	if raw, ok := tag["tags"]; ok {
		list, ok := tag.GetList("tags")
		if !ok {
			return Definition{}, fmt.Errorf("%w: tags must be a list, got %s", pocket.ErrMalformed, nbt.TypeName(raw))
		}
		for i, e := range list {
			s, ok := e.(string)
			if !ok {
				return Definition{}, fmt.Errorf("%w: tags[%d] must be a string", pocket.ErrMalformed, i)
			}
			def.Tags = append(def.Tags, s)
		}
	}
	if raw, ok := tag["weight"]; ok {
		switch w := raw.(type) {
		case string:
			def.Weight = w
		default:
			f, ok := nbt.AsFloat(raw)
			if !ok {
				return Definition{}, fmt.Errorf("%w: weight must be an equation", pocket.ErrMalformed)
			}
			def.Weight = equation.Constant(f).String()
		}
	}
	if raw, ok := tag["unique"]; ok {
		u, ok := tag.GetBool("unique")
		if !ok {
			return Definition{}, fmt.Errorf("%w: unique must be a boolean, got %s", pocket.ErrMalformed, nbt.TypeName(raw))
		}
		def.Unique = u
	}
	if raw, ok := tag["size"]; ok {
		n, ok := nbt.AsInt(raw)
		if !ok || n < 0 {
			return Definition{}, fmt.Errorf("%w: size must be a non-negative integer", pocket.ErrMalformed)
		}
		def.Size = int(n)
	}
	return def, nil
}

// Generator is a catalog entry.
type Generator struct {
	key     pocket.Identifier
	def     Definition
	weight  equation.Equation
	catalog *Catalog
}

func (g *Generator) Key() pocket.Identifier { return g.key }

func (g *Generator) Tags() []string { return g.def.Tags }

func (g *Generator) Unique() bool { return g.def.Unique }

// Definition returns the definition g was built from.
func (g *Generator) Definition() Definition { return g.def }

// Weight evaluates the weight equation; evaluation failures weigh 0.
func (g *Generator) Weight(gen *pocket.GenerationContext) float64 {
	w, err := g.weight.Float(gen.Variables())
	if err != nil {
		return 0
	}
	return w
}

// Place allocates the next pocket id. The definition size wins over the
// requested size.
func (g *Generator) Place(ctx context.Context, gen *pocket.GenerationContext) (pocket.Pocket, error) {
	if err := ctx.Err(); err != nil {
		return pocket.Pocket{}, err
	}
	size := gen.Size
	if g.def.Size > 0 {
		size = g.def.Size
	}
	p := pocket.Pocket{
		ID:        int(g.catalog.nextID.Add(1)),
		World:     gen.World,
		Generator: g.key,
		Size:      size,
	}
	g.catalog.logger.Debug(ctx, "pocket placed", "id", p.ID, "generator", g.key.String(), "world", p.World)
	return p, nil
}

// Catalog is a pocket.GeneratorSource. It is safe for concurrent use.
type Catalog struct {
	mu         sync.RWMutex
	generators map[pocket.Identifier]*Generator
	sorted     []pocket.Generator
	nextID     atomic.Int64
	logger     pocket.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(logger pocket.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// WithFirstID makes the first placed pocket get id.
func WithFirstID(id int) Option {
	return func(c *Catalog) {
		c.nextID.Store(int64(id - 1))
	}
}

// NewCatalog creates an empty catalog.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{
		generators: make(map[pocket.Identifier]*Generator),
		logger:     pocket.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add registers a generator under key.
func (c *Catalog) Add(key pocket.Identifier, def Definition) (*Generator, error) {
	weight := DefaultWeight
	if def.Weight != "" {
		eq, err := equation.Parse(def.Weight)
		if err != nil {
			return nil, fmt.Errorf("generator %s weight: %w", key, err)
		}
		weight = eq
	}
	g := &Generator{key: key, def: def, weight: weight, catalog: c}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.generators[key]; exists {
		return nil, fmt.Errorf("generator %s already exists", key)
	}
	c.generators[key] = g

	sorted := make([]pocket.Generator, 0, len(c.generators))
	for _, e := range c.generators {
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key().String() < sorted[j].Key().String()
	})
	c.sorted = sorted
	return g, nil
}

// Generator returns the generator registered under key.
func (c *Catalog) Generator(key pocket.Identifier) (pocket.Generator, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.generators[key]
	if !ok {
		return nil, false
	}
	return g, true
}

// Generators returns every generator sorted by key. The slice must not be
// modified.
func (c *Catalog) Generators() []pocket.Generator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sorted
}

// Len returns the number of generators.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.generators)
}

// Load builds a catalog from every definition under pockets/generators.
// Definitions are read concurrently.
func Load(ctx context.Context, loader resource.Loader, opts ...Option) (*Catalog, error) {
	defs, err := resource.Preload(ctx, loader, resource.GeneratorRoot, 8, func(_ context.Context, v any) (Definition, error) {
		return ParseDefinition(v)
	})
	if err != nil {
		return nil, err
	}

	c := NewCatalog(opts...)
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		key, err := pocket.ParseIdentifier(name)
		if err != nil {
			return nil, fmt.Errorf("generator %q: %w", name, err)
		}
		if _, err := c.Add(key, defs[name]); err != nil {
			return nil, err
		}
	}
	c.logger.Info(ctx, "generator catalog loaded", "generators", c.Len())
	return c, nil
}
