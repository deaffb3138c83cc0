// Package testutil provides testing utilities for virtual pockets.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dimdev/pocket"
)

// MockLoader serves resources from memory and records every call.
// It satisfies resource.Loader.
type MockLoader struct {
	mu       sync.RWMutex
	data     map[string]any
	calls    []LoaderCall
	errors   map[string]error
	behavior LoaderBehavior
}

// LoaderCall records a loader call.
type LoaderCall struct {
	Root string
	Name string
}

// LoaderBehavior defines mock behavior.
type LoaderBehavior struct {
	FailLoad  bool
	LoadDelay time.Duration
}

// NewMockLoader creates a loader serving the given name to value pairs from
// the pockets/virtual root.
func NewMockLoader(resources map[string]any) *MockLoader {
	l := &MockLoader{
		data:   make(map[string]any),
		errors: make(map[string]error),
	}
	for name, v := range resources {
		l.data["pockets/virtual/"+name] = v
	}
	return l
}

// Load returns the value stored for root/name.
func (l *MockLoader) Load(ctx context.Context, root, name string) (any, error) {
	l.mu.Lock()
	l.calls = append(l.calls, LoaderCall{Root: root, Name: name})
	behavior := l.behavior
	l.mu.Unlock()

	if behavior.LoadDelay > 0 {
		select {
		case <-time.After(behavior.LoadDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if behavior.FailLoad {
		return nil, fmt.Errorf("mock load error")
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	key := root + "/" + name
	if err, ok := l.errors[key]; ok {
		return nil, err
	}
	v, ok := l.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", pocket.ErrNotFound, key)
	}
	return v, nil
}

// Set stores a value under root/name.
func (l *MockLoader) Set(root, name string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data[root+"/"+name] = value
}

// SetError makes loads of root/name fail with err.
func (l *MockLoader) SetError(root, name string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors[root+"/"+name] = err
}

// SetBehavior sets the mock behavior.
func (l *MockLoader) SetBehavior(behavior LoaderBehavior) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.behavior = behavior
}

// GetCalls returns all recorded calls.
func (l *MockLoader) GetCalls() []LoaderCall {
	l.mu.RLock()
	defer l.mu.RUnlock()

	calls := make([]LoaderCall, len(l.calls))
	copy(calls, l.calls)
	return calls
}

// MockGenerator is a pocket.Generator with a fixed weight.
type MockGenerator struct {
	ID       pocket.Identifier
	TagList  []string
	IsUnique bool
	W        float64
	Err      error

	placed atomic.Int32
}

// NewMockGenerator creates a generator named id with weight w.
func NewMockGenerator(id string, w float64, tags ...string) *MockGenerator {
	return &MockGenerator{ID: pocket.MustParseIdentifier(id), TagList: tags, W: w}
}

func (g *MockGenerator) Key() pocket.Identifier { return g.ID }

func (g *MockGenerator) Tags() []string { return g.TagList }

func (g *MockGenerator) Unique() bool { return g.IsUnique }

func (g *MockGenerator) Weight(*pocket.GenerationContext) float64 { return g.W }

// Place returns a pocket numbered by the number of placements so far.
func (g *MockGenerator) Place(_ context.Context, gen *pocket.GenerationContext) (pocket.Pocket, error) {
	if g.Err != nil {
		return pocket.Pocket{}, g.Err
	}
	n := g.placed.Add(1)
	return pocket.Pocket{ID: int(n), World: gen.World, Generator: g.ID, Size: gen.Size}, nil
}

// Placed returns how many pockets the generator placed.
func (g *MockGenerator) Placed() int {
	return int(g.placed.Load())
}

// MockSource is an ordered pocket.GeneratorSource.
type MockSource struct {
	generators []pocket.Generator
}

// NewMockSource creates a source over generators, in order.
func NewMockSource(generators ...pocket.Generator) *MockSource {
	return &MockSource{generators: generators}
}

func (s *MockSource) Generator(key pocket.Identifier) (pocket.Generator, bool) {
	for _, g := range s.generators {
		if g.Key() == key {
			return g, true
		}
	}
	return nil, false
}

func (s *MockSource) Generators() []pocket.Generator {
	return s.generators
}
