package virtual

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dimdev/pocket"
)

// Subscriber is notified once at startup so it can register its own variants.
type Subscriber interface {
	RegisterVirtualPockets(r *Registry) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(r *Registry) error

// RegisterVirtualPockets calls f(r).
func (f SubscriberFunc) RegisterVirtualPockets(r *Registry) error {
	return f(r)
}

// Registry maps type identifiers to types. Registration happens at startup;
// reads are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	types  map[pocket.Identifier]*Type
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[pocket.Identifier]*Type),
	}
}

// Register creates and adds a type.
func (r *Registry) Register(key pocket.Identifier, factory Factory, opts ...TypeOption) (*Type, error) {
	t := NewType(key, factory, opts...)
	if err := r.RegisterType(t); err != nil {
		return nil, err
	}
	return t, nil
}

// RegisterType adds t. Registering a key twice is an error.
func (r *Registry) RegisterType(t *Type) error {
	if t == nil || t.key.IsZero() {
		return fmt.Errorf("%w: type must have a key", pocket.ErrMalformed)
	}
	if t.factory == nil {
		return fmt.Errorf("%w: type %s has no factory", pocket.ErrMalformed, t.key)
	}
	if got := t.factory().Key(); got != t.key {
		return fmt.Errorf("%w: factory for %s produces %s", pocket.ErrMalformed, t.key, got)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot register %s", pocket.ErrRegistryFrozen, t.key)
	}
	if _, exists := r.types[t.key]; exists {
		return fmt.Errorf("%w: %s", pocket.ErrDuplicateType, t.key)
	}
	r.types[t.key] = t
	return nil
}

// MustRegister is Register for startup tables; it panics on error.
func (r *Registry) MustRegister(key pocket.Identifier, factory Factory, opts ...TypeOption) *Type {
	t, err := r.Register(key, factory, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the type registered under key.
func (r *Registry) Lookup(key pocket.Identifier) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[key]
	return t, ok
}

// Types returns every registered type sorted by key.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	out := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].key.String() < out[j].key.String()
	})
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Freeze rejects further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Notify lets each subscriber register its variants, in order.
func (r *Registry) Notify(subscribers ...Subscriber) error {
	for _, s := range subscribers {
		if s == nil {
			continue
		}
		if err := s.RegisterVirtualPockets(r); err != nil {
			return fmt.Errorf("virtual pocket subscriber %T: %w", s, err)
		}
	}
	return nil
}

// RegisterBuiltins adds the five built-in variants.
func RegisterBuiltins(r *Registry) error {
	for _, t := range Builtins() {
		if err := r.RegisterType(t); err != nil {
			return err
		}
	}
	return nil
}

// Bootstrap builds the startup registry: built-ins first, then subscribers,
// then frozen.
func Bootstrap(subscribers ...Subscriber) (*Registry, error) {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		return nil, err
	}
	if err := r.Notify(subscribers...); err != nil {
		return nil, err
	}
	r.Freeze()
	return r, nil
}
