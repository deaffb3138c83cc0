// Package resource loads structured data from data packs.
//
// A data pack keeps its resources under data/<namespace>/<root>/<path> with a
// format extension. Loaders return the parsed structured value (see package
// nbt); callers turn it into their own types with Load.
package resource

import (
	"context"
	"fmt"

	"github.com/dimdev/pocket"
)

// Well-known resource roots.
const (
	VirtualRoot   = "pockets/virtual"
	GeneratorRoot = "pockets/generators"
)

// DefaultNamespace is used for names without a namespace.
const DefaultNamespace = "dimdoors"

// Loader returns the structured value stored at root/name.
// A missing resource is reported with an error wrapping pocket.ErrNotFound.
type Loader interface {
	Load(ctx context.Context, root, name string) (any, error)
}

// Lister is implemented by loaders that can enumerate a root.
type Lister interface {
	List(ctx context.Context, root string) ([]string, error)
}

// Resolver is implemented by loaders that know the canonical name of a
// resource.
type Resolver interface {
	Resolve(name string) (pocket.Identifier, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, root, name string) (any, error)

// Load calls f(ctx, root, name).
func (f LoaderFunc) Load(ctx context.Context, root, name string) (any, error) {
	return f(ctx, root, name)
}

// Load fetches root/name through loader and converts it with decode.
func Load[T any](ctx context.Context, loader Loader, root, name string, decode func(context.Context, any) (T, error)) (T, error) {
	var zero T
	if loader == nil {
		return zero, fmt.Errorf("%w: %s/%s", pocket.ErrMissingLoader, root, name)
	}
	value, err := loader.Load(ctx, root, name)
	if err != nil {
		return zero, err
	}
	out, err := decode(ctx, value)
	if err != nil {
		return zero, fmt.Errorf("resource %s/%s: %w", root, name, err)
	}
	return out, nil
}
