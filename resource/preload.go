package resource

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Preload decodes every resource under root concurrently. The first failure
// cancels the remaining loads.
func Preload[T any](ctx context.Context, loader Loader, root string, concurrency int, decode func(context.Context, any) (T, error)) (map[string]T, error) {
	lister, ok := loader.(Lister)
	if !ok {
		return nil, fmt.Errorf("resource: loader %T cannot list %s", loader, root)
	}
	names, err := lister.List(ctx, root)
	if err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	var mu sync.Mutex
	out := make(map[string]T, len(names))
	for _, name := range names {
		g.Go(func() error {
			v, err := Load(ctx, loader, root, name, decode)
			if err != nil {
				return err
			}
			mu.Lock()
			out[name] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
