/*
Package pocket defines the generation interface shared by virtual pockets and
the pocket placement engine that consumes them.

A virtual pocket (package virtual) describes how a pocket should be obtained:
directly by generator id, from a tagged pool, through conditions or through a
weighted choice. Resolving one walks the tree top-down with a GenerationContext
until a leaf names a Generator, which the placement engine uses to build a Pocket.

Basic usage:

	registry, err := virtual.Bootstrap()
	codec := virtual.NewCodec(registry)

	loader := resource.NewCache(resource.NewFSLoader(os.DirFS("datapack")))
	catalog, err := generator.Load(ctx, loader)
	vp, err := codec.Decode(ctx, "dimdoors:dungeon", loader)

	gen := pocket.NewGenerationContext(
		pocket.WithSeed(42),
		pocket.WithDepth(3),
		pocket.WithGenerators(catalog),
	)

	// Peek leaves gen untouched; Next advances its random source and history.
	ref, err := vp.PeekNextGeneratorReference(gen)
	placed, err := vp.PrepareAndPlace(ctx, gen)

Only the random source and the history in a GenerationContext change during
resolution. Virtual pockets are immutable values and may be shared between
goroutines; a GenerationContext may not.
*/
package pocket
