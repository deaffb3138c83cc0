package pocket

import (
	"context"
	"errors"
)

// Failure kinds.
var (
	// ErrUnsupported is returned when an operation is invoked on a node that
	// cannot perform it, such as the None sentinel.
	ErrUnsupported = errors.New("pocket: operation not supported")

	// ErrUnknownType is reported when a type identifier has no registration.
	ErrUnknownType = errors.New("pocket: unknown virtual pocket type")

	// ErrMissingLoader is returned when a resource reference is decoded without a loader.
	ErrMissingLoader = errors.New("pocket: resource loader required for reference")

	// ErrMalformed is returned when structured data has the wrong shape.
	ErrMalformed = errors.New("pocket: malformed structured data")

	// ErrNotFound is returned when a referenced resource does not exist.
	ErrNotFound = errors.New("pocket: resource not found")

	// ErrDuplicateType is returned when a type identifier is registered twice.
	ErrDuplicateType = errors.New("pocket: duplicate virtual pocket type")

	// ErrRegistryFrozen is returned when registering after startup completed.
	ErrRegistryFrozen = errors.New("pocket: registry is frozen")

	// ErrDepthExceeded is returned when a tree nests deeper than allowed.
	ErrDepthExceeded = errors.New("pocket: maximum nesting depth exceeded")

	// ErrCycle is returned when a resource references itself, directly or not.
	ErrCycle = errors.New("pocket: cyclic resource reference")

	// ErrNoCandidates is returned when a selection has nothing to pick from.
	ErrNoCandidates = errors.New("pocket: no selectable candidates")

	// ErrUnknownGenerator is returned when a generator id is not known to the source.
	ErrUnknownGenerator = errors.New("pocket: unknown pocket generator")
)

// Pocket is a placed pocket as reported by the placement engine.
type Pocket struct {
	ID        int        `json:"id" yaml:"id"`
	World     string     `json:"world" yaml:"world"`
	Generator Identifier `json:"generator" yaml:"generator"`
	Size      int        `json:"size" yaml:"size"`
}

// Generator is a concrete pocket generation recipe.
type Generator interface {
	// Key identifies the generator.
	Key() Identifier

	// Tags lists the pools the generator belongs to.
	Tags() []string

	// Unique generators are used at most once per generation history.
	Unique() bool

	// Weight is the relative chance of picking the generator from a pool.
	Weight(gen *GenerationContext) float64

	// Place builds the pocket in the world described by gen.
	Place(ctx context.Context, gen *GenerationContext) (Pocket, error)
}

// GeneratorSource looks up generators.
type GeneratorSource interface {
	// Generator returns the generator registered under key.
	Generator(key Identifier) (Generator, bool)

	// Generators returns every generator in a stable order.
	Generators() []Generator
}

// Logger provides structured logging.
type Logger interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
}

// Tracer provides distributed tracing capabilities.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, func())
}
