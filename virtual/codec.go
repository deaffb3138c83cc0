package virtual

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/equation"
	"github.com/dimdev/pocket/nbt"
	"github.com/dimdev/pocket/resource"
)

// DefaultMaxDepth bounds the nesting of decoded and encoded trees.
const DefaultMaxDepth = 64

// DecodeError reports where in a tree decoding failed. Resource names the
// innermost resource being expanded, empty for the value passed to Decode.
type DecodeError struct {
	Resource string
	Path     string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("virtual: decode %s %s: %v", e.Resource, e.Path, e.Err)
	}
	return fmt.Sprintf("virtual: decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports where in a tree encoding failed.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("virtual: encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Codec converts virtual pocket trees to and from structured values.
// A Codec is safe for concurrent use.
type Codec struct {
	registry *Registry
	maxDepth int
	validate bool
	logger   pocket.Logger
	tracer   pocket.Tracer
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithMaxDepth bounds tree nesting.
func WithMaxDepth(depth int) CodecOption {
	return func(c *Codec) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithSchemaValidation checks each compound against its type schema before
// decoding it.
func WithSchemaValidation(enabled bool) CodecOption {
	return func(c *Codec) {
		c.validate = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger pocket.Logger) CodecOption {
	return func(c *Codec) {
		c.logger = logger
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer pocket.Tracer) CodecOption {
	return func(c *Codec) {
		c.tracer = tracer
	}
}

// NewCodec creates a codec dispatching on the types in registry.
func NewCodec(registry *Registry, opts ...CodecOption) *Codec {
	c := &Codec{
		registry: registry,
		maxDepth: DefaultMaxDepth,
		logger:   pocket.NopLogger{},
		tracer:   pocket.NopTracer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry the codec dispatches on.
func (c *Codec) Registry() *Registry {
	return c.registry
}

// Encode serializes vp. With allowReference, children loaded from a resource
// are written back as the bare resource name.
func (c *Codec) Encode(vp VirtualPocket, allowReference bool) (any, error) {
	enc := &Encoder{codec: c, path: "$"}
	return enc.encode(vp, allowReference)
}

// Decode deserializes value. Strings name resources under pockets/virtual and
// need a loader; pass a nil loader when none is available.
func (c *Codec) Decode(ctx context.Context, value any, loader resource.Loader) (VirtualPocket, error) {
	ctx, end := c.tracer.StartSpan(ctx, "virtual.decode")
	defer end()

	dec := &Decoder{
		codec:  c,
		ctx:    ctx,
		loader: loader,
		path:   "$",
	}
	return dec.decode(value)
}

// Load decodes the named resource.
func (c *Codec) Load(ctx context.Context, name string, loader resource.Loader) (VirtualPocket, error) {
	return c.Decode(ctx, name, loader)
}

// Decoder is handed to FromNBT to decode nested values.
type Decoder struct {
	codec    *Codec
	ctx      context.Context
	loader   resource.Loader
	path     string
	resource string
	stack    []string
	depth    int
}

// Context returns the context of the decode call.
func (d *Decoder) Context() context.Context {
	return d.ctx
}

// Path returns the structural path being decoded.
func (d *Decoder) Path() string {
	return d.path
}

// Child decodes a nested value found at the relative path segment.
func (d *Decoder) Child(segment string, value any) (Child, error) {
	sub := *d
	sub.path = d.path + segment
	sub.depth = d.depth + 1

	vp, err := sub.decode(value)
	if err != nil {
		return Child{}, err
	}
	if name, ok := value.(string); ok {
		return Referenced(name, vp), nil
	}
	return Inline(vp), nil
}

// Equation reads an optional equation field. An absent field yields the zero
// equation.
func (d *Decoder) Equation(tag nbt.Compound, field string) (equation.Equation, error) {
	raw, ok := tag[field]
	if !ok {
		return equation.Equation{}, nil
	}
	src, ok := raw.(string)
	if !ok {
		// Plain numbers are accepted as constant equations.
		f, ok := nbt.AsFloat(raw)
		if !ok {
			return equation.Equation{}, fmt.Errorf("%w: %s must be an equation string, got %s", pocket.ErrMalformed, field, nbt.TypeName(raw))
		}
		return equation.Constant(f), nil
	}
	eq, err := equation.Parse(src)
	if err != nil {
		return equation.Equation{}, fmt.Errorf("%w: %s: %v", pocket.ErrMalformed, field, err)
	}
	return eq, nil
}

func (d *Decoder) decode(value any) (VirtualPocket, error) {
	if d.depth > d.codec.maxDepth {
		return nil, d.fail(fmt.Errorf("%w: deeper than %d", pocket.ErrDepthExceeded, d.codec.maxDepth))
	}
	if err := d.ctx.Err(); err != nil {
		return nil, d.fail(err)
	}

	switch v := value.(type) {
	case nbt.Compound:
		return d.decodeCompound(v)
	case map[string]any:
		return d.decodeCompound(nbt.Compound(v))
	case string:
		return d.expand(v)
	}
	return nil, d.fail(fmt.Errorf("%w: expected compound or string, got %s", pocket.ErrMalformed, nbt.TypeName(value)))
}

func (d *Decoder) decodeCompound(tag nbt.Compound) (VirtualPocket, error) {
	raw, ok := tag["type"]
	if !ok {
		d.fallback("", "missing type")
		return None{}, nil
	}
	name, ok := raw.(string)
	if !ok {
		return nil, d.fail(fmt.Errorf("%w: type must be a string, got %s", pocket.ErrMalformed, nbt.TypeName(raw)))
	}
	key, err := pocket.ParseIdentifier(name)
	if err != nil || name == "" {
		d.fallback(name, "invalid type")
		return None{}, nil
	}
	typ, ok := d.codec.registry.Lookup(key)
	if !ok {
		d.fallback(name, pocket.ErrUnknownType.Error())
		return None{}, nil
	}

	if d.codec.validate {
		if err := ValidateFields(typ, tag); err != nil {
			return nil, d.fail(err)
		}
	}

	vp, err := typ.New().FromNBT(d, tag)
	if err != nil {
		return nil, d.fail(err)
	}
	return vp, nil
}

func (d *Decoder) fallback(typeName, reason string) {
	d.codec.logger.Info(d.ctx, "virtual pocket decoded as none",
		"type", typeName, "reason", reason, "path", d.path, "resource", d.resource)
}

func (d *Decoder) expand(name string) (VirtualPocket, error) {
	if d.loader == nil {
		return nil, d.fail(fmt.Errorf("%w: cannot expand %q", pocket.ErrMissingLoader, name))
	}

	key := d.canonical(name)
	if slices.Contains(d.stack, key) {
		chain := strings.Join(append(slices.Clone(d.stack), key), " -> ")
		return nil, d.fail(fmt.Errorf("%w: %s", pocket.ErrCycle, chain))
	}

	ctx, end := d.codec.tracer.StartSpan(d.ctx, "virtual.expand")
	defer end()
	d.codec.logger.Debug(ctx, "expanding virtual pocket reference", "name", name, "path", d.path)

	sub := *d
	sub.ctx = ctx
	sub.path = "$"
	sub.resource = key
	sub.stack = append(slices.Clone(d.stack), key)

	vp, err := resource.Load(ctx, d.loader, resource.VirtualRoot, name, func(_ context.Context, v any) (VirtualPocket, error) {
		return sub.decode(v)
	})
	if err != nil {
		return nil, d.fail(err)
	}
	return vp, nil
}

// canonical names a resource for cycle detection.
func (d *Decoder) canonical(name string) string {
	if r, ok := d.loader.(resource.Resolver); ok {
		if id, err := r.Resolve(name); err == nil {
			return id.String()
		}
		return name
	}
	if id, err := pocket.ParseIdentifierIn(name, resource.DefaultNamespace); err == nil {
		return id.String()
	}
	return name
}

func (d *Decoder) fail(err error) error {
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return err
	}
	return &DecodeError{Resource: d.resource, Path: d.path, Err: err}
}

// Encoder is handed to ToNBT to encode nested values.
type Encoder struct {
	codec *Codec
	path  string
	depth int
}

// Path returns the structural path being encoded.
func (e *Encoder) Path() string {
	return e.path
}

// Child encodes a nested child at the relative path segment.
func (e *Encoder) Child(segment string, c Child, allowReference bool) (any, error) {
	if allowReference && c.Resource != "" {
		return c.Resource, nil
	}
	sub := &Encoder{codec: e.codec, path: e.path + segment, depth: e.depth + 1}
	return sub.encode(c.pocket(), allowReference)
}

func (e *Encoder) encode(vp VirtualPocket, allowReference bool) (any, error) {
	if e.depth > e.codec.maxDepth {
		return nil, e.fail(fmt.Errorf("%w: deeper than %d", pocket.ErrDepthExceeded, e.codec.maxDepth))
	}
	if vp == nil {
		return nil, e.fail(fmt.Errorf("%w: nil virtual pocket", pocket.ErrMalformed))
	}

	tag := nbt.Compound{"type": vp.Key().String()}
	if err := vp.ToNBT(e, tag, allowReference); err != nil {
		return nil, e.fail(err)
	}
	return tag, nil
}

func (e *Encoder) fail(err error) error {
	var encErr *EncodeError
	if errors.As(err, &encErr) {
		return err
	}
	return &EncodeError{Path: e.path, Err: err}
}
