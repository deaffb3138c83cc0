package virtual

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/equation"
	"github.com/dimdev/pocket/internal/testutil"
	"github.com/dimdev/pocket/nbt"
)

type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) Debug(context.Context, string, ...any) {}

func (l *recordingLogger) Info(_ context.Context, msg string, kv ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprint(append([]any{msg}, kv...)...))
}

func (l *recordingLogger) Error(context.Context, string, ...any) {}

func newCodec(t *testing.T, opts ...CodecOption) *Codec {
	t.Helper()
	r, err := Bootstrap()
	if err != nil {
		t.Fatal(err)
	}
	return NewCodec(r, opts...)
}

func sampleTrees() map[string]VirtualPocket {
	return map[string]VirtualPocket{
		"none": None{},
		"id reference": IDReference{
			ID: pocket.MustParseIdentifier("dimdoors:hall"),
		},
		"id reference with weight": IDReference{
			ID:             pocket.MustParseIdentifier("dimdoors:hall"),
			WeightEquation: equation.MustParse("max(1, 10 - depth)"),
		},
		"tag reference": TagReference{Tag: "dungeon"},
		"tag reference with blacklist": TagReference{
			Tag:            "dungeon",
			Blacklist:      []string{"treasure", "crypt"},
			WeightEquation: equation.MustParse("cel:depth * 2"),
		},
		"conditional selector": ConditionalSelector{
			Entries: []ConditionalEntry{
				{Condition: equation.MustParse("depth > 5"), Pocket: Inline(TagReference{Tag: "deep"})},
				{Condition: equation.MustParse("lua:depth <= 5"), Pocket: Inline(IDReference{ID: pocket.MustParseIdentifier("dimdoors:hall")})},
			},
		},
		"path selector": PathSelector{
			Pockets: []Child{
				Inline(IDReference{ID: pocket.MustParseIdentifier("dimdoors:hall"), WeightEquation: equation.Constant(1)}),
				Inline(IDReference{ID: pocket.MustParseIdentifier("dimdoors:vault"), WeightEquation: equation.Constant(3)}),
			},
			WeightEquation: equation.MustParse("js:depth + 1"),
		},
		"empty path selector": PathSelector{},
		"nested": PathSelector{
			Pockets: []Child{
				Inline(ConditionalSelector{
					Entries: []ConditionalEntry{
						{Condition: equation.MustParse("world == \"dimdoors:dungeon_pockets\""), Pocket: Inline(PathSelector{
							Pockets: []Child{Inline(TagReference{Tag: "dungeon"}), Inline(None{})},
						})},
					},
				}),
				Inline(None{}),
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	codec := newCodec(t)
	ctx := context.Background()

	for name, tree := range sampleTrees() {
		t.Run(name, func(t *testing.T) {
			assert := testutil.NewAssert(t)

			encoded, err := codec.Encode(tree, false)
			assert.NoError(err)
			decoded, err := codec.Decode(ctx, encoded, nil)
			assert.NoError(err)
			assert.Equal(tree, decoded)

			binary, err := nbt.Marshal(encoded)
			assert.NoError(err)
			value, err := nbt.Unmarshal(binary)
			assert.NoError(err)
			decoded, err = codec.Decode(ctx, value, nil)
			assert.NoError(err)
			assert.Equal(tree, decoded)

			value, err = nbt.ParseJSON([]byte(nbt.FormatJSONString(encoded, 0)))
			assert.NoError(err)
			decoded, err = codec.Decode(ctx, value, nil)
			assert.NoError(err)
			assert.Equal(tree, decoded)
		})
	}
}

func TestRoundTripWithSchemaValidation(t *testing.T) {
	codec := newCodec(t, WithSchemaValidation(true))
	for name, tree := range sampleTrees() {
		t.Run(name, func(t *testing.T) {
			assert := testutil.NewAssert(t)
			encoded, err := codec.Encode(tree, false)
			assert.NoError(err)
			decoded, err := codec.Decode(context.Background(), encoded, nil)
			assert.NoError(err)
			assert.Equal(tree, decoded)
		})
	}
}

func TestEncodeShape(t *testing.T) {
	assert := testutil.NewAssert(t)
	codec := newCodec(t)

	encoded, err := codec.Encode(TagReference{
		Tag:            "dungeon",
		Blacklist:      []string{"treasure"},
		WeightEquation: equation.MustParse("cel:depth * 2"),
	}, false)
	assert.NoError(err)
	assert.Equal(nbt.Compound{
		"type":      "dimdoors:tag_reference",
		"tag":       "dungeon",
		"blacklist": nbt.List{"treasure"},
		"weight":    "cel:depth * 2",
	}, encoded)

	encoded, err = codec.Encode(None{}, true)
	assert.NoError(err)
	assert.Equal(nbt.Compound{"type": "dimdoors:none"}, encoded)
}

func TestEncodeErrors(t *testing.T) {
	codec := newCodec(t)

	t.Run("nil pocket", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		_, err := codec.Encode(nil, false)
		assert.ErrorIs(err, pocket.ErrMalformed)
	})

	t.Run("missing id reports path", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		_, err := codec.Encode(PathSelector{Pockets: []Child{Inline(None{}), Inline(IDReference{})}}, false)
		assert.ErrorIs(err, pocket.ErrMalformed)
		var encErr *EncodeError
		assert.True(errors.As(err, &encErr))
		assert.Equal("$.pockets[1]", encErr.Path)
	})

	t.Run("depth", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		var tree VirtualPocket = None{}
		for i := 0; i < 10; i++ {
			tree = PathSelector{Pockets: []Child{Inline(tree)}}
		}
		_, err := newCodec(t, WithMaxDepth(5)).Encode(tree, false)
		assert.ErrorIs(err, pocket.ErrDepthExceeded)
	})
}

func TestDecodeFallsBackToNone(t *testing.T) {
	tests := []struct {
		name  string
		value nbt.Compound
	}{
		{"unknown type", nbt.Compound{"type": "dimdoors:does_not_exist"}},
		{"missing type", nbt.Compound{"id": "dimdoors:hall"}},
		{"empty type", nbt.Compound{"type": ""}},
		{"invalid type", nbt.Compound{"type": "Not An Identifier"}},
		{"default namespace", nbt.Compound{"type": "id_reference", "id": "dimdoors:hall"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := testutil.NewAssert(t)
			logger := &recordingLogger{}
			codec := newCodec(t, WithLogger(logger))

			vp, err := codec.Decode(context.Background(), tt.value, nil)
			assert.NoError(err)
			assert.Equal(None{}, vp)
			assert.Len(logger.messages, 1)
			assert.Contains(logger.messages[0], "decoded as none")
		})
	}

	t.Run("only the subtree degrades", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		codec := newCodec(t)
		vp, err := codec.Decode(context.Background(), nbt.Compound{
			"type": "dimdoors:path_selector",
			"pockets": nbt.List{
				nbt.Compound{"type": "dimdoors:future_variant", "extra": int32(1)},
				nbt.Compound{"type": "dimdoors:id_reference", "id": "dimdoors:hall"},
			},
		}, nil)
		assert.NoError(err)
		assert.Equal(PathSelector{Pockets: []Child{
			Inline(None{}),
			Inline(IDReference{ID: pocket.MustParseIdentifier("dimdoors:hall")}),
		}}, vp)
	})
}

func TestDecodeErrors(t *testing.T) {
	codec := newCodec(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		value  any
		target error
		path   string
	}{
		{"string without loader", "some/path", pocket.ErrMissingLoader, "$"},
		{"non string type", nbt.Compound{"type": int32(3)}, pocket.ErrMalformed, "$"},
		{"number", int32(4), pocket.ErrMalformed, "$"},
		{"list", nbt.List{"a"}, pocket.ErrMalformed, "$"},
		{"missing id", nbt.Compound{"type": "dimdoors:id_reference"}, pocket.ErrMalformed, "$"},
		{"bad weight", nbt.Compound{"type": "dimdoors:id_reference", "id": "dimdoors:hall", "weight": "depth >"}, pocket.ErrMalformed, "$"},
		{"nested string without loader", nbt.Compound{
			"type":    "dimdoors:path_selector",
			"pockets": nbt.List{nbt.Compound{"type": "dimdoors:none"}, "rooms/hall"},
		}, pocket.ErrMissingLoader, "$.pockets[1]"},
		{"entry without condition", nbt.Compound{
			"type":    "dimdoors:conditional_selector",
			"entries": nbt.List{nbt.Compound{"pocket": nbt.Compound{"type": "dimdoors:none"}}},
		}, pocket.ErrMalformed, "$"},
		{"blacklist of numbers", nbt.Compound{
			"type": "dimdoors:tag_reference", "tag": "dungeon", "blacklist": nbt.List{int32(1)},
		}, pocket.ErrMalformed, "$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := testutil.NewAssert(t)
			_, err := codec.Decode(ctx, tt.value, nil)
			assert.ErrorIs(err, tt.target)

			var decErr *DecodeError
			assert.True(errors.As(err, &decErr), "expected *DecodeError, got %T", err)
			assert.Equal(tt.path, decErr.Path)
		})
	}
}

func TestDecodeReferences(t *testing.T) {
	ctx := context.Background()
	hall := nbt.Compound{"type": "dimdoors:id_reference", "id": "dimdoors:hall"}

	t.Run("expands strings through the loader", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		loader := testutil.NewMockLoader(map[string]any{
			"rooms/hall": hall,
			"root": nbt.Compound{
				"type":    "dimdoors:path_selector",
				"pockets": nbt.List{"rooms/hall", nbt.Compound{"type": "dimdoors:tag_reference", "tag": "dungeon"}},
			},
		})
		codec := newCodec(t)

		vp, err := codec.Decode(ctx, "root", loader)
		assert.NoError(err)
		want := PathSelector{Pockets: []Child{
			Referenced("rooms/hall", IDReference{ID: pocket.MustParseIdentifier("dimdoors:hall")}),
			Inline(TagReference{Tag: "dungeon"}),
		}}
		assert.Equal(want, vp)
		assert.Equal([]testutil.LoaderCall{
			{Root: "pockets/virtual", Name: "root"},
			{Root: "pockets/virtual", Name: "rooms/hall"},
		}, loader.GetCalls())

		compact, err := codec.Encode(vp, true)
		assert.NoError(err)
		assert.Equal(nbt.Compound{
			"type":    "dimdoors:path_selector",
			"pockets": nbt.List{"rooms/hall", nbt.Compound{"type": "dimdoors:tag_reference", "tag": "dungeon"}},
		}, compact)

		inline, err := codec.Encode(vp, false)
		assert.NoError(err)
		assert.Equal(nbt.Compound{
			"type":    "dimdoors:path_selector",
			"pockets": nbt.List{hall, nbt.Compound{"type": "dimdoors:tag_reference", "tag": "dungeon"}},
		}, inline)
	})

	t.Run("does not cache", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		loader := testutil.NewMockLoader(map[string]any{"rooms/hall": hall})
		codec := newCodec(t)
		for i := 0; i < 3; i++ {
			_, err := codec.Load(ctx, "rooms/hall", loader)
			assert.NoError(err)
		}
		assert.Len(loader.GetCalls(), 3)
	})

	t.Run("missing resource", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		codec := newCodec(t)
		_, err := codec.Decode(ctx, "rooms/missing", testutil.NewMockLoader(nil))
		assert.ErrorIs(err, pocket.ErrNotFound)
	})

	t.Run("loader failures propagate", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		loader := testutil.NewMockLoader(nil)
		boom := errors.New("disk on fire")
		loader.SetError("pockets/virtual", "rooms/hall", boom)
		_, err := newCodec(t).Decode(ctx, "rooms/hall", loader)
		assert.ErrorIs(err, boom)
	})

	t.Run("detects cycles", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		loader := testutil.NewMockLoader(map[string]any{
			"cycle/a": nbt.Compound{"type": "dimdoors:path_selector", "pockets": nbt.List{"cycle/b"}},
			"cycle/b": nbt.Compound{"type": "dimdoors:path_selector", "pockets": nbt.List{"dimdoors:cycle/a"}},
		})
		_, err := newCodec(t).Decode(ctx, "cycle/a", loader)
		assert.ErrorIs(err, pocket.ErrCycle)
		assert.Contains(err.Error(), "dimdoors:cycle/a -> dimdoors:cycle/b -> dimdoors:cycle/a")

		var decErr *DecodeError
		assert.True(errors.As(err, &decErr))
		assert.Equal("dimdoors:cycle/b", decErr.Resource)
		assert.Equal("$.pockets[0]", decErr.Path)
	})

	t.Run("a resource may appear twice without a cycle", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		loader := testutil.NewMockLoader(map[string]any{
			"rooms/hall": hall,
			"twice":      nbt.Compound{"type": "dimdoors:path_selector", "pockets": nbt.List{"rooms/hall", "rooms/hall"}},
		})
		vp, err := newCodec(t).Decode(ctx, "twice", loader)
		assert.NoError(err)
		assert.Len(vp.(PathSelector).Pockets, 2)
	})

	t.Run("canceled context", func(t *testing.T) {
		assert := testutil.NewAssert(t)
		loader := testutil.NewMockLoader(map[string]any{"rooms/hall": hall})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := newCodec(t).Decode(cctx, "rooms/hall", loader)
		assert.ErrorIs(err, context.Canceled)
	})
}

func TestDecodeDepthGuard(t *testing.T) {
	assert := testutil.NewAssert(t)

	var value any = nbt.Compound{"type": "dimdoors:none"}
	for i := 0; i < 10; i++ {
		value = nbt.Compound{"type": "dimdoors:path_selector", "pockets": nbt.List{value}}
	}

	_, err := newCodec(t, WithMaxDepth(5)).Decode(context.Background(), value, nil)
	assert.ErrorIs(err, pocket.ErrDepthExceeded)

	_, err = newCodec(t, WithMaxDepth(10)).Decode(context.Background(), value, nil)
	assert.NoError(err)
}

func TestSchemaValidation(t *testing.T) {
	codec := newCodec(t, WithSchemaValidation(true))

	tests := []struct {
		name  string
		value nbt.Compound
	}{
		{"id is a number", nbt.Compound{"type": "dimdoors:id_reference", "id": int32(5)}},
		{"empty tag", nbt.Compound{"type": "dimdoors:tag_reference", "tag": ""}},
		{"pockets is not a list", nbt.Compound{"type": "dimdoors:path_selector", "pockets": "rooms/hall"}},
		{"entry without pocket", nbt.Compound{
			"type":    "dimdoors:conditional_selector",
			"entries": nbt.List{nbt.Compound{"condition": "true"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := testutil.NewAssert(t)
			_, err := codec.Decode(context.Background(), tt.value, nil)
			assert.ErrorIs(err, pocket.ErrMalformed)
			assert.Contains(err.Error(), "fields")
		})
	}
}

func TestNumericWeights(t *testing.T) {
	assert := testutil.NewAssert(t)
	vp, err := newCodec(t).Decode(context.Background(), nbt.Compound{
		"type":   "dimdoors:id_reference",
		"id":     "dimdoors:hall",
		"weight": int32(7),
	}, nil)
	assert.NoError(err)
	assert.Equal(IDReference{ID: pocket.MustParseIdentifier("dimdoors:hall"), WeightEquation: equation.Constant(7)}, vp)
}
