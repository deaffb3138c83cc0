package pocket_test

import (
	"sync"
	"testing"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/internal/testutil"
)

func TestHistory(t *testing.T) {
	assert := testutil.NewAssert(t)
	h := pocket.NewHistory()
	hall := pocket.MustParseIdentifier("dimdoors:hall")
	vault := pocket.MustParseIdentifier("dimdoors:vault")

	assert.False(h.Used(hall))
	assert.Equal(0, h.Len())

	h.Record(vault)
	h.Record(hall)
	h.Record(vault)

	assert.True(h.Used(hall))
	assert.Equal(2, h.Count(vault))
	assert.Equal(1, h.Count(hall))
	assert.Equal(2, h.Len())
	assert.Equal([]pocket.Identifier{vault, hall}, h.Entries())

	entries := h.Entries()
	entries[0] = hall
	assert.Equal(vault, h.Entries()[0], "entries must be a copy")
}

func TestHistoryConcurrency(t *testing.T) {
	h := pocket.NewHistory()
	keys := []pocket.Identifier{
		pocket.MustParseIdentifier("dimdoors:a"),
		pocket.MustParseIdentifier("dimdoors:b"),
		pocket.MustParseIdentifier("dimdoors:c"),
	}

	var wg sync.WaitGroup
	for i := 0; i < 90; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			h.Record(keys[n%len(keys)])
			h.Used(keys[(n+1)%len(keys)])
		}(i)
	}
	wg.Wait()

	for _, k := range keys {
		if h.Count(k) != 30 {
			t.Errorf("expected 30 records of %s, got %d", k, h.Count(k))
		}
	}
	if h.Len() != 3 {
		t.Errorf("expected 3 distinct keys, got %d", h.Len())
	}
}
