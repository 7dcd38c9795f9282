package validation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := NewInMemoryCache(time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCachePutGet(t *testing.T) {
	c := newTestCache(t)
	data := map[string]any{"lead_qualified": true}

	_, ok := c.Get(OpLeadConversion, data, nil)
	assert.False(t, ok)

	c.Put(OpLeadConversion, data, nil, Result{
		Operation:  OpLeadConversion,
		Violations: []string{"lead must be qualified for conversion"},
	})

	cached, ok := c.Get(OpLeadConversion, data, nil)
	require.True(t, ok)
	assert.Equal(t, OpLeadConversion, cached.Operation)
	assert.Equal(t, []string{"lead must be qualified for conversion"}, cached.Violations)
}

func TestCacheKeyedByInputs(t *testing.T) {
	c := newTestCache(t)

	c.Put(OpLeadConversion, map[string]any{"lead_qualified": true}, nil, Result{Operation: OpLeadConversion})

	// Different data misses
	_, ok := c.Get(OpLeadConversion, map[string]any{"lead_qualified": false}, nil)
	assert.False(t, ok)

	// Different operation with same data misses
	_, ok = c.Get(OpEntityDeletion, map[string]any{"lead_qualified": true}, nil)
	assert.False(t, ok)
}

func TestCacheSkipsFailedResults(t *testing.T) {
	c := newTestCache(t)
	data := map[string]any{"x": 1}

	c.Put("op", data, nil, Result{
		Operation: "op",
		Failure:   assert.AnError,
	})

	_, ok := c.Get("op", data, nil)
	assert.False(t, ok)
}

func TestCacheClear(t *testing.T) {
	c := newTestCache(t)
	data := map[string]any{"k": "v"}

	c.Put("op", data, nil, Result{Operation: "op"})
	require.NoError(t, c.Clear())

	_, ok := c.Get("op", data, nil)
	assert.False(t, ok)
}

func TestRegistryUsesCache(t *testing.T) {
	c := newTestCache(t)
	r := NewRegistry(WithCache(c))
	ctx := context.Background()

	calls := 0
	r.Register("counted_operation", func(_, _ map[string]any) []string {
		calls++
		return nil
	})

	data := map[string]any{"stable": true}
	first := r.Validate(ctx, "counted_operation", data, nil)
	second := r.Validate(ctx, "counted_operation", data, nil)

	assert.True(t, first.Valid())
	assert.True(t, second.Valid())
	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, calls, "second validation should be served from cache")
	assert.Equal(t, int64(1), r.Stats().CacheHits)

	// ClearCache forces recomputation
	assert.True(t, r.ClearCache())
	third := r.Validate(ctx, "counted_operation", data, nil)
	assert.False(t, third.FromCache)
	assert.Equal(t, 2, calls)
}
