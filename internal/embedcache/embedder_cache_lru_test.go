package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	vec   []float32
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.vec, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = c.vec
	}
	return out, nil
}

func (c *countingEmbedder) ModelName() string {
	return "test-model"
}

func TestEmbedCachesRepeatedQueries(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{0.1, 0.2}}
	cached := WrapLruCacheToEmbedder(inner, 16, time.Minute)

	first, err := cached.Embed(context.Background(), "when to plant maize")
	require.NoError(t, err)
	second, err := cached.Embed(context.Background(), "when to plant maize")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)

	// Mutating a returned vector must not poison the cache.
	second[0] = 99
	third, err := cached.Embed(context.Background(), "when to plant maize")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2}, third)
	require.Equal(t, 1, inner.calls)
}

func TestEmbedBatchBypassesCache(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{0.1}}
	cached := WrapLruCacheToEmbedder(inner, 16, time.Minute)

	_, err := cached.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	_, err = cached.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestWrapDisabledReturnsInner(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{0.1}}
	require.Equal(t, inner, WrapLruCacheToEmbedder(inner, 0, time.Minute))
	require.Nil(t, WrapLruCacheToEmbedder(nil, 16, time.Minute))
}
