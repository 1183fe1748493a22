package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chitedze/agroadvisor/internal/filestore"
	"github.com/chitedze/agroadvisor/internal/model"
)

func TestFlatIndexSearchOrdering(t *testing.T) {
	index := NewFlatIndex(2)
	require.NoError(t, index.Add([]float32{0, 0}))
	require.NoError(t, index.Add([]float32{10, 0}))
	require.NoError(t, index.Add([]float32{1, 0}))
	require.NoError(t, index.Add([]float32{5, 0}))

	got := index.Search([]float32{0.4, 0}, 3)
	require.Equal(t, []int{0, 2, 3}, got)
}

func TestFlatIndexSearchTopKLargerThanSize(t *testing.T) {
	index := NewFlatIndex(1)
	require.NoError(t, index.Add([]float32{1}))
	require.NoError(t, index.Add([]float32{2}))

	got := index.Search([]float32{0}, 10)
	require.Len(t, got, 2)
}

func TestFlatIndexRejectsWrongDimension(t *testing.T) {
	index := NewFlatIndex(3)
	require.Error(t, index.Add([]float32{1, 2}))
	require.Nil(t, index.Search([]float32{1, 2}, 3))
}

func newTestStore(t *testing.T) filestore.Store {
	t.Helper()
	store, err := filestore.New(filestore.Config{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)
	return store
}

func TestSaveLoadBaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	index := NewFlatIndex(2)
	require.NoError(t, index.Add([]float32{1, 2}))
	require.NoError(t, index.Add([]float32{3, 4}))
	base := &Base{
		Index: index,
		Chunks: []model.Chunk{
			{Text: "first", SourceDocID: "doc.md", Offset: 0},
			{Text: "second", SourceDocID: "doc.md", Offset: 900},
		},
	}
	require.NoError(t, SaveBase(ctx, store, base, "knowledge.idx", "chunks.dat"))

	loaded, err := LoadBase(ctx, store, "knowledge.idx", "chunks.dat")
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Index.Size())
	require.Equal(t, 2, loaded.Index.Dim())
	require.Equal(t, base.Chunks, loaded.Chunks)

	got := loaded.Index.Search([]float32{1, 2}, 1)
	require.Equal(t, []int{0}, got)
}

func TestLoadBaseFailsWhenArtifactMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	index := NewFlatIndex(1)
	require.NoError(t, index.Add([]float32{1}))
	base := &Base{Index: index, Chunks: []model.Chunk{{Text: "only"}}}
	require.NoError(t, SaveBase(ctx, store, base, "knowledge.idx", "chunks.dat"))

	_, err := LoadBase(ctx, store, "knowledge.idx", "missing.dat")
	require.Error(t, err)
	_, err = LoadBase(ctx, store, "missing.idx", "chunks.dat")
	require.Error(t, err)
}

func TestSaveBaseRejectsMismatchedCounts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	index := NewFlatIndex(1)
	require.NoError(t, index.Add([]float32{1}))
	base := &Base{Index: index, Chunks: nil}
	require.Error(t, SaveBase(ctx, store, base, "knowledge.idx", "chunks.dat"))
}
