package knowledge

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chitedze/agroadvisor/internal/model"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vec, s.err
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

func (s *stubEmbedder) ModelName() string {
	return "stub"
}

func buildTestBase(t *testing.T, vectors [][]float32, texts []string) *Base {
	t.Helper()
	require.Equal(t, len(vectors), len(texts))
	index := NewFlatIndex(len(vectors[0]))
	chunks := make([]model.Chunk, 0, len(texts))
	for i, vec := range vectors {
		require.NoError(t, index.Add(vec))
		chunks = append(chunks, model.Chunk{Text: texts[i], SourceDocID: "doc.md", Offset: i * 900})
	}
	return &Base{Index: index, Chunks: chunks}
}

func TestRetrieveReturnsNearestChunkTexts(t *testing.T) {
	base := buildTestBase(t,
		[][]float32{{0, 0}, {5, 5}, {1, 1}},
		[]string{"maize planting", "tobacco nursery", "bean spacing"},
	)
	r := NewRetriever(base, &stubEmbedder{vec: []float32{0.1, 0.1}}, 2)

	got := r.Retrieve(context.Background(), "when to plant maize")
	require.Equal(t, []string{"maize planting", "bean spacing"}, got)
}

func TestRetrieveWithoutBaseReturnsEmpty(t *testing.T) {
	r := NewRetriever(nil, &stubEmbedder{vec: []float32{1}}, 3)
	require.False(t, r.Available())
	require.Empty(t, r.Retrieve(context.Background(), "anything"))
}

func TestRetrieveEmbeddingFailureReturnsEmpty(t *testing.T) {
	base := buildTestBase(t, [][]float32{{1}}, []string{"chunk"})
	r := NewRetriever(base, &stubEmbedder{err: fmt.Errorf("boom")}, 3)
	require.Empty(t, r.Retrieve(context.Background(), "anything"))
}

func TestRetrieveTopKBoundedByStoredVectors(t *testing.T) {
	base := buildTestBase(t, [][]float32{{1}, {2}}, []string{"a", "b"})
	r := NewRetriever(base, &stubEmbedder{vec: []float32{0}}, 10)

	got := r.Retrieve(context.Background(), "q")
	require.Len(t, got, 2)
}
