package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chitedze/agroadvisor/internal/ai"
	errs "github.com/chitedze/agroadvisor/internal/pkg/errors"
)

type batchEmbedder struct {
	calls    int
	failOn   int // 1-based call number that fails; 0 never fails
	failWith error
}

func (b *batchEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := b.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (b *batchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	b.calls++
	if b.failOn > 0 && b.calls == b.failOn {
		return nil, b.failWith
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func (b *batchEmbedder) ModelName() string {
	return "batch-stub"
}

func writeDoc(t *testing.T, dir string, name string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestBuildFromDirIndexesDocuments(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "soils.txt", strings.Repeat("sandy loam needs compost ", 80))
	writeDoc(t, dir, "maize.md", "# Maize\n\nPlant with the first rains in November.")
	writeDoc(t, dir, "ignored.pdf", "binary")

	builder := NewBuilder(&batchEmbedder{}, DefaultChunkSize, DefaultOverlap)
	base, err := builder.BuildFromDir(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, base.Index.Size(), len(base.Chunks))
	require.Greater(t, base.Index.Size(), 0)

	docs := map[string]bool{}
	for _, chunk := range base.Chunks {
		docs[chunk.SourceDocID] = true
	}
	require.True(t, docs["soils.txt"])
	require.True(t, docs["maize.md"])
	require.False(t, docs["ignored.pdf"])
}

func TestBuildMarkdownStripsMarkup(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "guide.md", "# Pests\n\nScout fields **weekly** for armyworm.")

	builder := NewBuilder(&batchEmbedder{}, DefaultChunkSize, DefaultOverlap)
	base, err := builder.BuildFromDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, base.Chunks, 1)
	require.NotContains(t, base.Chunks[0].Text, "#")
	require.NotContains(t, base.Chunks[0].Text, "**")
	require.Contains(t, base.Chunks[0].Text, "Scout fields weekly")
}

func TestBuildRateLimitAbandonsRemainingBatches(t *testing.T) {
	dir := t.TempDir()
	// Enough text for 45 chunks: three embed batches of 20, 20 and 5.
	writeDoc(t, dir, "big.txt", strings.Repeat("x", 900*44+100))

	embedder := &batchEmbedder{
		failOn:   2,
		failWith: fmt.Errorf("%w: slow down", errs.ErrRateLimited),
	}
	builder := NewBuilder(embedder, DefaultChunkSize, DefaultOverlap)
	base, err := builder.BuildFromDir(context.Background(), dir)
	require.NoError(t, err)
	// First batch of 20 survives, the rest of the document is abandoned.
	require.Equal(t, ai.MaxEmbedBatchSize, base.Index.Size())
	require.Len(t, base.Chunks, ai.MaxEmbedBatchSize)
}

func TestBuildNonRateLimitFailureSkipsOnlyThatBatch(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "big.txt", strings.Repeat("x", 900*44+100))

	embedder := &batchEmbedder{
		failOn:   2,
		failWith: fmt.Errorf("transient network error"),
	}
	builder := NewBuilder(embedder, DefaultChunkSize, DefaultOverlap)
	base, err := builder.BuildFromDir(context.Background(), dir)
	require.NoError(t, err)
	// Batches one and three survive.
	require.Equal(t, ai.MaxEmbedBatchSize+5, base.Index.Size())
}

func TestBuildEmptyDirFails(t *testing.T) {
	builder := NewBuilder(&batchEmbedder{}, DefaultChunkSize, DefaultOverlap)
	_, err := builder.BuildFromDir(context.Background(), t.TempDir())
	require.Error(t, err)
}
