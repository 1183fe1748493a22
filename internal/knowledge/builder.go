package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/chitedze/agroadvisor/internal/ai"
	"github.com/chitedze/agroadvisor/internal/model"
	errs "github.com/chitedze/agroadvisor/internal/pkg/errors"
)

// Builder produces the knowledge base offline: it walks a document
// directory, splits each document into fixed windows, embeds them in
// batches, and assembles the flat index. Embedding failures drop the
// affected chunks instead of aborting the whole build: a partial index
// still serves farmers, an empty one does not.
type Builder struct {
	embedder  ai.IEmbedder
	chunkSize int
	overlap   int
}

func NewBuilder(embedder ai.IEmbedder, chunkSize int, overlap int) *Builder {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
	}
	return &Builder{embedder: embedder, chunkSize: chunkSize, overlap: overlap}
}

// BuildFromDir ingests every .md/.txt file directly under dir.
func (b *Builder) BuildFromDir(ctx context.Context, dir string) (*Base, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("dir", dir))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read document dir: %w", err)
	}

	var allChunks []model.Chunk
	var allVectors [][]float32
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".md" && ext != ".markdown" && ext != ".txt" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Error("read document failed", zap.String("file", name), zap.Error(err))
			continue
		}
		content := string(raw)
		if ext != ".txt" {
			content = extractMarkdownText(raw)
		}
		if strings.TrimSpace(content) == "" {
			logger.Warn("document has no extractable text, skipping", zap.String("file", name))
			continue
		}
		chunks, vectors := b.embedDocument(ctx, name, content)
		allChunks = append(allChunks, chunks...)
		allVectors = append(allVectors, vectors...)
		logger.Info("document indexed",
			zap.String("file", name),
			zap.Int("chunks", len(chunks)),
		)
	}

	if len(allVectors) == 0 {
		return nil, fmt.Errorf("no embeddings generated from any document")
	}
	index := NewFlatIndex(len(allVectors[0]))
	kept := make([]model.Chunk, 0, len(allChunks))
	for i, vec := range allVectors {
		if err := index.Add(vec); err != nil {
			logger.Warn("dropping chunk with mismatched embedding", zap.Int("chunk", i), zap.Error(err))
			continue
		}
		kept = append(kept, allChunks[i])
	}
	logger.Info("knowledge index built", zap.Int("vectors", index.Size()), zap.Int("dim", index.Dim()))
	return &Base{Index: index, Chunks: kept}, nil
}

// embedDocument chunks one document and embeds the chunks in capped
// batches. On a rate-limit error the remaining batches of this document
// are abandoned rather than retried; other batch failures skip just that
// batch. Failed chunks are excluded entirely, never stored as zero
// vectors.
func (b *Builder) embedDocument(ctx context.Context, docID string, content string) ([]model.Chunk, [][]float32) {
	logger := logutil.GetLogger(ctx).With(zap.String("doc", docID))
	texts := SplitChunks(content, b.chunkSize, b.overlap)
	if len(texts) == 0 {
		return nil, nil
	}
	stride := b.chunkSize - b.overlap

	var chunks []model.Chunk
	var vectors [][]float32
	for start := 0; start < len(texts); start += ai.MaxEmbedBatchSize {
		end := start + ai.MaxEmbedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]
		embedded, err := b.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			if errs.IsRateLimited(err) {
				logger.Warn("embedding rate limited, abandoning rest of document",
					zap.Int("failed_from_chunk", start),
					zap.Error(err),
				)
				break
			}
			logger.Error("embedding batch failed, skipping",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			continue
		}
		for i, vec := range embedded {
			if len(vec) == 0 {
				logger.Warn("empty embedding, dropping chunk", zap.Int("chunk", start+i))
				continue
			}
			chunks = append(chunks, model.Chunk{
				Text:        batch[i],
				SourceDocID: docID,
				Offset:      (start + i) * stride,
			})
			vectors = append(vectors, vec)
		}
	}
	return chunks, vectors
}

// extractMarkdownText flattens a markdown document into plain text so the
// fixed-width chunker does not split on markup noise.
func extractMarkdownText(source []byte) string {
	md := goldmark.New()
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var sb strings.Builder
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		txt := extractNodeText(node, source)
		if txt == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(txt)
	}
	return sb.String()
}

func extractNodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node.Kind() {
		case ast.KindText:
			sb.Write(node.(*ast.Text).Segment.Value(source))
		case ast.KindCodeBlock, ast.KindFencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				sb.Write(line.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
