package knowledge

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chitedze/agroadvisor/internal/ai"
)

const DefaultTopK = 3

// Retriever answers "which chunks are closest to this query". It never
// fails: a missing knowledge base, a failed query embedding or a bad
// index hit all degrade to fewer (or zero) results.
type Retriever struct {
	base     *Base
	embedder ai.IEmbedder
	topK     int
}

// NewRetriever accepts a nil base; retrieval is then permanently disabled
// and Retrieve returns nothing.
func NewRetriever(base *Base, embedder ai.IEmbedder, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{base: base, embedder: embedder, topK: topK}
}

func (r *Retriever) Available() bool {
	return r.base != nil && r.base.Index != nil && len(r.base.Chunks) > 0
}

func (r *Retriever) Retrieve(ctx context.Context, query string) []string {
	logger := logutil.GetLogger(ctx)
	if !r.Available() {
		logger.Warn("retrieval requested but knowledge base is not loaded")
		return nil
	}
	if r.embedder == nil {
		logger.Warn("retrieval requested but no embedder configured")
		return nil
	}
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		logger.Error("query embedding failed", zap.Error(err))
		return nil
	}
	indices := r.base.Index.Search(queryVec, r.topK)
	results := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(r.base.Chunks) {
			logger.Warn("index hit out of chunk range, dropping", zap.Int("index", idx))
			continue
		}
		results = append(results, r.base.Chunks[idx].Text)
	}
	return results
}
