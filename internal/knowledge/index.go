package knowledge

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sort"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chitedze/agroadvisor/internal/filestore"
	"github.com/chitedze/agroadvisor/internal/model"
)

// FlatIndex is an exact k-NN index over a dense embedding matrix: queries
// scan every vector and rank by squared L2 distance. It is built offline
// and read-only afterwards.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

func (x *FlatIndex) Dim() int {
	return x.dim
}

func (x *FlatIndex) Size() int {
	return len(x.vectors)
}

func (x *FlatIndex) Add(vec []float32) error {
	if len(vec) != x.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), x.dim)
	}
	x.vectors = append(x.vectors, vec)
	return nil
}

// Search returns the indices of the topK nearest vectors in ascending
// distance order. Asking for more neighbours than stored returns all of
// them; an empty index or a mismatched query returns nothing.
func (x *FlatIndex) Search(query []float32, topK int) []int {
	if topK <= 0 || len(x.vectors) == 0 || len(query) != x.dim {
		return nil
	}
	type hit struct {
		idx  int
		dist float64
	}
	hits := make([]hit, 0, len(x.vectors))
	for i, vec := range x.vectors {
		hits = append(hits, hit{idx: i, dist: l2Squared(query, vec)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].idx < hits[j].idx
	})
	if topK > len(hits) {
		topK = len(hits)
	}
	result := make([]int, 0, topK)
	for _, h := range hits[:topK] {
		result = append(result, h.idx)
	}
	return result
}

func l2Squared(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

type indexArtifact struct {
	Dim     int
	Vectors [][]float32
}

// Base pairs the index with the chunk sequence it was built from.
// Invariant: index.Size() == len(chunks), entry i maps to chunks[i].
type Base struct {
	Index  *FlatIndex
	Chunks []model.Chunk
}

// SaveBase persists the two artifacts through the store. They are only
// meaningful together; LoadBase refuses to load one without the other.
func SaveBase(ctx context.Context, store filestore.Store, base *Base, indexKey string, chunksKey string) error {
	if base == nil || base.Index == nil {
		return fmt.Errorf("nothing to save")
	}
	if base.Index.Size() != len(base.Chunks) {
		return fmt.Errorf("index size %d does not match chunk count %d", base.Index.Size(), len(base.Chunks))
	}
	if err := saveGob(ctx, store, indexKey, indexArtifact{Dim: base.Index.dim, Vectors: base.Index.vectors}); err != nil {
		return fmt.Errorf("save index artifact: %w", err)
	}
	if err := saveGob(ctx, store, chunksKey, base.Chunks); err != nil {
		return fmt.Errorf("save chunks artifact: %w", err)
	}
	return nil
}

// LoadBase loads both artifacts. Any failure yields a nil base: retrieval
// is then disabled as a whole, never half-working.
func LoadBase(ctx context.Context, store filestore.Store, indexKey string, chunksKey string) (*Base, error) {
	var art indexArtifact
	if err := loadGob(ctx, store, indexKey, &art); err != nil {
		return nil, fmt.Errorf("load index artifact: %w", err)
	}
	var chunks []model.Chunk
	if err := loadGob(ctx, store, chunksKey, &chunks); err != nil {
		return nil, fmt.Errorf("load chunks artifact: %w", err)
	}
	if len(art.Vectors) != len(chunks) {
		return nil, fmt.Errorf("artifact mismatch: %d vectors vs %d chunks", len(art.Vectors), len(chunks))
	}
	logutil.GetLogger(ctx).Info("knowledge base loaded",
		zap.Int("vectors", len(art.Vectors)),
		zap.Int("dim", art.Dim),
	)
	return &Base{
		Index:  &FlatIndex{dim: art.Dim, vectors: art.Vectors},
		Chunks: chunks,
	}, nil
}

func saveGob(ctx context.Context, store filestore.Store, key string, value interface{}) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return err
	}
	return store.Save(ctx, key, &buf)
}

func loadGob(ctx context.Context, store filestore.Store, key string, dst interface{}) error {
	rc, err := store.Open(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()
	return gob.NewDecoder(rc).Decode(dst)
}
