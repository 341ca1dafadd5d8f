package catalog

import (
	"context"
	"math"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/worldsun-app/coopeartion-project/internal/ai"
)

const indexConcurrency = 8

type IndexedEntry struct {
	Entry  Entry
	Vector []float32
}

// Index holds one embedding per catalog entry. All vectors share Dim.
type Index struct {
	Items []IndexedEntry
	Dim   int
}

func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.Items)
}

// BuildEmbeddingIndex embeds every entry name. Entries whose embedding fails
// or whose dimensionality differs from the first accepted vector are skipped.
func BuildEmbeddingIndex(ctx context.Context, embedder ai.IEmbedder, entries []Entry) *Index {
	logger := logutil.GetLogger(ctx)
	if embedder == nil || len(entries) == 0 {
		return &Index{}
	}
	vectors := make([][]float32, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(indexConcurrency)
	for i, entry := range entries {
		g.Go(func() error {
			vec, err := embedder.Embed(gctx, entry.CleanName, ai.TaskRetrievalDocument)
			if err != nil {
				logger.Debug("embed catalog entry failed", zap.String("name", entry.CleanName), zap.Error(err))
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	_ = g.Wait()

	idx := &Index{Items: make([]IndexedEntry, 0, len(entries))}
	for i, vec := range vectors {
		if len(vec) == 0 {
			continue
		}
		if idx.Dim == 0 {
			idx.Dim = len(vec)
		}
		if len(vec) != idx.Dim {
			logger.Warn("embedding dimension mismatch, entry skipped",
				zap.String("name", entries[i].CleanName), zap.Int("dim", len(vec)), zap.Int("want", idx.Dim))
			continue
		}
		idx.Items = append(idx.Items, IndexedEntry{Entry: entries[i], Vector: vec})
	}
	logger.Info("filename embedding index built", zap.Int("entries", len(entries)), zap.Int("indexed", len(idx.Items)))
	return idx
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
