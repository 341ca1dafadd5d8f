package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/worldsun-app/coopeartion-project/internal/ai"
	appErr "github.com/worldsun-app/coopeartion-project/internal/pkg/errors"
)

// Snapshot is an immutable catalog plus its filename embedding index.
type Snapshot struct {
	Entries []Entry
	Index   *Index
	BuiltAt time.Time
}

func (s *Snapshot) Names() []string {
	out := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e.CleanName)
	}
	return out
}

// Holder publishes the current snapshot. Readers never block; Rebuild swaps
// in a fully built replacement. Before the first successful rebuild the
// holder serves an empty catalog.
type Holder struct {
	lister   Lister
	embedder ai.IEmbedder

	mu  sync.Mutex
	cur atomic.Pointer[Snapshot]
}

func NewHolder(lister Lister, embedder ai.IEmbedder) *Holder {
	h := &Holder{lister: lister, embedder: embedder}
	h.cur.Store(&Snapshot{Index: &Index{}})
	return h
}

func (h *Holder) Current() *Snapshot {
	return h.cur.Load()
}

// Rebuild lists and embeds the catalog again. Names whose embedding fails
// keep their previous vector. The previous snapshot stays in place when the
// listing fails or when no name could be embedded while the previous index
// had vectors.
func (h *Holder) Rebuild(ctx context.Context) (*Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	logger := logutil.GetLogger(ctx)
	start := time.Now()
	prev := h.Current()

	entries, err := BuildCatalog(ctx, h.lister)
	if err != nil {
		logger.Warn("catalog rebuild failed, keeping previous snapshot", zap.Error(err))
		return prev, err
	}
	fresh := BuildEmbeddingIndex(ctx, h.embedder, entries)
	if len(entries) > 0 && fresh.Len() == 0 && prev.Index.Len() > 0 {
		logger.Warn("no catalog name embedded, keeping previous snapshot",
			zap.Int("entries", len(entries)), zap.Int("previous_indexed", prev.Index.Len()))
		return prev, fmt.Errorf("embed catalog names: %w", appErr.ErrUnavailable)
	}
	idx, reused := carryOverVectors(entries, fresh, prev.Index)
	snap := &Snapshot{Entries: entries, Index: idx, BuiltAt: time.Now()}
	h.cur.Store(snap)
	logger.Info("catalog snapshot published",
		zap.Int("entries", len(snap.Entries)),
		zap.Int("indexed", snap.Index.Len()),
		zap.Int("reused_vectors", reused),
		zap.Duration("duration", time.Since(start)))
	return snap, nil
}

// carryOverVectors fills entries missing from fresh with the previous vector
// of the same clean name, provided the dimensions agree. Items follow entry
// order.
func carryOverVectors(entries []Entry, fresh, prev *Index) (*Index, int) {
	if prev.Len() == 0 || fresh.Len() == len(entries) {
		return fresh, 0
	}
	dim := fresh.Dim
	if dim == 0 {
		dim = prev.Dim
	}
	if dim != prev.Dim {
		return fresh, 0
	}
	have := make(map[string][]float32, fresh.Len())
	for _, it := range fresh.Items {
		have[it.Entry.StorageKey] = it.Vector
	}
	old := make(map[string][]float32, prev.Len())
	for _, it := range prev.Items {
		old[it.Entry.CleanName] = it.Vector
	}
	out := &Index{Items: make([]IndexedEntry, 0, len(entries)), Dim: dim}
	reused := 0
	for _, e := range entries {
		if vec, ok := have[e.StorageKey]; ok {
			out.Items = append(out.Items, IndexedEntry{Entry: e, Vector: vec})
			continue
		}
		if vec, ok := old[e.CleanName]; ok {
			out.Items = append(out.Items, IndexedEntry{Entry: e, Vector: vec})
			reused++
		}
	}
	return out, reused
}
