package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/worldsun-app/coopeartion-project/internal/ai"
)

const (
	BaseThreshold           float32 = 0.55
	HighConfidenceThreshold float32 = 0.70
)

type Match struct {
	Entry Entry
	Score float32
}

// MatchByCategory matches entries whose name starts with a "<category>-"
// token of at least two runes that occurs verbatim in keyword. The result is
// sorted by name so it does not depend on catalog order.
func MatchByCategory(keyword string, entries []Entry) []Match {
	if keyword == "" {
		return nil
	}
	var out []Match
	seen := make(map[string]bool)
	for _, e := range entries {
		prefix, _, ok := strings.Cut(e.CleanName, "-")
		if !ok || utf8.RuneCountInString(prefix) < 2 {
			continue
		}
		if !strings.Contains(keyword, prefix) || seen[e.StorageKey] {
			continue
		}
		seen[e.StorageKey] = true
		out = append(out, Match{Entry: e, Score: 1})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entry.CleanName != out[j].Entry.CleanName {
			return out[i].Entry.CleanName < out[j].Entry.CleanName
		}
		return out[i].Entry.StorageKey < out[j].Entry.StorageKey
	})
	return out
}

// MatchByVector ranks indexed entries by cosine similarity to keyword. When
// any entry reaches HighConfidenceThreshold only those entries are returned.
func MatchByVector(ctx context.Context, embedder ai.IEmbedder, keyword string, index *Index, topK int, threshold float32) ([]Match, error) {
	if keyword == "" || index.Len() == 0 || topK <= 0 {
		return nil, nil
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	query, err := embedder.Embed(ctx, keyword, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed keyword: %w", err)
	}
	if len(query) != index.Dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), index.Dim)
	}
	return rankByVector(query, index, topK, threshold), nil
}

func rankByVector(query []float32, index *Index, topK int, threshold float32) []Match {
	matches := make([]Match, 0)
	hasHigh := false
	for _, item := range index.Items {
		score := cosineSimilarity(query, item.Vector)
		if score < threshold {
			continue
		}
		if score >= HighConfidenceThreshold {
			hasHigh = true
		}
		matches = append(matches, Match{Entry: item.Entry, Score: score})
	}
	if hasHigh {
		high := matches[:0]
		for _, m := range matches {
			if m.Score >= HighConfidenceThreshold {
				high = append(high, m)
			}
		}
		matches = high
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Coverage is the fraction of keyword's distinct non-space runes that also
// appear in candidate.
func Coverage(keyword, candidate string) float64 {
	distinct := distinctRunes(keyword)
	if len(distinct) == 0 {
		return 0
	}
	have := distinctRunes(candidate)
	hit := 0
	for r := range distinct {
		if have[r] {
			hit++
		}
	}
	return float64(hit) / float64(len(distinct))
}

// RequiredCoverage is 1.0 for keywords with fewer than three distinct runes,
// otherwise 0.6, lowered to 0.5 when the vector score is high enough to
// tolerate simplified/traditional script differences.
func RequiredCoverage(keyword string, score float32) float64 {
	if len(distinctRunes(keyword)) < 3 {
		return 1.0
	}
	if score >= HighConfidenceThreshold {
		return 0.5
	}
	return 0.6
}

func distinctRunes(s string) map[rune]bool {
	out := make(map[rune]bool)
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		out[r] = true
	}
	return out
}

// Strategy resolves a keyword against a catalog snapshot.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, keyword string, snap *Snapshot) ([]Match, error)
}

type CategoryStrategy struct{}

func (CategoryStrategy) Name() string { return "category" }

func (CategoryStrategy) Resolve(ctx context.Context, keyword string, snap *Snapshot) ([]Match, error) {
	return MatchByCategory(keyword, snap.Entries), nil
}

type VectorStrategy struct {
	Embedder  ai.IEmbedder
	TopK      int
	Threshold float32
	// CheckCoverage drops candidates whose name shares too few characters
	// with the keyword.
	CheckCoverage bool
}

func (v VectorStrategy) Name() string { return "vector" }

func (v VectorStrategy) Resolve(ctx context.Context, keyword string, snap *Snapshot) ([]Match, error) {
	threshold := v.Threshold
	if threshold <= 0 {
		threshold = BaseThreshold
	}
	matches, err := MatchByVector(ctx, v.Embedder, keyword, snap.Index, v.TopK, threshold)
	if err != nil || !v.CheckCoverage {
		return matches, err
	}
	out := matches[:0]
	for _, m := range matches {
		cov := Coverage(keyword, m.Entry.CleanName)
		need := RequiredCoverage(keyword, m.Score)
		if cov < need {
			logutil.GetLogger(ctx).Debug("vector candidate rejected by coverage",
				zap.String("keyword", keyword), zap.String("name", m.Entry.CleanName),
				zap.Float32("score", m.Score), zap.Float64("coverage", cov), zap.Float64("need", need))
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

type Resolution struct {
	Strategy string
	Matches  []Match
}

func (r Resolution) Names() []string {
	out := make([]string, 0, len(r.Matches))
	seen := make(map[string]bool, len(r.Matches))
	for _, m := range r.Matches {
		if seen[m.Entry.CleanName] {
			continue
		}
		seen[m.Entry.CleanName] = true
		out = append(out, m.Entry.CleanName)
	}
	return out
}

// Resolver tries its strategies in order; the first one with hits wins.
// A failing strategy is logged and treated as having no hits.
type Resolver struct {
	strategies []Strategy
}

func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

func (r *Resolver) Resolve(ctx context.Context, keyword string, snap *Snapshot) Resolution {
	logger := logutil.GetLogger(ctx).With(zap.String("keyword", keyword))
	if snap == nil {
		return Resolution{}
	}
	for _, s := range r.strategies {
		matches, err := s.Resolve(ctx, keyword, snap)
		if err != nil {
			logger.Warn("matcher strategy failed", zap.String("strategy", s.Name()), zap.Error(err))
			continue
		}
		if len(matches) > 0 {
			logger.Debug("keyword resolved", zap.String("strategy", s.Name()), zap.Int("matches", len(matches)))
			return Resolution{Strategy: s.Name(), Matches: matches}
		}
	}
	return Resolution{}
}
