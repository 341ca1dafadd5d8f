// Package planner splits a multi-product question into per-product retrievals
// that share a fixed segment budget.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/worldsun-app/coopeartion-project/internal/ai"
	"github.com/worldsun-app/coopeartion-project/internal/catalog"
	"github.com/worldsun-app/coopeartion-project/internal/search"
)

const (
	TotalSegmentTarget = 12
	DefaultPageLimit   = 5
	keywordTopK        = 3
	fallbackTopK       = 5
)

// SegmentSearcher is satisfied by *search.Retriever.
type SegmentSearcher interface {
	Search(ctx context.Context, query string, allowList []string, pageLimit, segmentLimit int) search.Result
}

type SnapshotSource interface {
	Current() *catalog.Snapshot
}

type KeywordResult struct {
	Keyword   string
	AllowList []string
	Strategy  string
	Segments  []search.Segment
}

type Plan struct {
	Keywords []KeywordResult
	Quota    int
	// Segments is the merged output in keyword order.
	Segments []search.Segment
	Summary  string
	Fallback bool
	// ScopeProduct names the single product the answer must stay within.
	ScopeProduct string
	NoMatch      bool
}

type Planner struct {
	retriever SegmentSearcher
	snapshots SnapshotSource
	resolver  *catalog.Resolver
	fallback  catalog.Strategy
	pageLimit int
}

type Option func(*Planner)

func WithPageLimit(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.pageLimit = n
		}
	}
}

func New(retriever SegmentSearcher, snapshots SnapshotSource, resolver *catalog.Resolver, fallback catalog.Strategy, opts ...Option) *Planner {
	p := &Planner{
		retriever: retriever,
		snapshots: snapshots,
		resolver:  resolver,
		fallback:  fallback,
		pageLimit: DefaultPageLimit,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewDefault wires the standard matcher chain: category prefix first, then
// vector similarity gated by character coverage; the fallback resolves the
// whole question by vector similarity alone.
func NewDefault(retriever SegmentSearcher, snapshots SnapshotSource, embedder ai.IEmbedder, opts ...Option) *Planner {
	perKeyword := catalog.VectorStrategy{Embedder: embedder, TopK: keywordTopK, CheckCoverage: true}
	whole := catalog.VectorStrategy{Embedder: embedder, TopK: fallbackTopK}
	return New(retriever, snapshots, catalog.NewResolver(catalog.CategoryStrategy{}, perKeyword), whole, opts...)
}

// QuotaPerProduct is max(1, TotalSegmentTarget / n).
func QuotaPerProduct(n int) int {
	if n <= 0 {
		return TotalSegmentTarget
	}
	q := TotalSegmentTarget / n
	if q < 1 {
		return 1
	}
	return q
}

// Run retrieves segments for question. filterExpr lists product mentions
// separated by commas or newlines; it may be empty.
func (p *Planner) Run(ctx context.Context, question, filterExpr string) *Plan {
	logger := logutil.GetLogger(ctx)
	snap := p.snapshots.Current()
	keywords := SplitKeywords(filterExpr)
	plan := &Plan{Quota: QuotaPerProduct(len(keywords))}

	if len(keywords) > 0 {
		plan.Keywords = p.runKeywords(ctx, snap, keywords, plan.Quota)
		resolved := 0
		for _, kr := range plan.Keywords {
			if len(kr.AllowList) > 0 {
				resolved++
				plan.ScopeProduct = kr.Keyword
			}
			plan.Segments = append(plan.Segments, kr.Segments...)
		}
		if resolved != 1 || len(keywords) != 1 {
			plan.ScopeProduct = ""
		}
		logger.Debug("per-product retrieval finished",
			zap.Int("keywords", len(keywords)), zap.Int("resolved", resolved),
			zap.Int("quota", plan.Quota), zap.Int("segments", len(plan.Segments)))
	}
	if len(plan.Segments) > 0 {
		return plan
	}

	plan.Fallback = true
	plan.ScopeProduct = ""
	var allow []string
	if p.fallback != nil && snap != nil {
		matches, err := p.fallback.Resolve(ctx, question, snap)
		if err != nil {
			logger.Warn("fallback resolution failed", zap.Error(err))
		}
		allow = catalog.Resolution{Matches: matches}.Names()
		if len(allow) == 0 {
			allow = nil
		}
	}
	res := p.retriever.Search(ctx, RewriteComparisonTerms(question), allow, p.pageLimit, TotalSegmentTarget)
	plan.Segments = res.Segments
	plan.Summary = res.Summary
	plan.NoMatch = res.Empty()
	logger.Debug("fallback retrieval finished",
		zap.Int("allow_list", len(allow)), zap.Int("segments", len(plan.Segments)), zap.Bool("no_match", plan.NoMatch))
	return plan
}

func (p *Planner) runKeywords(ctx context.Context, snap *catalog.Snapshot, keywords []string, quota int) []KeywordResult {
	results := make([]KeywordResult, len(keywords))
	g, gctx := errgroup.WithContext(ctx)
	for i, kw := range keywords {
		g.Go(func() error {
			res := p.resolver.Resolve(gctx, kw, snap)
			kr := KeywordResult{Keyword: kw, Strategy: res.Strategy, AllowList: res.Names()}
			if len(kr.AllowList) > 0 {
				out := p.retriever.Search(gctx, RetrievalQuestion(kw), kr.AllowList, p.pageLimit, quota)
				kr.Segments = out.Segments
			} else {
				logutil.GetLogger(gctx).Info("product mention not resolved", zap.String("keyword", kw))
			}
			results[i] = kr
			return nil
		})
	}
	_ = g.Wait()
	return results
}

var keywordSeparators = strings.NewReplacer("，", ",", "、", ",", "\r\n", ",", "\n", ",", "\r", ",")

var quoteStripper = strings.NewReplacer(
	`"`, "", `'`, "", "「", "", "」", "", "『", "", "』", "",
	"“", "", "”", "", "‘", "", "’", "",
)

// NormalizeKeyword strips quote characters and surrounding whitespace. Case
// is preserved; every matcher compares case-sensitively.
func NormalizeKeyword(s string) string {
	return strings.TrimSpace(quoteStripper.Replace(s))
}

func SplitKeywords(expr string) []string {
	expr = keywordSeparators.Replace(expr)
	var out []string
	for _, part := range strings.Split(expr, ",") {
		if kw := NormalizeKeyword(part); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

var comparisonRewriter = strings.NewReplacer(
	"比較", "介紹",
	"比较", "介紹",
	"差異", "內容",
	"差异", "內容",
	"差別", "內容",
	"compare", "describe",
	"Compare", "Describe",
	"difference", "content",
	"Difference", "Content",
)

// RewriteComparisonTerms replaces comparison wording, which degrades index
// matching, with neutral descriptive terms.
func RewriteComparisonTerms(s string) string {
	return comparisonRewriter.Replace(s)
}

// RetrievalQuestion is the search string used for one product, independent
// of how the user phrased the question.
func RetrievalQuestion(keyword string) string {
	return RewriteComparisonTerms(fmt.Sprintf("請詳細說明%s的產品特色、保障範圍與條款內容", keyword))
}
