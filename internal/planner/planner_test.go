package planner

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/worldsun-app/coopeartion-project/internal/catalog"
	"github.com/worldsun-app/coopeartion-project/internal/search"
)

type searchCall struct {
	query     string
	allowList []string
	pageLimit int
	limit     int
}

type fakeSearcher struct {
	mu     sync.Mutex
	calls  []searchCall
	result func(allowList []string) search.Result
}

func (f *fakeSearcher) Search(ctx context.Context, query string, allowList []string, pageLimit, segmentLimit int) search.Result {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{query: query, allowList: allowList, pageLimit: pageLimit, limit: segmentLimit})
	f.mu.Unlock()
	if f.result == nil {
		return search.Result{}
	}
	return f.result(allowList)
}

type staticSnapshots struct {
	snap *catalog.Snapshot
}

func (s staticSnapshots) Current() *catalog.Snapshot { return s.snap }

func snapshotOf(names ...string) staticSnapshots {
	entries := make([]catalog.Entry, 0, len(names))
	for _, n := range names {
		entries = append(entries, catalog.Entry{StorageKey: n + ".pdf", CleanName: n})
	}
	return staticSnapshots{snap: &catalog.Snapshot{Entries: entries, Index: &catalog.Index{}}}
}

func taggedResult(allowList []string) search.Result {
	if len(allowList) == 0 {
		return search.Result{}
	}
	return search.Result{Segments: []search.Segment{
		{Text: "a", SourceTitle: allowList[0], Score: 0.9},
		{Text: "b", SourceTitle: allowList[0], Score: 0.5},
	}}
}

func TestQuotaPerProduct(t *testing.T) {
	require.Equal(t, 12, QuotaPerProduct(0))
	require.Equal(t, 12, QuotaPerProduct(1))
	require.Equal(t, 6, QuotaPerProduct(2))
	require.Equal(t, 4, QuotaPerProduct(3))
	require.Equal(t, 2, QuotaPerProduct(5))
	require.Equal(t, 1, QuotaPerProduct(12))
	require.Equal(t, 1, QuotaPerProduct(20))
	for n := 1; n <= TotalSegmentTarget; n++ {
		require.LessOrEqual(t, n*QuotaPerProduct(n), TotalSegmentTarget)
	}
}

func TestSplitKeywords(t *testing.T) {
	got := SplitKeywords("「保誠」，安聯、 'AIA'\nabc,, ")
	require.Equal(t, []string{"保誠", "安聯", "AIA", "abc"}, got)
	require.Empty(t, SplitKeywords("  "))
}

func TestRewriteComparisonTerms(t *testing.T) {
	require.Equal(t, "介紹A和B的內容", RewriteComparisonTerms("比較A和B的差異"))
	require.Equal(t, "describe the content", RewriteComparisonTerms("compare the difference"))
	require.NotContains(t, RetrievalQuestion("A與B比較"), "比較")
}

func TestRun_NoMatchFallsBack(t *testing.T) {
	fs := &fakeSearcher{}
	p := NewDefault(fs, snapshotOf("保誠-守護", "安聯-傳承"), nil)

	plan := p.Run(context.Background(), "XYZ 的保障是什麼", "XYZ")
	require.True(t, plan.Fallback)
	require.True(t, plan.NoMatch)
	require.Empty(t, plan.ScopeProduct)
	require.Len(t, plan.Keywords, 1)
	require.Empty(t, plan.Keywords[0].AllowList)
	require.Len(t, fs.calls, 1)
	require.Nil(t, fs.calls[0].allowList)
	require.Equal(t, TotalSegmentTarget, fs.calls[0].limit)
	require.Equal(t, DefaultPageLimit, fs.calls[0].pageLimit)
}

func TestRun_CategoryMatchSingleProduct(t *testing.T) {
	fs := &fakeSearcher{result: taggedResult}
	p := NewDefault(fs, snapshotOf("保誠-守護", "安聯-傳承"), nil)

	plan := p.Run(context.Background(), "保誠守護的保障範圍", "保誠守護")
	require.False(t, plan.Fallback)
	require.False(t, plan.NoMatch)
	require.Equal(t, "保誠守護", plan.ScopeProduct)
	require.Len(t, fs.calls, 1)
	require.Equal(t, []string{"保誠-守護"}, fs.calls[0].allowList)
	require.Equal(t, 12, fs.calls[0].limit)
	require.Equal(t, RetrievalQuestion("保誠守護"), fs.calls[0].query)
	require.Equal(t, "category", plan.Keywords[0].Strategy)
	require.Len(t, plan.Segments, 2)
}

func TestRun_MergesInKeywordOrder(t *testing.T) {
	fs := &fakeSearcher{result: taggedResult}
	p := NewDefault(fs, snapshotOf("保誠-守護", "安聯-傳承", "友邦-充裕"), nil)

	plan := p.Run(context.Background(), "比較這三張保單", "友邦,安聯、保誠")
	require.Equal(t, 4, plan.Quota)
	require.Len(t, fs.calls, 3)
	for _, c := range fs.calls {
		require.Equal(t, 4, c.limit)
	}
	require.Empty(t, plan.ScopeProduct)
	require.Len(t, plan.Segments, 6)
	want := []string{"友邦-充裕", "友邦-充裕", "安聯-傳承", "安聯-傳承", "保誠-守護", "保誠-守護"}
	for i, seg := range plan.Segments {
		require.Equal(t, want[i], seg.SourceTitle)
	}
	require.Equal(t, 0.9, plan.Segments[0].Score)
	require.Equal(t, 0.5, plan.Segments[1].Score)
}

func TestRun_PartialResolutionSkipsFallback(t *testing.T) {
	fs := &fakeSearcher{result: taggedResult}
	p := NewDefault(fs, snapshotOf("保誠-守護"), nil)

	plan := p.Run(context.Background(), "q", "保誠, 不存在的商品")
	require.False(t, plan.Fallback)
	require.Len(t, fs.calls, 1)
	require.Len(t, plan.Keywords, 2)
	require.Empty(t, plan.Keywords[1].AllowList)
	require.Empty(t, plan.ScopeProduct)
}

func TestRun_EmptyFilterUsesWholeQuestion(t *testing.T) {
	fs := &fakeSearcher{result: func(allow []string) search.Result {
		return search.Result{Summary: "摘要"}
	}}
	p := NewDefault(fs, snapshotOf("保誠-守護"), nil)

	plan := p.Run(context.Background(), "比較各家的差異", "")
	require.True(t, plan.Fallback)
	require.False(t, plan.NoMatch)
	require.Equal(t, "摘要", plan.Summary)
	require.Len(t, fs.calls, 1)
	require.Equal(t, "介紹各家的內容", fs.calls[0].query)
}
