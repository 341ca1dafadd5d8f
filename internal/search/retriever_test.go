package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	resp *Response
	err  error
	reqs []Request
}

func (f *fakeBackend) Search(ctx context.Context, req Request) (*Response, error) {
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

func seg(content string, page interface{}, score interface{}) map[string]interface{} {
	m := map[string]interface{}{"content": content}
	if page != nil {
		m["pageNumber"] = page
	}
	if score != nil {
		m["score"] = score
	}
	return m
}

func doc(link, title string, segs ...map[string]interface{}) Document {
	list := make([]interface{}, 0, len(segs))
	for _, s := range segs {
		list = append(list, s)
	}
	d := Document{"extractive_segments": list}
	if link != "" {
		d["link"] = link
	}
	if title != "" {
		d["title"] = title
	}
	return d
}

func TestRetriever_BackendFailureIsAbsorbed(t *testing.T) {
	r := NewRetriever(&fakeBackend{err: errors.New("503")})
	res := r.Search(context.Background(), "q", nil, 5, 12)
	require.Empty(t, res.Segments)
	require.Empty(t, res.Summary)
	require.True(t, res.Empty())
}

func TestRetriever_SendsPageLimit(t *testing.T) {
	b := &fakeBackend{resp: &Response{}}
	NewRetriever(b).Search(context.Background(), "q", nil, 7, 3)
	require.Len(t, b.reqs, 1)
	require.Equal(t, 7, b.reqs[0].PageSize)
	require.Equal(t, "q", b.reqs[0].Query)
	require.NotEmpty(t, b.reqs[0].Preamble)
}

func TestRetriever_TitlesScoresAndPages(t *testing.T) {
	b := &fakeBackend{resp: &Response{
		Summary: "summary text",
		Documents: []Document{
			doc("gs://bucket/dir/保誠-守護.pdf", "守護手冊",
				seg("a", "3", 0.4),
				seg("", 1, 0.99),
			),
			doc("", "只有標題", seg("b", 2.0, nil)),
			doc("", "", map[string]interface{}{"content": "c", "confidenceScore": 0.8}),
		},
	}}
	res := NewRetriever(b).Search(context.Background(), "q", nil, 5, 12)
	require.Equal(t, "summary text", res.Summary)
	require.Len(t, res.Segments, 3)

	require.Equal(t, "b", res.Segments[0].Text)
	require.Equal(t, "只有標題", res.Segments[0].SourceTitle)
	require.Equal(t, 1.0, res.Segments[0].Score)
	require.Equal(t, 2, *res.Segments[0].Page)

	require.Equal(t, "c", res.Segments[1].Text)
	require.Equal(t, UntitledDocument, res.Segments[1].SourceTitle)
	require.Nil(t, res.Segments[1].Page)

	require.Equal(t, "a", res.Segments[2].Text)
	require.Equal(t, "保誠-守護（守護手冊）", res.Segments[2].SourceTitle)
	require.Equal(t, 3, *res.Segments[2].Page)
}

func TestSegmentScore_ZeroFallsThrough(t *testing.T) {
	require.Equal(t, 0.7, segmentScore(map[string]interface{}{"score": 0.0, "confidenceScore": 0.7}))
	require.Equal(t, 1.0, segmentScore(map[string]interface{}{"score": 0.0}))
	require.Equal(t, 1.0, segmentScore(map[string]interface{}{"score": 0, "confidenceScore": 0}))
	require.Equal(t, 0.3, segmentScore(map[string]interface{}{"score": 0.3, "confidenceScore": 0.7}))
}

func TestRetriever_AllowListIsExactAndCaseSensitive(t *testing.T) {
	b := &fakeBackend{resp: &Response{Documents: []Document{
		doc("gs://b/ProductA.pdf", "", seg("x", 1, 0.9)),
		doc("gs://b/ProductB.pdf", "", seg("y", 1, 0.8)),
	}}}
	r := NewRetriever(b)

	res := r.Search(context.Background(), "q", []string{"producta"}, 5, 12)
	require.Empty(t, res.Segments)

	res = r.Search(context.Background(), "q", []string{"ProductA"}, 5, 12)
	require.Len(t, res.Segments, 1)
	require.Equal(t, "x", res.Segments[0].Text)

	res = r.Search(context.Background(), "q", nil, 5, 12)
	require.Len(t, res.Segments, 2)
}

func TestTopSegments_StableTruncation(t *testing.T) {
	in := []Segment{
		{Text: "first", Score: 0.9},
		{Text: "low", Score: 0.3},
		{Text: "second", Score: 0.9},
	}
	got := TopSegments(in, 2)
	require.Len(t, got, 2)
	require.Equal(t, "first", got[0].Text)
	require.Equal(t, "second", got[1].Text)
}

func TestFilenameTitle(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{"gs://bucket/忠意啟航創富 產品手冊.pdf", "忠意啟航創富 產品手冊"},
		{"gs://bucket/a/b/c.docx", "c"},
		{"s3://bucket/x.y.pdf", "x.y"},
		{"gs://bucket", "bucket"},
		{"gs://bucket/dir/", ""},
		{"local/name.pdf", "name"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, FilenameTitle(tt.link), tt.link)
	}
}

func TestStaticBackend_RanksByRuneOverlap(t *testing.T) {
	b := NewStaticBackend([]Document{
		doc("gs://b/安聯-傳承.pdf", "", seg("傳承規劃", 1, 0.5)),
		doc("gs://b/保誠-守護.pdf", "", seg("守護保障內容", 1, 0.5)),
		doc("gs://b/none.pdf", "", seg("zzz", 1, 0.5)),
	})
	resp, err := b.Search(context.Background(), Request{Query: "守護 保障", PageSize: 5})
	require.NoError(t, err)
	require.Len(t, resp.Documents, 1)
	require.Equal(t, "gs://b/保誠-守護.pdf", resp.Documents[0]["link"])
}
