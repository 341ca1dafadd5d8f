// Package search turns document index hits into a bounded, scored list of
// extractive segments.
package search

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const UntitledDocument = "未命名文件"

const summaryPreamble = "你是一位專業、資深的企業知識庫問答助理。" +
	"請嚴格根據提供的資料來源，以繁體中文詳細、有條理地回答使用者的問題，禁止參考資料來源以外的資訊。" +
	"如果資料來源中沒有答案，請直接回答「根據現有資料，無法回答此問題」。"

type Segment struct {
	Text        string
	SourceTitle string
	Page        *int
	Score       float64
}

type Result struct {
	Segments []Segment
	// Summary is the backend generated summary, empty when none was returned.
	Summary string
}

func (r Result) Empty() bool {
	return len(r.Segments) == 0 && strings.TrimSpace(r.Summary) == ""
}

type Retriever struct {
	backend Backend
}

func NewRetriever(backend Backend) *Retriever {
	return &Retriever{backend: backend}
}

// Search runs one index query. A nil allowList disables filtering; otherwise
// only documents whose filename title is listed (exact, case-sensitive) are
// kept. Backend failures yield an empty Result.
func (r *Retriever) Search(ctx context.Context, query string, allowList []string, pageLimit, segmentLimit int) Result {
	logger := logutil.GetLogger(ctx).With(zap.String("query", query))
	resp, err := r.backend.Search(ctx, Request{Query: query, PageSize: pageLimit, Preamble: summaryPreamble})
	if err != nil {
		logger.Error("search backend failed", zap.Error(err))
		return Result{}
	}
	var allowed map[string]bool
	if allowList != nil {
		allowed = make(map[string]bool, len(allowList))
		for _, name := range allowList {
			allowed[name] = true
		}
	}

	var segments []Segment
	for _, doc := range resp.Documents {
		fileTitle := FilenameTitle(stringField(doc, "link"))
		if allowed != nil && !allowed[fileTitle] {
			continue
		}
		title := displayTitle(fileTitle, backendTitle(doc))
		for _, raw := range listField(doc, "extractive_segments") {
			seg, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			text := stringField(seg, "content")
			if text == "" {
				continue
			}
			segments = append(segments, Segment{
				Text:        text,
				SourceTitle: title,
				Page:        pageField(seg, "pageNumber"),
				Score:       segmentScore(seg),
			})
		}
	}
	collected := len(segments)
	segments = TopSegments(segments, segmentLimit)
	logger.Debug("segments collected",
		zap.Int("documents", len(resp.Documents)),
		zap.Int("collected", collected),
		zap.Int("selected", len(segments)),
		zap.Bool("filtered", allowed != nil))
	return Result{Segments: segments, Summary: resp.Summary}
}

// TopSegments stable-sorts by score descending and keeps at most limit
// segments. A non-positive limit keeps everything.
func TopSegments(segments []Segment, limit int) []Segment {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Score > segments[j].Score
	})
	if limit > 0 && len(segments) > limit {
		segments = segments[:limit]
	}
	return segments
}

// FilenameTitle extracts the extension-less file name from a storage link
// such as "gs://bucket/dir/name.pdf".
func FilenameTitle(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	p := link
	if _, rest, ok := strings.Cut(link, "://"); ok {
		// A bare bucket link titles as the bucket name.
		p = rest
	}
	if strings.HasSuffix(p, "/") {
		return ""
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

func displayTitle(fileTitle, rawTitle string) string {
	switch {
	case fileTitle != "" && rawTitle != "":
		return fmt.Sprintf("%s（%s）", fileTitle, rawTitle)
	case fileTitle != "":
		return fileTitle
	case rawTitle != "":
		return rawTitle
	default:
		return UntitledDocument
	}
}

func backendTitle(doc Document) string {
	if t := stringField(doc, "title"); t != "" {
		return t
	}
	return stringField(doc, "document_title")
}

func stringField(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return strings.TrimSpace(v)
}

func listField(m map[string]interface{}, key string) []interface{} {
	v, _ := m[key].([]interface{})
	return v
}

func numberField(m map[string]interface{}, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func pageField(m map[string]interface{}, key string) *int {
	f, ok := numberField(m, key)
	if !ok {
		return nil
	}
	page := int(f)
	return &page
}

// segmentScore takes the first non-zero of score and confidenceScore, else 1.
func segmentScore(seg map[string]interface{}) float64 {
	if v, ok := numberField(seg, "score"); ok && v != 0 {
		return v
	}
	if v, ok := numberField(seg, "confidenceScore"); ok && v != 0 {
		return v
	}
	return 1.0
}
