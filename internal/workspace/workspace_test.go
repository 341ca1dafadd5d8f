package workspace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/worldsun-app/coopeartion-project/internal/config"
	appErr "github.com/worldsun-app/coopeartion-project/internal/pkg/errors"
)

func titlePage(id, title string) map[string]interface{} {
	return map[string]interface{}{
		"id": id,
		"properties": map[string]interface{}{
			"Name":   map[string]interface{}{"type": "title", "title": []interface{}{map[string]interface{}{"plain_text": title}}},
			"Status": map[string]interface{}{"type": "select"},
		},
	}
}

func textBlockJSON(id, typ, content string, children bool) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"type":         typ,
		"has_children": children,
		typ:            map[string]interface{}{"rich_text": []interface{}{map[string]interface{}{"plain_text": content}}},
	}
}

type fakeNotion struct {
	mu       sync.Mutex
	appended [][]interface{}
	headers  http.Header
}

func (f *fakeNotion) header(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers.Get(key)
}

func (f *fakeNotion) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}
	mux.HandleFunc("GET /databases/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.headers = r.Header.Clone()
		f.mu.Unlock()
		if r.PathValue("id") != "db1" {
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]interface{}{"data_sources": []interface{}{
			map[string]interface{}{"id": "ds1"}, map[string]interface{}{"id": "ds2"},
		}})
	})
	mux.HandleFunc("POST /data_sources/{id}/query", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch {
		case r.PathValue("id") == "ds1" && body["start_cursor"] == nil:
			writeJSON(w, map[string]interface{}{"results": []interface{}{titlePage("p1", "王小明")}, "has_more": true, "next_cursor": "c2"})
		case r.PathValue("id") == "ds1":
			writeJSON(w, map[string]interface{}{"results": []interface{}{titlePage("p2", "王小明 (二)")}, "has_more": false})
		default:
			writeJSON(w, map[string]interface{}{"results": []interface{}{titlePage("p3", "李大華")}, "has_more": false})
		}
	})
	mux.HandleFunc("GET /blocks/{id}/children", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "p1":
			writeJSON(w, map[string]interface{}{"results": []interface{}{
				textBlockJSON("b1", "heading_2", "客戶畫像", false),
				textBlockJSON("b2", "toggle", "人格特質", true),
				map[string]interface{}{"id": "b3", "type": "divider", "divider": map[string]interface{}{}},
				map[string]interface{}{"id": "b4", "type": "image", "image": map[string]interface{}{"type": "external"}},
			}})
		case "b2":
			writeJSON(w, map[string]interface{}{"results": []interface{}{
				textBlockJSON("b5", "bulleted_list_item", "保守穩健", false),
			}})
		default:
			writeJSON(w, map[string]interface{}{"results": []interface{}{}})
		}
	})
	mux.HandleFunc("PATCH /blocks/{id}/children", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Children []interface{} `json:"children"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.appended = append(f.appended, body.Children)
		f.mu.Unlock()
		writeJSON(w, map[string]interface{}{"results": body.Children})
	})
	return mux
}

func newTestClient(t *testing.T) (*Client, *fakeNotion) {
	t.Helper()
	fake := &fakeNotion{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	c := New(config.WorkspaceConfig{APIKey: "secret", DatabaseID: "db1", BaseURL: srv.URL}, WithHTTPClient(srv.Client()))
	return c, fake
}

func TestFindPagesByTitle(t *testing.T) {
	c, fake := newTestClient(t)
	pages, err := c.FindPagesByTitle(context.Background(), " 王小明 ")
	require.NoError(t, err)
	require.Equal(t, []Page{{ID: "p1", Title: "王小明"}, {ID: "p2", Title: "王小明 (二)"}}, pages)
	require.Equal(t, "Bearer secret", fake.header("Authorization"))
	require.Equal(t, defaultVersion, fake.header("Notion-Version"))

	pages, err = c.FindPagesByTitle(context.Background(), "李")
	require.NoError(t, err)
	require.Len(t, pages, 1)

	pages, err = c.FindPagesByTitle(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, pages)
}

func TestFindPagesByTitle_RemoteError(t *testing.T) {
	c, _ := newTestClient(t)
	c.databaseID = "missing"
	_, err := c.FindPagesByTitle(context.Background(), "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestGetSectionText(t *testing.T) {
	c, _ := newTestClient(t)
	text, err := c.GetSectionText(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "客戶畫像\n人格特質\n保守穩健", text)

	text, err = c.GetSectionText(context.Background(), "empty")
	require.NoError(t, err)
	require.Equal(t, emptyPortrait, text)
}

func TestAppendBlocks_Batches(t *testing.T) {
	c, fake := newTestClient(t)
	blocks := make([]Block, 0, 150)
	for i := 0; i < 150; i++ {
		blocks = append(blocks, Paragraph("x"))
	}
	require.NoError(t, c.AppendBlocks(context.Background(), "p1", blocks))
	require.Len(t, fake.appended, 2)
	require.Len(t, fake.appended[0], 100)
	require.Len(t, fake.appended[1], 50)
}

func TestSummaryBlocks(t *testing.T) {
	blocks := SummaryBlocks("與 Amy 的討論摘要", "## 結論\n\n- 客戶偏好儲蓄\n- 預算 *每年* 十萬\n\n1. 下週回覆\n\n---\n\n補充說明")
	types := make([]string, 0, len(blocks))
	for _, b := range blocks {
		types = append(types, b.Type())
	}
	require.Equal(t, []string{
		"heading_2", "heading_2", "bulleted_list_item", "bulleted_list_item",
		"numbered_list_item", "divider", "paragraph", "divider",
	}, types)
	item := blocks[3]["bulleted_list_item"].(map[string]interface{})["rich_text"].([]map[string]interface{})
	require.Equal(t, "預算 每年 十萬", item[0]["text"].(map[string]interface{})["content"])
}

func TestSummaryBlocks_PlainText(t *testing.T) {
	blocks := SummaryBlocks("h", "   ")
	require.Len(t, blocks, 3)
	require.Equal(t, "paragraph", blocks[1].Type())
}

func TestRichTextSplitsLongContent(t *testing.T) {
	long := strings.Repeat("保", maxRichTextLen+5)
	items := Paragraph(long)["paragraph"].(map[string]interface{})["rich_text"].([]map[string]interface{})
	require.Len(t, items, 2)
	require.Equal(t, "保保保保保", items[1]["text"].(map[string]interface{})["content"])
}
