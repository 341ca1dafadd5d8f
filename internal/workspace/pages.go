package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	untitledPage  = "未命名"
	emptyPortrait = "（此頁未找到「客戶畫像」內容）"
	maxBlockDepth = 8
)

type Page struct {
	ID    string
	Title string
}

type richText struct {
	PlainText string `json:"plain_text"`
	Text      struct {
		Content string `json:"content"`
	} `json:"text"`
}

type property struct {
	Type  string     `json:"type"`
	Title []richText `json:"title"`
}

type rawPage struct {
	ID         string              `json:"id"`
	Properties map[string]property `json:"properties"`
}

type listResponse[T any] struct {
	Results    []T    `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type database struct {
	DataSources []struct {
		ID string `json:"id"`
	} `json:"data_sources"`
}

type rawBlock struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	HasChildren bool   `json:"has_children"`
	Text        string `json:"-"`
}

// textBlockTypes lists the block types that carry readable rich text.
var textBlockTypes = map[string]bool{
	"paragraph": true, "heading_1": true, "heading_2": true, "heading_3": true,
	"bulleted_list_item": true, "numbered_list_item": true,
	"to_do": true, "toggle": true, "callout": true, "quote": true,
}

// FindPagesByTitle returns every page, across all data sources of the
// database, whose title contains name.
func (c *Client) FindPagesByTitle(ctx context.Context, name string) ([]Page, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var db database
	if err := c.do(ctx, http.MethodGet, "/databases/"+url.PathEscape(c.databaseID), nil, nil, &db); err != nil {
		return nil, fmt.Errorf("get database: %w", err)
	}
	var hits []Page
	for _, ds := range db.DataSources {
		pages, err := c.queryDataSource(ctx, ds.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range pages {
			title := pageTitle(p.Properties)
			if strings.Contains(title, name) {
				hits = append(hits, Page{ID: p.ID, Title: title})
			}
		}
	}
	logutil.GetLogger(ctx).Debug("workspace pages matched",
		zap.String("name", name), zap.Int("data_sources", len(db.DataSources)), zap.Int("hits", len(hits)))
	return hits, nil
}

func (c *Client) queryDataSource(ctx context.Context, id string) ([]rawPage, error) {
	payload := map[string]interface{}{"page_size": pageSize}
	var out []rawPage
	for {
		var res listResponse[rawPage]
		if err := c.do(ctx, http.MethodPost, "/data_sources/"+url.PathEscape(id)+"/query", nil, payload, &res); err != nil {
			return nil, fmt.Errorf("query data source: %w", err)
		}
		out = append(out, res.Results...)
		if !res.HasMore || res.NextCursor == "" {
			return out, nil
		}
		payload["start_cursor"] = res.NextCursor
	}
}

func pageTitle(props map[string]property) string {
	for key, p := range props {
		if p.Type != "title" {
			continue
		}
		if t := plainText(p.Title); t != "" {
			return t
		}
		return key
	}
	return untitledPage
}

func plainText(items []richText) string {
	var sb strings.Builder
	for _, rt := range items {
		if rt.PlainText != "" {
			sb.WriteString(rt.PlainText)
			continue
		}
		sb.WriteString(rt.Text.Content)
	}
	return sb.String()
}

// GetSectionText returns the readable text of every block on the page,
// nested blocks included, one line per block.
func (c *Client) GetSectionText(ctx context.Context, pageID string) (string, error) {
	var lines []string
	if err := c.collectText(ctx, pageID, 0, &lines); err != nil {
		return "", err
	}
	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		return emptyPortrait, nil
	}
	return text, nil
}

func (c *Client) collectText(ctx context.Context, blockID string, depth int, lines *[]string) error {
	if depth > maxBlockDepth {
		return nil
	}
	blocks, err := c.listChildren(ctx, blockID)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if b.Text != "" {
			*lines = append(*lines, b.Text)
		}
		if b.HasChildren {
			if err := c.collectText(ctx, b.ID, depth+1, lines); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Client) listChildren(ctx context.Context, blockID string) ([]rawBlock, error) {
	query := url.Values{"page_size": []string{strconv.Itoa(pageSize)}}
	var out []rawBlock
	for {
		var res listResponse[json.RawMessage]
		if err := c.do(ctx, http.MethodGet, "/blocks/"+url.PathEscape(blockID)+"/children", query, nil, &res); err != nil {
			return nil, fmt.Errorf("list block children: %w", err)
		}
		for _, raw := range res.Results {
			b, err := decodeBlock(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		if !res.HasMore || res.NextCursor == "" {
			return out, nil
		}
		query.Set("start_cursor", res.NextCursor)
	}
}

// decodeBlock reads the common block fields plus the rich text stored under
// the key named by the block's type.
func decodeBlock(raw json.RawMessage) (rawBlock, error) {
	var b rawBlock
	if err := json.Unmarshal(raw, &b); err != nil {
		return b, fmt.Errorf("decode block: %w", err)
	}
	if !textBlockTypes[b.Type] {
		return b, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return b, fmt.Errorf("decode block: %w", err)
	}
	var body struct {
		RichText []richText `json:"rich_text"`
	}
	if v, ok := fields[b.Type]; ok && json.Unmarshal(v, &body) == nil {
		b.Text = plainText(body.RichText)
	}
	return b, nil
}
