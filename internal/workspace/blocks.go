package workspace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"unicode/utf8"
)

const (
	// Notion rejects rich text items longer than this many characters and
	// append requests with more children than maxAppendBlocks.
	maxRichTextLen  = 2000
	maxAppendBlocks = 100
)

// Block is one Notion block object as sent to the append endpoint.
type Block map[string]interface{}

func (b Block) Type() string {
	t, _ := b["type"].(string)
	return t
}

func textBlock(typ, content string) Block {
	return Block{
		"object": "block",
		"type":   typ,
		typ:      map[string]interface{}{"rich_text": richTextItems(content)},
	}
}

func richTextItems(content string) []map[string]interface{} {
	var items []map[string]interface{}
	for _, part := range splitRunes(content, maxRichTextLen) {
		items = append(items, map[string]interface{}{
			"type": "text",
			"text": map[string]interface{}{"content": part},
		})
	}
	if items == nil {
		items = []map[string]interface{}{}
	}
	return items
}

func splitRunes(s string, n int) []string {
	if s == "" {
		return nil
	}
	var out []string
	for utf8.RuneCountInString(s) > n {
		cut := 0
		for i := 0; i < n; i++ {
			_, size := utf8.DecodeRuneInString(s[cut:])
			cut += size
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	return append(out, s)
}

func Heading(level int, content string) Block {
	if level < 1 {
		level = 1
	}
	if level > 3 {
		level = 3
	}
	return textBlock(fmt.Sprintf("heading_%d", level), content)
}

func Paragraph(content string) Block { return textBlock("paragraph", content) }

func BulletedItem(content string) Block { return textBlock("bulleted_list_item", content) }

func NumberedItem(content string) Block { return textBlock("numbered_list_item", content) }

func Quote(content string) Block { return textBlock("quote", content) }

func Divider() Block {
	return Block{"object": "block", "type": "divider", "divider": map[string]interface{}{}}
}

// SummaryBlocks lays out a discussion summary: heading, the summary rendered
// from markdown, then a divider.
func SummaryBlocks(heading, summary string) []Block {
	blocks := []Block{Heading(2, heading)}
	body := MarkdownToBlocks(summary)
	if len(body) == 0 {
		body = []Block{Paragraph(summary)}
	}
	blocks = append(blocks, body...)
	return append(blocks, Divider())
}

// AppendBlocks appends blocks to the end of a page, in batches the API
// accepts.
func (c *Client) AppendBlocks(ctx context.Context, pageID string, blocks []Block) error {
	for start := 0; start < len(blocks); start += maxAppendBlocks {
		end := start + maxAppendBlocks
		if end > len(blocks) {
			end = len(blocks)
		}
		payload := map[string]interface{}{"children": blocks[start:end]}
		if err := c.do(ctx, http.MethodPatch, "/blocks/"+url.PathEscape(pageID)+"/children", nil, payload, nil); err != nil {
			return fmt.Errorf("append blocks: %w", err)
		}
	}
	return nil
}
