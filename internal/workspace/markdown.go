package workspace

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownToBlocks converts model output, which is usually light markdown,
// into workspace blocks. Inline markup is flattened to plain text.
func MarkdownToBlocks(markdown string) []Block {
	if strings.TrimSpace(markdown) == "" {
		return nil
	}
	md := goldmark.New()
	reader := text.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)
	src := reader.Source()

	var blocks []Block
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		blocks = append(blocks, convertNode(node, src)...)
	}
	return blocks
}

func convertNode(node ast.Node, src []byte) []Block {
	switch n := node.(type) {
	case *ast.Heading:
		return []Block{Heading(n.Level, inlineText(n, src))}
	case *ast.Paragraph, *ast.TextBlock:
		if t := inlineText(n, src); t != "" {
			return []Block{Paragraph(t)}
		}
	case *ast.ThematicBreak:
		return []Block{Divider()}
	case *ast.Blockquote:
		var parts []string
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t := inlineText(c, src); t != "" {
				parts = append(parts, t)
			}
		}
		return []Block{Quote(strings.Join(parts, "\n"))}
	case *ast.List:
		var out []Block
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			t := listItemText(item, src)
			if n.IsOrdered() {
				out = append(out, NumberedItem(t))
			} else {
				out = append(out, BulletedItem(t))
			}
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				if nested, ok := c.(*ast.List); ok {
					out = append(out, convertNode(nested, src)...)
				}
			}
		}
		return out
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return []Block{Paragraph(strings.TrimRight(linesText(n, src), "\n"))}
	}
	return nil
}

func listItemText(item ast.Node, src []byte) string {
	var parts []string
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*ast.List); ok {
			continue
		}
		if t := inlineText(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func inlineText(node ast.Node, src []byte) string {
	var sb strings.Builder
	writeInline(&sb, node, src)
	return strings.TrimSpace(sb.String())
}

func writeInline(sb *strings.Builder, node ast.Node, src []byte) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Text:
			sb.Write(n.Segment.Value(src))
			if n.SoftLineBreak() || n.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.String:
			sb.Write(n.Value)
		case *ast.CodeSpan:
			writeInline(sb, n, src)
		case *ast.AutoLink:
			sb.Write(n.URL(src))
		default:
			writeInline(sb, n, src)
		}
	}
}

func linesText(node ast.Node, src []byte) string {
	var sb strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}
