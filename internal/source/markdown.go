package source

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Markdown renders markdown to speakable plain text. ATX and setext headings
// become explicit heading candidates.
type Markdown struct{}

func (Markdown) Extract(_ context.Context, data []byte) (*Extraction, error) {
	src := []byte(strings.ReplaceAll(string(data), "\r\n", "\n"))
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var b blocks
	walkMarkdown(doc, src, &b)
	return &Extraction{Text: b.text(), Headings: b.headings}, nil
}

func walkMarkdown(n ast.Node, src []byte, b *blocks) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Heading:
			b.heading(inlineText(node, src), node.Level)
		case *ast.Paragraph, *ast.TextBlock:
			b.paragraph(inlineText(node, src))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			b.paragraph(blockLines(node, src))
		case *ast.HTMLBlock, *ast.ThematicBreak:
		default:
			walkMarkdown(c, src, b)
		}
	}
}

func inlineText(n ast.Node, src []byte) string {
	var sb strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Text:
				sb.Write(node.Segment.Value(src))
				switch {
				case node.HardLineBreak():
					sb.WriteByte('\n')
				case node.SoftLineBreak():
					sb.WriteByte(' ')
				}
			case *ast.String:
				sb.Write(node.Value)
			case *ast.AutoLink:
				sb.Write(node.Label(src))
			case *ast.RawHTML:
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

func blockLines(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}
