package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCX reads the body paragraphs of a Word document. Paragraphs styled
// Heading1 through Heading6 become explicit heading candidates.
type DOCX struct{}

func (DOCX) Extract(_ context.Context, data []byte) (*Extraction, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse docx: %v", ErrStructure, err)
	}

	var b blocks
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if level := docxHeadingLevel(para); level > 0 {
			b.heading(text, level)
		} else {
			b.paragraph(text)
		}
	}
	return &Extraction{Text: b.text(), Headings: b.headings}, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if len(style) == len("heading1") && strings.HasPrefix(style, "heading") {
		if d := style[len(style)-1]; d >= '1' && d <= '6' {
			return int(d - '0')
		}
	}
	if style == "title" {
		return 1
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
