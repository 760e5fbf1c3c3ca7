// Package source extracts text, positioned pages and markup headings from raw
// document bytes.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/docspeak/internal/document"
	"github.com/dgallion1/docspeak/internal/layout"
)

// ErrUnsupportedType is returned for document types with no extractor.
var ErrUnsupportedType = errors.New("unsupported document type")

// ErrStructure means the bytes were readable but the container could not be
// opened by its parsing library.
var ErrStructure = errors.New("document structure unreadable")

// Extraction is the output of an Extractor. Page-oriented sources set Pages;
// all others set Text.
type Extraction struct {
	Title  string // embedded title, empty when absent
	Author string

	Text  string
	Pages layout.PageSource

	// Headings are explicit markup headings with levels set. Nil means the
	// source carries no heading markup.
	Headings []layout.Candidate

	PageCount int      // 0 when the source is not paginated
	Warnings  []string // per-chapter failures
}

// Extractor reads one document type.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*Extraction, error)
}

// ForType returns the extractor for t.
func ForType(t document.Type) (Extractor, error) {
	switch t {
	case document.TypeText:
		return Text{}, nil
	case document.TypeMarkdown:
		return Markdown{}, nil
	case document.TypePDF:
		return PDF{}, nil
	case document.TypeEPUB:
		return EPUB{}, nil
	case document.TypeHTML:
		return HTML{}, nil
	case document.TypeDOCX:
		return DOCX{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
}

// blocks accumulates paragraph-separated text and the headings inside it.
type blocks struct {
	sb       strings.Builder
	headings []layout.Candidate
}

func (b *blocks) paragraph(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if b.sb.Len() > 0 {
		b.sb.WriteString("\n\n")
	}
	b.sb.WriteString(s)
}

func (b *blocks) heading(s string, level int) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	b.paragraph(s)
	b.headings = append(b.headings, layout.Candidate{Title: s, Level: level})
}

func (b *blocks) text() string { return b.sb.String() }

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
