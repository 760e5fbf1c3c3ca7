package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dgallion1/docspeak/internal/layout"
	pdflib "github.com/ledongthuc/pdf"
)

// PDF exposes the pages of a PDF as positioned text fragments. Pages are read
// lazily so the layout reconstructor can skip a page that fails.
type PDF struct{}

func (PDF) Extract(_ context.Context, data []byte) (ex *Extraction, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: pdf library panic: %v", ErrStructure, rec)
		}
	}()

	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", ErrStructure, err)
	}

	ex = &Extraction{
		Pages:     &pdfPages{r: r},
		PageCount: r.NumPage(),
	}
	ex.Title, ex.Author = pdfInfo(r)
	return ex, nil
}

type pdfPages struct {
	r *pdflib.Reader
}

func (p *pdfPages) NumPages() int { return p.r.NumPage() }

func (p *pdfPages) Page(_ context.Context, n int) (page layout.Page, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf library panic: %v", rec)
		}
	}()

	pg := p.r.Page(n)
	if pg.V.IsNull() {
		return layout.Page{Number: n}, nil
	}
	content := pg.Content()
	return layout.Page{Number: n, Fragments: mergeGlyphs(content.Text)}, nil
}

// pdfInfo reads title and author from the document information dictionary.
func pdfInfo(r *pdflib.Reader) (title, author string) {
	defer func() {
		if recover() != nil {
			title, author = "", ""
		}
	}()
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return "", ""
	}
	return strings.TrimSpace(info.Key("Title").Text()), strings.TrimSpace(info.Key("Author").Text())
}

// mergeGlyphs joins the per-glyph text items of a content stream into word
// fragments. A space glyph ends a fragment, as does a change of baseline or
// size or a horizontal gap wider than a quarter of the font size.
func mergeGlyphs(glyphs []pdflib.Text) []layout.Fragment {
	var out []layout.Fragment
	var cur *layout.Fragment
	var sb strings.Builder
	var end float64

	flush := func() {
		if cur != nil && strings.TrimSpace(sb.String()) != "" {
			cur.Text = sb.String()
			out = append(out, *cur)
		}
		cur = nil
		sb.Reset()
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if cur != nil && (g.Y != cur.Y || g.FontSize != cur.FontSize || g.X-end > cur.FontSize/4) {
			flush()
		}
		if strings.TrimSpace(g.S) == "" {
			if cur != nil {
				sb.WriteByte(' ')
				flush()
			}
			continue
		}
		if cur == nil {
			cur = &layout.Fragment{X: g.X, Y: g.Y, FontSize: g.FontSize}
		}
		sb.WriteString(g.S)
		end = g.X + g.W
	}
	flush()
	return out
}
