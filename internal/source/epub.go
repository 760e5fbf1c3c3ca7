package source

import (
	"bytes"
	"context"
	"fmt"

	"github.com/taylorskalyo/goreader/epub"
)

// EPUB reads the spine of an EPUB container in reading order. A chapter that
// fails to load is skipped with a warning.
type EPUB struct{}

func (EPUB) Extract(ctx context.Context, data []byte) (*Extraction, error) {
	rc, err := epub.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open epub: %v", ErrStructure, err)
	}
	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("%w: no rootfiles found in epub", ErrStructure)
	}
	book := rc.Rootfiles[0]

	ex := &Extraction{
		Title:  book.Metadata.Title,
		Author: book.Metadata.Creator,
	}

	var b blocks
	for _, ref := range book.Spine.Itemrefs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ref.Item == nil {
			continue
		}
		if err := readChapter(ref.Item, &b); err != nil {
			ex.Warnings = append(ex.Warnings, fmt.Sprintf("chapter %s: %v", ref.Item.HREF, err))
		}
	}

	ex.Text = b.text()
	ex.Headings = b.headings
	return ex, nil
}

func readChapter(item *epub.Item, b *blocks) error {
	r, err := item.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	// Parse into a scratch builder so a broken chapter leaves no partial text.
	var chapter blocks
	if _, err := readHTML(r, &chapter); err != nil {
		return err
	}
	if chapter.sb.Len() == 0 {
		return nil
	}
	b.paragraph(chapter.text())
	b.headings = append(b.headings, chapter.headings...)
	return nil
}
