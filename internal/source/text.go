package source

import (
	"context"
	"strings"
)

// Text reads plain UTF-8 text.
type Text struct{}

func (Text) Extract(_ context.Context, data []byte) (*Extraction, error) {
	s := strings.ToValidUTF8(string(data), "�")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return &Extraction{Text: s}, nil
}
