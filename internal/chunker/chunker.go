// Package chunker splits speakable text into bounded, sentence-respecting
// chunks for speech synthesis.
package chunker

import (
	"iter"
	"regexp"
	"strings"
)

// DefaultBudget is the target chunk size in characters.
const DefaultBudget = 300

// Chunk is one utterance-sized piece of text.
type Chunk struct {
	Index int
	Text  string
}

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	sentencePat    = regexp.MustCompile(`[^.!?]+[.!?]+`)
)

// Split returns every chunk of text in order.
func Split(text string, budget int) []Chunk {
	var out []Chunk
	for c := range Stream(text, budget) {
		out = append(out, c)
	}
	return out
}

// Stream yields chunks lazily. Paragraphs within budget are emitted whole;
// longer ones are packed sentence by sentence. A sentence longer than the
// budget is emitted alone rather than split. Blank input yields nothing;
// otherwise at least one chunk is produced.
func Stream(text string, budget int) iter.Seq[Chunk] {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return func(yield func(Chunk) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}

		index := 0
		emit := func(s string) bool {
			c := Chunk{Index: index, Text: s}
			index++
			return yield(c)
		}

		for _, para := range paragraphBreak.Split(text, -1) {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			if len(para) <= budget {
				if !emit(para) {
					return
				}
				continue
			}

			var current strings.Builder
			for _, sent := range Sentences(para) {
				if current.Len() > 0 && current.Len()+1+len(sent) > budget {
					if !emit(current.String()) {
						return
					}
					current.Reset()
				}
				if current.Len() > 0 {
					current.WriteByte(' ')
				}
				current.WriteString(sent)
			}
			if current.Len() > 0 {
				if !emit(current.String()) {
					return
				}
			}
		}

		if index == 0 {
			emit(text)
		}
	}
}

// Sentences splits a paragraph on terminal punctuation. Trailing text with no
// terminator is returned as a final sentence.
func Sentences(para string) []string {
	var out []string
	last := 0
	for _, loc := range sentencePat.FindAllStringIndex(para, -1) {
		if s := strings.TrimSpace(para[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if rest := strings.TrimSpace(para[last:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
