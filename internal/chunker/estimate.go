package chunker

import (
	"strings"
	"time"
)

const (
	// WordsPerPage is the page estimate used for sources without pagination.
	WordsPerPage = 300

	// WordsPerMinute is the approximate speaking pace at rate 1.0.
	WordsPerMinute = 175
)

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// EstimatePages estimates a page count from word count, never less than 1.
func EstimatePages(text string) int {
	words := WordCount(text)
	pages := (words + WordsPerPage - 1) / WordsPerPage
	if pages < 1 {
		pages = 1
	}
	return pages
}

// EstimateDuration approximates how long text takes to speak at rate.
func EstimateDuration(text string, rate float64) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	words := WordCount(text)
	minutes := float64(words) / (WordsPerMinute * rate)
	return time.Duration(minutes * float64(time.Minute))
}
