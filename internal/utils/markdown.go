package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// reImageMD matches markdown images: ![alt](url)
	reImageMD = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	// reImageHTML matches HTML image tags: <img ...>
	reImageHTML = regexp.MustCompile(`(?is)<img[^>]*>`)
	// reComment matches HTML comments: <!-- ... -->
	reComment = regexp.MustCompile(`(?s)<!--.*?-->`)
	// reExcessiveNewlines matches 3 or more newlines to compress them
	reExcessiveNewlines = regexp.MustCompile(`\n{3,}`)
)

// MarkDownClean removes content that is generally not useful for LLM
// context, such as images, HTML comments, and excessive whitespace.
func MarkDownClean(text string) string {
	// Remove images
	text = reImageMD.ReplaceAllString(text, "")
	text = reImageHTML.ReplaceAllString(text, "")

	// Remove comments
	text = reComment.ReplaceAllString(text, "")

	// Normalize newlines (max 2 consecutive newlines for paragraph separation)
	text = reExcessiveNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// DefaultPreviewLimit bounds how much of a parsed document is handed to a
// model in a single prompt.
const DefaultPreviewLimit = 10000

// Preview truncates text to at most max bytes, appending a note with the
// full length so the reader knows it saw a prefix. max <= 0 selects
// DefaultPreviewLimit.
func Preview(text string, max int) string {
	if max <= 0 {
		max = DefaultPreviewLimit
	}
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + fmt.Sprintf("\n\n... (truncated, total length: %d characters)", len(text))
}
