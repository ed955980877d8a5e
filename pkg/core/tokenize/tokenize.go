// Package tokenize turns flat extracted text into positionless tokens. In
// this mode only the line and context association strategies apply; the
// position strategy degrades gracefully by yielding nothing.
package tokenize

import (
	"strings"

	"portfolio_extraction/pkg/models"
)

// FormFeed separates pages in flat text extracted from multi-page documents.
const FormFeed = "\f"

// Tokens splits text into whitespace-delimited tokens with line indices.
// Form feeds advance the page counter. Tokens never carry 2-D coordinates in
// this mode.
func Tokens(text string) []models.RawToken {
	var out []models.RawToken
	page := 1
	line := 0

	for _, pageText := range strings.Split(text, FormFeed) {
		for _, lineText := range strings.Split(pageText, "\n") {
			lineIdx := line
			for _, word := range strings.Fields(lineText) {
				out = append(out, models.RawToken{
					Text: word,
					Page: page,
					Line: &lineIdx,
				})
			}
			line++
		}
		page++
	}
	return out
}
