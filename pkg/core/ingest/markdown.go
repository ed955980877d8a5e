package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"

	"portfolio_extraction/pkg/models"
)

// ValidMarkdown reports whether the input parses as markdown. Goldmark is
// permissive, so this mostly guards against binary or empty payloads.
func ValidMarkdown(input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}
	parser := goldmark.DefaultParser()
	doc := parser.Parse(text.NewReader([]byte(input)))
	return doc != nil
}

// MarkdownTokens tokenizes a markdown statement. Pipe-table rows are split
// into their cells and each source line becomes one pipeline line, which
// preserves row structure for line-based association.
func MarkdownTokens(input string) []models.RawToken {
	var out []models.RawToken
	line := 0
	for _, raw := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || isTableSeparator(trimmed) {
			continue
		}
		words := strings.Fields(stripTableRow(trimmed))
		if len(words) == 0 {
			continue
		}
		for _, word := range words {
			idx := line
			out = append(out, models.RawToken{Text: word, Page: 1, Line: &idx})
		}
		line++
	}
	return out
}

// stripTableRow removes pipe delimiters and heading markers so only cell
// content remains.
func stripTableRow(line string) string {
	line = strings.TrimLeft(line, "#>*- ")
	line = strings.ReplaceAll(line, "|", " ")
	line = strings.ReplaceAll(line, "**", "")
	return line
}

// isTableSeparator matches rows like "|---|:---:|---|".
func isTableSeparator(line string) bool {
	if !strings.Contains(line, "-") {
		return false
	}
	for _, r := range line {
		switch r {
		case '|', '-', ':', ' ':
		default:
			return false
		}
	}
	return true
}
