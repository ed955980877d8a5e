// Package ingest turns rendered statement documents (HTML exports, markdown
// conversions) into the token stream the extraction pipeline consumes.
package ingest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"portfolio_extraction/pkg/models"
)

// HTMLTokens extracts tokens from an HTML-rendered statement. Table rows
// map to lines, so downstream line-based association keeps working; cell
// order within a row is preserved. Text outside tables is tokenized
// line-per-block.
func HTMLTokens(html string) ([]models.RawToken, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var out []models.RawToken
	line := 0

	emit := func(text string, lineIdx int) {
		for _, word := range strings.Fields(text) {
			idx := lineIdx
			out = append(out, models.RawToken{Text: word, Page: 1, Line: &idx})
		}
	}

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			var cells []string
			row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
				if text := strings.TrimSpace(cell.Text()); text != "" {
					cells = append(cells, text)
				}
			})
			if len(cells) > 0 {
				emit(strings.Join(cells, " "), line)
				line++
			}
		})
	})

	// Paragraph-level text outside tables (headers, footers, totals).
	doc.Find("p, h1, h2, h3, div").Each(func(_ int, sel *goquery.Selection) {
		if sel.Closest("table").Length() > 0 {
			return
		}
		if sel.Children().Length() > 0 {
			return // only leaf blocks, avoid double-emitting nested text
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			emit(text, line)
			line++
		}
	})

	return out, nil
}
