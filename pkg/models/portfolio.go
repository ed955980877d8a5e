// Package models defines the shared data model of the extraction pipeline.
package models

import (
	"github.com/shopspring/decimal"
)

// RawToken is a single token of extracted document text. Position fields are
// optional: text-layer sources usually supply X/Y and a line index, flat text
// only a line index. Tokens are immutable once produced by the source.
type RawToken struct {
	Text string   `json:"text"`
	Page int      `json:"page"`
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`
	Line *int     `json:"line,omitempty"`
}

// HasPosition reports whether the token carries 2-D coordinates.
func (t RawToken) HasPosition() bool {
	return t.X != nil && t.Y != nil
}

// HasLine reports whether the token carries a source line index.
func (t RawToken) HasLine() bool {
	return t.Line != nil
}

// SecurityRecord is the externally visible unit of output: one extracted
// (identifier, market value) pairing with everything recovered around it.
// CorrectionApplied distinguishes measured values from values the
// reconciliation engine substituted or rescaled.
type SecurityRecord struct {
	ISIN              string           `json:"isin"`
	Name              string           `json:"name,omitempty"`
	MarketValue       decimal.Decimal  `json:"market_value"`
	Currency          string           `json:"currency"`
	Quantity          *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice         *decimal.Decimal `json:"unit_price,omitempty"`
	Confidence        float64          `json:"confidence"`
	CorrectionApplied bool             `json:"correction_applied"`
}

// PortfolioResult is the terminal, immutable output of one pipeline run.
// Accuracy is the symmetric ratio min/max of extracted vs expected total;
// it stays 0 when no expected total was supplied or nothing was extracted.
type PortfolioResult struct {
	DocumentID    string           `json:"document_id"`
	Records       []SecurityRecord `json:"records"`
	TotalValue    decimal.Decimal  `json:"total_value"`
	ExpectedTotal *decimal.Decimal `json:"expected_total,omitempty"`
	Accuracy      float64          `json:"accuracy"`
}

// Total sums the market values of a record set.
func Total(records []SecurityRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.MarketValue)
	}
	return total
}
