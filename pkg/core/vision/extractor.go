// Package vision recovers holdings from scanned statements by asking a
// multimodal model to read page images, then parsing its structured
// output into the same record shape the text pipeline produces.
package vision

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"portfolio_extraction/pkg/core/identifier"
	"portfolio_extraction/pkg/core/llm"
	"portfolio_extraction/pkg/core/numeric"
	"portfolio_extraction/pkg/core/utils"
	"portfolio_extraction/pkg/models"
)

const extractionPrompt = `You are reading a bank portfolio statement. List every security
position you can see. Respond with JSON only, no commentary:
{"holdings": [{"isin": "...", "name": "...", "quantity": "...", "price": "...", "market_value": "...", "currency": "..."}]}
Use the exact numbers printed on the page, including thousand separators.
Leave a field empty if it is not printed.`

// visionHolding is the wire schema the model is asked to produce. All
// numeric fields are strings so the normalizer handles the formats.
type visionHolding struct {
	ISIN        string `json:"isin"`
	Name        string `json:"name"`
	Quantity    string `json:"quantity"`
	Price       string `json:"price"`
	MarketValue string `json:"market_value"`
	Currency    string `json:"currency"`
}

type visionResponse struct {
	Holdings []visionHolding `json:"holdings"`
}

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

// Extractor runs the model pass over page images or raw statement text.
type Extractor struct {
	Provider llm.VisionProvider
	Text     llm.Provider
	IDConfig identifier.Config
}

// New returns an Extractor backed by the given vision provider.
func New(provider llm.VisionProvider) *Extractor {
	return &Extractor{Provider: provider, IDConfig: identifier.DefaultConfig()}
}

// NewText returns an Extractor backed by a text provider, for statements
// whose text layer survived but whose layout defeats deterministic
// association.
func NewText(provider llm.Provider) *Extractor {
	return &Extractor{Text: provider, IDConfig: identifier.DefaultConfig()}
}

// Extract sends the page images to the vision model and parses its
// response into records. Holdings with no usable identifier or value are
// dropped rather than guessed at.
func (e *Extractor) Extract(ctx context.Context, images [][]byte, mimeType string) ([]models.SecurityRecord, error) {
	if e.Provider == nil {
		return nil, fmt.Errorf("no vision provider configured")
	}

	raw, err := e.Provider.GenerateFromImages(ctx, extractionPrompt, images, mimeType)
	if err != nil {
		return nil, fmt.Errorf("vision pass failed: %w", err)
	}

	return e.Parse(raw)
}

// ExtractFromText sends already-extracted statement text to the text model
// and parses its holdings. Same prompt and wire schema as the image pass.
func (e *Extractor) ExtractFromText(ctx context.Context, text string) ([]models.SecurityRecord, error) {
	if e.Text == nil {
		return nil, fmt.Errorf("no text provider configured")
	}

	raw, err := e.Text.GenerateResponse(ctx, "Statement text:\n\n"+text, extractionPrompt, map[string]interface{}{
		"response_format": map[string]interface{}{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("text model pass failed: %w", err)
	}

	return e.Parse(raw)
}

// Parse converts raw model output into validated records. Exposed
// separately so model transcripts can be replayed without an API call.
func (e *Extractor) Parse(raw string) ([]models.SecurityRecord, error) {
	var resp visionResponse
	if err := utils.DecodeModelJSON(raw, &resp); err != nil {
		return nil, fmt.Errorf("could not decode vision output: %w", err)
	}

	var records []models.SecurityRecord
	for _, h := range resp.Holdings {
		rec, ok := e.toRecord(h)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (e *Extractor) toRecord(h visionHolding) (models.SecurityRecord, bool) {
	code := strings.ToUpper(strings.TrimSpace(h.ISIN))
	if !identifier.Acceptable(code, e.IDConfig) {
		return models.SecurityRecord{}, false
	}

	value, _, ok := numeric.Normalize(h.MarketValue)
	if !ok || value.Sign() <= 0 {
		return models.SecurityRecord{}, false
	}

	rec := models.SecurityRecord{
		ISIN:        code,
		Name:        strings.TrimSpace(h.Name),
		MarketValue: value,
		Currency:    normalizeCurrency(h.Currency),
		Confidence:  0.6, // model-read values rank below validated text extraction
	}
	if qty, _, ok := numeric.Normalize(h.Quantity); ok && qty.Sign() > 0 {
		rec.Quantity = &qty
	}
	if price, _, ok := numeric.Normalize(h.Price); ok && price.Sign() > 0 {
		rec.UnitPrice = &price
	}
	return rec, true
}

func normalizeCurrency(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if currencyRe.MatchString(code) {
		return code
	}
	return "USD"
}

// ScaleToExpected proportionally nudges model-read values onto the printed
// expected total. It only acts when the totals are already within a factor
// of two of each other: a gross mismatch means misread holdings, not a
// uniform scale error, and is left for the caller to surface.
func ScaleToExpected(records []models.SecurityRecord, expected decimal.Decimal) []models.SecurityRecord {
	total := models.Total(records)
	if total.Sign() <= 0 || expected.Sign() <= 0 {
		return records
	}
	ratio := total.Div(expected)
	if ratio.LessThan(decimal.NewFromFloat(0.5)) || ratio.GreaterThan(decimal.NewFromInt(2)) {
		return records
	}
	if ratio.Equal(decimal.NewFromInt(1)) {
		return records
	}
	factor := expected.Div(total)
	out := make([]models.SecurityRecord, len(records))
	for i, rec := range records {
		rec.MarketValue = rec.MarketValue.Mul(factor).Round(2)
		rec.CorrectionApplied = true
		out[i] = rec
	}
	return out
}
