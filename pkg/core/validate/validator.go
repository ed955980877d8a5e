// Package validate turns selected associations into scored security records,
// rejecting pairings that fail structural and semantic plausibility checks.
package validate

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"portfolio_extraction/pkg/core/assoc"
	"portfolio_extraction/pkg/core/values"
	"portfolio_extraction/pkg/models"
)

// Strictness selects the minimum acceptance score.
type Strictness string

const (
	StrictnessLenient Strictness = "lenient"
	StrictnessStrict  Strictness = "strict"
)

// Scoring bonuses applied on top of the association confidence.
const (
	bonusValidIdentifier = 0.10
	bonusPlausibleRange  = 0.10
	bonusNameRecovered   = 0.05
	bonusQuantityPrice   = 0.05

	// quantityPriceTolerance is deliberately wide: statements mix bond
	// (nominal x price/100) and equity (shares x price) conventions.
	quantityPriceTolerance = 0.35
)

// Config controls record validation and currency handling.
type Config struct {
	Strictness Strictness
	// MinScore overrides the strictness-derived threshold when positive.
	MinScore float64
	// NameWindow is the token span scanned for a security name and a
	// currency marker around the identifier.
	NameWindow int
	// ReportingCurrency is the document's reporting currency. Records
	// inferred in another currency convert using ExchangeRates.
	ReportingCurrency string
	// ExchangeRates maps a foreign currency code to the fixed rate into the
	// reporting currency. The system never fetches live rates.
	ExchangeRates map[string]decimal.Decimal
	// ValueRange reuses the extractor's plausible market-value bounds for
	// the range bonus.
	ValueRange values.Config
}

// DefaultConfig returns lenient validation reporting in USD.
func DefaultConfig() Config {
	return Config{
		Strictness:        StrictnessLenient,
		NameWindow:        8,
		ReportingCurrency: "USD",
		ExchangeRates:     map[string]decimal.Decimal{},
		ValueRange:        values.DefaultConfig(),
	}
}

// Validate fails fast on malformed configuration.
func (c Config) Validate() error {
	if c.Strictness != StrictnessLenient && c.Strictness != StrictnessStrict {
		return fmt.Errorf("unknown strictness %q", c.Strictness)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min score must be in [0,1], got %v", c.MinScore)
	}
	if c.NameWindow <= 0 {
		return fmt.Errorf("name window must be positive, got %d", c.NameWindow)
	}
	if money.GetCurrency(c.ReportingCurrency) == nil {
		return fmt.Errorf("unknown reporting currency %q", c.ReportingCurrency)
	}
	for code, rate := range c.ExchangeRates {
		if money.GetCurrency(code) == nil {
			return fmt.Errorf("unknown exchange rate currency %q", code)
		}
		if !rate.IsPositive() {
			return fmt.Errorf("exchange rate for %s must be positive, got %s", code, rate)
		}
	}
	return nil
}

func (c Config) minScore() float64 {
	if c.MinScore > 0 {
		return c.MinScore
	}
	if c.Strictness == StrictnessStrict {
		return 0.6
	}
	return 0.3
}

// currencyTokens are the currency markers recognised near a position line.
var currencyTokens = []string{"USD", "CHF", "EUR", "GBP"}

// Records converts proposals into scored SecurityRecords, dropping any that
// score below the threshold or whose value is not positive.
func Records(proposals []assoc.Proposal, doc *assoc.Document, cfg Config) []models.SecurityRecord {
	var out []models.SecurityRecord
	for _, p := range proposals {
		if rec, ok := record(p, doc, cfg); ok {
			out = append(out, rec)
		}
	}
	return out
}

func record(p assoc.Proposal, doc *assoc.Document, cfg Config) (models.SecurityRecord, bool) {
	value := p.Value.Parsed
	if !value.IsPositive() {
		return models.SecurityRecord{}, false
	}

	score := p.Confidence
	if p.Identifier.Validated {
		score += bonusValidIdentifier
	}
	if value.GreaterThanOrEqual(cfg.ValueRange.MinMarketValue) &&
		value.LessThanOrEqual(cfg.ValueRange.MaxMarketValue) {
		score += bonusPlausibleRange
	}

	name := recoverName(p, doc, cfg.NameWindow)
	if name != "" {
		score += bonusNameRecovered
	}

	quantity, unitPrice := recoverQuantityPrice(p, doc, cfg)
	if quantity != nil {
		score += bonusQuantityPrice
	}

	if score > 1 {
		score = 1
	}
	if score < cfg.minScore() {
		return models.SecurityRecord{}, false
	}

	currency := inferCurrency(p, doc, cfg)
	rec := models.SecurityRecord{
		ISIN:        p.Identifier.Code,
		Name:        name,
		MarketValue: value,
		Currency:    currency,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Confidence:  score,
	}
	return Convert(rec, cfg), true
}

// Convert converts a record into the reporting currency using the configured
// fixed rate. Records in an unknown foreign currency are left untouched; the
// reconciliation engine retries them on a later pass.
func Convert(rec models.SecurityRecord, cfg Config) models.SecurityRecord {
	if rec.Currency == cfg.ReportingCurrency {
		return rec
	}
	rate, ok := cfg.ExchangeRates[rec.Currency]
	if !ok {
		return rec
	}
	rec.MarketValue = rec.MarketValue.Mul(rate).Round(2)
	if rec.UnitPrice != nil {
		converted := rec.UnitPrice.Mul(rate).Round(4)
		rec.UnitPrice = &converted
	}
	rec.Currency = cfg.ReportingCurrency
	return rec
}

// recoverName joins the non-numeric, non-identifier tokens following the
// identifier into a display name.
func recoverName(p assoc.Proposal, doc *assoc.Document, window int) string {
	var words []string
	for i := p.Identifier.TokenIndex + 1; i < len(doc.Tokens) && i <= p.Identifier.TokenIndex+window; i++ {
		text := strings.TrimSpace(doc.Tokens[i].Text)
		if text == "" {
			continue
		}
		if isNumber(text) {
			break
		}
		if isCurrencyToken(text) || looksLikeIdentifier(text) {
			break
		}
		if !isNameWord(text) {
			continue
		}
		words = append(words, text)
		if len(words) >= 6 {
			break
		}
	}
	return strings.Join(words, " ")
}

// recoverQuantityPrice looks for a quantity and a price printed near the
// identifier and keeps them when mutually consistent with the market value
// under either the bond or the equity convention.
func recoverQuantityPrice(p assoc.Proposal, doc *assoc.Document, cfg Config) (*decimal.Decimal, *decimal.Decimal) {
	lo := p.Identifier.TokenIndex - cfg.NameWindow
	hi := p.Identifier.TokenIndex + 2*cfg.NameWindow

	var price *values.Candidate
	var quantity *values.Candidate
	for i := range doc.Candidates {
		v := &doc.Candidates[i]
		if v.TokenIndex < lo || v.TokenIndex > hi || v.TokenIndex == p.Value.TokenIndex {
			continue
		}
		switch v.Guess {
		case values.GuessPrice:
			if price == nil {
				price = v
			}
		case values.GuessUnknown, values.GuessMarketValue:
			if quantity == nil || v.Parsed.GreaterThan(quantity.Parsed) {
				quantity = v
			}
		}
	}
	if price == nil || quantity == nil || !quantity.Parsed.IsPositive() {
		return nil, nil
	}

	value := p.Value.Parsed
	bond := quantity.Parsed.Mul(price.Parsed).Div(decimal.NewFromInt(100))
	equity := quantity.Parsed.Mul(price.Parsed)
	if !withinTolerance(bond, value, quantityPriceTolerance) &&
		!withinTolerance(equity, value, quantityPriceTolerance) {
		return nil, nil
	}

	unit := value.Div(quantity.Parsed).Round(4)
	q := quantity.Parsed
	return &q, &unit
}

// inferCurrency scans the tokens around the identifier and the value for a
// currency marker and falls back to the reporting currency.
func inferCurrency(p assoc.Proposal, doc *assoc.Document, cfg Config) string {
	for _, center := range []int{p.Value.TokenIndex, p.Identifier.TokenIndex} {
		lo := center - cfg.NameWindow
		if lo < 0 {
			lo = 0
		}
		hi := center + cfg.NameWindow + 1
		if hi > len(doc.Tokens) {
			hi = len(doc.Tokens)
		}
		for i := lo; i < hi; i++ {
			text := strings.ToUpper(strings.TrimSpace(doc.Tokens[i].Text))
			if isCurrencyToken(text) && money.GetCurrency(text) != nil {
				return text
			}
		}
	}
	return cfg.ReportingCurrency
}

func isCurrencyToken(text string) bool {
	for _, c := range currencyTokens {
		if text == c {
			return true
		}
	}
	return false
}

func looksLikeIdentifier(text string) bool {
	if len(text) != 12 {
		return false
	}
	letters := 0
	for _, r := range text {
		if r >= 'A' && r <= 'Z' {
			letters++
		} else if r < '0' || r > '9' {
			return false
		}
	}
	return letters >= 2
}

func isNameWord(text string) bool {
	hasLetter := false
	for _, r := range text {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			hasLetter = true
		case r == '.', r == '-', r == '&', r == '\'', r == '(', r == ')':
		default:
			return false
		}
	}
	return hasLetter
}

func isNumber(text string) bool {
	_, err := decimal.NewFromString(strings.NewReplacer("'", "", ",", "", " ", "").Replace(text))
	return err == nil
}

func withinTolerance(got, want decimal.Decimal, tolerance float64) bool {
	if want.IsZero() {
		return got.IsZero()
	}
	diff := got.Sub(want).Abs().Div(want.Abs())
	return diff.LessThanOrEqual(decimal.NewFromFloat(tolerance))
}
