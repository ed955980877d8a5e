// Package values finds numeric literals in extracted text and classifies
// each by its likely semantic role on a statement line.
package values

import (
	"strings"

	"github.com/shopspring/decimal"

	"portfolio_extraction/pkg/core/numeric"
	"portfolio_extraction/pkg/models"
)

// SemanticGuess is the likely role of a numeric literal.
type SemanticGuess string

const (
	GuessPrice       SemanticGuess = "price"
	GuessQuantity    SemanticGuess = "quantity"
	GuessPercentage  SemanticGuess = "percentage"
	GuessMarketValue SemanticGuess = "marketValue"
	GuessYear        SemanticGuess = "year"
	GuessUnknown     SemanticGuess = "unknown"
)

// MagnitudeClass buckets values by order of magnitude.
type MagnitudeClass string

const (
	MagnitudeTiny      MagnitudeClass = "tiny"       // < 10
	MagnitudeSmall     MagnitudeClass = "small"      // < 1'000
	MagnitudeMedium    MagnitudeClass = "medium"     // < 100'000
	MagnitudeLarge     MagnitudeClass = "large"      // < 10'000'000
	MagnitudeVeryLarge MagnitudeClass = "very_large" // >= 10'000'000
)

// Candidate is a parsed numeric literal with classification.
type Candidate struct {
	Raw        string          `json:"raw"`
	Parsed     decimal.Decimal `json:"parsed"`
	Format     numeric.Format  `json:"format"`
	Magnitude  MagnitudeClass  `json:"magnitude"`
	Source     models.RawToken `json:"source"`
	TokenIndex int             `json:"token_index"`
	Guess      SemanticGuess   `json:"guess"`
}

// Config bounds the plausible-portfolio-line range for market values.
type Config struct {
	MinMarketValue decimal.Decimal
	MaxMarketValue decimal.Decimal
}

// DefaultConfig returns the default plausible range for a single statement
// line: 1'000 up to 100 million.
func DefaultConfig() Config {
	return Config{
		MinMarketValue: decimal.NewFromInt(1_000),
		MaxMarketValue: decimal.NewFromInt(100_000_000),
	}
}

// Extract runs the numeric normalizer over every token and classifies each
// hit. A literal receives exactly one guess; ties break toward the most
// specific rule: year > percentage > price > marketValue > unknown.
func Extract(tokens []models.RawToken, cfg Config) []Candidate {
	var out []Candidate
	for i, tok := range tokens {
		parsed, format, ok := numeric.Normalize(tok.Text)
		if !ok {
			continue
		}
		out = append(out, Candidate{
			Raw:        tok.Text,
			Parsed:     parsed,
			Format:     format,
			Magnitude:  Magnitude(parsed),
			Source:     tok,
			TokenIndex: i,
			Guess:      classify(tok.Text, parsed, followedByPercent(tokens, i), cfg),
		})
	}
	return out
}

func classify(raw string, v decimal.Decimal, percentFollows bool, cfg Config) SemanticGuess {
	hasDecimals := numeric.HasDecimalPoint(raw)

	// Year: a bare 4-digit integer in the plausible statement range.
	if isYear(raw, v) {
		return GuessYear
	}

	// Percentage: under 100 with an explicit % sign or decimal digits.
	// Wins over the price rule on the overlapping [50, 100) band.
	if v.Abs().LessThan(decimal.NewFromInt(100)) &&
		(strings.Contains(raw, "%") || percentFollows || hasDecimals) {
		return GuessPercentage
	}

	// Price: face-value-relative bond/equity prices cluster near par.
	if hasDecimals &&
		v.GreaterThanOrEqual(decimal.NewFromInt(50)) &&
		v.LessThanOrEqual(decimal.NewFromInt(200)) {
		return GuessPrice
	}

	// Market value: inside the plausible portfolio-line range.
	if v.GreaterThanOrEqual(cfg.MinMarketValue) && v.LessThanOrEqual(cfg.MaxMarketValue) {
		return GuessMarketValue
	}

	return GuessUnknown
}

func isYear(raw string, v decimal.Decimal) bool {
	if !v.Equal(v.Truncate(0)) {
		return false
	}
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) != 4 {
		return false
	}
	year := v.IntPart()
	return year >= 1990 && year <= 2050
}

func followedByPercent(tokens []models.RawToken, idx int) bool {
	if idx+1 >= len(tokens) {
		return false
	}
	return strings.TrimSpace(tokens[idx+1].Text) == "%"
}

// Magnitude buckets an absolute value.
func Magnitude(v decimal.Decimal) MagnitudeClass {
	abs := v.Abs()
	switch {
	case abs.LessThan(decimal.NewFromInt(10)):
		return MagnitudeTiny
	case abs.LessThan(decimal.NewFromInt(1_000)):
		return MagnitudeSmall
	case abs.LessThan(decimal.NewFromInt(100_000)):
		return MagnitudeMedium
	case abs.LessThan(decimal.NewFromInt(10_000_000)):
		return MagnitudeLarge
	default:
		return MagnitudeVeryLarge
	}
}

// BaseConfidence is the classification confidence a candidate contributes to
// an association proposal before any strategy adjustment.
func (c Candidate) BaseConfidence() float64 {
	switch c.Guess {
	case GuessMarketValue:
		return 0.75
	case GuessPrice:
		return 0.5
	case GuessQuantity:
		return 0.45
	case GuessPercentage, GuessYear:
		return 0.2
	default:
		return 0.3
	}
}

// Specificity ranks guesses by how narrow their rule is. Higher wins ties.
func (c Candidate) Specificity() int {
	switch c.Guess {
	case GuessYear:
		return 5
	case GuessPercentage:
		return 4
	case GuessPrice:
		return 3
	case GuessMarketValue:
		return 2
	default:
		return 1
	}
}
