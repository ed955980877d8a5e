// Package identifier detects and validates security identifiers (ISINs)
// inside extracted statement text.
package identifier

import (
	"regexp"
	"strconv"
	"strings"

	"portfolio_extraction/pkg/models"
)

// isinRe matches the structural grammar: two uppercase letters, nine
// uppercase-letter-or-digit characters, one digit.
var isinRe = regexp.MustCompile(`\b[A-Z]{2}[A-Z0-9]{9}[0-9]\b`)

// Category is a coarse instrument classification guessed from the identifier
// prefix and its surrounding text.
type Category string

const (
	CategoryBond   Category = "bond"
	CategoryEquity Category = "equity"
	CategoryFund   Category = "fund"
	CategoryOther  Category = "other"
)

// Candidate is a detected identifier with its source token.
type Candidate struct {
	Code       string          `json:"code"`
	Source     models.RawToken `json:"source"`
	TokenIndex int             `json:"token_index"`
	Validated  bool            `json:"validated"`
	Category   Category        `json:"category"`
}

// Config controls identifier validation.
type Config struct {
	// AllowedPrefixes is the allow-list of issuing-country and
	// clearing-system prefixes. A grammar match with a prefix outside this
	// list is not validated and produces no candidate.
	AllowedPrefixes []string
	// DenyPatterns lists prefix+digit combinations known to be false
	// positives (domestic account-number fragments that happen to match the
	// grammar). Matched with string prefix semantics against the full code.
	DenyPatterns []string
	// VerifyCheckDigit additionally runs the ISO 6166 Luhn check. Off by
	// default: statement OCR frequently mangles single characters and the
	// check digit rejects otherwise reliable detections.
	VerifyCheckDigit bool
}

// DefaultConfig covers the common clearing-system (XS) and
// major-jurisdiction prefixes.
func DefaultConfig() Config {
	return Config{
		AllowedPrefixes: []string{
			"XS", "CH", "US", "DE", "FR", "GB", "LU", "IE", "NL", "IT",
			"ES", "AT", "BE", "DK", "FI", "NO", "SE", "CA", "JP", "AU",
			"KY", "VG", "JE", "GG", "BM",
		},
		DenyPatterns: []string{
			// Swiss IBAN fragments: CH + 2 check digits + bank clearing
			// numbers beginning 00/01 slice into valid-looking codes.
			"CH0076", "CH0023", "CH0024",
		},
		VerifyCheckDigit: false,
	}
}

// Detect scans token text for identifier candidates. Candidates failing the
// allow-list, matching the deny-list, or (when enabled) failing the check
// digit are discarded. The result is deduplicated by code, keeping the first
// occurrence's position.
func Detect(tokens []models.RawToken, cfg Config) []Candidate {
	var out []Candidate
	seen := make(map[string]bool)

	for i, tok := range tokens {
		for _, code := range isinRe.FindAllString(tok.Text, -1) {
			if seen[code] {
				continue
			}
			if !prefixAllowed(code, cfg.AllowedPrefixes) {
				continue
			}
			if denied(code, cfg.DenyPatterns) {
				continue
			}
			if cfg.VerifyCheckDigit && !CheckDigitValid(code) {
				continue
			}
			seen[code] = true
			out = append(out, Candidate{
				Code:       code,
				Source:     tok,
				TokenIndex: i,
				Validated:  true,
				Category:   classify(code, contextAround(tokens, i, 6)),
			})
		}
	}
	return out
}

// Acceptable reports whether a standalone code passes the identifier
// grammar and the configured filters. Used by callers that receive codes
// from outside the token stream, e.g. model output.
func Acceptable(code string, cfg Config) bool {
	if len(code) != 12 || isinRe.FindString(code) != code {
		return false
	}
	if !prefixAllowed(code, cfg.AllowedPrefixes) {
		return false
	}
	if denied(code, cfg.DenyPatterns) {
		return false
	}
	if cfg.VerifyCheckDigit && !CheckDigitValid(code) {
		return false
	}
	return true
}

func prefixAllowed(code string, allowed []string) bool {
	prefix := code[:2]
	for _, p := range allowed {
		if p == prefix {
			return true
		}
	}
	return false
}

func denied(code string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// classify guesses the instrument category. XS codes are issued through the
// international clearing systems and are overwhelmingly debt; otherwise the
// nearby vocabulary decides.
func classify(code, context string) Category {
	ctx := strings.ToUpper(context)
	switch {
	case containsAny(ctx, "FUND", "SICAV", "FCP", "UCITS", "ETF"):
		return CategoryFund
	case containsAny(ctx, "NOTES", "BOND", "BONDS", "ANLEIHE", "EMTN", "STRUCT"):
		return CategoryBond
	case containsAny(ctx, "SHS", "SHARES", "AKTIEN", "REG", "ORD", "ADR"):
		return CategoryEquity
	case strings.HasPrefix(code, "XS"):
		return CategoryBond
	default:
		return CategoryOther
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func contextAround(tokens []models.RawToken, idx, radius int) string {
	lo := idx - radius
	if lo < 0 {
		lo = 0
	}
	hi := idx + radius + 1
	if hi > len(tokens) {
		hi = len(tokens)
	}
	var b strings.Builder
	for i := lo; i < hi; i++ {
		if i == idx {
			continue
		}
		b.WriteString(tokens[i].Text)
		b.WriteByte(' ')
	}
	return b.String()
}

// CheckDigitValid runs the ISO 6166 check-digit verification, a Luhn variant
// over the identifier with letters expanded to two-digit numbers.
func CheckDigitValid(code string) bool {
	if len(code) != 12 {
		return false
	}

	var digits strings.Builder
	for _, ch := range code[:11] {
		if ch >= 'A' && ch <= 'Z' {
			digits.WriteString(strconv.Itoa(int(ch - 'A' + 10)))
		} else {
			digits.WriteRune(ch)
		}
	}

	sum := 0
	double := true
	expanded := digits.String()
	for i := len(expanded) - 1; i >= 0; i-- {
		d := int(expanded[i] - '0')
		if double {
			d *= 2
		}
		sum += d/10 + d%10
		double = !double
	}

	expected := (10 - sum%10) % 10
	actual := int(code[11] - '0')
	return expected == actual
}
