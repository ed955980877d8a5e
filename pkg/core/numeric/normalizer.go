// Package numeric normalizes numeric literals written in regional formats
// (apostrophe-, comma-, space- or dot-grouped) into canonical decimals.
package numeric

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Format identifies the regional notation a literal was written in.
type Format string

const (
	FormatApostrophe Format = "apostrophe" // 1'234'567.89 (Swiss)
	FormatComma      Format = "comma"      // 1,234,567.89 (US)
	FormatSpace      Format = "space"      // 1 234 567,89
	FormatEuropean   Format = "european"   // 1.234.567,89
	FormatPlain      Format = "plain"      // 1234567.89
)

var (
	apostropheRe = regexp.MustCompile(`^\d{1,3}(?:'\d{3})+(?:[.,]\d+)?$`)
	spaceRe      = regexp.MustCompile(`^\d{1,3}(?: \d{3})+(?:[.,]\d+)?$`)
	usRe         = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	euRe         = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+(?:,\d+)?$`)
	mixedRe      = regexp.MustCompile(`^[\d.,]+$`)
)

// Normalize parses a numeric literal in any supported format and returns the
// canonical decimal value. ok is false when the string cannot be interpreted
// as a number under any rule; callers treat that as "not a number" and skip
// the token, never as an error.
func Normalize(raw string) (decimal.Decimal, Format, bool) {
	s := clean(raw)
	if s == "" {
		return decimal.Zero, FormatPlain, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(strings.Trim(s, "()"))
	} else if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}

	value, format, ok := parse(s)
	if !ok {
		return decimal.Zero, FormatPlain, false
	}
	if negative {
		value = value.Neg()
	}
	return value, format, true
}

func parse(s string) (decimal.Decimal, Format, bool) {
	switch {
	case apostropheRe.MatchString(s):
		return fromSeparated(s, "'", FormatApostrophe)
	case spaceRe.MatchString(s):
		return fromSeparated(s, " ", FormatSpace)
	case usRe.MatchString(s):
		stripped := strings.ReplaceAll(s, ",", "")
		return fromPlain(stripped, FormatComma)
	case euRe.MatchString(s):
		stripped := strings.ReplaceAll(s, ".", "")
		stripped = strings.ReplaceAll(stripped, ",", ".")
		return fromPlain(stripped, FormatEuropean)
	}

	// Ambiguous comma+dot combinations that the grouped patterns reject
	// (irregular group sizes, OCR noise). The rightmost separator is the
	// decimal point; every earlier occurrence of either separator groups
	// thousands.
	if strings.ContainsAny(s, ",.") && strings.Contains(s, ",") && strings.Contains(s, ".") && mixedRe.MatchString(s) {
		lastComma := strings.LastIndex(s, ",")
		lastDot := strings.LastIndex(s, ".")
		decimalSep, format := ".", FormatComma
		if lastComma > lastDot {
			decimalSep, format = ",", FormatEuropean
		}
		intPart := s[:strings.LastIndex(s, decimalSep)]
		fracPart := s[strings.LastIndex(s, decimalSep)+1:]
		intPart = strings.ReplaceAll(intPart, ",", "")
		intPart = strings.ReplaceAll(intPart, ".", "")
		return fromPlain(intPart+"."+fracPart, format)
	}

	// Plain float or integer.
	return fromPlain(strings.ReplaceAll(s, ",", "."), FormatPlain)
}

// fromSeparated handles apostrophe and space grouping, where the decimal
// separator may be either '.' or ','.
func fromSeparated(s, groupSep string, format Format) (decimal.Decimal, Format, bool) {
	s = strings.ReplaceAll(s, groupSep, "")
	s = strings.ReplaceAll(s, ",", ".")
	return fromPlain(s, format)
}

func fromPlain(s string, format Format) (decimal.Decimal, Format, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, format, false
	}
	return d, format, true
}

// clean strips the decoration a statement token commonly carries around its
// numeric payload: currency signs, percent signs, trailing punctuation.
func clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimPrefix(s, "£")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimRight(s, ";:")
	// A literal like "1'234." or "567," lost its decimals to tokenization.
	s = strings.TrimRight(s, ".,")
	return s
}

// HasDecimalPoint reports whether the raw literal carried an explicit decimal
// separator with digits after it. Classification uses this to tell prices and
// percentages from whole quantities.
func HasDecimalPoint(raw string) bool {
	s := clean(raw)
	for _, sep := range []string{".", ","} {
		idx := strings.LastIndex(s, sep)
		if idx < 0 || idx == len(s)-1 {
			continue
		}
		frac := s[idx+1:]
		if len(frac) == 3 && !strings.ContainsAny(frac, ".,") && isAllDigits(frac) && strings.Count(s, sep) >= 1 {
			// Exactly three digits after the last separator reads as a
			// thousands group, not decimals, unless another separator kind
			// already grouped the integer part.
			other := "."
			if sep == "." {
				other = ","
			}
			if !strings.Contains(s[:idx], other) && !strings.ContainsAny(s[:idx], "' ") {
				continue
			}
		}
		if isAllDigits(frac) {
			return true
		}
	}
	return false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
