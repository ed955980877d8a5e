package numeric

import (
	"testing"
)

func TestNormalizeFormats(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		format Format
	}{
		{"swiss apostrophe", "1'234'567.89", "1234567.89", FormatApostrophe},
		{"swiss apostrophe integer", "199'080", "199080", FormatApostrophe},
		{"us comma", "1,234,567.89", "1234567.89", FormatComma},
		{"us comma integer", "2,500,000", "2500000", FormatComma},
		{"space grouped", "1 234 567", "1234567", FormatSpace},
		{"space grouped comma decimals", "1 234 567,89", "1234567.89", FormatSpace},
		{"european", "1.234.567,89", "1234567.89", FormatEuropean},
		{"european thousands only", "1.234.567", "1234567", FormatEuropean},
		{"plain float", "1234567.89", "1234567.89", FormatPlain},
		{"plain integer", "42", "42", FormatPlain},
		{"dollar prefix", "$12,500.00", "12500", FormatComma},
		{"percent suffix", "4.75%", "4.75", FormatPlain},
		{"parenthesised negative", "(1,250.50)", "-1250.5", FormatComma},
		{"minus prefix", "-987.65", "-987.65", FormatPlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, format, ok := Normalize(tt.raw)
			if !ok {
				t.Fatalf("Normalize(%q) not ok", tt.raw)
			}
			if got.String() != tt.want {
				t.Errorf("Normalize(%q) = %s, want %s", tt.raw, got.String(), tt.want)
			}
			if format != tt.format {
				t.Errorf("Normalize(%q) format = %s, want %s", tt.raw, format, tt.format)
			}
		})
	}
}

func TestNormalizeAmbiguousSeparators(t *testing.T) {
	// The rightmost separator wins as decimal point.
	tests := []struct {
		raw  string
		want string
	}{
		{"1,234.56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"12,3456.78", "123456.78"},
	}
	for _, tt := range tests {
		got, _, ok := Normalize(tt.raw)
		if !ok {
			t.Fatalf("Normalize(%q) not ok", tt.raw)
		}
		if got.String() != tt.want {
			t.Errorf("Normalize(%q) = %s, want %s", tt.raw, got.String(), tt.want)
		}
	}
}

func TestNormalizeRejectsNonNumbers(t *testing.T) {
	for _, raw := range []string{"", "TORONTO", "XS2530201644", "12ab34", "--", "'"} {
		if _, _, ok := Normalize(raw); ok {
			t.Errorf("Normalize(%q) = ok, want failure", raw)
		}
	}
}

func TestHasDecimalPoint(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"106.92", true},
		{"4.75%", true},
		{"1'234'567.89", true},
		{"1.234", false}, // european thousands group
		{"199'080", false},
		{"2024", false},
		{"1,234.56", true},
	}
	for _, tt := range tests {
		if got := HasDecimalPoint(tt.raw); got != tt.want {
			t.Errorf("HasDecimalPoint(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
