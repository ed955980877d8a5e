package identifier

import (
	"testing"

	"portfolio_extraction/pkg/models"
)

func toks(words ...string) []models.RawToken {
	out := make([]models.RawToken, len(words))
	for i, w := range words {
		out[i] = models.RawToken{Text: w, Page: 1}
	}
	return out
}

func TestDetectValidISIN(t *testing.T) {
	got := Detect(toks("XS2530201644", "TORONTO", "DOMINION", "199'080", "USD"), DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	c := got[0]
	if c.Code != "XS2530201644" {
		t.Errorf("code = %q", c.Code)
	}
	if !c.Validated {
		t.Error("candidate not validated")
	}
	if c.TokenIndex != 0 {
		t.Errorf("token index = %d, want 0", c.TokenIndex)
	}
}

func TestDetectRejections(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"invalid prefix", "ZZ1234567890"},
		{"too short", "XS253020164"},
		{"lowercase", "xs2530201644"},
		{"letter check digit", "XS253020164A"},
		{"embedded in longer run", "XS25302016441234567"},
		{"plain word", "TORONTO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(toks(tt.text), DefaultConfig()); len(got) != 0 {
				t.Errorf("Detect(%q) = %d candidates, want 0", tt.text, len(got))
			}
		})
	}
}

func TestDetectDeniedPattern(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DenyPatterns = []string{"CH0076"}
	if got := Detect(toks("CH0076123450"), cfg); len(got) != 0 {
		t.Fatalf("denied pattern still detected: %v", got)
	}
}

func TestDetectDeduplicates(t *testing.T) {
	got := Detect(toks("XS2530201644", "foo", "XS2530201644", "bar"), DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].TokenIndex != 0 {
		t.Errorf("kept occurrence at index %d, want first (0)", got[0].TokenIndex)
	}
}

func TestDetectInsideLabelledToken(t *testing.T) {
	got := Detect(toks("ISIN:US0378331005"), DefaultConfig())
	if len(got) != 1 || got[0].Code != "US0378331005" {
		t.Fatalf("got %v, want US0378331005", got)
	}
}

func TestClassifyCategories(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   Category
	}{
		{"xs defaults to bond", []string{"XS2530201644", "TORONTO", "DOMINION"}, CategoryBond},
		{"fund vocabulary", []string{"LU0048578792", "FIDELITY", "FUNDS", "SICAV"}, CategoryFund},
		{"equity vocabulary", []string{"CH0038863350", "NESTLE", "SA", "REG", "SHS"}, CategoryEquity},
		{"bond vocabulary", []string{"US912828XG32", "TREASURY", "NOTES", "2.5%"}, CategoryBond},
		{"no signal", []string{"DE0005190003", "POSITION"}, CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(toks(tt.tokens...), DefaultConfig())
			if len(got) != 1 {
				t.Fatalf("got %d candidates, want 1", len(got))
			}
			if got[0].Category != tt.want {
				t.Errorf("category = %s, want %s", got[0].Category, tt.want)
			}
		})
	}
}

func TestCheckDigitValid(t *testing.T) {
	valid := []string{"US0378331005", "CH0038863350", "GB0002634946", "US38259P5089"}
	for _, code := range valid {
		if !CheckDigitValid(code) {
			t.Errorf("CheckDigitValid(%q) = false, want true", code)
		}
	}
	if CheckDigitValid("US0378331006") {
		t.Error("CheckDigitValid accepted a wrong check digit")
	}
	if CheckDigitValid("US03783310") {
		t.Error("CheckDigitValid accepted a short code")
	}
}

func TestDetectCheckDigitEnforcement(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VerifyCheckDigit = true
	if got := Detect(toks("US0378331006"), cfg); len(got) != 0 {
		t.Fatalf("wrong check digit passed with verification on: %v", got)
	}
	if got := Detect(toks("US0378331005"), cfg); len(got) != 1 {
		t.Fatalf("valid check digit rejected with verification on")
	}
}

func TestAcceptable(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		code string
		want bool
	}{
		{"XS2530201644", true},
		{"US0378331005", true},
		{"ZZ1234567890", false}, // prefix not allowed
		{"CH0076123456", false}, // deny pattern
		{"xs2530201644", false}, // lowercase
		{"XS25302016", false},   // short
		{"", false},
	}
	for _, tc := range cases {
		if got := Acceptable(tc.code, cfg); got != tc.want {
			t.Errorf("Acceptable(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
