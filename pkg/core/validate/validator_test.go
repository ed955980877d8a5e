package validate

import (
	"testing"

	"github.com/shopspring/decimal"

	"portfolio_extraction/pkg/core/assoc"
	"portfolio_extraction/pkg/core/identifier"
	"portfolio_extraction/pkg/core/values"
	"portfolio_extraction/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func docFrom(words ...string) (*assoc.Document, []identifier.Candidate) {
	tokens := make([]models.RawToken, len(words))
	for i, w := range words {
		line := i / 8
		tokens[i] = models.RawToken{Text: w, Page: 1, Line: ptr(line)}
	}
	return &assoc.Document{
		Tokens:     tokens,
		Candidates: values.Extract(tokens, values.DefaultConfig()),
	}, identifier.Detect(tokens, identifier.DefaultConfig())
}

func proposalFor(t *testing.T, doc *assoc.Document, ids []identifier.Candidate) assoc.Proposal {
	t.Helper()
	engine := assoc.NewEngine(assoc.DefaultConfig())
	proposals := engine.Associate(ids, doc)
	if len(proposals) == 0 {
		t.Fatal("no association proposals")
	}
	return proposals[0]
}

func TestRecordFromCleanLine(t *testing.T) {
	doc, ids := docFrom("XS2530201644", "TORONTO", "DOMINION", "199'080", "USD")
	p := proposalFor(t, doc, ids)

	records := Records([]assoc.Proposal{p}, doc, DefaultConfig())
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.ISIN != "XS2530201644" {
		t.Errorf("isin = %q", rec.ISIN)
	}
	if !rec.MarketValue.Equal(decimal.NewFromInt(199080)) {
		t.Errorf("market value = %s, want 199080", rec.MarketValue)
	}
	if rec.Currency != "USD" {
		t.Errorf("currency = %q, want USD", rec.Currency)
	}
	if rec.Name != "TORONTO DOMINION" {
		t.Errorf("name = %q, want TORONTO DOMINION", rec.Name)
	}
	if rec.CorrectionApplied {
		t.Error("fresh record marked corrected")
	}
}

func TestStrictModeRejectsWeakAssociations(t *testing.T) {
	doc, ids := docFrom("XS2530201644", "TORONTO", "DOMINION", "199'080", "USD")
	p := proposalFor(t, doc, ids)
	p.Confidence = 0.2

	cfg := DefaultConfig()
	cfg.Strictness = StrictnessStrict
	if got := Records([]assoc.Proposal{p}, doc, cfg); len(got) != 0 {
		t.Fatalf("strict mode accepted a weak association: %+v", got)
	}

	cfg.Strictness = StrictnessLenient
	if got := Records([]assoc.Proposal{p}, doc, cfg); len(got) != 1 {
		t.Fatal("lenient mode rejected an acceptable association")
	}
}

func TestCurrencyConversion(t *testing.T) {
	doc, ids := docFrom("CH0012032048", "ROCHE", "HOLDING", "500'000", "CHF")
	p := proposalFor(t, doc, ids)

	cfg := DefaultConfig()
	cfg.ExchangeRates = map[string]decimal.Decimal{
		"CHF": decimal.NewFromFloat(1.12),
	}
	records := Records([]assoc.Proposal{p}, doc, cfg)
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	rec := records[0]
	if rec.Currency != "USD" {
		t.Errorf("currency = %q, want USD after conversion", rec.Currency)
	}
	want := decimal.NewFromInt(560000)
	if !rec.MarketValue.Equal(want) {
		t.Errorf("market value = %s, want %s", rec.MarketValue, want)
	}
}

func TestUnknownRateLeftUnconverted(t *testing.T) {
	doc, ids := docFrom("CH0012032048", "ROCHE", "HOLDING", "500'000", "CHF")
	p := proposalFor(t, doc, ids)

	records := Records([]assoc.Proposal{p}, doc, DefaultConfig())
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Currency != "CHF" {
		t.Errorf("currency = %q, want CHF (no rate configured)", records[0].Currency)
	}
}

func TestQuantityPriceConsistency(t *testing.T) {
	doc, ids := docFrom("XS2530201644", "TORONTO", "DOMINION", "200'000", "106.92", "199'080", "USD")
	p := proposalFor(t, doc, ids)
	if p.Value.Raw == "106.92" {
		t.Fatalf("price selected as market value")
	}

	records := Records([]assoc.Proposal{p}, doc, DefaultConfig())
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	rec := records[0]
	if rec.Quantity == nil {
		t.Fatal("quantity not recovered")
	}
	if rec.UnitPrice == nil {
		t.Fatal("unit price not computed")
	}
	unit := rec.MarketValue.Div(*rec.Quantity).Round(4)
	if !rec.UnitPrice.Equal(unit) {
		t.Errorf("unit price = %s, want value/quantity = %s", rec.UnitPrice, unit)
	}
}

func TestNonPositiveValueDropped(t *testing.T) {
	doc, ids := docFrom("XS2530201644", "TORONTO", "199'080")
	p := proposalFor(t, doc, ids)
	p.Value.Parsed = decimal.Zero

	if got := Records([]assoc.Proposal{p}, doc, DefaultConfig()); len(got) != 0 {
		t.Fatalf("zero-value record survived: %+v", got)
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReportingCurrency = "ZZZ"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown reporting currency passed validation")
	}

	cfg = DefaultConfig()
	cfg.ExchangeRates = map[string]decimal.Decimal{"CHF": decimal.NewFromInt(-1)}
	if err := cfg.Validate(); err == nil {
		t.Error("negative exchange rate passed validation")
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
