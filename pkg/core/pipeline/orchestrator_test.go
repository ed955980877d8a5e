package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"portfolio_extraction/pkg/core/config"
	"portfolio_extraction/pkg/models"
)

func newOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := New(config.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestSingleLineStatement(t *testing.T) {
	o := newOrchestrator(t)
	got := o.Run(Request{
		DocumentID: "doc-1",
		Text:       "XS2530201644 TORONTO DOMINION 199'080 USD",
	})

	if len(got.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(got.Records))
	}
	rec := got.Records[0]
	if rec.ISIN != "XS2530201644" {
		t.Errorf("isin = %q", rec.ISIN)
	}
	if !rec.MarketValue.Equal(decimal.NewFromInt(199080)) {
		t.Errorf("market value = %s, want 199080", rec.MarketValue)
	}
	if rec.Currency != "USD" {
		t.Errorf("currency = %q, want USD", rec.Currency)
	}
	if !got.TotalValue.Equal(decimal.NewFromInt(199080)) {
		t.Errorf("total = %s", got.TotalValue)
	}
}

func TestInvalidPrefixYieldsNoRecords(t *testing.T) {
	o := newOrchestrator(t)
	got := o.Run(Request{Text: "ZZ1234567890 SOME ISSUER 199'080 USD"})
	if len(got.Records) != 0 {
		t.Fatalf("invalid prefix produced %d records", len(got.Records))
	}
}

func TestEmptyInputReturnsEmptyResult(t *testing.T) {
	o := newOrchestrator(t)
	for _, text := range []string{"", "   \n\n", "quarterly letter to our investors"} {
		got := o.Run(Request{Text: text})
		if len(got.Records) != 0 {
			t.Errorf("Run(%q) produced records", text)
		}
		if got.Accuracy != 0 {
			t.Errorf("Run(%q) accuracy = %v, want 0", text, got.Accuracy)
		}
	}
}

func TestRescaleScenario(t *testing.T) {
	o := newOrchestrator(t)
	got := o.Run(Request{
		Text:          "XS2530201644 TORONTO DOMINION 2'500 USD",
		ExpectedTotal: dec(1000),
	})
	if len(got.Records) != 1 {
		t.Fatalf("got %d records", len(got.Records))
	}
	if !got.Records[0].MarketValue.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("rescaled value = %s, want 1000", got.Records[0].MarketValue)
	}
	if !got.Records[0].CorrectionApplied {
		t.Error("rescaled record not marked")
	}
	if got.Accuracy != 1.0 {
		t.Errorf("accuracy = %v, want 1.0", got.Accuracy)
	}
}

func TestDuplicateIdentifierCollapses(t *testing.T) {
	o := newOrchestrator(t)
	text := "XS2530201644 TORONTO DOMINION NOTES 199'080 USD\n" +
		"page footer 2024\n" +
		"XS2530201644 55'000\n"
	got := o.Run(Request{Text: text})
	if len(got.Records) != 1 {
		t.Fatalf("duplicate identifier produced %d records, want 1", len(got.Records))
	}
}

func TestMultiPositionStatement(t *testing.T) {
	o := newOrchestrator(t)
	text := `PORTFOLIO VALUATION 31.03.2025
XS2530201644 TORONTO DOMINION BANK NOTES 23-23.02.27 200'000 106.92 199'080 USD
XS2665592833 CANADIAN IMPERIAL BANK NOTES 23-22.08.28 1'500'000 98.37 1'507'550 USD
CH0244767585 UBS GROUP AG REG SHS 21'496 24'319 USD
TOTAL 1'730'949`
	got := o.Run(Request{Text: text, ExpectedTotal: dec(1730949)})

	if len(got.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(got.Records))
	}
	byISIN := map[string]models.SecurityRecord{}
	for _, r := range got.Records {
		byISIN[r.ISIN] = r
	}
	for _, isin := range []string{"XS2530201644", "XS2665592833", "CH0244767585"} {
		if _, ok := byISIN[isin]; !ok {
			t.Errorf("missing record for %s", isin)
		}
	}
	if got.Accuracy < 0.5 {
		t.Errorf("accuracy = %v, suspiciously low", got.Accuracy)
	}
}

func TestKnownCorrectionsFlow(t *testing.T) {
	o := newOrchestrator(t)
	got := o.Run(Request{
		Text:          "XS2530201644 TORONTO DOMINION 500'000 USD",
		ExpectedTotal: dec(199080),
		KnownCorrections: map[string]decimal.Decimal{
			"XS2530201644": decimal.NewFromInt(199080),
		},
	})
	if len(got.Records) != 1 {
		t.Fatalf("got %d records", len(got.Records))
	}
	if !got.Records[0].MarketValue.Equal(decimal.NewFromInt(199080)) {
		t.Errorf("corrected value = %s", got.Records[0].MarketValue)
	}
	if !got.Records[0].CorrectionApplied {
		t.Error("corrected record not marked")
	}
	if got.Accuracy < 0.99 {
		t.Errorf("accuracy = %v", got.Accuracy)
	}
}

func TestIdempotentRuns(t *testing.T) {
	o := newOrchestrator(t)
	req := Request{
		DocumentID:    "doc-idem",
		Text:          "XS2530201644 TORONTO DOMINION 199'080 USD\nCH0244767585 UBS GROUP AG REG SHS 24'319 USD",
		ExpectedTotal: dec(223399),
	}
	first := o.Run(req)
	second := o.Run(req)

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Errorf("runs differ:\n%s\n%s", a, b)
	}
}

func TestGeneratedDocumentID(t *testing.T) {
	o := newOrchestrator(t)
	got := o.Run(Request{Text: "nothing financial here"})
	if got.DocumentID == "" {
		t.Error("document id not generated")
	}
}

func TestPositionalTokensPreferred(t *testing.T) {
	o := newOrchestrator(t)
	x := func(v float64) *float64 { return &v }
	l := 0
	tokens := []models.RawToken{
		{Text: "XS2530201644", Page: 1, X: x(10), Y: x(200), Line: &l},
		{Text: "TORONTO", Page: 1, X: x(60), Y: x(200), Line: &l},
		{Text: "199'080", Page: 1, X: x(55), Y: x(210), Line: &l},
	}
	got := o.Run(Request{Tokens: tokens, Text: "ignored when tokens present"})
	if len(got.Records) != 1 {
		t.Fatalf("got %d records", len(got.Records))
	}
	if !got.Records[0].MarketValue.Equal(decimal.NewFromInt(199080)) {
		t.Errorf("value = %s", got.Records[0].MarketValue)
	}
}

func TestMalformedConfigFailsFast(t *testing.T) {
	cfg := config.Default()
	cfg.Association.ProximityRadius = -10
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("negative proximity radius accepted at construction")
	}
}
