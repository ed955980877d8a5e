package utils

import "testing"

type holding struct {
	ISIN  string `json:"isin"`
	Value string `json:"value"`
}

func TestDecodeModelJSONClean(t *testing.T) {
	var h holding
	if err := DecodeModelJSON(`{"isin":"XS2530201644","value":"199080"}`, &h); err != nil {
		t.Fatalf("clean JSON: %v", err)
	}
	if h.ISIN != "XS2530201644" {
		t.Errorf("isin = %q", h.ISIN)
	}
}

func TestDecodeModelJSONFenced(t *testing.T) {
	input := "```json\n{\"isin\": \"CH0244767585\", \"value\": \"24319\"}\n```"
	var h holding
	if err := DecodeModelJSON(input, &h); err != nil {
		t.Fatalf("fenced JSON: %v", err)
	}
	if h.Value != "24319" {
		t.Errorf("value = %q", h.Value)
	}
}

func TestDecodeModelJSONRepaired(t *testing.T) {
	// Single quotes and a trailing comma, typical model slip.
	input := `{'isin': 'US0378331005', 'value': '1500',}`
	var h holding
	if err := DecodeModelJSON(input, &h); err != nil {
		t.Fatalf("repairable JSON: %v", err)
	}
	if h.ISIN != "US0378331005" {
		t.Errorf("isin = %q", h.ISIN)
	}
}

func TestDecodeModelJSONGarbage(t *testing.T) {
	var h holding
	if err := DecodeModelJSON("sorry, I cannot parse this document", &h); err == nil {
		t.Error("expected error for non-JSON input")
	}
}

func TestStripCodeFences(t *testing.T) {
	if got := StripCodeFences("```json\n{}\n```"); got != "{}" {
		t.Errorf("got %q", got)
	}
	if got := StripCodeFences(`{"a":1}`); got != `{"a":1}` {
		t.Errorf("unfenced input changed: %q", got)
	}
}
