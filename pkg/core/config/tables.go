package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// correctionsFile is the YAML schema for externally supplied tables: a
// known-corrections map (identifier -> authoritative value) and optional
// fixed exchange rates. Values are strings so statement-style literals keep
// their precision.
type correctionsFile struct {
	ExpectedTotal string            `yaml:"expected_total"`
	Corrections   map[string]string `yaml:"corrections"`
	ExchangeRates map[string]string `yaml:"exchange_rates"`
}

// Tables holds the externally supplied reconciliation inputs.
type Tables struct {
	ExpectedTotal *decimal.Decimal
	Corrections   map[string]decimal.Decimal
	ExchangeRates map[string]decimal.Decimal
}

// LoadTables reads a YAML corrections file. Per the design, corrections are
// configuration, not code: per-document fixes never live in the source.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read corrections: %w", err)
	}

	var file correctionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Tables{}, fmt.Errorf("parse corrections: %w", err)
	}

	out := Tables{
		Corrections:   make(map[string]decimal.Decimal, len(file.Corrections)),
		ExchangeRates: make(map[string]decimal.Decimal, len(file.ExchangeRates)),
	}
	if file.ExpectedTotal != "" {
		total, err := decimal.NewFromString(file.ExpectedTotal)
		if err != nil {
			return Tables{}, fmt.Errorf("expected total %q: %w", file.ExpectedTotal, err)
		}
		out.ExpectedTotal = &total
	}
	for isin, v := range file.Corrections {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return Tables{}, fmt.Errorf("correction for %s: %w", isin, err)
		}
		out.Corrections[isin] = d
	}
	for code, v := range file.ExchangeRates {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return Tables{}, fmt.Errorf("exchange rate for %s: %w", code, err)
		}
		out.ExchangeRates[code] = d
	}
	return out, nil
}
