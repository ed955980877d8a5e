// Package config assembles and validates the pipeline configuration.
// Malformed configuration is the only hard failure mode of the system: it
// fails fast at pipeline construction, never mid-run.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	hjson "github.com/hjson/hjson-go/v4"
	"github.com/shopspring/decimal"

	"portfolio_extraction/pkg/core/assoc"
	"portfolio_extraction/pkg/core/identifier"
	"portfolio_extraction/pkg/core/reconcile"
	"portfolio_extraction/pkg/core/validate"
	"portfolio_extraction/pkg/core/values"
)

// Config is the full pipeline configuration with documented defaults.
type Config struct {
	Identifier  identifier.Config
	Values      values.Config
	Association assoc.Config
	Validation  validate.Config
	Reconcile   reconcile.Config
}

// Default returns the documented defaults of every stage.
func Default() Config {
	return Config{
		Identifier:  identifier.DefaultConfig(),
		Values:      values.DefaultConfig(),
		Association: assoc.DefaultConfig(),
		Validation:  validate.DefaultConfig(),
		Reconcile:   reconcile.DefaultConfig(),
	}
}

// Validate checks every stage config.
func (c Config) Validate() error {
	if !c.Values.MinMarketValue.IsPositive() || !c.Values.MaxMarketValue.GreaterThan(c.Values.MinMarketValue) {
		return fmt.Errorf("market value range must satisfy 0 < min < max, got [%s, %s]",
			c.Values.MinMarketValue, c.Values.MaxMarketValue)
	}
	if len(c.Identifier.AllowedPrefixes) == 0 {
		return fmt.Errorf("identifier prefix allow-list must not be empty")
	}
	if err := c.Association.Validate(); err != nil {
		return fmt.Errorf("association config: %w", err)
	}
	if err := c.Validation.Validate(); err != nil {
		return fmt.Errorf("validation config: %w", err)
	}
	if err := c.Reconcile.Validate(); err != nil {
		return fmt.Errorf("reconcile config: %w", err)
	}
	return nil
}

// fileConfig is the flat override schema accepted from an HJSON file. Only
// set fields override the defaults.
type fileConfig struct {
	AllowedPrefixes      []string           `json:"allowed_prefixes"`
	DenyPatterns         []string           `json:"deny_patterns"`
	VerifyCheckDigit     *bool              `json:"verify_check_digit"`
	MinMarketValue       *float64           `json:"min_market_value"`
	MaxMarketValue       *float64           `json:"max_market_value"`
	ProximityRadius      *float64           `json:"proximity_radius"`
	ContextWindow        *int               `json:"context_window"`
	MinContextSimilarity *float64           `json:"min_context_similarity"`
	MaxLineDistance      *int               `json:"max_line_distance"`
	Strictness           *string            `json:"strictness"`
	ReportingCurrency    *string            `json:"reporting_currency"`
	ExchangeRates        map[string]float64 `json:"exchange_rates"`
	MaxIterations        *int               `json:"max_iterations"`
	TargetAccuracy       *float64           `json:"target_accuracy"`
	CorrectionTolerance  *float64           `json:"correction_tolerance"`
	MinRecordCount       *int               `json:"min_record_count"`
}

// Load reads an HJSON override file on top of the defaults and validates the
// result. HJSON keeps hand-edited tuning files tolerant of comments and
// trailing commas.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	// hjson unmarshals into a generic map; round-trip through JSON to get
	// the typed override struct.
	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return cfg, fmt.Errorf("normalize config: %w", err)
	}
	var file fileConfig
	if err := json.Unmarshal(normalized, &file); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	apply(&cfg, file)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func apply(cfg *Config, file fileConfig) {
	if len(file.AllowedPrefixes) > 0 {
		cfg.Identifier.AllowedPrefixes = file.AllowedPrefixes
	}
	if file.DenyPatterns != nil {
		cfg.Identifier.DenyPatterns = file.DenyPatterns
	}
	if file.VerifyCheckDigit != nil {
		cfg.Identifier.VerifyCheckDigit = *file.VerifyCheckDigit
	}
	if file.MinMarketValue != nil {
		cfg.Values.MinMarketValue = decimalFrom(*file.MinMarketValue)
	}
	if file.MaxMarketValue != nil {
		cfg.Values.MaxMarketValue = decimalFrom(*file.MaxMarketValue)
	}
	if file.ProximityRadius != nil {
		cfg.Association.ProximityRadius = *file.ProximityRadius
	}
	if file.ContextWindow != nil {
		cfg.Association.ContextWindow = *file.ContextWindow
	}
	if file.MinContextSimilarity != nil {
		cfg.Association.MinContextSimilarity = *file.MinContextSimilarity
	}
	if file.MaxLineDistance != nil {
		cfg.Association.MaxLineDistance = *file.MaxLineDistance
	}
	if file.Strictness != nil {
		cfg.Validation.Strictness = validate.Strictness(*file.Strictness)
	}
	if file.ReportingCurrency != nil {
		cfg.Validation.ReportingCurrency = *file.ReportingCurrency
	}
	for code, rate := range file.ExchangeRates {
		cfg.Validation.ExchangeRates[code] = decimalFrom(rate)
	}
	if file.MaxIterations != nil {
		cfg.Reconcile.MaxIterations = *file.MaxIterations
	}
	if file.TargetAccuracy != nil {
		cfg.Reconcile.TargetAccuracy = *file.TargetAccuracy
	}
	if file.CorrectionTolerance != nil {
		cfg.Reconcile.CorrectionTolerance = *file.CorrectionTolerance
	}
	if file.MinRecordCount != nil {
		cfg.Reconcile.MinRecordCount = *file.MinRecordCount
	}

	// The validator shares the extractor's plausible range.
	cfg.Validation.ValueRange = cfg.Values
}

func decimalFrom(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
