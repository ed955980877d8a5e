// Package reconcile adjusts extracted records so their aggregate matches an
// externally known expected total, within bounded iteration.
package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"portfolio_extraction/pkg/models"
)

// Config tunes the reconciliation state machine.
type Config struct {
	// MaxIterations bounds the refinement loop.
	MaxIterations int
	// TargetAccuracy is the terminal symmetric ratio.
	TargetAccuracy float64
	// MinDelta stops the loop when an iteration improves accuracy by less
	// than this.
	MinDelta float64
	// CorrectionTolerance is the relative divergence above which a known
	// correction overwrites an extracted value.
	CorrectionTolerance float64
	// RescaleLow/RescaleHigh bound the acceptable extracted/expected ratio;
	// outside it the engine applies a one-time proportional rescale.
	RescaleLow  float64
	RescaleHigh float64
	// MinRecordCount triggers the supplementary detection pass when fewer
	// records survived validation.
	MinRecordCount int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:       5,
		TargetAccuracy:      0.99,
		MinDelta:            0.001,
		CorrectionTolerance: 0.08,
		RescaleLow:          0.5,
		RescaleHigh:         2.0,
		MinRecordCount:      0,
	}
}

// Validate fails fast on malformed configuration.
func (c Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.TargetAccuracy <= 0 || c.TargetAccuracy > 1 {
		return fmt.Errorf("target accuracy must be in (0,1], got %v", c.TargetAccuracy)
	}
	if c.MinDelta < 0 {
		return fmt.Errorf("min delta must not be negative, got %v", c.MinDelta)
	}
	if c.CorrectionTolerance < 0 || c.CorrectionTolerance > 1 {
		return fmt.Errorf("correction tolerance must be in [0,1], got %v", c.CorrectionTolerance)
	}
	if c.RescaleLow <= 0 || c.RescaleHigh <= c.RescaleLow {
		return fmt.Errorf("rescale bounds must satisfy 0 < low < high, got [%v, %v]", c.RescaleLow, c.RescaleHigh)
	}
	if c.MinRecordCount < 0 {
		return fmt.Errorf("min record count must not be negative, got %d", c.MinRecordCount)
	}
	return nil
}

// CurrencyFixer retries currency conversion for a still-unconverted record
// and reports whether it changed anything.
type CurrencyFixer func(rec models.SecurityRecord) (models.SecurityRecord, bool)

// SupplementFunc attempts a best-effort supplementary detection pass and
// returns any additional records found; it may legitimately find none.
type SupplementFunc func() []models.SecurityRecord

// Input bundles everything one reconciliation run reads.
type Input struct {
	Records []models.SecurityRecord
	// ExpectedTotal is the externally known aggregate; when nil the engine
	// skips entirely and the records pass through unmodified.
	ExpectedTotal *decimal.Decimal
	// KnownCorrections maps identifier -> authoritative market value.
	KnownCorrections map[string]decimal.Decimal
	// FixCurrency and Supplement are optional collaborator callbacks.
	FixCurrency CurrencyFixer
	Supplement  SupplementFunc
}

// Result is the reconciled record set with the accuracy achieved.
type Result struct {
	Records  []models.SecurityRecord
	Total    decimal.Decimal
	Accuracy float64
	// Iterations is how many refinement passes ran.
	Iterations int
	// Rescaled reports whether the proportional fallback fired.
	Rescaled bool
}

// Engine runs the bounded reconciliation loop.
type Engine struct {
	cfg Config
}

// NewEngine builds an engine; the config must already be validated.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Accuracy is the symmetric ratio min/max of two totals, in (0,1]. It is 0
// when either total is not positive.
func Accuracy(current, expected decimal.Decimal) float64 {
	if !current.IsPositive() || !expected.IsPositive() {
		return 0
	}
	lo, hi := current, expected
	if lo.GreaterThan(hi) {
		lo, hi = hi, lo
	}
	ratio, _ := lo.Div(hi).Float64()
	return ratio
}

// Run executes the state machine. It never invents identifiers: it only
// corrects or rescales values on records that already passed validation, and
// it is explicitly best-effort — it can terminate without reaching the
// target accuracy. Accuracy never regresses across iterations: a pass whose
// adjustments lower it is rolled back and the loop stops.
func (e *Engine) Run(in Input) Result {
	records := append([]models.SecurityRecord(nil), in.Records...)

	if in.ExpectedTotal == nil {
		return Result{Records: records, Total: models.Total(records)}
	}
	expected := *in.ExpectedTotal

	accuracy := Accuracy(models.Total(records), expected)
	iterations := 0

	for iterations < e.cfg.MaxIterations && accuracy < e.cfg.TargetAccuracy {
		iterations++

		next := e.iterate(records, in)
		nextAccuracy := Accuracy(models.Total(next), expected)

		if nextAccuracy < accuracy {
			// Regression: keep the previous state and stop refining.
			break
		}
		improved := nextAccuracy - accuracy
		records = next
		accuracy = nextAccuracy
		if improved < e.cfg.MinDelta {
			break
		}
	}

	result := Result{
		Records:    records,
		Total:      models.Total(records),
		Accuracy:   accuracy,
		Iterations: iterations,
	}

	// Fallback: a gross mismatch (outside the [low, high] ratio band) gets a
	// one-time proportional rescale. Rescaled values are inferred, not
	// measured, so every touched record is marked.
	if result.Total.IsPositive() {
		ratio, _ := result.Total.Div(expected).Float64()
		if ratio < e.cfg.RescaleLow || ratio > e.cfg.RescaleHigh {
			factor := expected.Div(result.Total)
			for i := range result.Records {
				result.Records[i].MarketValue = result.Records[i].MarketValue.Mul(factor).Round(2)
				result.Records[i].CorrectionApplied = true
			}
			result.Total = models.Total(result.Records)
			result.Accuracy = Accuracy(result.Total, expected)
			result.Rescaled = true
		}
	}

	return result
}

// iterate applies one refinement pass: known corrections, the currency
// re-correction sweep, then the supplementary detection attempt.
func (e *Engine) iterate(records []models.SecurityRecord, in Input) []models.SecurityRecord {
	out := append([]models.SecurityRecord(nil), records...)

	// (a) Direct substitution from the known-correction table.
	for i := range out {
		corrected, ok := in.KnownCorrections[out[i].ISIN]
		if !ok || !corrected.IsPositive() {
			continue
		}
		if relativeDiff(out[i].MarketValue, corrected) > e.cfg.CorrectionTolerance {
			out[i].MarketValue = corrected
			out[i].CorrectionApplied = true
		}
	}

	// (b) Currency re-correction for still-unconverted records.
	if in.FixCurrency != nil {
		for i := range out {
			if fixed, changed := in.FixCurrency(out[i]); changed {
				fixed.CorrectionApplied = true
				out[i] = fixed
			}
		}
	}

	// (c) Supplementary detection when the record count is suspiciously low.
	if in.Supplement != nil && len(out) < e.cfg.MinRecordCount {
		existing := make(map[string]bool, len(out))
		for _, r := range out {
			existing[r.ISIN] = true
		}
		for _, extra := range in.Supplement() {
			if !existing[extra.ISIN] && extra.MarketValue.IsPositive() {
				existing[extra.ISIN] = true
				out = append(out, extra)
			}
		}
	}

	return out
}

func relativeDiff(got, want decimal.Decimal) float64 {
	if !want.IsPositive() {
		return 0
	}
	diff, _ := got.Sub(want).Abs().Div(want).Float64()
	return diff
}
