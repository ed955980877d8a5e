// Package pipeline wires the extraction stages end to end:
// tokens -> identifiers & value candidates -> associations -> validated
// records -> reconciled portfolio.
package pipeline

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"portfolio_extraction/pkg/core/assoc"
	"portfolio_extraction/pkg/core/config"
	"portfolio_extraction/pkg/core/identifier"
	"portfolio_extraction/pkg/core/reconcile"
	"portfolio_extraction/pkg/core/tokenize"
	"portfolio_extraction/pkg/core/validate"
	"portfolio_extraction/pkg/core/values"
	"portfolio_extraction/pkg/models"
)

// Observer receives stage-level progress messages. The core never logs on
// its own; logging is the caller's concern.
type Observer func(stage, message string)

// Request is one document extraction invocation. Either Tokens (positional
// mode) or Text (flat mode, tokenized by whitespace and lines) must be set;
// Tokens wins when both are present.
type Request struct {
	DocumentID       string
	Tokens           []models.RawToken
	Text             string
	ExpectedTotal    *decimal.Decimal
	KnownCorrections map[string]decimal.Decimal
}

// Orchestrator runs the full pipeline for single documents. It keeps no
// state between runs; a single instance is safe for concurrent documents.
type Orchestrator struct {
	cfg      config.Config
	engine   *assoc.Engine
	recon    *reconcile.Engine
	observer Observer
}

// New constructs an orchestrator, failing fast on malformed configuration.
func New(cfg config.Config, observer Observer) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	if observer == nil {
		observer = func(string, string) {}
	}
	return &Orchestrator{
		cfg:      cfg,
		engine:   assoc.NewEngine(cfg.Association),
		recon:    reconcile.NewEngine(cfg.Reconcile),
		observer: observer,
	}, nil
}

// Run executes the pipeline over one document. Document content is
// untrusted input and never causes an error: empty or non-financial text
// yields an empty result with accuracy 0.
func (o *Orchestrator) Run(req Request) models.PortfolioResult {
	docID := req.DocumentID
	if docID == "" {
		docID = uuid.New().String()
	}

	tokens := req.Tokens
	if len(tokens) == 0 && req.Text != "" {
		tokens = tokenize.Tokens(req.Text)
	}
	if len(tokens) == 0 {
		o.observer("input", fmt.Sprintf("doc %s: no tokens, returning empty result", docID))
		return models.PortfolioResult{DocumentID: docID, TotalValue: decimal.Zero}
	}

	ids := identifier.Detect(tokens, o.cfg.Identifier)
	o.observer("identifiers", fmt.Sprintf("doc %s: %d identifier candidates", docID, len(ids)))
	if len(ids) == 0 {
		return models.PortfolioResult{DocumentID: docID, TotalValue: decimal.Zero, ExpectedTotal: req.ExpectedTotal}
	}

	doc := &assoc.Document{
		Tokens:     tokens,
		Candidates: values.Extract(tokens, o.cfg.Values),
	}
	o.observer("values", fmt.Sprintf("doc %s: %d value candidates", docID, len(doc.Candidates)))

	proposals := o.engine.Associate(ids, doc)
	o.observer("associations", fmt.Sprintf("doc %s: %d of %d identifiers associated", docID, len(proposals), len(ids)))

	records := validate.Records(proposals, doc, o.cfg.Validation)
	records = dedupe(records)
	o.observer("validation", fmt.Sprintf("doc %s: %d records passed validation", docID, len(records)))

	result := o.recon.Run(reconcile.Input{
		Records:          records,
		ExpectedTotal:    req.ExpectedTotal,
		KnownCorrections: req.KnownCorrections,
		FixCurrency:      o.currencyFixer(),
		Supplement:       o.supplementPass(ids, doc, records),
	})
	o.observer("reconcile", fmt.Sprintf("doc %s: total %s, accuracy %.4f after %d iterations",
		docID, result.Total, result.Accuracy, result.Iterations))

	return models.PortfolioResult{
		DocumentID:    docID,
		Records:       result.Records,
		TotalValue:    result.Total,
		ExpectedTotal: req.ExpectedTotal,
		Accuracy:      result.Accuracy,
	}
}

// dedupe enforces the uniqueness invariant: one record per identifier,
// keeping the highest-confidence source, and drops non-positive values.
// Output order is deterministic so identical runs yield identical results.
func dedupe(records []models.SecurityRecord) []models.SecurityRecord {
	best := make(map[string]models.SecurityRecord, len(records))
	for _, r := range records {
		if !r.MarketValue.IsPositive() {
			continue
		}
		if cur, ok := best[r.ISIN]; !ok || r.Confidence > cur.Confidence {
			best[r.ISIN] = r
		}
	}
	out := make([]models.SecurityRecord, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ISIN < out[j].ISIN })
	return out
}

// currencyFixer retries fixed-rate conversion for records still in a
// foreign currency, for the reconciliation engine's currency pass.
func (o *Orchestrator) currencyFixer() reconcile.CurrencyFixer {
	return func(rec models.SecurityRecord) (models.SecurityRecord, bool) {
		if rec.Currency == o.cfg.Validation.ReportingCurrency {
			return rec, false
		}
		fixed := validate.Convert(rec, o.cfg.Validation)
		return fixed, fixed.Currency != rec.Currency
	}
}

// supplementPass re-associates the identifiers that produced no record,
// with relaxed proximity and a lenient acceptance threshold. Best-effort:
// it may find nothing.
func (o *Orchestrator) supplementPass(ids []identifier.Candidate, doc *assoc.Document, existing []models.SecurityRecord) reconcile.SupplementFunc {
	return func() []models.SecurityRecord {
		matched := make(map[string]bool, len(existing))
		for _, r := range existing {
			matched[r.ISIN] = true
		}
		var missing []identifier.Candidate
		for _, id := range ids {
			if !matched[id.Code] {
				missing = append(missing, id)
			}
		}
		if len(missing) == 0 {
			return nil
		}

		relaxed := o.cfg.Association
		relaxed.ProximityRadius *= 2
		relaxed.MaxLineDistance *= 2
		relaxed.MinContextSimilarity /= 2

		vcfg := o.cfg.Validation
		vcfg.Strictness = validate.StrictnessLenient
		vcfg.MinScore = 0.2

		proposals := assoc.NewEngine(relaxed).Associate(missing, doc)
		return dedupe(validate.Records(proposals, doc, vcfg))
	}
}
