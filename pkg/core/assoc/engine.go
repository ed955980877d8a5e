// Package assoc pairs detected identifiers with the numeric candidate most
// likely to be their market value, using independent heuristics.
package assoc

import (
	"fmt"
	"sync"

	"portfolio_extraction/pkg/core/identifier"
	"portfolio_extraction/pkg/core/values"
	"portfolio_extraction/pkg/models"
)

// Strategy names one association heuristic.
type Strategy string

const (
	StrategyPosition Strategy = "position"
	StrategyContext  Strategy = "context"
	StrategyLine     Strategy = "line"
)

// Proposal is one strategy's pairing of an identifier with a value.
type Proposal struct {
	Identifier identifier.Candidate `json:"identifier"`
	Value      values.Candidate     `json:"value"`
	Strategy   Strategy             `json:"strategy"`
	Confidence float64              `json:"confidence"`
}

// StrategyFunc produces at most one proposal for one identifier. It must be
// a pure function over the immutable document inputs; strategies run
// concurrently over the same data.
type StrategyFunc func(id identifier.Candidate, doc *Document, cfg Config) *Proposal

// Document bundles the immutable inputs every strategy reads.
type Document struct {
	Tokens     []models.RawToken
	Candidates []values.Candidate
}

// Config tunes the association heuristics.
type Config struct {
	// ProximityRadius is the maximum 2-D distance (document-space units)
	// the position strategy considers.
	ProximityRadius float64
	// ContextWindow is the token span inspected before and after a token by
	// the context strategy.
	ContextWindow int
	// MinContextSimilarity is the minimum word-set overlap (intersection
	// over union) for a context proposal.
	MinContextSimilarity float64
	// MaxLineDistance is the largest |line(id) - line(value)| the line
	// strategy accepts.
	MaxLineDistance int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ProximityRadius:      50,
		ContextWindow:        5,
		MinContextSimilarity: 0.2,
		MaxLineDistance:      2,
	}
}

// Validate fails fast on malformed tuning values.
func (c Config) Validate() error {
	if c.ProximityRadius <= 0 {
		return fmt.Errorf("proximity radius must be positive, got %v", c.ProximityRadius)
	}
	if c.ContextWindow <= 0 {
		return fmt.Errorf("context window must be positive, got %d", c.ContextWindow)
	}
	if c.MinContextSimilarity < 0 || c.MinContextSimilarity > 1 {
		return fmt.Errorf("context similarity threshold must be in [0,1], got %v", c.MinContextSimilarity)
	}
	if c.MaxLineDistance < 0 {
		return fmt.Errorf("line distance must not be negative, got %d", c.MaxLineDistance)
	}
	return nil
}

// Engine runs an ordered list of strategies and keeps the best proposal per
// identifier.
type Engine struct {
	cfg        Config
	strategies []namedStrategy
}

type namedStrategy struct {
	name Strategy
	fn   StrategyFunc
}

// NewEngine builds an engine with the standard strategy set: position,
// context, line. The config must already be validated.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg: cfg,
		strategies: []namedStrategy{
			{StrategyPosition, positionStrategy},
			{StrategyContext, contextStrategy},
			{StrategyLine, lineStrategy},
		},
	}
}

// Register appends a custom strategy after the standard set.
func (e *Engine) Register(name Strategy, fn StrategyFunc) {
	e.strategies = append(e.strategies, namedStrategy{name, fn})
}

// Associate computes the winning proposal for every identifier. Identifiers
// for which no strategy yields a proposal are dropped silently: unmatched
// identifiers are absent from output, not errors.
//
// Strategies for one identifier run concurrently; they are side-effect-free
// computations over the same immutable document, merged at this join point.
func (e *Engine) Associate(ids []identifier.Candidate, doc *Document) []Proposal {
	var out []Proposal
	for _, id := range ids {
		if best := e.associateOne(id, doc); best != nil {
			out = append(out, *best)
		}
	}
	return out
}

func (e *Engine) associateOne(id identifier.Candidate, doc *Document) *Proposal {
	proposals := make([]*Proposal, len(e.strategies))

	var wg sync.WaitGroup
	for i, s := range e.strategies {
		wg.Add(1)
		go func(i int, s namedStrategy) {
			defer wg.Done()
			if p := s.fn(id, doc, e.cfg); p != nil {
				p.Strategy = s.name
				proposals[i] = p
			}
		}(i, s)
	}
	wg.Wait()

	var best *Proposal
	for _, p := range proposals {
		if p == nil {
			continue
		}
		if best == nil || p.Confidence > best.Confidence {
			best = p
		}
	}
	return best
}
