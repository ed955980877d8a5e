package assoc

import (
	"math"
	"strings"

	"portfolio_extraction/pkg/core/identifier"
	"portfolio_extraction/pkg/core/values"
	"portfolio_extraction/pkg/models"
)

// positionStrategy selects the market-value candidate nearest in 2-D
// document space. Among candidates inside the radius it prefers the
// numerically largest plausible one: the market value is typically the
// largest number printed near a security's identifier, larger than the
// quantity, price or percentage fields of the same row. Confidence starts at
// the candidate's base classification confidence and decays with distance.
func positionStrategy(id identifier.Candidate, doc *Document, cfg Config) *Proposal {
	if !id.Source.HasPosition() {
		return nil
	}

	var best *values.Candidate
	var bestDist float64
	for i := range doc.Candidates {
		v := &doc.Candidates[i]
		if v.Guess != values.GuessMarketValue || !v.Source.HasPosition() {
			continue
		}
		// Coordinates only compare within a page; a value printed at a
		// similar x/y on another page is unrelated.
		if v.Source.Page != id.Source.Page {
			continue
		}
		dist := distance(id.Source, v.Source)
		if dist > cfg.ProximityRadius {
			continue
		}
		if best == nil || v.Parsed.GreaterThan(best.Parsed) {
			best = v
			bestDist = dist
		}
	}
	if best == nil {
		return nil
	}

	decay := 1 - 0.5*(bestDist/cfg.ProximityRadius)
	return &Proposal{
		Identifier: id,
		Value:      *best,
		Confidence: clamp(best.BaseConfidence() * decay),
	}
}

// contextStrategy compares the lexical window around the identifier against
// the window around each candidate using word-set intersection over union.
func contextStrategy(id identifier.Candidate, doc *Document, cfg Config) *Proposal {
	idWindow := wordSet(doc.Tokens, id.TokenIndex, cfg.ContextWindow)
	if len(idWindow) == 0 {
		return nil
	}

	var best *values.Candidate
	var bestSim float64
	for i := range doc.Candidates {
		v := &doc.Candidates[i]
		if v.Guess != values.GuessMarketValue && v.Guess != values.GuessUnknown {
			continue
		}
		sim := jaccard(idWindow, wordSet(doc.Tokens, v.TokenIndex, cfg.ContextWindow))
		if sim < cfg.MinContextSimilarity {
			continue
		}
		if best == nil || sim > bestSim {
			best = v
			bestSim = sim
		}
	}
	if best == nil {
		return nil
	}

	return &Proposal{
		Identifier: id,
		Value:      *best,
		Confidence: clamp(best.BaseConfidence() * (0.6 + 0.4*bestSim)),
	}
}

// lineStrategy picks the candidate printed on the same or a nearby source
// line. Ties break toward classification specificity, then toward the
// larger value on the same distance.
func lineStrategy(id identifier.Candidate, doc *Document, cfg Config) *Proposal {
	if !id.Source.HasLine() {
		return nil
	}
	idLine := *id.Source.Line

	var best *values.Candidate
	var bestDist int
	for i := range doc.Candidates {
		v := &doc.Candidates[i]
		if !v.Source.HasLine() {
			continue
		}
		if v.Guess == values.GuessYear || v.Guess == values.GuessPercentage {
			continue
		}
		dist := abs(idLine - *v.Source.Line)
		if dist > cfg.MaxLineDistance {
			continue
		}
		if best == nil || betterOnLine(v, dist, best, bestDist) {
			best = v
			bestDist = dist
		}
	}
	if best == nil {
		return nil
	}

	conf := best.BaseConfidence() - 0.1*float64(bestDist)
	if best.Guess == values.GuessMarketValue && bestDist == 0 {
		conf += 0.1
	}
	return &Proposal{
		Identifier: id,
		Value:      *best,
		Confidence: clamp(conf),
	}
}

// betterOnLine decides whether candidate a at line distance da beats the
// current best b at db. Closer lines win; on the same line the market-value
// class wins, then the larger amount.
func betterOnLine(a *values.Candidate, da int, b *values.Candidate, db int) bool {
	if da != db {
		return da < db
	}
	aMarket := a.Guess == values.GuessMarketValue
	bMarket := b.Guess == values.GuessMarketValue
	if aMarket != bMarket {
		return aMarket
	}
	return a.Parsed.GreaterThan(b.Parsed)
}

func distance(a, b models.RawToken) float64 {
	dx := *a.X - *b.X
	dy := *a.Y - *b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func wordSet(tokens []models.RawToken, idx, window int) map[string]bool {
	lo := idx - window
	if lo < 0 {
		lo = 0
	}
	hi := idx + window + 1
	if hi > len(tokens) {
		hi = len(tokens)
	}
	set := make(map[string]bool)
	for i := lo; i < hi; i++ {
		if i == idx {
			continue
		}
		w := strings.ToLower(strings.TrimSpace(tokens[i].Text))
		if w != "" {
			set[w] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
