package vision

import (
	"sort"

	"portfolio_extraction/pkg/models"
)

// Combine merges text-pipeline records with vision-pass records. Where
// both saw the same identifier the higher-confidence record wins, with
// missing quantity, price, name and currency backfilled from the loser.
// Output is sorted by identifier.
func Combine(textRecords, visionRecords []models.SecurityRecord) []models.SecurityRecord {
	byISIN := make(map[string]models.SecurityRecord, len(textRecords))
	for _, rec := range textRecords {
		byISIN[rec.ISIN] = rec
	}

	for _, rec := range visionRecords {
		existing, ok := byISIN[rec.ISIN]
		if !ok {
			byISIN[rec.ISIN] = rec
			continue
		}
		winner, loser := existing, rec
		if rec.Confidence > existing.Confidence {
			winner, loser = rec, existing
		}
		byISIN[rec.ISIN] = backfill(winner, loser)
	}

	out := make([]models.SecurityRecord, 0, len(byISIN))
	for _, rec := range byISIN {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ISIN < out[j].ISIN })
	return out
}

func backfill(winner, loser models.SecurityRecord) models.SecurityRecord {
	if winner.Name == "" {
		winner.Name = loser.Name
	}
	if winner.Quantity == nil {
		winner.Quantity = loser.Quantity
	}
	if winner.UnitPrice == nil {
		winner.UnitPrice = loser.UnitPrice
	}
	if winner.Currency == "" {
		winner.Currency = loser.Currency
	}
	return winner
}
