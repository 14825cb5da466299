package importer

import (
	"github.com/tally-dev/tally/internal/model"
)

// dedupeKey identifies a transaction independent of its placeholder ID.
type dedupeKey struct {
	date        string
	amount      string
	description string
	user        string
}

func keyOf(t model.Transaction) dedupeKey {
	return dedupeKey{
		date:        t.Date.Format("2006-01-02"),
		amount:      t.Amount.StringFixed(2),
		description: t.Description,
		user:        t.UserName,
	}
}

// Deduplicate drops incoming transactions already present in existing, so
// re-importing an overlapping statement does not double count. Duplicates
// within incoming are kept as long as existing holds fewer copies: two
// identical coffees on one day are two transactions.
func Deduplicate(existing, incoming []model.Transaction) (fresh []model.Transaction, skipped int) {
	seen := make(map[dedupeKey]int, len(existing))
	for _, t := range existing {
		seen[keyOf(t)]++
	}

	for _, t := range incoming {
		k := keyOf(t)
		if seen[k] > 0 {
			seen[k]--
			skipped++
			continue
		}
		fresh = append(fresh, t)
	}
	return fresh, skipped
}
