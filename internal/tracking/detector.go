package tracking

import "FabTracker/internal/models"

// Change kinds attached to detected products.
const (
	ChangeNew     = "new"
	ChangeUpdated = "updated"
)

// Change wraps a product together with why it was reported. Exactly one of
// PreviousUpdate/PreviousPrice is meaningful for an updated product: a date
// change always wins over a price change, so only one reason is ever
// attached per product per sync.
type Change struct {
	Product        models.Product
	Kind           string
	PreviousUpdate string // set when the last_update token changed
	PreviousPrice  string // set when the compared currency's price changed
}

// Changes is the result of one detection run, in catalog order.
type Changes struct {
	New     []Change
	Updated []Change
}

// DetectChanges compares a previous snapshot against the current one and
// classifies every current product as new, updated or unchanged.
//
// It is a pure function: no state, no clock, no side effects. Products that
// exist only in previous are deliberately not reported — a listing that
// failed to scrape this pass must not be announced as delisted.
func DetectChanges(previous, current []models.Product, currency string) Changes {
	oldByID := make(map[string]models.Product, len(previous))
	for _, p := range previous {
		oldByID[p.ID] = p
	}

	var changes Changes
	for _, cur := range current {
		old, known := oldByID[cur.ID]
		if !known {
			changes.New = append(changes.New, Change{Product: cur, Kind: ChangeNew})
			continue
		}

		// Date token change takes priority over price comparison. The
		// tokens are opaque locale-formatted strings; only equality is
		// meaningful.
		if cur.LastUpdate != "" && cur.LastUpdate != old.LastUpdate {
			changes.Updated = append(changes.Updated, Change{
				Product:        cur,
				Kind:           ChangeUpdated,
				PreviousUpdate: old.LastUpdate,
			})
			continue
		}

		// Price comparison for the requested currency. For() falls back to
		// the flat value on legacy single-string records on either side.
		newVal := cur.Price.For(currency)
		oldVal := old.Price.For(currency)
		if newVal != "" && newVal != oldVal {
			changes.Updated = append(changes.Updated, Change{
				Product:       cur,
				Kind:          ChangeUpdated,
				PreviousPrice: oldVal,
			})
		}
	}
	return changes
}
