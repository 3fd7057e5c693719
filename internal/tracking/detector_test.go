package tracking

import (
	"testing"

	"FabTracker/internal/models"
)

func product(id, lastUpdate string, price models.PriceMap) models.Product {
	return models.Product{
		ID:         id,
		Name:       "Product " + id,
		URL:        "https://www.fab.com/listings/" + id,
		LastUpdate: lastUpdate,
		Price:      price,
	}
}

func TestDetectChangesNewProduct(t *testing.T) {
	previous := []models.Product{product("A", "Jan 1 2024", models.PriceMap{"USD": "$10"})}
	current := []models.Product{
		product("A", "Jan 1 2024", models.PriceMap{"USD": "$10"}),
		product("B", "Feb 1 2024", models.PriceMap{"USD": "$20"}),
	}

	changes := DetectChanges(previous, current, "USD")

	if len(changes.New) != 1 || changes.New[0].Product.ID != "B" {
		t.Fatalf("expected exactly B as new, got %+v", changes.New)
	}
	if len(changes.Updated) != 0 {
		t.Fatalf("expected no updates, got %+v", changes.Updated)
	}
}

func TestDetectChangesIdempotence(t *testing.T) {
	snapshot := []models.Product{
		product("A", "Jan 1 2024", models.PriceMap{"USD": "$10"}),
		product("B", "", nil),
		product("C", "Mar 3 2024", models.PriceMap{models.FlatPriceKey: "$5"}),
	}

	changes := DetectChanges(snapshot, snapshot, "USD")

	if len(changes.New) != 0 || len(changes.Updated) != 0 {
		t.Fatalf("snapshot diffed against itself must be empty, got new=%d updated=%d",
			len(changes.New), len(changes.Updated))
	}
}

func TestDetectChangesDatePriority(t *testing.T) {
	// Both the date token and the price changed; only the date reason may
	// be reported.
	previous := []models.Product{product("A", "Jan 1 2024", models.PriceMap{"USD": "$10"})}
	current := []models.Product{product("A", "Feb 2 2024", models.PriceMap{"USD": "$15"})}

	changes := DetectChanges(previous, current, "USD")

	if len(changes.Updated) != 1 {
		t.Fatalf("expected one update, got %d", len(changes.Updated))
	}
	upd := changes.Updated[0]
	if upd.PreviousUpdate != "Jan 1 2024" {
		t.Errorf("previous_update = %q; want %q", upd.PreviousUpdate, "Jan 1 2024")
	}
	if upd.PreviousPrice != "" {
		t.Errorf("price reason must not be set when the date changed, got %q", upd.PreviousPrice)
	}
}

func TestDetectChangesPriceUpdate(t *testing.T) {
	testCases := []struct {
		name      string
		oldPrice  models.PriceMap
		newPrice  models.PriceMap
		wantCount int
		wantPrev  string
	}{
		{
			name:      "Changed USD Price",
			oldPrice:  models.PriceMap{"USD": "$10"},
			newPrice:  models.PriceMap{"USD": "$12"},
			wantCount: 1,
			wantPrev:  "$10",
		},
		{
			name:      "Legacy Flat Previous",
			oldPrice:  models.PriceMap{models.FlatPriceKey: "$10"},
			newPrice:  models.PriceMap{"USD": "$12"},
			wantCount: 1,
			wantPrev:  "$10",
		},
		{
			name:      "Legacy Flat Equal",
			oldPrice:  models.PriceMap{models.FlatPriceKey: "$12"},
			newPrice:  models.PriceMap{"USD": "$12"},
			wantCount: 0,
		},
		{
			name:      "Unknown Current Price Is Not A Change",
			oldPrice:  models.PriceMap{"USD": "$10"},
			newPrice:  nil,
			wantCount: 0,
		},
		{
			name:      "Other Currency Ignored",
			oldPrice:  models.PriceMap{"USD": "$10", "EUR": "9€"},
			newPrice:  models.PriceMap{"USD": "$10", "EUR": "11€"},
			wantCount: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			previous := []models.Product{product("A", "Jan 1 2024", tc.oldPrice)}
			current := []models.Product{product("A", "Jan 1 2024", tc.newPrice)}

			changes := DetectChanges(previous, current, "USD")

			if len(changes.Updated) != tc.wantCount {
				t.Fatalf("updated count = %d; want %d", len(changes.Updated), tc.wantCount)
			}
			if tc.wantCount == 1 && changes.Updated[0].PreviousPrice != tc.wantPrev {
				t.Errorf("previous_price = %q; want %q", changes.Updated[0].PreviousPrice, tc.wantPrev)
			}
		})
	}
}

func TestDetectChangesRemovedNotReported(t *testing.T) {
	previous := []models.Product{
		product("A", "Jan 1 2024", nil),
		product("B", "Jan 1 2024", nil),
	}
	current := []models.Product{product("A", "Jan 1 2024", nil)}

	changes := DetectChanges(previous, current, "USD")

	if len(changes.New) != 0 || len(changes.Updated) != 0 {
		t.Fatalf("a product missing from the current catalog must not surface as a change, got %+v", changes)
	}
}

func TestDetectChangesScenario(t *testing.T) {
	// Mixed scenario: A's price moved, B is brand new.
	previous := []models.Product{product("A", "Jan 1 2024", models.PriceMap{"USD": "$10"})}
	current := []models.Product{
		product("A", "Jan 1 2024", models.PriceMap{"USD": "$12"}),
		product("B", "Feb 1 2024", nil),
	}

	changes := DetectChanges(previous, current, "USD")

	if len(changes.New) != 1 || changes.New[0].Product.ID != "B" {
		t.Fatalf("new = %+v; want only B", changes.New)
	}
	if len(changes.Updated) != 1 || changes.Updated[0].Product.ID != "A" {
		t.Fatalf("updated = %+v; want only A", changes.Updated)
	}
	if got := changes.Updated[0].PreviousPrice; got != "$10" {
		t.Errorf("previous_price = %q; want $10", got)
	}
	if changes.Updated[0].PreviousUpdate != "" {
		t.Errorf("no date change occurred, previous_update must be empty")
	}
}

func TestDetectChangesEmptyPrevious(t *testing.T) {
	current := []models.Product{
		product("A", "", nil),
		product("B", "", nil),
	}

	changes := DetectChanges(nil, current, "USD")

	if len(changes.New) != 2 {
		t.Fatalf("every product is new against an empty snapshot, got %d", len(changes.New))
	}
}
