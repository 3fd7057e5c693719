package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"FabTracker/internal/models"
)

// fakeFetcher scripts catalog and detail responses per URL.
type fakeFetcher struct {
	catalog     []models.CatalogEntry
	catalogErr  error
	details     map[string]*models.DetailBundle
	detailErrs  map[string]error
	detailCalls []string
}

func (f *fakeFetcher) FetchCatalog(ctx context.Context, sellerURL, currency string) ([]models.CatalogEntry, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.catalog, nil
}

func (f *fakeFetcher) FetchDetail(ctx context.Context, productURL, currency string) (*models.DetailBundle, error) {
	f.detailCalls = append(f.detailCalls, productURL)
	if err, ok := f.detailErrs[productURL]; ok {
		return nil, err
	}
	if d, ok := f.details[productURL]; ok {
		return d, nil
	}
	return &models.DetailBundle{}, nil
}

func testEnricher(fetcher *fakeFetcher, now time.Time) *Enricher {
	e := NewEnricher(fetcher, 0, 0)
	e.now = func() time.Time { return now }
	return e
}

func TestEnrichOverlaysDetail(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rating := 4.5
	fetcher := &fakeFetcher{
		details: map[string]*models.DetailBundle{
			"https://www.fab.com/listings/A": {
				Price:        models.PriceMap{"USD": "39.99$"},
				Image:        "https://cdn.fab.com/a.png",
				LastUpdate:   "Jan 12, 2025",
				Published:    "Mar 4, 2024",
				Description:  "A very nice pack",
				UEVersions:   "5.0 – 5.7",
				ReviewsCount: 12,
				Rating:       &rating,
			},
		},
	}
	entry := models.CatalogEntry{
		ID:    "A",
		Name:  "Stylized Pack",
		URL:   "https://www.fab.com/listings/A",
		Price: "From $39.99",
		Image: "https://cdn.fab.com/thumb.png",
	}

	got, err := testEnricher(fetcher, now).Enrich(context.Background(), entry, nil, "USD")
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}

	if got.ID != "A" || got.Name != "Stylized Pack" {
		t.Errorf("catalog identity fields lost: %+v", got)
	}
	if got.Price.For("USD") != "39.99$" {
		t.Errorf("detail price not applied, got %q", got.Price.For("USD"))
	}
	if got.Image != "https://cdn.fab.com/a.png" {
		t.Errorf("detail image should win, got %q", got.Image)
	}
	if got.LastUpdate != "Jan 12, 2025" || got.ReviewsCount != 12 {
		t.Errorf("detail fields missing: %+v", got)
	}
	if !got.FirstSeen.Equal(now) || !got.LastSeen.Equal(now) {
		t.Errorf("first sighting must set both timestamps to now")
	}
}

func TestEnrichImageFallsBackToCatalog(t *testing.T) {
	now := time.Now()
	fetcher := &fakeFetcher{
		details: map[string]*models.DetailBundle{
			"https://www.fab.com/listings/A": {Price: models.PriceMap{"USD": "5$"}},
		},
	}
	entry := models.CatalogEntry{ID: "A", URL: "https://www.fab.com/listings/A", Image: "thumb.png"}

	got, err := testEnricher(fetcher, now).Enrich(context.Background(), entry, nil, "USD")
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if got.Image != "thumb.png" {
		t.Errorf("image = %q; want catalog fallback thumb.png", got.Image)
	}
}

func TestEnrichPreservesFirstSeen(t *testing.T) {
	firstSeen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{
		details: map[string]*models.DetailBundle{
			"https://www.fab.com/listings/A": {},
		},
	}
	previous := &models.Product{ID: "A", FirstSeen: firstSeen, LastSeen: firstSeen}
	entry := models.CatalogEntry{ID: "A", URL: "https://www.fab.com/listings/A"}

	got, err := testEnricher(fetcher, now).Enrich(context.Background(), entry, previous, "USD")
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if !got.FirstSeen.Equal(firstSeen) {
		t.Errorf("first_seen must be immutable, got %v", got.FirstSeen)
	}
	if !got.LastSeen.Equal(now) {
		t.Errorf("last_seen must be bumped to now, got %v", got.LastSeen)
	}
}

func TestEnrichFallsBackOnFetchFailure(t *testing.T) {
	firstSeen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{
		detailErrs: map[string]error{
			"https://www.fab.com/listings/A": errors.New("timeout"),
		},
	}
	previous := &models.Product{
		ID:          "A",
		Name:        "Old Name",
		URL:         "https://www.fab.com/listings/A",
		Price:       models.PriceMap{"USD": "$10"},
		LastUpdate:  "Jan 1 2024",
		Description: "old description",
		FirstSeen:   firstSeen,
		LastSeen:    firstSeen,
	}
	entry := models.CatalogEntry{ID: "A", Name: "New Name", URL: "https://www.fab.com/listings/A"}

	got, err := testEnricher(fetcher, now).Enrich(context.Background(), entry, previous, "USD")
	if err != nil {
		t.Fatalf("per-product fetch failure must not error, got %v", err)
	}

	// The previous record survives intact except for last_seen.
	if got.Price.For("USD") != "$10" || got.LastUpdate != "Jan 1 2024" || got.Description != "old description" {
		t.Errorf("previous record fields lost on fallback: %+v", got)
	}
	if !got.LastSeen.Equal(now) {
		t.Errorf("last_seen = %v; want %v", got.LastSeen, now)
	}
	if !got.FirstSeen.Equal(firstSeen) {
		t.Errorf("first_seen changed on fallback")
	}
}

func TestEnrichFetchFailureWithoutPrevious(t *testing.T) {
	now := time.Now()
	fetcher := &fakeFetcher{
		detailErrs: map[string]error{
			"https://www.fab.com/listings/A": errors.New("timeout"),
		},
	}
	entry := models.CatalogEntry{
		ID:    "A",
		Name:  "Fresh",
		URL:   "https://www.fab.com/listings/A",
		Price: "From $9.99",
	}

	got, err := testEnricher(fetcher, now).Enrich(context.Background(), entry, nil, "USD")
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if got.Name != "Fresh" {
		t.Errorf("coarse fields must survive, got %+v", got)
	}
	if got.Price.For("USD") != "From $9.99" {
		t.Errorf("coarse price must be kept as flat value, got %q", got.Price.For("USD"))
	}
}

func TestEnrichCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{}
	entry := models.CatalogEntry{ID: "A", URL: "https://www.fab.com/listings/A"}

	_, err := testEnricher(fetcher, time.Now()).Enrich(ctx, entry, nil, "USD")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
