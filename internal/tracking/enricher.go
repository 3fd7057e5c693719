package tracking

import (
	"context"
	"log"
	"math/rand"
	"time"

	"FabTracker/internal/models"
	"FabTracker/internal/scraper"
)

// Enricher turns a coarse catalog entry into a complete Product by visiting
// the product page, with fallback to the previously known record when the
// detail fetch fails. A per-product fetch failure never escapes the
// enricher; availability beats freshness.
type Enricher struct {
	Fetcher scraper.PageFetcher

	// Randomized pause issued before every detail fetch. This is a
	// rate-limiting contract with the marketplace, not a correctness one.
	DelayMin time.Duration
	DelayMax time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewEnricher builds an Enricher around a fetcher and delay bounds.
func NewEnricher(fetcher scraper.PageFetcher, delayMin, delayMax time.Duration) *Enricher {
	return &Enricher{
		Fetcher:  fetcher,
		DelayMin: delayMin,
		DelayMax: delayMax,
		now:      time.Now,
	}
}

// Enrich produces the Product for one catalog entry. previous is the
// record from the last snapshot for this id, or nil for a first sighting.
// Only context cancellation is returned as an error.
func (e *Enricher) Enrich(ctx context.Context, entry models.CatalogEntry, previous *models.Product, currency string) (models.Product, error) {
	if err := e.delay(ctx); err != nil {
		return models.Product{}, err
	}

	now := e.now()

	detail, err := e.Fetcher.FetchDetail(ctx, entry.URL, currency)
	if err != nil {
		if ctx.Err() != nil {
			return models.Product{}, ctx.Err()
		}
		log.Printf("Detail fetch failed for %s, keeping previous record: %v", entry.URL, err)
		return fallbackProduct(entry, previous, now), nil
	}

	return mergeDetail(entry, detail, previous, now), nil
}

// mergeDetail overlays the catalog entry with the scraped detail bundle.
// Explicit field-by-field rules; returns a fresh value, mutates nothing.
func mergeDetail(entry models.CatalogEntry, detail *models.DetailBundle, previous *models.Product, now time.Time) models.Product {
	p := models.Product{
		ID:           entry.ID,
		Name:         entry.Name,
		URL:          entry.URL,
		Price:        detail.Price,
		Image:        detail.Image,
		UEVersions:   detail.UEVersions,
		LastUpdate:   detail.LastUpdate,
		Published:    detail.Published,
		Changelog:    detail.Changelog,
		Description:  detail.Description,
		ReviewsCount: detail.ReviewsCount,
		Rating:       detail.Rating,
		LastSeen:     now,
		FirstSeen:    now,
	}
	if p.Image == "" {
		p.Image = entry.Image
	}
	if len(p.Price) == 0 && entry.Price != "" {
		p.Price = models.PriceMap{models.FlatPriceKey: entry.Price}
	}
	if previous != nil {
		p.FirstSeen = previous.FirstSeen
	}
	return p
}

// fallbackProduct is used when the detail fetch fails: the previous record
// wins over the coarse catalog fields, with only last_seen bumped. Without
// a previous record the coarse fields are all we have.
func fallbackProduct(entry models.CatalogEntry, previous *models.Product, now time.Time) models.Product {
	if previous == nil {
		p := models.Product{
			ID:        entry.ID,
			Name:      entry.Name,
			URL:       entry.URL,
			Image:     entry.Image,
			LastSeen:  now,
			FirstSeen: now,
		}
		if entry.Price != "" {
			p.Price = models.PriceMap{models.FlatPriceKey: entry.Price}
		}
		return p
	}

	p := *previous
	if p.Name == "" {
		p.Name = entry.Name
	}
	if p.URL == "" {
		p.URL = entry.URL
	}
	if p.Image == "" {
		p.Image = entry.Image
	}
	p.LastSeen = now
	return p
}

// delay sleeps a random duration inside the configured bounds, honoring
// cancellation.
func (e *Enricher) delay(ctx context.Context) error {
	d := e.DelayMin
	if e.DelayMax > e.DelayMin {
		d += time.Duration(rand.Int63n(int64(e.DelayMax - e.DelayMin)))
	}
	if d <= 0 {
		// Still yield to cancellation even with delays disabled.
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
