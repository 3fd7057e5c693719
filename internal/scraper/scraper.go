package scraper

import (
	"context"

	"FabTracker/internal/models"
)

// PageFetcher defines the behavior a marketplace scraper must provide.
// The sync pipeline only ever talks to this interface, so a scraper for
// another storefront can be dropped in without touching change detection.
type PageFetcher interface {
	// FetchCatalog scrapes a seller's storefront page and returns the coarse
	// catalog entries, in page order. An empty slice with a nil error is a
	// valid zero-product catalog, distinct from a fetch failure.
	FetchCatalog(ctx context.Context, sellerURL, currency string) ([]models.CatalogEntry, error)

	// FetchDetail visits one product page and extracts the detail bundle.
	// The currency selects the locale the page is rendered with.
	FetchDetail(ctx context.Context, productURL, currency string) (*models.DetailBundle, error)
}
