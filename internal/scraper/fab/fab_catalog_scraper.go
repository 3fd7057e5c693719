package fab

import (
	"context"
	"fmt"
	"log"
	"time"

	"FabTracker/internal/models"
)

// FetchCatalog scrapes a seller storefront and returns its catalog entries
// in page order. Returns an empty slice for a seller with no listings;
// a non-nil error means the page itself could not be fetched.
func (s *FabScraper) FetchCatalog(ctx context.Context, sellerURL, currency string) ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry

	err := s.withRetry(ctx, "Seller scraping", func() error {
		page, err := s.newPage(ctx, currency)
		if err != nil {
			return err
		}
		defer page.MustClose()

		log.Printf("Loading seller page: %s", sellerURL)
		if err := page.Timeout(s.pageTimeout()).Navigate(sellerURL); err != nil {
			return fmt.Errorf("failed to open %s: %w", sellerURL, err)
		}
		if err := page.Timeout(s.pageTimeout()).WaitDOMStable(time.Second, 0); err != nil {
			return fmt.Errorf("seller page never stabilized: %w", err)
		}

		// The grid is an infinite scroll; keep scrolling until it stops
		// growing so every listing is in the DOM.
		if err := s.scrollToBottom(ctx, page); err != nil {
			return err
		}

		html, err := page.HTML()
		if err != nil {
			return fmt.Errorf("could not read seller page HTML: %w", err)
		}

		entries, err = parseCatalogHTML(html, s.FabConf.BaseURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		log.Printf("No products found on %s", sellerURL)
		return []models.CatalogEntry{}, nil
	}
	log.Printf("Found %d products on %s", len(entries), sellerURL)
	return entries, nil
}
