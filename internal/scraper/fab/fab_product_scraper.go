package fab

import (
	"context"
	"fmt"
	"log"
	"time"

	"FabTracker/internal/models"
	"FabTracker/internal/scraper"
	"FabTracker/utils"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

var _ scraper.PageFetcher = (*FabScraper)(nil)

// FetchDetail visits a product page and extracts the detail bundle.
func (s *FabScraper) FetchDetail(ctx context.Context, productURL, currency string) (*models.DetailBundle, error) {
	productID := utils.ListingIDFromURL(productURL)
	if productID == "" {
		return nil, fmt.Errorf("not a listing URL: %s", productURL)
	}

	var bundle *models.DetailBundle
	err := s.withRetry(ctx, "Product scraping", func() error {
		page, err := s.newPage(ctx, currency)
		if err != nil {
			return err
		}
		defer page.MustClose()

		log.Printf("Loading product page: %s", productURL)
		if err := page.Timeout(s.pageTimeout()).Navigate(productURL); err != nil {
			return fmt.Errorf("failed to open %s: %w", productURL, err)
		}
		if err := page.Timeout(s.pageTimeout()).WaitDOMStable(time.Second, 0); err != nil {
			return fmt.Errorf("product page never stabilized: %w", err)
		}

		// One scroll to the bottom triggers the lazy-loaded sections.
		if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return fmt.Errorf("scroll failed: %w", err)
		}
		if err := sleepCtx(ctx, time.Second); err != nil {
			return err
		}

		pageHTML, err := page.HTML()
		if err != nil {
			return fmt.Errorf("could not read product page HTML: %w", err)
		}

		bundle, err = parseDetailHTML(pageHTML, productID)
		if err != nil {
			return err
		}

		// The changelog sits behind a modal; failure to open it only costs
		// the changelog field.
		bundle.Changelog = s.scrapeChangelog(page)

		log.Printf("Details retrieved for %s: last_update=%q", productURL, bundle.LastUpdate)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bundle, nil
}

// scrapeChangelog clicks the changelog tab and parses the modal content.
// Best effort: any failure returns "".
func (s *FabScraper) scrapeChangelog(page *rod.Page) string {
	button, err := page.Timeout(3 * time.Second).ElementR("button, a, div[role='tab']", "Changelog")
	if err != nil {
		return ""
	}
	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		log.Printf("Could not click changelog tab: %v", err)
		return ""
	}

	modal, err := page.Timeout(3 * time.Second).Element(".fabkit-Modal-content")
	if err != nil {
		return ""
	}
	if err := modal.WaitVisible(); err != nil {
		return ""
	}

	modalHTML, err := modal.HTML()
	if err != nil {
		log.Printf("Could not read changelog modal: %v", err)
		return ""
	}
	return parseChangelogHTML(modalHTML)
}
