package tracking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"FabTracker/internal/models"
	"FabTracker/internal/scraper"

	"github.com/google/uuid"
)

// ErrCatalogFetch marks a seller whose storefront could not be fetched at
// all. The caller records an error status and waits for the next scheduled
// cycle; there is no cross-cycle retry loop.
var ErrCatalogFetch = errors.New("catalog fetch failed")

// ErrSyncInProgress is returned when a full pass is requested while another
// one is still running. Sequential scraping assumptions and shared rate
// limits make interleaved passes unsafe, so the second trigger is rejected
// outright instead of queued.
var ErrSyncInProgress = errors.New("a sync pass is already running")

// ProgressFunc reports enrichment progress: items done, total, and the name
// of the product just processed. Purely informational; errors from UI
// plumbing must not influence the sync, so it returns nothing.
type ProgressFunc func(current, total int, productName string)

// Result is a completed seller synchronization: the fresh snapshot plus the
// classified changes against the previous one.
type Result struct {
	RunID    string
	Products []models.Product
	Changes  Changes
}

// Orchestrator drives full seller synchronization cycles. The busy flag
// gives process-wide mutual exclusion across passes; it belongs to the
// instance, callers share one Orchestrator.
type Orchestrator struct {
	Fetcher  scraper.PageFetcher
	Enricher *Enricher

	busy atomic.Bool
}

// NewOrchestrator wires an orchestrator around a fetcher and enricher.
func NewOrchestrator(fetcher scraper.PageFetcher, enricher *Enricher) *Orchestrator {
	return &Orchestrator{Fetcher: fetcher, Enricher: enricher}
}

// TryBeginPass claims the pass-wide exclusion flag. The caller must call
// EndPass when the pass finishes. Returns ErrSyncInProgress when a pass is
// already running.
func (o *Orchestrator) TryBeginPass() error {
	if !o.busy.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	return nil
}

// EndPass releases the exclusion flag.
func (o *Orchestrator) EndPass() {
	o.busy.Store(false)
}

// Busy reports whether a pass is currently running.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// SyncSeller runs one seller's synchronization cycle:
// fetch catalog -> enrich every entry sequentially -> detect changes.
//
// previous is the persisted snapshot, possibly empty. Per-product detail
// failures are absorbed by the enricher; only a catalog-level failure (or
// cancellation) aborts the cycle. Enrichment is strictly sequential and in
// catalog order.
func (o *Orchestrator) SyncSeller(ctx context.Context, sellerURL string, previous []models.Product, currency string, progress ProgressFunc) (*Result, error) {
	runID := uuid.NewString()
	log.Printf("[%s] Syncing seller %s", runID, sellerURL)

	entries, err := o.Fetcher.FetchCatalog(ctx, sellerURL, currency)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogFetch, sellerURL, err)
	}

	result := &Result{RunID: runID}
	if len(entries) == 0 {
		// A seller with zero listings is a valid result, not a failure.
		return result, nil
	}

	prevByID := make(map[string]*models.Product, len(previous))
	for i := range previous {
		prevByID[previous[i].ID] = &previous[i]
	}

	total := len(entries)
	for i, entry := range entries {
		if progress != nil {
			progress(i+1, total, entry.Name)
		}

		product, err := o.Enricher.Enrich(ctx, entry, prevByID[entry.ID], currency)
		if err != nil {
			// Only cancellation escapes the enricher. The partially
			// enriched batch is discarded, never persisted.
			return nil, err
		}
		result.Products = append(result.Products, product)
	}

	result.Changes = DetectChanges(previous, result.Products, currency)
	log.Printf("[%s] Seller %s: %d products, %d new, %d updated",
		runID, sellerURL, len(result.Products), len(result.Changes.New), len(result.Changes.Updated))
	return result, nil
}
