package app

import (
	"context"
	"errors"
	"log"
	"time"

	"FabTracker/internal/database"
	"FabTracker/internal/models"
	"FabTracker/internal/notify"
	"FabTracker/internal/schedule"
	"FabTracker/internal/scraper/fab"
	"FabTracker/internal/tracking"
	"FabTracker/pkg/config"
)

// App is the main application structure holding all dependencies.
type App struct {
	Config       *config.Config
	Repo         *database.DBRepository
	Orchestrator *tracking.Orchestrator
	Engine       *schedule.Engine
	Sink         notify.Sink

	scraper *fab.FabScraper
}

// New creates a new application instance with all initial settings.
// The browser is launched lazily on the first pass that needs it.
func New(configPath string) *App {
	cfg := config.LoadConfig(configPath)
	repo := database.InitDB(cfg.Database.Path)

	scraper := fab.New(cfg)
	delayMin, delayMax := cfg.Scraper.DelayRange()
	enricher := tracking.NewEnricher(scraper, delayMin, delayMax)

	var sink notify.Sink = notify.LogSink{}
	if cfg.Notify.WebhookURL != "" {
		currency := repo.GetGlobalCurrency()
		if currency == "" {
			currency = cfg.Tracker.DefaultCurrency
		}
		sink = notify.Multi{notify.LogSink{}, notify.NewWebhookSink(cfg.Notify.WebhookURL, currency)}
	}

	return &App{
		Config:       cfg,
		Repo:         repo,
		Orchestrator: tracking.NewOrchestrator(scraper, enricher),
		Engine:       schedule.NewEngine(),
		Sink:         sink,
		scraper:      scraper,
	}
}

// Close releases the browser and the database handle.
func (a *App) Close() {
	if a.scraper != nil {
		a.scraper.Close()
	}
	a.Repo.Close()
}

// RunCheckAll runs a single full pass over every tracked seller, the
// same pass the scheduler loop runs. A pass already in flight rejects
// the trigger.
func (a *App) RunCheckAll(ctx context.Context) error {
	if err := a.Orchestrator.TryBeginPass(); err != nil {
		return err
	}
	defer a.Orchestrator.EndPass()
	return a.checkAllSellers(ctx)
}

// RunScheduler blocks until ctx is cancelled, running a full pass each
// time a tenant's schedule comes due. With no schedules configured it
// idles for the configured poll interval and looks again.
func (a *App) RunScheduler(ctx context.Context) error {
	idle := time.Duration(a.Config.Tracker.IdlePollMin) * time.Minute
	log.Println("--- Scheduler loop started ---")

	for {
		policies, err := a.Repo.GetSchedulePolicies()
		if err != nil {
			log.Printf("Loading schedule policies failed: %v", err)
			policies = nil
		}

		next, err := a.Engine.Next(policies, time.Now())
		wait := idle
		if err == nil {
			wait = time.Until(next)
			log.Printf("Next scheduled check at %s", next.Format(time.RFC3339))
		} else if errors.Is(err, schedule.ErrNothingScheduled) {
			log.Printf("No schedules configured, polling again in %s", idle)
		} else {
			log.Printf("Schedule computation failed: %v", err)
		}
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("--- Scheduler loop stopped ---")
			return ctx.Err()
		case <-timer.C:
		}
		if err != nil {
			continue
		}

		if err := a.RunCheckAll(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Println("--- Scheduler loop stopped ---")
				return err
			}
			log.Printf("Scheduled pass failed: %v", err)
		}
	}
}

// checkAllSellers synchronizes every tracked seller in turn. One
// seller's failure is recorded in its status row and does not stop the
// pass; cancellation does.
func (a *App) checkAllSellers(ctx context.Context) error {
	sellers, err := a.Repo.ListTrackedSellers()
	if err != nil {
		return err
	}
	if len(sellers) == 0 {
		log.Println("No sellers are tracked, nothing to check.")
		return nil
	}

	currency := a.Repo.GetGlobalCurrency()
	if currency == "" {
		currency = a.Config.Tracker.DefaultCurrency
	}

	log.Printf("--- Starting check pass: %d sellers, currency %s ---", len(sellers), currency)
	for i, sellerURL := range sellers {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("Checking seller [%d/%d]: %s", i+1, len(sellers), sellerURL)

		if err := a.checkSeller(ctx, sellerURL, currency); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Printf("Seller check failed for %s: %v", sellerURL, err)
		}
	}
	log.Println("--- Check pass finished ---")
	return nil
}

// checkSeller runs one seller's sync cycle and persists the outcome.
func (a *App) checkSeller(ctx context.Context, sellerURL, currency string) error {
	previous, err := a.Repo.GetSellerProducts(sellerURL)
	if err != nil {
		return err
	}

	progress := func(current, total int, name string) {
		log.Printf("   [%d/%d] %s", current, total, name)
	}

	result, err := a.Orchestrator.SyncSeller(ctx, sellerURL, previous, currency, progress)
	if err != nil {
		if ctx.Err() == nil {
			if statusErr := a.Repo.UpdateSellerStatus(sellerURL, models.StatusError, "", len(previous)); statusErr != nil {
				log.Printf("Recording error status for %s failed: %v", sellerURL, statusErr)
			}
		}
		return err
	}

	if err := a.Repo.ReplaceSellerProducts(sellerURL, result.Products); err != nil {
		return err
	}
	if err := a.Repo.UpdateSellerStatus(sellerURL, models.StatusSuccess, result.RunID, len(result.Products)); err != nil {
		log.Printf("Recording success status for %s failed: %v", sellerURL, err)
	}

	NotifyChanges(ctx, a.Sink, sellerURL, result.Changes)
	return nil
}

// NotifyChanges emits one event per changed product, new products
// strictly before updated ones.
func NotifyChanges(ctx context.Context, sink notify.Sink, sellerURL string, changes tracking.Changes) {
	for _, c := range changes.New {
		if err := sink.Notify(ctx, sellerURL, c.Product, notify.KindNew); err != nil {
			log.Printf("Notification failed for %s: %v", c.Product.URL, err)
		}
	}
	for _, c := range changes.Updated {
		if err := sink.Notify(ctx, sellerURL, c.Product, notify.KindUpdated); err != nil {
			log.Printf("Notification failed for %s: %v", c.Product.URL, err)
		}
	}
}
