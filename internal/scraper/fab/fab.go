package fab

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"FabTracker/pkg/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"golang.org/x/time/rate"
)

// FabScraper implements scraper.PageFetcher for Fab.com storefronts.
//
// One browser instance is shared, but every fetch opens and closes its own
// page; the sync pipeline is sequential so pages are never used
// concurrently. The limiter paces page loads across a whole pass to stay
// under the site's tolerance.
type FabScraper struct {
	Browser     *rod.Browser
	ScraperConf config.ScraperConfig
	FabConf     config.FabConfig
	DefaultCur  string

	limiter *rate.Limiter
}

// New launches a browser and returns a scraper bound to it.
func New(cfg *config.Config) *FabScraper {
	u := launcher.New().Headless(cfg.Scraper.Headless).MustLaunch()
	browser := rod.New().ControlURL(u).MustConnect()
	return NewWithBrowser(browser, cfg)
}

// NewWithBrowser wraps an already-connected browser. Used by callers that
// manage the browser lifecycle themselves.
func NewWithBrowser(browser *rod.Browser, cfg *config.Config) *FabScraper {
	perMin := cfg.Scraper.RequestsPerMin
	return &FabScraper{
		Browser:     browser,
		ScraperConf: cfg.Scraper,
		FabConf:     cfg.Fab,
		DefaultCur:  cfg.Tracker.DefaultCurrency,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1),
	}
}

// Close shuts the browser down.
func (s *FabScraper) Close() {
	s.Browser.MustClose()
}

// newPage opens a stealth page with the locale and timezone for the wanted
// currency. The caller owns the page and must close it.
func (s *FabScraper) newPage(ctx context.Context, currency string) (*rod.Page, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	page, err := stealth.Page(s.Browser)
	if err != nil {
		return nil, fmt.Errorf("could not open stealth page: %w", err)
	}
	page = page.Context(ctx)

	cur := s.FabConf.CurrencyContext(currency, s.DefaultCur)
	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: cur.Timezone}).Call(page); err != nil {
		log.Printf("WARN: Could not set timezone override: %v", err)
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: cur.Locale}).Call(page); err != nil {
		log.Printf("WARN: Could not set locale override: %v", err)
	}
	if _, err := page.SetExtraHeaders([]string{"Accept-Language", cur.Locale}); err != nil {
		log.Printf("WARN: Could not set Accept-Language header: %v", err)
	}

	return page, nil
}

// pageTimeout is the navigation deadline from config.
func (s *FabScraper) pageTimeout() time.Duration {
	return time.Duration(s.ScraperConf.PageTimeoutSec) * time.Second
}

// withRetry runs fn up to the configured attempt count, sleeping a random
// bounded backoff between attempts. Context cancellation aborts the loop.
func (s *FabScraper) withRetry(ctx context.Context, what string, fn func() error) error {
	retries := s.ScraperConf.RetryCount
	backoffMin, backoffMax := s.ScraperConf.BackoffRange()

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		log.Printf("%s error (attempt %d/%d): %v", what, attempt, retries, lastErr)

		if attempt < retries {
			if err := sleepCtx(ctx, randomDuration(backoffMin, backoffMax)); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", what, retries, lastErr)
}

// scrollToBottom repeatedly scrolls until the document height stops
// growing, which loads the whole infinite-scroll grid.
func (s *FabScraper) scrollToBottom(ctx context.Context, page *rod.Page) error {
	scrollDelay := time.Duration(s.ScraperConf.ScrollDelayMs) * time.Millisecond
	previousHeight := -1.0
	for {
		res, err := page.Eval(`() => document.body.scrollHeight`)
		if err != nil {
			return fmt.Errorf("could not read page height: %w", err)
		}
		height := res.Value.Num()
		if height == previousHeight {
			return nil
		}
		previousHeight = height
		if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return fmt.Errorf("scroll failed: %w", err)
		}
		if err := sleepCtx(ctx, scrollDelay); err != nil {
			return err
		}
	}
}

func randomDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
