// Package notify delivers change events produced by a seller sync.
// Sinks only transport single events; the new-before-updated ordering
// is owned by the pass driver that calls them.
package notify

import (
	"context"
	"log"

	"FabTracker/internal/models"
)

// Kind of change a notification reports.
const (
	KindNew     = "new"
	KindUpdated = "updated"
)

// Sink receives one event per changed product.
type Sink interface {
	Notify(ctx context.Context, sellerURL string, product models.Product, kind string) error
}

// LogSink writes events to the process log. It is the default sink when
// no webhook is configured and never fails.
type LogSink struct{}

func (LogSink) Notify(_ context.Context, sellerURL string, product models.Product, kind string) error {
	log.Printf("[%s] %s: %s (%s)", kind, sellerURL, product.Name, product.URL)
	return nil
}

// Multi fans one event out to several sinks. Delivery failures are
// logged and swallowed so one broken sink cannot starve the others.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, sellerURL string, product models.Product, kind string) error {
	for _, s := range m {
		if err := s.Notify(ctx, sellerURL, product, kind); err != nil {
			log.Printf("Notification delivery failed: %v", err)
		}
	}
	return nil
}
