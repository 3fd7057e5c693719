package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"FabTracker/internal/models"
)

const (
	colorNew     = 0x2ECC71
	colorUpdated = 0xE67E22
)

// webhookPayload is the Discord-compatible webhook body.
type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Thumbnail   *embedImage  `json:"thumbnail,omitempty"`
	Timestamp   string       `json:"timestamp"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedImage struct {
	URL string `json:"url"`
}

// WebhookSink posts change events as rich embeds to a Discord-compatible
// webhook URL.
type WebhookSink struct {
	URL      string
	Currency string
	Client   *http.Client
}

// NewWebhookSink builds a sink for the given webhook URL. currency picks
// which price entry is shown in the embed.
func NewWebhookSink(url, currency string) *WebhookSink {
	return &WebhookSink{
		URL:      url,
		Currency: currency,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (w *WebhookSink) Notify(ctx context.Context, sellerURL string, product models.Product, kind string) error {
	body, err := json.Marshal(webhookPayload{Embeds: []embed{w.buildEmbed(product, kind)}})
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (w *WebhookSink) buildEmbed(product models.Product, kind string) embed {
	e := embed{
		Title:     product.Name,
		URL:       product.URL,
		Color:     colorUpdated,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if kind == KindNew {
		e.Color = colorNew
	}

	if price := product.Price.For(w.Currency); price != "" {
		e.Fields = append(e.Fields, embedField{Name: "Price", Value: price, Inline: true})
	}
	if product.LastUpdate != "" {
		e.Fields = append(e.Fields, embedField{Name: "Last update", Value: product.LastUpdate, Inline: true})
	}
	if product.Rating != nil {
		e.Fields = append(e.Fields, embedField{
			Name:   "Rating",
			Value:  fmt.Sprintf("%.1f (%d reviews)", *product.Rating, product.ReviewsCount),
			Inline: true,
		})
	}
	if kind == KindUpdated && product.Changelog != "" {
		e.Fields = append(e.Fields, embedField{Name: "Changelog", Value: product.Changelog, Inline: false})
	}
	if product.Image != "" {
		e.Thumbnail = &embedImage{URL: product.Image}
	}
	if e.Title == "" {
		e.Title = product.URL
	}
	return e
}
