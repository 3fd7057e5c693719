package fab

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"FabTracker/internal/models"
	"FabTracker/utils"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// parseCatalogHTML extracts the coarse product cards from a rendered seller
// page. Card markup on the grid is loose, so name and price extraction work
// on the surrounding container text rather than fixed selectors.
func parseCatalogHTML(pageHTML, baseURL string) ([]models.CatalogEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("could not parse seller page: %w", err)
	}

	var entries []models.CatalogEntry
	seen := make(map[string]bool)

	doc.Find(`a[href^="/listings/"]`).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		productURL := baseURL + href
		if seen[productURL] {
			return
		}
		seen[productURL] = true

		id := utils.ListingIDFromURL(href)
		if id == "" {
			return
		}

		// The card container is the nearest li, falling back to the
		// enclosing div when the grid is not a list.
		card := link.Closest("li")
		if card.Length() == 0 {
			card = link.Closest("div")
		}
		if card.Length() == 0 {
			card = link
		}

		entries = append(entries, models.CatalogEntry{
			ID:    id,
			Name:  extractCardName(card, link),
			URL:   productURL,
			Price: utils.ExtractPriceText(card.Text()),
			Image: extractCardImage(card, baseURL),
		})
	})

	return entries, nil
}

// extractCardName looks through the card's text elements for the first one
// that reads like a title rather than a price tag.
func extractCardName(card, link *goquery.Selection) string {
	var name string
	card.Find("h2, h3, h4, span, p, div").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := utils.CleanText(el.Text())
		if len(text) <= 3 {
			return true
		}
		if strings.HasPrefix(text, "From") || strings.HasPrefix(text, "€") || strings.HasPrefix(text, "$") || strings.HasPrefix(text, "£") {
			return true
		}
		for _, c := range text[:3] {
			if c >= '0' && c <= '9' {
				return true
			}
		}
		name = text
		return false
	})
	if name == "" {
		name = utils.CleanText(link.Text())
	}
	return name
}

func extractCardImage(card *goquery.Selection, baseURL string) string {
	img := card.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	src, ok := img.Attr("src")
	if !ok || src == "" {
		src, _ = img.Attr("data-src")
	}
	return absoluteURL(src, baseURL)
}

func absoluteURL(src, baseURL string) string {
	switch {
	case src == "":
		return ""
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	case strings.HasPrefix(src, "/"):
		return baseURL + src
	default:
		return src
	}
}

// --- Detail page parsing ---

// parseDetailHTML extracts a DetailBundle from a rendered product page.
// Changelog entries live behind a modal and are handled separately by the
// live fetcher.
func parseDetailHTML(pageHTML, productID string) (*models.DetailBundle, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("could not parse product page: %w", err)
	}

	bundle := &models.DetailBundle{}

	// Main image: og:image meta first, then any CDN-hosted gallery image.
	if content, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && content != "" {
		bundle.Image = content
	}
	if bundle.Image == "" {
		doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src, ok := img.Attr("src")
			if !ok || src == "" {
				src, _ = img.Attr("data-src")
			}
			if src != "" && (strings.Contains(src, "cdn") || strings.Contains(src, "fab.com")) &&
				!strings.Contains(strings.ToLower(src), "avatar") {
				bundle.Image = absoluteURL(src, "")
				return false
			}
			return true
		})
	}

	// Price: the embedded state JSON is the reliable source, the og price
	// meta and raw page text are fallbacks.
	bundle.Price = extractPriceState(pageHTML, productID)
	if len(bundle.Price) == 0 {
		bundle.Price = extractMetaPrice(doc)
	}

	pageText := doc.Text()

	if len(bundle.Price) == 0 {
		bundle.Price = extractTextPrice(pageText)
	}

	bundle.LastUpdate = utils.ExtractDateToken(pageText, "Last update")
	bundle.Published = utils.ExtractDateToken(pageText, "Published")
	bundle.UEVersions = utils.ExtractUEVersions(pageText)

	if raw := utils.ExtractRating(pageText); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			bundle.Rating = &v
		}
	}
	if raw := utils.ExtractReviewsCount(pageText); raw != "" {
		bundle.ReviewsCount, _ = strconv.Atoi(raw)
	}

	bundle.Description = extractDescription(doc)

	return bundle, nil
}

func extractDescription(doc *goquery.Document) string {
	var desc string
	doc.Find("h2").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(h.Text()), "description") {
			return true
		}
		parent := h.Closest("div")
		if parent.Length() == 0 {
			parent = h.Closest("section")
		}
		if parent.Length() > 0 {
			desc = utils.CleanText(parent.Text())
		}
		return false
	})
	if len(desc) > 1000 {
		desc = desc[:1000]
	}
	return desc
}

// --- Embedded price state ---

type priceTier struct {
	Price        json.Number `json:"price"`
	CurrencyCode string      `json:"currencyCode"`
	PriceTierID  string      `json:"priceTierId"`
}

type listingLicense struct {
	Name      string    `json:"name"`
	PriceTier priceTier `json:"priceTier"`
}

type listingState struct {
	Licenses      []listingLicense `json:"licenses"`
	StartingPrice *priceTier       `json:"startingPrice"`
	Price         json.Number      `json:"price"`
}

type stateEntities struct {
	Listings map[string]listingState `json:"listings"`
}

type embeddedState struct {
	InitialState struct {
		Entities stateEntities `json:"entities"`
	} `json:"initialState"`
	Entities stateEntities `json:"entities"`
}

var usdTierRegex = regexp.MustCompile(`_USD_(\d+)_`)

// extractPriceState walks every <script> node looking for the embedded app
// state and pulls the listing's price tiers out of it.
func extractPriceState(pageHTML, productID string) models.PriceMap {
	root, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	var prices models.PriceMap
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if prices != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "script" && n.FirstChild != nil {
			if p := pricesFromStateJSON(n.FirstChild.Data, productID); len(p) > 0 {
				prices = p
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return prices
}

func pricesFromStateJSON(raw, productID string) models.PriceMap {
	var state embeddedState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil
	}
	listings := state.InitialState.Entities.Listings
	if len(listings) == 0 {
		listings = state.Entities.Listings
	}
	listing, ok := listings[productID]
	if !ok {
		return nil
	}

	// Listings with several license tiers get one line per tier, grouped by
	// currency.
	if len(listing.Licenses) > 0 {
		multi := map[string][]string{}
		for _, lic := range listing.Licenses {
			if lic.Name == "" || lic.PriceTier.Price == "" {
				continue
			}
			for cur, val := range pricesFromTier(lic.PriceTier) {
				multi[cur] = append(multi[cur], lic.Name+": "+val)
			}
		}
		if len(multi) > 0 {
			prices := models.PriceMap{}
			for cur, lines := range multi {
				prices[cur] = strings.Join(lines, "\n")
			}
			return prices
		}
	}

	if listing.StartingPrice != nil && listing.StartingPrice.Price != "" {
		return pricesFromTier(*listing.StartingPrice)
	}

	if listing.Price != "" {
		return models.PriceMap{"USD": listing.Price.String() + "$"}
	}
	return nil
}

// pricesFromTier formats a tier's base price and, when the tier id encodes
// the USD amount in cents, the USD price as well.
func pricesFromTier(tier priceTier) models.PriceMap {
	res := models.PriceMap{}
	code := tier.CurrencyCode
	if code == "" {
		code = "USD"
	}
	res[code] = tier.Price.String() + utils.CurrencySymbol(code)

	if m := usdTierRegex.FindStringSubmatch(tier.PriceTierID); len(m) > 1 {
		if cents, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			res["USD"] = strconv.FormatFloat(float64(cents)/100.0, 'f', -1, 64) + "$"
		}
	}
	return res
}

func extractMetaPrice(doc *goquery.Document) models.PriceMap {
	amount, ok := doc.Find(`meta[property="product:price:amount"]`).Attr("content")
	if !ok || amount == "" {
		return nil
	}
	code, ok := doc.Find(`meta[property="product:price:currency"]`).Attr("content")
	if !ok || code == "" {
		code = "USD"
	}
	return models.PriceMap{code: amount + utils.CurrencySymbol(code)}
}

var textPriceRegex = regexp.MustCompile(`[€$][\d.,]+`)

func extractTextPrice(pageText string) models.PriceMap {
	val := textPriceRegex.FindString(pageText)
	if val == "" {
		return nil
	}
	code, symbol := "USD", "$"
	if strings.HasPrefix(val, "€") {
		code, symbol = "EUR", "€"
	}
	return models.PriceMap{code: strings.TrimPrefix(val, symbol) + symbol}
}

// parseChangelogHTML turns the changelog modal content into the stored
// text form: up to three entries, newest first, notes truncated.
func parseChangelogHTML(modalHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(modalHTML))
	if err != nil {
		return ""
	}

	var entries []string
	doc.Find("div.fabkit-Stack-root.fabkit-Stack--column").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		dateTag := item.Find("h3").First()
		content := item.Find("div.fabkit-RichContent-root").First()
		if dateTag.Length() == 0 || content.Length() == 0 {
			return true
		}

		date := utils.CleanText(dateTag.Text())
		notes := utils.CleanText(content.Text())
		if strings.Contains(notes, "No notes provided") {
			entries = append(entries, "**"+date+"**: No notes")
		} else {
			if len(notes) > 200 {
				notes = notes[:200] + "..."
			}
			entries = append(entries, "**"+date+"**\n"+notes)
		}
		return len(entries) < 3
	})

	return strings.Join(entries, "\n\n")
}
