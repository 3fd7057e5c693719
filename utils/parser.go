package utils

import (
	"regexp"
	"strings"
)

var spaceRegex = regexp.MustCompile(`\s+`)

// CleanText collapses runs of whitespace into single spaces and trims the
// result. Scraped text is full of layout whitespace.
func CleanText(s string) string {
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}

// priceTextRegex finds the first price-looking token in card text, with or
// without a leading "From" and with either symbol position ("$12.99",
// "12,99€").
var priceTextRegex = regexp.MustCompile(`(?i)(?:From\s*)?[€$£]\s*[\d.,]+|[\d.,]+\s*[€$£]`)

// ExtractPriceText pulls the first formatted price out of a blob of card
// text. Returns "" when no price is present ("Free" cards, unloaded tiles).
func ExtractPriceText(s string) string {
	return CleanText(priceTextRegex.FindString(s))
}

// CurrencySymbol returns the display symbol for a currency code, defaulting
// to "$" for anything unrecognized.
func CurrencySymbol(code string) string {
	switch code {
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	default:
		return "$"
	}
}

var ratingRegex = regexp.MustCompile(`(?i)Average rating\s*([\d.]+)\s*out of 5`)

// ExtractRating finds the "Average rating X.X out of 5" token in page text
// and returns the raw numeric string, or "".
func ExtractRating(pageText string) string {
	m := ratingRegex.FindStringSubmatch(pageText)
	if len(m) > 1 {
		return m[1]
	}
	return ""
}

var (
	totalRatingsRegex = regexp.MustCompile(`(?i)total ratings?\s*(\d+)`)
	reviewCountRegex  = regexp.MustCompile(`(?i)(\d+)\s*review`)
)

// ExtractReviewsCount finds the review counter in page text. The page
// renders either "total ratings N" or "N reviews"; both are handled.
func ExtractReviewsCount(pageText string) string {
	if m := totalRatingsRegex.FindStringSubmatch(pageText); len(m) > 1 {
		return m[1]
	}
	if m := reviewCountRegex.FindStringSubmatch(pageText); len(m) > 1 {
		return m[1]
	}
	return ""
}

var (
	lastUpdateRegex = regexp.MustCompile(`(?i)Last\s+update\s*[:\s]*([A-Za-z]+\s+\d{1,2},?\s*\d{4})`)
	publishedRegex  = regexp.MustCompile(`(?i)Published\s*[:\s]*([A-Za-z]+\s+\d{1,2},?\s*\d{4})`)
)

// ExtractDateToken pulls the date string following a "Last update" or
// "Published" label. The token is locale formatted and is never parsed,
// only stored and compared for equality.
func ExtractDateToken(pageText, label string) string {
	re := lastUpdateRegex
	if label == "Published" {
		re = publishedRegex
	}
	m := re.FindStringSubmatch(pageText)
	if len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

var ueVersionsRegex = regexp.MustCompile(`(?i)Supported Unreal Engine Versions\s*([\d.\s–\-and]+)`)

// ExtractUEVersions finds the supported engine version range in page text,
// e.g. "4.22 – 4.27 and 5.0 – 5.7".
func ExtractUEVersions(pageText string) string {
	m := ueVersionsRegex.FindStringSubmatch(pageText)
	if len(m) < 2 {
		return ""
	}
	cand := strings.TrimSpace(m[1])
	if len(cand) < 3 || len(cand) > 50 {
		return ""
	}
	for _, c := range cand {
		if c >= '0' && c <= '9' {
			return cand
		}
	}
	return ""
}
