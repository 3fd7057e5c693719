package utils

import "strings"

// UniqueStrings returns a new slice with duplicate entries removed,
// preserving first-seen order.
func UniqueStrings(slice []string) []string {
	keys := make(map[string]bool)
	uniqueSlice := []string{}
	for _, entry := range slice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			uniqueSlice = append(uniqueSlice, entry)
		}
	}
	return uniqueSlice
}

// ExtractSellerName pulls the seller name out of a storefront URL:
// "https://www.fab.com/sellers/GameAssetFactory" -> "GameAssetFactory".
// Returns "" when the URL is not a seller page.
func ExtractSellerName(url string) string {
	_, after, found := strings.Cut(url, "/sellers/")
	if !found {
		return ""
	}
	name := strings.TrimSuffix(after, "/")
	name, _, _ = strings.Cut(name, "?")
	name, _, _ = strings.Cut(name, "/")
	return name
}

// NormalizeSellerURL rewrites any seller page address into its canonical
// form. Returns "" for URLs that do not point at a seller page.
func NormalizeSellerURL(baseURL, url string) string {
	name := ExtractSellerName(url)
	if name == "" {
		return ""
	}
	return strings.TrimSuffix(baseURL, "/") + "/sellers/" + name
}

// ListingIDFromURL extracts the stable listing identifier from a product
// URL path, e.g. "/listings/abc-123?x=1" -> "abc-123".
func ListingIDFromURL(href string) string {
	_, after, found := strings.Cut(href, "/listings/")
	if !found {
		return ""
	}
	id, _, _ := strings.Cut(after, "?")
	return strings.TrimSuffix(id, "/")
}
