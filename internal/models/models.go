package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// FlatPriceKey is the reserved key a legacy single-string price is stored
// under when an old record is read back from the database. Early versions of
// the tracker stored the price as one formatted string instead of a map of
// currency codes.
const FlatPriceKey = ""

// PriceMap maps a currency code ("USD", "EUR") to a formatted price string.
// A single string may carry several license tiers separated by newlines,
// e.g. "Personal: 39.99$\nProfessional: 199.99$".
type PriceMap map[string]string

// Value implements driver.Valuer so the map is stored as JSON.
func (p PriceMap) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner. Legacy rows hold a bare price string rather
// than a JSON object; those are kept under FlatPriceKey so change detection
// can still compare them against per-currency values.
func (p *PriceMap) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return errors.New("unsupported type for PriceMap")
	}
	if raw == "" {
		*p = nil
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err == nil {
		*p = m
		return nil
	}
	*p = PriceMap{FlatPriceKey: raw}
	return nil
}

// For returns the price string for the requested currency. Legacy flat
// records answer with their single value for any currency. Returns "" when
// the price is unknown.
func (p PriceMap) For(currency string) string {
	if len(p) == 0 {
		return ""
	}
	if v, ok := p[currency]; ok {
		return v
	}
	if v, ok := p[FlatPriceKey]; ok {
		return v
	}
	return ""
}

// IsFlat reports whether the map came from a legacy single-string record.
func (p PriceMap) IsFlat() bool {
	_, ok := p[FlatPriceKey]
	return ok && len(p) == 1
}

// Product holds everything known about one marketplace listing. The id is
// the listing identifier from the product URL and is unique within a
// seller's catalog.
//
// LastUpdate and Published are opaque date tokens exactly as scraped from
// the page. The source formats them per locale, so they are only ever
// compared for string equality, never parsed.
type Product struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	URL          string    `db:"url"`
	Price        PriceMap  `db:"price_json"`
	Image        string    `db:"image"`
	UEVersions   string    `db:"ue_versions"`
	LastUpdate   string    `db:"last_update"`
	Published    string    `db:"published"`
	Changelog    string    `db:"changelog"`
	Description  string    `db:"description"`
	ReviewsCount int       `db:"reviews_count"`
	Rating       *float64  `db:"rating"`
	LastSeen     time.Time `db:"last_seen"`
	FirstSeen    time.Time `db:"first_seen"`
}

// CatalogEntry is the coarse record extracted from a seller's storefront
// grid: enough to identify the listing, nothing more.
type CatalogEntry struct {
	ID    string
	Name  string
	URL   string
	Price string // raw text from the card, e.g. "From $29.99"
	Image string
}

// DetailBundle is the richer record scraped from an individual product page.
// Every field is best-effort; a zero value means the extraction found
// nothing.
type DetailBundle struct {
	Price        PriceMap
	Image        string
	LastUpdate   string
	Published    string
	Description  string
	Changelog    string
	UEVersions   string
	ReviewsCount int
	Rating       *float64
}

// Frequency values for SchedulePolicy.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// MaxDayOfMonth caps monthly schedules so they fire in every month. A policy
// asking for day 29-31 is clamped to 28 rather than rejected.
const MaxDayOfMonth = 28

// Weekdays maps policy day names to time.Weekday.
var Weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// SchedulePolicy describes when one tenant wants its sellers checked.
type SchedulePolicy struct {
	Frequency  string `yaml:"frequency"`
	Weekday    string `yaml:"weekday"`      // weekly only
	DayOfMonth int    `yaml:"day_of_month"` // monthly only, clamped to 28
	Hour       int    `yaml:"hour"`
	Minute     int    `yaml:"minute"`
	Timezone   string `yaml:"timezone"`
}

// Validate rejects misconfigured policies at configuration time so the
// schedule engine never sees invalid state.
func (p SchedulePolicy) Validate() error {
	switch p.Frequency {
	case FrequencyDaily:
	case FrequencyWeekly:
		if _, ok := Weekdays[strings.ToLower(p.Weekday)]; !ok {
			return errors.New("weekly policy needs a valid weekday")
		}
	case FrequencyMonthly:
		if p.DayOfMonth < 1 || p.DayOfMonth > 31 {
			return errors.New("monthly policy needs day_of_month between 1 and 31")
		}
	default:
		return errors.New("frequency must be daily, weekly or monthly")
	}
	if p.Hour < 0 || p.Hour > 23 {
		return errors.New("hour must be between 0 and 23")
	}
	if p.Minute < 0 || p.Minute > 59 {
		return errors.New("minute must be between 0 and 59")
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return errors.New("unknown timezone: " + p.Timezone)
	}
	return nil
}

// ClampedDay returns the effective day-of-month for a monthly policy.
func (p SchedulePolicy) ClampedDay() int {
	if p.DayOfMonth > MaxDayOfMonth {
		return MaxDayOfMonth
	}
	return p.DayOfMonth
}

// TenantConfig holds one consuming community's settings: which sellers it
// tracks, where notifications go and when checks run.
type TenantConfig struct {
	TenantID        string
	Sellers         []string
	Timezone        string
	Language        string
	ChannelNew      int64
	ChannelUpdated  int64
	MentionsEnabled bool
	MentionsNew     []int64
	MentionsUpdated []int64
	Schedule        SchedulePolicy
}

// Seller status markers persisted after each sync attempt.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SellerStatus is the per-seller check record an operator can inspect.
type SellerStatus struct {
	SellerURL  string
	LastCheck  time.Time
	LastStatus string
	LastRunID  string
	Products   int
}
