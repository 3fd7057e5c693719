// Package schedule computes when the next full seller check is due,
// given the schedule policies of every tenant. One global pass serves
// all tenants whose time has come, so the engine reduces the policy set
// to a single earliest instant.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"FabTracker/internal/models"
)

// ErrNothingScheduled means no tenant has a schedule configured. The
// caller should poll again after its idle interval rather than spin.
var ErrNothingScheduled = errors.New("no schedule policies configured")

// Engine turns schedule policies into concrete next-run instants.
type Engine struct{}

// NewEngine returns a ready Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Next returns the earliest next due instant across all policies,
// evaluated relative to now. Policies are assumed validated; an
// unparseable one is skipped rather than failing the whole set.
func (e *Engine) Next(policies []models.SchedulePolicy, now time.Time) (time.Time, error) {
	var earliest time.Time
	for _, p := range policies {
		next, err := e.nextFor(p, now)
		if err != nil {
			continue
		}
		if earliest.IsZero() || next.Before(earliest) {
			earliest = next
		}
	}
	if earliest.IsZero() {
		return time.Time{}, ErrNothingScheduled
	}
	return earliest, nil
}

// nextFor computes one policy's next occurrence in its own timezone.
func (e *Engine) nextFor(p models.SchedulePolicy, now time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("policy timezone %q: %w", p.Timezone, err)
	}
	local := now.In(loc)

	switch p.Frequency {
	case models.FrequencyDaily:
		return nextDaily(local, p.Hour, p.Minute), nil
	case models.FrequencyWeekly:
		wd, ok := models.Weekdays[strings.ToLower(p.Weekday)]
		if !ok {
			return time.Time{}, fmt.Errorf("unknown weekday %q", p.Weekday)
		}
		return nextWeekly(local, wd, p.Hour, p.Minute), nil
	case models.FrequencyMonthly:
		return nextMonthly(local, p.ClampedDay(), p.Hour, p.Minute), nil
	default:
		return time.Time{}, fmt.Errorf("unknown frequency %q", p.Frequency)
	}
}

func nextDaily(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func nextWeekly(now time.Time, weekday time.Weekday, hour, minute int) time.Time {
	days := (int(weekday) - int(now.Weekday()) + 7) % 7
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()).
		AddDate(0, 0, days)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func nextMonthly(now time.Time, day, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), day, hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		// time.Date normalizes overflow, but day is capped at 28 so
		// every month has the target date.
		next = time.Date(now.Year(), now.Month()+1, day, hour, minute, 0, 0, now.Location())
	}
	return next
}
