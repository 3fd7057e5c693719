package schedule

import (
	"errors"
	"testing"
	"time"

	"FabTracker/internal/models"
)

// Tuesday, 2025-07-15 10:00 UTC.
var baseNow = time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)

func mustNext(t *testing.T, policies []models.SchedulePolicy, now time.Time) time.Time {
	t.Helper()
	next, err := NewEngine().Next(policies, now)
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	return next
}

func TestNextDaily(t *testing.T) {
	tests := []struct {
		name   string
		hour   int
		minute int
		want   time.Time
	}{
		{"later today", 18, 30, time.Date(2025, 7, 15, 18, 30, 0, 0, time.UTC)},
		{"already passed rolls to tomorrow", 9, 0, time.Date(2025, 7, 16, 9, 0, 0, 0, time.UTC)},
		{"exactly now rolls to tomorrow", 10, 0, time.Date(2025, 7, 16, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.SchedulePolicy{Frequency: models.FrequencyDaily, Hour: tt.hour, Minute: tt.minute, Timezone: "UTC"}
			got := mustNext(t, []models.SchedulePolicy{p}, baseNow)
			if !got.Equal(tt.want) {
				t.Errorf("next = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestNextWeekly(t *testing.T) {
	tests := []struct {
		name    string
		weekday string
		hour    int
		want    time.Time
	}{
		{"later this week", "friday", 12, time.Date(2025, 7, 18, 12, 0, 0, 0, time.UTC)},
		{"today later", "tuesday", 20, time.Date(2025, 7, 15, 20, 0, 0, 0, time.UTC)},
		{"today passed rolls a full week", "tuesday", 8, time.Date(2025, 7, 22, 8, 0, 0, 0, time.UTC)},
		{"earlier weekday wraps", "monday", 9, time.Date(2025, 7, 21, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.SchedulePolicy{Frequency: models.FrequencyWeekly, Weekday: tt.weekday, Hour: tt.hour, Timezone: "UTC"}
			got := mustNext(t, []models.SchedulePolicy{p}, baseNow)
			if !got.Equal(tt.want) {
				t.Errorf("next = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestNextMonthly(t *testing.T) {
	tests := []struct {
		name string
		day  int
		now  time.Time
		want time.Time
	}{
		{
			"later this month", 20, baseNow,
			time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			"passed rolls to next month", 10, baseNow,
			time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			// A short month can never miss the target day.
			"day 31 clamps to 28", 31,
			time.Date(2025, 4, 29, 10, 0, 0, 0, time.UTC),
			time.Date(2025, 5, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			"clamp across february", 30,
			time.Date(2026, 1, 29, 10, 0, 0, 0, time.UTC),
			time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.SchedulePolicy{Frequency: models.FrequencyMonthly, DayOfMonth: tt.day, Timezone: "UTC"}
			got := mustNext(t, []models.SchedulePolicy{p}, tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("next = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestNextEarliestAcrossPolicies(t *testing.T) {
	// Daily 9:00 has passed today, so it is due tomorrow morning; the
	// weekly policy is three days out. The daily one wins.
	daily := models.SchedulePolicy{Frequency: models.FrequencyDaily, Hour: 9, Timezone: "UTC"}
	weekly := models.SchedulePolicy{Frequency: models.FrequencyWeekly, Weekday: "friday", Hour: 9, Timezone: "UTC"}

	got := mustNext(t, []models.SchedulePolicy{weekly, daily}, baseNow)
	want := time.Date(2025, 7, 16, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("next = %v; want daily occurrence %v", got, want)
	}
}

func TestNextTimezoneAware(t *testing.T) {
	// 10:00 UTC is 06:00 in New York, so a 07:00 New York daily policy
	// is still ahead today.
	p := models.SchedulePolicy{Frequency: models.FrequencyDaily, Hour: 7, Timezone: "America/New_York"}
	got := mustNext(t, []models.SchedulePolicy{p}, baseNow)

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	want := time.Date(2025, 7, 15, 7, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("next = %v; want %v", got, want)
	}
}

func TestNextNothingScheduled(t *testing.T) {
	if _, err := NewEngine().Next(nil, baseNow); !errors.Is(err, ErrNothingScheduled) {
		t.Fatalf("expected ErrNothingScheduled, got %v", err)
	}
}

func TestNextSkipsBrokenPolicy(t *testing.T) {
	broken := models.SchedulePolicy{Frequency: models.FrequencyDaily, Hour: 9, Timezone: "Not/AZone"}
	ok := models.SchedulePolicy{Frequency: models.FrequencyDaily, Hour: 18, Timezone: "UTC"}

	got := mustNext(t, []models.SchedulePolicy{broken, ok}, baseNow)
	want := time.Date(2025, 7, 15, 18, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("next = %v; want %v from the valid policy", got, want)
	}

	if _, err := NewEngine().Next([]models.SchedulePolicy{broken}, baseNow); !errors.Is(err, ErrNothingScheduled) {
		t.Fatalf("only broken policies must report nothing scheduled, got %v", err)
	}
}
