package domain

import (
	"math"
	"time"
)

const DefaultHoursPerDay = 8.0

// EntryHours is max(0, (timeOut-timeIn) - breakTime/60). Missing times yield 0.
func EntryHours(timeIn, timeOut *time.Time, breakMinutes int) float64 {
	if timeIn == nil || timeOut == nil {
		return 0
	}
	h := timeOut.Sub(*timeIn).Hours() - float64(breakMinutes)/60
	return roundHours(math.Max(0, h))
}

// RecomputeTotals sums the hours of a card's entries.
func RecomputeTotals(entries []TimeEntry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Hours
	}
	return roundHours(total)
}

// roundHours keeps two decimals so float sums of quarter hours stay exact for comparison.
func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WorkDayCount counts Monday..Friday days in the inclusive range, skipping any
// date present in holidays.
func WorkDayCount(start, end time.Time, holidays []time.Time) int {
	skip := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		skip[h.Format("2006-01-02")] = struct{}{}
	}

	count := 0
	for d := Day(start); !d.After(Day(end)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if _, ok := skip[d.Format("2006-01-02")]; ok {
			continue
		}
		count++
	}
	return count
}

// payPeriodAnchor is the Monday of ISO week 1 of 2024. Counting fortnights from
// it keeps periods contiguous across 53-week years.
var payPeriodAnchor = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// PayPeriodFor returns the bi-weekly period containing t. The end is exclusive.
func PayPeriodFor(t time.Time) (time.Time, time.Time) {
	day := Day(t)
	anchor := time.Date(payPeriodAnchor.Year(), payPeriodAnchor.Month(), payPeriodAnchor.Day(), 0, 0, 0, 0, day.Location())
	days := int(math.Round(day.Sub(anchor).Hours() / 24))
	offset := ((days % 14) + 14) % 14
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 14)
}
