package service

import (
	"strings"
	"time"

	"github.com/noah-isme/gettogather-api/internal/models"
)

// ResolveDateRange returns the closed bounds of a symbolic range in loc.
// The end bound is the last microsecond inside the range, the finest instant a
// Postgres timestamp stores. ok is false for unknown ranges.
func ResolveDateRange(r models.DateRange, now time.Time, loc *time.Location) (from, to time.Time, ok bool) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch r {
	case models.DateRangeToday:
		return day, day.AddDate(0, 0, 1).Add(-time.Microsecond), true
	case models.DateRangeThisWeek, models.DateRangeNextWeek:
		// weekday offset from Monday, Sunday is 6
		offset := (int(day.Weekday()) + 6) % 7
		monday := day.AddDate(0, 0, -offset)
		if r == models.DateRangeNextWeek {
			monday = monday.AddDate(0, 0, 7)
		}
		return monday, monday.AddDate(0, 0, 7).Add(-time.Microsecond), true
	case models.DateRangeThisMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return first, first.AddDate(0, 1, 0).Add(-time.Microsecond), true
	}
	return time.Time{}, time.Time{}, false
}

// ComposeQuery turns resolved filters into store predicates.
func ComposeQuery(filters models.SearchFilters, now time.Time, loc *time.Location) models.EventQuery {
	q := models.EventQuery{Search: strings.TrimSpace(filters.Search)}
	if filters.Category.Valid() {
		q.Category = filters.Category
	}
	if filters.Status.Valid() {
		q.Status = filters.Status
	}
	if from, to, ok := ResolveDateRange(filters.DateRange, now, loc); ok {
		q.From = &from
		q.To = &to
	}
	return q
}
