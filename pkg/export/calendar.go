package export

import (
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// CalendarEntry is one all-day event in an iCalendar feed.
type CalendarEntry struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Date        time.Time
	Categories  []string
	URL         string
	Cancelled   bool
	Created     time.Time
}

// ICSExporter renders calendar entries as an iCalendar document.
type ICSExporter struct {
	productID string
	now       func() time.Time
}

// NewICSExporter builds an exporter stamping documents with productID.
func NewICSExporter(productID string) *ICSExporter {
	return &ICSExporter{productID: productID, now: time.Now}
}

// Render serialises the entries under the given calendar name.
func (e *ICSExporter) Render(name string, entries []CalendarEntry) []byte {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.productID)
	if name != "" {
		cal.SetName(name)
	}

	stamp := e.now().UTC()
	for _, entry := range entries {
		ev := cal.AddEvent(entry.UID)
		ev.SetDtStampTime(stamp)
		if !entry.Created.IsZero() {
			ev.SetCreatedTime(entry.Created.UTC())
		}
		day := time.Date(entry.Date.Year(), entry.Date.Month(), entry.Date.Day(), 0, 0, 0, 0, time.UTC)
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		ev.SetSummary(entry.Summary)
		if entry.Description != "" {
			ev.SetDescription(entry.Description)
		}
		if entry.Location != "" {
			ev.SetLocation(entry.Location)
		}
		if entry.URL != "" {
			ev.SetURL(entry.URL)
		}
		for _, category := range entry.Categories {
			if category = strings.TrimSpace(category); category != "" {
				ev.AddProperty(ics.ComponentPropertyCategories, category)
			}
		}
		if entry.Cancelled {
			ev.SetStatus(ics.ObjectStatusCancelled)
		} else {
			ev.SetStatus(ics.ObjectStatusConfirmed)
		}
	}
	return []byte(cal.Serialize())
}
