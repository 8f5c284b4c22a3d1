package models

import (
	"fmt"
	"time"
)

// SearchFilters is the resolved parameter set for one query execution.
type SearchFilters struct {
	Search    string      `json:"search,omitempty"`
	Category  Category    `json:"category,omitempty"`
	Status    EventStatus `json:"status,omitempty"`
	DateRange DateRange   `json:"dateRange,omitempty"`
}

// EventQuery is the concrete predicate set sent to the event store.
type EventQuery struct {
	Category Category
	Status   EventStatus
	Search   string
	From     *time.Time
	To       *time.Time
}

// CacheKey renders a stable key fragment for the query.
func (q EventQuery) CacheKey() string {
	from, to := "", ""
	if q.From != nil {
		from = q.From.UTC().Format(time.RFC3339Nano)
	}
	if q.To != nil {
		to = q.To.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("c=%s|s=%s|q=%s|from=%s|to=%s", q.Category, q.Status, q.Search, from, to)
}
