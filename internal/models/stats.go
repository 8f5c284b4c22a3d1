package models

import "time"

// AdminStats aggregates platform-wide counters for the admin dashboard.
type AdminStats struct {
	TotalEvents    int            `json:"totalEvents" db:"total_events"`
	TotalUsers     int            `json:"totalUsers" db:"total_users"`
	ActiveEvents   int            `json:"activeEvents" db:"active_events"`
	TotalAttendees int            `json:"totalAttendees" db:"total_attendees"`
	System         *SystemMetrics `json:"system,omitempty" db:"-"`
	GeneratedAt    time.Time      `json:"generatedAt" db:"-"`
}

// SystemMetrics is a lightweight snapshot of request and cache instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
