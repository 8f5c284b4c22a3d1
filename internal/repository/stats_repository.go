package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gettogather-api/internal/models"
)

// StatsRepository computes platform-wide counters.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new instance of StatsRepository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Totals returns event, user, active event and attendee counts in one round trip.
func (r *StatsRepository) Totals(ctx context.Context) (*models.AdminStats, error) {
	const query = `SELECT (SELECT COUNT(*) FROM events) AS total_events, (SELECT COUNT(*) FROM users) AS total_users, (SELECT COUNT(*) FROM events WHERE status IN ('upcoming', 'ongoing')) AS active_events, (SELECT COUNT(*) FROM event_attendees) AS total_attendees`
	var stats models.AdminStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("load admin totals: %w", err)
	}
	return &stats, nil
}
