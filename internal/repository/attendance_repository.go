package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/gettogather-api/internal/models"
)

// AttendanceRepository provides access to the event_attendees join table.
type AttendanceRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db, now: time.Now}
}

// Add records that a user attends an event.
func (r *AttendanceRepository) Add(ctx context.Context, eventID, userID string) error {
	const query = `INSERT INTO event_attendees (id, event_id, user_id, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), eventID, userID, r.now().UTC()); err != nil {
		return fmt.Errorf("add attendee: %w", err)
	}
	return nil
}

// Remove deletes an attendance row. Removing a missing row is not an error.
func (r *AttendanceRepository) Remove(ctx context.Context, eventID, userID string) error {
	const query = `DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, eventID, userID); err != nil {
		return fmt.Errorf("remove attendee: %w", err)
	}
	return nil
}

// ListByEvents returns the attendees of the given events in join order.
func (r *AttendanceRepository) ListByEvents(ctx context.Context, eventIDs []string) ([]models.Attendee, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT a.event_id, a.user_id, u.name, u.email, u.avatar_url FROM event_attendees a LEFT JOIN users u ON u.id = a.user_id WHERE a.event_id = ANY($1) ORDER BY a.created_at ASC`
	var attendees []models.Attendee
	if err := r.db.SelectContext(ctx, &attendees, query, pq.Array(eventIDs)); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return attendees, nil
}
