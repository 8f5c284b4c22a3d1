package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/gettogather-api/internal/models"
)

const eventSelect = `SELECT e.id, e.title, e.description, e.date, e.time, e.location, e.category, u.id AS organizer_id, e.max_attendees, e.image_url, e.tags, e.status, e.created_at, u.name AS organizer_name, u.email AS organizer_email, u.avatar_url AS organizer_avatar FROM events e LEFT JOIN users u ON u.id = e.organizer_id`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EventRepository provides database access for events.
type EventRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewEventRepository creates a new instance of EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db, now: time.Now}
}

// List returns events matching the query ordered by date ascending.
func (r *EventRepository) List(ctx context.Context, q models.EventQuery) ([]models.EventRecord, error) {
	var conditions []string
	var args []interface{}

	if q.Category != "" {
		args = append(args, string(q.Category))
		conditions = append(conditions, fmt.Sprintf("e.category = $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(q.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(e.title ILIKE $%d OR e.description ILIKE $%d)", len(args), len(args)))
	}
	if q.From != nil {
		args = append(args, *q.From)
		conditions = append(conditions, fmt.Sprintf("e.date >= $%d", len(args)))
	}
	if q.To != nil {
		// sub-microsecond input would be rounded up by Postgres into the next period
		args = append(args, q.To.Truncate(time.Microsecond))
		conditions = append(conditions, fmt.Sprintf("e.date <= $%d", len(args)))
	}

	query := eventSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.date ASC"

	var records []models.EventRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return records, nil
}

// FindByID returns a single event with its organizer.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.EventRecord, error) {
	query := eventSelect + ` WHERE e.id = $1 LIMIT 1`
	var record models.EventRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	return &record, nil
}

// Create inserts an event and returns its identifier.
func (r *EventRepository) Create(ctx context.Context, in models.EventInput) (string, error) {
	id := uuid.NewString()
	now := r.now().UTC()
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	const query = `INSERT INTO events (id, title, description, date, time, location, category, organizer_id, max_attendees, tags, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	if _, err := r.db.ExecContext(ctx, query,
		id, in.Title, in.Description, in.Date, in.Time, in.Location, string(in.Category),
		in.OrganizerID, in.MaxAttendees, pq.Array(tags), string(in.Status), now, now,
	); err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	return id, nil
}

// Update applies the non-nil fields of the patch.
func (r *EventRepository) Update(ctx context.Context, id string, patch models.EventPatch) error {
	var sets []string
	var args []interface{}
	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Date != nil {
		set("date", *patch.Date)
	}
	if patch.Time != nil {
		set("time", *patch.Time)
	}
	if patch.Location != nil {
		set("location", *patch.Location)
	}
	if patch.Category != nil {
		set("category", string(*patch.Category))
	}
	if patch.MaxAttendees != nil {
		set("max_attendees", *patch.MaxAttendees)
	}
	if patch.ImageURL != nil {
		set("image_url", *patch.ImageURL)
	}
	if patch.Tags != nil {
		set("tags", pq.Array(patch.Tags))
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if len(sets) == 0 {
		return nil
	}
	set("updated_at", r.now().UTC())

	args = append(args, id)
	query := fmt.Sprintf("UPDATE events SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return expectAffected(res, "update event")
}

// Delete removes an event.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return expectAffected(res, "delete event")
}

func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
