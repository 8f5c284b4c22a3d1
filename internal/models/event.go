package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Category enumerates the closed set of event categories.
type Category string

const (
	CategoryTechnology   Category = "Technology"
	CategoryCultural     Category = "Cultural"
	CategorySports       Category = "Sports"
	CategoryAcademic     Category = "Academic"
	CategoryProfessional Category = "Professional"
)

// CategoryAll is the UI sentinel for "no category selected".
const CategoryAll = "all"

// Categories lists every valid category in display order.
var Categories = []Category{CategoryTechnology, CategoryCultural, CategorySports, CategoryAcademic, CategoryProfessional}

// Valid reports whether the category is in the closed set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// EventStatus captures the lifecycle state of an event.
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusOngoing   EventStatus = "ongoing"
	EventStatusCompleted EventStatus = "completed"
)

// Valid reports whether the status is in the closed set.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusUpcoming, EventStatusOngoing, EventStatusCompleted:
		return true
	}
	return false
}

// DateRange is a symbolic date window understood by the query compositor.
type DateRange string

const (
	DateRangeToday     DateRange = "today"
	DateRangeThisWeek  DateRange = "this_week"
	DateRangeNextWeek  DateRange = "next_week"
	DateRangeThisMonth DateRange = "this_month"
)

// Valid reports whether the range is in the closed set.
func (r DateRange) Valid() bool {
	switch r {
	case DateRangeToday, DateRangeThisWeek, DateRangeNextWeek, DateRangeThisMonth:
		return true
	}
	return false
}

// UnknownOrganizerID and UnknownOrganizerName fill in for events whose organizer row is missing.
const (
	UnknownOrganizerID   = "unknown"
	UnknownOrganizerName = "Unknown Organizer"
)

// Event is a schedulable campus activity with its organizer and attendees resolved.
type Event struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Date         time.Time   `json:"date"`
	Time         string      `json:"time"`
	Location     string      `json:"location"`
	Category     Category    `json:"category"`
	Organizer    User        `json:"organizer"`
	Attendees    []User      `json:"attendees"`
	MaxAttendees *int        `json:"maxAttendees,omitempty"`
	Image        string      `json:"image,omitempty"`
	Tags         []string    `json:"tags"`
	Status       EventStatus `json:"status"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// EventRecord mirrors a row of the events table joined with its organizer.
type EventRecord struct {
	ID              string         `db:"id"`
	Title           string         `db:"title"`
	Description     string         `db:"description"`
	Date            time.Time      `db:"date"`
	Time            string         `db:"time"`
	Location        string         `db:"location"`
	Category        string         `db:"category"`
	OrganizerID     sql.NullString `db:"organizer_id"`
	MaxAttendees    sql.NullInt64  `db:"max_attendees"`
	ImageURL        sql.NullString `db:"image_url"`
	Tags            pq.StringArray `db:"tags"`
	Status          string         `db:"status"`
	CreatedAt       time.Time      `db:"created_at"`
	OrganizerName   sql.NullString `db:"organizer_name"`
	OrganizerEmail  sql.NullString `db:"organizer_email"`
	OrganizerAvatar sql.NullString `db:"organizer_avatar"`
}

// Attendee is one joined row of event_attendees and users.
type Attendee struct {
	EventID   string         `db:"event_id"`
	UserID    string         `db:"user_id"`
	Name      sql.NullString `db:"name"`
	Email     sql.NullString `db:"email"`
	AvatarURL sql.NullString `db:"avatar_url"`
}

// ToUser maps an attendee row to the embedded user shape.
func (a Attendee) ToUser() User {
	return User{ID: a.UserID, Name: a.Name.String, Email: a.Email.String, Avatar: a.AvatarURL.String, Role: RoleUser}
}

// ToEvent maps a stored record to the public event shape. Attendees are attached by the caller.
func (r EventRecord) ToEvent() Event {
	organizer := User{ID: UnknownOrganizerID, Name: UnknownOrganizerName, Role: RoleUser}
	if r.OrganizerID.Valid && r.OrganizerID.String != "" {
		organizer.ID = r.OrganizerID.String
	}
	if r.OrganizerName.Valid && r.OrganizerName.String != "" {
		organizer.Name = r.OrganizerName.String
	}
	organizer.Email = r.OrganizerEmail.String
	organizer.Avatar = r.OrganizerAvatar.String

	event := Event{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Date:        r.Date,
		Time:        r.Time,
		Location:    r.Location,
		Category:    Category(r.Category),
		Organizer:   organizer,
		Attendees:   []User{},
		Image:       r.ImageURL.String,
		Tags:        []string(r.Tags),
		Status:      EventStatus(r.Status),
		CreatedAt:   r.CreatedAt,
	}
	if event.Tags == nil {
		event.Tags = []string{}
	}
	if r.MaxAttendees.Valid {
		max := int(r.MaxAttendees.Int64)
		event.MaxAttendees = &max
	}
	return event
}

// EventInput holds the writable columns of an event.
type EventInput struct {
	Title        string
	Description  string
	Date         time.Time
	Time         string
	Location     string
	Category     Category
	OrganizerID  string
	MaxAttendees *int
	Tags         []string
	Status       EventStatus
}

// EventPatch holds optional column updates. Nil fields are left untouched.
type EventPatch struct {
	Title        *string
	Description  *string
	Date         *time.Time
	Time         *string
	Location     *string
	Category     *Category
	MaxAttendees *int
	ImageURL     *string
	Tags         []string
	Status       *EventStatus
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Date == nil && p.Time == nil &&
		p.Location == nil && p.Category == nil && p.MaxAttendees == nil && p.ImageURL == nil &&
		p.Tags == nil && p.Status == nil
}
