package models

import (
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestEventRecordToEventMissingOrganizer(t *testing.T) {
	rec := EventRecord{ID: "e1", Title: "Hack Night", Category: "Technology", Status: "upcoming", Date: time.Now()}

	event := rec.ToEvent()
	assert.Equal(t, UnknownOrganizerID, event.Organizer.ID)
	assert.Equal(t, UnknownOrganizerName, event.Organizer.Name)
	assert.Equal(t, RoleUser, event.Organizer.Role)
	assert.NotNil(t, event.Tags)
	assert.NotNil(t, event.Attendees)
	assert.Nil(t, event.MaxAttendees)
}

func TestEventRecordToEventFull(t *testing.T) {
	rec := EventRecord{
		ID:             "e1",
		Category:       "Sports",
		OrganizerID:    sql.NullString{String: "u1", Valid: true},
		OrganizerName:  sql.NullString{String: "Arjun", Valid: true},
		OrganizerEmail: sql.NullString{String: "a@x.edu", Valid: true},
		MaxAttendees:   sql.NullInt64{Int64: 40, Valid: true},
		ImageURL:       sql.NullString{String: "https://cdn/x.png", Valid: true},
		Tags:           pq.StringArray{"football", "league"},
		Status:         "ongoing",
	}

	event := rec.ToEvent()
	assert.Equal(t, "u1", event.Organizer.ID)
	assert.Equal(t, "Arjun", event.Organizer.Name)
	assert.Equal(t, 40, *event.MaxAttendees)
	assert.Equal(t, "https://cdn/x.png", event.Image)
	assert.Equal(t, []string{"football", "league"}, event.Tags)
	assert.Equal(t, EventStatusOngoing, event.Status)
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, CategoryCultural.Valid())
	assert.False(t, Category("Music").Valid())
	assert.False(t, Category(CategoryAll).Valid())
	assert.True(t, EventStatusCompleted.Valid())
	assert.False(t, EventStatus("cancelled").Valid())
	assert.True(t, DateRangeNextWeek.Valid())
	assert.False(t, DateRange("next_month").Valid())
}

func TestPrincipalMetadataString(t *testing.T) {
	p := &Principal{Metadata: map[string]interface{}{"full_name": "Riya", "age": 20}}
	assert.Equal(t, "Riya", p.MetadataString("full_name"))
	assert.Equal(t, "", p.MetadataString("age"))
	assert.Equal(t, "", p.MetadataString("missing"))

	var nilPrincipal *Principal
	assert.Equal(t, "", nilPrincipal.MetadataString("name"))
}
