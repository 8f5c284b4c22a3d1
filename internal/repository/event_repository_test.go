package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gettogather-api/internal/models"
)

var eventRowColumns = []string{"id", "title", "description", "date", "time", "location", "category", "organizer_id", "max_attendees", "image_url", "tags", "status", "created_at", "organizer_name", "organizer_email", "organizer_avatar"}

func TestEventListWithoutFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(eventRowColumns).
		AddRow("e1", "Hack Night", "24h build", now, "10:00 AM", "Lab 3", "Technology", "u1", 50, nil, "{ai,build}", "upcoming", now, "Riya", "riya@campus.edu", nil)
	mock.ExpectQuery(regexp.QuoteMeta(eventSelect + " ORDER BY e.date ASC")).WillReturnRows(rows)

	records, err := repo.List(context.Background(), models.EventQuery{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"ai", "build"}, []string(records[0].Tags))
	assert.Equal(t, int64(50), records[0].MaxAttendees.Int64)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventListComposesPredicates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	from := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 17, 23, 59, 59, 999999000, time.UTC)
	expected := eventSelect + " WHERE e.category = $1 AND e.status = $2 AND (e.title ILIKE $3 OR e.description ILIKE $3) AND e.date >= $4 AND e.date <= $5 ORDER BY e.date ASC"
	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WithArgs("Technology", "upcoming", `%50\% off\_day%`, from, to).
		WillReturnRows(sqlmock.NewRows(eventRowColumns))

	records, err := repo.List(context.Background(), models.EventQuery{
		Category: models.CategoryTechnology,
		Status:   models.EventStatusUpcoming,
		Search:   "50% off_day",
		From:     &from,
		To:       &to,
	})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventListUpperBoundStaysInsidePeriod(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	from := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 19, 23, 59, 59, 999999999, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(eventSelect+" WHERE e.date >= $1 AND e.date <= $2 ORDER BY e.date ASC")).
		WithArgs(from, time.Date(2024, 5, 19, 23, 59, 59, 999999000, time.UTC)).
		WillReturnRows(sqlmock.NewRows(eventRowColumns))

	_, err := repo.List(context.Background(), models.EventQuery{From: &from, To: &to})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(eventSelect + " WHERE e.id = $1 LIMIT 1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events (id, title, description, date, time, location, category, organizer_id, max_attendees, tags, status, created_at, updated_at)")).
		WithArgs(sqlmock.AnyArg(), "Hack Night", "desc", date, "6 PM", "Lab", "Technology", "u1", nil, sqlmock.AnyArg(), "upcoming", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.Create(context.Background(), models.EventInput{
		Title: "Hack Night", Description: "desc", Date: date, Time: "6 PM", Location: "Lab",
		Category: models.CategoryTechnology, OrganizerID: "u1", Status: models.EventStatusUpcoming,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	image := "https://cdn/e1.png"
	status := models.EventStatusOngoing
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET image_url = $1, status = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(image, "ongoing", now, "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "e1", models.EventPatch{ImageURL: &image, Status: &status}))

	mock.ExpectExec("UPDATE events SET title").WillReturnResult(sqlmock.NewResult(0, 0))
	title := "x"
	assert.Equal(t, sql.ErrNoRows, repo.Update(context.Background(), "missing", models.EventPatch{Title: &title}))

	assert.NoError(t, repo.Update(context.Background(), "e1", models.EventPatch{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = $1")).WithArgs("e1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "e1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = $1")).WithArgs("e2").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.Equal(t, sql.ErrNoRows, repo.Delete(context.Background(), "e2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
