package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/noah-isme/gettogather-api/internal/models"
	appErrors "github.com/noah-isme/gettogather-api/pkg/errors"
)

type fakeEventStore struct {
	mu       sync.Mutex
	records  map[string]models.EventRecord
	queries  []models.EventQuery
	created  []models.EventInput
	patches  map[string][]models.EventPatch
	deleted  []string
	listErr  error
	findErr  error
	writeErr error
	nextID   string
	onList   func()
}

func newFakeEventStore(records ...models.EventRecord) *fakeEventStore {
	store := &fakeEventStore{records: map[string]models.EventRecord{}, patches: map[string][]models.EventPatch{}, nextID: "evt-new"}
	for _, r := range records {
		store.records[r.ID] = r
	}
	return store
}

func (f *fakeEventStore) List(_ context.Context, q models.EventQuery) ([]models.EventRecord, error) {
	if f.onList != nil {
		f.onList()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.EventRecord
	for _, r := range f.records {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeEventStore) FindByID(_ context.Context, id string) (*models.EventRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	r, ok := f.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (f *fakeEventStore) Create(_ context.Context, in models.EventInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return "", f.writeErr
	}
	f.created = append(f.created, in)
	f.records[f.nextID] = models.EventRecord{
		ID:          f.nextID,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Time:        in.Time,
		Location:    in.Location,
		Category:    string(in.Category),
		OrganizerID: sql.NullString{String: in.OrganizerID, Valid: true},
		Tags:        in.Tags,
		Status:      string(in.Status),
	}
	return f.nextID, nil
}

func (f *fakeEventStore) Update(_ context.Context, id string, patch models.EventPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	r, ok := f.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	f.patches[id] = append(f.patches[id], patch)
	if patch.Title != nil {
		r.Title = *patch.Title
	}
	if patch.ImageURL != nil {
		r.ImageURL = sql.NullString{String: *patch.ImageURL, Valid: true}
	}
	if patch.Status != nil {
		r.Status = string(*patch.Status)
	}
	if patch.Tags != nil {
		r.Tags = patch.Tags
	}
	f.records[id] = r
	return nil
}

func (f *fakeEventStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if _, ok := f.records[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.records, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeAttendance struct {
	mu        sync.Mutex
	attendees []models.Attendee
	addErr    error
	listErr   error
	removed   []string
}

func (f *fakeAttendance) Add(_ context.Context, eventID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.attendees = append(f.attendees, models.Attendee{EventID: eventID, UserID: userID})
	return nil
}

func (f *fakeAttendance) Remove(_ context.Context, eventID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, eventID+"/"+userID)
	return nil
}

func (f *fakeAttendance) ListByEvents(_ context.Context, ids []string) ([]models.Attendee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	var out []models.Attendee
	for _, a := range f.attendees {
		if wanted[a.EventID] {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeImages struct {
	uploads map[string][]byte
	types   map[string]string
	removed []string
	err     error
}

func (f *fakeImages) Upload(_ context.Context, bucket, key string, data []byte, contentType string) error {
	if f.err != nil {
		return f.err
	}
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
		f.types = map[string]string{}
	}
	f.uploads[bucket+"/"+key] = data
	f.types[bucket+"/"+key] = contentType
	return nil
}

func (f *fakeImages) Remove(_ context.Context, bucket, key string) error {
	f.removed = append(f.removed, bucket+"/"+key)
	delete(f.uploads, bucket+"/"+key)
	return nil
}

func (f *fakeImages) PublicURL(bucket, key string) string {
	return "https://cdn.test/" + bucket + "/" + key
}

// memoryCache is an in-memory CacheRepository.
type memoryCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	tags        map[string][]string
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}, tags: map[string][]string{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration, tags ...string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	for _, tag := range tags {
		m.tags[tag] = append(m.tags[tag], key)
	}
	return nil
}

func (m *memoryCache) InvalidateTags(_ context.Context, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tag := range tags {
		m.invalidated = append(m.invalidated, tag)
		for _, key := range m.tags[tag] {
			delete(m.entries, key)
		}
		delete(m.tags, tag)
	}
	return nil
}
