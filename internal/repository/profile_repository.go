package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gettogather-api/internal/models"
)

const profileColumns = `id, email, name, avatar_url, role, department, year, created_at`

// ProfileRepository provides access to the users table.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new instance of ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Upsert inserts the profile or refreshes its email. Name and avatar are only seeded
// into empty columns and role is never touched, so repeated calls converge on one row.
func (r *ProfileRepository) Upsert(ctx context.Context, seed models.ProfileSeed) (*models.Profile, error) {
	const query = `INSERT INTO users (id, email, name, avatar_url) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = COALESCE(NULLIF(users.name, ''), EXCLUDED.name), avatar_url = COALESCE(NULLIF(users.avatar_url, ''), EXCLUDED.avatar_url), updated_at = NOW()
RETURNING ` + profileColumns
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, seed.ID, seed.Email, seed.Name, seed.AvatarURL); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return &profile, nil
}

// FindByID returns a profile by identifier.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	const query = `SELECT ` + profileColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile by id: %w", err)
	}
	return &profile, nil
}
