package models

import "time"

// UserRole represents the roles recognised by the application shell.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// DefaultUserName is shown when neither the profile nor the provider supplies a name.
const DefaultUserName = "Gettogather User"

// User is the signed-in principal merged with its profile. It is the session payload
// handed to the browser and the organizer/attendee shape embedded in events.
type User struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	Avatar     string   `json:"avatar,omitempty"`
	Role       UserRole `json:"role"`
	Department string   `json:"department,omitempty"`
	Year       string   `json:"year,omitempty"`
}

// IsAdmin reports whether the user may reach admin-only routes.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Profile is the application-specific record stored in the users table.
// Nullable columns are pointers so an absent value is distinguishable from an empty one.
type Profile struct {
	ID         string    `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	Name       *string   `db:"name" json:"name,omitempty"`
	AvatarURL  *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	Role       *UserRole `db:"role" json:"role,omitempty"`
	Department *string   `db:"department" json:"department,omitempty"`
	Year       *string   `db:"year" json:"year,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ProfileSeed carries the fields written on upsert. Name and avatar only fill
// columns that are still empty; role is never written from here.
type ProfileSeed struct {
	ID        string  `db:"id"`
	Email     string  `db:"email"`
	Name      *string `db:"name"`
	AvatarURL *string `db:"avatar_url"`
}

// Principal is the identity returned by the external auth provider.
type Principal struct {
	ID       string                 `json:"id"`
	Email    string                 `json:"email"`
	Metadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// MetadataString returns a non-empty string metadata value.
func (p *Principal) MetadataString(key string) string {
	if p == nil || p.Metadata == nil {
		return ""
	}
	v, ok := p.Metadata[key].(string)
	if !ok {
		return ""
	}
	return v
}
