package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/gettogather-api/internal/models"
	"github.com/noah-isme/gettogather-api/pkg/logger"
)

// SeedFromPrincipal derives the upsert payload from provider metadata.
func SeedFromPrincipal(p *models.Principal) models.ProfileSeed {
	seed := models.ProfileSeed{ID: p.ID, Email: p.Email}
	if name := firstNonEmpty(p.MetadataString("full_name"), p.MetadataString("name")); name != "" {
		seed.Name = &name
	}
	if avatar := p.MetadataString("avatar_url"); avatar != "" {
		seed.AvatarURL = &avatar
	}
	return seed
}

// BuildUser merges a profile over provider metadata. The profile wins for every field it
// carries; metadata only fills name and avatar; role falls back to user.
func BuildUser(p *models.Principal, profile *models.Profile) *models.User {
	if p == nil {
		return nil
	}
	if profile == nil {
		profile = &models.Profile{}
	}

	user := &models.User{
		ID:    p.ID,
		Email: firstNonEmpty(p.Email, profile.Email),
		Name: firstNonEmpty(
			deref(profile.Name),
			p.MetadataString("full_name"),
			p.MetadataString("name"),
			models.DefaultUserName,
		),
		Avatar:     firstNonEmpty(deref(profile.AvatarURL), p.MetadataString("avatar_url")),
		Role:       models.RoleUser,
		Department: deref(profile.Department),
		Year:       deref(profile.Year),
	}
	if profile.Role != nil && (*profile.Role == models.RoleAdmin || *profile.Role == models.RoleUser) {
		user.Role = *profile.Role
	}
	return user
}

// Reconcile upserts the principal's profile and builds the session user. When the upsert
// fails a single read of the existing profile is attempted; if that fails too the caller
// must treat the browser as signed out.
func Reconcile(ctx context.Context, profiles ProfileStore, p *models.Principal, log *zap.Logger) (*models.User, error) {
	if p == nil {
		return nil, nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	profile, upsertErr := profiles.Upsert(ctx, SeedFromPrincipal(p))
	if upsertErr == nil && profile != nil {
		return BuildUser(p, profile), nil
	}
	if upsertErr == nil {
		upsertErr = errors.New("upsert returned no profile")
	}
	logger.Critical(log, "profile upsert failed", zap.String("user_id", p.ID), zap.Error(upsertErr))

	profile, fetchErr := profiles.FindByID(ctx, p.ID)
	if fetchErr == nil && profile != nil {
		return BuildUser(p, profile), nil
	}
	if fetchErr == nil {
		fetchErr = errors.New("profile not found")
	}
	return nil, fmt.Errorf("reconcile profile %s: %w", p.ID, errors.Join(upsertErr, fetchErr))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
