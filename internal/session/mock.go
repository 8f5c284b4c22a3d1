package session

import (
	"strings"

	"github.com/noah-isme/gettogather-api/internal/models"
)

const adminMarker = "admin"

// MockUser returns the fixed demo identity used when no backend is configured.
func MockUser(role models.UserRole) *models.User {
	if role == models.RoleAdmin {
		return &models.User{
			ID:         "admin-id",
			Email:      "admin@paruluniversity.ac.in",
			Name:       "Admin User",
			Avatar:     "https://placehold.co/100x100/6366f1/ffffff?text=A",
			Role:       models.RoleAdmin,
			Department: "Computer Science",
			Year:       "3rd Year",
		}
	}
	return &models.User{
		ID:         "user-id",
		Email:      "student@paruluniversity.ac.in",
		Name:       "Arjun Patel",
		Avatar:     "https://placehold.co/100x100/6366f1/ffffff?text=AP",
		Role:       models.RoleUser,
		Department: "Computer Science",
		Year:       "3rd Year",
	}
}

// mockRoleFor picks the demo role from the submitted email.
func mockRoleFor(email string) models.UserRole {
	if strings.Contains(email, adminMarker) {
		return models.RoleAdmin
	}
	return models.RoleUser
}
