package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ──────────────────── User ────────────────────

type User struct {
	ID               uuid.UUID        `json:"id"`
	Username         string           `json:"username" validate:"required,min=3,max=30"`
	Email            string           `json:"email" validate:"required,email"`
	PasswordHash     string           `json:"-"`
	RefreshTokenHash string           `json:"-"`
	Role             UserRole         `json:"role" validate:"required,oneof=user moderator admin"`
	Avatar           string           `json:"avatar,omitempty"`
	IsActive         bool             `json:"isActive"`
	Preferences      Preferences      `json:"preferences"`
	Watchlist        []WatchlistEntry `json:"watchlist"`
	LastLogin        *time.Time       `json:"lastLogin,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

type Preferences struct {
	Language           string `json:"language" validate:"omitempty,max=10"`
	Theme              string `json:"theme" validate:"omitempty,oneof=light dark system"`
	EmailNotifications bool   `json:"emailNotifications"`
}

func DefaultPreferences() Preferences {
	return Preferences{Language: "en", Theme: "dark", EmailNotifications: true}
}

type WatchlistEntry struct {
	ContentRef
	AddedAt time.Time `json:"addedAt"`
}

func (u *User) Validate() error {
	ve := &ValidationError{}
	validateStruct(u, ve)
	return ve.Err()
}

// NormalizeEmail lowercases and trims an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// InWatchlist reports whether ref is already saved.
func (u *User) InWatchlist(ref ContentRef) bool {
	for _, e := range u.Watchlist {
		if e.ContentRef == ref {
			return true
		}
	}
	return false
}
