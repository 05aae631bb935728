package models

import (
	"strings"
	"time"
)

// Progress is a free-form progress blob whose shape depends on the media
// type, e.g. {"season": 1, "episode": 5} or {"hours_played": 12}.
type Progress map[string]any

// List statuses. The vocabulary is shared across media types and is not
// validated against the type (a book marked "watching" is accepted).
const (
	StatusWatching  = "watching"
	StatusReading   = "reading"
	StatusPlaying   = "playing"
	StatusCompleted = "completed"
	StatusPaused    = "paused"
	StatusPlanning  = "planning"
	StatusDropped   = "dropped"
)

// NormalizeStatus lowercases and validates a status value, returning "" when
// it is not part of the accepted vocabulary.
func NormalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case StatusWatching:
		return StatusWatching
	case StatusReading:
		return StatusReading
	case StatusPlaying:
		return StatusPlaying
	case StatusCompleted:
		return StatusCompleted
	case StatusPaused:
		return StatusPaused
	case StatusPlanning:
		return StatusPlanning
	case StatusDropped:
		return StatusDropped
	default:
		return ""
	}
}

// ListEntry is one user's tracked relationship to a MediaRecord. At most one
// entry exists per (user_id, media_id).
type ListEntry struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	MediaID   string    `json:"media_id" bson:"media_id"`
	MediaType MediaType `json:"media_type" bson:"media_type"`
	Status    string    `json:"status" bson:"status"`
	Rating    *float64  `json:"rating" bson:"rating,omitempty"`
	Notes     *string   `json:"notes" bson:"notes,omitempty"`
	Progress  Progress  `json:"progress" bson:"progress,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ListEntryUpdate is a partial update: nil fields are left untouched.
type ListEntryUpdate struct {
	Status   *string  `json:"status"`
	Progress Progress `json:"progress"`
	Rating   *float64 `json:"rating"`
	Notes    *string  `json:"notes"`
}

// UserPreferences is the singleton-per-user settings record, created lazily
// with defaults on first read.
type UserPreferences struct {
	ID                   string    `json:"id" bson:"_id"`
	UserID               string    `json:"user_id" bson:"user_id"`
	Theme                string    `json:"theme" bson:"theme"`
	Language             string    `json:"language" bson:"language"`
	NotificationsEnabled bool      `json:"notifications_enabled" bson:"notifications_enabled"`
	CreatedAt            time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" bson:"updated_at"`
}

// DefaultPreferences returns the lazily-created settings for a user.
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID:               userID,
		Theme:                "dark",
		Language:             "en",
		NotificationsEnabled: true,
	}
}

// UserContext carries the identity every list/prefs/stats operation acts on
// behalf of. The server runs with one fixed user; handlers never hardcode it.
type UserContext struct {
	UserID string
}
