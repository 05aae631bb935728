package storage

import (
	"context"
	"errors"

	"mediatrakker/pkg/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// MediaStore is the cache of normalized external content. Records are
// insert-only: no update or delete.
type MediaStore interface {
	// FindByTitle does a case-insensitive substring match on title, filtered
	// by type, capped at limit.
	FindByTitle(ctx context.Context, substr string, t models.MediaType, limit int) ([]models.MediaRecord, error)

	FindByExternalID(ctx context.Context, externalID string, t models.MediaType) (*models.MediaRecord, error)

	FindByID(ctx context.Context, id string) (*models.MediaRecord, error)

	// InsertIfAbsent atomically inserts rec keyed on (external_id, media_type),
	// assigning a fresh id and timestamps. When the key already exists the
	// stored record is returned with created=false; concurrent duplicate
	// writes resolve to a single record.
	InsertIfAbsent(ctx context.Context, rec models.MediaRecord) (models.MediaRecord, bool, error)
}

// ListFilter narrows a user-list query. Empty fields match everything.
type ListFilter struct {
	Status    string
	MediaType models.MediaType
}

// ListStore holds per-user saved items referencing MediaStore records.
type ListStore interface {
	// Insert adds an entry, assigning id and timestamps. Returns
	// ErrAlreadyExists when the user already lists that media_id.
	Insert(ctx context.Context, e models.ListEntry) (models.ListEntry, error)

	Get(ctx context.Context, id, userID string) (*models.ListEntry, error)

	List(ctx context.Context, userID string, f ListFilter) ([]models.ListEntry, error)

	// Update merges only the provided fields and refreshes updated_at.
	// Returns ErrNotFound when (id, user) does not exist.
	Update(ctx context.Context, id, userID string, upd models.ListEntryUpdate) (*models.ListEntry, error)

	// Delete removes by (id, user). Returns ErrNotFound when absent.
	Delete(ctx context.Context, id, userID string) error
}

// PrefsStore holds the singleton-per-user preferences row.
type PrefsStore interface {
	// Get returns the stored preferences or ErrNotFound; lazy creation is the
	// caller's concern.
	Get(ctx context.Context, userID string) (*models.UserPreferences, error)

	// Upsert writes the full preferences row, inserting when absent.
	Upsert(ctx context.Context, p models.UserPreferences) (*models.UserPreferences, error)
}

// Store bundles the three stores behind one backend.
type Store interface {
	Media() MediaStore
	Lists() ListStore
	Prefs() PrefsStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
