// Package memory is the in-process fallback store. It backs the default
// configuration and the test suites; all three store contracts are served
// from mutex-guarded maps, so insert-if-absent is atomic by construction.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediatrakker/internal/storage"
	"mediatrakker/pkg/models"
)

type Store struct {
	mu    sync.RWMutex
	media map[string]models.MediaRecord     // by internal id
	lists map[string]models.ListEntry       // by entry id
	prefs map[string]models.UserPreferences // by user id
}

func New() *Store {
	return &Store{
		media: make(map[string]models.MediaRecord),
		lists: make(map[string]models.ListEntry),
		prefs: make(map[string]models.UserPreferences),
	}
}

func (s *Store) Media() storage.MediaStore { return (*mediaStore)(s) }
func (s *Store) Lists() storage.ListStore  { return (*listStore)(s) }
func (s *Store) Prefs() storage.PrefsStore { return (*prefsStore)(s) }

func (s *Store) Ping(ctx context.Context) error  { return nil }
func (s *Store) Close(ctx context.Context) error { return nil }

type mediaStore Store

func (s *mediaStore) FindByTitle(ctx context.Context, substr string, t models.MediaType, limit int) ([]models.MediaRecord, error) {
	needle := strings.ToLower(substr)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.MediaRecord, 0, limit)
	for _, rec := range s.media {
		if rec.Type != t {
			continue
		}
		if !strings.Contains(strings.ToLower(rec.Title), needle) {
			continue
		}
		out = append(out, rec)
	}
	// map order is random; keep responses stable
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *mediaStore) FindByExternalID(ctx context.Context, externalID string, t models.MediaType) (*models.MediaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.media {
		if rec.ExternalID == externalID && rec.Type == t {
			r := rec
			return &r, nil
		}
	}
	return nil, nil
}

func (s *mediaStore) FindByID(ctx context.Context, id string) (*models.MediaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.media[id]
	if !ok {
		return nil, nil
	}
	r := rec
	return &r, nil
}

func (s *mediaStore) InsertIfAbsent(ctx context.Context, rec models.MediaRecord) (models.MediaRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.media {
		if existing.ExternalID == rec.ExternalID && existing.Type == rec.Type {
			return existing, false, nil
		}
	}

	now := time.Now().UTC()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.media[rec.ID] = rec
	return rec, true, nil
}

type listStore Store

func (s *listStore) Insert(ctx context.Context, e models.ListEntry) (models.ListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.lists {
		if existing.UserID == e.UserID && existing.MediaID == e.MediaID {
			return models.ListEntry{}, storage.ErrAlreadyExists
		}
	}

	now := time.Now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now
	s.lists[e.ID] = e
	return e, nil
}

func (s *listStore) Get(ctx context.Context, id, userID string) (*models.ListEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.lists[id]
	if !ok || e.UserID != userID {
		return nil, nil
	}
	out := e
	return &out, nil
}

func (s *listStore) List(ctx context.Context, userID string, f storage.ListFilter) ([]models.ListEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ListEntry
	for _, e := range s.lists {
		if e.UserID != userID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.MediaType != "" && e.MediaType != f.MediaType {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *listStore) Update(ctx context.Context, id, userID string, upd models.ListEntryUpdate) (*models.ListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lists[id]
	if !ok || e.UserID != userID {
		return nil, storage.ErrNotFound
	}

	if upd.Status != nil {
		e.Status = *upd.Status
	}
	if upd.Progress != nil {
		e.Progress = upd.Progress
	}
	if upd.Rating != nil {
		e.Rating = upd.Rating
	}
	if upd.Notes != nil {
		e.Notes = upd.Notes
	}
	e.UpdatedAt = time.Now().UTC()
	s.lists[id] = e
	out := e
	return &out, nil
}

func (s *listStore) Delete(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lists[id]
	if !ok || e.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.lists, id)
	return nil
}

type prefsStore Store

func (s *prefsStore) Get(ctx context.Context, userID string) (*models.UserPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prefs[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := p
	return &out, nil
}

func (s *prefsStore) Upsert(ctx context.Context, p models.UserPreferences) (*models.UserPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.prefs[p.UserID]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		p.ID = uuid.NewString()
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.prefs[p.UserID] = p
	out := p
	return &out, nil
}
