// Package sqlite is the relational store backend, kept on database/sql with
// the wide sparse row flattened from the tagged-union model. List-valued
// fields are stored as JSON text columns.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"mediatrakker/internal/storage"
	"mediatrakker/pkg/models"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

// Open opens (creating parent directories as needed) and migrates the
// database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma foreign_keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Media() storage.MediaStore { return &mediaStore{db: s.db} }
func (s *Store) Lists() storage.ListStore  { return &listStore{db: s.db} }
func (s *Store) Prefs() storage.PrefsStore { return &prefsStore{db: s.db} }

func (s *Store) Ping(ctx context.Context) error  { return s.db.PingContext(ctx) }
func (s *Store) Close(ctx context.Context) error { return s.db.Close() }

const mediaColumns = `id, external_id, media_type, title, year, genres,
	poster_path, overview, backdrop_path, vote_average, release_date,
	seasons, episodes, chapters, volumes, status,
	authors, publisher, page_count, isbn,
	platforms, developers, publishers, release_year, rating, game_modes,
	created_at, updated_at`

type mediaStore struct {
	db *sql.DB
}

func (r *mediaStore) FindByTitle(ctx context.Context, substr string, t models.MediaType, limit int) ([]models.MediaRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+mediaColumns+`
		FROM media_items
		WHERE media_type = ? AND LOWER(title) LIKE ? ESCAPE '\'
		ORDER BY title ASC
		LIMIT ?
	`, string(t), likePattern(substr), limit)
	if err != nil {
		return nil, fmt.Errorf("find by title: %w", err)
	}
	defer rows.Close()

	out := make([]models.MediaRecord, 0, limit)
	for rows.Next() {
		rec, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *mediaStore) FindByExternalID(ctx context.Context, externalID string, t models.MediaType) (*models.MediaRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+mediaColumns+`
		FROM media_items
		WHERE external_id = ? AND media_type = ?
	`, externalID, string(t))
	return scanMediaOne(row)
}

func (r *mediaStore) FindByID(ctx context.Context, id string) (*models.MediaRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+mediaColumns+`
		FROM media_items
		WHERE id = ?
	`, id)
	return scanMediaOne(row)
}

func (r *mediaStore) InsertIfAbsent(ctx context.Context, rec models.MediaRecord) (models.MediaRecord, bool, error) {
	now := time.Now().UTC()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	w := rec.Wire()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO media_items (`+mediaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id, media_type) DO NOTHING
	`,
		w.ID, w.ExternalID, string(w.MediaType), w.Title, w.Year, jsonText(w.Genres),
		w.PosterPath, w.Overview, w.BackdropPath, w.VoteAverage, w.ReleaseDate,
		w.Seasons, w.Episodes, w.Chapters, w.Volumes, w.Status,
		jsonTextOrNil(w.Authors), w.Publisher, w.PageCount, w.ISBN,
		jsonTextOrNil(w.Platforms), jsonTextOrNil(w.Developers), jsonTextOrNil(w.Publishers),
		w.ReleaseYear, w.Rating, jsonTextOrNil(w.GameModes),
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return models.MediaRecord{}, false, fmt.Errorf("insert media: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		// lost the race (or already cached): hand back the stored row
		existing, err := r.FindByExternalID(ctx, rec.ExternalID, rec.Type)
		if err != nil {
			return models.MediaRecord{}, false, err
		}
		if existing == nil {
			return models.MediaRecord{}, false, fmt.Errorf("insert media: conflict row vanished")
		}
		return *existing, false, nil
	}
	return rec, true, nil
}

// likePattern builds a literal substring pattern: LIKE metacharacters in the
// input match themselves, not wildcards.
func likePattern(substr string) string {
	s := strings.ToLower(substr)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return "%" + s + "%"
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMediaOne(row *sql.Row) (*models.MediaRecord, error) {
	rec, err := scanMedia(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func scanMedia(s scanner) (models.MediaRecord, error) {
	var (
		w          models.MediaWire
		mt         string
		genres     string
		authors    sql.NullString
		platforms  sql.NullString
		developers sql.NullString
		publishers sql.NullString
		gameModes  sql.NullString
	)

	err := s.Scan(
		&w.ID, &w.ExternalID, &mt, &w.Title, &w.Year, &genres,
		&w.PosterPath, &w.Overview, &w.BackdropPath, &w.VoteAverage, &w.ReleaseDate,
		&w.Seasons, &w.Episodes, &w.Chapters, &w.Volumes, &w.Status,
		&authors, &w.Publisher, &w.PageCount, &w.ISBN,
		&platforms, &developers, &publishers, &w.ReleaseYear, &w.Rating, &gameModes,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.MediaRecord{}, err
		}
		return models.MediaRecord{}, fmt.Errorf("scan media row: %w", err)
	}

	w.MediaType = models.MediaType(mt)
	_ = json.Unmarshal([]byte(genres), &w.Genres)
	w.Authors = fromJSONText(authors)
	w.Platforms = fromJSONText(platforms)
	w.Developers = fromJSONText(developers)
	w.Publishers = fromJSONText(publishers)
	w.GameModes = fromJSONText(gameModes)

	return w.Record(), nil
}

func jsonText(xs []string) string {
	if xs == nil {
		xs = []string{}
	}
	b, _ := json.Marshal(xs)
	return string(b)
}

func jsonTextOrNil(xs []string) any {
	if xs == nil {
		return nil
	}
	b, _ := json.Marshal(xs)
	return string(b)
}

func fromJSONText(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var xs []string
	_ = json.Unmarshal([]byte(ns.String), &xs)
	return xs
}

type listStore struct {
	db *sql.DB
}

const listColumns = `id, user_id, media_id, media_type, status, rating, notes, progress, created_at, updated_at`

func (r *listStore) Insert(ctx context.Context, e models.ListEntry) (models.ListEntry, error) {
	now := time.Now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO user_lists (`+listColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, media_id) DO NOTHING
	`, e.ID, e.UserID, e.MediaID, string(e.MediaType), e.Status, e.Rating, e.Notes,
		progressText(e.Progress), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return models.ListEntry{}, fmt.Errorf("insert list entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ListEntry{}, storage.ErrAlreadyExists
	}
	return e, nil
}

func (r *listStore) Get(ctx context.Context, id, userID string) (*models.ListEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+listColumns+`
		FROM user_lists
		WHERE id = ? AND user_id = ?
	`, id, userID)

	e, err := scanListEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *listStore) List(ctx context.Context, userID string, f storage.ListFilter) ([]models.ListEntry, error) {
	q := `SELECT ` + listColumns + ` FROM user_lists WHERE user_id = ?`
	args := []any{userID}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.MediaType != "" {
		q += ` AND media_type = ?`
		args = append(args, string(f.MediaType))
	}
	q += ` ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []models.ListEntry
	for rows.Next() {
		e, err := scanListEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *listStore) Update(ctx context.Context, id, userID string, upd models.ListEntryUpdate) (*models.ListEntry, error) {
	var set []string
	var args []any

	if upd.Status != nil {
		set = append(set, "status = ?")
		args = append(args, *upd.Status)
	}
	if upd.Progress != nil {
		set = append(set, "progress = ?")
		args = append(args, progressText(upd.Progress))
	}
	if upd.Rating != nil {
		set = append(set, "rating = ?")
		args = append(args, *upd.Rating)
	}
	if upd.Notes != nil {
		set = append(set, "notes = ?")
		args = append(args, *upd.Notes)
	}
	set = append(set, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, id, userID)

	res, err := r.db.ExecContext(ctx, `
		UPDATE user_lists SET `+strings.Join(set, ", ")+`
		WHERE id = ? AND user_id = ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("update list entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, storage.ErrNotFound
	}
	return r.Get(ctx, id, userID)
}

func (r *listStore) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM user_lists WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete list entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanListEntry(s scanner) (models.ListEntry, error) {
	var (
		e        models.ListEntry
		mt       string
		progress sql.NullString
	)
	err := s.Scan(&e.ID, &e.UserID, &e.MediaID, &mt, &e.Status, &e.Rating, &e.Notes,
		&progress, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.ListEntry{}, err
		}
		return models.ListEntry{}, fmt.Errorf("scan list row: %w", err)
	}
	e.MediaType = models.MediaType(mt)
	if progress.Valid && progress.String != "" {
		_ = json.Unmarshal([]byte(progress.String), &e.Progress)
	}
	return e, nil
}

func progressText(p models.Progress) any {
	if p == nil {
		return nil
	}
	b, _ := json.Marshal(p)
	return string(b)
}

type prefsStore struct {
	db *sql.DB
}

func (r *prefsStore) Get(ctx context.Context, userID string) (*models.UserPreferences, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, theme, language, notifications_enabled, created_at, updated_at
		FROM user_preferences
		WHERE user_id = ?
	`, userID)

	var p models.UserPreferences
	err := row.Scan(&p.ID, &p.UserID, &p.Theme, &p.Language, &p.NotificationsEnabled, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return &p, nil
}

func (r *prefsStore) Upsert(ctx context.Context, p models.UserPreferences) (*models.UserPreferences, error) {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (id, user_id, theme, language, notifications_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			theme = excluded.theme,
			language = excluded.language,
			notifications_enabled = excluded.notifications_enabled,
			updated_at = excluded.updated_at
	`, p.ID, p.UserID, p.Theme, p.Language, p.NotificationsEnabled, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert preferences: %w", err)
	}
	return r.Get(ctx, p.UserID)
}
