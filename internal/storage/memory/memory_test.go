package memory

import (
	"context"
	"errors"
	"testing"

	"mediatrakker/internal/storage"
	"mediatrakker/pkg/models"
)

func TestInsertIfAbsentReturnsExisting(t *testing.T) {
	ctx := context.Background()
	media := New().Media()

	first, created, err := media.InsertIfAbsent(ctx, models.MediaRecord{
		ExternalID: "550", Type: models.TypeMovie, Title: "Fight Club",
	})
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	if first.ID == "" {
		t.Fatal("insert did not assign an id")
	}

	second, created, err := media.InsertIfAbsent(ctx, models.MediaRecord{
		ExternalID: "550", Type: models.TypeMovie, Title: "Fight Club (dupe)",
	})
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("duplicate insert reported created")
	}
	if second.ID != first.ID || second.Title != "Fight Club" {
		t.Errorf("duplicate returned %+v, want first copy", second)
	}
}

func TestInsertIfAbsentSameIDDifferentType(t *testing.T) {
	ctx := context.Background()
	media := New().Media()

	if _, created, _ := media.InsertIfAbsent(ctx, models.MediaRecord{
		ExternalID: "42", Type: models.TypeMovie, Title: "A",
	}); !created {
		t.Fatal("movie insert not created")
	}
	// same external id under a different type is a distinct record
	if _, created, _ := media.InsertIfAbsent(ctx, models.MediaRecord{
		ExternalID: "42", Type: models.TypeTV, Title: "B",
	}); !created {
		t.Error("tv insert with same external id not created")
	}
}

func TestFindByTitleCaseInsensitiveSubstring(t *testing.T) {
	ctx := context.Background()
	media := New().Media()

	for _, title := range []string{"The Matrix", "The Matrix Reloaded", "Inception"} {
		if _, _, err := media.InsertIfAbsent(ctx, models.MediaRecord{
			ExternalID: title, Type: models.TypeMovie, Title: title,
		}); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := media.InsertIfAbsent(ctx, models.MediaRecord{
		ExternalID: "m1", Type: models.TypeTV, Title: "Matrix Documentary",
	}); err != nil {
		t.Fatal(err)
	}

	got, err := media.FindByTitle(ctx, "matrix", models.TypeMovie, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	// results come back title-sorted
	if got[0].Title != "The Matrix" || got[1].Title != "The Matrix Reloaded" {
		t.Errorf("order: %q, %q", got[0].Title, got[1].Title)
	}

	limited, err := media.FindByTitle(ctx, "matrix", models.TypeMovie, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit not applied: got %d", len(limited))
	}
}

func TestFindByExternalIDMissingIsNilNil(t *testing.T) {
	got, err := New().Media().FindByExternalID(context.Background(), "nope", models.TypeBook)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestListUniquePerUserAndMedia(t *testing.T) {
	ctx := context.Background()
	lists := New().Lists()

	entry := models.ListEntry{UserID: "u1", MediaID: "m1", MediaType: models.TypeMovie, Status: models.StatusWatching}
	saved, err := lists.Insert(ctx, entry)
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" {
		t.Fatal("insert did not assign an id")
	}

	if _, err := lists.Insert(ctx, entry); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Errorf("duplicate insert err = %v, want ErrAlreadyExists", err)
	}
	// same media under another user is fine
	other := entry
	other.UserID = "u2"
	if _, err := lists.Insert(ctx, other); err != nil {
		t.Errorf("other user insert err = %v", err)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	lists := New().Lists()

	seed := []models.ListEntry{
		{UserID: "u1", MediaID: "m1", MediaType: models.TypeMovie, Status: models.StatusWatching},
		{UserID: "u1", MediaID: "m2", MediaType: models.TypeBook, Status: models.StatusReading},
		{UserID: "u1", MediaID: "m3", MediaType: models.TypeMovie, Status: models.StatusCompleted},
		{UserID: "u2", MediaID: "m4", MediaType: models.TypeMovie, Status: models.StatusWatching},
	}
	for _, e := range seed {
		if _, err := lists.Insert(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	all, err := lists.List(ctx, "u1", storage.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("unfiltered: got %d, want 3", len(all))
	}

	movies, _ := lists.List(ctx, "u1", storage.ListFilter{MediaType: models.TypeMovie})
	if len(movies) != 2 {
		t.Errorf("media_type filter: got %d, want 2", len(movies))
	}

	watching, _ := lists.List(ctx, "u1", storage.ListFilter{Status: models.StatusWatching})
	if len(watching) != 1 || watching[0].MediaID != "m1" {
		t.Errorf("status filter: got %+v", watching)
	}
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	lists := New().Lists()

	status := models.StatusCompleted
	if _, err := lists.Update(ctx, "missing", "u1", models.ListEntryUpdate{Status: &status}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("update missing err = %v, want ErrNotFound", err)
	}
	if err := lists.Delete(ctx, "missing", "u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("delete missing err = %v, want ErrNotFound", err)
	}

	saved, err := lists.Insert(ctx, models.ListEntry{UserID: "u1", MediaID: "m1", MediaType: models.TypeGame, Status: models.StatusPlaying})
	if err != nil {
		t.Fatal(err)
	}
	// another user cannot touch the entry
	if _, err := lists.Update(ctx, saved.ID, "u2", models.ListEntryUpdate{Status: &status}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("cross-user update err = %v, want ErrNotFound", err)
	}
}

func TestUpdatePartialFields(t *testing.T) {
	ctx := context.Background()
	lists := New().Lists()

	rating := 8.5
	saved, err := lists.Insert(ctx, models.ListEntry{
		UserID: "u1", MediaID: "m1", MediaType: models.TypeAnime,
		Status: models.StatusWatching, Rating: &rating,
	})
	if err != nil {
		t.Fatal(err)
	}

	status := models.StatusCompleted
	got, err := lists.Update(ctx, saved.ID, "u1", models.ListEntryUpdate{Status: &status})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusCompleted {
		t.Errorf("Status = %q", got.Status)
	}
	if got.Rating == nil || *got.Rating != 8.5 {
		t.Errorf("Rating clobbered: %v", got.Rating)
	}
}

func TestPrefsGetMissingThenUpsert(t *testing.T) {
	ctx := context.Background()
	prefs := New().Prefs()

	if _, err := prefs.Get(ctx, "u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing err = %v, want ErrNotFound", err)
	}

	saved, err := prefs.Upsert(ctx, models.DefaultPreferences("u1"))
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" || saved.Theme != "dark" {
		t.Errorf("upsert = %+v", saved)
	}

	saved.Language = "de"
	again, err := prefs.Upsert(ctx, *saved)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != saved.ID {
		t.Errorf("upsert changed id: %q -> %q", saved.ID, again.ID)
	}
	got, err := prefs.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Language != "de" {
		t.Errorf("Language = %q", got.Language)
	}
}
