package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseMediaType(t *testing.T) {
	for _, mt := range AllMediaTypes {
		got, ok := ParseMediaType(string(mt))
		if !ok || got != mt {
			t.Errorf("ParseMediaType(%q) = %q, %v", mt, got, ok)
		}
	}
	for _, bad := range []string{"", "film", "Movie", "podcast"} {
		if _, ok := ParseMediaType(bad); ok {
			t.Errorf("ParseMediaType(%q) accepted", bad)
		}
	}
}

func TestWireRecordKeepsDetailsByType(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := MediaRecord{
		ID:         "id-1",
		ExternalID: "1399",
		Type:       TypeTV,
		Title:      "Game of Thrones",
		Year:       Ptr(2011),
		Genres:     []string{"Drama", "Fantasy"},
		Details:    TVDetails{Seasons: Ptr(8), Episodes: Ptr(73)},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	got := rec.Wire().Record()
	d, ok := got.Details.(TVDetails)
	if !ok {
		t.Fatalf("Details = %#v, want TVDetails", got.Details)
	}
	if d.Seasons == nil || *d.Seasons != 8 || d.Episodes == nil || *d.Episodes != 73 {
		t.Errorf("TVDetails = %+v", d)
	}
	if got.Title != rec.Title || got.Year == nil || *got.Year != 2011 {
		t.Errorf("common fields lost: %+v", got)
	}
}

func TestWireRecordCarriesStatusAndISBN(t *testing.T) {
	manga := MediaRecord{
		ID:         "id-m",
		ExternalID: "30002",
		Type:       TypeManga,
		Title:      "Berserk",
		Details:    MangaDetails{Chapters: Ptr(364), Status: Ptr("RELEASING")},
	}
	md, ok := manga.Wire().Record().Details.(MangaDetails)
	if !ok || md.Status == nil || *md.Status != "RELEASING" {
		t.Errorf("manga round trip Details = %#v", manga.Wire().Record().Details)
	}

	book := MediaRecord{
		ID:         "id-b",
		ExternalID: "abc",
		Type:       TypeBook,
		Title:      "Dune",
		Details:    BookDetails{ISBN: Ptr("9780441013593")},
	}
	bd, ok := book.Wire().Record().Details.(BookDetails)
	if !ok || bd.ISBN == nil || *bd.ISBN != "9780441013593" {
		t.Errorf("book round trip Details = %#v", book.Wire().Record().Details)
	}
}

func TestRecordDropsStrayDetailFields(t *testing.T) {
	// A movie row carrying leftover book columns must come back with nil
	// Details, not a bogus BookDetails.
	w := MediaWire{
		ID:        "id-2",
		MediaType: TypeMovie,
		Title:     "Dune",
		Authors:   []string{"stray"},
		PageCount: Ptr(400),
	}
	got := w.Record()
	if got.Details != nil {
		t.Errorf("movie Details = %#v, want nil", got.Details)
	}
}

func TestMarshalJSONWideShape(t *testing.T) {
	rec := MediaRecord{
		ID:         "id-3",
		ExternalID: "9627",
		Type:       TypeGame,
		Title:      "Hades",
		Details: GameDetails{
			Platforms:  []string{"PC", "Switch"},
			Developers: []string{"Supergiant Games"},
		},
	}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if !strings.Contains(s, `"platforms":["PC","Switch"]`) {
		t.Errorf("platforms not flattened: %s", s)
	}
	if strings.Contains(s, `"Details"`) || strings.Contains(s, `"details"`) {
		t.Errorf("nested details leaked: %s", s)
	}
	// absent genres serialize as [] rather than null
	if !strings.Contains(s, `"genres":[]`) {
		t.Errorf("genres not defaulted to []: %s", s)
	}

	var back MediaRecord
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	d, ok := back.Details.(GameDetails)
	if !ok || len(d.Platforms) != 2 {
		t.Errorf("round trip Details = %#v", back.Details)
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"watching", StatusWatching},
		{"  Completed ", StatusCompleted},
		{"PLANNING", StatusPlanning},
		{"binging", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeStatus(tt.in); got != tt.want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
