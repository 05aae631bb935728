package provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mediatrakker/pkg/config"
	"mediatrakker/pkg/models"
)

// newTestIGDB serves both the token endpoint and the games endpoint from one
// fake server, the way the real adapter talks to Twitch id plus the API host.
func newTestIGDB(t *testing.T, games string) (*IGDB, *httptest.Server, *int) {
	t.Helper()
	tokenCalls := new(int)
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		*tokenCalls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fake-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/games", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer fake-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Client-ID"); got != "cid" {
			t.Errorf("Client-ID = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `search "`) {
			t.Errorf("apicalypse body missing search clause: %s", body)
		}
		w.Write([]byte(games))
	})
	srv := httptest.NewServer(mux)

	a := NewIGDB(config.IGDBConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/oauth2/token",
	}, srv.Client())
	return a, srv, tokenCalls
}

func TestIGDBSearchExchangesTokenPerCall(t *testing.T) {
	a, srv, tokenCalls := newTestIGDB(t, `[{"id":1020,"name":"Grand Theft Auto V"},{"id":7346}]`)
	defer srv.Close()

	items, err := a.Search(context.Background(), "gta", models.TypeGame, 1)
	if err != nil {
		t.Fatal(err)
	}
	if *tokenCalls != 1 {
		t.Errorf("token calls = %d, want 1", *tokenCalls)
	}
	if len(items) != 2 || items[0].ExternalID != "1020" || items[0].Type != models.TypeGame {
		t.Errorf("items = %+v", items)
	}

	if _, err := a.Search(context.Background(), "gta", models.TypeGame, 2); err != nil {
		t.Fatal(err)
	}
	if *tokenCalls != 2 {
		t.Errorf("token calls after second search = %d, want 2", *tokenCalls)
	}
}

func TestIGDBSearchQuotesQuery(t *testing.T) {
	var gotBody string
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fake-token","token_type":"bearer"}`))
	})
	mux.HandleFunc("/games", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := NewIGDB(config.IGDBConfig{
		ClientID: "cid", ClientSecret: "secret",
		BaseURL: srv.URL, TokenURL: srv.URL + "/oauth2/token",
	}, srv.Client())

	if _, err := a.Search(context.Background(), `say "hello"`, models.TypeGame, 3); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gotBody, `search "say \"hello\"";`) {
		t.Errorf("query not escaped: %s", gotBody)
	}
	if !strings.Contains(gotBody, "offset 20;") {
		t.Errorf("offset not applied: %s", gotBody)
	}

	// a trailing backslash must not escape the closing quote
	if _, err := a.Search(context.Background(), `C:\`, models.TypeGame, 1); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gotBody, `search "C:\\";`) {
		t.Errorf("backslash not escaped: %s", gotBody)
	}
}

func TestIGDBNormalize(t *testing.T) {
	a := NewIGDB(config.IGDBConfig{}, nil)
	rec, err := a.Normalize(context.Background(), RawItem{
		ExternalID: "1020", Type: models.TypeGame,
		Payload: []byte(`{
			"id": 1020,
			"name": "Grand Theft Auto V",
			"summary": "Open world crime.",
			"rating": 93.5,
			"first_release_date": 1379376000,
			"genres": [{"name":"Shooter"},{"name":"Adventure"}],
			"cover": {"image_id":"co2lbd"},
			"platforms": [{"name":"PC"},{"name":"PlayStation 4"}],
			"game_modes": [{"name":"Single player"}],
			"involved_companies": [
				{"company":{"name":"Rockstar North"},"developer":true,"publisher":false},
				{"company":{"name":"Rockstar Games"},"developer":true,"publisher":true}
			]
		}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Title != "Grand Theft Auto V" {
		t.Errorf("Title = %q", rec.Title)
	}
	// 2013-09-17 UTC
	if rec.Year == nil || *rec.Year != 2013 {
		t.Errorf("Year = %v", rec.Year)
	}
	if rec.ReleaseDate == nil || *rec.ReleaseDate != "2013-09-17" {
		t.Errorf("ReleaseDate = %v", rec.ReleaseDate)
	}
	if rec.VoteAverage == nil || *rec.VoteAverage != 9.35 {
		t.Errorf("VoteAverage = %v", rec.VoteAverage)
	}
	want := "https://images.igdb.com/igdb/image/upload/t_cover_big/co2lbd.jpg"
	if rec.PosterPath == nil || *rec.PosterPath != want {
		t.Errorf("PosterPath = %v", rec.PosterPath)
	}

	d, ok := rec.Details.(models.GameDetails)
	if !ok {
		t.Fatalf("Details = %#v", rec.Details)
	}
	if len(d.Developers) != 2 {
		t.Errorf("Developers = %v", d.Developers)
	}
	// Rockstar Games is both developer and publisher
	if len(d.Publishers) != 1 || d.Publishers[0] != "Rockstar Games" {
		t.Errorf("Publishers = %v", d.Publishers)
	}
	if d.Rating == nil || *d.Rating != 93.5 {
		t.Errorf("native Rating = %v", d.Rating)
	}
	if d.ReleaseYear == nil || *d.ReleaseYear != 2013 {
		t.Errorf("ReleaseYear = %v", d.ReleaseYear)
	}
	if len(d.Platforms) != 2 || len(d.GameModes) != 1 {
		t.Errorf("Platforms=%v GameModes=%v", d.Platforms, d.GameModes)
	}
}

func TestIGDBNormalizeSparseGame(t *testing.T) {
	a := NewIGDB(config.IGDBConfig{}, nil)
	rec, err := a.Normalize(context.Background(), RawItem{
		ExternalID: "7346", Type: models.TypeGame,
		Payload: []byte(`{"id":7346,"name":"Unknown Indie"}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Year != nil || rec.VoteAverage != nil || rec.PosterPath != nil {
		t.Errorf("sparse fields not nil: %+v", rec)
	}
}
