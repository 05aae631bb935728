package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("Driver = %q", cfg.Storage.Driver)
	}
	if cfg.User.ID != "demo_user" {
		t.Errorf("User.ID = %q", cfg.User.ID)
	}
	if cfg.Providers.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v", cfg.Providers.Timeout)
	}
	if cfg.Providers.TMDB.BaseURL != "https://api.themoviedb.org/3" {
		t.Errorf("TMDB.BaseURL = %q", cfg.Providers.TMDB.BaseURL)
	}
	if cfg.Providers.IGDB.TokenURL != "https://id.twitch.tv/oauth2/token" {
		t.Errorf("IGDB.TokenURL = %q", cfg.Providers.IGDB.TokenURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MT_STORAGE_DRIVER", "sqlite")
	t.Setenv("MT_USER_ID", "alice")
	t.Setenv("MT_PROVIDERS_TIMEOUT", "3s")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Driver = %q", cfg.Storage.Driver)
	}
	if cfg.User.ID != "alice" {
		t.Errorf("User.ID = %q", cfg.User.ID)
	}
	if cfg.Providers.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v", cfg.Providers.Timeout)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("server:\n  http_addr: \":9090\"\nstorage:\n  driver: mongo\n  mongo_db: testdb\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Storage.Driver != "mongo" || cfg.Storage.MongoDB != "testdb" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	// untouched keys keep their defaults
	if cfg.Providers.AniList.URL != "https://graphql.anilist.co" {
		t.Errorf("AniList.URL = %q", cfg.Providers.AniList.URL)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
