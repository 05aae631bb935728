package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"mediatrakker/pkg/config"
	"mediatrakker/pkg/models"
)

// IGDB serves games. Every search performs a fresh client-credentials
// exchange against the Twitch id service, then one Apicalypse POST; the
// token is not reused across searches.
type IGDB struct {
	BaseURL  string
	ClientID string
	Creds    clientcredentials.Config
	Client   *http.Client
}

func NewIGDB(cfg config.IGDBConfig, client *http.Client) *IGDB {
	return &IGDB{
		BaseURL:  cfg.BaseURL,
		ClientID: cfg.ClientID,
		Creds: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		},
		Client: client,
	}
}

func (a *IGDB) Name() string { return "igdb" }

const igdbFields = `fields name, summary, genres.name, cover.image_id, first_release_date,
rating, platforms.name, game_modes.name,
involved_companies.company.name, involved_companies.developer, involved_companies.publisher;`

type igdbGame struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Summary          string   `json:"summary"`
	Rating           *float64 `json:"rating"`
	FirstReleaseDate *int64   `json:"first_release_date"`
	Genres           []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Cover *struct {
		ImageID string `json:"image_id"`
	} `json:"cover"`
	Platforms []struct {
		Name string `json:"name"`
	} `json:"platforms"`
	GameModes []struct {
		Name string `json:"name"`
	} `json:"game_modes"`
	InvolvedCompanies []struct {
		Company struct {
			Name string `json:"name"`
		} `json:"company"`
		Developer bool `json:"developer"`
		Publisher bool `json:"publisher"`
	} `json:"involved_companies"`
}

func (a *IGDB) Search(ctx context.Context, query string, mediaType models.MediaType, page int) ([]RawItem, error) {
	// route the token exchange through our bounded client
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, a.Client)
	token, err := a.Creds.Token(tokenCtx)
	if err != nil {
		return nil, fmt.Errorf("igdb: token exchange: %w", err)
	}

	// backslashes first, or a trailing \ would escape the closing quote
	quoted := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(query)

	offset := (page - 1) * 10
	body := fmt.Sprintf("%s\nsearch \"%s\"; limit 10; offset %d;",
		igdbFields, quoted, offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/games", strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("igdb: build request: %w", err)
	}
	req.Header.Set("Client-ID", a.ClientID)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("igdb: request: %w", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("igdb: status %d: %s", resp.StatusCode, string(raw))
	}

	var games []json.RawMessage
	if err := json.Unmarshal(raw, &games); err != nil {
		return nil, fmt.Errorf("igdb: decode: %w", err)
	}

	items := make([]RawItem, 0, len(games))
	for _, payload := range games {
		var idOnly struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(payload, &idOnly); err != nil || idOnly.ID == 0 {
			continue
		}
		items = append(items, RawItem{
			ExternalID: fmt.Sprintf("%d", idOnly.ID),
			Type:       models.TypeGame,
			Payload:    payload,
		})
	}
	return items, nil
}

func (a *IGDB) Normalize(ctx context.Context, item RawItem) (*models.MediaRecord, error) {
	var g igdbGame
	if err := json.Unmarshal(item.Payload, &g); err != nil {
		return nil, fmt.Errorf("igdb: decode item %s: %w", item.ExternalID, err)
	}

	genres := make([]string, 0, len(g.Genres))
	for _, x := range g.Genres {
		genres = append(genres, x.Name)
	}
	platforms := make([]string, 0, len(g.Platforms))
	for _, x := range g.Platforms {
		platforms = append(platforms, x.Name)
	}
	gameModes := make([]string, 0, len(g.GameModes))
	for _, x := range g.GameModes {
		gameModes = append(gameModes, x.Name)
	}

	// one company can be both developer and publisher
	var developers, publishers []string
	for _, ic := range g.InvolvedCompanies {
		if ic.Company.Name == "" {
			continue
		}
		if ic.Developer {
			developers = append(developers, ic.Company.Name)
		}
		if ic.Publisher {
			publishers = append(publishers, ic.Company.Name)
		}
	}

	rec := &models.MediaRecord{
		ExternalID: item.ExternalID,
		Type:       models.TypeGame,
		Title:      g.Name,
		Genres:     genres,
	}
	if g.Summary != "" {
		rec.Overview = models.Ptr(g.Summary)
	}
	if g.Rating != nil {
		rec.VoteAverage = models.Ptr(*g.Rating / 10)
	}
	if g.Cover != nil && g.Cover.ImageID != "" {
		rec.PosterPath = models.Ptr(fmt.Sprintf(
			"https://images.igdb.com/igdb/image/upload/t_cover_big/%s.jpg", g.Cover.ImageID))
	}

	var releaseYear *int
	if g.FirstReleaseDate != nil {
		released := time.Unix(*g.FirstReleaseDate, 0).UTC()
		releaseYear = models.Ptr(released.Year())
		rec.Year = releaseYear
		rec.ReleaseDate = models.Ptr(released.Format("2006-01-02"))
	}

	rec.Details = models.GameDetails{
		Platforms:   platforms,
		Developers:  developers,
		Publishers:  publishers,
		ReleaseYear: releaseYear,
		Rating:      g.Rating,
		GameModes:   gameModes,
	}
	return rec, nil
}
