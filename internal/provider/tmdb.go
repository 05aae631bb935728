package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"mediatrakker/pkg/config"
	"mediatrakker/pkg/models"
)

// TMDB serves movies and TV shows. Search hits only carry the id; full
// metadata comes from a second details request per hit inside Normalize
// (no batch endpoint upstream).
type TMDB struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Client       *http.Client
}

func NewTMDB(cfg config.TMDBConfig, client *http.Client) *TMDB {
	return &TMDB{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		ImageBaseURL: cfg.ImageBaseURL,
		Client:       client,
	}
}

func (a *TMDB) Name() string { return "tmdb" }

type tmdbSearchResponse struct {
	Results []struct {
		ID int64 `json:"id"`
	} `json:"results"`
}

func (a *TMDB) Search(ctx context.Context, query string, mediaType models.MediaType, page int) ([]RawItem, error) {
	endpoint := "/search/movie"
	if mediaType == models.TypeTV {
		endpoint = "/search/tv"
	}

	u, err := url.Parse(a.BaseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("tmdb: parse url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", a.APIKey)
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	var resp tmdbSearchResponse
	if err := a.getJSON(ctx, u.String(), &resp); err != nil {
		return nil, err
	}

	items := make([]RawItem, 0, len(resp.Results))
	for _, hit := range resp.Results {
		items = append(items, RawItem{
			ExternalID: strconv.FormatInt(hit.ID, 10),
			Type:       mediaType,
		})
	}
	return items, nil
}

type tmdbDetails struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`         // movies
	Name         string `json:"name"`          // tv
	OriginalName string `json:"original_name"` // tv fallback
	Genres       []struct {
		Name string `json:"name"`
	} `json:"genres"`
	PosterPath       *string  `json:"poster_path"`
	BackdropPath     *string  `json:"backdrop_path"`
	Overview         *string  `json:"overview"`
	VoteAverage      *float64 `json:"vote_average"`
	ReleaseDate      string   `json:"release_date"`   // movies
	FirstAirDate     string   `json:"first_air_date"` // tv
	NumberOfSeasons  *int     `json:"number_of_seasons"`
	NumberOfEpisodes *int     `json:"number_of_episodes"`
}

func (a *TMDB) Normalize(ctx context.Context, item RawItem) (*models.MediaRecord, error) {
	endpoint := "/movie/" + item.ExternalID
	if item.Type == models.TypeTV {
		endpoint = "/tv/" + item.ExternalID
	}

	var d tmdbDetails
	if err := a.getJSON(ctx, a.BaseURL+endpoint+"?api_key="+url.QueryEscape(a.APIKey), &d); err != nil {
		return nil, err
	}

	genres := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		genres = append(genres, g.Name)
	}

	rec := &models.MediaRecord{
		ExternalID:   item.ExternalID,
		Type:         item.Type,
		Genres:       genres,
		PosterPath:   a.imageURL(d.PosterPath),
		BackdropPath: a.imageURL(d.BackdropPath),
		Overview:     d.Overview,
		VoteAverage:  d.VoteAverage,
	}

	switch item.Type {
	case models.TypeTV:
		rec.Title = d.Name
		if rec.Title == "" {
			rec.Title = d.OriginalName
		}
		rec.Year = yearFromDate(d.FirstAirDate)
		if d.FirstAirDate != "" {
			rec.ReleaseDate = models.Ptr(d.FirstAirDate)
		}
		if d.NumberOfSeasons != nil || d.NumberOfEpisodes != nil {
			rec.Details = models.TVDetails{Seasons: d.NumberOfSeasons, Episodes: d.NumberOfEpisodes}
		}
	default:
		rec.Title = d.Title
		rec.Year = yearFromDate(d.ReleaseDate)
		if d.ReleaseDate != "" {
			rec.ReleaseDate = models.Ptr(d.ReleaseDate)
		}
	}
	return rec, nil
}

// imageURL absolute-izes a TMDB image path against the configured CDN base.
func (a *TMDB) imageURL(path *string) *string {
	if path == nil || *path == "" {
		return nil
	}
	return models.Ptr(a.ImageBaseURL + *path)
}

func (a *TMDB) getJSON(ctx context.Context, rawurl string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return fmt.Errorf("tmdb: build request: %w", err)
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb: request: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb: status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tmdb: decode: %w", err)
	}
	return nil
}

// yearFromDate parses the leading 4 digits of an ISO-ish date string; an
// absent or malformed date yields nil rather than an error.
func yearFromDate(date string) *int {
	if len(date) < 4 {
		return nil
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return &y
}
