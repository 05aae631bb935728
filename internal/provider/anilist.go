package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"mediatrakker/pkg/config"
	"mediatrakker/pkg/models"
)

// AniList serves anime and manga through one GraphQL query per search; the
// response already carries full metadata, so Normalize never goes back to
// the network.
type AniList struct {
	URL    string
	Client *http.Client
}

func NewAniList(cfg config.AniListConfig, client *http.Client) *AniList {
	return &AniList{URL: cfg.URL, Client: client}
}

func (a *AniList) Name() string { return "anilist" }

const anilistQuery = `
query ($search: String, $type: MediaType, $page: Int, $perPage: Int) {
    Page(page: $page, perPage: $perPage) {
        media(search: $search, type: $type) {
            id
            title { romaji english native }
            status
            episodes
            chapters
            volumes
            genres
            averageScore
            startDate { year month day }
            coverImage { large }
            bannerImage
            description
        }
    }
}`

type anilistMedia struct {
	ID    int64 `json:"id"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	Status       *string  `json:"status"`
	Episodes     *int     `json:"episodes"`
	Chapters     *int     `json:"chapters"`
	Volumes      *int     `json:"volumes"`
	Genres       []string `json:"genres"`
	AverageScore *float64 `json:"averageScore"`
	StartDate    *struct {
		Year  *int `json:"year"`
		Month *int `json:"month"`
		Day   *int `json:"day"`
	} `json:"startDate"`
	CoverImage *struct {
		Large string `json:"large"`
	} `json:"coverImage"`
	BannerImage *string `json:"bannerImage"`
	Description *string `json:"description"`
}

type anilistResponse struct {
	Data struct {
		Page struct {
			Media []json.RawMessage `json:"media"`
		} `json:"Page"`
	} `json:"data"`
}

func (a *AniList) Search(ctx context.Context, query string, mediaType models.MediaType, page int) ([]RawItem, error) {
	body, err := json.Marshal(map[string]any{
		"query": anilistQuery,
		"variables": map[string]any{
			"search":  query,
			"type":    strings.ToUpper(string(mediaType)),
			"page":    page,
			"perPage": 10,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anilist: marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anilist: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anilist: request: %w", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anilist: status %d: %s", resp.StatusCode, string(raw))
	}

	var out anilistResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("anilist: decode: %w", err)
	}

	items := make([]RawItem, 0, len(out.Data.Page.Media))
	for _, payload := range out.Data.Page.Media {
		var idOnly struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(payload, &idOnly); err != nil || idOnly.ID == 0 {
			continue
		}
		items = append(items, RawItem{
			ExternalID: strconv.FormatInt(idOnly.ID, 10),
			Type:       mediaType,
			Payload:    payload,
		})
	}
	return items, nil
}

func (a *AniList) Normalize(ctx context.Context, item RawItem) (*models.MediaRecord, error) {
	var m anilistMedia
	if err := json.Unmarshal(item.Payload, &m); err != nil {
		return nil, fmt.Errorf("anilist: decode item %s: %w", item.ExternalID, err)
	}

	title := firstNonEmpty(m.Title.English, m.Title.Romaji, m.Title.Native)
	if title == "" {
		return nil, fmt.Errorf("anilist: item %s has no usable title", item.ExternalID)
	}

	rec := &models.MediaRecord{
		ExternalID: item.ExternalID,
		Type:       item.Type,
		Title:      title,
		Genres:     m.Genres,
		Overview:   m.Description,
	}

	// Native score is 0-100; only divide when present so an unknown score
	// stays null instead of becoming 0.
	if m.AverageScore != nil {
		rec.VoteAverage = models.Ptr(*m.AverageScore / 10)
	}

	if m.StartDate != nil && m.StartDate.Year != nil {
		rec.Year = m.StartDate.Year
		month, day := 1, 1
		if m.StartDate.Month != nil {
			month = *m.StartDate.Month
		}
		if m.StartDate.Day != nil {
			day = *m.StartDate.Day
		}
		rec.ReleaseDate = models.Ptr(fmt.Sprintf("%d-%02d-%02d", *m.StartDate.Year, month, day))
	}

	if m.CoverImage != nil && m.CoverImage.Large != "" {
		rec.PosterPath = models.Ptr(m.CoverImage.Large)
	}
	if m.BannerImage != nil && *m.BannerImage != "" {
		rec.BackdropPath = m.BannerImage
	}

	switch item.Type {
	case models.TypeManga:
		if m.Chapters != nil || m.Volumes != nil || m.Status != nil {
			rec.Details = models.MangaDetails{Chapters: m.Chapters, Volumes: m.Volumes, Status: m.Status}
		}
	default:
		if m.Episodes != nil || m.Status != nil {
			rec.Details = models.AnimeDetails{Episodes: m.Episodes, Status: m.Status}
		}
	}
	return rec, nil
}

func firstNonEmpty(xs ...string) string {
	for _, x := range xs {
		if strings.TrimSpace(x) != "" {
			return x
		}
	}
	return ""
}
