package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"mediatrakker/pkg/config"
	"mediatrakker/pkg/models"
)

// GoogleBooks serves books with a single GET per search. Upstream trouble is
// absorbed here: a transport failure degrades to zero results, and partial
// volume metadata maps to null fields instead of errors.
type GoogleBooks struct {
	URL    string
	Client *http.Client
	Log    *zap.Logger
}

func NewGoogleBooks(cfg config.BooksConfig, client *http.Client, log *zap.Logger) *GoogleBooks {
	return &GoogleBooks{URL: cfg.URL, Client: client, Log: log}
}

func (a *GoogleBooks) Name() string { return "googlebooks" }

type booksVolume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title         string   `json:"title"`
		Authors       []string `json:"authors"`
		Publisher     string   `json:"publisher"`
		PublishedDate string   `json:"publishedDate"`
		Description   string   `json:"description"`
		PageCount     *int     `json:"pageCount"`
		Categories    []string `json:"categories"`
		AverageRating *float64 `json:"averageRating"`

		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`

		ImageLinks *struct {
			Thumbnail      string `json:"thumbnail"`
			SmallThumbnail string `json:"smallThumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

type booksResponse struct {
	Items []json.RawMessage `json:"items"`
}

func (a *GoogleBooks) Search(ctx context.Context, query string, mediaType models.MediaType, page int) ([]RawItem, error) {
	startIndex := (page - 1) * 10

	u, err := url.Parse(a.URL)
	if err != nil {
		return nil, fmt.Errorf("googlebooks: parse url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("startIndex", strconv.Itoa(startIndex))
	q.Set("maxResults", "10")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("googlebooks: build request: %w", err)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		// degrade to an empty page rather than failing the search
		a.Log.Warn("google books request failed", zap.Error(err))
		return nil, nil
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.Log.Warn("google books non-200 response", zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	var out booksResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		a.Log.Warn("google books malformed payload", zap.Error(err))
		return nil, nil
	}

	items := make([]RawItem, 0, len(out.Items))
	for _, payload := range out.Items {
		var idOnly struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(payload, &idOnly); err != nil || idOnly.ID == "" {
			continue
		}
		items = append(items, RawItem{ExternalID: idOnly.ID, Type: models.TypeBook, Payload: payload})
	}
	return items, nil
}

func (a *GoogleBooks) Normalize(ctx context.Context, item RawItem) (*models.MediaRecord, error) {
	var v booksVolume
	if err := json.Unmarshal(item.Payload, &v); err != nil {
		return nil, fmt.Errorf("googlebooks: decode item %s: %w", item.ExternalID, err)
	}
	info := v.VolumeInfo

	rec := &models.MediaRecord{
		ExternalID:  item.ExternalID,
		Type:        models.TypeBook,
		Title:       info.Title,
		Genres:      info.Categories,
		Year:        yearFromDate(info.PublishedDate),
		VoteAverage: info.AverageRating,
	}
	if info.Description != "" {
		rec.Overview = models.Ptr(info.Description)
	}
	if info.PublishedDate != "" {
		rec.ReleaseDate = models.Ptr(info.PublishedDate)
	}
	if info.ImageLinks != nil {
		if thumb := firstNonEmpty(info.ImageLinks.Thumbnail, info.ImageLinks.SmallThumbnail); thumb != "" {
			rec.PosterPath = models.Ptr(thumb)
		}
	}

	details := models.BookDetails{Authors: info.Authors, PageCount: info.PageCount}
	if info.Publisher != "" {
		details.Publisher = models.Ptr(info.Publisher)
	}
	// ISBN-13 preferred, ISBN-10 accepted
	for _, ident := range info.IndustryIdentifiers {
		if ident.Identifier == "" {
			continue
		}
		if ident.Type == "ISBN_13" {
			details.ISBN = models.Ptr(ident.Identifier)
			break
		}
		if ident.Type == "ISBN_10" && details.ISBN == nil {
			details.ISBN = models.Ptr(ident.Identifier)
		}
	}
	if len(details.Authors) > 0 || details.Publisher != nil || details.PageCount != nil || details.ISBN != nil {
		rec.Details = details
	}
	return rec, nil
}
