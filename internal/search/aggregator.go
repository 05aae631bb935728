// Package search implements the search-and-cache aggregation flow: probe the
// local cache, and on insufficient hits fan out to the provider matching the
// media type, normalizing and persisting each result idempotently.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mediatrakker/internal/provider"
	"mediatrakker/internal/storage"
	"mediatrakker/pkg/models"
)

const (
	// cacheProbeLimit caps how many cached rows the title probe inspects.
	cacheProbeLimit = 10
	// cacheHitMin is the fixed cache-sufficiency threshold: at least this
	// many local matches and no upstream call is made.
	cacheHitMin = 5
)

const (
	SourceCache    = "cache"
	SourceExternal = "external"
)

var (
	ErrEmptyQuery       = errors.New("search query cannot be empty")
	ErrUnknownMediaType = errors.New("media type must be one of: movie, tv, anime, manga, book, game")
)

type Aggregator struct {
	Media     storage.MediaStore
	Providers provider.Registry
	Log       *zap.Logger
}

func NewAggregator(media storage.MediaStore, providers provider.Registry, log *zap.Logger) *Aggregator {
	return &Aggregator{Media: media, Providers: providers, Log: log}
}

// Search returns the unified result list and its source tag. Upstream
// failures degrade (empty list, skipped items); only storage failures and
// invalid input surface as errors.
func (a *Aggregator) Search(ctx context.Context, query, mediaType string, page int) ([]models.MediaRecord, string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, "", ErrEmptyQuery
	}
	mt, ok := models.ParseMediaType(mediaType)
	if !ok {
		return nil, "", ErrUnknownMediaType
	}
	if page < 1 {
		page = 1
	}

	cached, err := a.Media.FindByTitle(ctx, q, mt, cacheProbeLimit)
	if err != nil {
		return nil, "", fmt.Errorf("cache probe: %w", err)
	}
	if len(cached) >= cacheHitMin {
		return cached, SourceCache, nil
	}

	adapter, ok := a.Providers.For(mt)
	if !ok {
		return nil, "", ErrUnknownMediaType
	}

	raws, err := adapter.Search(ctx, q, mt, page)
	if err != nil {
		// one broken provider should not fail the request
		a.Log.Warn("provider search failed",
			zap.String("provider", adapter.Name()),
			zap.String("media_type", string(mt)),
			zap.Error(err))
		return []models.MediaRecord{}, SourceExternal, nil
	}

	results := make([]models.MediaRecord, 0, len(raws))
	for _, raw := range raws {
		existing, err := a.Media.FindByExternalID(ctx, raw.ExternalID, raw.Type)
		if err != nil {
			return nil, "", fmt.Errorf("cache lookup: %w", err)
		}
		if existing != nil {
			// first-cached copy wins, verbatim
			results = append(results, *existing)
			continue
		}

		rec, err := adapter.Normalize(ctx, raw)
		if err != nil {
			a.Log.Warn("skipping item",
				zap.String("provider", adapter.Name()),
				zap.String("external_id", raw.ExternalID),
				zap.Error(err))
			continue
		}

		stored, _, err := a.Media.InsertIfAbsent(ctx, *rec)
		if err != nil {
			return nil, "", fmt.Errorf("cache insert: %w", err)
		}
		results = append(results, stored)
	}
	return results, SourceExternal, nil
}
