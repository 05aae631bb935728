// Package provider holds one adapter per upstream content API. Each adapter
// knows how to query its provider and map one raw item into the normalized
// MediaRecord shape; everything provider-specific stays behind the Adapter
// interface.
package provider

import (
	"context"
	"encoding/json"

	"mediatrakker/pkg/models"
)

// RawItem is one un-normalized search hit. ExternalID is the provider-native
// id in string form; Payload carries the provider's raw JSON for Normalize.
type RawItem struct {
	ExternalID string
	Type       models.MediaType
	Payload    json.RawMessage
}

// Adapter is implemented by each upstream source (TMDB, AniList, Google
// Books, IGDB).
//
// Search fetches one page of raw hits. Normalize maps a single hit into a
// MediaRecord and may do further network calls (TMDB fetches a details page
// per hit); a Normalize failure affects only that item.
type Adapter interface {
	Name() string
	Search(ctx context.Context, query string, mediaType models.MediaType, page int) ([]RawItem, error)
	Normalize(ctx context.Context, item RawItem) (*models.MediaRecord, error)
}

// Registry dispatches a media type to its adapter.
type Registry map[models.MediaType]Adapter

func (r Registry) For(t models.MediaType) (Adapter, bool) {
	a, ok := r[t]
	return a, ok
}
