package models

import (
	"encoding/json"
	"time"
)

// MediaType identifies which upstream catalog a record came from and which
// detail fields apply to it.
type MediaType string

const (
	TypeMovie MediaType = "movie"
	TypeTV    MediaType = "tv"
	TypeAnime MediaType = "anime"
	TypeManga MediaType = "manga"
	TypeBook  MediaType = "book"
	TypeGame  MediaType = "game"
)

// AllMediaTypes lists the recognized media types in a stable order.
var AllMediaTypes = []MediaType{TypeMovie, TypeTV, TypeAnime, TypeManga, TypeBook, TypeGame}

// ParseMediaType returns the typed value for a raw string, or false when the
// string is not one of the six recognized types.
func ParseMediaType(s string) (MediaType, bool) {
	t := MediaType(s)
	for _, mt := range AllMediaTypes {
		if t == mt {
			return t, true
		}
	}
	return "", false
}

// Details is the type-specific half of a MediaRecord. Exactly one concrete
// detail struct matches each media type; movies carry no extra fields and use
// a nil Details.
type Details interface {
	mediaType() MediaType
}

type TVDetails struct {
	Seasons  *int
	Episodes *int
}

type AnimeDetails struct {
	Episodes *int
	Status   *string // upstream airing status, e.g. RELEASING, FINISHED
}

type MangaDetails struct {
	Chapters *int
	Volumes  *int
	Status   *string
}

type BookDetails struct {
	Authors   []string
	Publisher *string
	PageCount *int
	ISBN      *string
}

type GameDetails struct {
	Platforms   []string
	Developers  []string
	Publishers  []string
	ReleaseYear *int
	Rating      *float64
	GameModes   []string
}

func (TVDetails) mediaType() MediaType    { return TypeTV }
func (AnimeDetails) mediaType() MediaType { return TypeAnime }
func (MangaDetails) mediaType() MediaType { return TypeManga }
func (BookDetails) mediaType() MediaType  { return TypeBook }
func (GameDetails) mediaType() MediaType  { return TypeGame }

// MediaRecord is the normalized, provider-agnostic form of one piece of
// trackable content. All adapters map into this structure first; stores
// flatten it to the sparse wide row via Wire().
//
// (ExternalID, Type) is unique within a store. Records are written once and
// never updated: later searches return the first-cached copy verbatim.
type MediaRecord struct {
	ID         string
	ExternalID string
	Type       MediaType

	Title        string
	Year         *int
	Genres       []string
	PosterPath   *string
	Overview     *string
	BackdropPath *string
	VoteAverage  *float64 // normalized to 0-10 regardless of provider scale
	ReleaseDate  *string

	Details Details

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MediaWire is the flat, sparse shape shared by the JSON surface and the
// storage codecs: every type-specific field is present in the schema and nil
// for types it does not apply to.
type MediaWire struct {
	ID           string    `json:"id" bson:"_id"`
	ExternalID   string    `json:"external_id" bson:"external_id"`
	MediaType    MediaType `json:"media_type" bson:"media_type"`
	Title        string    `json:"title" bson:"title"`
	Year         *int      `json:"year" bson:"year,omitempty"`
	Genres       []string  `json:"genres" bson:"genres"`
	PosterPath   *string   `json:"poster_path" bson:"poster_path,omitempty"`
	Overview     *string   `json:"overview" bson:"overview,omitempty"`
	BackdropPath *string   `json:"backdrop_path" bson:"backdrop_path,omitempty"`
	VoteAverage  *float64  `json:"vote_average" bson:"vote_average,omitempty"`
	ReleaseDate  *string   `json:"release_date" bson:"release_date,omitempty"`

	Seasons  *int `json:"seasons,omitempty" bson:"seasons,omitempty"`
	Episodes *int `json:"episodes,omitempty" bson:"episodes,omitempty"`

	Chapters *int    `json:"chapters,omitempty" bson:"chapters,omitempty"`
	Volumes  *int    `json:"volumes,omitempty" bson:"volumes,omitempty"`
	Status   *string `json:"status,omitempty" bson:"status,omitempty"`

	Authors   []string `json:"authors,omitempty" bson:"authors,omitempty"`
	Publisher *string  `json:"publisher,omitempty" bson:"publisher,omitempty"`
	PageCount *int     `json:"page_count,omitempty" bson:"page_count,omitempty"`
	ISBN      *string  `json:"isbn,omitempty" bson:"isbn,omitempty"`

	Platforms   []string `json:"platforms,omitempty" bson:"platforms,omitempty"`
	Developers  []string `json:"developers,omitempty" bson:"developers,omitempty"`
	Publishers  []string `json:"publishers,omitempty" bson:"publishers,omitempty"`
	ReleaseYear *int     `json:"release_year,omitempty" bson:"release_year,omitempty"`
	Rating      *float64 `json:"rating,omitempty" bson:"rating,omitempty"`
	GameModes   []string `json:"game_modes,omitempty" bson:"game_modes,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Wire flattens the record to the sparse wide shape.
func (r MediaRecord) Wire() MediaWire {
	w := MediaWire{
		ID:           r.ID,
		ExternalID:   r.ExternalID,
		MediaType:    r.Type,
		Title:        r.Title,
		Year:         r.Year,
		Genres:       r.Genres,
		PosterPath:   r.PosterPath,
		Overview:     r.Overview,
		BackdropPath: r.BackdropPath,
		VoteAverage:  r.VoteAverage,
		ReleaseDate:  r.ReleaseDate,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if w.Genres == nil {
		w.Genres = []string{}
	}

	switch d := r.Details.(type) {
	case TVDetails:
		w.Seasons = d.Seasons
		w.Episodes = d.Episodes
	case AnimeDetails:
		w.Episodes = d.Episodes
		w.Status = d.Status
	case MangaDetails:
		w.Chapters = d.Chapters
		w.Volumes = d.Volumes
		w.Status = d.Status
	case BookDetails:
		w.Authors = d.Authors
		w.Publisher = d.Publisher
		w.PageCount = d.PageCount
		w.ISBN = d.ISBN
	case GameDetails:
		w.Platforms = d.Platforms
		w.Developers = d.Developers
		w.Publishers = d.Publishers
		w.ReleaseYear = d.ReleaseYear
		w.Rating = d.Rating
		w.GameModes = d.GameModes
	}
	return w
}

// Record rebuilds the tagged-union form from a wide row. Detail structs are
// attached based on media_type; stray fields from other types are dropped.
func (w MediaWire) Record() MediaRecord {
	r := MediaRecord{
		ID:           w.ID,
		ExternalID:   w.ExternalID,
		Type:         w.MediaType,
		Title:        w.Title,
		Year:         w.Year,
		Genres:       w.Genres,
		PosterPath:   w.PosterPath,
		Overview:     w.Overview,
		BackdropPath: w.BackdropPath,
		VoteAverage:  w.VoteAverage,
		ReleaseDate:  w.ReleaseDate,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}

	switch w.MediaType {
	case TypeTV:
		if w.Seasons != nil || w.Episodes != nil {
			r.Details = TVDetails{Seasons: w.Seasons, Episodes: w.Episodes}
		}
	case TypeAnime:
		if w.Episodes != nil || w.Status != nil {
			r.Details = AnimeDetails{Episodes: w.Episodes, Status: w.Status}
		}
	case TypeManga:
		if w.Chapters != nil || w.Volumes != nil || w.Status != nil {
			r.Details = MangaDetails{Chapters: w.Chapters, Volumes: w.Volumes, Status: w.Status}
		}
	case TypeBook:
		if len(w.Authors) > 0 || w.Publisher != nil || w.PageCount != nil || w.ISBN != nil {
			r.Details = BookDetails{Authors: w.Authors, Publisher: w.Publisher, PageCount: w.PageCount, ISBN: w.ISBN}
		}
	case TypeGame:
		if len(w.Platforms) > 0 || len(w.Developers) > 0 || len(w.Publishers) > 0 ||
			w.ReleaseYear != nil || w.Rating != nil || len(w.GameModes) > 0 {
			r.Details = GameDetails{
				Platforms:   w.Platforms,
				Developers:  w.Developers,
				Publishers:  w.Publishers,
				ReleaseYear: w.ReleaseYear,
				Rating:      w.Rating,
				GameModes:   w.GameModes,
			}
		}
	}
	return r
}

func (r MediaRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Wire())
}

func (r *MediaRecord) UnmarshalJSON(b []byte) error {
	var w MediaWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = w.Record()
	return nil
}

// Ptr returns a pointer to v. Adapters use it when building sparse records.
func Ptr[T any](v T) *T { return &v }
