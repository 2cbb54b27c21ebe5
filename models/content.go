package models

import (
	"fmt"
	"strings"
)

// MediaType identifies whether a ContentItem is a movie or a TV series.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// NormalizeMediaType maps the spellings clients and providers use onto the
// canonical media types. Unknown values default to TV, matching provider behavior.
func NormalizeMediaType(s string) MediaType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies", "film", "films":
		return MediaTypeMovie
	case "", "tv", "series", "show", "shows":
		return MediaTypeTV
	default:
		return MediaTypeTV
	}
}

// Key is the identity of a content item. Provider IDs are only unique within a
// media type, so both parts are required.
type Key struct {
	MediaType MediaType `json:"mediaType"`
	ID        int64     `json:"id"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.MediaType, k.ID)
}

// ContentItem is the canonical shape for one piece of content, whatever source
// it came from. Fields other than the key may differ transiently between a
// locally stored copy and a freshly fetched one; MergeContent reconciles them.
type ContentItem struct {
	ID               int64      `json:"id"`
	MediaType        MediaType  `json:"mediaType"`
	Title            string     `json:"title"`
	PosterRef        *string    `json:"posterRef,omitempty"`
	BackdropRef      *string    `json:"backdropRef,omitempty"`
	Overview         string     `json:"overview,omitempty"`
	Genres           []GenreRef `json:"genres,omitempty"`
	Rating           float64    `json:"rating,omitempty"`
	ReleaseDate      *string    `json:"releaseDate,omitempty"`
	OriginalLanguage string     `json:"originalLanguage,omitempty"`

	// FullyHydrated is true once the item's metadata came from the
	// authoritative provider rather than an abbreviated list payload.
	FullyHydrated bool `json:"fullyHydrated"`
}

// Key returns the item's identity.
func (c ContentItem) Key() Key {
	return Key{MediaType: c.MediaType, ID: c.ID}
}

// MergeContent reconciles two records for the same logical item. The fresh
// record wins field by field, but a null/empty fresh field never overwrites a
// known base value.
func MergeContent(base, fresh ContentItem) ContentItem {
	out := base
	if fresh.Title != "" {
		out.Title = fresh.Title
	}
	if fresh.PosterRef != nil {
		out.PosterRef = fresh.PosterRef
	}
	if fresh.BackdropRef != nil {
		out.BackdropRef = fresh.BackdropRef
	}
	if fresh.Overview != "" {
		out.Overview = fresh.Overview
	}
	if len(fresh.Genres) > 0 {
		out.Genres = fresh.Genres
	}
	if fresh.Rating != 0 {
		out.Rating = fresh.Rating
	}
	if fresh.ReleaseDate != nil {
		out.ReleaseDate = fresh.ReleaseDate
	}
	if fresh.OriginalLanguage != "" {
		out.OriginalLanguage = fresh.OriginalLanguage
	}
	out.FullyHydrated = base.FullyHydrated || fresh.FullyHydrated
	return out
}
