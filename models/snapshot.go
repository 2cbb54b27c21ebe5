package models

import (
	"strings"
	"time"
)

// GenreAll is the filter value meaning "no genre filter".
const GenreAll = "All"

// FilterKey identifies one recommendation view: a media type plus a genre.
// One snapshot exists per filter key observed during a session.
type FilterKey struct {
	MediaType MediaType `json:"mediaType"`
	Genre     string    `json:"genre"`
}

// NewFilterKey normalizes raw client input into a filter key. An empty genre
// means All.
func NewFilterKey(mediaType, genre string) FilterKey {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		genre = GenreAll
	}
	return FilterKey{MediaType: NormalizeMediaType(mediaType), Genre: genre}
}

// String returns the canonical form used in persistence keys and logs.
func (f FilterKey) String() string {
	return string(f.MediaType) + ":" + strings.ToLower(f.Genre)
}

// RecommendationSnapshot is the most recent fetched result set for one filter
// key, together with when it was fetched. A refresh replaces Items wholesale.
type RecommendationSnapshot struct {
	Items     []ContentItem `json:"items"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Filter    FilterKey     `json:"filter"`
}
