package genres

import (
	"encoding/json"
	"strings"

	"lanefeed/models"
)

// canonicalGenres maps provider genre ids to canonical display names. The
// table covers the movie and TV genre lists the metadata provider publishes.
var canonicalGenres = map[int64]string{
	28:    "Action",
	12:    "Adventure",
	16:    "Animation",
	35:    "Comedy",
	80:    "Crime",
	99:    "Documentary",
	18:    "Drama",
	10751: "Family",
	14:    "Fantasy",
	36:    "History",
	27:    "Horror",
	10402: "Music",
	9648:  "Mystery",
	10749: "Romance",
	878:   "Sci-Fi",
	10770: "TV Movie",
	53:    "Thriller",
	10752: "War",
	37:    "Western",
	10759: "Action & Adventure",
	10762: "Kids",
	10763: "News",
	10764: "Reality",
	10765: "Sci-Fi & Fantasy",
	10766: "Soap",
	10767: "Talk",
	10768: "War & Politics",
}

// originSplitGenres lists genre names substring matching cannot separate.
// "Anime" is a substring-level cousin of "Animation" but the two are distinct
// categories; the item's original language is the disambiguating signal.
// Kept as an explicit table so the special case is visible in one place.
var originSplitGenres = map[string]struct{}{
	"anime":     {},
	"animation": {},
}

// animeOriginLanguages are the original-language codes that mark an animated
// title as anime rather than western animation.
var animeOriginLanguages = map[string]struct{}{
	"ja": {},
	"ko": {},
	"zh": {},
}

// Resolver normalizes the heterogeneous genre representations providers emit
// into canonical names, and answers genre-filter match queries over them.
type Resolver struct {
	names map[int64]string
	ids   map[string]int64
}

func NewResolver() *Resolver {
	ids := make(map[string]int64, len(canonicalGenres))
	for id, name := range canonicalGenres {
		ids[strings.ToLower(name)] = id
	}
	return &Resolver{names: canonicalGenres, ids: ids}
}

// Resolve returns the canonical name for a genre ref, trying the
// representations in priority order: an already-canonical name, a numeric id
// via the lookup table, a serialized object parsed for its name field, and a
// structured ref's name (falling back to its id).
func (r *Resolver) Resolve(ref models.GenreRef) (string, bool) {
	switch ref.Kind {
	case models.GenreKindName:
		name := strings.TrimSpace(ref.Name)
		return name, name != ""
	case models.GenreKindID:
		name, ok := r.names[ref.ID]
		return name, ok
	case models.GenreKindEmbedded:
		var s struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(ref.Raw), &s); err != nil {
			return "", false
		}
		if name := strings.TrimSpace(s.Name); name != "" {
			return name, true
		}
		name, ok := r.names[s.ID]
		return name, ok
	case models.GenreKindStructured:
		if name := strings.TrimSpace(ref.Name); name != "" {
			return name, true
		}
		name, ok := r.names[ref.ID]
		return name, ok
	default:
		return "", false
	}
}

// IDForName returns the provider id for a canonical genre name, for callers
// that need to translate a filter back into provider query parameters.
func (r *Resolver) IDForName(name string) (int64, bool) {
	id, ok := r.ids[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// Matches reports whether the item satisfies the target genre filter,
// considering every genre the item lists.
func (r *Resolver) Matches(item models.ContentItem, target string) bool {
	if isAllGenres(target) {
		return true
	}
	for _, ref := range item.Genres {
		if r.refMatches(ref, item, target) {
			return true
		}
	}
	return false
}

// PrimaryMatches reports whether the item's first-listed genre satisfies the
// target filter. Hero selection prefers primary matches.
func (r *Resolver) PrimaryMatches(item models.ContentItem, target string) bool {
	if isAllGenres(target) {
		return len(item.Genres) > 0
	}
	if len(item.Genres) == 0 {
		return false
	}
	return r.refMatches(item.Genres[0], item, target)
}

func (r *Resolver) refMatches(ref models.GenreRef, item models.ContentItem, target string) bool {
	name, ok := r.Resolve(ref)
	if !ok {
		return false
	}
	return genreNameMatches(name, target, item.OriginalLanguage)
}

// genreNameMatches applies the filter predicate: equal canonical names, or one
// containing the other case-insensitively, which lets combined categories like
// "Sci-Fi & Fantasy" satisfy a "Sci-Fi" filter. Pairs in originSplitGenres are
// decided by the origin-language signal instead.
func genreNameMatches(candidate, target, originalLanguage string) bool {
	c := strings.ToLower(strings.TrimSpace(candidate))
	f := strings.ToLower(strings.TrimSpace(target))
	if c == "" || f == "" {
		return false
	}

	_, cSplit := originSplitGenres[c]
	_, fSplit := originSplitGenres[f]
	if cSplit && fSplit {
		_, animeOrigin := animeOriginLanguages[strings.ToLower(originalLanguage)]
		if f == "anime" {
			return animeOrigin
		}
		// target is Animation: exclude anime-origin titles
		return !animeOrigin
	}

	return c == f || strings.Contains(c, f) || strings.Contains(f, c)
}

func isAllGenres(target string) bool {
	t := strings.TrimSpace(target)
	return t == "" || strings.EqualFold(t, models.GenreAll)
}
