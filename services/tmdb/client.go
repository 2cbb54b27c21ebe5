package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"lanefeed/models"
	"lanefeed/services/genres"
)

const defaultBaseURL = "https://api.themoviedb.org/3"

// Client talks to the TMDB-shaped metadata and recommendation provider. It
// implements the metadata provider, recommendation fetcher, and list
// membership source the services consume.
type Client struct {
	apiKey   string
	language string
	baseURL  string
	httpc    *http.Client
	resolver *genres.Resolver
}

func NewClient(apiKey, language string, httpc *http.Client, resolver *genres.Resolver) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	if language == "" {
		language = "en-US"
	}
	return &Client{
		apiKey:   apiKey,
		language: language,
		baseURL:  defaultBaseURL,
		httpc:    httpc,
		resolver: resolver,
	}
}

// SetBaseURL overrides the provider endpoint, used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// detailResponse is the full title payload from /movie/{id} and /tv/{id}.
type detailResponse struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	Overview         string  `json:"overview"`
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path"`
	VoteAverage      float64 `json:"vote_average"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	OriginalLanguage string  `json:"original_language"`
	Genres           []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// listEntry is the abbreviated shape list endpoints return. Genres arrive as
// bare ids here, so items built from it are not fully hydrated.
type listEntry struct {
	ID               int64   `json:"id"`
	MediaType        string  `json:"media_type"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	Overview         string  `json:"overview"`
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path"`
	VoteAverage      float64 `json:"vote_average"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	OriginalLanguage string  `json:"original_language"`
	GenreIDs         []int64 `json:"genre_ids"`
}

// FetchMetadata returns the authoritative record for one title.
func (c *Client) FetchMetadata(ctx context.Context, mediaType models.MediaType, id int64) (models.ContentItem, error) {
	path := fmt.Sprintf("/%s/%d", mediaType, id)

	var resp detailResponse
	if err := c.doGET(ctx, path, nil, &resp); err != nil {
		return models.ContentItem{}, err
	}

	item := models.ContentItem{
		ID:               resp.ID,
		MediaType:        mediaType,
		Title:            firstNonEmpty(resp.Title, resp.Name),
		PosterRef:        resp.PosterPath,
		BackdropRef:      resp.BackdropPath,
		Overview:         resp.Overview,
		Rating:           resp.VoteAverage,
		OriginalLanguage: resp.OriginalLanguage,
		FullyHydrated:    true,
	}
	if date := firstNonEmpty(resp.ReleaseDate, resp.FirstAirDate); date != "" {
		item.ReleaseDate = &date
	}
	for _, g := range resp.Genres {
		item.Genres = append(item.Genres, models.GenreStructured(g.ID, g.Name))
	}
	return item, nil
}

// FetchRecommendations returns the personalized list for one filter. The
// payload is abbreviated, so returned items need hydration.
func (c *Client) FetchRecommendations(ctx context.Context, userID string, filter models.FilterKey, forceRefresh bool) ([]models.ContentItem, error) {
	q := url.Values{}
	q.Set("user", userID)
	if filter.Genre != models.GenreAll {
		if id, ok := c.resolver.IDForName(filter.Genre); ok {
			q.Set("with_genres", strconv.FormatInt(id, 10))
		}
	}
	if forceRefresh {
		q.Set("force", "true")
	}

	var resp struct {
		Results []listEntry `json:"results"`
	}
	if err := c.doGET(ctx, "/recommendations/"+string(filter.MediaType), q, &resp); err != nil {
		return nil, err
	}

	items := make([]models.ContentItem, 0, len(resp.Results))
	for _, entry := range resp.Results {
		items = append(items, entry.toContentItem(filter.MediaType))
	}
	return items, nil
}

// CurrentIDs returns the set of titles currently on the user's list, from the
// authoritative list store.
func (c *Client) CurrentIDs(ctx context.Context, userID string) (map[models.Key]struct{}, error) {
	var resp struct {
		Results []listEntry `json:"results"`
	}
	if err := c.doGET(ctx, "/users/"+url.PathEscape(userID)+"/list", nil, &resp); err != nil {
		return nil, err
	}

	ids := make(map[models.Key]struct{}, len(resp.Results))
	for _, entry := range resp.Results {
		ids[models.Key{MediaType: models.NormalizeMediaType(entry.MediaType), ID: entry.ID}] = struct{}{}
	}
	return ids, nil
}

func (e listEntry) toContentItem(mediaType models.MediaType) models.ContentItem {
	if e.MediaType != "" {
		mediaType = models.NormalizeMediaType(e.MediaType)
	}
	item := models.ContentItem{
		ID:               e.ID,
		MediaType:        mediaType,
		Title:            firstNonEmpty(e.Title, e.Name),
		PosterRef:        e.PosterPath,
		BackdropRef:      e.BackdropPath,
		Overview:         e.Overview,
		Rating:           e.VoteAverage,
		OriginalLanguage: e.OriginalLanguage,
	}
	if date := firstNonEmpty(e.ReleaseDate, e.FirstAirDate); date != "" {
		item.ReleaseDate = &date
	}
	for _, id := range e.GenreIDs {
		item.Genres = append(item.Genres, models.GenreID(id))
	}
	return item
}

// doGET performs one authenticated GET with bounded retries on rate-limit and
// server errors. Other failures are not retried.
func (c *Client) doGET(ctx context.Context, path string, q url.Values, v any) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.apiKey)
	q.Set("language", c.language)
	u := c.baseURL + path + "?" + q.Encode()

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
				return fmt.Errorf("tmdb get %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
			}
			if resp.StatusCode >= 300 {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
				return retry.Unrecoverable(fmt.Errorf("tmdb get %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body))))
			}
			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(fmt.Errorf("tmdb decode %s: %w", path, err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
