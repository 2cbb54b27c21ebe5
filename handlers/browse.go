package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"lanefeed/models"
	"lanefeed/services/exclusions"
	"lanefeed/services/lanes"
	"lanefeed/services/recommend"
)

type recommendService interface {
	GetFiltered(ctx context.Context, userID string, filter models.FilterKey) (recommend.Result, error)
	Refresh(ctx context.Context, userID string, filter models.FilterKey) error
}

var _ recommendService = (*recommend.Service)(nil)

type exclusionService interface {
	Visible(ctx context.Context, userID string, pool []models.ContentItem) []models.ContentItem
}

var _ exclusionService = (*exclusions.Service)(nil)

type homeAssembler interface {
	BuildHome(pool []models.ContentItem, selectedGenre string) models.HomeView
}

var _ homeAssembler = (*lanes.Assembler)(nil)

// BrowseHandler serves the recommendation views the UI renders: the filtered
// item list and the assembled hero-plus-lanes home screen.
type BrowseHandler struct {
	Recommendations recommendService
	Exclusions      exclusionService
	Assembler       homeAssembler
}

func NewBrowseHandler(recs recommendService, excl exclusionService, asm homeAssembler) *BrowseHandler {
	return &BrowseHandler{Recommendations: recs, Exclusions: excl, Assembler: asm}
}

type recommendationsResponse struct {
	Items     []models.ContentItem `json:"items"`
	FetchedAt time.Time            `json:"fetchedAt"`
	Stale     bool                 `json:"stale"`
}

type homeResponse struct {
	Hero      *models.ContentItem `json:"hero,omitempty"`
	Lanes     []models.Lane       `json:"lanes"`
	FetchedAt time.Time           `json:"fetchedAt"`
	Stale     bool                `json:"stale"`
}

// List returns the visible filtered recommendation list.
func (h *BrowseHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	filter := filterFromQuery(r)

	res, err := h.Recommendations.GetFiltered(r.Context(), userID, filter)
	if err != nil {
		writeRecommendError(w, err)
		return
	}

	items := h.Exclusions.Visible(r.Context(), userID, res.Items)

	writeJSON(w, http.StatusOK, recommendationsResponse{
		Items:     items,
		FetchedAt: res.FetchedAt,
		Stale:     res.Stale,
	})
}

// Home returns the assembled hero and lanes for the selected filter.
func (h *BrowseHandler) Home(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	filter := filterFromQuery(r)

	res, err := h.Recommendations.GetFiltered(r.Context(), userID, filter)
	if err != nil {
		writeRecommendError(w, err)
		return
	}

	visible := h.Exclusions.Visible(r.Context(), userID, res.Items)
	view := h.Assembler.BuildHome(visible, filter.Genre)

	writeJSON(w, http.StatusOK, homeResponse{
		Hero:      view.Hero,
		Lanes:     view.Lanes,
		FetchedAt: res.FetchedAt,
		Stale:     res.Stale,
	})
}

// Refresh forces a provider fetch for one filter, bypassing the TTL.
func (h *BrowseHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		MediaType string `json:"mediaType"`
		Genre     string `json:"genre"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filter := models.NewFilterKey(body.MediaType, body.Genre)
	if err := h.Recommendations.Refresh(r.Context(), userID, filter); err != nil {
		// The stale snapshot is still being served; tell the client the
		// refresh itself failed without a blocking error.
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func filterFromQuery(r *http.Request) models.FilterKey {
	q := r.URL.Query()
	return models.NewFilterKey(q.Get("mediaType"), q.Get("genre"))
}

func writeRecommendError(w http.ResponseWriter, err error) {
	if errors.Is(err, recommend.ErrNoSnapshot) {
		// First-ever fetch failed and there is no fallback data: the one case
		// the UI shows as an error/empty state.
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(mux.Vars(r)["userID"])
	if userID == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return "", false
	}
	return userID, true
}
