package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"lanefeed/models"
	"lanefeed/services/exclusions"
)

type exclusionCoordinator interface {
	MarkPendingConfirm(userID string, key models.Key)
	ConfirmAdded(userID string, key models.Key)
	ClearPending(userID string)
	MarkPersistedRemoved(userID string, key models.Key)
	MembershipChanged(userID string)
}

var _ exclusionCoordinator = (*exclusions.Service)(nil)

// ExclusionsHandler exposes the optimistic-hide lifecycle to the UI: pending
// adds, confirmations, and durable dismissals.
type ExclusionsHandler struct {
	Service exclusionCoordinator
}

func NewExclusionsHandler(service exclusionCoordinator) *ExclusionsHandler {
	return &ExclusionsHandler{Service: service}
}

// MarkPending hides an item the user is about to add, before the backend
// confirms the add.
func (h *ExclusionsHandler) MarkPending(w http.ResponseWriter, r *http.Request) {
	userID, key, ok := requireUserAndKey(w, r)
	if !ok {
		return
	}
	h.Service.MarkPendingConfirm(userID, key)
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmAdded clears the pending flag after the add succeeded. Membership
// itself is picked up from the authoritative list store.
func (h *ExclusionsHandler) ConfirmAdded(w http.ResponseWriter, r *http.Request) {
	userID, key, ok := requireUserAndKey(w, r)
	if !ok {
		return
	}
	h.Service.ConfirmAdded(userID, key)
	h.Service.MembershipChanged(userID)
	w.WriteHeader(http.StatusNoContent)
}

// ClearPending releases every unconfirmed pending item for the user.
func (h *ExclusionsHandler) ClearPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	h.Service.ClearPending(userID)
	w.WriteHeader(http.StatusNoContent)
}

// MarkRemoved records a durable dismissal.
func (h *ExclusionsHandler) MarkRemoved(w http.ResponseWriter, r *http.Request) {
	userID, key, ok := requireUserAndKey(w, r)
	if !ok {
		return
	}
	h.Service.MarkPersistedRemoved(userID, key)
	w.WriteHeader(http.StatusNoContent)
}

func requireUserAndKey(w http.ResponseWriter, r *http.Request) (string, models.Key, bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return "", models.Key{}, false
	}

	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return "", models.Key{}, false
	}

	key := models.Key{MediaType: models.NormalizeMediaType(vars["mediaType"]), ID: id}
	return userID, key, true
}
