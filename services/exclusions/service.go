package exclusions

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"lanefeed/models"
)

// DefaultPendingTTL bounds how long an unconfirmed pending-add hides an item.
// An abandoned add flow must release the item back into the visible pool.
const DefaultPendingTTL = 5 * time.Minute

// MembershipSource is the authoritative store for which items are already on
// a user's list. This service only reads it.
type MembershipSource interface {
	CurrentIDs(ctx context.Context, userID string) (map[models.Key]struct{}, error)
}

// BlobStore persists the removed set across restarts. Errors are no-ops.
type BlobStore interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, val []byte) error
}

// Service tracks the three exclusion categories per user and computes the
// visible item set as a set difference on every read. The sets are mutated
// only here; callers see derived views.
type Service struct {
	membership MembershipSource
	blobs      BlobStore
	pendingTTL time.Duration
	now        func() time.Time

	mu    sync.Mutex
	users map[string]*userState
}

type userState struct {
	removed          map[models.Key]struct{}
	removedLoaded    bool
	pending          map[models.Key]time.Time // value: release deadline
	membership       map[models.Key]struct{}
	membershipLoaded bool
}

func NewService(membership MembershipSource, blobs BlobStore, pendingTTL time.Duration) *Service {
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	return &Service{
		membership: membership,
		blobs:      blobs,
		pendingTTL: pendingTTL,
		now:        time.Now,
		users:      make(map[string]*userState),
	}
}

// MarkPendingConfirm hides the item optimistically while an add is in flight.
// Idempotent: repeated marks refresh the release deadline.
func (s *Service) MarkPendingConfirm(userID string, key models.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked(userID)
	st.pending[key] = s.now().Add(s.pendingTTL)
}

// ConfirmAdded clears the pending flag once the backend confirms the add.
// Durable membership is owned by the authoritative store and picked up on the
// next membership refresh, not asserted here.
func (s *Service) ConfirmAdded(userID string, key models.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stateLocked(userID).pending, key)
}

// ClearPending releases every pending item for the user.
func (s *Service) ClearPending(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateLocked(userID).pending = make(map[models.Key]time.Time)
}

// HasPending reports whether the item is currently pending confirmation.
func (s *Service) HasPending(userID string, key models.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked(userID)
	s.expirePendingLocked(st)
	_, ok := st.pending[key]
	return ok
}

// MarkPersistedRemoved records an explicit dismissal. The removed set is
// durable: it is written through to the blob store so dismissals survive
// restarts. A persistence failure is logged and otherwise ignored.
func (s *Service) MarkPersistedRemoved(userID string, key models.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked(userID)
	s.loadRemovedLocked(userID, st)
	st.removed[key] = struct{}{}
	s.saveRemovedLocked(userID, st)
}

// MembershipChanged invalidates the cached membership set so the next read
// refetches from the authoritative store.
func (s *Service) MembershipChanged(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateLocked(userID).membershipLoaded = false
}

// Visible returns pool minus the union of the three exclusion sets, preserving
// pool order. Recomputed on every call; never memoized.
func (s *Service) Visible(ctx context.Context, userID string, pool []models.ContentItem) []models.ContentItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateLocked(userID)
	s.loadRemovedLocked(userID, st)
	s.refreshMembershipLocked(ctx, userID, st)
	s.expirePendingLocked(st)

	out := make([]models.ContentItem, 0, len(pool))
	for _, item := range pool {
		if s.excludedLocked(st, item.Key()) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// IsExcluded reports whether a single item is hidden for the user.
func (s *Service) IsExcluded(ctx context.Context, userID string, key models.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateLocked(userID)
	s.loadRemovedLocked(userID, st)
	s.refreshMembershipLocked(ctx, userID, st)
	s.expirePendingLocked(st)
	return s.excludedLocked(st, key)
}

func (s *Service) excludedLocked(st *userState, key models.Key) bool {
	if _, ok := st.removed[key]; ok {
		return true
	}
	if _, ok := st.pending[key]; ok {
		return true
	}
	if _, ok := st.membership[key]; ok {
		return true
	}
	return false
}

func (s *Service) stateLocked(userID string) *userState {
	st, ok := s.users[userID]
	if !ok {
		st = &userState{
			removed:    make(map[models.Key]struct{}),
			pending:    make(map[models.Key]time.Time),
			membership: make(map[models.Key]struct{}),
		}
		s.users[userID] = st
	}
	return st
}

func (s *Service) expirePendingLocked(st *userState) {
	now := s.now()
	for key, deadline := range st.pending {
		if now.After(deadline) {
			delete(st.pending, key)
		}
	}
}

func (s *Service) refreshMembershipLocked(ctx context.Context, userID string, st *userState) {
	if st.membershipLoaded || s.membership == nil {
		return
	}
	ids, err := s.membership.CurrentIDs(ctx, userID)
	if err != nil {
		// Keep the last known membership set rather than unhiding list items
		// on a transient failure.
		log.Printf("[exclusions] membership refresh failed for user %s: %v", userID, err)
		return
	}
	st.membership = ids
	if st.membership == nil {
		st.membership = make(map[models.Key]struct{})
	}
	st.membershipLoaded = true
}

func removedStoreKey(userID string) string {
	return "exclusions:" + userID
}

func (s *Service) loadRemovedLocked(userID string, st *userState) {
	if st.removedLoaded || s.blobs == nil {
		st.removedLoaded = true
		return
	}
	st.removedLoaded = true

	data, ok, err := s.blobs.Get(removedStoreKey(userID))
	if err != nil || !ok {
		if err != nil {
			log.Printf("[exclusions] read removed set for user %s: %v", userID, err)
		}
		return
	}
	var keys []models.Key
	if err := json.Unmarshal(data, &keys); err != nil {
		log.Printf("[exclusions] decode removed set for user %s: %v", userID, err)
		return
	}
	for _, key := range keys {
		st.removed[key] = struct{}{}
	}
}

func (s *Service) saveRemovedLocked(userID string, st *userState) {
	if s.blobs == nil {
		return
	}
	keys := make([]models.Key, 0, len(st.removed))
	for key := range st.removed {
		keys = append(keys, key)
	}
	data, err := json.Marshal(keys)
	if err != nil {
		log.Printf("[exclusions] marshal removed set for user %s: %v", userID, err)
		return
	}
	if err := s.blobs.Put(removedStoreKey(userID), data); err != nil {
		log.Printf("[exclusions] persist removed set for user %s: %v", userID, err)
	}
}

// setClock replaces the service's time source for tests.
func (s *Service) setClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
