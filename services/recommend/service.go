package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"lanefeed/models"
)

var (
	// ErrNoSnapshot is returned when the first-ever fetch for a filter also
	// fails: there is no fallback data to serve.
	ErrNoSnapshot = errors.New("no recommendations available")
)

// DefaultSnapshotTTL bounds how long a snapshot is served before a background
// refresh is triggered.
const DefaultSnapshotTTL = 60 * time.Minute

// Fetcher is the remote personalized-recommendation provider.
type Fetcher interface {
	FetchRecommendations(ctx context.Context, userID string, filter models.FilterKey, forceRefresh bool) ([]models.ContentItem, error)
}

// Hydrator completes missing metadata on freshly fetched items.
type Hydrator interface {
	Hydrate(ctx context.Context, items []models.ContentItem) []models.ContentItem
}

// BlobStore persists snapshots across process restarts. All errors are
// treated as misses.
type BlobStore interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, val []byte) error
}

// Result is what callers get for one filter: the best-available items plus a
// staleness flag. Stale means the items are from an aged snapshot or the last
// refresh failed; the UI shows "using cached results" rather than an error.
type Result struct {
	Items     []models.ContentItem `json:"items"`
	FetchedAt time.Time            `json:"fetchedAt"`
	Stale     bool                 `json:"stale"`
}

// Service holds the most recent recommendation snapshot per (user, filter)
// and implements stale-while-revalidate over them: serve what exists
// immediately, refresh in the background, replace on completion. At most one
// refresh is in flight per key; duplicates are coalesced.
type Service struct {
	fetcher  Fetcher
	hydrator Hydrator
	blobs    BlobStore
	ttl      time.Duration
	now      func() time.Time

	mu     sync.Mutex
	states map[string]*filterState
}

type filterState struct {
	snap           *models.RecommendationSnapshot
	refreshing     bool
	done           chan struct{} // closed when the in-flight refresh settles
	lastErr        error
	triedPersisted bool
}

func NewService(fetcher Fetcher, hydrator Hydrator, blobs BlobStore, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &Service{
		fetcher:  fetcher,
		hydrator: hydrator,
		blobs:    blobs,
		ttl:      ttl,
		now:      time.Now,
		states:   make(map[string]*filterState),
	}
}

func stateKey(userID string, filter models.FilterKey) string {
	return userID + ":" + filter.String()
}

func persistKey(userID string, filter models.FilterKey) string {
	return "recs:" + userID + ":" + filter.String()
}

// GetFiltered returns the current snapshot for the filter. A snapshot, even a
// stale one, is served synchronously; staleness only triggers a background
// refresh. Only when no snapshot exists anywhere does the call await the
// initial fetch.
func (s *Service) GetFiltered(ctx context.Context, userID string, filter models.FilterKey) (Result, error) {
	key := stateKey(userID, filter)

	s.mu.Lock()
	st := s.stateLocked(key)

	if st.snap == nil && !st.triedPersisted {
		st.triedPersisted = true
		if snap := s.loadPersisted(userID, filter); snap != nil {
			st.snap = snap
			// A cold-start snapshot is served as-is but always revalidated once.
			s.startRefreshLocked(key, st, userID, filter, false)
		}
	}

	if st.snap != nil {
		stale := s.now().Sub(st.snap.FetchedAt) >= s.ttl
		if stale {
			s.startRefreshLocked(key, st, userID, filter, false)
		}
		res := s.resultLocked(st)
		s.mu.Unlock()
		return res, nil
	}

	// First-ever request for this filter: block on the fetch, coalescing with
	// any refresh already in flight.
	done := s.startRefreshLocked(key, st, userID, filter, false)
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st.snap == nil {
		if st.lastErr != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrNoSnapshot, st.lastErr)
		}
		return Result{}, ErrNoSnapshot
	}
	return s.resultLocked(st), nil
}

// Refresh forces a fetch for the filter, bypassing the TTL check. It still
// coalesces with an in-flight refresh and waits for the result.
func (s *Service) Refresh(ctx context.Context, userID string, filter models.FilterKey) error {
	key := stateKey(userID, filter)

	s.mu.Lock()
	st := s.stateLocked(key)
	done := s.startRefreshLocked(key, st, userID, filter, true)
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return st.lastErr
}

func (s *Service) stateLocked(key string) *filterState {
	st, ok := s.states[key]
	if !ok {
		st = &filterState{}
		s.states[key] = st
	}
	return st
}

func (s *Service) resultLocked(st *filterState) Result {
	items := make([]models.ContentItem, len(st.snap.Items))
	copy(items, st.snap.Items)
	stale := s.now().Sub(st.snap.FetchedAt) >= s.ttl
	return Result{
		Items:     items,
		FetchedAt: st.snap.FetchedAt,
		Stale:     stale || st.lastErr != nil,
	}
}

// startRefreshLocked begins a refresh for the key unless one is already in
// flight, in which case the duplicate joins it. Returns the channel that
// closes when the refresh settles.
func (s *Service) startRefreshLocked(key string, st *filterState, userID string, filter models.FilterKey, force bool) chan struct{} {
	if st.refreshing {
		return st.done
	}
	st.refreshing = true
	st.done = make(chan struct{})
	go s.refresh(key, userID, filter, force)
	return st.done
}

// refresh runs one fetch cycle. In-flight refreshes are never canceled, so
// this uses a background context regardless of what triggered it.
func (s *Service) refresh(key, userID string, filter models.FilterKey, force bool) {
	ctx := context.Background()

	items, err := s.fetcher.FetchRecommendations(ctx, userID, filter, force)
	if err == nil && s.hydrator != nil {
		items = s.hydrator.Hydrate(ctx, items)
	}

	s.mu.Lock()
	st := s.stateLocked(key)
	st.refreshing = false
	done := st.done
	st.done = nil

	if err != nil {
		// Staleness is preferred over emptiness: the existing snapshot stays.
		st.lastErr = err
		s.mu.Unlock()
		close(done)
		log.Printf("[recommend] refresh failed for %s: %v", key, err)
		return
	}

	snap := &models.RecommendationSnapshot{Items: items, FetchedAt: s.now(), Filter: filter}
	st.snap = snap
	st.lastErr = nil
	s.mu.Unlock()
	close(done)

	s.persist(userID, filter, snap)
}

func (s *Service) persist(userID string, filter models.FilterKey, snap *models.RecommendationSnapshot) {
	if s.blobs == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("[recommend] marshal snapshot %s: %v", filter, err)
		return
	}
	if err := s.blobs.Put(persistKey(userID, filter), data); err != nil {
		log.Printf("[recommend] persist snapshot %s: %v", filter, err)
	}
}

func (s *Service) loadPersisted(userID string, filter models.FilterKey) *models.RecommendationSnapshot {
	if s.blobs == nil {
		return nil
	}
	data, ok, err := s.blobs.Get(persistKey(userID, filter))
	if err != nil || !ok {
		if err != nil {
			log.Printf("[recommend] read persisted snapshot %s: %v", filter, err)
		}
		return nil
	}
	var snap models.RecommendationSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("[recommend] decode persisted snapshot %s: %v", filter, err)
		return nil
	}
	return &snap
}

// setClock replaces the service's time source for tests.
func (s *Service) setClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
