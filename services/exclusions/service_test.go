package exclusions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lanefeed/models"
)

type fakeMembership struct {
	mu    sync.Mutex
	ids   map[models.Key]struct{}
	err   error
	calls int
}

func (m *fakeMembership) CurrentIDs(ctx context.Context, userID string) (map[models.Key]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[models.Key]struct{}, len(m.ids))
	for k := range m.ids {
		out[k] = struct{}{}
	}
	return out, nil
}

type memBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBlobs() *memBlobs { return &memBlobs{data: make(map[string][]byte)} }

func (b *memBlobs) Get(key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	val, ok := b.data[key]
	return val, ok, nil
}

func (b *memBlobs) Put(key string, val []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = val
	return nil
}

func movieKey(id int64) models.Key {
	return models.Key{MediaType: models.MediaTypeMovie, ID: id}
}

func pool(ids ...int64) []models.ContentItem {
	items := make([]models.ContentItem, len(ids))
	for i, id := range ids {
		items[i] = models.ContentItem{ID: id, MediaType: models.MediaTypeMovie}
	}
	return items
}

func TestVisibleIsSetDifference(t *testing.T) {
	membership := &fakeMembership{ids: map[models.Key]struct{}{movieKey(3): {}}}
	svc := NewService(membership, newMemBlobs(), time.Minute)

	svc.MarkPersistedRemoved("u1", movieKey(1))
	svc.MarkPendingConfirm("u1", movieKey(2))

	visible := svc.Visible(context.Background(), "u1", pool(1, 2, 3, 4, 5))

	if len(visible) != 2 || visible[0].ID != 4 || visible[1].ID != 5 {
		t.Fatalf("expected items 4 and 5 visible in order, got %+v", visible)
	}
}

func TestPendingConfirmLifecycle(t *testing.T) {
	svc := NewService(nil, newMemBlobs(), time.Minute)

	key := movieKey(42)
	svc.MarkPendingConfirm("u1", key)
	svc.MarkPendingConfirm("u1", key) // idempotent

	if !svc.HasPending("u1", key) {
		t.Fatalf("item should be pending after mark")
	}
	if got := svc.Visible(context.Background(), "u1", pool(42)); len(got) != 0 {
		t.Fatalf("pending item must be hidden, got %+v", got)
	}

	svc.ConfirmAdded("u1", key)

	if svc.HasPending("u1", key) {
		t.Fatalf("confirm must clear the pending flag")
	}
	// Membership is owned by the authoritative store; confirm alone does not
	// hide the item.
	if got := svc.Visible(context.Background(), "u1", pool(42)); len(got) != 1 {
		t.Fatalf("confirmed item visibility depends on the membership refresh, got %+v", got)
	}
}

func TestPendingReleasesAfterTimeout(t *testing.T) {
	svc := NewService(nil, newMemBlobs(), 5*time.Minute)
	now := time.Now()
	svc.setClock(func() time.Time { return now })

	key := movieKey(7)
	svc.MarkPendingConfirm("u1", key)

	now = now.Add(4 * time.Minute)
	if got := svc.Visible(context.Background(), "u1", pool(7)); len(got) != 0 {
		t.Fatalf("item must stay hidden inside the pending window")
	}

	now = now.Add(2 * time.Minute)
	if got := svc.Visible(context.Background(), "u1", pool(7)); len(got) != 1 {
		t.Fatalf("abandoned pending item must become visible after the window")
	}
	if svc.HasPending("u1", key) {
		t.Fatalf("expired pending entry must be released")
	}
}

func TestClearPending(t *testing.T) {
	svc := NewService(nil, newMemBlobs(), time.Minute)
	svc.MarkPendingConfirm("u1", movieKey(1))
	svc.MarkPendingConfirm("u1", movieKey(2))

	svc.ClearPending("u1")

	if got := svc.Visible(context.Background(), "u1", pool(1, 2)); len(got) != 2 {
		t.Fatalf("clear must release all pending items, got %+v", got)
	}
}

func TestRemovedSetSurvivesRestart(t *testing.T) {
	blobs := newMemBlobs()

	svc := NewService(nil, blobs, time.Minute)
	svc.MarkPersistedRemoved("u1", movieKey(9))

	// A new service over the same store stands in for a process restart.
	reloaded := NewService(nil, blobs, time.Minute)
	if got := reloaded.Visible(context.Background(), "u1", pool(9, 10)); len(got) != 1 || got[0].ID != 10 {
		t.Fatalf("removed set must survive restarts, got %+v", got)
	}
}

func TestMembershipChangeInvalidatesCache(t *testing.T) {
	membership := &fakeMembership{ids: map[models.Key]struct{}{}}
	svc := NewService(membership, newMemBlobs(), time.Minute)

	if got := svc.Visible(context.Background(), "u1", pool(5)); len(got) != 1 {
		t.Fatalf("item not on the list should be visible")
	}

	membership.mu.Lock()
	membership.ids[movieKey(5)] = struct{}{}
	membership.mu.Unlock()

	// Without a change notification the cached membership set is reused.
	if got := svc.Visible(context.Background(), "u1", pool(5)); len(got) != 1 {
		t.Fatalf("membership is only refetched after a change notification")
	}

	svc.MembershipChanged("u1")
	if got := svc.Visible(context.Background(), "u1", pool(5)); len(got) != 0 {
		t.Fatalf("list member must be hidden after membership refresh, got %+v", got)
	}
}

func TestMembershipFailureKeepsLastKnownSet(t *testing.T) {
	membership := &fakeMembership{ids: map[models.Key]struct{}{movieKey(1): {}}}
	svc := NewService(membership, newMemBlobs(), time.Minute)

	if got := svc.Visible(context.Background(), "u1", pool(1, 2)); len(got) != 1 {
		t.Fatalf("member should be hidden, got %+v", got)
	}

	membership.mu.Lock()
	membership.err = errors.New("list store down")
	membership.mu.Unlock()
	svc.MembershipChanged("u1")

	if got := svc.Visible(context.Background(), "u1", pool(1, 2)); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("failed refresh must keep the last known membership, got %+v", got)
	}
}

func TestIsExcluded(t *testing.T) {
	svc := NewService(nil, newMemBlobs(), time.Minute)
	svc.MarkPersistedRemoved("u1", movieKey(3))

	if !svc.IsExcluded(context.Background(), "u1", movieKey(3)) {
		t.Fatalf("removed item must be excluded")
	}
	if svc.IsExcluded(context.Background(), "u1", movieKey(4)) {
		t.Fatalf("untouched item must not be excluded")
	}
}
