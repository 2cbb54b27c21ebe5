package metadata

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"lanefeed/models"
)

// fakeProvider returns canned items with optional per-id failures and
// randomized latency, and counts calls per key.
type fakeProvider struct {
	mu      sync.Mutex
	calls   map[models.Key]int
	fail    map[int64]bool
	maxWait time.Duration
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{calls: make(map[models.Key]int), fail: make(map[int64]bool)}
}

func (p *fakeProvider) FetchMetadata(ctx context.Context, mediaType models.MediaType, id int64) (models.ContentItem, error) {
	p.mu.Lock()
	key := models.Key{MediaType: mediaType, ID: id}
	p.calls[key]++
	fail := p.fail[id]
	wait := p.maxWait
	p.mu.Unlock()

	if wait > 0 {
		select {
		case <-time.After(time.Duration(rand.Int63n(int64(wait)))):
		case <-ctx.Done():
			return models.ContentItem{}, ctx.Err()
		}
	}
	if fail {
		return models.ContentItem{}, errors.New("upstream unavailable")
	}
	return models.ContentItem{
		ID:        id,
		MediaType: mediaType,
		Title:     fmt.Sprintf("Title %d", id),
		Overview:  "full overview",
	}, nil
}

func (p *fakeProvider) callCount(key models.Key) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[key]
}

func placeholders(n int) []models.ContentItem {
	items := make([]models.ContentItem, n)
	for i := range items {
		items[i] = models.ContentItem{ID: int64(i + 1), MediaType: models.MediaTypeMovie}
	}
	return items
}

func TestHydratePreservesOrderUnderRandomLatency(t *testing.T) {
	provider := newFakeProvider()
	provider.maxWait = 20 * time.Millisecond
	h := NewHydrator(NewCache(time.Hour), provider, HydratorConfig{WindowSize: 5, WindowDelay: time.Millisecond})

	in := placeholders(23)
	out := h.Hydrate(context.Background(), in)

	if len(out) != len(in) {
		t.Fatalf("expected %d items, got %d", len(in), len(out))
	}
	for i := range out {
		if out[i].ID != in[i].ID {
			t.Fatalf("order broken at index %d: got id %d, want %d", i, out[i].ID, in[i].ID)
		}
		if !out[i].FullyHydrated {
			t.Fatalf("item %d not hydrated", out[i].ID)
		}
	}
}

func TestHydrateToleratesPartialFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.fail[7] = true
	h := NewHydrator(NewCache(time.Hour), provider, HydratorConfig{WindowSize: 4, WindowDelay: time.Millisecond})

	out := h.Hydrate(context.Background(), placeholders(15))

	if len(out) != 15 {
		t.Fatalf("partial failure must not shrink the batch: got %d items", len(out))
	}
	for _, item := range out {
		if item.ID == 7 {
			if item.FullyHydrated || item.Overview != "" {
				t.Fatalf("failed item must be returned unchanged: %+v", item)
			}
			continue
		}
		if !item.FullyHydrated {
			t.Fatalf("item %d should have been enriched", item.ID)
		}
	}
}

func TestHydrateFailureDoesNotPopulateCache(t *testing.T) {
	provider := newFakeProvider()
	provider.fail[3] = true
	cache := NewCache(time.Hour)
	h := NewHydrator(cache, provider, HydratorConfig{WindowSize: 4, WindowDelay: time.Millisecond})

	h.Hydrate(context.Background(), placeholders(3))

	if _, ok := cache.Get(models.Key{MediaType: models.MediaTypeMovie, ID: 3}); ok {
		t.Fatalf("failed fetch must not populate the cache")
	}
	if _, ok := cache.Get(models.Key{MediaType: models.MediaTypeMovie, ID: 1}); !ok {
		t.Fatalf("successful fetch should populate the cache")
	}
}

func TestHydrateUsesCacheOnSecondPass(t *testing.T) {
	provider := newFakeProvider()
	h := NewHydrator(NewCache(time.Hour), provider, HydratorConfig{WindowSize: 4, WindowDelay: time.Millisecond})

	key := models.Key{MediaType: models.MediaTypeMovie, ID: 1}
	h.Hydrate(context.Background(), placeholders(1))
	h.Hydrate(context.Background(), placeholders(1))

	if got := provider.callCount(key); got != 1 {
		t.Fatalf("second pass should be a cache hit, provider called %d times", got)
	}
}

func TestHydrateSkipsAlreadyHydrated(t *testing.T) {
	provider := newFakeProvider()
	h := NewHydrator(NewCache(time.Hour), provider, HydratorConfig{WindowSize: 4, WindowDelay: time.Millisecond})

	in := []models.ContentItem{{ID: 9, MediaType: models.MediaTypeTV, Title: "done", FullyHydrated: true}}
	out := h.Hydrate(context.Background(), in)

	if !reflect.DeepEqual(out[0], in[0]) {
		t.Fatalf("hydrated item must pass through unchanged")
	}
	if got := provider.callCount(models.Key{MediaType: models.MediaTypeTV, ID: 9}); got != 0 {
		t.Fatalf("hydrated item must not trigger a fetch, got %d calls", got)
	}
}

func TestHydrateMergesPlaceholderFields(t *testing.T) {
	provider := newFakeProvider()
	h := NewHydrator(NewCache(time.Hour), provider, HydratorConfig{WindowSize: 4, WindowDelay: time.Millisecond})

	poster := "/keep-me.jpg"
	in := []models.ContentItem{{
		ID:        4,
		MediaType: models.MediaTypeMovie,
		Title:     "Placeholder Title",
		PosterRef: &poster,
	}}
	out := h.Hydrate(context.Background(), in)

	if out[0].Title != "Title 4" {
		t.Fatalf("fresh title should win, got %q", out[0].Title)
	}
	if out[0].PosterRef == nil || *out[0].PosterRef != poster {
		t.Fatalf("known poster must survive a fresh record without one")
	}
}
