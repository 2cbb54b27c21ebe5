package metadata

import (
	"context"
	"log"
	"time"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"lanefeed/models"
)

// Provider fetches authoritative metadata for one item. Implementations may
// fail per call; the hydrator never lets a single failure abort a batch.
type Provider interface {
	FetchMetadata(ctx context.Context, mediaType models.MediaType, id int64) (models.ContentItem, error)
}

// HydratorConfig carries the tunables for batch hydration. The window width
// and inter-window delay exist to stay under the provider's undocumented rate
// limits; they are throughput knobs, not correctness requirements.
type HydratorConfig struct {
	WindowSize   int
	WindowDelay  time.Duration
	FetchTimeout time.Duration
}

const (
	defaultWindowSize   = 12
	defaultWindowDelay  = 50 * time.Millisecond
	defaultFetchTimeout = 10 * time.Second
)

func (c *HydratorConfig) applyDefaults() {
	if c.WindowSize <= 0 {
		c.WindowSize = defaultWindowSize
	}
	if c.WindowDelay <= 0 {
		c.WindowDelay = defaultWindowDelay
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
}

// Hydrator fills in missing metadata for batches of partially-known items,
// consulting the cache first and fanning out the remaining fetches in
// bounded concurrency windows.
type Hydrator struct {
	cache    *Cache
	provider Provider
	cfg      HydratorConfig
	pacer    *rate.Limiter
}

func NewHydrator(cache *Cache, provider Provider, cfg HydratorConfig) *Hydrator {
	cfg.applyDefaults()
	return &Hydrator{
		cache:    cache,
		provider: provider,
		cfg:      cfg,
		pacer:    rate.NewLimiter(rate.Every(cfg.WindowDelay), 1),
	}
}

// Hydrate returns a slice of the same length and order as items. Each element
// is either unchanged (already hydrated, or its fetch failed) or merged with
// fresh metadata. Successful fetches populate the cache before merging, so
// later duplicates within the TTL window become cache hits. Failed fetches do
// not populate the cache.
func (h *Hydrator) Hydrate(ctx context.Context, items []models.ContentItem) []models.ContentItem {
	out := make([]models.ContentItem, len(items))
	copy(out, items)

	// One pass: resolve cache hits immediately, collect indices that need a fetch.
	var needsFetch []int
	for i := range out {
		if out[i].FullyHydrated {
			continue
		}
		if cached, ok := h.cache.Get(out[i].Key()); ok {
			out[i] = models.MergeContent(out[i], cached)
			continue
		}
		needsFetch = append(needsFetch, i)
	}

	for start := 0; start < len(needsFetch); start += h.cfg.WindowSize {
		if err := h.pacer.Wait(ctx); err != nil {
			// Canceled between windows: remaining items keep their last-known state.
			log.Printf("[metadata] hydration stopped with %d items remaining: %v", len(needsFetch)-start, err)
			break
		}

		end := min(start+h.cfg.WindowSize, len(needsFetch))
		window := pool.New().WithMaxGoroutines(h.cfg.WindowSize)
		for _, idx := range needsFetch[start:end] {
			idx := idx
			window.Go(func() {
				h.fetchInto(ctx, out, idx)
			})
		}
		window.Wait()
	}

	return out
}

// fetchInto fetches metadata for out[idx] and merges it in place. Each index
// is owned by exactly one goroutine per window, so no locking is needed.
func (h *Hydrator) fetchInto(ctx context.Context, out []models.ContentItem, idx int) {
	fctx, cancel := context.WithTimeout(ctx, h.cfg.FetchTimeout)
	defer cancel()

	key := out[idx].Key()
	fresh, err := h.provider.FetchMetadata(fctx, key.MediaType, key.ID)
	if err != nil {
		// Item keeps its placeholder state; the next batch that includes it
		// retries opportunistically.
		log.Printf("[metadata] fetch failed %s: %v", key, err)
		return
	}

	merged := models.MergeContent(out[idx], fresh)
	merged.FullyHydrated = true
	h.cache.Put(key, merged)
	out[idx] = merged
}
