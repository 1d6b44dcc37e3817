package geo

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jimezsa/leasecli/internal/api"
	"golang.org/x/sync/singleflight"
)

// Geocoder resolves an address to a position.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (api.Location, error)
}

type cacheEntry struct {
	loc api.Location
	err error
}

// CachedGeocoder remembers results for the session and collapses concurrent
// lookups of the same address into one request. Transport failures are not cached.
type CachedGeocoder struct {
	inner Geocoder
	group singleflight.Group

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewCachedGeocoder(inner Geocoder) *CachedGeocoder {
	return &CachedGeocoder{inner: inner, cache: map[string]cacheEntry{}}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (api.Location, error) {
	key := cacheKey(address)
	if entry, ok := c.lookup(key); ok {
		return entry.loc, entry.err
	}

	// The shared lookup outlives any single caller; each caller still
	// returns as soon as its own ctx is done.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		loc, err := c.inner.Geocode(shared, address)
		if err == nil || errors.Is(err, api.ErrUnresolved) {
			c.mu.Lock()
			c.cache[key] = cacheEntry{loc: loc, err: err}
			c.mu.Unlock()
		}
		return loc, err
	})
	select {
	case <-ctx.Done():
		return api.Location{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return api.Location{}, res.Err
		}
		return res.Val.(api.Location), nil
	}
}

// Cached returns a previously resolved position without any request.
func (c *CachedGeocoder) Cached(address string) (api.Location, bool) {
	entry, ok := c.lookup(cacheKey(address))
	if !ok || entry.err != nil {
		return api.Location{}, false
	}
	return entry.loc, true
}

func (c *CachedGeocoder) lookup(key string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	return entry, ok
}

func cacheKey(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}
