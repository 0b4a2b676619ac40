package infrastructure

import (
	"context"
	"sync"
	"time"

	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// MemoryCache is an in-memory implementation of ports.MetadataCache.
// Expired entries are never returned; Sweep reclaims their memory.
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.RWMutex
	simple map[domain.TrackID]cacheEntry[domain.SimpleMetadata]
	full   map[domain.TrackID]cacheEntry[domain.FullMetadata]
}

// NewMemoryCache creates a new MemoryCache whose entries live for ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:    ttl,
		now:    time.Now,
		simple: make(map[domain.TrackID]cacheEntry[domain.SimpleMetadata]),
		full:   make(map[domain.TrackID]cacheEntry[domain.FullMetadata]),
	}
}

// GetSimple returns a copy of the cached simple metadata.
func (c *MemoryCache) GetSimple(_ context.Context, id domain.TrackID) (*domain.SimpleMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.simple[id]
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false
	}
	value := entry.value
	value.Artists = append([]string(nil), value.Artists...)
	return &value, true
}

// SetSimple stores the simple metadata until the TTL passes.
func (c *MemoryCache) SetSimple(_ context.Context, metadata *domain.SimpleMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value := *metadata
	value.Artists = append([]string(nil), metadata.Artists...)
	c.simple[metadata.ID] = cacheEntry[domain.SimpleMetadata]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// GetFull returns a copy of the cached full metadata.
func (c *MemoryCache) GetFull(_ context.Context, id domain.TrackID) (*domain.FullMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.full[id]
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false
	}
	value := entry.value
	value.Artists = append([]string(nil), value.Artists...)
	return &value, true
}

// SetFull stores the full metadata until the TTL passes.
func (c *MemoryCache) SetFull(_ context.Context, metadata *domain.FullMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value := *metadata
	value.Artists = append([]string(nil), metadata.Artists...)
	c.full[metadata.ID] = cacheEntry[domain.FullMetadata]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Sweep removes expired entries and returns how many were removed.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for id, entry := range c.simple {
		if !now.Before(entry.expiresAt) {
			delete(c.simple, id)
			removed++
		}
	}
	for id, entry := range c.full {
		if !now.Before(entry.expiresAt) {
			delete(c.full, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries across both tiers, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.simple) + len(c.full)
}

// Ensure MemoryCache implements ports.MetadataCache.
var _ ports.MetadataCache = (*MemoryCache)(nil)
