package ai

import (
	"encoding/json"
	"sync"
	"time"
)

// cacheKey identifies one cached gateway response.
type cacheKey struct {
	Kind      string `json:"kind"`
	Version   string `json:"version"`
	Signature string `json:"signature"`
}

type cacheEntry struct {
	Key      cacheKey        `json:"key"`
	Payload  json.RawMessage `json:"payload"`
	Provider string          `json:"provider"`
	StoredAt time.Time       `json:"stored_at"`
}

// responseCache is a capped, TTL-bounded response cache with oldest-first
// eviction. A hit refreshes the entry's position so the most recently looked
// up entry is never the next to go. Safe for concurrent use.
type responseCache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	clock      Clock
	entries    map[cacheKey]*cacheEntry
	order      []cacheKey
}

func newResponseCache(maxEntries int, ttl time.Duration, clock Clock) *responseCache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &responseCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[cacheKey]*cacheEntry),
	}
}

// Get returns the cached payload and provider tag, or ok=false.
func (c *responseCache) Get(key cacheKey) (json.RawMessage, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, "", false
	}
	if c.clock.Now().Sub(entry.StoredAt) > c.ttl {
		c.removeLocked(key)
		return nil, "", false
	}

	c.touchLocked(key)
	return entry.Payload, entry.Provider, true
}

// Put stores a payload, evicting the oldest entry when over capacity.
func (c *responseCache) Put(key cacheKey, payload json.RawMessage, provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key].Payload = payload
		c.entries[key].Provider = provider
		c.entries[key].StoredAt = c.clock.Now()
		c.touchLocked(key)
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		c.removeLocked(c.order[0])
	}

	c.entries[key] = &cacheEntry{
		Key:      key,
		Payload:  payload,
		Provider: provider,
		StoredAt: c.clock.Now(),
	}
	c.order = append(c.order, key)
}

// Len returns the current entry count.
func (c *responseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *responseCache) touchLocked(key cacheKey) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, key)
}

func (c *responseCache) removeLocked(key cacheKey) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Snapshot serializes all live entries for persistence across runs.
func (c *responseCache) Snapshot() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]*cacheEntry, 0, len(c.order))
	for _, key := range c.order {
		if e, ok := c.entries[key]; ok {
			entries = append(entries, e)
		}
	}
	return json.Marshal(entries)
}

// Restore loads a snapshot, dropping entries past their TTL.
func (c *responseCache) Restore(data []byte) error {
	var entries []*cacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for _, e := range entries {
		if now.Sub(e.StoredAt) > c.ttl {
			continue
		}
		if len(c.entries) >= c.maxEntries {
			break
		}
		if _, exists := c.entries[e.Key]; exists {
			continue
		}
		c.entries[e.Key] = e
		c.order = append(c.order, e.Key)
	}
	return nil
}
