// Package cache provides the tiered TTL cache backing the dashboard
// synchronizer. Entries are advisory: a miss, an expired entry or a
// corrupt payload only means the caller takes its network path.
package cache

import (
	"encoding/json"
	"strings"
	"time"
)

// Class is a named freshness policy mapping to a fixed lifetime.
type Class string

const (
	ClassModels   Class = "models"   // tracked model list
	ClassStatus   Class = "status"   // per-model liveness probe
	ClassSnapshot Class = "snapshot" // full dashboard snapshot
)

// TTLs maps each class to its lifetime. Overridable per instance.
type TTLs struct {
	Models   time.Duration
	Status   time.Duration
	Snapshot time.Duration
}

// DefaultTTLs are the stock lifetimes (models 5m, status 30s, snapshot 60s).
func DefaultTTLs() TTLs {
	return TTLs{
		Models:   5 * time.Minute,
		Status:   30 * time.Second,
		Snapshot: 60 * time.Second,
	}
}

func (t TTLs) For(class Class) time.Duration {
	switch class {
	case ClassModels:
		return t.Models
	case ClassStatus:
		return t.Status
	case ClassSnapshot:
		return t.Snapshot
	default:
		return 0
	}
}

// Entry is one stored value plus its write timestamp. Valid iff
// now - StoredAt < ttl(class).
type Entry struct {
	Value    []byte    `json:"value"`
	StoredAt time.Time `json:"storedAt"`
}

// Store is the ephemeral key-value layer under the cache. Implementations
// may lose or corrupt data at any time; the cache treats both as a miss.
type Store interface {
	Load(key string) (Entry, bool)
	Save(key string, e Entry)
	Delete(key string)
	DeletePrefix(prefix string)
}

// Cache is the tiered TTL cache. Get never performs network I/O; it is a
// store lookup plus a freshness check.
type Cache struct {
	store Store
	ttls  TTLs
	now   func() time.Time
}

// New creates a cache over the given store.
func New(store Store, ttls TTLs) *Cache {
	return &Cache{store: store, ttls: ttls, now: time.Now}
}

// Get returns the stored value for key if it is still fresh for its class.
// Expired entries are treated as absent, never served.
func (c *Cache) Get(key string, class Class) ([]byte, bool) {
	e, ok := c.store.Load(c.fullKey(key, class))
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.StoredAt) >= c.ttls.For(class) {
		return nil, false
	}
	return e.Value, true
}

// GetStale returns the stored value for key regardless of freshness.
// Used only for the explicit network-failure fallback path.
func (c *Cache) GetStale(key string, class Class) ([]byte, bool) {
	e, ok := c.store.Load(c.fullKey(key, class))
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Put writes value through to the store, stamped now. Last write wins.
func (c *Cache) Put(key string, class Class, value []byte) {
	c.store.Save(c.fullKey(key, class), Entry{Value: value, StoredAt: c.now()})
}

// Invalidate removes a single key within a class.
func (c *Cache) Invalidate(key string, class Class) {
	c.store.Delete(c.fullKey(key, class))
}

// InvalidateClass removes every key of a class.
func (c *Cache) InvalidateClass(class Class) {
	c.store.DeletePrefix(string(class) + ":")
}

// GetJSON decodes a fresh entry into out. A decode failure is a miss:
// callers always have a fetch fallback, so corrupt data is never fatal.
func (c *Cache) GetJSON(key string, class Class, out any) bool {
	raw, ok := c.Get(key, class)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// GetJSONStale decodes the entry regardless of freshness.
func (c *Cache) GetJSONStale(key string, class Class, out any) bool {
	raw, ok := c.GetStale(key, class)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// PutJSON encodes v and writes it through. Encode failures are dropped;
// the cache is advisory and must never fail a sync cycle.
func (c *Cache) PutJSON(key string, class Class, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Put(key, class, raw)
}

func (c *Cache) fullKey(key string, class Class) string {
	// Class-prefixed keys keep the TTL partitions from colliding.
	var b strings.Builder
	b.WriteString(string(class))
	b.WriteByte(':')
	b.WriteString(key)
	return b.String()
}
