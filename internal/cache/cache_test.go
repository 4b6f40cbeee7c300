package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *MemoryStore, *time.Time) {
	t.Helper()
	store := NewMemoryStore()
	c := New(store, DefaultTTLs())
	now := time.Now()
	c.now = func() time.Time { return now }
	return c, store, &now
}

func TestCache_GetPut(t *testing.T) {
	c, _, _ := newTestCache(t)

	c.Put("dashboard", ClassSnapshot, []byte(`{"models":[]}`))

	val, ok := c.Get("dashboard", ClassSnapshot)
	require.True(t, ok, "expected fresh entry")
	assert.Equal(t, []byte(`{"models":[]}`), val)

	_, ok = c.Get("nonexistent", ClassSnapshot)
	assert.False(t, ok)
}

func TestCache_FreshnessPerClass(t *testing.T) {
	tests := []struct {
		name  string
		class Class
		ttl   time.Duration
	}{
		{"models 5m", ClassModels, 5 * time.Minute},
		{"status 30s", ClassStatus, 30 * time.Second},
		{"snapshot 60s", ClassSnapshot, 60 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, now := newTestCache(t)
			c.Put("k", tt.class, []byte("v"))

			// Just inside the TTL boundary.
			*now = now.Add(tt.ttl - time.Second)
			_, ok := c.Get("k", tt.class)
			assert.True(t, ok, "entry should be fresh just under the TTL")

			// At the boundary the entry is expired, treated as absent.
			*now = now.Add(time.Second)
			_, ok = c.Get("k", tt.class)
			assert.False(t, ok, "entry must not be served at/after the TTL")
		})
	}
}

func TestCache_GetStaleIgnoresTTL(t *testing.T) {
	c, _, now := newTestCache(t)
	c.Put("dashboard", ClassSnapshot, []byte("old"))

	*now = now.Add(time.Hour)
	_, ok := c.Get("dashboard", ClassSnapshot)
	require.False(t, ok)

	val, ok := c.GetStale("dashboard", ClassSnapshot)
	require.True(t, ok, "stale read must still return the entry")
	assert.Equal(t, []byte("old"), val)
}

func TestCache_ClassesDoNotCollide(t *testing.T) {
	c, _, _ := newTestCache(t)
	c.Put("alice", ClassStatus, []byte("status"))
	c.Put("alice", ClassModels, []byte("models"))

	v1, ok := c.Get("alice", ClassStatus)
	require.True(t, ok)
	v2, ok := c.Get("alice", ClassModels)
	require.True(t, ok)
	assert.NotEqual(t, v1, v2)
}

func TestCache_CorruptPayloadIsMiss(t *testing.T) {
	c, _, _ := newTestCache(t)
	c.Put("dashboard", ClassSnapshot, []byte("{not json"))

	var out map[string]any
	assert.False(t, c.GetJSON("dashboard", ClassSnapshot, &out),
		"corrupt stored value must read as a miss, not an error")
}

func TestCache_JSONRoundTrip(t *testing.T) {
	c, _, _ := newTestCache(t)
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	c.PutJSON("k", ClassStatus, payload{Name: "alice", Count: 3})

	var out payload
	require.True(t, c.GetJSON("k", ClassStatus, &out))
	assert.Equal(t, payload{Name: "alice", Count: 3}, out)
}

func TestCache_Invalidate(t *testing.T) {
	c, _, _ := newTestCache(t)
	c.Put("alice", ClassStatus, []byte("a"))
	c.Put("bob", ClassStatus, []byte("b"))
	c.Put("dashboard", ClassSnapshot, []byte("s"))

	c.Invalidate("alice", ClassStatus)
	_, ok := c.Get("alice", ClassStatus)
	assert.False(t, ok)
	_, ok = c.Get("bob", ClassStatus)
	assert.True(t, ok)

	c.InvalidateClass(ClassStatus)
	_, ok = c.Get("bob", ClassStatus)
	assert.False(t, ok)
	_, ok = c.Get("dashboard", ClassSnapshot)
	assert.True(t, ok, "other classes must survive a class invalidation")
}

func TestMemoryStore_DeletePrefix(t *testing.T) {
	s := NewMemoryStore()
	s.Save("status:alice", Entry{Value: []byte("a"), StoredAt: time.Now()})
	s.Save("status:bob", Entry{Value: []byte("b"), StoredAt: time.Now()})
	s.Save("snapshot:dashboard", Entry{Value: []byte("s"), StoredAt: time.Now()})

	s.DeletePrefix("status:")
	assert.Equal(t, 1, s.Len())
	_, ok := s.Load("snapshot:dashboard")
	assert.True(t, ok)
}
