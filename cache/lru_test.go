package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRU[string, []string](10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("q1", []string{"weather_watcher"}, 0)
	got, ok := c.Get("q1")
	assert.True(t, ok)
	assert.Equal(t, []string{"weather_watcher"}, got)

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRU[string, string](10, time.Minute)
	c.Set("k", "v", 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRU[string, int](3, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i, 0)
	}

	// Touch k0 so k1 becomes the eviction candidate.
	_, ok := c.Get("k0")
	assert.True(t, ok)

	c.Set("k3", 3, 0)
	_, ok = c.Get("k1")
	assert.False(t, ok)
	_, ok = c.Get("k0")
	assert.True(t, ok)
	assert.Equal(t, 3, c.Len())
}

func TestLRUUpdateExisting(t *testing.T) {
	c := NewLRU[string, int](2, time.Minute)
	c.Set("k", 1, 0)
	c.Set("k", 2, 0)

	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 2, got)
	assert.Equal(t, 1, c.Len())
}

func TestLRURemove(t *testing.T) {
	c := NewLRU[string, int](2, time.Minute)
	c.Set("k", 1, 0)
	c.Remove("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
}
