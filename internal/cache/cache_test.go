package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryCache_GetSet(t *testing.T) {
	c := NewInMemoryCache(0)
	key := "test_key"
	value := "test_value"

	c.Set(key, value)
	retrieved, found := c.Get(key)

	assert.True(t, found, "Expected to find key in cache")
	assert.Equal(t, value, retrieved, "Expected value to match")
}

func TestInMemoryCache_Get_NotFound(t *testing.T) {
	c := NewInMemoryCache(0)
	_, found := c.Get("non_existent_key")
	assert.False(t, found, "Expected not to find key in cache")
}

func TestInMemoryCache_Overwrite(t *testing.T) {
	c := NewInMemoryCache(0)
	key := "key_to_overwrite"
	c.Set(key, "initial_value")
	c.Set(key, "new_value")

	retrieved, found := c.Get(key)
	assert.True(t, found)
	assert.Equal(t, "new_value", retrieved)
}

func TestInMemoryCache_Delete(t *testing.T) {
	c := NewInMemoryCache(0)
	c.Set("k", 1)
	c.Delete("k")
	c.Delete("never-set")

	_, found := c.Get("k")
	assert.False(t, found)
}

func TestInMemoryCache_TTLExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewInMemoryCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")

	now = now.Add(59 * time.Second)
	_, found := c.Get("k")
	assert.True(t, found, "entry should still be fresh")
	age, ok := c.Age("k")
	assert.True(t, ok)
	assert.Equal(t, 59*time.Second, age)

	now = now.Add(time.Second)
	_, found = c.Get("k")
	assert.False(t, found, "entry should be stale after the TTL")
	_, ok = c.Age("k")
	assert.False(t, ok)
}

func TestInMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewInMemoryCache(0)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(24 * 365 * time.Hour)

	_, found := c.Get("k")
	assert.True(t, found)
}

// Race Condition Test
func TestInMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewInMemoryCache(0)
	var wg sync.WaitGroup
	numGoroutines := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(fmt.Sprintf("key-%d", i), i)
		}(i)
	}
	wg.Wait()

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			val, found := c.Get(fmt.Sprintf("key-%d", i))
			assert.True(t, found)
			assert.Equal(t, i, val)
		}(i)
	}
	wg.Wait()
}
