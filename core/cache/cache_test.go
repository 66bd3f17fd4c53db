package cache

import (
	"errors"
	"sync"
	"testing"
)

// fill loads each key with its index, failing the test on error.
func fill(t *testing.T, c Cache[string, int], keys ...string) {
	t.Helper()
	for i, k := range keys {
		if _, _, err := c.GetOrLoad(k, func() (int, error) { return i, nil }); err != nil {
			t.Fatalf("GetOrLoad(%s) failed: %v", k, err)
		}
	}
}

// cached reports whether key is present without loading it.
func cached(c Cache[string, int], key string) bool {
	_, hit, err := c.GetOrLoad(key, func() (int, error) { return 0, errMiss })
	return hit && err == nil
}

var errMiss = errors.New("miss")

func TestLRUCache_GetOrLoad(t *testing.T) {
	cache := NewLRUCache[string, int](Config{MaxSize: 2})

	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	v, hit, err := cache.GetOrLoad("k", load)
	if err != nil || hit || v != 42 {
		t.Fatalf("first GetOrLoad = %d, %v, %v; want 42, false, nil", v, hit, err)
	}
	v, hit, err = cache.GetOrLoad("k", load)
	if err != nil || !hit || v != 42 {
		t.Fatalf("second GetOrLoad = %d, %v, %v; want 42, true, nil", v, hit, err)
	}
	if calls != 1 {
		t.Errorf("load called %d times; want 1", calls)
	}

	boom := errors.New("boom")
	_, _, err = cache.GetOrLoad("bad", func() (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Errorf("GetOrLoad error = %v; want boom", err)
	}
	if cached(cache, "bad") {
		t.Error("failed load should not be cached")
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	cache := NewLRUCache[string, int](Config{MaxSize: 2})

	fill(t, cache, "a", "b", "c") // evicts "a"
	if cached(cache, "a") {
		t.Error("a should be evicted")
	}

	fill(t, cache, "b", "d") // "b" becomes most recent, "c" is evicted
	if cached(cache, "c") {
		t.Error("c should be evicted")
	}
	if !cached(cache, "b") || !cached(cache, "d") {
		t.Error("b and d should be cached")
	}
}

func TestLRUCache_Stats(t *testing.T) {
	cache := NewLRUCache[string, int](Config{MaxSize: 2})

	fill(t, cache, "a", "b", "a", "b", "c") // 3 misses, 2 hits, evicts "a"

	stats := cache.Stats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d; want 2", stats.Hits)
	}
	if stats.Misses != 3 {
		t.Errorf("Misses = %d; want 3", stats.Misses)
	}
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d; want 1", stats.Evictions)
	}
	if stats.Size != 2 || stats.MaxSize != 2 {
		t.Errorf("Size/MaxSize = %d/%d; want 2/2", stats.Size, stats.MaxSize)
	}
}

func TestLRUCache_OnEvict(t *testing.T) {
	var evictedKey string
	var evictedValue int

	cache := NewLRUCache[string, int](Config{
		MaxSize: 2,
		OnEvict: func(key, value interface{}) {
			evictedKey = key.(string)
			evictedValue = value.(int)
		},
	})

	fill(t, cache, "a", "b", "c")

	if evictedKey != "a" || evictedValue != 0 {
		t.Errorf("evicted = %s/%d; want a/0", evictedKey, evictedValue)
	}
}

func TestLRUCache_Unlimited(t *testing.T) {
	cache := NewLRUCache[int, int](Config{MaxSize: -1})
	for i := 0; i < 1000; i++ {
		cache.GetOrLoad(i, func() (int, error) { return i, nil })
	}
	if n := cache.Stats().Size; n != 1000 {
		t.Errorf("Size = %d; want 1000", n)
	}
}

func TestLRUCache_Concurrency(t *testing.T) {
	config := Config{MaxSize: 100}
	cache := NewLRUCache[int, int](config)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := id*100 + j
				_, _, _ = cache.GetOrLoad(key, func() (int, error) { return key, nil })
				_, _, _ = cache.GetOrLoad(key%7, func() (int, error) { return key, nil })
			}
		}(i)
	}
	wg.Wait()

	if n := cache.Stats().Size; n > config.MaxSize {
		t.Errorf("Size = %d; want <= %d", n, config.MaxSize)
	}
}

func TestDefaultConfig(t *testing.T) {
	if got := DefaultConfig().MaxSize; got != 256 {
		t.Errorf("DefaultConfig().MaxSize = %d; want 256", got)
	}
}
