package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCache_BasicOperations(t *testing.T) {
	cache := NewCache[string, string]()

	t.Run("Set and Get", func(t *testing.T) {
		cache.Set("home", "v1")

		got, exists := cache.Get("home")
		if !exists {
			t.Fatal("Expected key to exist")
		}
		if got != "v1" {
			t.Errorf("Expected %q, got %q", "v1", got)
		}
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		if _, exists := cache.Get("missing"); exists {
			t.Error("Expected key to not exist")
		}
	})

	t.Run("Keys and Clear", func(t *testing.T) {
		cache.Set("about", "v1")

		keys := cache.Keys()
		sort.Strings(keys)
		if fmt.Sprint(keys) != "[about home]" {
			t.Errorf("Expected keys [about home], got %v", keys)
		}

		cache.Clear()
		if cache.Len() != 0 {
			t.Errorf("Expected empty cache after Clear, got %d items", cache.Len())
		}
	})
}

func TestCache_GetOrSet(t *testing.T) {
	cache := NewCache[string, int]()

	var calls atomic.Int32
	create := func() int {
		calls.Add(1)
		return 42
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := cache.GetOrSet("answer", create); got != 42 {
				t.Errorf("Expected 42, got %d", got)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected create to run once, ran %d times", calls.Load())
	}
}

func lock(t *testing.T, km *KeyedMutex[string], key string) func() {
	t.Helper()
	unlock, err := km.LockContext(context.Background(), key)
	if err != nil {
		t.Fatalf("Expected lock on %q, got %v", key, err)
	}
	return unlock
}

func TestKeyedMutex(t *testing.T) {
	t.Run("Serializes the same key", func(t *testing.T) {
		km := NewKeyedMutex[string]()

		var active, maxActive atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, _ := km.LockContext(context.Background(), "home")
				defer unlock()

				n := active.Add(1)
				if n > maxActive.Load() {
					maxActive.Store(n)
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
			}()
		}
		wg.Wait()

		if maxActive.Load() != 1 {
			t.Errorf("Expected at most one holder, saw %d", maxActive.Load())
		}
	})

	t.Run("Different keys do not block each other", func(t *testing.T) {
		km := NewKeyedMutex[string]()
		unlockHome := lock(t, km, "home")
		defer unlockHome()

		done := make(chan struct{})
		go func() {
			unlock, _ := km.LockContext(context.Background(), "about")
			unlock()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Lock on a different key blocked")
		}
	})

	t.Run("LockContext gives up when the context ends", func(t *testing.T) {
		km := NewKeyedMutex[string]()
		unlock := lock(t, km, "home")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if _, err := km.LockContext(ctx, "home"); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Expected deadline exceeded, got %v", err)
		}

		unlock()
		unlockAgain, err := km.LockContext(context.Background(), "home")
		if err != nil {
			t.Fatalf("Expected lock after release, got %v", err)
		}
		unlockAgain()
	})
}

func BenchmarkCache_ConcurrentReadWrite(b *testing.B) {
	cache := NewCache[int, string]()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%2 == 0 {
				cache.Set(i, fmt.Sprintf("value-%d", i))
			} else {
				cache.Get(i)
			}
			i++
		}
	})
}
