package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cachedPayload struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func newTestCache(t *testing.T) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheHelper(client, "test:"), mr
}

func TestCacheHelper_SetGet(t *testing.T) {
	helper, _ := newTestCache(t)
	ctx := context.Background()

	payload := cachedPayload{ID: 7, Title: "Midterm"}
	if err := helper.Set(ctx, "evaluation:7", payload, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var got cachedPayload
	if err := helper.Get(ctx, "evaluation:7", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != payload {
		t.Errorf("Expected %+v, got %+v", payload, got)
	}
}

func TestCacheHelper_GetMissing(t *testing.T) {
	helper, _ := newTestCache(t)

	var got cachedPayload
	err := helper.Get(context.Background(), "absent", &got)
	if !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Expected ErrCacheNotFound, got %v", err)
	}
}

func TestCacheHelper_NilClientDegrades(t *testing.T) {
	helper := NewCacheHelper(nil, "")
	ctx := context.Background()

	if err := helper.Set(ctx, "k", "v", time.Minute); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Expected ErrCacheNotAvailable on Set, got %v", err)
	}

	var got string
	if err := helper.Get(ctx, "k", &got); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Expected ErrCacheNotAvailable on Get, got %v", err)
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	helper, mr := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return cachedPayload{ID: 1, Title: "fetched"}, nil
	}

	var first cachedPayload
	if err := helper.CacheOrExecute(ctx, "payload:1", &first, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("Expected 1 fetch call, got %d", calls)
	}

	// The cache write happens off the request path; wait for it to land.
	deadline := time.Now().Add(2 * time.Second)
	for !mr.Exists("test:payload:1") {
		if time.Now().After(deadline) {
			t.Fatal("Cache write never landed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var second cachedPayload
	if err := helper.CacheOrExecute(ctx, "payload:1", &second, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute failed on cached read: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected cache hit to skip the fetch, got %d calls", calls)
	}
	if second != first {
		t.Errorf("Cached value %+v differs from fetched %+v", second, first)
	}
}

func TestCacheHelper_CacheOrExecute_NilClientStillFetches(t *testing.T) {
	helper := NewCacheHelper(nil, "")

	calls := 0
	var got cachedPayload
	err := helper.CacheOrExecute(context.Background(), "k", &got, time.Minute, func() (interface{}, error) {
		calls++
		return cachedPayload{ID: 2, Title: "direct"}, nil
	})
	if err != nil {
		t.Fatalf("CacheOrExecute must degrade to a direct fetch: %v", err)
	}
	if calls != 1 || got.ID != 2 {
		t.Errorf("Expected direct fetch result, calls=%d got=%+v", calls, got)
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	helper, mr := newTestCache(t)
	ctx := context.Background()

	for _, key := range []string{"assignment:id:1", "assignment:id:2", "stats:evaluation:1"} {
		if err := helper.Set(ctx, key, "x", time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "assignment:id:*"); err != nil {
		t.Fatalf("InvalidatePattern failed: %v", err)
	}

	if mr.Exists("test:assignment:id:1") || mr.Exists("test:assignment:id:2") {
		t.Error("Expected assignment keys to be invalidated")
	}
	if !mr.Exists("test:stats:evaluation:1") {
		t.Error("Unrelated key must survive invalidation")
	}
}

func TestCacheManager_NilClient(t *testing.T) {
	cm := NewCacheManager(nil)

	if err := cm.HealthCheck(context.Background()); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Expected ErrCacheNotAvailable, got %v", err)
	}
}
