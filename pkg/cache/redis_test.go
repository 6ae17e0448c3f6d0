package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client, skipping when no local Redis
// is available. The testcontainers-backed integration suite covers the same
// paths against a real container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil, time.Minute)
}

func TestRedisStore_SetAndGet(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t), time.Minute)
	ctx := context.Background()

	store.Set(ctx, "contacts:search=a:page=1", testPage(1))

	page, ok := store.Get(ctx, "contacts:search=a:page=1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if page.Number != 1 || len(page.Contacts) != 1 {
		t.Errorf("unexpected page after round trip: %+v", page)
	}

	if _, ok := store.Get(ctx, "contacts:missing"); ok {
		t.Error("expected cache miss for unknown key")
	}

	stats := store.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Hits/Misses = %d/%d, want 1/1", stats.Hits, stats.Misses)
	}
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t), time.Minute)
	ctx := context.Background()

	store.SetWithTTL(ctx, "contacts:k1", testPage(1), 100*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	if _, ok := store.Get(ctx, "contacts:k1"); ok {
		t.Error("entry should be absent after TTL")
	}
}

func TestRedisStore_InvalidateAndClear(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t), time.Minute)
	ctx := context.Background()

	store.Set(ctx, "contacts:search=a:page=1", testPage(1))
	store.Set(ctx, "contacts:search=a:page=2", testPage(2))
	store.Set(ctx, "contacts:search=b:page=1", testPage(1))

	removed := store.Invalidate(ctx, func(key string) bool {
		return key != "contacts:search=b:page=1"
	})
	if removed != 2 {
		t.Errorf("Invalidate removed %d, want 2", removed)
	}
	if !store.Contains(ctx, "contacts:search=b:page=1") {
		t.Error("unrelated key should survive invalidation")
	}

	store.Clear(ctx)
	if got := store.Stats(); got.Size != 0 || got.Hits != 0 || got.Misses != 0 {
		t.Errorf("Stats after Clear = %+v, want zeroes", got)
	}
}

func TestRedisStore_CorruptEntryIsMiss(t *testing.T) {
	redisClient := setupTestRedis(t)
	store := NewRedisStore(redisClient, time.Minute)
	ctx := context.Background()

	if err := redisClient.Set(ctx, "contacts:bad", "not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	if _, ok := store.Get(ctx, "contacts:bad"); ok {
		t.Error("corrupt entry should read as a miss")
	}
}
