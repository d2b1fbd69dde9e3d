package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// These tests need a scratch redis; set TEST_REDIS_ADDR to run them.
func newTestRedis(t *testing.T) (*Redis, *redis.Client) {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}

	return NewRedisFromClient(client, time.Minute), client
}

func TestRedis_GetJSONMiss(t *testing.T) {
	r, client := newTestRedis(t)
	ctx := context.Background()

	key := "test:missing:" + t.Name()
	_ = client.Del(ctx, "autocabinet:"+key).Err()

	var out []stage
	found, err := r.GetJSON(ctx, key, &out)
	if err != nil {
		t.Fatalf("miss should not be an error: %v", err)
	}
	if found {
		t.Fatalf("expected a miss")
	}
}

func TestRedis_SetJSONUsesPrefixAndTTL(t *testing.T) {
	r, client := newTestRedis(t)
	ctx := context.Background()

	key := "test:stages:" + t.Name()
	t.Cleanup(func() { _ = client.Del(context.Background(), "autocabinet:"+key).Err() })

	in := []stage{{ID: "C1:EXECUTING", Value: "В работе"}}
	if err := r.SetJSON(ctx, key, in); err != nil {
		t.Fatalf("SetJSON error: %v", err)
	}

	raw, err := client.Get(ctx, "autocabinet:"+key).Result()
	if err != nil {
		t.Fatalf("prefixed key not written: %v", err)
	}
	if raw != `[{"id":"C1:EXECUTING","value":"В работе"}]` {
		t.Fatalf("unexpected stored value %s", raw)
	}

	ttl, err := client.TTL(ctx, "autocabinet:"+key).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	var out []stage
	found, err := r.GetJSON(ctx, key, &out)
	if err != nil || !found {
		t.Fatalf("GetJSON found=%v err=%v", found, err)
	}
	if len(out) != 1 || out[0] != in[0] {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestRedis_GetJSONCorruptValue(t *testing.T) {
	r, client := newTestRedis(t)
	ctx := context.Background()

	key := "test:corrupt:" + t.Name()
	t.Cleanup(func() { _ = client.Del(context.Background(), "autocabinet:"+key).Err() })

	if err := client.Set(ctx, "autocabinet:"+key, "{not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var out []stage
	found, err := r.GetJSON(ctx, key, &out)
	if err == nil || found {
		t.Fatalf("expected decode error, got found=%v err=%v", found, err)
	}
}
