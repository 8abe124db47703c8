package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/zohosync-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestAccessTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if _, _, found, err := client.LoadAccessToken(ctx, "org-1"); err != nil || found {
		t.Fatalf("expected empty cache, found=%v err=%v", found, err)
	}

	expires := time.Now().Add(time.Hour)
	if err := client.StoreAccessToken(ctx, "org-1", "token-value", expires); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if got := mock.ttls["zs:zoho_token:org-1"]; got <= 59*time.Minute {
		t.Fatalf("expected ttl close to an hour, got %v", got)
	}

	token, expiresAt, found, err := client.LoadAccessToken(ctx, "org-1")
	if err != nil || !found {
		t.Fatalf("load failed found=%v err=%v", found, err)
	}
	if token != "token-value" {
		t.Fatalf("expected stored token, got %q", token)
	}
	if expiresAt.Before(time.Now().Add(59 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	if err := client.ClearAccessToken(ctx, "org-1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, _, found, _ := client.LoadAccessToken(ctx, "org-1"); found {
		t.Fatal("expected token to be cleared")
	}
}

func TestStoreAccessTokenSkipsExpired(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}
	if err := client.StoreAccessToken(context.Background(), "org-1", "stale", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.data) != 0 {
		t.Fatalf("expected expired token not to be stored, got %v", mock.data)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := client.SetNX(context.Background(), "k", "v", time.Second); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.AccessTokenKey("org"); got != "zs:zoho_token:org" {
		t.Fatalf("unexpected token key %s", got)
	}
	if got := client.LockKey("sync:items"); got != "zs:lock:sync:items" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.buildKey("lock", "", "x"); got != "zs:lock:x" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 {
		t.Fatalf("unexpected options db=%d pool=%d", opts.DB, opts.PoolSize)
	}
}

type mockCmdable struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) TTL(ctx context.Context, key string) *redis.DurationCmd {
	ttl, ok := m.ttls[key]
	if !ok {
		return redis.NewDurationResult(-2*time.Second, nil)
	}
	return redis.NewDurationResult(ttl, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
		delete(m.ttls, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
