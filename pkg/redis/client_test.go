package redis

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/rxexchange-backend/pkg/config"
)

func TestSetNXAndDelete(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.IdempotencyKey("orders.create", "tenant:abc")

	ok, err := client.SetNX(ctx, key, "pending", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, key, "pending", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second setnx to lose, ok=%v err=%v", ok, err)
	}
	if err := client.Set(ctx, key, `{"status":201}`, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, err := client.Get(ctx, key)
	if err != nil || value != `{"status":201}` {
		t.Fatalf("unexpected value %q err=%v", value, err)
	}
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.SetNX(context.Background(), "k", "v", 0); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on empty client: %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	key := client.IdempotencyKey("tenant-1|user-1|POST|/api/v1/orders", "abc")
	if !strings.HasPrefix(key, "rx:idempotency:") || !strings.HasSuffix(key, ":abc") {
		t.Fatalf("unexpected idempotency key %s", key)
	}
	if key != client.IdempotencyKey("tenant-1|user-1|POST|/api/v1/orders", " abc ") {
		t.Fatal("expected stable key for the same scope")
	}
	if key == client.IdempotencyKey("tenant-2|user-1|POST|/api/v1/orders", "abc") {
		t.Fatal("expected different scopes to produce different keys")
	}
	long := client.IdempotencyKey(strings.Repeat("x", 4096), "abc")
	if len(long) != len(key) {
		t.Fatalf("expected bounded key length, got %d", len(long))
	}
	if got := client.LockKey("cron"); got != "rx:lock:cron" {
		t.Fatalf("unexpected lock key %s", got)
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

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 3, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 3 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected address options %+v", opts)
	}
}

func TestOwnerGuardedLockHelpers(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.LockKey("cron")

	if ok, _ := client.SetNX(ctx, key, "replica-a", time.Minute); !ok {
		t.Fatal("expected lock acquisition")
	}
	if ok, err := client.ExtendOwned(ctx, key, "replica-b", time.Minute); err != nil || ok {
		t.Fatalf("foreign owner must not extend, ok=%v err=%v", ok, err)
	}
	if ok, err := client.ExtendOwned(ctx, key, "replica-a", 2*time.Minute); err != nil || !ok {
		t.Fatalf("owner extend failed, ok=%v err=%v", ok, err)
	}
	if mock.ttls[key] != 2*time.Minute {
		t.Fatalf("expected ttl reset to 2m, got %s", mock.ttls[key])
	}
	if ok, err := client.ReleaseOwned(ctx, key, "replica-b"); err != nil || ok {
		t.Fatalf("foreign owner must not release, ok=%v err=%v", ok, err)
	}
	if ok, err := client.ReleaseOwned(ctx, key, "replica-a"); err != nil || !ok {
		t.Fatalf("owner release failed, ok=%v err=%v", ok, err)
	}
	if _, err := client.Get(ctx, key); err != redis.Nil {
		t.Fatalf("expected key removed, got %v", err)
	}
}

type mockCmdable struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

// Eval understands only the two owner-guarded scripts.
func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	key := keys[0]
	if m.data[key] != fmt.Sprint(args[0]) {
		return redis.NewCmdResult(int64(0), nil)
	}
	switch script {
	case releaseOwnedScript:
		delete(m.data, key)
		delete(m.ttls, key)
	case extendOwnedScript:
		m.ttls[key] = time.Duration(args[1].(int64)) * time.Millisecond
	default:
		return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
	}
	return redis.NewCmdResult(int64(1), nil)
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
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

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
