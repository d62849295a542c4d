package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/orderlift/orderlift-backend/pkg/config"
)

type fakeStore struct {
	values  map[string]string
	expires map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}, expires: map[string]time.Duration{}}
}

func (f *fakeStore) Ping(context.Context) *goredis.StatusCmd {
	return goredis.NewStatusResult("PONG", nil)
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) *goredis.StatusCmd {
	f.values[key] = toString(value)
	f.expires[key] = ttl
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeStore) Get(_ context.Context, key string) *goredis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) *goredis.BoolCmd {
	if _, ok := f.values[key]; ok {
		return goredis.NewBoolResult(false, nil)
	}
	f.values[key] = toString(value)
	f.expires[key] = ttl
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeStore) Incr(_ context.Context, key string) *goredis.IntCmd {
	switch f.values[key] {
	case "":
		f.values[key] = "1"
		return goredis.NewIntResult(1, nil)
	case "1":
		f.values[key] = "2"
		return goredis.NewIntResult(2, nil)
	default:
		f.values[key] = "3"
		return goredis.NewIntResult(3, nil)
	}
}

func (f *fakeStore) Expire(_ context.Context, key string, ttl time.Duration) *goredis.BoolCmd {
	f.expires[key] = ttl
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
	}
	return goredis.NewIntResult(removed, nil)
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func TestNewRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), config.RedisConfig{}); err == nil {
		t.Fatal("expected error for empty redis url")
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	t.Parallel()

	opts, err := goredis.ParseURL("redis://localhost:6379/2")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	applyConfigDefaults(opts, config.RedisConfig{
		PoolSize:     15,
		MinIdleConns: 3,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 4 * time.Second,
	})

	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
	if opts.PoolSize != 15 {
		t.Fatalf("unexpected pool size %d", opts.PoolSize)
	}
	if opts.MinIdleConns != 3 {
		t.Fatalf("unexpected min idle conns %d", opts.MinIdleConns)
	}
	if opts.DialTimeout != 2*time.Second {
		t.Fatalf("unexpected dial timeout %s", opts.DialTimeout)
	}
}

func TestPriceKeyNamespacing(t *testing.T) {
	t.Parallel()

	c := &Client{store: newFakeStore()}
	got := c.PriceKey("Buying", "TUBE-40")
	want := "ol:price:Buying:TUBE-40"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	c := &Client{store: store}
	ctx := context.Background()

	key := c.PriceKey("Buying", "TUBE-40")
	if err := c.Set(ctx, key, "42.50", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "42.50" {
		t.Fatalf("got %q, want %q", got, "42.50")
	}
	if store.expires[key] != time.Minute {
		t.Fatalf("ttl not recorded")
	}
}

func TestIncrWithTTL_SetsExpiryOnFirstIncrement(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	c := &Client{store: store}
	ctx := context.Background()

	key := c.CounterKey("recalc")
	count, err := c.IncrWithTTL(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected first count 1, got %d", count)
	}
	if store.expires[key] != time.Hour {
		t.Fatalf("expected ttl applied on first increment")
	}

	count, err = c.IncrWithTTL(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected second count 2, got %d", count)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	t.Parallel()

	var c Client
	ctx := context.Background()
	if err := c.Ping(ctx); err == nil {
		t.Fatal("expected ping error")
	}
	if _, err := c.Get(ctx, "k"); err == nil {
		t.Fatal("expected get error")
	}
	if err := c.Set(ctx, "k", "v", 0); err == nil {
		t.Fatal("expected set error")
	}
}
