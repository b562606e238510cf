package redis

import (
	"context"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type fakeCmdable struct {
	setNXCalls map[string]bool
	values     map[string]string
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{setNXCalls: map[string]bool{}, values: map[string]string{}}
}

func (f *fakeCmdable) Ping(ctx context.Context) *redislib.StatusCmd {
	cmd := redislib.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeCmdable) Set(ctx context.Context, key string, value any, ttl time.Duration) *redislib.StatusCmd {
	f.values[key] = toString(value)
	cmd := redislib.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeCmdable) Get(ctx context.Context, key string) *redislib.StringCmd {
	cmd := redislib.NewStringCmd(ctx)
	if v, ok := f.values[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redislib.Nil)
	}
	return cmd
}

func (f *fakeCmdable) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redislib.BoolCmd {
	cmd := redislib.NewBoolCmd(ctx)
	if _, exists := f.values[key]; exists {
		cmd.SetVal(false)
		return cmd
	}
	f.values[key] = toString(value)
	f.setNXCalls[key] = true
	cmd.SetVal(true)
	return cmd
}

func (f *fakeCmdable) Incr(ctx context.Context, key string) *redislib.IntCmd {
	cmd := redislib.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func (f *fakeCmdable) Expire(ctx context.Context, key string, ttl time.Duration) *redislib.BoolCmd {
	cmd := redislib.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeCmdable) Del(ctx context.Context, keys ...string) *redislib.IntCmd {
	for _, key := range keys {
		delete(f.values, key)
	}
	cmd := redislib.NewIntCmd(ctx)
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return "1"
}

func TestIdempotencyKeyNamespacing(t *testing.T) {
	client := &Client{store: newFakeCmdable()}
	got := client.IdempotencyKey("evt:processed:worker", "abc-123")
	want := "lp:idempotency:evt:processed:worker:abc-123"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSetNXFirstWriteWins(t *testing.T) {
	client := &Client{store: newFakeCmdable()}
	ctx := context.Background()

	first, err := client.SetNX(ctx, "lp:test:key", "1", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first {
		t.Fatal("expected first SetNX to succeed")
	}

	second, err := client.SetNX(ctx, "lp:test:key", "1", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second {
		t.Fatal("expected second SetNX to report the key exists")
	}
}

func TestDelRemovesKey(t *testing.T) {
	fake := newFakeCmdable()
	client := &Client{store: fake}
	ctx := context.Background()

	if err := client.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "k"); err == nil {
		t.Fatal("expected missing key after delete")
	}
}
