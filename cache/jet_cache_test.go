package cache_test

import (
	"context"
	"github.com/magic-lib/go-plat-cachestats/cache"
	"testing"
	"time"
)

func TestJetCacheLocalOnly(t *testing.T) {
	uri := "test://jet-local"
	m := cache.NewManager(uri)
	co, err := cache.NewJetCache[string](m, "profiles", &cache.Config{StatisticsEnabled: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	ok, err := co.Set(ctx, "u1", "alice", time.Minute)
	if err != nil || !ok {
		t.Fatalf("set failed: ok=%v err=%v", ok, err)
	}

	v, err := co.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if v != "alice" {
		t.Errorf("got %q, want alice", v)
	}

	// 未命中不是错误
	v, err = co.Get(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if v != "" {
		t.Errorf("absent key returned %q", v)
	}

	ok, err = co.Del(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("delete failed: ok=%v err=%v", ok, err)
	}
	if v, _ = co.Get(ctx, "u1"); v != "" {
		t.Errorf("deleted key returned %q", v)
	}

	if n := statAttr(t, uri, "profiles", cache.AttrCacheHits); n != 1 {
		t.Errorf("hits=%d, want 1", n)
	}
	if n := statAttr(t, uri, "profiles", cache.AttrCacheMisses); n != 2 {
		t.Errorf("misses=%d, want 2", n)
	}
	if n := statAttr(t, uri, "profiles", cache.AttrCachePuts); n != 1 {
		t.Errorf("puts=%d, want 1", n)
	}
	if n := statAttr(t, uri, "profiles", cache.AttrCacheRemovals); n != 1 {
		t.Errorf("removals=%d, want 1", n)
	}
}
