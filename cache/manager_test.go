package cache_test

import (
	"context"
	"fmt"
	"github.com/magic-lib/go-plat-cachestats/cache"
	"github.com/magic-lib/go-plat-cachestats/mgmt"
	"testing"
)

// statAttr 从全局统计注册表读取一个缓存的统计值
func statAttr(t *testing.T, uri, cacheName, attr string) int64 {
	t.Helper()
	name, err := mgmt.CacheStatisticsName(mgmt.Sanitize(uri), mgmt.Sanitize(cacheName))
	if err != nil {
		t.Fatal(err)
	}
	v, err := mgmt.Attr[int64](mgmt.Default(), name, attr)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

// statRegistered 判断缓存统计是否已注册
func statRegistered(uri, cacheName string) bool {
	name, err := mgmt.CacheStatisticsName(mgmt.Sanitize(uri), mgmt.Sanitize(cacheName))
	if err != nil {
		return false
	}
	return mgmt.Default().IsRegistered(name)
}

func statsCfg(capacity int) *cache.Config {
	return &cache.Config{
		Capacity:          capacity,
		StatisticsEnabled: true,
	}
}

func TestManagerLifecycle(t *testing.T) {
	uri := "test://manager-life"
	m := cache.NewManager(uri)
	_, err := cache.NewLruCache[string](m, "users", statsCfg(10))
	if err != nil {
		t.Fatal(err)
	}
	if !statRegistered(uri, "users") {
		t.Fatal("statistics should be registered on create")
	}
	got, ok := m.GetCache("users")
	if !ok || got.Name() != "users" {
		t.Fatal("cache should be registered on its manager")
	}
	if got.Manager() != m {
		t.Error("cache should point back to its manager")
	}
	if len(m.CacheNames()) != 1 {
		t.Errorf("want 1 cache, got %v", m.CacheNames())
	}

	if !m.DestroyCache("users") {
		t.Fatal("destroy should report the cache existed")
	}
	if statRegistered(uri, "users") {
		t.Error("statistics should be unregistered after destroy")
	}
	if _, ok = m.GetCache("users"); ok {
		t.Error("cache should be gone after destroy")
	}
	if m.DestroyCache("users") {
		t.Error("second destroy should report false")
	}
}

func TestManagerReplaceSameName(t *testing.T) {
	uri := "test://manager-replace"
	m := cache.NewManager(uri)
	ctx := context.Background()

	first, err := cache.NewLruCache[string](m, "users", statsCfg(10))
	if err != nil {
		t.Fatal(err)
	}
	_, _ = first.Set(ctx, "k", "v1", 0)

	second, err := cache.NewMemGoCache[string](m, "users", statsCfg(10))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.CacheNames()) != 1 {
		t.Fatalf("want 1 cache after replace, got %v", m.CacheNames())
	}
	if !statRegistered(uri, "users") {
		t.Fatal("statistics should stay registered after replace")
	}

	// 替换后是全新的缓存，旧数据不可见
	if v, _ := second.Get(ctx, "k"); v != "" {
		t.Errorf("replacement should start empty, got %q", v)
	}
	if n := statAttr(t, uri, "users", cache.AttrCacheMisses); n != 1 {
		t.Errorf("statistics should belong to the new cache, misses=%d", n)
	}
}

func TestManagerGetOrCreate(t *testing.T) {
	m := cache.NewManager("test://manager-getorcreate")
	builds := 0
	build := func() (cache.Cache, error) {
		builds++
		return cache.NewLruCache[string](m, "sessions", statsCfg(10))
	}

	c1, err := m.GetOrCreate("sessions", build)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := m.GetOrCreate("sessions", build)
	if err != nil {
		t.Fatal(err)
	}
	if c1 != c2 {
		t.Error("second call should reuse the built cache")
	}
	if builds != 1 {
		t.Errorf("build should run once, ran %d times", builds)
	}

	wantErr := fmt.Errorf("boom")
	if _, err = m.GetOrCreate("broken", func() (cache.Cache, error) {
		return nil, wantErr
	}); err == nil {
		t.Error("build errors should surface")
	}
}

func TestDefaultManager(t *testing.T) {
	if cache.DefaultManager().URI() != cache.DefaultManagerURI {
		t.Errorf("unexpected default uri: %s", cache.DefaultManager().URI())
	}
	if cache.GetManager("") != cache.DefaultManager() {
		t.Error("empty uri should resolve to the default manager")
	}
}

func TestManagerClose(t *testing.T) {
	uri := "test://manager-close"
	m := cache.NewManager(uri)
	if _, err := cache.NewLruCache[string](m, "a", statsCfg(10)); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.NewMemGoCache[string](m, "b", statsCfg(10)); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if len(m.CacheNames()) != 0 {
		t.Errorf("close should destroy every cache, left %v", m.CacheNames())
	}
	if statRegistered(uri, "a") || statRegistered(uri, "b") {
		t.Error("close should unregister all statistics")
	}
}
