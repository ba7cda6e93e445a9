package metrics_test

import (
	"context"
	"fmt"
	"github.com/magic-lib/go-plat-cachestats/cache"
	"github.com/magic-lib/go-plat-cachestats/metrics"
	"github.com/magic-lib/go-plat-cachestats/mgmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"strings"
	"testing"
)

// stubCache 只带名称的缓存，统计源由各用例自行注册
type stubCache struct {
	name string
}

func (s *stubCache) Name() string            { return s.name }
func (s *stubCache) Manager() *cache.Manager { return nil }
func (s *stubCache) Close() error            { return nil }

type stubSource struct {
	vals map[string]int64
	err  error
}

func (s *stubSource) Attribute(name string) (any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vals[name], nil
}

func TestCollectorWithoutCaches(t *testing.T) {
	cc := metrics.NewCacheCollector(mgmt.NewRegistry())

	mfs, err := cc.Families()
	if err != nil {
		t.Fatal(err)
	}
	if len(mfs) != 6 {
		t.Fatalf("want 6 families, got %d", len(mfs))
	}
	for _, mf := range mfs {
		if len(mf.Samples) != 0 {
			t.Errorf("family %s should be empty", mf.Name)
		}
	}
	if n := testutil.CollectAndCount(cc); n != 0 {
		t.Errorf("want 0 metrics, got %d", n)
	}

	ch := make(chan *prometheus.Desc, 16)
	cc.Describe(ch)
	close(ch)
	descs := 0
	for range ch {
		descs++
	}
	if descs != 6 {
		t.Errorf("want 6 descriptors, got %d", descs)
	}
}

func TestCollectorCacheMetrics(t *testing.T) {
	m := cache.NewManager("test://collector-users")
	co, err := cache.NewLruCache[string](m, "users", &cache.Config{Capacity: 2, StatisticsEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	_, _ = co.Get(ctx, "a")          // miss
	_, _ = co.Get(ctx, "b")          // miss
	_, _ = co.Set(ctx, "a", "va", 0) // put
	_, _ = co.Get(ctx, "a")          // hit
	_, _ = co.Set(ctx, "b", "vb", 0) // put
	_, _ = co.Set(ctx, "c", "vc", 0) // put, evicts a
	_, _ = co.Set(ctx, "d", "vd", 0) // put, evicts b
	_, _ = co.Del(ctx, "c")          // removal

	cc := metrics.NewCacheCollector()
	cc.AddCache(co)

	expected := `
# HELP jcache_cache_eviction_total Cache eviction totals, doesn't include manually removed entries
# TYPE jcache_cache_eviction_total counter
jcache_cache_eviction_total{cache="users"} 2
# HELP jcache_cache_hit_total Cache hit totals
# TYPE jcache_cache_hit_total counter
jcache_cache_hit_total{cache="users"} 1
# HELP jcache_cache_miss_total Cache miss totals
# TYPE jcache_cache_miss_total counter
jcache_cache_miss_total{cache="users"} 2
# HELP jcache_cache_put_total Cache put totals, the number of manually added entries
# TYPE jcache_cache_put_total counter
jcache_cache_put_total{cache="users"} 4
# HELP jcache_cache_remove_total Cache removal totals, the number of manually removed entries
# TYPE jcache_cache_remove_total counter
jcache_cache_remove_total{cache="users"} 1
# HELP jcache_cache_requests_total Cache request totals, hits + misses
# TYPE jcache_cache_requests_total counter
jcache_cache_requests_total{cache="users"} 3
`
	if err = testutil.CollectAndCompare(cc, strings.NewReader(expected)); err != nil {
		t.Fatal(err)
	}

	removed, ok := cc.RemoveCache("users")
	if !ok {
		t.Fatal("remove should report the cache existed")
	}
	if removed != cache.Cache(co) {
		t.Error("remove should hand back the same instance")
	}
	if n := testutil.CollectAndCount(cc); n != 0 {
		t.Errorf("removed cache should stop being exported, got %d metrics", n)
	}
	if _, ok = cc.RemoveCache("users"); ok {
		t.Error("second remove should report false")
	}
}

func TestAddCacheReplacesSameName(t *testing.T) {
	m1 := cache.NewManager("test://collector-repl-a")
	m2 := cache.NewManager("test://collector-repl-b")
	ctx := context.Background()

	first, err := cache.NewLruCache[string](m1, "users", &cache.Config{Capacity: 4, StatisticsEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.NewLruCache[string](m2, "users", &cache.Config{Capacity: 4, StatisticsEnabled: true})
	if err != nil {
		t.Fatal(err)
	}

	_, _ = first.Set(ctx, "k", "v", 0)
	_, _ = second.Set(ctx, "k", "v", 0)
	_, _ = second.Set(ctx, "k2", "v", 0)

	cc := metrics.NewCacheCollector()
	cc.AddCache(first)
	cc.AddCache(second) // 同名登记，替换前一个

	expected := `
# HELP jcache_cache_put_total Cache put totals, the number of manually added entries
# TYPE jcache_cache_put_total counter
jcache_cache_put_total{cache="users"} 2
`
	if err = testutil.CollectAndCompare(cc, strings.NewReader(expected), "jcache_cache_put_total"); err != nil {
		t.Fatal(err)
	}
}

func TestNoLoadFamiliesExported(t *testing.T) {
	m := cache.NewManager("test://collector-loads")
	co, err := cache.NewLruCache[string](m, "loadingusers", &cache.Config{Capacity: 4, StatisticsEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_, _ = co.Set(ctx, "user1", "First User", 0)
	_, _ = co.Get(ctx, "user1")
	_, _ = co.Get(ctx, "user2")

	cc := metrics.NewCacheCollector()
	cc.AddCache(co)

	// 统计源不含加载类指标，对应序列不应凭空出现
	loads := testutil.CollectAndCount(cc,
		"jcache_cache_loads_total",
		"jcache_cache_load_failure_total",
		"jcache_cache_load_duration_seconds")
	if loads != 0 {
		t.Errorf("load families should not exist, got %d series", loads)
	}
	if n := testutil.CollectAndCount(cc); n != 6 {
		t.Errorf("want the 6 counter families only, got %d series", n)
	}
}

func TestUnmonitoredCacheSkipped(t *testing.T) {
	m := cache.NewManager("test://collector-quiet")
	co, err := cache.NewLruCache[string](m, "quiet", &cache.Config{Capacity: 4})
	if err != nil {
		t.Fatal(err)
	}
	_, _ = co.Set(context.Background(), "k", "v", 0)

	cc := metrics.NewCacheCollector()
	cc.AddCache(co)

	// 统计未开启的缓存静默跳过，不算错误
	mfs, err := cc.Families()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range mfs {
		if len(mf.Samples) != 0 {
			t.Errorf("family %s should skip the unmonitored cache", mf.Name)
		}
	}
	if n := testutil.CollectAndCount(cc); n != 0 {
		t.Errorf("want 0 metrics, got %d", n)
	}
}

func TestScrapeFailsWhenAttributeReadFails(t *testing.T) {
	reg := mgmt.NewRegistry()
	goodName, err := mgmt.CacheStatisticsName("", "good")
	if err != nil {
		t.Fatal(err)
	}
	badName, err := mgmt.CacheStatisticsName("", "bad")
	if err != nil {
		t.Fatal(err)
	}
	_ = reg.Register(goodName, &stubSource{vals: map[string]int64{"CacheHits": 5}})
	_ = reg.Register(badName, &stubSource{err: fmt.Errorf("attribute backend down")})

	cc := metrics.NewCacheCollector(reg)
	cc.AddCache(&stubCache{name: "good"})
	cc.AddCache(&stubCache{name: "bad"})

	// 任何一个读取失败，本次采集整体失败
	if _, err = cc.Families(); err == nil {
		t.Fatal("expected scrape error")
	}

	preg := prometheus.NewPedanticRegistry()
	if err = preg.Register(cc); err != nil {
		t.Fatal(err)
	}
	if _, err = preg.Gather(); err == nil {
		t.Fatal("gather should fail when one cache cannot be read")
	}
}

func TestSpecialCharactersInCacheName(t *testing.T) {
	m := cache.NewManager("test://collector-special")
	weird := "users,shard:1=a\nb"
	co, err := cache.NewLruCache[string](m, weird, &cache.Config{Capacity: 4, StatisticsEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_, _ = co.Set(ctx, "k", "v", 0)
	_, _ = co.Get(ctx, "k")

	cc := metrics.NewCacheCollector()
	cc.AddCache(co)

	// 标签保留原始名称，只有内部管理名被清洗
	expected := `
# HELP jcache_cache_hit_total Cache hit totals
# TYPE jcache_cache_hit_total counter
jcache_cache_hit_total{cache="users,shard:1=a\nb"} 1
`
	if err = testutil.CollectAndCompare(cc, strings.NewReader(expected), "jcache_cache_hit_total"); err != nil {
		t.Fatal(err)
	}
}

func TestMalformedCacheNamePanics(t *testing.T) {
	cc := metrics.NewCacheCollector(mgmt.NewRegistry())
	cc.AddCache(&stubCache{name: "users*"})

	defer func() {
		if recover() == nil {
			t.Error("a name that cannot form a management name should panic")
		}
	}()
	_, _ = cc.Families()
}

func TestClearRemovesEverything(t *testing.T) {
	cc := metrics.NewCacheCollector(mgmt.NewRegistry())
	cc.AddCache(&stubCache{name: "one"})
	cc.AddCache(&stubCache{name: "two"})
	if len(cc.CacheNames()) != 2 {
		t.Fatalf("want 2 caches, got %v", cc.CacheNames())
	}

	cc.Clear()
	if len(cc.CacheNames()) != 0 {
		t.Errorf("clear should drop every cache, left %v", cc.CacheNames())
	}
	if n := testutil.CollectAndCount(cc); n != 0 {
		t.Errorf("want 0 metrics, got %d", n)
	}
}

func TestCounterFamilyAdd(t *testing.T) {
	mf := metrics.NewCounterFamily("x_total", "help text", []string{"cache"})
	mf.Add(3, "a")
	mf.Add(5, "b")
	if len(mf.Samples) != 2 {
		t.Fatalf("want 2 samples, got %d", len(mf.Samples))
	}
	if mf.Samples[1].Value != 5 || mf.Samples[1].LabelValues[0] != "b" {
		t.Errorf("unexpected sample: %+v", mf.Samples[1])
	}
	if mf.Desc() == nil {
		t.Error("desc should not be nil")
	}
}
