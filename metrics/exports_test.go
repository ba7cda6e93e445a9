package metrics_test

import (
	"context"
	"github.com/magic-lib/go-plat-cachestats/cache"
	"github.com/magic-lib/go-plat-cachestats/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"strings"
	"testing"
)

func TestDefaultCollectorSingleton(t *testing.T) {
	a := metrics.DefaultCollector()
	b := metrics.DefaultCollector()
	if a != b {
		t.Fatal("default collector should be one instance")
	}

	m := cache.NewManager("test://exports")
	co, err := cache.NewLruCache[string](m, "exports-users", &cache.Config{Capacity: 4, StatisticsEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_, _ = co.Set(ctx, "k", "v", 0)
	_, _ = co.Get(ctx, "k")
	a.AddCache(co)

	// 单例已经挂在默认注册表上，直接走全局抓取
	expected := `
# HELP jcache_cache_hit_total Cache hit totals
# TYPE jcache_cache_hit_total counter
jcache_cache_hit_total{cache="exports-users"} 1
`
	err = testutil.GatherAndCompare(prometheus.DefaultGatherer, strings.NewReader(expected), "jcache_cache_hit_total")
	if err != nil {
		t.Fatal(err)
	}

	a.RemoveCache("exports-users")
}
