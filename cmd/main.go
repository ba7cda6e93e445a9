package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/magic-lib/go-plat-cachestats/cache"
	"github.com/magic-lib/go-plat-cachestats/metrics"
	"github.com/magic-lib/go-plat-utils/goroutines"
	"github.com/magic-lib/go-plat-utils/logs"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	listenAddr = flag.String("listen", ":9105", "指标服务监听地址")
	diskPath   = flag.String("disk", "", "磁盘缓存目录，留空则不启用磁盘缓存")
)

func main() {
	flag.Parse()

	m := cache.DefaultManager()
	cfg := &cache.Config{
		Capacity:          1024,
		MaxBytes:          32 * 1024 * 1024,
		DefaultExpiration: 5 * time.Minute,
		StatisticsEnabled: true,
	}

	users, err := cache.NewLruCache[string](m, "users", cfg)
	if err != nil {
		logs.DefaultLogger().Error("[cachestats-demo] create users cache error:", err.Error())
		return
	}
	sessions, err := cache.NewMemGoCache[string](m, "sessions", cfg)
	if err != nil {
		logs.DefaultLogger().Error("[cachestats-demo] create sessions cache error:", err.Error())
		return
	}
	pages, err := cache.NewFastCache[string](m, "pages", cfg)
	if err != nil {
		logs.DefaultLogger().Error("[cachestats-demo] create pages cache error:", err.Error())
		return
	}
	hotItems, err := cache.NewRistrettoCache[string](m, "hot-items", cfg)
	if err != nil {
		logs.DefaultLogger().Error("[cachestats-demo] create hot-items cache error:", err.Error())
		return
	}
	seenIds, err := cache.NewCuckooFilterCache(m, "seen-ids", cfg)
	if err != nil {
		logs.DefaultLogger().Error("[cachestats-demo] create seen-ids cache error:", err.Error())
		return
	}
	if *diskPath != "" {
		if _, err = cache.NewDiskCache(m, "articles", *diskPath, cfg); err != nil {
			logs.DefaultLogger().Error("[cachestats-demo] create articles cache error:", err.Error())
			return
		}
	}

	collector := metrics.DefaultCollector()
	for _, name := range m.CacheNames() {
		if c, ok := m.GetCache(name); ok {
			collector.AddCache(c)
		}
	}

	//模拟流量，让指标有数据
	goroutines.GoAsync(func(params ...any) {
		simulateTraffic(users, sessions, pages, hotItems, seenIds)
	}, nil)

	http.Handle("/metrics", promhttp.Handler())
	fmt.Println("cachestats demo listening on", *listenAddr)
	if err = http.ListenAndServe(*listenAddr, nil); err != nil {
		logs.DefaultLogger().Error("[cachestats-demo] http server error:", err.Error())
	}
}

// simulateTraffic 周期性读写各缓存，读写键范围错开以制造命中与未命中
func simulateTraffic(users, sessions, pages, hotItems cache.CommCache[string], seenIds cache.CommCache[bool]) {
	ctx := context.Background()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	i := 0
	for range ticker.C {
		i++
		_, _ = users.Set(ctx, fmt.Sprintf("user-%d", i%150), fmt.Sprintf("u-%d", i), 0)
		_, _ = users.Get(ctx, fmt.Sprintf("user-%d", i%100))
		_, _ = sessions.Set(ctx, fmt.Sprintf("sess-%d", i%60), "token", time.Minute)
		_, _ = sessions.Get(ctx, fmt.Sprintf("sess-%d", i%90))
		_, _ = pages.Set(ctx, fmt.Sprintf("page-%d", i%40), "<html>", 0)
		_, _ = pages.Get(ctx, fmt.Sprintf("page-%d", i%70))
		_, _ = hotItems.Set(ctx, fmt.Sprintf("item-%d", i%30), "hot", 0)
		_, _ = hotItems.Get(ctx, fmt.Sprintf("item-%d", i%50))
		_, _ = seenIds.Set(ctx, fmt.Sprintf("id-%d", i), true, 0)
		_, _ = seenIds.Get(ctx, fmt.Sprintf("id-%d", i/2))
		if i%500 == 0 {
			_, _ = users.Del(ctx, fmt.Sprintf("user-%d", i%100))
		}
	}
}
