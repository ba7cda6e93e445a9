package metrics

import (
	"fmt"
	"github.com/magic-lib/go-plat-cachestats/cache"
	"github.com/magic-lib/go-plat-cachestats/mgmt"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
)

// cacheLabel 每条样本携带的缓存名标签，保持登记时的原始值
const cacheLabel = "cache"

// 六个指标族的名称，与统计属性一一对应
const (
	hitTotalName      = "jcache_cache_hit_total"
	missTotalName     = "jcache_cache_miss_total"
	requestsTotalName = "jcache_cache_requests_total"
	putTotalName      = "jcache_cache_put_total"
	evictionTotalName = "jcache_cache_eviction_total"
	removeTotalName   = "jcache_cache_remove_total"
)

// familyAttrs 与 newFamilies 返回的指标族顺序一致
var familyAttrs = []string{
	cache.AttrCacheHits,
	cache.AttrCacheMisses,
	cache.AttrCacheGets,
	cache.AttrCachePuts,
	cache.AttrCacheEvictions,
	cache.AttrCacheRemovals,
}

// newFamilies 六个空指标族，顺序固定
func newFamilies() []*CounterFamily {
	labels := []string{cacheLabel}
	return []*CounterFamily{
		NewCounterFamily(hitTotalName, "Cache hit totals", labels),
		NewCounterFamily(missTotalName, "Cache miss totals", labels),
		NewCounterFamily(requestsTotalName, "Cache request totals, hits + misses", labels),
		NewCounterFamily(putTotalName, "Cache put totals, the number of manually added entries", labels),
		NewCounterFamily(evictionTotalName, "Cache eviction totals, doesn't include manually removed entries", labels),
		NewCounterFamily(removeTotalName, "Cache removal totals, the number of manually removed entries", labels),
	}
}

// CacheCollector 采集全部登记缓存的统计，输出为prometheus计数指标
type CacheCollector struct {
	children cmap.ConcurrentMap[string, cache.Cache]
	server   mgmt.Server
}

// NewCacheCollector 新建采集器，默认从全局统计注册表读取
func NewCacheCollector(server ...mgmt.Server) *CacheCollector {
	cc := &CacheCollector{
		children: cmap.New[cache.Cache](),
		server:   mgmt.Default(),
	}
	if len(server) > 0 && server[0] != nil {
		cc.server = server[0]
	}
	return cc
}

// AddCache 登记一个缓存，同名的会被替换
func (cc *CacheCollector) AddCache(c cache.Cache) {
	if c == nil {
		return
	}
	cc.children.Set(c.Name(), c)
}

// RemoveCache 摘除一个缓存并返回，之前未登记时返回false
func (cc *CacheCollector) RemoveCache(name string) (cache.Cache, bool) {
	return cc.children.Pop(name)
}

// Clear 摘除全部缓存
func (cc *CacheCollector) Clear() {
	cc.children.Clear()
}

// CacheNames 当前登记的全部缓存名
func (cc *CacheCollector) CacheNames() []string {
	return cc.children.Keys()
}

// Families 执行一次采集并返回六个指标族。
// 统计源未注册的缓存跳过，属性读取失败则整体失败，不输出部分结果。
func (cc *CacheCollector) Families() ([]*CounterFamily, error) {
	mfs := newFamilies()
	var scrapeErr error
	for name, c := range cc.children.Items() {
		objName := cc.statisticsName(name, c)
		if !cc.server.IsRegistered(objName) {
			continue
		}
		lo.ForEachWhile(familyAttrs, func(attr string, i int) bool {
			val, err := mgmt.Attr[int64](cc.server, objName, attr)
			if err != nil {
				scrapeErr = fmt.Errorf("读取缓存 %s 的统计属性 %s 失败: %w", name, attr, err)
				return false
			}
			mfs[i].Add(float64(val), name)
			return true
		})
		if scrapeErr != nil {
			return nil, scrapeErr
		}
	}
	return mfs, nil
}

// statisticsName 组装统计源名称，组不出合法名称说明缓存配置有误
func (cc *CacheCollector) statisticsName(name string, c cache.Cache) mgmt.ObjectName {
	uri := ""
	if m := c.Manager(); m != nil {
		uri = m.URI()
	}
	objName, err := mgmt.CacheStatisticsName(mgmt.Sanitize(uri), mgmt.Sanitize(name))
	if err != nil {
		panic(fmt.Sprintf("缓存 %q 无法组成合法的统计名称: %v", name, err))
	}
	return objName
}

// Describe 输出六个指标族的描述
func (cc *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	lo.ForEach(newFamilies(), func(mf *CounterFamily, _ int) {
		ch <- mf.Desc()
	})
}

// Collect 采集全部样本，任何一个缓存读取失败都会让本次抓取整体失败
func (cc *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	mfs, err := cc.Families()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(prometheus.NewInvalidDesc(err), err)
		return
	}
	for _, mf := range mfs {
		mf.collect(ch)
	}
}

var _ prometheus.Collector = (*CacheCollector)(nil)
