package cache

import (
	"fmt"
	"github.com/magic-lib/go-plat-cachestats/mgmt"
	"sync/atomic"
)

// 统计属性名称，采集侧按这些名称读取
const (
	AttrCacheHits      = "CacheHits"
	AttrCacheMisses    = "CacheMisses"
	AttrCacheGets      = "CacheGets"
	AttrCachePuts      = "CachePuts"
	AttrCacheEvictions = "CacheEvictions"
	AttrCacheRemovals  = "CacheRemovals"
)

// Statistics 单个缓存的运行统计，读取次数为命中与未命中之和
type Statistics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	puts      atomic.Int64
	evictions atomic.Int64
	removals  atomic.Int64
}

// NewStatistics 新建统计
func NewStatistics() *Statistics {
	return &Statistics{}
}

// Hit 记录一次命中
func (s *Statistics) Hit() { s.hits.Add(1) }

// Miss 记录一次未命中
func (s *Statistics) Miss() { s.misses.Add(1) }

// Put 记录一次写入
func (s *Statistics) Put() { s.puts.Add(1) }

// Eviction 记录一次淘汰，不包含手工删除
func (s *Statistics) Eviction() { s.evictions.Add(1) }

// Removal 记录一次手工删除
func (s *Statistics) Removal() { s.removals.Add(1) }

// addEvictions 批量累计淘汰，后台清理任务使用
func (s *Statistics) addEvictions(n int64) {
	if n > 0 {
		s.evictions.Add(n)
	}
}

// track 根据查询结果累计命中或未命中
func (s *Statistics) track(found bool) {
	if found {
		s.Hit()
	} else {
		s.Miss()
	}
}

func (s *Statistics) CacheHits() int64      { return s.hits.Load() }
func (s *Statistics) CacheMisses() int64    { return s.misses.Load() }
func (s *Statistics) CacheGets() int64      { return s.hits.Load() + s.misses.Load() }
func (s *Statistics) CachePuts() int64      { return s.puts.Load() }
func (s *Statistics) CacheEvictions() int64 { return s.evictions.Load() }
func (s *Statistics) CacheRemovals() int64  { return s.removals.Load() }

// Reset 清零
func (s *Statistics) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.puts.Store(0)
	s.evictions.Store(0)
	s.removals.Store(0)
}

// Attribute 按名称读取统计值
func (s *Statistics) Attribute(name string) (any, error) {
	switch name {
	case AttrCacheHits:
		return s.CacheHits(), nil
	case AttrCacheMisses:
		return s.CacheMisses(), nil
	case AttrCacheGets:
		return s.CacheGets(), nil
	case AttrCachePuts:
		return s.CachePuts(), nil
	case AttrCacheEvictions:
		return s.CacheEvictions(), nil
	case AttrCacheRemovals:
		return s.CacheRemovals(), nil
	}
	return nil, fmt.Errorf("未知的统计属性: %s", name)
}

var _ mgmt.Source = (*Statistics)(nil)
