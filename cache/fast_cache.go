package cache

import (
	"context"
	"fmt"
	"github.com/VictoriaMetrics/fastcache"
	"github.com/magic-lib/go-plat-utils/conv"
	"sync/atomic"
	"time"
)

var (
	defaultFastCacheSize = 128 * 1024 * 1024
)

// fastCache 基于fastcache的本地缓存，不支持过期时间
type fastCache[V any] struct {
	name     string
	mgr      *Manager
	mCache   *fastcache.Cache
	removals *atomic.Int64
}

// fastCacheSource 统计直接取自引擎计数，删除为调用次数
type fastCacheSource struct {
	mCache   *fastcache.Cache
	removals *atomic.Int64
}

// Attribute 按名称读取统计值
func (s *fastCacheSource) Attribute(name string) (any, error) {
	var st fastcache.Stats
	s.mCache.UpdateStats(&st)
	switch name {
	case AttrCacheHits:
		return int64(st.GetCalls - st.Misses), nil
	case AttrCacheMisses:
		return int64(st.Misses), nil
	case AttrCacheGets:
		return int64(st.GetCalls), nil
	case AttrCachePuts:
		return int64(st.SetCalls), nil
	case AttrCacheEvictions:
		return int64(0), nil //fastcache内部整块淘汰，不对外计数
	case AttrCacheRemovals:
		return s.removals.Load(), nil
	}
	return nil, fmt.Errorf("未知的统计属性: %s", name)
}

// NewFastCache 新建fastCache，容量取自cfg.MaxBytes
func NewFastCache[V any](m *Manager, name string, cfg *Config) (*fastCache[V], error) {
	cfg = initConfig(cfg)
	if cfg.MaxBytes <= 1024 {
		cfg.MaxBytes = defaultFastCacheSize
	}
	if m == nil {
		m = DefaultManager()
	}
	co := &fastCache[V]{
		name:     name,
		mgr:      m,
		mCache:   fastcache.New(cfg.MaxBytes),
		removals: &atomic.Int64{},
	}
	src := &fastCacheSource{
		mCache:   co.mCache,
		removals: co.removals,
	}
	if err := m.register(co, src, cfg); err != nil {
		return nil, err
	}
	return co, nil
}

// Name xxx
func (co *fastCache[V]) Name() string {
	return co.name
}

// Manager xxx
func (co *fastCache[V]) Manager() *Manager {
	return co.mgr
}

// Close 重置全部条目
func (co *fastCache[V]) Close() error {
	co.mCache.Reset()
	return nil
}

// Get 从缓存中取得一个值
func (co *fastCache[V]) Get(_ context.Context, key string) (V, error) {
	var zero V
	data := co.mCache.Get(nil, []byte(key))
	if len(data) == 0 {
		return zero, nil
	}
	retString := string(data)
	return conv.Convert[V](retString)
}

// Set timeout无效，fastcache不支持过期时间
func (co *fastCache[V]) Set(_ context.Context, key string, val V, _ time.Duration) (bool, error) {
	co.mCache.Set([]byte(key), []byte(conv.String(val)))
	return true, nil
}

// Del 从缓存中删除一个key
func (co *fastCache[V]) Del(_ context.Context, key string) (bool, error) {
	co.mCache.Del([]byte(key))
	co.removals.Add(1)
	return true, nil
}
