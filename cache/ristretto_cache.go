package cache

import (
	"context"
	"fmt"
	"github.com/dgraph-io/ristretto"
	"time"
)

var (
	defaultRistrettoCapacity = 100000
)

// ristrettoCache 基于ristretto的本地缓存，写入异步生效
type ristrettoCache[V any] struct {
	name   string
	mgr    *Manager
	mCache *ristretto.Cache[string, V]
	stats  *Statistics
}

// ristrettoSource 淘汰次数实时取自引擎，其余取适配层统计
type ristrettoSource[V any] struct {
	mCache *ristretto.Cache[string, V]
	stats  *Statistics
}

// Attribute 按名称读取统计值
func (s *ristrettoSource[V]) Attribute(name string) (any, error) {
	if name == AttrCacheEvictions {
		return int64(s.mCache.Metrics.KeysEvicted()), nil
	}
	return s.stats.Attribute(name)
}

// NewRistrettoCache 新建ristretto缓存，容量取自cfg.Capacity
func NewRistrettoCache[V any](m *Manager, name string, cfg *Config) (*ristrettoCache[V], error) {
	cfg = initConfig(cfg)
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultRistrettoCapacity
	}
	if m == nil {
		m = DefaultManager()
	}
	engine, err := ristretto.NewCache[string, V](&ristretto.Config[string, V]{
		NumCounters: int64(cfg.Capacity) * 10,
		MaxCost:     int64(cfg.Capacity),
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("创建ristretto缓存失败: %v", err)
	}
	co := &ristrettoCache[V]{
		name:   name,
		mgr:    m,
		mCache: engine,
		stats:  NewStatistics(),
	}
	src := &ristrettoSource[V]{
		mCache: engine,
		stats:  co.stats,
	}
	if err = m.register(co, src, cfg); err != nil {
		engine.Close()
		return nil, err
	}
	return co, nil
}

// Name xxx
func (co *ristrettoCache[V]) Name() string {
	return co.name
}

// Manager xxx
func (co *ristrettoCache[V]) Manager() *Manager {
	return co.mgr
}

// Close 关闭引擎
func (co *ristrettoCache[V]) Close() error {
	co.mCache.Close()
	return nil
}

// Wait 等待异步写入落位
func (co *ristrettoCache[V]) Wait() {
	co.mCache.Wait()
}

// Get 从缓存中取得一个值
func (co *ristrettoCache[V]) Get(_ context.Context, key string) (V, error) {
	val, found := co.mCache.Get(key)
	co.stats.track(found)
	if !found {
		var zero V
		return zero, nil
	}
	return val, nil
}

// Set 每个条目的cost记为1，容量即条目数
func (co *ristrettoCache[V]) Set(_ context.Context, key string, val V, timeout time.Duration) (bool, error) {
	var ok bool
	if timeout > 0 {
		ok = co.mCache.SetWithTTL(key, val, 1, timeout)
	} else {
		ok = co.mCache.Set(key, val, 1)
	}
	if ok {
		co.stats.Put()
	}
	return ok, nil
}

// Del 从缓存中删除一个key
func (co *ristrettoCache[V]) Del(_ context.Context, key string) (bool, error) {
	co.mCache.Del(key)
	co.stats.Removal()
	return true, nil
}
