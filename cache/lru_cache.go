package cache

import (
	"context"
	"fmt"
	lru "github.com/hashicorp/golang-lru/v2"
	"time"
)

var (
	defaultLruCapacity = 10000
)

// memLruCache 基于LRU的本地缓存，容量满时淘汰最久未使用的条目
type memLruCache[V any] struct {
	name  string
	mgr   *Manager
	lru   *lru.Cache[string, V]
	stats *Statistics
}

// NewLruCache 新建LRU缓存，容量取自cfg.Capacity
func NewLruCache[V any](m *Manager, name string, cfg *Config) (*memLruCache[V], error) {
	cfg = initConfig(cfg)
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultLruCapacity
	}
	if m == nil {
		m = DefaultManager()
	}
	engine, err := lru.New[string, V](cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("创建LRU缓存失败: %v", err)
	}
	co := &memLruCache[V]{
		name:  name,
		mgr:   m,
		lru:   engine,
		stats: NewStatistics(),
	}
	if err = m.register(co, co.stats, cfg); err != nil {
		return nil, err
	}
	return co, nil
}

// Name xxx
func (co *memLruCache[V]) Name() string {
	return co.name
}

// Manager xxx
func (co *memLruCache[V]) Manager() *Manager {
	return co.mgr
}

// Close 清空全部条目
func (co *memLruCache[V]) Close() error {
	co.lru.Purge()
	return nil
}

// Get 从缓存中取得一个值
func (co *memLruCache[V]) Get(_ context.Context, key string) (V, error) {
	val, found := co.lru.Get(key)
	co.stats.track(found)
	if !found {
		var zero V
		return zero, nil
	}
	return val, nil
}

// Set timeout无效，LRU只按容量淘汰
func (co *memLruCache[V]) Set(_ context.Context, key string, val V, _ time.Duration) (bool, error) {
	evicted := co.lru.Add(key, val)
	co.stats.Put()
	if evicted {
		co.stats.Eviction()
	}
	return true, nil
}

// Del 从缓存中删除一个key
func (co *memLruCache[V]) Del(_ context.Context, key string) (bool, error) {
	present := co.lru.Remove(key)
	if present {
		co.stats.Removal()
	}
	return present, nil
}

// Len 当前条目数
func (co *memLruCache[V]) Len() int {
	return co.lru.Len()
}
