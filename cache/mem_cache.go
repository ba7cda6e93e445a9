package cache

import (
	"context"
	"github.com/magic-lib/go-plat-utils/conv"
	gocache "github.com/patrickmn/go-cache"
	"sync/atomic"
	"time"
)

// memGoCache 本地内存缓存，过期的条目按淘汰统计
type memGoCache[V any] struct {
	name       string
	mgr        *Manager
	mCache     *gocache.Cache
	stats      *Statistics
	pendingDel atomic.Int64 //待确认的手工删除，淘汰回调据此区分过期与删除
}

// NewMemGoCache 新建本地内存缓存
func NewMemGoCache[V any](m *Manager, name string, cfg *Config) (*memGoCache[V], error) {
	cfg = initConfig(cfg)
	if m == nil {
		m = DefaultManager()
	}
	co := &memGoCache[V]{
		name:   name,
		mgr:    m,
		mCache: gocache.New(cfg.DefaultExpiration, cfg.CleanupInterval),
		stats:  NewStatistics(),
	}
	co.mCache.OnEvicted(func(_ string, _ any) {
		if co.pendingDel.Load() > 0 {
			co.pendingDel.Add(-1) //手工删除不算淘汰
			return
		}
		co.stats.Eviction()
	})
	if err := m.register(co, co.stats, cfg); err != nil {
		return nil, err
	}
	return co, nil
}

// Name xxx
func (co *memGoCache[V]) Name() string {
	return co.name
}

// Manager xxx
func (co *memGoCache[V]) Manager() *Manager {
	return co.mgr
}

// Close 清空全部条目
func (co *memGoCache[V]) Close() error {
	co.mCache.Flush()
	return nil
}

// Get 从缓存中取得一个值
func (co *memGoCache[V]) Get(_ context.Context, key string) (V, error) {
	var zero V
	val, found := co.mCache.Get(key)
	co.stats.track(found)
	if !found {
		return zero, nil
	}
	if v, ok := val.(V); ok {
		return v, nil
	}
	return conv.Convert[V](val)
}

// Set timeout为0时使用默认过期时间
func (co *memGoCache[V]) Set(_ context.Context, key string, val V, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = gocache.DefaultExpiration
	}
	co.mCache.Set(key, val, timeout)
	co.stats.Put()
	return true, nil
}

// Del 从缓存中删除一个key
func (co *memGoCache[V]) Del(_ context.Context, key string) (bool, error) {
	if _, found := co.mCache.Get(key); !found {
		return false, nil
	}
	co.pendingDel.Add(1)
	co.mCache.Delete(key)
	co.stats.Removal()
	return true, nil
}
