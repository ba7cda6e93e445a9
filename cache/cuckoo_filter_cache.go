package cache

import (
	"context"
	cuckoo "github.com/seiflotfy/cuckoofilter"
	"time"
)

var (
	defaultFilterSize = 1000000
)

// cuckooFilterCache 成员判断型缓存，值只有存在与否
type cuckooFilterCache[V bool] struct {
	name  string
	mgr   *Manager
	cf    *cuckoo.Filter
	stats *Statistics
}

// NewCuckooFilterCache 创建过滤器缓存，容量取自cfg.Capacity
func NewCuckooFilterCache(m *Manager, name string, cfg *Config) (*cuckooFilterCache[bool], error) {
	cfg = initConfig(cfg)
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultFilterSize
	}
	if m == nil {
		m = DefaultManager()
	}
	co := &cuckooFilterCache[bool]{
		name:  name,
		mgr:   m,
		cf:    cuckoo.NewFilter(uint(cfg.Capacity)),
		stats: NewStatistics(),
	}
	if err := m.register(co, co.stats, cfg); err != nil {
		return nil, err
	}
	return co, nil
}

// Name xxx
func (c *cuckooFilterCache[V]) Name() string {
	return c.name
}

// Manager xxx
func (c *cuckooFilterCache[V]) Manager() *Manager {
	return c.mgr
}

// Close 清空过滤器
func (c *cuckooFilterCache[V]) Close() error {
	c.cf.Reset()
	return nil
}

// Count 当前条目数
func (c *cuckooFilterCache[V]) Count() uint {
	return c.cf.Count()
}

// Get 判断key是否存在
func (c *cuckooFilterCache[V]) Get(_ context.Context, key string) (bool, error) {
	found := c.cf.Lookup([]byte(key))
	c.stats.track(found)
	return found, nil
}

// Set 向过滤器写入key，重复写入返回false
func (c *cuckooFilterCache[V]) Set(_ context.Context, key string, _ V, _ time.Duration) (bool, error) {
	inserted := c.cf.InsertUnique([]byte(key))
	if inserted {
		c.stats.Put()
	}
	return inserted, nil
}

// Del 从过滤器删除key
func (c *cuckooFilterCache[V]) Del(_ context.Context, key string) (bool, error) {
	removed := c.cf.Delete([]byte(key))
	if removed {
		c.stats.Removal()
	}
	return removed, nil
}
