package cache

import (
	"context"
	"fmt"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/magic-lib/go-plat-utils/conv"
	"github.com/peterbourgon/diskv"
	"time"
)

var (
	defaultDiskCacheSize = 100 * 1024 * 1024
)

// dataWithExpiry 磁盘上保存的条目，带过期时间
type dataWithExpiry struct {
	Data   string
	Expiry time.Time
}

// diskCache 磁盘缓存，读到过期数据时删除并按淘汰统计
type diskCache[V string] struct {
	name      string
	mgr       *Manager
	diskCache *diskcache.Cache
	stats     *Statistics
}

// NewDiskCache 新建磁盘缓存，basePath为存储目录
func NewDiskCache(m *Manager, name string, basePath string, cfg *Config) (*diskCache[string], error) {
	cfg = initConfig(cfg)
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultDiskCacheSize
	}
	if basePath == "" {
		return nil, fmt.Errorf("磁盘缓存需要指定存储目录")
	}
	if m == nil {
		m = DefaultManager()
	}
	d := diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: uint64(cfg.MaxBytes),
	})
	co := &diskCache[string]{
		name:      name,
		mgr:       m,
		diskCache: diskcache.NewWithDiskv(d),
		stats:     NewStatistics(),
	}
	if err := m.register(co, co.stats, cfg); err != nil {
		return nil, err
	}
	return co, nil
}

// Name xxx
func (co *diskCache[V]) Name() string {
	return co.name
}

// Manager xxx
func (co *diskCache[V]) Manager() *Manager {
	return co.mgr
}

// Close 磁盘内容保留，无需关闭
func (co *diskCache[V]) Close() error {
	return nil
}

// Get 从缓存中取得一个值
func (co *diskCache[V]) Get(_ context.Context, key string) (string, error) {
	ret, ok := co.diskCache.Get(key)
	if !ok {
		co.stats.Miss()
		return "", nil
	}
	var data dataWithExpiry
	if err := conv.Unmarshal(ret, &data); err != nil {
		co.stats.Miss()
		return "", fmt.Errorf("磁盘缓存数据解析失败: %v", err)
	}
	// 判断是否过期
	if time.Now().After(data.Expiry) {
		co.diskCache.Delete(key)
		co.stats.Miss()
		co.stats.Eviction()
		return "", nil
	}
	co.stats.Hit()
	return data.Data, nil
}

// Set timeout为0时使用默认的最长过期时间
func (co *diskCache[V]) Set(_ context.Context, key string, val string, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = defaultMaxExpireTime
	}
	data := dataWithExpiry{
		Data:   val,
		Expiry: time.Now().Add(timeout),
	}
	co.diskCache.Set(key, []byte(conv.String(data)))
	co.stats.Put()
	return true, nil
}

// Del 从缓存中删除一个key
func (co *diskCache[V]) Del(_ context.Context, key string) (bool, error) {
	if _, ok := co.diskCache.Get(key); !ok {
		return false, nil
	}
	co.diskCache.Delete(key)
	co.stats.Removal()
	return true, nil
}
