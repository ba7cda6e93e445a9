package cache

import (
	"context"
	"github.com/go-redis/redis/v8"
	"github.com/hugh2632/bloomfilter"
	"github.com/hugh2632/bloomfilter/global"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"time"
)

const (
	defaultBloomKey     = "bloom-filter"
	defaultBloomByteLen = 10240
)

// BloomFilterConfig 布隆过滤器配置，默认为内存存储
type BloomFilterConfig struct {
	ByteLen        uint64 //字节长度
	Hashes         []global.HashFunc
	FilterInstance bloomfilter.IFilter //自定义
	RedisFilter    *struct {
		RedisOptions *redis.Options
		FilterType   bloomfilter.RedisFilterType
		Key          string
	}
	SqlFilter *struct {
		SqlDSN string
		SqlDb  *gorm.DB
		Key    string
	}
}

// bloomFilterCache 成员判断型缓存，不支持删除
type bloomFilterCache struct {
	name     string
	mgr      *Manager
	instance bloomfilter.IFilter
	stats    *Statistics
}

// NewBloomFilterCache 创建布隆过滤器缓存，存储介质由配置决定
func NewBloomFilterCache(m *Manager, name string, cfg *Config, bo *BloomFilterConfig) (*bloomFilterCache, error) {
	cfg = initConfig(cfg)
	if m == nil {
		m = DefaultManager()
	}
	bo = initBloomConfig(bo)

	instance, err := buildBloomFilter(bo)
	if err != nil {
		return nil, err
	}
	co := &bloomFilterCache{
		name:     name,
		mgr:      m,
		instance: instance,
		stats:    NewStatistics(),
	}
	if err = m.register(co, co.stats, cfg); err != nil {
		return nil, err
	}
	return co, nil
}

func buildBloomFilter(bo *BloomFilterConfig) (bloomfilter.IFilter, error) {
	if bo.RedisFilter != nil && bo.RedisFilter.RedisOptions != nil {
		cli := redis.NewClient(bo.RedisFilter.RedisOptions)
		return bloomfilter.NewRedisFilter(context.Background(), cli,
			bo.RedisFilter.FilterType, bo.RedisFilter.Key, bo.ByteLen, bo.Hashes...)
	}
	if bo.SqlFilter != nil && (bo.SqlFilter.SqlDSN != "" || bo.SqlFilter.SqlDb != nil) {
		if bo.SqlFilter.SqlDb == nil {
			var err error
			bo.SqlFilter.SqlDb, err = gorm.Open(mysql.Open(bo.SqlFilter.SqlDSN))
			if err != nil {
				return nil, err
			}
		}
		return bloomfilter.SqlFilter(bo.SqlFilter.SqlDb, bo.SqlFilter.Key, bo.ByteLen, bo.Hashes...)
	}
	if bo.FilterInstance != nil {
		return bo.FilterInstance, nil
	}
	return bloomfilter.NewMemoryFilter(make([]byte, bo.ByteLen), bo.Hashes...), nil
}

func initBloomConfig(bo *BloomFilterConfig) *BloomFilterConfig {
	if bo == nil {
		bo = &BloomFilterConfig{}
	}
	if bo.ByteLen == 0 {
		bo.ByteLen = defaultBloomByteLen
	}
	if len(bo.Hashes) == 0 {
		bo.Hashes = bloomfilter.DefaultHash
	}

	if bo.RedisFilter != nil && bo.RedisFilter.RedisOptions != nil {
		if bo.RedisFilter.FilterType == 0 {
			bo.RedisFilter.FilterType = bloomfilter.RedisFilterType_Cached
		}
		if bo.RedisFilter.Key == "" {
			bo.RedisFilter.Key = defaultBloomKey
		}
	}

	if bo.SqlFilter != nil && (bo.SqlFilter.SqlDSN != "" || bo.SqlFilter.SqlDb != nil) {
		if bo.SqlFilter.Key == "" {
			bo.SqlFilter.Key = defaultBloomKey
		}
	}

	return bo
}

// Name xxx
func (c *bloomFilterCache) Name() string {
	return c.name
}

// Manager xxx
func (c *bloomFilterCache) Manager() *Manager {
	return c.mgr
}

// Close 缓存型存储需要把数据刷回介质
func (c *bloomFilterCache) Close() error {
	c.instance.Write()
	return nil
}

// Filter 取得底层过滤器
func (c *bloomFilterCache) Filter() bloomfilter.IFilter {
	return c.instance
}

// Get 判断key是否存在
func (c *bloomFilterCache) Get(_ context.Context, key string) (bool, error) {
	found := c.instance.Exists([]byte(key))
	c.stats.track(found)
	return found, nil
}

// Set 向过滤器写入key
func (c *bloomFilterCache) Set(_ context.Context, key string, _ bool, _ time.Duration) (bool, error) {
	c.instance.Push([]byte(key))
	c.stats.Put()
	return true, nil
}

// Del 布隆过滤器不支持删除
func (c *bloomFilterCache) Del(_ context.Context, _ string) (bool, error) {
	return false, nil
}
