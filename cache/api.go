package cache

import (
	"context"
	"time"
)

// CommCache 公共缓存接口
type CommCache[V any] interface {
	Get(ctx context.Context, key string) (V, error)
	Set(ctx context.Context, key string, val V, timeout time.Duration) (bool, error)
	Del(ctx context.Context, key string) (bool, error)
}

// Cache 可被监控的缓存，采集侧通过名称与所属管理器定位统计信息
type Cache interface {
	Name() string
	Manager() *Manager
	Close() error
}

// Config 缓存构建参数
type Config struct {
	Capacity          int           //最大条目数，lru、ristretto等引擎使用
	MaxBytes          int           //最大字节容量，fastcache、磁盘缓存使用
	DefaultExpiration time.Duration //默认过期时间
	CleanupInterval   time.Duration //过期清理周期
	StatisticsEnabled bool          //是否注册统计信息
}

var (
	defaultExpireTime    = 5 * time.Minute
	defaultMaxExpireTime = 24 * time.Hour
	checkInterval        = 10 * time.Minute
)

// initConfig 补全默认参数
func initConfig(cfg *Config) *Config {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.DefaultExpiration <= 0 {
		cfg.DefaultExpiration = defaultExpireTime
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = checkInterval
	}
	return cfg
}

var (
	_ CommCache[any]    = (*memGoCache[any])(nil)
	_ CommCache[any]    = (*memLruCache[any])(nil)
	_ CommCache[any]    = (*fastCache[any])(nil)
	_ CommCache[any]    = (*ristrettoCache[any])(nil)
	_ CommCache[string] = (*diskCache[string])(nil)
	_ CommCache[any]    = (*redisCache[any])(nil)
	_ CommCache[any]    = (*mySQLCache[any])(nil)
	_ CommCache[any]    = (*JetCache[any])(nil)
	_ CommCache[bool]   = (*cuckooFilterCache[bool])(nil)
	_ CommCache[bool]   = (*countingFilterCache[bool])(nil)
	_ CommCache[bool]   = (*bloomFilterCache)(nil)
)

var (
	_ Cache = (*memGoCache[any])(nil)
	_ Cache = (*memLruCache[any])(nil)
	_ Cache = (*fastCache[any])(nil)
	_ Cache = (*ristrettoCache[any])(nil)
	_ Cache = (*diskCache[string])(nil)
	_ Cache = (*redisCache[any])(nil)
	_ Cache = (*mySQLCache[any])(nil)
	_ Cache = (*JetCache[any])(nil)
	_ Cache = (*cuckooFilterCache[bool])(nil)
	_ Cache = (*countingFilterCache[bool])(nil)
	_ Cache = (*bloomFilterCache)(nil)
)
