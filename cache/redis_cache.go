package cache

import (
	"context"
	"errors"
	"fmt"
	"github.com/go-redis/redis/v8"
	"github.com/magic-lib/go-plat-startupcfg/startupcfg"
	"github.com/magic-lib/go-plat-utils/conv"
	"time"
)

// redisCache 共享redis上的缓存，按key前缀与其他使用方隔离
type redisCache[V any] struct {
	name     string
	mgr      *Manager
	redisCfg *startupcfg.RedisConfig //redis配置
	rc       *redisClient
	stats    *Statistics
}

var (
	defaultRedisCfg *startupcfg.RedisConfig
)

// SetDefaultRedisConfig 切换默认的redis连接
func SetDefaultRedisConfig(con *startupcfg.RedisConfig) {
	if con != nil {
		defaultRedisCfg = con
	}
}

// getRealRedisConfig 获取真实的redis配置
func getRealRedisConfig(redisCfg ...*startupcfg.RedisConfig) *startupcfg.RedisConfig {
	if redisCfg == nil {
		redisCfg = make([]*startupcfg.RedisConfig, 0)
	}
	if defaultRedisCfg != nil {
		redisCfg = append(redisCfg, defaultRedisCfg)
	}

	for _, oneCfg := range redisCfg {
		if oneCfg == nil {
			continue
		}
		redisCli := NewRedisClient(oneCfg)
		connected := redisCli.CheckConnect()
		if connected {
			return oneCfg
		}
	}

	return nil
}

// NewRedisCache 新建redis缓存
func NewRedisCache[V any](m *Manager, name string, cfg *Config, redisCfg ...*startupcfg.RedisConfig) (*redisCache[V], error) {
	cfg = initConfig(cfg)
	if m == nil {
		m = DefaultManager()
	}
	oneCfg := getRealRedisConfig(redisCfg...)
	if oneCfg == nil {
		return nil, fmt.Errorf("redis NewRedisCache config error: %v", redisCfg)
	}
	co := &redisCache[V]{
		name:     name,
		mgr:      m,
		redisCfg: oneCfg,
		rc:       NewRedisClient(oneCfg),
		stats:    NewStatistics(),
	}
	if err := m.register(co, co.stats, cfg); err != nil {
		return nil, err
	}
	return co, nil
}

// Name xxx
func (co *redisCache[V]) Name() string {
	return co.name
}

// Manager xxx
func (co *redisCache[V]) Manager() *Manager {
	return co.mgr
}

// Close 共享连接由客户端管理器维护，这里不关闭
func (co *redisCache[V]) Close() error {
	return nil
}

// cacheKey 加上缓存名前缀
func (co *redisCache[V]) cacheKey(key string) string {
	return fmt.Sprintf("{%s}%s", co.name, key)
}

// Get 从缓存中取得一个值
func (co *redisCache[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V
	dataStr, err := co.rc.Get(getContext(ctx), co.cacheKey(key))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			co.stats.Miss()
			return zero, nil
		}
		return zero, err
	}
	co.stats.Hit()
	return strToVal[V](dataStr)
}

// Set timeout为0时使用redis最长存储时间
func (co *redisCache[V]) Set(ctx context.Context, key string, val V, timeout time.Duration) (bool, error) {
	ok, err := co.rc.Set(getContext(ctx), co.cacheKey(key), conv.String(val), timeout)
	if err != nil {
		return false, err
	}
	co.stats.Put()
	return ok, nil
}

// Del 从缓存中删除一个key
func (co *redisCache[V]) Del(ctx context.Context, key string) (bool, error) {
	removed, err := co.rc.Del(getContext(ctx), co.cacheKey(key))
	if err != nil {
		return false, err
	}
	if removed > 0 {
		co.stats.Removal()
		return true, nil
	}
	return false, nil
}
