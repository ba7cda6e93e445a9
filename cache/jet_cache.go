package cache

import (
	"context"
	"errors"
	"github.com/magic-lib/go-plat-utils/conv"
	jCache "github.com/mgtv-tech/jetcache-go"
	"github.com/mgtv-tech/jetcache-go/local"
	"github.com/mgtv-tech/jetcache-go/remote"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	errJetNotFound          = errors.New("jetcache: key not found")
	defaultFreeCacheSize    = local.Size(32 * 1024 * 1024)
	defaultFreeCacheExpires = time.Minute
)

// JetCache 本地加远程的两级缓存，远程为redis ring
type JetCache[V any] struct {
	name        string
	mgr         *Manager
	JetCacheGo  jCache.Cache
	ring        *redis.Ring
	errNotFound error
	stats       *Statistics
}

// JetCacheConfig jetcache构建参数
type JetCacheConfig struct {
	FreeCacheSize       local.Size
	FreeCacheExpiration time.Duration
	Namespace           string
	RedisConfig         *redis.RingOptions
	RefreshDuration     time.Duration
	ErrNotFound         error
	JCacheOption        []jCache.Option
}

// NewJetCache 新建JetCache，未配置远程时退化为纯本地缓存
func NewJetCache[V any](m *Manager, name string, cfg *Config, jConfig *JetCacheConfig) (*JetCache[V], error) {
	cfg = initConfig(cfg)
	if m == nil {
		m = DefaultManager()
	}
	if jConfig == nil {
		jConfig = &JetCacheConfig{}
	}
	if jConfig.Namespace == "" {
		jConfig.Namespace = name
	}
	if jConfig.ErrNotFound == nil {
		jConfig.ErrNotFound = errJetNotFound
	}

	var ring *redis.Ring
	jCacheOption := make([]jCache.Option, 0)
	if jConfig.RedisConfig != nil {
		ring = redis.NewRing(jConfig.RedisConfig)
		jCacheOption = append(jCacheOption, jCache.WithRemote(remote.NewGoRedisV9Adapter(ring)))
	}
	if jConfig.Namespace != "" {
		jCacheOption = append(jCacheOption, jCache.WithName(jConfig.Namespace))
	}
	if jConfig.RedisConfig == nil && jConfig.FreeCacheSize <= 0 {
		//没有远程时必须有本地层
		jConfig.FreeCacheSize = defaultFreeCacheSize
	}
	if jConfig.FreeCacheSize > 0 {
		if jConfig.FreeCacheExpiration <= 0 {
			jConfig.FreeCacheExpiration = defaultFreeCacheExpires
		}
		jCacheOption = append(jCacheOption, jCache.WithLocal(local.NewFreeCache(jConfig.FreeCacheSize,
			jConfig.FreeCacheExpiration, jConfig.Namespace)))
	}
	if jConfig.RefreshDuration > 0 {
		jCacheOption = append(jCacheOption, jCache.WithRefreshDuration(jConfig.RefreshDuration))
	}
	jCacheOption = append(jCacheOption, jCache.WithErrNotFound(jConfig.ErrNotFound))
	if len(jConfig.JCacheOption) != 0 {
		jCacheOption = append(jCacheOption, jConfig.JCacheOption...)
	}

	co := &JetCache[V]{
		name:        name,
		mgr:         m,
		JetCacheGo:  jCache.New(jCacheOption...),
		ring:        ring,
		errNotFound: jConfig.ErrNotFound,
		stats:       NewStatistics(),
	}
	if err := m.register(co, co.stats, cfg); err != nil {
		return nil, err
	}
	return co, nil
}

// Name xxx
func (co *JetCache[V]) Name() string {
	return co.name
}

// Manager xxx
func (co *JetCache[V]) Manager() *Manager {
	return co.mgr
}

// Close 关闭自建的redis ring
func (co *JetCache[V]) Close() error {
	if co.ring != nil {
		return co.ring.Close()
	}
	return nil
}

// Get 从缓存中取得一个值
func (co *JetCache[V]) Get(ctx context.Context, key string) (v V, err error) {
	newV := conv.Pointer(v)
	err = co.JetCacheGo.Get(getContext(ctx), key, newV)
	if err != nil {
		if errors.Is(err, co.errNotFound) {
			co.stats.Miss()
			return v, nil
		}
		return v, err
	}
	co.stats.Hit()
	return conv.Convert[V](newV)
}

// Set timeout
func (co *JetCache[V]) Set(ctx context.Context, key string, val V, timeout time.Duration) (bool, error) {
	err := co.JetCacheGo.Set(getContext(ctx), key, jCache.Value(val), jCache.TTL(timeout))
	if err != nil {
		return false, err
	}
	co.stats.Put()
	return true, nil
}

// Del 从缓存中删除一个key
func (co *JetCache[V]) Del(ctx context.Context, key string) (bool, error) {
	err := co.JetCacheGo.Delete(getContext(ctx), key)
	if err != nil {
		return false, err
	}
	co.stats.Removal()
	return true, nil
}
