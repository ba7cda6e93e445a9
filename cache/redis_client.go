package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"github.com/go-redis/redis/v8"
	"github.com/magic-lib/go-plat-startupcfg/startupcfg"
	"github.com/magic-lib/go-plat-utils/conv"
	"github.com/magic-lib/go-plat-utils/logs"
	cmap "github.com/orcaman/concurrent-map/v2"
	"runtime"
	"sync"
	"time"
)

var (
	minMaxTimeout     = 24 * time.Hour      //最小的最长时间
	redisMaxTimeout   = 24 * 90 * time.Hour //redis最长存储时间点，避免无限期占用Redis空间
	checkConnInterval = 20 * time.Second

	defaultPingTimeout = 3 * time.Second

	poolMaxSize      = 100
	poolMinSize      = 10
	poolMinIdleConns = 30            //连接池中最小的空闲连接数，可以通过此属性提供更快的连接分配，默认为0
	poolMaxConnAge   = 3 * time.Hour //Redis 连接的最大寿命，达到最大寿命的连接会被归还重建
	poolIdleTimeout  = 5 * time.Minute

	onceError sync.Once
)

// redisClient 内部redis结构
type redisClient struct {
	redisCfg *startupcfg.RedisConfig
	cli      *redis.Client
}

// NewRedisClient 新建redis连接
func NewRedisClient(redisCfg *startupcfg.RedisConfig) *redisClient {
	return &redisClient{redisCfg: redisCfg}
}

// SetMaxTimeout xxx
func (r *redisClient) SetMaxTimeout(timeout time.Duration) {
	if timeout > minMaxTimeout { //必须大于一天，设置过短的时间点会出现问题
		redisMaxTimeout = timeout
	}
}

// Get 从缓存中取得一个值
func (r *redisClient) Get(ctx context.Context, key string) (string, error) {
	c, err := r.getClient(ctx)
	if err != nil {
		return "", err
	}
	return c.Get(ctx, key).Result()
}

// Set timeout
func (r *redisClient) Set(ctx context.Context, key, val string, timeout time.Duration) (bool, error) {
	c, err := r.getClient(ctx)
	if err != nil {
		return false, err
	}
	if timeout <= 0 || timeout > redisMaxTimeout {
		//设置一个有效的时间点
		timeout = redisMaxTimeout
	}
	err = c.Set(ctx, key, val, timeout).Err()
	if err != nil {
		return false, err
	}
	return true, nil
}

// Del 从缓存中删除一个key，返回实际删除的条数
func (r *redisClient) Del(ctx context.Context, key string) (int64, error) {
	c, err := r.getClient(ctx)
	if err != nil {
		return 0, err
	}
	return c.Del(ctx, key).Result()
}

// CheckConnect 检查能否连通
func (r *redisClient) CheckConnect() bool {
	_, err := r.getOneRedis()
	return err == nil
}

func (r *redisClient) getClient(_ context.Context) (*redis.Client, error) {
	cli, err := r.getOneRedis()
	if cli != nil && err == nil {
		return cli, nil
	}

	loggers := logs.DefaultLogger()
	if r.redisCfg != nil {
		// 如果未设置redis，则提示
		loggers.Error("[redis-client] error:", r.redisCfg, err.Error())
	} else {
		// 没有设置，全局只提醒一次
		onceError.Do(func() {
			loggers.Warn("[redis-client] no set empty:", err.Error())
		})
	}
	return nil, err
}

func (r *redisClient) getOneRedis() (*redis.Client, error) {
	manager := newRedisClientManager(checkConnInterval)
	rc := manager.Get(r.redisCfg)
	if rc != nil && rc.cli != nil {
		if defaultRedisCfg == nil {
			SetDefaultRedisConfig(r.redisCfg)
		}
		return rc.cli, nil
	}
	return nil, fmt.Errorf("conn cant connect")
}

var (
	redisMap            = cmap.New[*redisClient]()
	redisMonitorOnce    sync.Once
	defaultClientManage *redisClientManager
)

type redisClientManager struct {
}

func newRedisClientManager(interval time.Duration) *redisClientManager {
	redisMonitorOnce.Do(func() {
		go monitorRedisConnections(interval)
	})
	if defaultClientManage != nil {
		return defaultClientManage
	}
	defaultClientManage = &redisClientManager{}
	return defaultClientManage
}

// add 向全局客户端列表添加 Redis 客户端
func (r *redisClientManager) add(redisCfg *startupcfg.RedisConfig) bool {
	if redisCfg == nil {
		return false
	}
	redisConnStr := redisCfg.DatasourceName()
	if redisConnStr == "" {
		return false
	}
	if redisMap.Has(redisConnStr) {
		return false
	}
	newRedisClient := &redisClient{
		redisCfg: redisCfg,
		cli:      nil,
	}
	newClient, err := getRedisFromCfg(redisCfg)
	if err == nil {
		newRedisClient.cli = newClient
	}
	redisMap.Set(redisConnStr, newRedisClient)
	return true
}

// Get 从全局客户端列表取得 Redis 客户端
func (r *redisClientManager) Get(redisCfg *startupcfg.RedisConfig) *redisClient {
	if redisCfg == nil {
		return nil
	}
	redisConnStr := redisCfg.DatasourceName()
	if redisConnStr == "" {
		return nil
	}
	if newRedisClient, ok := redisMap.Get(redisConnStr); ok {
		if newRedisClient.cli == nil {
			newClient, err := getRedisFromCfg(redisCfg)
			if err != nil {
				return nil
			}
			newRedisClient.cli = newClient
		}
		return newRedisClient
	}

	if !r.add(redisCfg) {
		return nil
	}
	return r.Get(redisCfg)
}

// monitorRedisConnections 定时监测所有 Redis 连接状态
func monitorRedisConnections(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		for _, rc := range redisMap.Items() {
			if rc.cli != nil {
				err := checkConnection(rc.cli, rc.redisCfg.PingTimeout)
				if err == nil {
					continue
				}
			}
			newClient, err := getRedisFromCfg(rc.redisCfg)
			if err != nil {
				continue
			}
			if rc.cli != nil {
				_ = rc.cli.Close() //老的连接需要释放掉
			}
			rc.cli = newClient
		}
	}
}

func checkConnection(conn *redis.Client, pingTimeout time.Duration) error {
	if conn == nil {
		return fmt.Errorf("conn is nil")
	}

	timeout := defaultPingTimeout
	if pingTimeout > 0 {
		timeout = pingTimeout
	}

	newCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return conn.Ping(newCtx).Err()
}

func getRedisFromCfg(redisCfg *startupcfg.RedisConfig) (*redis.Client, error) {
	dialOpt := getRedisOption(redisCfg, getPoolSize())
	newClient := redis.NewClient(dialOpt)
	err := checkConnection(newClient, redisCfg.PingTimeout)
	if err != nil {
		_ = newClient.Close()
		return nil, err
	}
	return newClient, nil
}

func getRedisOption(redisCfg startupcfg.Database, poolSize int) *redis.Options {
	dialOpt := &redis.Options{}
	if dataInt, ok := conv.Int64(redisCfg.DatabaseName()); ok {
		dialOpt.DB = int(dataInt)
	}
	dialOpt.Username = redisCfg.User()
	dialOpt.Password = redisCfg.Password()

	if oneTls, ok := redisCfg.Extend("tls"); ok {
		tlsBool, ok := conv.Bool(oneTls)
		if ok && tlsBool {
			tlsConfig := &tls.Config{
				InsecureSkipVerify: true,
			}
			if tlsConfig.ServerName == "" {
				tlsConfig.ServerName = redisCfg.ServerAddress()
			}
			dialOpt.TLSConfig = tlsConfig
		}
	}

	dialOpt.Addr = redisCfg.ServerAddress()
	dialOpt.Network = redisCfg.ProtocolName()

	{ // 连接池的配置
		dialOpt.PoolFIFO = true
		dialOpt.PoolSize = poolSize
		dialOpt.MinIdleConns = poolMinIdleConns
		dialOpt.MaxConnAge = poolMaxConnAge
		dialOpt.IdleTimeout = poolIdleTimeout
	}
	return dialOpt
}

func getPoolSize() int {
	poolSize := runtime.GOMAXPROCS(0)
	if poolSize < poolMinSize {
		poolSize = poolMinSize
	}
	if poolSize > poolMaxSize {
		poolSize = poolMaxSize
	}
	return poolSize
}
