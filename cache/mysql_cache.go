package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/magic-lib/go-plat-utils/conv"
	"github.com/magic-lib/go-plat-utils/logs"
	cmap "github.com/orcaman/concurrent-map/v2"
	"gorm.io/gorm"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var (
	onlyOneCleanMap = cmap.New[*sync.Once]()
)

// MySQLCacheConfig MySQL缓存配置，SqlDB、GormDB、DSN三选一
type MySQLCacheConfig struct {
	DSN       string
	SqlDB     *sql.DB
	GormDB    *gorm.DB
	TableName string `json:"table_name"`
	Namespace string `json:"namespace"`
}

// mySQLCache 基于MySQL实现的缓存
type mySQLCache[V any] struct {
	name string
	mgr  *Manager
	db   *sql.DB
	// 缓存表名，可在初始化时指定
	tableName string
	namespace string
	ownDB     bool //连接是否由本实例创建
	stats     *Statistics
}

// NewMySQLCache 创建MySQL缓存实例
func NewMySQLCache[V any](m *Manager, name string, cfg *Config, sqlCfg *MySQLCacheConfig) (*mySQLCache[V], error) {
	cfg = initConfig(cfg)
	if m == nil {
		m = DefaultManager()
	}
	if sqlCfg == nil {
		sqlCfg = &MySQLCacheConfig{}
	}
	ownDB := false
	if sqlCfg.SqlDB == nil && sqlCfg.GormDB != nil {
		gormDB, err := sqlCfg.GormDB.DB()
		if err != nil {
			return nil, fmt.Errorf("获取gorm底层连接失败: %v", err)
		}
		sqlCfg.SqlDB = gormDB
	}
	if sqlCfg.SqlDB == nil {
		if sqlCfg.DSN != "" {
			sqlDB, err := sql.Open("mysql", sqlCfg.DSN)
			if err != nil {
				return nil, fmt.Errorf("初始化数据库连接失败: %v", err)
			}
			sqlCfg.SqlDB = sqlDB
			ownDB = true
		}
	}

	if sqlCfg.SqlDB == nil || sqlCfg.TableName == "" {
		return nil, errors.New("请检查配置参数")
	}

	// 确保表存在，不存在则创建
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			namespace VARCHAR(50) NOT NULL,
			cache_key VARCHAR(255) NOT NULL,
			cache_value JSON NOT NULL,
			expire_time DATETIME DEFAULT NULL,
			create_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			update_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (namespace,cache_key) USING BTREE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_0900_bin;
	`, sqlCfg.TableName)

	_, err := sqlCfg.SqlDB.Exec(createTableSQL)
	if err != nil {
		return nil, fmt.Errorf("创建缓存表失败: %v", err)
	}

	namespace := sqlCfg.Namespace
	if namespace == "" {
		namespace = name
	}

	mysqlCache := &mySQLCache[V]{
		name:      name,
		mgr:       m,
		db:        sqlCfg.SqlDB,
		tableName: sqlCfg.TableName,
		namespace: namespace,
		ownDB:     ownDB,
		stats:     NewStatistics(),
	}

	onlyKey := fmt.Sprintf("%s/%s", sqlCfg.DSN, sqlCfg.TableName)
	onlyOneCleanMap.SetIfAbsent(onlyKey, &sync.Once{})
	if onlyOneCleanData, ok := onlyOneCleanMap.Get(onlyKey); ok {
		// 每个表只用执行一次即可
		onlyOneCleanData.Do(func() {
			mysqlCache.startCleanupJob(cfg.CleanupInterval)
		})
	}
	if err = m.register(mysqlCache, mysqlCache.stats, cfg); err != nil {
		return nil, err
	}
	return mysqlCache, nil
}

// Name xxx
func (c *mySQLCache[V]) Name() string {
	return c.name
}

// Manager xxx
func (c *mySQLCache[V]) Manager() *Manager {
	return c.mgr
}

// Close 自建的连接随缓存一起关闭
func (c *mySQLCache[V]) Close() error {
	if c.ownDB {
		return c.db.Close()
	}
	return nil
}

// Get 从缓存中获取值
func (c *mySQLCache[V]) Get(ctx context.Context, key string) (V, error) {
	var (
		valueStr    string
		expireBytes []byte
	)
	ctx = getContext(ctx)

	// 查询时自动过滤已过期的键
	querySQL := fmt.Sprintf(`SELECT cache_value, expire_time FROM %s WHERE namespace=? AND cache_key = ? AND (expire_time IS NULL OR expire_time > NOW()) LIMIT 1`, c.tableName)
	err := c.db.QueryRowContext(ctx, querySQL, c.namespace, key).Scan(&valueStr, &expireBytes)
	if err != nil {
		var zero V
		if errors.Is(err, sql.ErrNoRows) {
			// 键不存在或已过期
			c.stats.Miss()
			return zero, nil
		}
		return zero, fmt.Errorf("查询缓存失败: %v", err)
	}
	c.stats.Hit()
	// 反序列化JSON为指定类型
	return strToVal[V](valueStr)
}

// Set 向缓存中设置值，支持过期时间
func (c *mySQLCache[V]) Set(ctx context.Context, key string, val V, timeout time.Duration) (bool, error) {
	ctx = getContext(ctx)

	valueStr := conv.String(val)
	if timeout == 0 {
		timeout = defaultMaxExpireTime
	}
	// 计算过期时间
	expireAt := time.Now().Add(timeout)

	// 插入或更新缓存（UPSERT操作）
	insertSQL := fmt.Sprintf(`INSERT INTO %s (namespace, cache_key, cache_value, expire_time) VALUES (?, ?, ?, ?) ON DUPLICATE KEY UPDATE cache_value = VALUES(cache_value), expire_time = VALUES(expire_time), update_time = CURRENT_TIMESTAMP`, c.tableName)

	result, err := c.db.ExecContext(ctx, insertSQL, c.namespace, key, valueStr, expireAt)
	if err != nil {
		return false, fmt.Errorf("设置缓存失败: %v", err)
	}

	// 检查是否影响了行
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	c.stats.Put()
	return rowsAffected > 0, nil
}

// Del 从缓存中删除键
func (c *mySQLCache[V]) Del(ctx context.Context, key string) (bool, error) {
	ctx = getContext(ctx)
	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE namespace=? AND cache_key = ?", c.tableName)
	result, err := c.db.ExecContext(ctx, deleteSQL, c.namespace, key)
	if err != nil {
		return false, fmt.Errorf("删除缓存失败: %v", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rowsAffected > 0 {
		c.stats.Removal()
		return true, nil
	}
	// 返回是否实际删除了数据
	return false, nil
}

// startCleanupJob 定时清理过期键，清掉的行数计入淘汰
func (c *mySQLCache[V]) startCleanupJob(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			cleanSQL := fmt.Sprintf("DELETE FROM %s WHERE expire_time IS NOT NULL AND expire_time < NOW()", c.tableName)
			result, err := c.db.Exec(cleanSQL)
			if err != nil {
				logs.DefaultLogger().Error("[mysql-cache] 清理过期缓存失败:", err.Error())
				continue
			}
			if rows, err := result.RowsAffected(); err == nil {
				c.stats.addEvictions(rows)
			}
		}
	}()
}
