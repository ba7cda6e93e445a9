package cache_test

import (
	"context"
	"fmt"
	"github.com/magic-lib/go-plat-cachestats/cache"
	"testing"
)

type AAA struct {
	Name string
}

func TestMySQLCache(t *testing.T) {
	m := cache.NewManager("test://mysql-live")
	mysqlCacheTemp, err := cache.NewMySQLCache[AAA](m, "aaa", statsCfg(0), &cache.MySQLCacheConfig{
		DSN:       "root:xxxxx@(127.0.0.1:3306)/huji?charset=utf8mb4&parseTime=True&loc=Local",
		TableName: "aaa",
		Namespace: "ns",
	})
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	retBool, err := mysqlCacheTemp.Set(context.Background(), "key1", AAA{
		Name: "tianlin0",
	}, 0)
	fmt.Println(retBool, err)

	mmm, err := mysqlCacheTemp.Get(context.Background(), "key1")
	fmt.Println(mmm, err)

	retBool, err = mysqlCacheTemp.Del(context.Background(), "key1")
	fmt.Println(retBool, err)
}

func TestMySQLCacheNeedsConfig(t *testing.T) {
	m := cache.NewManager("test://mysql-none")
	if _, err := cache.NewMySQLCache[string](m, "none", statsCfg(0), nil); err == nil {
		t.Fatal("missing connection and table name should fail")
	}
	if _, err := cache.NewMySQLCache[string](m, "none", statsCfg(0), &cache.MySQLCacheConfig{
		TableName: "cache_tbl",
	}); err == nil {
		t.Fatal("missing connection should fail")
	}
}
