package cache

import (
	"fmt"
	"github.com/magic-lib/go-plat-cachestats/mgmt"
	"github.com/magic-lib/go-plat-utils/logs"
	cmapv1 "github.com/orcaman/concurrent-map"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

// DefaultManagerURI 进程默认管理器的URI
const DefaultManagerURI = "plat://default"

var (
	globalManagers = cmapv1.New() //全局管理器列表，按URI保存
)

// Manager 一组缓存的管理域，URI唯一标识。
// 统计开启的缓存在创建时注册到全局统计注册表，销毁时注销。
type Manager struct {
	uri      string
	children cmap.ConcurrentMap[string, Cache]
	group    singleflight.Group
}

// NewManager 新建管理器并登记到全局列表，同URI的旧管理器会被关闭
func NewManager(uri string) *Manager {
	if uri == "" {
		uri = DefaultManagerURI
	}
	m := &Manager{
		uri:      uri,
		children: cmap.New[Cache](),
	}
	if old, ok := globalManagers.Get(uri); ok {
		if oldManager, ok := old.(*Manager); ok {
			_ = oldManager.Close() //关闭已存在的同名管理器
		}
	}
	globalManagers.Set(uri, m)
	return m
}

// GetManager 按URI取得已登记的管理器，没有则新建
func GetManager(uri string) *Manager {
	if uri == "" {
		uri = DefaultManagerURI
	}
	if v, ok := globalManagers.Get(uri); ok {
		if m, ok := v.(*Manager); ok {
			return m
		}
	}
	return NewManager(uri)
}

// DefaultManager 进程默认管理器
func DefaultManager() *Manager {
	return GetManager(DefaultManagerURI)
}

// URI xxx
func (m *Manager) URI() string {
	return m.uri
}

// GetCache 取得已登记的缓存
func (m *Manager) GetCache(name string) (Cache, bool) {
	return m.children.Get(name)
}

// CacheNames 当前管理的全部缓存名
func (m *Manager) CacheNames() []string {
	return m.children.Keys()
}

// GetOrCreate 取得缓存，不存在时通过build构建，并发构建只执行一次
func (m *Manager) GetOrCreate(name string, build func() (Cache, error)) (Cache, error) {
	if c, ok := m.children.Get(name); ok {
		return c, nil
	}
	v, err, _ := m.group.Do(name, func() (any, error) {
		if c, ok := m.children.Get(name); ok {
			return c, nil
		}
		return build()
	})
	if err != nil {
		return nil, err
	}
	if c, ok := v.(Cache); ok {
		return c, nil
	}
	return nil, fmt.Errorf("构建缓存 %s 返回了非法类型", name)
}

// register 登记缓存并按需注册统计信息，同名缓存会被替换并关闭
func (m *Manager) register(c Cache, src mgmt.Source, cfg *Config) error {
	if c == nil {
		return fmt.Errorf("登记了空的缓存实例")
	}
	name := c.Name()
	if name == "" {
		return fmt.Errorf("缓存名称不能为空")
	}
	if old, ok := m.children.Get(name); ok {
		m.drop(old)
	}
	if cfg != nil && cfg.StatisticsEnabled && src != nil {
		objName, err := mgmt.CacheStatisticsName(mgmt.Sanitize(m.uri), mgmt.Sanitize(name))
		if err != nil {
			return fmt.Errorf("缓存 %q 的统计名称非法: %v", name, err)
		}
		if err = mgmt.Default().Register(objName, src); err != nil {
			return err
		}
	}
	m.children.Set(name, c)
	return nil
}

// drop 注销统计并关闭缓存
func (m *Manager) drop(c Cache) {
	objName, err := mgmt.CacheStatisticsName(mgmt.Sanitize(m.uri), mgmt.Sanitize(c.Name()))
	if err == nil {
		mgmt.Default().Unregister(objName)
	}
	if err = c.Close(); err != nil {
		logs.DefaultLogger().Error("[cache-manager] close error:", c.Name(), err.Error())
	}
}

// DestroyCache 销毁一个缓存，注销统计并关闭底层引擎
func (m *Manager) DestroyCache(name string) bool {
	c, ok := m.children.Pop(name)
	if !ok {
		return false
	}
	m.drop(c)
	return true
}

// Close 销毁全部缓存并从全局列表摘除
func (m *Manager) Close() error {
	lo.ForEach(m.children.Keys(), func(name string, _ int) {
		m.DestroyCache(name)
	})
	globalManagers.Remove(m.uri)
	return nil
}
