package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sync"
)

var (
	exportsOnce      sync.Once
	defaultCollector *CacheCollector
)

// DefaultCollector 进程级采集器单例，首次调用时注册到prometheus默认注册表。
// 之后的调用返回同一个实例，不会重复注册。
func DefaultCollector() *CacheCollector {
	exportsOnce.Do(func() {
		defaultCollector = NewCacheCollector()
		prometheus.MustRegister(defaultCollector)
	})
	return defaultCollector
}
