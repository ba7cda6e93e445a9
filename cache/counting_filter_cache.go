package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math"
	"time"
)

const bucketHeight = 8

type fingerprint uint16

type target struct {
	bucketIndex uint
	fingerprint fingerprint
}

type bucket struct {
	entries [bucketHeight]fingerprint
	count   uint8
}

type table []bucket

// countingFilter 多表计数过滤器引擎，支持删除
type countingFilter struct {
	tables     []table
	numTables  uint
	numBuckets uint
}

func newCountingFilter(numTables uint, numBuckets uint) (*countingFilter, error) {
	if numBuckets < numTables {
		return nil, errors.New("numBuckets has to be greater than numTables")
	}

	cf := &countingFilter{
		numTables:  numTables,
		numBuckets: numBuckets,
		tables:     make([]table, numTables),
	}
	cf.reset()
	return cf, nil
}

func (cf *countingFilter) reset() {
	for i := range cf.tables {
		cf.tables[i] = make(table, cf.numBuckets)
	}
}

// countingFilterCache 成员判断型缓存，值只有存在与否
type countingFilterCache[V bool] struct {
	name  string
	mgr   *Manager
	cf    *countingFilter
	stats *Statistics
}

// NewCountingFilterCache 创建计数过滤器缓存，容量取自cfg.Capacity
func NewCountingFilterCache(m *Manager, name string, cfg *Config) (*countingFilterCache[bool], error) {
	cfg = initConfig(cfg)
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultFilterSize
	}
	if m == nil {
		m = DefaultManager()
	}
	numTables := cfg.Capacity / (4096 * bucketHeight)
	if numTables <= 0 {
		numTables = 1
	}
	cf, err := newCountingFilter(uint(numTables), 4096)
	if err != nil {
		return nil, err
	}
	co := &countingFilterCache[bool]{
		name:  name,
		mgr:   m,
		cf:    cf,
		stats: NewStatistics(),
	}
	if err = m.register(co, co.stats, cfg); err != nil {
		return nil, err
	}
	return co, nil
}

// Name xxx
func (c *countingFilterCache[V]) Name() string {
	return c.name
}

// Manager xxx
func (c *countingFilterCache[V]) Manager() *Manager {
	return c.mgr
}

// Close 清空过滤器
func (c *countingFilterCache[V]) Close() error {
	c.cf.reset()
	return nil
}

// Count 当前条目数
func (c *countingFilterCache[V]) Count() uint {
	return c.cf.getCount()
}

// Get 判断key是否存在
func (c *countingFilterCache[V]) Get(_ context.Context, key string) (bool, error) {
	targets := c.cf.getTargets([]byte(key))
	_, _, bfp := c.cf.lookup(targets)
	found := bfp != nil
	c.stats.track(found)
	return found, nil
}

// Set 向过滤器写入key，重复写入返回false
func (c *countingFilterCache[V]) Set(_ context.Context, key string, _ V, _ time.Duration) (bool, error) {
	added := c.cf.add([]byte(key))
	if added {
		c.stats.Put()
	}
	return added, nil
}

// Del 从过滤器删除key
func (c *countingFilterCache[V]) Del(_ context.Context, key string) (bool, error) {
	removed := c.cf.delete([]byte(key))
	if removed {
		c.stats.Removal()
	}
	return removed, nil
}

func (cf *countingFilter) getTargets(data []byte) []target {
	hashMethod := fnv.New64a()
	_, _ = hashMethod.Write(data)
	fp := hashMethod.Sum(nil)
	hashSum := hashMethod.Sum64()

	h1 := uint32(hashSum & 0xffffffff)
	h2 := uint32((hashSum >> 32) & 0xffffffff)

	indices := make([]uint, cf.numTables)
	for i := uint(0); i < cf.numTables; i++ {
		saltedHash := uint(h1 + uint32(i)*h2)
		indices[i] = saltedHash % cf.numBuckets
	}

	targets := make([]target, cf.numTables)
	for i := uint(0); i < cf.numTables; i++ {
		targets[i] = target{
			bucketIndex: uint(indices[i]),
			fingerprint: fingerprint(binary.LittleEndian.Uint16(fp)),
		}
	}
	return targets
}

func (cf *countingFilter) add(data []byte) bool {
	targets := cf.getTargets(data)

	_, _, target := cf.lookup(targets)
	if target != nil {
		return false
	}

	minCount := uint8(math.MaxUint8)
	tableI := uint(0)

	for i, target := range targets {
		tmpCount := cf.tables[i][target.bucketIndex].count
		if tmpCount < minCount && tmpCount < bucketHeight {
			minCount = cf.tables[i][target.bucketIndex].count
			tableI = uint(i)
		}
	}

	if minCount == uint8(math.MaxUint8) {
		return false
	}
	bucket := &cf.tables[tableI][targets[tableI].bucketIndex]
	bucket.entries[minCount] = targets[tableI].fingerprint
	bucket.count++
	return true
}

func (cf *countingFilter) delete(data []byte) bool {
	deleted := false
	targets := cf.getTargets(data)
	for i, target := range targets {
		for j, fp := range cf.tables[i][target.bucketIndex].entries {
			if fp == target.fingerprint {
				if cf.tables[i][target.bucketIndex].count == 0 {
					continue
				}
				cf.tables[i][target.bucketIndex].count--
				k := 0
				for l, fp := range cf.tables[i][target.bucketIndex].entries {
					if j == l {
						continue
					}
					cf.tables[i][target.bucketIndex].entries[k] = fp
					k++
				}
				lastIndex := cf.tables[i][target.bucketIndex].count
				cf.tables[i][target.bucketIndex].entries[lastIndex] = 0
				deleted = true
			}
		}
	}
	return deleted
}

func (cf *countingFilter) lookup(targets []target) (uint, uint, *target) {
	for i, target := range targets {
		for j, fp := range cf.tables[i][target.bucketIndex].entries {
			if fp == target.fingerprint {
				return uint(i), uint(j), &target
			}
		}
	}
	return 0, 0, nil
}

func (cf *countingFilter) getCount() uint {
	count := uint(0)
	for _, table := range cf.tables {
		for _, bucket := range table {
			count += uint(bucket.count)
		}
	}
	return count
}
