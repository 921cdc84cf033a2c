// Package cache 提供进程内的按写入时间判定过期的缓存。
//
// 过期条目不删除，只在读取时视为未命中；下一次成功加载会覆盖它。
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value    any
	storedAt time.Time
}

// Cache 并发安全；同一 key 可按不同 ttl 读取，ttl 由调用方决定。
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
	sf      singleflight.Group
}

type Option func(*Cache)

// WithClock 替换时钟，测试用。
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get 仅当 now-storedAt < ttl 时返回值。
func (c *Cache) Get(key string, ttl time.Duration) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= ttl {
		return nil, false
	}
	return e.value, true
}

// Put 无条件覆盖，storedAt 取当前时间。
func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, storedAt: c.now()}
	c.mu.Unlock()
}

// Len 条目数，含已过期未覆盖的。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Load 命中则直接返回；未命中时调用 load，成功结果写回缓存。
// 同一 key 的并发未命中只触发一次 load，失败不写缓存。
func (c *Cache) Load(key string, ttl time.Duration, load func() (any, error)) (any, error) {
	if v, ok := c.Get(key, ttl); ok {
		return v, nil
	}
	v, err, _ := c.sf.Do(key, func() (any, error) {
		if v, ok := c.Get(key, ttl); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		c.Put(key, v)
		return v, nil
	})
	return v, err
}
