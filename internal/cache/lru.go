package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// item 包装缓存数据和过期时间
type item[V any] struct {
	data      V
	expiresAt time.Time
}

// LRU 进程内 LRU 缓存，容量满时淘汰最久未用的条目
type LRU[V any] struct {
	l   *lru.Cache[string, item[V]]
	now func() time.Time
}

func NewLRU[V any](size int) (*LRU[V], error) {
	l, err := lru.New[string, item[V]](size)
	if err != nil {
		return nil, err
	}
	return &LRU[V]{l: l, now: time.Now}, nil
}

// Get 获取缓存，不存在或已过期返回 false
func (c *LRU[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V
	val, ok := c.l.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(val.expiresAt) {
		c.l.Remove(key)
		return zero, false
	}
	return val.data, true
}

// Set 设置缓存，ttl <= 0 时不写入
func (c *LRU[V]) Set(_ context.Context, key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.l.Add(key, item[V]{data: value, expiresAt: c.now().Add(ttl)})
}

func (c *LRU[V]) Delete(_ context.Context, key string) {
	c.l.Remove(key)
}

func (c *LRU[V]) Len() int { return c.l.Len() }
