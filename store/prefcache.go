package store

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/shoprank/core"
)

// CachedPreferenceStore 在任意 core.PreferenceStore 前加一层内存 TTL 缓存，
// 减少对远端画像服务（如 Feast）的在线访问。缓存采用 LRU 淘汰，
// "画像不存在" 同样缓存，避免冷启动用户反复打到远端。
type CachedPreferenceStore struct {
	Backend core.PreferenceStore

	mu      sync.RWMutex
	entries map[string]*prefEntry

	maxSize    int
	defaultTTL time.Duration

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

type prefEntry struct {
	prefs      *core.UserPreferences
	missing    bool
	expireTime time.Time
	accessTime time.Time
}

// NewCachedPreferenceStore 创建画像缓存。maxSize 零值回落到 1024，
// ttl 零值回落到 5 分钟。
func NewCachedPreferenceStore(backend core.PreferenceStore, maxSize int, ttl time.Duration) *CachedPreferenceStore {
	if maxSize <= 0 {
		maxSize = 1024
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &CachedPreferenceStore{
		Backend:     backend,
		entries:     make(map[string]*prefEntry),
		maxSize:     maxSize,
		defaultTTL:  ttl,
		stopCleanup: make(chan struct{}),
	}
	c.cleanupTicker = time.NewTicker(1 * time.Minute)
	go c.cleanup()
	return c
}

var _ core.PreferenceStore = (*CachedPreferenceStore)(nil)

func (c *CachedPreferenceStore) GetPreferences(ctx context.Context, userID string) (*core.UserPreferences, error) {
	if entry, ok := c.get(userID); ok {
		if entry.missing {
			return nil, core.ErrPrefsNotFound
		}
		return entry.prefs, nil
	}

	prefs, err := c.Backend.GetPreferences(ctx, userID)
	if err != nil {
		if core.IsNotFound(err) {
			c.set(userID, &prefEntry{missing: true})
			return nil, core.ErrPrefsNotFound
		}
		// 远端故障不缓存，下次请求重试
		return nil, err
	}
	c.set(userID, &prefEntry{prefs: prefs})
	return prefs, nil
}

// Invalidate 主动失效某个用户的缓存条目（画像更新后调用）。
func (c *CachedPreferenceStore) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// Close 停止后台清理协程。
func (c *CachedPreferenceStore) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})
}

func (c *CachedPreferenceStore) get(userID string) (*prefEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[userID]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expireTime) {
		return nil, false
	}
	entry.accessTime = time.Now()
	return entry, true
}

func (c *CachedPreferenceStore) set(userID string, entry *prefEntry) {
	now := time.Now()
	entry.expireTime = now.Add(c.defaultTTL)
	entry.accessTime = now

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.evictLRU()
	}
	c.entries[userID] = entry
}

func (c *CachedPreferenceStore) cleanup() {
	for {
		select {
		case <-c.cleanupTicker.C:
			c.cleanExpired()
		case <-c.stopCleanup:
			c.cleanupTicker.Stop()
			return
		}
	}
}

func (c *CachedPreferenceStore) cleanExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for userID, entry := range c.entries {
		if now.After(entry.expireTime) {
			delete(c.entries, userID)
		}
	}
}

// evictLRU 删除最久未访问的条目。调用方需持有写锁。
func (c *CachedPreferenceStore) evictLRU() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.accessTime.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.accessTime
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
