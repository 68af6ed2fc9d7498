package store

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/shoprank/core"
)

// countingPrefStore 记录后端被命中的次数。
type countingPrefStore struct {
	prefs map[string]*core.UserPreferences
	calls int
}

func (s *countingPrefStore) GetPreferences(ctx context.Context, userID string) (*core.UserPreferences, error) {
	s.calls++
	p, ok := s.prefs[userID]
	if !ok {
		return nil, core.ErrPrefsNotFound
	}
	return p, nil
}

func TestCachedPreferenceStore_HitSkipsBackend(t *testing.T) {
	backend := &countingPrefStore{
		prefs: map[string]*core.UserPreferences{
			"u1": {UserID: "u1", CategoryWeights: map[string]float64{"food": 0.8}},
		},
	}
	cache := NewCachedPreferenceStore(backend, 16, time.Minute)
	defer cache.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		prefs, err := cache.GetPreferences(ctx, "u1")
		if err != nil {
			t.Fatalf("GetPreferences: %v", err)
		}
		if prefs.CategoryWeights["food"] != 0.8 {
			t.Fatalf("category weight = %v, want 0.8", prefs.CategoryWeights["food"])
		}
	}
	if backend.calls != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls)
	}
}

func TestCachedPreferenceStore_CachesMissing(t *testing.T) {
	backend := &countingPrefStore{prefs: map[string]*core.UserPreferences{}}
	cache := NewCachedPreferenceStore(backend, 16, time.Minute)
	defer cache.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := cache.GetPreferences(ctx, "ghost"); !core.IsNotFound(err) {
			t.Fatalf("err = %v, want not-found", err)
		}
	}
	// 画像缺失同样缓存，冷启动用户不会反复穿透
	if backend.calls != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls)
	}
}

func TestCachedPreferenceStore_InvalidateForcesReload(t *testing.T) {
	backend := &countingPrefStore{
		prefs: map[string]*core.UserPreferences{
			"u1": {UserID: "u1"},
		},
	}
	cache := NewCachedPreferenceStore(backend, 16, time.Minute)
	defer cache.Close()

	ctx := context.Background()
	if _, err := cache.GetPreferences(ctx, "u1"); err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	cache.Invalidate("u1")
	if _, err := cache.GetPreferences(ctx, "u1"); err != nil {
		t.Fatalf("GetPreferences after invalidate: %v", err)
	}
	if backend.calls != 2 {
		t.Errorf("backend calls = %d, want 2", backend.calls)
	}
}

func TestCachedPreferenceStore_EvictsLRU(t *testing.T) {
	backend := &countingPrefStore{
		prefs: map[string]*core.UserPreferences{
			"u1": {UserID: "u1"},
			"u2": {UserID: "u2"},
			"u3": {UserID: "u3"},
		},
	}
	cache := NewCachedPreferenceStore(backend, 2, time.Minute)
	defer cache.Close()

	ctx := context.Background()
	// u1 先入缓存，再访问一次刷新访问时间
	cache.GetPreferences(ctx, "u1")
	cache.GetPreferences(ctx, "u2")
	time.Sleep(2 * time.Millisecond)
	cache.GetPreferences(ctx, "u1")
	// 容量 2，写入 u3 时应淘汰最久未访问的 u2
	cache.GetPreferences(ctx, "u3")

	calls := backend.calls
	cache.GetPreferences(ctx, "u1")
	if backend.calls != calls {
		t.Errorf("u1 should still be cached, backend calls %d -> %d", calls, backend.calls)
	}
	cache.GetPreferences(ctx, "u2")
	if backend.calls != calls+1 {
		t.Errorf("u2 should have been evicted, backend calls %d -> %d", calls, backend.calls)
	}
}
