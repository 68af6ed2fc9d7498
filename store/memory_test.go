package store

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/pkg/geo"
)

func TestMemoryStore_GetSet(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if _, err := ms.Get(ctx, "missing"); !core.IsNotFound(err) {
		t.Fatalf("missing key err = %v, want not-found", err)
	}

	if err := ms.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := ms.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}

	if err := ms.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := ms.Get(ctx, "k"); !core.IsNotFound(err) {
		t.Errorf("deleted key err = %v, want not-found", err)
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	// 注入 1 秒 TTL，过期后读不到（懒失效，不依赖清理协程）
	if err := ms.Set(ctx, "ephemeral", []byte("x"), 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := ms.Get(ctx, "ephemeral"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := ms.Get(ctx, "ephemeral"); !core.IsNotFound(err) {
		t.Errorf("expired key err = %v, want not-found", err)
	}
}

func TestMemoryStore_Hash(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if err := ms.HSet(ctx, "h", "f1", []byte("a")); err != nil {
		t.Fatalf("HSet: %v", err)
	}
	if err := ms.HSet(ctx, "h", "f2", []byte("b")); err != nil {
		t.Fatalf("HSet: %v", err)
	}

	got, err := ms.HGet(ctx, "h", "f1")
	if err != nil {
		t.Fatalf("HGet: %v", err)
	}
	if string(got) != "a" {
		t.Errorf("HGet = %q, want %q", got, "a")
	}
	if _, err := ms.HGet(ctx, "h", "nope"); !core.IsNotFound(err) {
		t.Errorf("missing field err = %v, want not-found", err)
	}

	all, err := ms.HGetAll(ctx, "h")
	if err != nil {
		t.Fatalf("HGetAll: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("HGetAll len = %d, want 2", len(all))
	}
}

func TestMemoryStore_ZSet(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	members := []struct {
		name  string
		score float64
	}{
		{"low", 1}, {"mid", 5}, {"high", 9},
	}
	for _, m := range members {
		if err := ms.ZAdd(ctx, "z", m.score, m.name); err != nil {
			t.Fatalf("ZAdd: %v", err)
		}
	}

	// ZRange 按分数降序
	top, err := ms.ZRange(ctx, "z", 0, 1)
	if err != nil {
		t.Fatalf("ZRange: %v", err)
	}
	if len(top) != 2 || top[0] != "high" || top[1] != "mid" {
		t.Errorf("ZRange top2 = %v, want [high mid]", top)
	}

	// ZRangeByScore 闭区间、按分数升序
	mid, err := ms.ZRangeByScore(ctx, "z", 1, 5)
	if err != nil {
		t.Fatalf("ZRangeByScore: %v", err)
	}
	if len(mid) != 2 || mid[0] != "low" || mid[1] != "mid" {
		t.Errorf("ZRangeByScore [1,5] = %v, want [low mid]", mid)
	}

	// ZRemRangeByScore 删除区间成员
	removed, err := ms.ZRemRangeByScore(ctx, "z", 0, 5)
	if err != nil {
		t.Fatalf("ZRemRangeByScore: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	rest, err := ms.ZRange(ctx, "z", 0, -1)
	if err != nil {
		t.Fatalf("ZRange after removal: %v", err)
	}
	if len(rest) != 1 || rest[0] != "high" {
		t.Errorf("remaining = %v, want [high]", rest)
	}
}

func TestKVCatalogStore_RoundTrip(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	catalog := NewKVCatalogStore(ms)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	shop := &core.Shop{
		ID: "s1", Name: "测试店铺", Category: "food",
		Rating: 4.5, ReviewCount: 100, AvgPrice: 50,
		Location: geo.Point{Lat: 31.23, Lng: 121.47},
		Active:   true, Verified: true,
		CreatedAt: now.AddDate(-1, 0, 0), UpdatedAt: now,
	}
	if err := catalog.PutShop(ctx, shop); err != nil {
		t.Fatalf("PutShop: %v", err)
	}

	got, err := catalog.GetShop(ctx, "s1")
	if err != nil {
		t.Fatalf("GetShop: %v", err)
	}
	if got.Name != shop.Name || got.Rating != shop.Rating || got.Category != shop.Category {
		t.Errorf("GetShop = %+v, want %+v", got, shop)
	}
	if _, err := catalog.GetShop(ctx, "ghost"); !core.IsNotFound(err) {
		t.Errorf("missing shop err = %v, want not-found", err)
	}

	offer := &core.Offer{
		ID: "o1", ShopID: "s1", Title: "测试优惠", Category: "food",
		DiscountType: core.DiscountPercent, DiscountValue: 80,
		StartAt: now.AddDate(0, 0, -1), EndAt: now.AddDate(0, 0, 7),
		Active:  true,
	}
	if err := catalog.PutOffer(ctx, offer); err != nil {
		t.Fatalf("PutOffer: %v", err)
	}
	gotOffer, err := catalog.GetOffer(ctx, "o1")
	if err != nil {
		t.Fatalf("GetOffer: %v", err)
	}
	if gotOffer.ShopID != "s1" || gotOffer.DiscountValue != 80 {
		t.Errorf("GetOffer = %+v", gotOffer)
	}
}

func TestKVCatalogStore_QueryShopsFilters(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	catalog := NewKVCatalogStore(ms)
	ctx := context.Background()

	shops := []*core.Shop{
		{ID: "s1", Category: "food", Active: true, Verified: true},
		{ID: "s2", Category: "food", Active: false, Verified: true},
		{ID: "s3", Category: "bar", Active: true, Verified: true},
		{ID: "s4", Category: "food", Active: true, Verified: false},
	}
	for _, s := range shops {
		if err := catalog.PutShop(ctx, s); err != nil {
			t.Fatalf("PutShop: %v", err)
		}
	}

	got, err := catalog.QueryShops(ctx, core.CandidateQuery{
		Category: "food", OnlyActive: true, OnlyVerified: true,
	})
	if err != nil {
		t.Fatalf("QueryShops: %v", err)
	}
	if len(got) != 1 || got[0].ID != "s1" {
		t.Errorf("QueryShops = %v, want only s1", shopIDs(got))
	}
}

func shopIDs(shops []*core.Shop) []string {
	out := make([]string, 0, len(shops))
	for _, s := range shops {
		out = append(out, s.ID)
	}
	return out
}

func TestKVInteractionStore_QueryWindowAndFilters(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	events := NewKVInteractionStore(ms)
	ctx := context.Background()
	now := time.Now()

	target := core.EntityRef{Type: core.EntityShop, ID: "s1"}
	other := core.EntityRef{Type: core.EntityShop, ID: "s2"}
	seed := []*core.InteractionEvent{
		{UserID: "u1", Target: target, Action: core.ActionView, At: now.Add(-48 * time.Hour)},
		{UserID: "u1", Target: target, Action: core.ActionClick, At: now.Add(-1 * time.Hour)},
		{UserID: "u2", Target: other, Action: core.ActionPurchase, At: now.Add(-30 * time.Minute)},
	}
	for _, ev := range seed {
		if err := events.Append(ctx, ev); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// 时间窗口：只命中最近 24 小时内的两条
	recent, err := events.Query(ctx, core.EventQuery{Since: now.Add(-24 * time.Hour)})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("recent events = %d, want 2", len(recent))
	}

	// 按用户过滤
	u1, err := events.Query(ctx, core.EventQuery{UserID: "u1"})
	if err != nil {
		t.Fatalf("Query by user: %v", err)
	}
	if len(u1) != 2 {
		t.Errorf("u1 events = %d, want 2", len(u1))
	}

	// 按行为类型过滤
	purchases, err := events.Query(ctx, core.EventQuery{Action: core.ActionPurchase})
	if err != nil {
		t.Fatalf("Query by action: %v", err)
	}
	if len(purchases) != 1 || purchases[0].UserID != "u2" {
		t.Errorf("purchases = %d, want 1 from u2", len(purchases))
	}

	// 按目标实体计数
	n, err := events.CountByTarget(ctx, target, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("CountByTarget: %v", err)
	}
	if n != 1 {
		t.Errorf("CountByTarget = %d, want 1", n)
	}
}

func TestKVInteractionStore_PruneTrimsTimeline(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	events := NewKVInteractionStore(ms)
	ctx := context.Background()
	now := time.Now()

	target := core.EntityRef{Type: core.EntityShop, ID: "s1"}
	seed := []*core.InteractionEvent{
		{UserID: "u1", Target: target, Action: core.ActionView, At: now.AddDate(0, 0, -100)},
		{UserID: "u1", Target: target, Action: core.ActionClick, At: now.AddDate(0, 0, -1)},
	}
	for _, ev := range seed {
		if err := events.Append(ctx, ev); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	removed, err := events.Prune(ctx, now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	rest, err := events.Query(ctx, core.EventQuery{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rest) != 1 || rest[0].Action != core.ActionClick {
		t.Errorf("remaining = %d events, want the recent click", len(rest))
	}

	// before 零值是 no-op
	if n, err := events.Prune(ctx, time.Time{}); err != nil || n != 0 {
		t.Errorf("Prune(zero) = %d, %v", n, err)
	}
}

func TestKVPreferenceStore_RoundTrip(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	prefs := NewKVPreferenceStore(ms)
	ctx := context.Background()

	want := &core.UserPreferences{
		UserID:          "u1",
		CategoryWeights: map[string]float64{"food": 0.8},
		PriceMin:        20, PriceMax: 100, MaxDistanceKm: 5,
	}
	if err := prefs.PutPreferences(ctx, want); err != nil {
		t.Fatalf("PutPreferences: %v", err)
	}
	got, err := prefs.GetPreferences(ctx, "u1")
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if got.CategoryWeights["food"] != 0.8 || got.PriceMax != 100 {
		t.Errorf("GetPreferences = %+v", got)
	}

	if _, err := prefs.GetPreferences(ctx, "ghost"); !core.IsNotFound(err) {
		t.Errorf("missing prefs err = %v, want not-found", err)
	}
}
