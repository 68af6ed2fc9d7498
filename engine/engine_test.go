package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/feature"
	"github.com/rushteam/shoprank/pkg/geo"
	"github.com/rushteam/shoprank/store"
	"github.com/rushteam/shoprank/trainer"
)

// newTestEngine 组装内存后端的完整引擎。
func newTestEngine(t *testing.T) (*Engine, *store.KVCatalogStore, *store.KVInteractionStore) {
	t.Helper()
	kv := store.NewMemoryStore()
	t.Cleanup(func() { _ = kv.Close() })

	catalog := store.NewKVCatalogStore(kv)
	interactions := store.NewKVInteractionStore(kv)
	prefs := store.NewKVPreferenceStore(kv)

	tr := trainer.New(interactions, catalog, prefs, &feature.Extractor{Interactions: interactions}, core.TrainerConfig{})
	e := New(catalog, interactions, prefs, tr, nil)
	return e, catalog, interactions
}

func seedShop(t *testing.T, catalog *store.KVCatalogStore, id string, rating float64) {
	t.Helper()
	err := catalog.PutShop(context.Background(), &core.Shop{
		ID:        id,
		Name:      id,
		Category:  "coffee",
		Rating:    rating,
		Active:    true,
		Verified:  true,
		CreatedAt: time.Now().AddDate(0, 0, -30),
	})
	if err != nil {
		t.Fatalf("PutShop(%s) error = %v", id, err)
	}
}

func TestEngine_Rank_OrdersByRating(t *testing.T) {
	e, catalog, _ := newTestEngine(t)
	seedShop(t, catalog, "poor", 1)
	seedShop(t, catalog, "great", 5)
	seedShop(t, catalog, "okay", 3)

	items, err := e.Rank(context.Background(), RankRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}

	wantOrder := []string{"great", "okay", "poor"}
	for i, want := range wantOrder {
		if items[i].Entity.ID != want {
			t.Errorf("position %d = %s, want %s", i, items[i].Entity.ID, want)
		}
	}
	for _, it := range items {
		if it.Score < 0 || it.Score > 1 {
			t.Errorf("score %v out of [0,1]", it.Score)
		}
	}
}

func TestEngine_Rank_Limit(t *testing.T) {
	e, catalog, _ := newTestEngine(t)
	for i := 0; i < 20; i++ {
		seedShop(t, catalog, fmt.Sprintf("s%d", i), 3)
	}

	items, err := e.Rank(context.Background(), RankRequest{UserID: "u1", Limit: 5})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(items) != 5 {
		t.Errorf("len(items) = %d, want 5", len(items))
	}
}

func TestEngine_Rank_Validation(t *testing.T) {
	e, _, _ := newTestEngine(t)

	tests := []struct {
		name string
		req  RankRequest
	}{
		{"missing user", RankRequest{}},
		{"distance filter without location", RankRequest{UserID: "u1", MaxDistanceKm: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Rank(context.Background(), tt.req)
			if err == nil {
				t.Fatal("Rank() should fail validation")
			}
			if !core.IsInvalidInput(err) {
				t.Errorf("error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestEngine_Rank_DistanceFilterWithLocation(t *testing.T) {
	e, catalog, _ := newTestEngine(t)
	ctx := context.Background()

	near := &core.Shop{
		ID: "near", Category: "coffee", Rating: 3, Active: true, Verified: true,
		Location: geo.Point{Lat: 31.23, Lng: 121.47},
	}
	far := &core.Shop{
		ID: "far", Category: "coffee", Rating: 5, Active: true, Verified: true,
		Location: geo.Point{Lat: 39.90, Lng: 116.41},
	}
	if err := catalog.PutShop(ctx, near); err != nil {
		t.Fatal(err)
	}
	if err := catalog.PutShop(ctx, far); err != nil {
		t.Fatal(err)
	}

	items, err := e.Rank(ctx, RankRequest{
		UserID:        "u1",
		Location:      &geo.Point{Lat: 31.23, Lng: 121.47},
		MaxDistanceKm: 10,
	})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(items) != 1 || items[0].Entity.ID != "near" {
		t.Errorf("items = %d, want only the nearby shop", len(items))
	}
}

func TestEngine_Rank_VariantAssignmentIsStable(t *testing.T) {
	e, catalog, _ := newTestEngine(t)
	seedShop(t, catalog, "s1", 4)

	want := Bucket("u1")
	rctx, err := e.buildContext(context.Background(), RankRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("buildContext() error = %v", err)
	}
	if rctx.Variant != want {
		t.Errorf("Variant = %q, want %q", rctx.Variant, want)
	}

	// 显式指定变体时覆盖哈希分桶（评估链路）
	rctx, err = e.buildContext(context.Background(), RankRequest{UserID: "u1", Variant: "B"})
	if err != nil {
		t.Fatalf("buildContext() error = %v", err)
	}
	if rctx.Variant != "B" {
		t.Errorf("forced Variant = %q, want B", rctx.Variant)
	}
}

func TestEngine_Recommend_ColdStartFallsBackToHot(t *testing.T) {
	e, catalog, interactions := newTestEngine(t)
	seedShop(t, catalog, "popular", 4)

	// 其他用户的行为给热门兜底提供数据；目标用户毫无历史
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := interactions.Append(ctx, &core.InteractionEvent{
			UserID: "veteran",
			Target: core.EntityRef{Type: core.EntityShop, ID: "popular"},
			Action: core.ActionPurchase,
			At:     time.Now().Add(-time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	items, err := e.Recommend(ctx, RecommendRequest{UserID: "newcomer"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(items) == 0 {
		t.Fatal("cold start should fall back to the hot list, not an empty result")
	}
	if got := items[0].Labels["recall_source"].Value; got != "fallback" {
		t.Errorf("recall_source = %q, want \"fallback\"", got)
	}
}

func TestEngine_Recommend_ExcludesInteracted(t *testing.T) {
	e, catalog, interactions := newTestEngine(t)
	seedShop(t, catalog, "bought", 5)
	seedShop(t, catalog, "fresh", 4)

	ctx := context.Background()
	err := interactions.Append(ctx, &core.InteractionEvent{
		UserID: "u1",
		Target: core.EntityRef{Type: core.EntityShop, ID: "bought"},
		Action: core.ActionPurchase,
		At:     time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	items, err := e.Recommend(ctx, RecommendRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	for _, it := range items {
		if it.Entity.ID == "bought" {
			t.Error("recently interacted entity should be excluded from recommendations")
		}
	}
}

func TestEngine_RetrainModels_InsufficientData(t *testing.T) {
	e, catalog, _ := newTestEngine(t)
	seedShop(t, catalog, "s1", 4)

	err := e.RetrainModels(context.Background())
	if err == nil {
		t.Fatal("RetrainModels() with no events should report insufficient data")
	}
	if !core.IsInsufficientData(err) {
		t.Errorf("error = %v, want INSUFFICIENT_DATA", err)
	}

	// 训练失败不影响排序链路
	if _, err := e.Rank(context.Background(), RankRequest{UserID: "u1"}); err != nil {
		t.Errorf("Rank() after failed training error = %v", err)
	}

	st := e.ModelStatus()
	if st.ClusterCount != 0 || st.RankerCount != 0 {
		t.Errorf("ModelStatus = %+v, want empty model set", st)
	}
}
