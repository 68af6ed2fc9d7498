package recall

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/pkg/utils"
)

// staticSource 返回固定评分的候选列表。label 非空时模拟真实召回源给候选打 recall_source 标签。
type staticSource struct {
	name  string
	items map[string]float64 // entity id -> score
	label string
	err   error
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Recall(_ context.Context, _ *core.RankContext) ([]*core.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*core.Item, 0, len(s.items))
	for id, score := range s.items {
		it := core.NewItem(core.EntityRef{Type: core.EntityShop, ID: id})
		it.Score = score
		if s.label != "" {
			it.PutLabel("recall_source", utils.Label{Value: s.label, Source: "recall"})
		}
		out = append(out, it)
	}
	return out, nil
}

func TestHybrid_MergesWithVariantAWeights(t *testing.T) {
	h := &Hybrid{
		Collaborative:   &staticSource{name: "cf", items: map[string]float64{"s1": 1.0}},
		Content:         &staticSource{name: "content", items: map[string]float64{"s1": 0.5, "s2": 1.0}},
		Location:        &staticSource{name: "lbs", items: map[string]float64{"s2": 0.5}},
		VariantAWeights: [3]float64{0.3, 0.4, 0.3},
		VariantBWeights: [3]float64{0.4, 0.3, 0.3},
	}

	items, err := h.Process(context.Background(), &core.RankContext{UserID: "u1", Variant: "A"}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}

	scores := map[string]float64{}
	for _, it := range items {
		scores[it.Entity.ID] = it.Score
	}
	// s1: 0.3*1.0 + 0.4*0.5 = 0.5; s2: 0.4*1.0 + 0.3*0.5 = 0.55
	if math.Abs(scores["s1"]-0.5) > 1e-9 {
		t.Errorf("s1 score = %v, want 0.5", scores["s1"])
	}
	if math.Abs(scores["s2"]-0.55) > 1e-9 {
		t.Errorf("s2 score = %v, want 0.55", scores["s2"])
	}
	// 按分数降序
	if items[0].Entity.ID != "s2" {
		t.Errorf("top item = %s, want s2", items[0].Entity.ID)
	}
}

func TestHybrid_VariantBChangesWeights(t *testing.T) {
	h := &Hybrid{
		Collaborative:   &staticSource{name: "cf", items: map[string]float64{"s1": 1.0}},
		Content:         &staticSource{name: "content", items: map[string]float64{"s2": 1.0}},
		VariantAWeights: [3]float64{0.3, 0.4, 0.3},
		VariantBWeights: [3]float64{0.4, 0.3, 0.3},
	}

	items, err := h.Process(context.Background(), &core.RankContext{UserID: "u1", Variant: "B"}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	scores := map[string]float64{}
	for _, it := range items {
		scores[it.Entity.ID] = it.Score
	}
	if math.Abs(scores["s1"]-0.4) > 1e-9 {
		t.Errorf("B variant s1 = %v, want collaborative weight 0.4", scores["s1"])
	}
	if math.Abs(scores["s2"]-0.3) > 1e-9 {
		t.Errorf("B variant s2 = %v, want content weight 0.3", scores["s2"])
	}
}

func TestHybrid_ColdStartFallsBack(t *testing.T) {
	h := &Hybrid{
		Collaborative: &staticSource{name: "cf"},
		Content:       &staticSource{name: "content"},
		// 兜底源自己会打 recall_source=hot，验证 Hybrid 整体替换而非拼出 "hot|fallback"
		Fallback: &staticSource{name: "hot", label: "hot", items: map[string]float64{"popular": 0.9}},
	}

	items, err := h.Process(context.Background(), &core.RankContext{UserID: "newcomer"}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1 from fallback", len(items))
	}
	if got := items[0].Labels["recall_source"].Value; got != "fallback" {
		t.Errorf("recall_source label = %q, want \"fallback\"", got)
	}
}

func TestHybrid_SourceFailureDoesNotAbort(t *testing.T) {
	h := &Hybrid{
		Collaborative: &staticSource{name: "cf", err: errors.New("upstream down")},
		Content:       &staticSource{name: "content", items: map[string]float64{"s1": 1.0}},
	}

	items, err := h.Process(context.Background(), &core.RankContext{UserID: "u1"}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(items) != 1 || items[0].Entity.ID != "s1" {
		t.Errorf("items = %v, want surviving source result s1", items)
	}
}
