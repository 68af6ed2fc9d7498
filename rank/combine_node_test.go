package rank

import (
	"context"
	"math"
	"testing"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/feature"
	"github.com/rushteam/shoprank/model"
)

func itemWithSubScores(id string, rule, cluster, learned float64) *core.Item {
	it := core.NewItem(core.EntityRef{Type: core.EntityShop, ID: id})
	it.PutSubScore(core.SubScoreRule, rule)
	it.PutSubScore(core.SubScoreCluster, cluster)
	it.PutSubScore(core.SubScoreLearned, learned)
	return it
}

// fullQualityFeatures 返回全部维度都在合法范围内的特征向量（质量分 1.0）。
func fullQualityFeatures() map[string]float64 {
	return map[string]float64{
		model.FeatRating:        4,
		model.FeatDistance:      5,
		model.FeatPriceFit:      0.8,
		model.FeatPopularity:    0.5,
		model.FeatRecency:       30,
		model.FeatCategory:      0.5,
		feature.FeatInteraction: 0.2,
		feature.FeatCTR:         0.1,
		feature.FeatCVR:         0.05,
		model.FeatActive:        1,
		model.FeatVerified:      1,
		feature.FeatDiscount:    0.2,
	}
}

func TestCombineNode_HighQualityWeights(t *testing.T) {
	// 质量 1.0 → 权重 (0.2, 0.3, 0.5)
	it := itemWithSubScores("s1", 1.0, 0.5, 0.2)
	it.Features = fullQualityFeatures()

	n := &CombineNode{}
	out, err := n.Process(context.Background(), &core.RankContext{}, []*core.Item{it})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	want := 0.2*1.0 + 0.3*0.5 + 0.5*0.2
	if math.Abs(out[0].Score-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", out[0].Score, want)
	}
}

func TestCombineNode_LowQualityFavorsRule(t *testing.T) {
	// 几乎没有特征 → 质量分低 → 权重 (0.5, 0.25, 0.25)
	it := itemWithSubScores("s1", 0.8, 0.2, 0.2)
	it.Features = map[string]float64{model.FeatRating: 4}

	n := &CombineNode{}
	out, err := n.Process(context.Background(), &core.RankContext{}, []*core.Item{it})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	want := 0.5*0.8 + 0.25*0.2 + 0.25*0.2
	if math.Abs(out[0].Score-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", out[0].Score, want)
	}
}

func TestCombineNode_SortsDescending(t *testing.T) {
	items := []*core.Item{
		itemWithSubScores("low", 0.1, 0.1, 0.1),
		itemWithSubScores("high", 0.9, 0.9, 0.9),
		itemWithSubScores("mid", 0.5, 0.5, 0.5),
	}

	n := &CombineNode{}
	out, err := n.Process(context.Background(), &core.RankContext{}, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	wantOrder := []string{"high", "mid", "low"}
	for i, want := range wantOrder {
		if out[i].Entity.ID != want {
			t.Errorf("position %d = %s, want %s", i, out[i].Entity.ID, want)
		}
	}
	for i := 1; i < len(out); i++ {
		if out[i].Score > out[i-1].Score {
			t.Errorf("not sorted at %d: %v > %v", i, out[i].Score, out[i-1].Score)
		}
	}
}

func TestCombineNode_QualityLabel(t *testing.T) {
	it := itemWithSubScores("s1", 0.5, 0.5, 0.5)
	it.Features = fullQualityFeatures()

	n := &CombineNode{}
	out, err := n.Process(context.Background(), &core.RankContext{}, []*core.Item{it})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := out[0].Labels["quality"].Value; got != "1.00" {
		t.Errorf("quality label = %q, want \"1.00\"", got)
	}
}

func TestBlendWeights_Tiers(t *testing.T) {
	cfg := core.DefaultConfig().Rank

	tests := []struct {
		quality string
		q       float64
		rule    float64
		cluster float64
		learned float64
	}{
		{"high", 0.9, 0.2, 0.3, 0.5},
		{"medium", 0.6, 0.3, 0.35, 0.35},
		{"low", 0.3, 0.5, 0.25, 0.25},
		{"zero", 0, 0.5, 0.25, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.quality, func(t *testing.T) {
			r, c, l := cfg.BlendWeights(tt.q)
			if r != tt.rule || c != tt.cluster || l != tt.learned {
				t.Errorf("BlendWeights(%v) = (%v, %v, %v), want (%v, %v, %v)",
					tt.q, r, c, l, tt.rule, tt.cluster, tt.learned)
			}
		})
	}
}
