package rank

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/model"
)

// staticProvider 返回固定模型集合的 ModelProvider。
type staticProvider struct {
	set *model.Set
}

func (p *staticProvider) Models() *model.Set { return p.set }

// fakeEvents 是只读事件存储，按 UserID 返回固定事件。
type fakeEvents struct {
	byUser map[string][]*core.InteractionEvent
}

func (f *fakeEvents) Append(_ context.Context, _ *core.InteractionEvent) error { return nil }

func (f *fakeEvents) Query(_ context.Context, q core.EventQuery) ([]*core.InteractionEvent, error) {
	return f.byUser[q.UserID], nil
}

func (f *fakeEvents) CountByTarget(_ context.Context, _ core.EntityRef, _ time.Time) (int64, error) {
	return 0, nil
}

func ratedItem(id string, rating float64) *core.Item {
	it := core.NewItem(core.EntityRef{Type: core.EntityShop, ID: id})
	it.Features = map[string]float64{model.FeatRating: rating}
	return it
}

func TestClusterNode_FallbackWhenNoModels(t *testing.T) {
	n := &ClusterNode{Provider: &staticProvider{set: &model.Set{}}}
	items := []*core.Item{ratedItem("s1", 5)}

	out, err := n.Process(context.Background(), &core.RankContext{UserID: "u1"}, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	// 退化为规则分：rating 5/5 归一化后 1.0
	if got := out[0].SubScore(core.SubScoreCluster); got != 1.0 {
		t.Errorf("cluster sub-score = %v, want rule fallback 1.0", got)
	}
	if got := out[0].Labels["cluster_fallback"].Value; got != "no_models" {
		t.Errorf("fallback label = %q, want \"no_models\"", got)
	}
}

func TestClusterNode_ScoresAgainstCentroid(t *testing.T) {
	set := &model.Set{
		TrainedAt: time.Now(),
		Clusters: map[int]*model.ClusterModel{
			0: {ID: 0, Centroid: []float64{0.5, 0.5, 0.5, 0.5}},
		},
	}
	n := &ClusterNode{
		Provider:     &staticProvider{set: set},
		Interactions: &fakeEvents{},
	}
	items := []*core.Item{ratedItem("s1", 4)}

	out, err := n.Process(context.Background(), &core.RankContext{UserID: "u1"}, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	score := out[0].SubScore(core.SubScoreCluster)
	if score < 0 || score > 1 {
		t.Errorf("cluster sub-score = %v, want within [0,1]", score)
	}
	if got := out[0].Labels["cluster_id"].Value; got != "0" {
		t.Errorf("cluster_id label = %q, want \"0\"", got)
	}
}

func TestLearnedNode_FallbackWhenRankerMissing(t *testing.T) {
	// 有聚类但该簇没有排序模型（训练样本不足）
	set := &model.Set{
		TrainedAt: time.Now(),
		Clusters: map[int]*model.ClusterModel{
			0: {ID: 0, Centroid: []float64{0.1, 0.1, 0.1, 0.1}},
		},
	}
	n := &LearnedNode{
		Provider:     &staticProvider{set: set},
		Interactions: &fakeEvents{},
	}
	items := []*core.Item{ratedItem("s1", 5)}

	out, err := n.Process(context.Background(), &core.RankContext{UserID: "u1"}, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := out[0].SubScore(core.SubScoreLearned); got != 1.0 {
		t.Errorf("learned sub-score = %v, want rule fallback 1.0", got)
	}
	if got := out[0].Labels["learned_fallback"].Value; got != "ranker_missing" {
		t.Errorf("fallback label = %q, want \"ranker_missing\"", got)
	}
}

func TestLearnedNode_UsesClusterEnsemble(t *testing.T) {
	set := &model.Set{
		TrainedAt: time.Now(),
		Clusters: map[int]*model.ClusterModel{
			0: {ID: 0, Centroid: []float64{0.1, 0.1, 0.1, 0.1}},
		},
		Rankers: map[int]*model.StumpEnsemble{
			0: {
				Trees:        []model.Stump{{FeatureIndex: 0, Threshold: 2, LeftValue: 0.3, RightValue: 0.9}},
				LearningRate: 1,
			},
		},
	}
	n := &LearnedNode{
		Provider:     &staticProvider{set: set},
		Interactions: &fakeEvents{},
	}

	lowRated := ratedItem("low", 1)   // rating 1 <= threshold 2 → 0.3
	highRated := ratedItem("high", 5) // rating 5 > threshold 2 → 0.9

	out, err := n.Process(context.Background(), &core.RankContext{UserID: "u1"}, []*core.Item{lowRated, highRated})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := out[0].SubScore(core.SubScoreLearned); got != 0.3 {
		t.Errorf("low rated learned score = %v, want 0.3", got)
	}
	if got := out[1].SubScore(core.SubScoreLearned); got != 0.9 {
		t.Errorf("high rated learned score = %v, want 0.9", got)
	}
}

func TestAssignCluster_CachedInContext(t *testing.T) {
	set := &model.Set{
		Clusters: map[int]*model.ClusterModel{
			0: {ID: 0, Centroid: []float64{0, 0, 0, 0}},
			1: {ID: 1, Centroid: []float64{1, 1, 1, 1}},
		},
	}
	rctx := &core.RankContext{
		UserID: "u1",
		Params: map[string]any{clusterParamKey: 1},
	}

	// 已缓存时不访问事件存储（传 nil 也不会 panic）
	got, err := assignCluster(context.Background(), rctx, set, nil, 90)
	if err != nil {
		t.Fatalf("assignCluster() error = %v", err)
	}
	if got != 1 {
		t.Errorf("assignCluster() = %d, want cached 1", got)
	}
}

func TestAssignCluster_NoEventsDefaultsToZero(t *testing.T) {
	set := &model.Set{
		Clusters: map[int]*model.ClusterModel{
			0: {ID: 0, Centroid: []float64{0, 0, 0, 0}},
			1: {ID: 1, Centroid: []float64{1, 1, 1, 1}},
		},
	}
	rctx := &core.RankContext{UserID: "newcomer"}

	got, err := assignCluster(context.Background(), rctx, set, &fakeEvents{}, 90)
	if err != nil {
		t.Fatalf("assignCluster() error = %v", err)
	}
	if got != 0 {
		t.Errorf("assignCluster() = %d, want default 0", got)
	}
	if cached, ok := rctx.Params[clusterParamKey].(int); !ok || cached != 0 {
		t.Errorf("cluster not cached in context params: %v", rctx.Params)
	}
}
