package rank

import (
	"context"
	"strconv"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/feature"
	"github.com/rushteam/shoprank/model"
	"github.com/rushteam/shoprank/pipeline"
	"github.com/rushteam/shoprank/pkg/utils"
)

// ClusterNode 是聚类打分节点：把用户分配到行为簇，再按候选特征向量
// 与簇质心的相似度写入 cluster 子分数。
// 模型缺失（冷系统）时静默退化为规则分，不会让请求失败。
type ClusterNode struct {
	Provider     ModelProvider
	Interactions core.InteractionStore
	Rule         *model.RuleModel // 退化路径
	WindowDays   int
}

func (n *ClusterNode) Name() string        { return "rank.cluster" }
func (n *ClusterNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *ClusterNode) Process(
	ctx context.Context,
	rctx *core.RankContext,
	items []*core.Item,
) ([]*core.Item, error) {
	var set *model.Set
	if n.Provider != nil {
		set = n.Provider.Models()
	}

	// 无可用聚类模型：每个候选退化为规则分
	if set.Empty() {
		n.fallback(items, "no_models")
		return items, nil
	}

	cluster, err := assignCluster(ctx, rctx, set, n.Interactions, n.WindowDays)
	if err != nil {
		return nil, err
	}
	cm := set.Cluster(cluster)
	if cm == nil {
		n.fallback(items, "cluster_missing")
		return items, nil
	}

	scorer := &model.CentroidScorer{Centroid: cm.Centroid}
	for _, it := range items {
		if it == nil {
			continue
		}
		score := scorer.PredictVector(feature.Flatten(it.Features))
		it.PutSubScore(core.SubScoreCluster, score)
		it.PutLabel("cluster_id", utils.Label{Value: strconv.Itoa(cluster), Source: "rank"})
	}
	return items, nil
}

// fallback 把 cluster 子分数置为规则分，并记录退化原因供观测。
func (n *ClusterNode) fallback(items []*core.Item, reason string) {
	m := n.Rule
	if m == nil {
		m = model.NewRuleModel(0, 0)
	}
	for _, it := range items {
		if it == nil {
			continue
		}
		score, _ := m.Predict(it.Features)
		it.PutSubScore(core.SubScoreCluster, score)
		it.PutLabel("cluster_fallback", utils.Label{Value: reason, Source: "rank"})
	}
}
