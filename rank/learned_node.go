package rank

import (
	"context"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/feature"
	"github.com/rushteam/shoprank/model"
	"github.com/rushteam/shoprank/pipeline"
	"github.com/rushteam/shoprank/pkg/utils"
)

// LearnedNode 是 Learn-to-Rank 打分节点：取用户所属簇的树桩集成，
// 对展平特征向量做集成预测并写入 learned 子分数。
// 该簇无训练模型（样本不足或冷系统）时静默退化为规则分。
type LearnedNode struct {
	Provider     ModelProvider
	Interactions core.InteractionStore
	Rule         *model.RuleModel // 退化路径
	WindowDays   int
}

func (n *LearnedNode) Name() string        { return "rank.learned" }
func (n *LearnedNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *LearnedNode) Process(
	ctx context.Context,
	rctx *core.RankContext,
	items []*core.Item,
) ([]*core.Item, error) {
	var set *model.Set
	if n.Provider != nil {
		set = n.Provider.Models()
	}

	if set.Empty() {
		n.fallback(items, "no_models")
		return items, nil
	}

	cluster, err := assignCluster(ctx, rctx, set, n.Interactions, n.WindowDays)
	if err != nil {
		return nil, err
	}
	ensemble := set.Ranker(cluster)
	if ensemble == nil {
		n.fallback(items, "ranker_missing")
		return items, nil
	}

	for _, it := range items {
		if it == nil {
			continue
		}
		score := ensemble.Predict(feature.Flatten(it.Features))
		it.PutSubScore(core.SubScoreLearned, score)
		it.PutLabel("rank_model", utils.Label{Value: "ltr", Source: "rank"})
	}
	return items, nil
}

func (n *LearnedNode) fallback(items []*core.Item, reason string) {
	m := n.Rule
	if m == nil {
		m = model.NewRuleModel(0, 0)
	}
	for _, it := range items {
		if it == nil {
			continue
		}
		score, _ := m.Predict(it.Features)
		it.PutSubScore(core.SubScoreLearned, score)
		it.PutLabel("learned_fallback", utils.Label{Value: reason, Source: "rank"})
	}
}
