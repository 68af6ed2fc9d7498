package rank

import (
	"context"
	"fmt"
	"sort"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/feature"
	"github.com/rushteam/shoprank/model"
	"github.com/rushteam/shoprank/pipeline"
	"github.com/rushteam/shoprank/pkg/utils"
)

// CombineNode 是融合节点：按候选的数据质量分选择权重三元组，
// 把 rule/cluster/learned 三路子分数加权求和为最终分，并按最终分降序排序。
//
// 选档逻辑：信号稀疏或噪声大时更信任确定性的规则分，
// 行为数据充分时更信任聚类与学习信号。阈值与权重见 core.RankConfig。
type CombineNode struct {
	Config *core.RankConfig
}

func (n *CombineNode) Name() string        { return "rank.combine" }
func (n *CombineNode) Kind() pipeline.Kind { return pipeline.KindCombine }

func (n *CombineNode) Process(
	_ context.Context,
	_ *core.RankContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cfg := n.Config
	if cfg == nil {
		cfg = &core.DefaultConfig().Rank
	}

	for _, it := range items {
		if it == nil {
			continue
		}
		quality := feature.Quality(it.Features)
		wRule, wCluster, wLearned := cfg.BlendWeights(quality)

		final := wRule*it.SubScore(core.SubScoreRule) +
			wCluster*it.SubScore(core.SubScoreCluster) +
			wLearned*it.SubScore(core.SubScoreLearned)
		it.Score = model.Clamp01(final)
		it.PutLabel("quality", utils.Label{
			Value:  fmt.Sprintf("%.2f", quality),
			Source: "combine",
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		return items[i].Score > items[j].Score
	})
	return items, nil
}
