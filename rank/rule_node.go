package rank

import (
	"context"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/model"
	"github.com/rushteam/shoprank/pipeline"
	"github.com/rushteam/shoprank/pkg/utils"
)

// RuleNode 是规则打分节点：对每个候选计算确定性规则分并写入 rule 子分数。
// 该节点永不失败，是三路打分中始终可用的一路。
type RuleNode struct {
	Model *model.RuleModel
}

func (n *RuleNode) Name() string        { return "rank.rule" }
func (n *RuleNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *RuleNode) Process(
	_ context.Context,
	_ *core.RankContext,
	items []*core.Item,
) ([]*core.Item, error) {
	m := n.Model
	if m == nil {
		m = model.NewRuleModel(0, 0)
	}

	for _, it := range items {
		if it == nil {
			continue
		}
		score, _ := m.Predict(it.Features)
		it.PutSubScore(core.SubScoreRule, score)
		// 规则分同时写入 Score，规则单路 Pipeline（评估对照组）直接可排序
		it.Score = score
		it.PutLabel("rank_model", utils.Label{Value: m.Name(), Source: "rank"})
	}
	return items, nil
}
