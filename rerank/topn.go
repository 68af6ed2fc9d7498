package rerank

import (
	"context"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/pipeline"
)

// TopNNode 是 Top-N 截断节点，在融合排序之后截取前 N 个候选。
//
// 使用场景：
//   - 排序后只返回 Top 10/20/50 个结果
//   - 控制返回数量，配合多样性重排使用
type TopNNode struct {
	// N 要保留的候选数量（Top N）
	// 如果 N <= 0 或 N > len(items)，则返回所有候选（不截断）
	N int
}

func (n *TopNNode) Name() string        { return "rerank.topn" }
func (n *TopNNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RankContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 {
		return items, nil
	}
	if len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
