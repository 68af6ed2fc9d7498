package feature

import (
	"context"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/pipeline"
)

// Node 把特征抽取挂进 Pipeline：在打分节点之前为全部候选补齐特征向量。
type Node struct {
	Extractor *Extractor
}

var _ pipeline.Node = (*Node)(nil)

func (n *Node) Name() string        { return "feature.extract" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindFeature }

func (n *Node) Process(ctx context.Context, rctx *core.RankContext, items []*core.Item) ([]*core.Item, error) {
	if err := n.Extractor.Extract(ctx, rctx, items); err != nil {
		return nil, err
	}
	return items, nil
}
