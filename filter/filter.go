package filter

import (
	"context"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/pipeline"
	"github.com/rushteam/shoprank/pkg/utils"
)

// Filter 判断单个候选是否应被剔除。
type Filter interface {
	Name() string
	ShouldFilter(ctx context.Context, rctx *core.RankContext, item *core.Item) (bool, error)
}

// Node 是过滤节点，可以组合多个过滤器。
// 任何一个过滤器返回 true，该候选就会被剔除；过滤器自身出错时跳过该过滤器，
// 不中断请求（过滤是锦上添花，缺一个过滤器不应让排序失败）。
type Node struct {
	Filters []Filter
}

func (n *Node) Name() string        { return "filter.node" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *Node) Process(
	ctx context.Context,
	rctx *core.RankContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		dropped := false
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				continue
			}
			if ok {
				dropped = true
				item.PutLabel("filtered_by", utils.Label{Value: f.Name(), Source: "filter"})
				break
			}
		}
		if !dropped {
			out = append(out, item)
		}
	}
	return out, nil
}
