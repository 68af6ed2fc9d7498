package rerank

import (
	"context"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/pipeline"
)

// Diversity 是一个简单的多样性重排节点：按类目去重（保留每个类目首个出现的候选）。
// 类目来源优先级：
//   - meta 中挂载的店铺/优惠实体的 Category 字段
//   - label["category"].Value
type Diversity struct {
	LabelKey string // 默认 "category"
}

func (n *Diversity) Name() string        { return "rerank.diversity" }
func (n *Diversity) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RankContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	key := n.LabelKey
	if key == "" {
		key = "category"
	}

	seen := make(map[string]bool, 32)
	out := make([]*core.Item, 0, len(items))

	for _, it := range items {
		if it == nil {
			continue
		}

		cate := ""
		if offer := it.Offer(); offer != nil {
			cate = offer.Category
		} else if shop := it.Shop(); shop != nil {
			cate = shop.Category
		}
		if cate == "" && it.Labels != nil {
			if lbl, ok := it.Labels[key]; ok {
				cate = lbl.Value
			}
		}

		if cate == "" {
			out = append(out, it)
			continue
		}
		if seen[cate] {
			continue
		}
		seen[cate] = true
		out = append(out, it)
	}

	return out, nil
}
