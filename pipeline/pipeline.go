package pipeline

import (
	"context"

	"github.com/rushteam/shoprank/core"
)

// Pipeline 是 shoprank 的核心抽象：把排序/推荐逻辑拆成可组合的 Node 链。
// 一次请求沿链路从候选生成流到重排截断，任一 Node 返回错误则整体失败。
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RankContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
