package pipeline

import (
	"context"

	"github.com/rushteam/shoprank/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindRecall  Kind = "recall"  // 候选生成阶段：产出候选池
	KindFeature Kind = "feature" // 特征阶段：为候选补齐特征向量
	KindFilter  Kind = "filter"  // 过滤阶段：剔除不符合约束的候选
	KindRank    Kind = "rank"    // 打分阶段：写入子分数或最终分
	KindCombine Kind = "combine" // 融合阶段：三路子分数 -> 最终分并排序
	KindReRank  Kind = "rerank"  // 重排阶段：截断/多样性等结果修饰
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用"输入 items -> 输出 items"的形态，方便候选生成、过滤、打分、截断等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RankContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
