package core

import (
	"github.com/rushteam/shoprank/pkg/geo"
	"github.com/rushteam/shoprank/pkg/utils"
)

// RankContext 承载一次排序/推荐请求的用户与场景信息，贯穿整个 Pipeline 透传。
// 请求之间互不共享，链路上的 Node 只读 UserID/Location/Prefs，Labels 可累积。
type RankContext struct {
	UserID string
	Scene  string // 业务场景，例如 "feed" / "search" / "nearby"

	// EntityType 本次请求排序的实体类型（shop / offer）。
	EntityType EntityType

	// Location 用户位置，可为空；为空时距离类特征退化为中性默认值。
	Location *geo.Point

	// Variant A/B 实验分桶（'A' 或 'B'），由 Engine 在入口处确定。
	Variant string

	// Prefs 用户偏好画像，可为空（冷启动）。
	Prefs *UserPreferences

	// Labels 用户级标签，可驱动 Pipeline 行为（例如新用户、价格敏感）。
	Labels map[string]utils.Label

	// Params 请求级上下文参数（category 过滤、max_distance_km、limit 等）。
	Params map[string]any
}

// PutLabel 写入用户级 Label。
func (rctx *RankContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RankContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// CategoryWeight 查询用户对某类目的偏好权重，无画像或未收录时返回 0.5（中性）。
func (rctx *RankContext) CategoryWeight(category string) float64 {
	if rctx.Prefs == nil || rctx.Prefs.CategoryWeights == nil {
		return 0.5
	}
	w, ok := rctx.Prefs.CategoryWeights[category]
	if !ok {
		return 0.5
	}
	return w
}
