package feature

import (
	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/model"
)

// Order 是特征向量展平时的固定 key 顺序。
// Learn-to-Rank 的树桩按特征下标分裂，训练与推理必须使用同一顺序。
var Order = []string{
	model.FeatRating,
	model.FeatDistance,
	model.FeatPriceFit,
	model.FeatPopularity,
	model.FeatRecency,
	model.FeatCategory,
	FeatInteraction,
	FeatCTR,
	FeatCVR,
	model.FeatActive,
	model.FeatVerified,
	FeatDiscount,
}

// 除 model 包定义的规则打分维度外，展平向量还包含以下行为/折扣特征。
const (
	FeatInteraction = "interaction"
	FeatCTR         = "ctr"
	FeatCVR         = "cvr"
	FeatDiscount    = "discount"
)

// Flatten 按固定顺序把特征 map 展平为数值数组，缺失的 key 取 0。
func Flatten(features map[string]float64) []float64 {
	vec := make([]float64, len(Order))
	for i, key := range Order {
		vec[i] = features[key]
	}
	return vec
}

// BehaviorVector 把一个用户的行为事件聚合为行为嵌入向量，用于聚类分配与训练。
// 维度：事件数、平均行为权重、去重行为类型数、去重类目数 —— 各自归一化到 [0,1]。
// 归一化常数：事件数 /100、平均权重 /5、行为类型 /5、类目数 /10。
func BehaviorVector(events []*core.InteractionEvent) []float64 {
	if len(events) == 0 {
		return []float64{0, 0, 0, 0}
	}

	var weightSum float64
	actions := make(map[core.ActionType]struct{}, 6)
	categories := make(map[string]struct{}, 16)
	for _, ev := range events {
		weightSum += core.ActionWeight(ev.Action)
		actions[ev.Action] = struct{}{}
		if ev.Category != "" {
			categories[ev.Category] = struct{}{}
		}
	}

	n := float64(len(events))
	return []float64{
		model.Clamp01(n / 100),
		model.Clamp01(weightSum / n / 5),
		model.Clamp01(float64(len(actions)) / 5),
		model.Clamp01(float64(len(categories)) / 10),
	}
}
