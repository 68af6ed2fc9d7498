// Package shoprank 是一个店铺与优惠的排序推荐引擎（Shop Ranking Kit）。
//
// 设计要点：
// - Pipeline-first: 排序与推荐逻辑通过 Node 串联（Recall → Feature → Filter → Rank → Combine → ReRank）
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测 / 策略驱动
// - 三路打分: 规则分、聚类分、学习分独立计算，按特征质量自适应融合
// - 模型热替换: 后台训练产出完整模型集合后原子替换，打分侧永不读到半成品
package shoprank

import "github.com/rushteam/shoprank/pipeline"

// 轻量 facade：便于用户直接 import "shoprank" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall  = pipeline.KindRecall
	KindFeature = pipeline.KindFeature
	KindFilter  = pipeline.KindFilter
	KindRank    = pipeline.KindRank
	KindCombine = pipeline.KindCombine
	KindReRank  = pipeline.KindReRank
)
