package core

import "github.com/rushteam/shoprank/pkg/utils"

// 子分数名称：三路打分器各自写入 Item.SubScores，Combiner 读取后融合。
const (
	SubScoreRule    = "rule"
	SubScoreCluster = "cluster"
	SubScoreLearned = "learned"
)

// Item 是排序/推荐链路中的统一承载结构：实体引用、特征、分数、子分数、标签。
// Labels 用于解释与来源追踪；Score 用于最终排序决策。
// 所有分数都是请求内现算的，不跨请求缓存。
type Item struct {
	Entity    EntityRef
	Score     float64
	SubScores map[string]float64
	Features  map[string]float64
	Meta      map[string]any
	Labels    map[string]utils.Label
}

func NewItem(ref EntityRef) *Item {
	return &Item{
		Entity:    ref,
		Score:     0,
		SubScores: make(map[string]float64),
		Features:  make(map[string]float64),
		Meta:      make(map[string]any),
		Labels:    make(map[string]utils.Label),
	}
}

// PutSubScore 写入一路子分数。
func (it *Item) PutSubScore(name string, score float64) {
	if it.SubScores == nil {
		it.SubScores = make(map[string]float64)
	}
	it.SubScores[name] = score
}

// SubScore 读取一路子分数，缺失时返回 0。
func (it *Item) SubScore(name string) float64 {
	if it.SubScores == nil {
		return 0
	}
	return it.SubScores[name]
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Shop 返回 Meta 中挂载的店铺实体（候选生成阶段写入），不存在时返回 nil。
func (it *Item) Shop() *Shop {
	if it.Meta == nil {
		return nil
	}
	s, _ := it.Meta["shop"].(*Shop)
	return s
}

// Offer 返回 Meta 中挂载的优惠实体，不存在时返回 nil。
func (it *Item) Offer() *Offer {
	if it.Meta == nil {
		return nil
	}
	o, _ := it.Meta["offer"].(*Offer)
	return o
}
