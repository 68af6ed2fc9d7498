package model

// RankModel 是打分器的最小抽象：输入特征，输出一个可比较的分数。
// 具体实现可以是规则加权（RuleModel）、聚类相似度（CentroidScorer）
// 或梯度提升树桩集成（StumpEnsemble）。
type RankModel interface {
	Name() string
	Predict(features map[string]float64) (float64, error)
}

// Clamp01 将分数截断到 [0,1]。
func Clamp01(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
