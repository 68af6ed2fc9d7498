package model

import "sort"

// Stump 是单分裂回归树桩：在一个特征维度上按阈值二分，两侧各有一个叶子值。
// 本实现是刻意保持最小化的教学级学习器：分裂点按加权 Gini 不纯度挑选，
// 但两侧叶子值都取本轮训练标签（残差）的全集均值——不做按叶子细化。
// 这一行为是排序输出稳定性的一部分，升级为完整决策树会非平凡地改变排序结果。
type Stump struct {
	FeatureIndex int     `json:"feature_index"`
	Threshold    float64 `json:"threshold"`
	LeftValue    float64 `json:"left_value"`  // feature <= threshold
	RightValue   float64 `json:"right_value"` // feature > threshold
}

// Predict 返回样本落入分支的叶子值。
func (s *Stump) Predict(vec []float64) float64 {
	if s.FeatureIndex < 0 || s.FeatureIndex >= len(vec) {
		return s.LeftValue
	}
	if vec[s.FeatureIndex] <= s.Threshold {
		return s.LeftValue
	}
	return s.RightValue
}

// StumpEnsemble 是一个簇的 Learn-to-Rank 模型：树桩序列 + 学习率。
// 每轮训练整体替换，与 ClusterModel 同周期保持一致。
type StumpEnsemble struct {
	Trees        []Stump `json:"trees"`
	LearningRate float64 `json:"learning_rate"`
}

// Predict 对展平特征向量做集成预测：sum(lr * tree_i(x))，截断到 [0,1]。
func (e *StumpEnsemble) Predict(vec []float64) float64 {
	if e == nil || len(e.Trees) == 0 {
		return 0
	}
	lr := e.LearningRate
	if lr <= 0 {
		lr = 0.1
	}
	var sum float64
	for i := range e.Trees {
		sum += lr * e.Trees[i].Predict(vec)
	}
	return Clamp01(sum)
}

// FitStump 在全部特征维度与相邻排序值中点中，挑选加权 Gini 不纯度最小的
// (feature, threshold) 分裂点。labels 的离散取值被视作类别参与 Gini 计算。
// 两侧叶子值均为 labels 的均值（最小变体的简化）。
func FitStump(examples [][]float64, labels []float64) *Stump {
	if len(examples) == 0 || len(examples) != len(labels) {
		return nil
	}

	mean := meanOf(labels)
	best := &Stump{FeatureIndex: 0, Threshold: 0, LeftValue: mean, RightValue: mean}
	bestImpurity := giniImpurity(labels)
	dims := len(examples[0])

	for f := 0; f < dims; f++ {
		// 该维度的去重排序值
		values := make([]float64, 0, len(examples))
		for _, x := range examples {
			if f < len(x) {
				values = append(values, x[f])
			}
		}
		sort.Float64s(values)

		for i := 1; i < len(values); i++ {
			if values[i] == values[i-1] {
				continue
			}
			threshold := (values[i] + values[i-1]) / 2

			left := make([]float64, 0, len(labels))
			right := make([]float64, 0, len(labels))
			for j, x := range examples {
				v := 0.0
				if f < len(x) {
					v = x[f]
				}
				if v <= threshold {
					left = append(left, labels[j])
				} else {
					right = append(right, labels[j])
				}
			}
			if len(left) == 0 || len(right) == 0 {
				continue
			}

			total := float64(len(labels))
			impurity := float64(len(left))/total*giniImpurity(left) +
				float64(len(right))/total*giniImpurity(right)
			if impurity < bestImpurity {
				bestImpurity = impurity
				best = &Stump{
					FeatureIndex: f,
					Threshold:    threshold,
					LeftValue:    mean,
					RightValue:   mean,
				}
			}
		}
	}
	return best
}

// FitEnsemble 用残差逐步拟合的方式训练树桩集成（最小化的梯度提升）：
// 以原始标签为初始残差，每拟合一棵树桩后从残差中减去 lr * 预测值，再拟合下一棵。
func FitEnsemble(examples [][]float64, labels []float64, trees int, learningRate float64) *StumpEnsemble {
	if len(examples) == 0 || len(examples) != len(labels) {
		return nil
	}
	if trees <= 0 {
		trees = 10
	}
	if learningRate <= 0 {
		learningRate = 0.1
	}

	residuals := make([]float64, len(labels))
	copy(residuals, labels)

	ensemble := &StumpEnsemble{
		Trees:        make([]Stump, 0, trees),
		LearningRate: learningRate,
	}
	for t := 0; t < trees; t++ {
		stump := FitStump(examples, residuals)
		if stump == nil {
			break
		}
		ensemble.Trees = append(ensemble.Trees, *stump)

		for i, x := range examples {
			residuals[i] -= learningRate * stump.Predict(x)
		}
	}
	return ensemble
}

// giniImpurity 把标签的每个不同取值视为一个类别，计算 Gini 不纯度 1 - Σ p_i²。
func giniImpurity(labels []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[float64]int, 8)
	for _, l := range labels {
		counts[l]++
	}
	total := float64(len(labels))
	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / total
		impurity -= p * p
	}
	return impurity
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
