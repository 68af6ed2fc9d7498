package model

// 规则打分的特征维度名称，与 feature 包产出的特征 key 对应。
const (
	FeatRating     = "rating"
	FeatDistance   = "distance_km"
	FeatPriceFit   = "price_fit"
	FeatPopularity = "popularity"
	FeatRecency    = "recency_days"
	FeatCategory   = "category_affinity"
	FeatActive     = "active"
	FeatVerified   = "verified"
)

// RuleModel 是确定性的规则加权打分器：对特征向量做固定权重加权求和。
// 始终可用，既是融合的一路信号，也是聚类/学习模型缺失时的兜底。
//
// 权重分配：评分 25%、距离 20%、价格匹配 15%、热度 15%、新鲜度 10%、
// 类目偏好 10%、状态 5%。某一维度缺失时按比例重新归一化其余权重。
type RuleModel struct {
	// MaxDistanceKm 距离子分归零上限：sub = max(0, 1 - d/MaxDistanceKm)
	MaxDistanceKm float64

	// MaxAgeDays 新鲜度子分归零上限：sub = max(0, 1 - age/MaxAgeDays)
	MaxAgeDays float64
}

// NewRuleModel 创建规则打分器，零值参数回落到 50km / 365 天。
func NewRuleModel(maxDistanceKm, maxAgeDays float64) *RuleModel {
	if maxDistanceKm <= 0 {
		maxDistanceKm = 50
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 365
	}
	return &RuleModel{MaxDistanceKm: maxDistanceKm, MaxAgeDays: maxAgeDays}
}

func (m *RuleModel) Name() string { return "rule" }

// Predict 计算规则分，结果截断到 [0,1]。永不返回错误。
func (m *RuleModel) Predict(features map[string]float64) (float64, error) {
	type dim struct {
		key    string
		weight float64
		score  func(v float64) float64
	}

	maxDist := m.MaxDistanceKm
	if maxDist <= 0 {
		maxDist = 50
	}
	maxAge := m.MaxAgeDays
	if maxAge <= 0 {
		maxAge = 365
	}

	dims := []dim{
		{FeatRating, 0.25, func(v float64) float64 { return Clamp01(v / 5) }},
		{FeatDistance, 0.20, func(v float64) float64 {
			s := 1 - v/maxDist
			if s < 0 {
				return 0
			}
			return s
		}},
		{FeatPriceFit, 0.15, Clamp01},
		{FeatPopularity, 0.15, Clamp01},
		{FeatRecency, 0.10, func(v float64) float64 {
			s := 1 - v/maxAge
			if s < 0 {
				return 0
			}
			return s
		}},
		{FeatCategory, 0.10, Clamp01},
	}

	var sum, weightSum float64
	for _, d := range dims {
		v, ok := features[d.key]
		if !ok {
			continue // 缺失维度不参与，权重随后归一化
		}
		sum += d.weight * d.score(v)
		weightSum += d.weight
	}

	// 状态维度：激活/认证各占一半，两个 flag 都缺失时整个维度视为缺失
	active, hasActive := features[FeatActive]
	verified, hasVerified := features[FeatVerified]
	if hasActive || hasVerified {
		status := 0.5*Clamp01(active) + 0.5*Clamp01(verified)
		sum += 0.05 * status
		weightSum += 0.05
	}

	if weightSum == 0 {
		return 0, nil
	}
	return Clamp01(sum / weightSum), nil
}
