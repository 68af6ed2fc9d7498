package feature

import "github.com/rushteam/shoprank/model"

// featureRange 定义每个特征的合法取值范围，用于数据质量评估。
type featureRange struct {
	min, max float64
}

// qualityRanges 覆盖展平向量的全部维度。不在范围内或缺失的值视为低质量信号。
var qualityRanges = map[string]featureRange{
	model.FeatRating:     {0, 5},
	model.FeatDistance:   {0, 100},
	model.FeatPriceFit:   {0, 1},
	model.FeatPopularity: {0, 1},
	model.FeatRecency:    {0, 3650},
	model.FeatCategory:   {0, 1},
	FeatInteraction:      {0, 1},
	FeatCTR:              {0, 1},
	FeatCVR:              {0, 1},
	model.FeatActive:     {0, 1},
	model.FeatVerified:   {0, 1},
	FeatDiscount:         {0, 1},
}

// Quality 计算特征向量的数据质量分：取值存在且在范围内的维度占比。
// 质量分驱动 Combiner 的融合权重选档——信号稀疏时更信任规则分。
func Quality(features map[string]float64) float64 {
	if len(qualityRanges) == 0 {
		return 0
	}
	valid := 0
	for key, r := range qualityRanges {
		v, ok := features[key]
		if !ok {
			continue
		}
		if v >= r.min && v <= r.max {
			valid++
		}
	}
	return float64(valid) / float64(len(qualityRanges))
}
