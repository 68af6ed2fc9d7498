package recall

import (
	"context"
	"sort"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/model"
	"github.com/rushteam/shoprank/pkg/utils"
)

// ContentRecall 是基于内容的召回源：按用户画像的类目权重与价格区间
// 为店铺打匹配分。无画像（冷启动）时返回空，由混合层兜底。
//
// 匹配分 = 0.7 * 类目偏好权重 + 0.3 * 价格匹配度。
type ContentRecall struct {
	Store core.CandidateStore

	// TopK 返回的实体数，零值回落到 20
	TopK int

	// RequireVerified 是否要求店铺已认证
	RequireVerified bool
}

func (r *ContentRecall) Name() string { return "recall.content" }

func (r *ContentRecall) Recall(
	ctx context.Context,
	rctx *core.RankContext,
) ([]*core.Item, error) {
	if r.Store == nil || rctx == nil {
		return nil, nil
	}
	prefs := rctx.Prefs
	if prefs == nil || len(prefs.CategoryWeights) == 0 {
		return nil, nil
	}

	shops, err := r.Store.QueryShops(ctx, core.CandidateQuery{
		OnlyActive:   true,
		OnlyVerified: r.RequireVerified,
	})
	if err != nil {
		return nil, err
	}

	type scored struct {
		shop  *core.Shop
		score float64
	}
	list := make([]scored, 0, len(shops))
	for _, s := range shops {
		if s == nil {
			continue
		}
		weight, ok := prefs.CategoryWeights[s.Category]
		if !ok || weight <= 0 {
			continue
		}
		score := 0.7*weight + 0.3*priceAffinity(s.AvgPrice, prefs)
		list = append(list, scored{shop: s, score: score})
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].score == list[j].score {
			return list[i].shop.ID < list[j].shop.ID
		}
		return list[i].score > list[j].score
	})
	topK := r.TopK
	if topK <= 0 {
		topK = 20
	}
	if len(list) > topK {
		list = list[:topK]
	}

	out := make([]*core.Item, 0, len(list))
	for _, s := range list {
		it := core.NewItem(s.shop.Ref())
		it.Score = s.score
		it.Meta["shop"] = s.shop
		it.PutLabel("recall_source", utils.Label{Value: "content", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

// priceAffinity 计算价格匹配度：落在偏好区间内为 1，区间外线性衰减。
func priceAffinity(price float64, prefs *core.UserPreferences) float64 {
	if prefs.PriceMax <= 0 {
		return 0.5
	}
	if price >= prefs.PriceMin && price <= prefs.PriceMax {
		return 1
	}
	span := prefs.PriceMax - prefs.PriceMin
	if span <= 0 {
		span = prefs.PriceMax
	}
	var offset float64
	if price < prefs.PriceMin {
		offset = prefs.PriceMin - price
	} else {
		offset = price - prefs.PriceMax
	}
	return model.Clamp01(1 - offset/span)
}
