package feature

import (
	"context"
	"time"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/model"
	"github.com/rushteam/shoprank/pkg/geo"
)

// Extractor 把候选实体 + 请求用户上下文转成扁平数值特征向量。
//
// 特征来源：
//   - 候选自身的质量/状态字段（评分、评论数、激活/认证标志、折扣）
//   - 用户位置与候选位置的大圆距离（双方都存在时计算，否则取 0）
//   - 近 30 天行为事件计数归一化的热度分
//   - (用户, 候选) 专属的加权交互分
//   - 用户画像中的类目偏好（无画像时默认 0.5）
//   - 点击率/转化率（分母为 0 时取 0）
//
// 只读、无副作用；输入缺失时退化为中性默认值而不是报错。
// 上游行为存储不可用时返回错误，由调用方决定是否整体失败。
type Extractor struct {
	Interactions core.InteractionStore

	// PopularityWindowDays 热度统计窗口（天），零值回落到 30。
	PopularityWindowDays int

	// PopularitySaturation 热度饱和常数，窗口内事件数达到该值时热度分为 1.0，零值回落到 100。
	PopularitySaturation float64

	// Monitor 特征监控（可选）：记录用量/缺失，用于观测特征健康度。
	Monitor *Monitor
}

// Extract 为候选列表逐一构建特征向量，写入 item.Features。
func (e *Extractor) Extract(ctx context.Context, rctx *core.RankContext, items []*core.Item) error {
	now := time.Now()
	for _, it := range items {
		if it == nil {
			continue
		}
		features, err := e.ExtractOne(ctx, rctx, it, now)
		if err != nil {
			return err
		}
		it.Features = features
	}
	return nil
}

// ExtractOne 构建单个候选的特征向量。训练阶段重建历史交互实体的特征时也走此入口。
func (e *Extractor) ExtractOne(ctx context.Context, rctx *core.RankContext, it *core.Item, now time.Time) (map[string]float64, error) {
	features := make(map[string]float64, len(Order))

	shop := it.Shop()
	offer := it.Offer()
	category := ""

	switch {
	case offer != nil:
		category = offer.Category
		features[model.FeatActive] = boolFeature(offer.Active)
		features[model.FeatRecency] = ageDays(offer.CreatedAt, now)
		features[FeatDiscount] = discountScore(offer)
		// 优惠继承所属店铺的评分与认证状态
		if shop != nil {
			features[model.FeatRating] = shop.Rating
			features[model.FeatVerified] = boolFeature(shop.Verified)
		}
	case shop != nil:
		category = shop.Category
		features[model.FeatRating] = shop.Rating
		features[model.FeatActive] = boolFeature(shop.Active)
		features[model.FeatVerified] = boolFeature(shop.Verified)
		features[model.FeatRecency] = ageDays(shop.CreatedAt, now)
	}

	// 距离：双方位置都存在时计算大圆距离，否则 0
	features[model.FeatDistance] = 0
	if loc := candidateLocation(shop); rctx.Location != nil && loc != nil {
		features[model.FeatDistance] = geo.HaversineKm(*rctx.Location, *loc)
	} else if e.Monitor != nil {
		e.Monitor.RecordMissing(model.FeatDistance)
	}

	// 价格匹配：店铺均价落在用户偏好区间内为 1，无画像时中性 0.5
	features[model.FeatPriceFit] = priceFit(shop, rctx.Prefs)

	// 类目偏好：画像缺失/未收录时 0.5
	features[model.FeatCategory] = rctx.CategoryWeight(category)

	// 行为类特征：上游行为存储不可用时整体失败
	if e.Interactions != nil {
		if err := e.extractBehavior(ctx, rctx, it, features, now); err != nil {
			return nil, err
		}
	} else {
		features[model.FeatPopularity] = 0
		features[FeatInteraction] = 0
		features[FeatCTR] = 0
		features[FeatCVR] = 0
	}

	if e.Monitor != nil {
		for k, v := range features {
			e.Monitor.RecordUsage(k, v)
		}
	}
	return features, nil
}

func (e *Extractor) extractBehavior(ctx context.Context, rctx *core.RankContext, it *core.Item, features map[string]float64, now time.Time) error {
	windowDays := e.PopularityWindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	saturation := e.PopularitySaturation
	if saturation <= 0 {
		saturation = 100
	}
	since := now.AddDate(0, 0, -windowDays)
	target := it.Entity

	// 热度：窗口内指向该候选的事件数，按饱和常数归一化
	count, err := e.Interactions.CountByTarget(ctx, target, since)
	if err != nil {
		return err
	}
	features[model.FeatPopularity] = model.Clamp01(float64(count) / saturation)

	// 目标实体的全量事件：一次查询同时得出交互分与 CTR/CVR
	events, err := e.Interactions.Query(ctx, core.EventQuery{Target: &target, Since: since})
	if err != nil {
		return err
	}

	var views, clicks, purchases int64
	var userWeight float64
	for _, ev := range events {
		switch ev.Action {
		case core.ActionView, core.ActionViewShop:
			views++
		case core.ActionClick:
			clicks++
		case core.ActionPurchase:
			purchases++
		}
		if rctx.UserID != "" && ev.UserID == rctx.UserID {
			userWeight += core.ActionWeight(ev.Action)
		}
	}

	// (用户, 候选) 交互分：行为权重求和后 /20 归一化并封顶 1
	features[FeatInteraction] = model.Clamp01(userWeight / 20)

	// 点击率 / 转化率：分母为 0 时取 0
	features[FeatCTR] = ratio(clicks, views)
	features[FeatCVR] = ratio(purchases, clicks)
	return nil
}

func candidateLocation(shop *core.Shop) *geo.Point {
	if shop == nil {
		return nil
	}
	loc := shop.Location
	if loc.Lat == 0 && loc.Lng == 0 {
		// 零值坐标视为未设置位置
		return nil
	}
	return &loc
}

func priceFit(shop *core.Shop, prefs *core.UserPreferences) float64 {
	if prefs == nil || shop == nil || prefs.PriceMax <= 0 {
		return 0.5
	}
	if shop.AvgPrice >= prefs.PriceMin && shop.AvgPrice <= prefs.PriceMax {
		return 1
	}
	// 区间外按偏离程度线性衰减
	span := prefs.PriceMax - prefs.PriceMin
	if span <= 0 {
		span = prefs.PriceMax
	}
	var offset float64
	if shop.AvgPrice < prefs.PriceMin {
		offset = prefs.PriceMin - shop.AvgPrice
	} else {
		offset = shop.AvgPrice - prefs.PriceMax
	}
	return model.Clamp01(1 - offset/span)
}

func discountScore(offer *core.Offer) float64 {
	if offer == nil {
		return 0
	}
	switch offer.DiscountType {
	case core.DiscountPercent:
		return model.Clamp01(offer.DiscountValue / 100)
	case core.DiscountAmount:
		// 固定减免按 100 元封顶归一化
		return model.Clamp01(offer.DiscountValue / 100)
	default:
		return 0
	}
}

func ageDays(createdAt time.Time, now time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	age := now.Sub(createdAt).Hours() / 24
	if age < 0 {
		return 0
	}
	return age
}

func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return model.Clamp01(float64(num) / float64(den))
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
