package recall

import (
	"context"
	"sort"
	"time"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/pkg/geo"
	"github.com/rushteam/shoprank/pkg/utils"
)

// LocationRecall 是 LBS 召回源：按与用户位置的距离衰减为附近实体打分。
//   - 店铺：score = 0.6 * 距离衰减 + 0.4 * 评分/5
//   - 优惠：score = 0.6 * 距离衰减 + 0.4 * 折扣力度
//
// 用户位置缺失时返回空。
type LocationRecall struct {
	Store core.CandidateStore

	// TopK 返回的实体数，零值回落到 20
	TopK int

	// MaxDistanceKm 距离衰减归零上限，零值回落到 10
	MaxDistanceKm float64

	// IncludeOffers 是否一并召回附近的有效优惠
	IncludeOffers bool
}

func (r *LocationRecall) Name() string { return "recall.location" }

func (r *LocationRecall) Recall(
	ctx context.Context,
	rctx *core.RankContext,
) ([]*core.Item, error) {
	if r.Store == nil || rctx == nil || rctx.Location == nil {
		return nil, nil
	}

	maxDist := r.MaxDistanceKm
	if maxDist <= 0 {
		maxDist = 10
	}

	shops, err := r.Store.QueryShops(ctx, core.CandidateQuery{
		OnlyActive:    true,
		Near:          rctx.Location,
		MaxDistanceKm: maxDist,
	})
	if err != nil {
		return nil, err
	}

	shopByID := make(map[string]*core.Shop, len(shops))
	out := make([]*core.Item, 0, len(shops))
	for _, s := range shops {
		if s == nil {
			continue
		}
		shopByID[s.ID] = s
		decay := geo.DecayScore(geo.HaversineKm(*rctx.Location, s.Location), maxDist)
		if decay <= 0 {
			continue
		}
		it := core.NewItem(s.Ref())
		it.Score = 0.6*decay + 0.4*(s.Rating/5)
		it.Meta["shop"] = s
		it.PutLabel("recall_source", utils.Label{Value: "location", Source: "recall"})
		out = append(out, it)
	}

	if r.IncludeOffers {
		offerItems, err := r.recallOffers(ctx, rctx, shopByID, maxDist)
		if err != nil {
			return nil, err
		}
		out = append(out, offerItems...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	topK := r.TopK
	if topK <= 0 {
		topK = 20
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (r *LocationRecall) recallOffers(
	ctx context.Context,
	rctx *core.RankContext,
	shopByID map[string]*core.Shop,
	maxDist float64,
) ([]*core.Item, error) {
	offers, err := r.Store.QueryOffers(ctx, core.CandidateQuery{OnlyActive: true})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]*core.Item, 0, len(offers))
	for _, o := range offers {
		if o == nil || !o.ValidAt(now) {
			continue
		}
		shop, ok := shopByID[o.ShopID]
		if !ok {
			s, err := r.Store.GetShop(ctx, o.ShopID)
			if err != nil || s == nil || !s.Active {
				continue
			}
			shop = s
		}
		decay := geo.DecayScore(geo.HaversineKm(*rctx.Location, shop.Location), maxDist)
		if decay <= 0 {
			continue
		}

		discount := o.DiscountValue / 100
		if discount > 1 {
			discount = 1
		}
		it := core.NewItem(o.Ref())
		it.Score = 0.6*decay + 0.4*discount
		it.Meta["offer"] = o
		it.Meta["shop"] = shop
		it.PutLabel("recall_source", utils.Label{Value: "location", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
