package recall

import (
	"context"
	"time"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/pipeline"
	"github.com/rushteam/shoprank/pkg/conv"
	"github.com/rushteam/shoprank/pkg/geo"
	"github.com/rushteam/shoprank/pkg/utils"
)

// CandidateNode 是排序链路的候选生成器：按状态/认证/类目过滤从存储
// 拉取符合条件的店铺或优惠，可选按用户位置限制最大距离，
// 候选池封顶（默认 100），保证下游打分成本可预期。
//
// 优惠候选额外要求：当前时间落在有效期窗口内，且所属店铺通过同样的
// 激活/认证检查。
// CandidateNode 同时实现了 Source 和 Node 接口，可直接在 Pipeline 中使用。
type CandidateNode struct {
	Store core.CandidateStore

	// PoolSize 候选池上限，零值回落到 100。
	PoolSize int

	// RequireVerified 是否要求店铺已认证（默认要求，可按场景放开）。
	RequireVerified bool
}

func (n *CandidateNode) Name() string        { return "recall.candidates" }
func (n *CandidateNode) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall。
func (n *CandidateNode) Process(
	ctx context.Context,
	rctx *core.RankContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return n.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
func (n *CandidateNode) Recall(
	ctx context.Context,
	rctx *core.RankContext,
) ([]*core.Item, error) {
	if n.Store == nil || rctx == nil {
		return nil, nil
	}

	poolSize := n.PoolSize
	if poolSize <= 0 {
		poolSize = 100
	}
	category := conv.ConfigGet(rctx.Params, "category", "")
	maxDist := conv.ConfigGetFloat(rctx.Params, "max_distance_km", 0)

	q := core.CandidateQuery{
		Category:     category,
		OnlyActive:   true,
		OnlyVerified: n.RequireVerified,
		Limit:        poolSize,
	}
	if rctx.Location != nil && maxDist > 0 {
		q.Near = rctx.Location
		q.MaxDistanceKm = maxDist
	}

	switch rctx.EntityType {
	case core.EntityOffer:
		return n.recallOffers(ctx, rctx, q, poolSize, maxDist)
	default:
		return n.recallShops(ctx, rctx, q, poolSize, maxDist)
	}
}

func (n *CandidateNode) recallShops(
	ctx context.Context,
	rctx *core.RankContext,
	q core.CandidateQuery,
	poolSize int,
	maxDist float64,
) ([]*core.Item, error) {
	shops, err := n.Store.QueryShops(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(shops))
	for _, s := range shops {
		if s == nil || !n.eligibleShop(s) {
			continue
		}
		if !withinDistance(rctx, s, maxDist) {
			continue
		}
		it := core.NewItem(s.Ref())
		it.Meta["shop"] = s
		it.PutLabel("recall_source", utils.Label{Value: n.Name(), Source: "recall"})
		out = append(out, it)
		if len(out) >= poolSize {
			break
		}
	}
	return out, nil
}

func (n *CandidateNode) recallOffers(
	ctx context.Context,
	rctx *core.RankContext,
	q core.CandidateQuery,
	poolSize int,
	maxDist float64,
) ([]*core.Item, error) {
	offers, err := n.Store.QueryOffers(ctx, q)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]*core.Item, 0, len(offers))
	for _, o := range offers {
		if o == nil || !o.ValidAt(now) {
			continue
		}
		// 所属店铺必须通过与店铺候选相同的激活/认证检查
		shop, err := n.Store.GetShop(ctx, o.ShopID)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if shop == nil || !n.eligibleShop(shop) {
			continue
		}
		if !withinDistance(rctx, shop, maxDist) {
			continue
		}

		it := core.NewItem(o.Ref())
		it.Meta["offer"] = o
		it.Meta["shop"] = shop
		it.PutLabel("recall_source", utils.Label{Value: n.Name(), Source: "recall"})
		out = append(out, it)
		if len(out) >= poolSize {
			break
		}
	}
	return out, nil
}

func (n *CandidateNode) eligibleShop(s *core.Shop) bool {
	if !s.Active {
		return false
	}
	if n.RequireVerified && !s.Verified {
		return false
	}
	return true
}

func withinDistance(rctx *core.RankContext, s *core.Shop, maxDist float64) bool {
	if maxDist <= 0 || rctx.Location == nil {
		return true
	}
	return geo.HaversineKm(*rctx.Location, s.Location) <= maxDist
}
