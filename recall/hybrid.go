package recall

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/pipeline"
	"github.com/rushteam/shoprank/pkg/utils"
)

// Hybrid 是混合推荐节点：并发执行协同/内容/LBS 三路召回源，
// 按 A/B 实验变体的来源权重加权合并（按实体引用去重，分数累加，来源拼接）。
//
// 合并结果为空（冷启动：既无行为也无画像）时，退化为全局热度兜底，
// 并打上 "fallback" 来源标记——只要系统内存在任何历史行为，推荐就不会返回空列表。
type Hybrid struct {
	Collaborative Source
	Content       Source
	Location      Source

	// Fallback 冷启动兜底源（通常是 Hot）
	Fallback Source

	// VariantAWeights / VariantBWeights 三路来源权重 (collaborative, content, location)
	VariantAWeights [3]float64
	VariantBWeights [3]float64

	// Timeout 每路召回源的超时时间，零值表示不限制
	Timeout time.Duration

	// TopK 合并后返回的实体数，零值回落到 20
	TopK int
}

func (n *Hybrid) Name() string        { return "recall.hybrid" }
func (n *Hybrid) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Hybrid) Process(
	ctx context.Context,
	rctx *core.RankContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	weights := n.weights(rctx)

	type sourceResult struct {
		weight float64
		items  []*core.Item
	}
	sources := []struct {
		src    Source
		weight float64
	}{
		{n.Collaborative, weights[0]},
		{n.Content, weights[1]},
		{n.Location, weights[2]},
	}

	var (
		mu      sync.Mutex
		results []sourceResult
		eg      errgroup.Group
	)
	for _, s := range sources {
		if s.src == nil || s.weight <= 0 {
			continue
		}
		src, weight := s.src, s.weight
		eg.Go(func() error {
			recallCtx := ctx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(ctx, n.Timeout)
				defer cancel()
			}
			items, err := src.Recall(recallCtx, rctx)
			if err != nil {
				// 单路失败不中断其他来源，推荐链路靠兜底保证非空
				return nil
			}
			mu.Lock()
			results = append(results, sourceResult{weight: weight, items: items})
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// 按实体引用合并：分数 = Σ(来源权重 * 来源分)，Labels 按默认规则拼接来源
	merged := make(map[core.EntityRef]*core.Item)
	for _, res := range results {
		for _, it := range res.items {
			if it == nil {
				continue
			}
			weighted := res.weight * it.Score
			if exist, ok := merged[it.Entity]; ok {
				exist.Score += weighted
				for k, v := range it.Labels {
					exist.PutLabel(k, v)
				}
				for k, v := range it.Meta {
					if _, has := exist.Meta[k]; !has {
						exist.Meta[k] = v
					}
				}
				continue
			}
			it.Score = weighted
			merged[it.Entity] = it
		}
	}

	if len(merged) == 0 {
		return n.fallback(ctx, rctx)
	}

	out := make([]*core.Item, 0, len(merged))
	for _, it := range merged {
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Entity.Key() < out[j].Entity.Key()
		}
		return out[i].Score > out[j].Score
	})

	topK := n.TopK
	if topK <= 0 {
		topK = 20
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// weights 按实验变体选择来源权重，未分桶时使用 A 桶权重。
func (n *Hybrid) weights(rctx *core.RankContext) [3]float64 {
	var w [3]float64
	if rctx != nil && rctx.Variant == "B" {
		w = n.VariantBWeights
	} else {
		w = n.VariantAWeights
	}
	if w[0] == 0 && w[1] == 0 && w[2] == 0 {
		return [3]float64{0.3, 0.4, 0.3}
	}
	return w
}

func (n *Hybrid) fallback(ctx context.Context, rctx *core.RankContext) ([]*core.Item, error) {
	if n.Fallback == nil {
		return nil, nil
	}
	items, err := n.Fallback.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it == nil {
			continue
		}
		if it.Labels == nil {
			it.Labels = make(map[string]utils.Label)
		}
		// 兜底来源自带的 recall_source 需整体覆盖，不能靠 PutLabel 拼接
		it.Labels["recall_source"] = utils.Label{Value: "fallback", Source: "recall"}
	}
	return items, nil
}
