package recall

import (
	"context"
	"strings"
	"time"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/model"
	"github.com/rushteam/shoprank/pipeline"
	"github.com/rushteam/shoprank/pkg/utils"
)

// Hot 是全局热度召回源：近期行为事件按行为类型加权计数，得到全局热度榜。
// 既是冷启动用户的推荐兜底，也可单独作为"热门"场景使用。
//
// 读取优先级：
//   - 如果配置了 KeyValueStore，优先读取预聚合的热度榜（有序集合，离线任务维护）
//   - 否则从行为事件窗口现算
//
// Hot 同时实现了 Source 和 Node 接口。
type Hot struct {
	Interactions core.InteractionStore

	// KV 可选的预聚合热度榜后端
	KV core.KeyValueStore

	// Key 热度榜在 KV 中的 key，例如 "hot:entities"
	Key string

	// TopK 返回的实体数，零值回落到 20
	TopK int

	// WindowDays 现算热度时的行为窗口（天），零值回落到 30
	WindowDays int
}

func (r *Hot) Name() string        { return "recall.hot" }
func (r *Hot) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall。
func (r *Hot) Process(
	ctx context.Context,
	rctx *core.RankContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
func (r *Hot) Recall(
	ctx context.Context,
	_ *core.RankContext,
) ([]*core.Item, error) {
	topK := r.TopK
	if topK <= 0 {
		topK = 20
	}

	// 优先读预聚合榜单
	if r.KV != nil && r.Key != "" {
		members, err := r.KV.ZRange(ctx, r.Key, 0, int64(topK)-1)
		if err == nil && len(members) > 0 {
			out := make([]*core.Item, 0, len(members))
			for i, m := range members {
				ref, ok := parseEntityKey(m)
				if !ok {
					continue
				}
				it := core.NewItem(ref)
				it.Score = float64(len(members)-i) / float64(len(members))
				it.PutLabel("recall_source", utils.Label{Value: "hot", Source: "recall"})
				out = append(out, it)
			}
			return out, nil
		}
	}

	// 现算：窗口内事件按行为权重累加
	if r.Interactions == nil {
		return nil, nil
	}
	windowDays := r.WindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	since := time.Now().AddDate(0, 0, -windowDays)
	events, err := r.Interactions.Query(ctx, core.EventQuery{Since: since})
	if err != nil {
		return nil, err
	}

	scores := make(map[core.EntityRef]float64)
	for _, ev := range events {
		scores[ev.Target] += core.ActionWeight(ev.Action)
	}
	if len(scores) == 0 {
		return nil, nil
	}

	// 归一化到 [0,1] 后输出
	var maxScore float64
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	out := topItems(scores, topK)
	for _, it := range out {
		if maxScore > 0 {
			it.Score = model.Clamp01(it.Score / maxScore)
		}
		it.PutLabel("recall_source", utils.Label{Value: "hot", Source: "recall"})
	}
	return out, nil
}

// parseEntityKey 解析 "type:id" 形式的实体 key（EntityRef.Key 的逆操作）。
func parseEntityKey(key string) (core.EntityRef, bool) {
	idx := strings.IndexByte(key, ':')
	if idx <= 0 || idx == len(key)-1 {
		return core.EntityRef{}, false
	}
	return core.EntityRef{
		Type: core.EntityType(key[:idx]),
		ID:   key[idx+1:],
	}, true
}
