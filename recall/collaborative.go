package recall

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/pkg/utils"
)

// CollaborativeRecall 是基于用户的协同过滤召回源（User-CF）。
//
// 核心思想："兴趣相似的用户，喜欢相似的店铺/优惠"
//
// 算法流程：
//  1. 从近期行为窗口构建 用户 → (实体 -> 行为权重) 倒排
//  2. 计算目标用户与其他用户的余弦相似度（要求最少共同实体数）
//  3. 取 TopK 相似用户，把他们的高价值交互按相似度加权累加
//  4. 剔除目标用户已交互过的实体
type CollaborativeRecall struct {
	Interactions core.InteractionStore

	// TopKSimilarUsers 计算相似度时考虑的 TopK 个相似用户，零值回落到 20
	TopKSimilarUsers int

	// TopK 最终返回的实体数，零值回落到 20
	TopK int

	// MinCommonItems 两个用户至少需要的共同交互实体数，零值回落到 2
	MinCommonItems int

	// WindowDays 行为窗口（天），零值回落到 30
	WindowDays int
}

func (r *CollaborativeRecall) Name() string { return "recall.collaborative" }

func (r *CollaborativeRecall) Recall(
	ctx context.Context,
	rctx *core.RankContext,
) ([]*core.Item, error) {
	if r.Interactions == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}

	windowDays := r.WindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	since := time.Now().AddDate(0, 0, -windowDays)

	// 一次窗口查询构建所有用户的行为倒排，避免逐用户往返
	events, err := r.Interactions.Query(ctx, core.EventQuery{Since: since})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	userItems := make(map[string]map[core.EntityRef]float64)
	for _, ev := range events {
		items := userItems[ev.UserID]
		if items == nil {
			items = make(map[core.EntityRef]float64)
			userItems[ev.UserID] = items
		}
		items[ev.Target] += core.ActionWeight(ev.Action)
	}

	targetItems := userItems[rctx.UserID]
	if len(targetItems) == 0 {
		return nil, nil
	}

	minCommon := r.MinCommonItems
	if minCommon <= 0 {
		minCommon = 2
	}

	// 计算与目标用户的相似度
	type userSimilarity struct {
		userID     string
		similarity float64
	}
	similarities := make([]userSimilarity, 0)
	for userID, items := range userItems {
		if userID == rctx.UserID {
			continue
		}
		sim := cosineOverCommon(targetItems, items, minCommon)
		if sim > 0 {
			similarities = append(similarities, userSimilarity{userID: userID, similarity: sim})
		}
	}

	sort.Slice(similarities, func(i, j int) bool {
		return similarities[i].similarity > similarities[j].similarity
	})
	topKSimilar := r.TopKSimilarUsers
	if topKSimilar <= 0 {
		topKSimilar = 20
	}
	if len(similarities) > topKSimilar {
		similarities = similarities[:topKSimilar]
	}

	// 相似用户的交互按相似度加权累加，跳过目标用户已交互的实体
	scores := make(map[core.EntityRef]float64)
	for _, sim := range similarities {
		for ref, weight := range userItems[sim.userID] {
			if _, seen := targetItems[ref]; seen {
				continue
			}
			scores[ref] += sim.similarity * weight
		}
	}

	out := topItems(scores, r.TopK)
	for _, it := range out {
		it.PutLabel("recall_source", utils.Label{Value: "collaborative", Source: "recall"})
	}
	return out, nil
}

// cosineOverCommon 在两个用户的共同实体上计算余弦相似度，共同实体不足时返回 0。
func cosineOverCommon(a, b map[core.EntityRef]float64, minCommon int) float64 {
	var dot, normA, normB float64
	common := 0
	for ref, va := range a {
		vb, ok := b[ref]
		if !ok {
			continue
		}
		common++
		dot += va * vb
		normA += va * va
		normB += vb * vb
	}
	if common < minCommon || normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// topItems 把实体分数表转为按分数降序的 TopK Item 列表。
func topItems(scores map[core.EntityRef]float64, topK int) []*core.Item {
	if topK <= 0 {
		topK = 20
	}
	type scored struct {
		ref   core.EntityRef
		score float64
	}
	list := make([]scored, 0, len(scores))
	for ref, score := range scores {
		list = append(list, scored{ref: ref, score: score})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].score == list[j].score {
			return list[i].ref.Key() < list[j].ref.Key()
		}
		return list[i].score > list[j].score
	})
	if len(list) > topK {
		list = list[:topK]
	}

	out := make([]*core.Item, 0, len(list))
	for _, s := range list {
		it := core.NewItem(s.ref)
		it.Score = s.score
		out = append(out, it)
	}
	return out
}
