package filter

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/shoprank/core"
)

// InteractedFilter 剔除用户近期已经交互过的实体，避免把已买过/已收藏的
// 店铺或优惠重复推荐给用户。
// 一次请求内只查一次行为存储，结果按请求缓存。
type InteractedFilter struct {
	Interactions core.InteractionStore

	// WindowDays 行为窗口（天），零值回落到 30
	WindowDays int

	mu    sync.Mutex
	cache map[string]map[core.EntityRef]struct{} // userID -> 已交互实体集合
}

func (f *InteractedFilter) Name() string { return "filter.interacted" }

func (f *InteractedFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RankContext,
	item *core.Item,
) (bool, error) {
	if f.Interactions == nil || rctx == nil || rctx.UserID == "" || item == nil {
		return false, nil
	}

	seen, err := f.seenEntities(ctx, rctx.UserID)
	if err != nil {
		return false, err
	}
	_, interacted := seen[item.Entity]
	return interacted, nil
}

func (f *InteractedFilter) seenEntities(ctx context.Context, userID string) (map[core.EntityRef]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cache == nil {
		f.cache = make(map[string]map[core.EntityRef]struct{})
	}
	if seen, ok := f.cache[userID]; ok {
		return seen, nil
	}

	windowDays := f.WindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	since := time.Now().AddDate(0, 0, -windowDays)
	events, err := f.Interactions.Query(ctx, core.EventQuery{UserID: userID, Since: since})
	if err != nil {
		return nil, err
	}

	seen := make(map[core.EntityRef]struct{}, len(events))
	for _, ev := range events {
		seen[ev.Target] = struct{}{}
	}
	f.cache[userID] = seen
	return seen, nil
}
