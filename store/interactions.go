package store

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/rushteam/shoprank/core"
)

// 行为事件在 KV 中按有序集合组织，分数为事件时间戳（秒）：
//   - events:all           全量时间线（训练窗口 / 全局热度）
//   - events:user:{id}     按用户（簇分配 / 协同召回）
//   - events:target:{key}  按目标实体（热度 / CTR / CVR）
const (
	eventsAllKey       = "events:all"
	eventsUserPrefix   = "events:user:"
	eventsTargetPrefix = "events:target:"
)

// KVInteractionStore 把任意 KeyValueStore 适配为 core.InteractionStore。
// 事件以 JSON 为成员写入三个索引维度的有序集合，时间窗口查询走 ZRangeByScore。
type KVInteractionStore struct {
	KV core.KeyValueStore
}

func NewKVInteractionStore(kv core.KeyValueStore) *KVInteractionStore {
	return &KVInteractionStore{KV: kv}
}

var _ core.InteractionStore = (*KVInteractionStore)(nil)

func (s *KVInteractionStore) Append(ctx context.Context, ev *core.InteractionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	member := string(data)
	score := float64(ev.At.Unix())

	if err := s.KV.ZAdd(ctx, eventsAllKey, score, member); err != nil {
		return err
	}
	if ev.UserID != "" {
		if err := s.KV.ZAdd(ctx, eventsUserPrefix+ev.UserID, score, member); err != nil {
			return err
		}
	}
	return s.KV.ZAdd(ctx, eventsTargetPrefix+ev.Target.Key(), score, member)
}

func (s *KVInteractionStore) Query(ctx context.Context, q core.EventQuery) ([]*core.InteractionEvent, error) {
	key := eventsAllKey
	switch {
	case q.UserID != "":
		key = eventsUserPrefix + q.UserID
	case q.Target != nil:
		key = eventsTargetPrefix + q.Target.Key()
	}

	min := float64(0)
	if !q.Since.IsZero() {
		min = float64(q.Since.Unix())
	}
	max := math.MaxFloat64
	if !q.Until.IsZero() {
		max = float64(q.Until.Unix())
	}

	members, err := s.KV.ZRangeByScore(ctx, key, min, max)
	if err != nil {
		return nil, err
	}

	out := make([]*core.InteractionEvent, 0, len(members))
	for _, m := range members {
		var ev core.InteractionEvent
		if err := json.Unmarshal([]byte(m), &ev); err != nil {
			continue
		}
		if !matchEvent(&ev, q) {
			continue
		}
		out = append(out, &ev)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// Prune 裁剪全量时间线中早于 before 的事件，控制滚动窗口之外的存储增长。
// 按用户/实体的索引键与全量时间线共享成员副本，由部署侧按键 TTL 或离线任务治理。
func (s *KVInteractionStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	if before.IsZero() {
		return 0, nil
	}
	return s.KV.ZRemRangeByScore(ctx, eventsAllKey, 0, float64(before.Unix()-1))
}

func (s *KVInteractionStore) CountByTarget(ctx context.Context, target core.EntityRef, since time.Time) (int64, error) {
	min := float64(0)
	if !since.IsZero() {
		min = float64(since.Unix())
	}
	members, err := s.KV.ZRangeByScore(ctx, eventsTargetPrefix+target.Key(), min, math.MaxFloat64)
	if err != nil {
		return 0, err
	}
	return int64(len(members)), nil
}

// matchEvent 补充 zset 维度覆盖不到的过滤条件（组合查询、行为类型）。
func matchEvent(ev *core.InteractionEvent, q core.EventQuery) bool {
	if q.UserID != "" && ev.UserID != q.UserID {
		return false
	}
	if q.Target != nil && ev.Target != *q.Target {
		return false
	}
	if q.Action != "" && ev.Action != q.Action {
		return false
	}
	return true
}
