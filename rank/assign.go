package rank

import (
	"context"
	"time"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/feature"
	"github.com/rushteam/shoprank/model"
)

// ModelProvider 提供当前生效的模型集合。trainer.Trainer 实现此接口：
// 返回的 Set 是某个完整训练周期的不可变快照。
type ModelProvider interface {
	Models() *model.Set
}

const clusterParamKey = "cluster_id"

// assignCluster 计算请求用户的簇归属：聚合 ≤windowDays 天行为事件为行为向量，
// 取最近质心。结果缓存在 rctx.Params 中，同一请求内 cluster/learned 两个节点共享。
// 无行为或无事件存储时默认簇 0。
func assignCluster(
	ctx context.Context,
	rctx *core.RankContext,
	set *model.Set,
	interactions core.InteractionStore,
	windowDays int,
) (int, error) {
	if rctx.Params != nil {
		if cached, ok := rctx.Params[clusterParamKey].(int); ok {
			return cached, nil
		}
	}

	cluster := 0
	if interactions != nil && rctx.UserID != "" && !set.Empty() {
		if windowDays <= 0 {
			windowDays = 90
		}
		since := time.Now().AddDate(0, 0, -windowDays)
		events, err := interactions.Query(ctx, core.EventQuery{UserID: rctx.UserID, Since: since})
		if err != nil {
			return 0, err
		}
		if len(events) > 0 {
			vec := feature.BehaviorVector(events)
			cluster = model.AssignCluster(vec, set.Clusters)
		}
	}

	if rctx.Params == nil {
		rctx.Params = make(map[string]any)
	}
	rctx.Params[clusterParamKey] = cluster
	return cluster, nil
}
