// Package engine 是排序与推荐的统一入口：组装召回/特征/过滤/打分/融合流水线，
// 对外暴露 Rank / Recommend / RetrainModels / ModelStatus 四个操作。
package engine

import (
	"context"
	"time"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/feature"
	"github.com/rushteam/shoprank/filter"
	"github.com/rushteam/shoprank/model"
	"github.com/rushteam/shoprank/pipeline"
	"github.com/rushteam/shoprank/pkg/geo"
	"github.com/rushteam/shoprank/rank"
	"github.com/rushteam/shoprank/recall"
	"github.com/rushteam/shoprank/rerank"
	"github.com/rushteam/shoprank/trainer"
)

// Engine 持有全部依赖并负责为每次请求组装流水线。
// 各 store 接口允许注入内存实现（测试）或 Redis 实现（线上）。
type Engine struct {
	Catalog      core.CandidateStore
	Interactions core.InteractionStore
	Prefs        core.PreferenceStore
	Trainer      *trainer.Trainer
	Config       *core.Config

	// ExtraFilters 额外的业务过滤器（如 CEL 规则过滤），Rank 与 Recommend 共用。
	ExtraFilters []filter.Filter

	extractor *feature.Extractor
	rule      *model.RuleModel
	hybrid    *recall.Hybrid
}

// New 创建引擎。cfg 为 nil 时使用 DefaultConfig。
func New(catalog core.CandidateStore, interactions core.InteractionStore, prefs core.PreferenceStore, tr *trainer.Trainer, cfg *core.Config) *Engine {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	e := &Engine{
		Catalog:      catalog,
		Interactions: interactions,
		Prefs:        prefs,
		Trainer:      tr,
		Config:       cfg,
	}
	e.extractor = &feature.Extractor{
		Interactions:         interactions,
		PopularityWindowDays: cfg.Recall.PopularityWindowDays,
		PopularitySaturation: cfg.Recall.PopularitySaturation,
		Monitor:              feature.NewMonitor(),
	}
	e.rule = model.NewRuleModel(cfg.Rank.MaxDistanceKm, cfg.Rank.MaxAgeDays)
	e.hybrid = &recall.Hybrid{
		Collaborative:   &recall.CollaborativeRecall{Interactions: interactions},
		Content:         &recall.ContentRecall{Store: catalog},
		Location:        &recall.LocationRecall{Store: catalog, IncludeOffers: true},
		Fallback:        &recall.Hot{Interactions: interactions},
		VariantAWeights: cfg.Recall.VariantAWeights,
		VariantBWeights: cfg.Recall.VariantBWeights,
		Timeout:         2 * time.Second,
	}
	return e
}

// RankRequest 是排序请求。
type RankRequest struct {
	UserID     string
	EntityType core.EntityType // 零值按 shop 处理

	// Location 用户位置；为 nil 时距离特征取默认值
	Location *geo.Point

	// Category 类目过滤；空串不过滤
	Category string

	// MaxDistanceKm 距离过滤（公里）；大于 0 时要求 Location 非空
	MaxDistanceKm float64

	// Limit 返回条数，零值回落到 10
	Limit int

	// Variant 实验分桶强制指定（评估用）；空串按 userID 哈希分桶
	Variant string
}

// Rank 对候选实体做三路打分与自适应融合，返回按最终分降序的结果。
func (e *Engine) Rank(ctx context.Context, req RankRequest) ([]*core.Item, error) {
	rctx, err := e.buildContext(ctx, req)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		&recall.CandidateNode{
			Store:           e.Catalog,
			PoolSize:        e.Config.Recall.PoolSize,
			RequireVerified: true,
		},
		&feature.Node{Extractor: e.extractor},
		e.filterNode(),
		&rank.RuleNode{Model: e.rule},
		&rank.ClusterNode{
			Provider:     e.Trainer,
			Interactions: e.Interactions,
			Rule:         e.rule,
			WindowDays:   e.Config.Trainer.WindowDays,
		},
		&rank.LearnedNode{
			Provider:     e.Trainer,
			Interactions: e.Interactions,
			Rule:         e.rule,
			WindowDays:   e.Config.Trainer.WindowDays,
		},
		&rank.CombineNode{Config: &e.Config.Rank},
		&rerank.TopNNode{N: limit},
	}}
	return p.Run(ctx, rctx, nil)
}

// RecommendRequest 是混合推荐请求。
type RecommendRequest struct {
	UserID   string
	Location *geo.Point

	// Limit 返回条数，零值回落到 10
	Limit int

	// Variant 实验分桶强制指定（评估用）
	Variant string
}

// Recommend 融合协同/内容/位置三路召回产出个性化推荐，
// 近期已交互的实体被剔除；三路均为空时回退到热门兜底。
func (e *Engine) Recommend(ctx context.Context, req RecommendRequest) ([]*core.Item, error) {
	rctx, err := e.buildContext(ctx, RankRequest{
		UserID:   req.UserID,
		Location: req.Location,
		Variant:  req.Variant,
	})
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	filters := append([]filter.Filter{
		&filter.InteractedFilter{Interactions: e.Interactions},
	}, e.ExtraFilters...)

	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		e.hybrid,
		&filter.Node{Filters: filters},
		&rerank.TopNNode{N: limit},
	}}
	return p.Run(ctx, rctx, nil)
}

// RetrainModels 立即触发一轮模型训练（与后台周期训练共享 singleflight 执行）。
// 训练失败不影响线上打分，旧模型继续生效；错误只返回给触发方。
func (e *Engine) RetrainModels(ctx context.Context) error {
	return e.Trainer.Train(ctx)
}

// RankWithVariant 按指定实验分桶排序，用于离线评估对照（如 rule-only 对比融合）。
func (e *Engine) RankWithVariant(ctx context.Context, req RankRequest, variant string) ([]*core.Item, error) {
	req.Variant = variant
	return e.Rank(ctx, req)
}

// ModelStatus 返回当前模型与训练调度状态。
func (e *Engine) ModelStatus() trainer.Status {
	return e.Trainer.Status()
}

// FeatureStats 返回某个特征的健康度统计（用量/缺失/分布），未记录过时返回 nil。
func (e *Engine) FeatureStats(name string) *feature.Stats {
	return e.extractor.Monitor.Stats(name)
}

// buildContext 校验请求并构建请求级上下文：确定实验分桶、加载用户偏好。
// 偏好缺失按无偏好处理，不视为错误。
func (e *Engine) buildContext(ctx context.Context, req RankRequest) (*core.RankContext, error) {
	if req.UserID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: user id is required")
	}
	if req.MaxDistanceKm > 0 && req.Location == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: max distance filter requires a location")
	}

	entityType := req.EntityType
	if entityType == "" {
		entityType = core.EntityShop
	}
	variant := req.Variant
	if variant == "" {
		variant = Bucket(req.UserID)
	}

	rctx := &core.RankContext{
		UserID:     req.UserID,
		EntityType: entityType,
		Location:   req.Location,
		Variant:    variant,
		Params:     map[string]any{},
	}
	if req.Category != "" {
		rctx.Params["category"] = req.Category
	}
	if req.MaxDistanceKm > 0 {
		rctx.Params["max_distance_km"] = req.MaxDistanceKm
	}

	if e.Prefs != nil {
		prefs, err := e.Prefs.GetPreferences(ctx, req.UserID)
		if err != nil && !core.IsNotFound(err) {
			return nil, err
		}
		rctx.Prefs = prefs
	}
	return rctx, nil
}

// filterNode 组装排序链路的过滤节点，没有任何过滤器时退化为直通。
func (e *Engine) filterNode() pipeline.Node {
	return &filter.Node{Filters: e.ExtraFilters}
}
