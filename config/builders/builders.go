// Package builders 注册内置 Node 的配置构建器。
// 依赖存储的 Node（候选生成、行为过滤等）需先调用 Use 注入后端，
// 否则对应类型在构建时报错。
package builders

import (
	"fmt"
	"time"

	"github.com/rushteam/shoprank/config"
	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/feature"
	"github.com/rushteam/shoprank/filter"
	"github.com/rushteam/shoprank/model"
	"github.com/rushteam/shoprank/pipeline"
	"github.com/rushteam/shoprank/pkg/conv"
	"github.com/rushteam/shoprank/rank"
	"github.com/rushteam/shoprank/recall"
	"github.com/rushteam/shoprank/rerank"
)

func init() {
	config.Register("recall.candidates", BuildCandidateNode)
	config.Register("recall.hot", BuildHotNode)
	config.Register("recall.hybrid", BuildHybridNode)
	config.Register("feature.extract", BuildFeatureNode)
	config.Register("filter", BuildFilterNode)
	config.Register("rank.rule", BuildRuleNode)
	config.Register("rank.cluster", BuildClusterNode)
	config.Register("rank.learned", BuildLearnedNode)
	config.Register("rank.combine", BuildCombineNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.diversity", BuildDiversityNode)
}

// Deps 是配置驱动构建时注入的运行期依赖。
type Deps struct {
	Catalog      core.CandidateStore
	Interactions core.InteractionStore
	KV           core.KeyValueStore
	Provider     rank.ModelProvider
}

var deps Deps

// Use 注入存储与模型后端，需在 BuildPipeline 之前调用。
func Use(d Deps) { deps = d }

func BuildCandidateNode(cfg map[string]any) (pipeline.Node, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("recall.candidates: candidate store not injected")
	}
	return &recall.CandidateNode{
		Store:           deps.Catalog,
		PoolSize:        conv.ConfigGetInt(cfg, "pool_size", 0),
		RequireVerified: conv.ConfigGet(cfg, "require_verified", true),
	}, nil
}

func BuildHotNode(cfg map[string]any) (pipeline.Node, error) {
	if deps.Interactions == nil && deps.KV == nil {
		return nil, fmt.Errorf("recall.hot: interaction store or kv not injected")
	}
	return &recall.Hot{
		Interactions: deps.Interactions,
		KV:           deps.KV,
		Key:          conv.ConfigGet(cfg, "key", ""),
		TopK:         conv.ConfigGetInt(cfg, "top_k", 0),
		WindowDays:   conv.ConfigGetInt(cfg, "window_days", 0),
	}, nil
}

func BuildHybridNode(cfg map[string]any) (pipeline.Node, error) {
	if deps.Catalog == nil || deps.Interactions == nil {
		return nil, fmt.Errorf("recall.hybrid: candidate and interaction stores not injected")
	}
	h := &recall.Hybrid{
		Collaborative: &recall.CollaborativeRecall{Interactions: deps.Interactions},
		Content:       &recall.ContentRecall{Store: deps.Catalog},
		Location: &recall.LocationRecall{
			Store:         deps.Catalog,
			IncludeOffers: conv.ConfigGet(cfg, "include_offers", true),
		},
		Fallback: &recall.Hot{Interactions: deps.Interactions, KV: deps.KV},
		TopK:     conv.ConfigGetInt(cfg, "top_k", 0),
	}
	if sec := conv.ConfigGetInt(cfg, "timeout", 0); sec > 0 {
		h.Timeout = time.Duration(sec) * time.Second
	}
	h.VariantAWeights = weightsFromConfig(cfg, "variant_a_weights")
	h.VariantBWeights = weightsFromConfig(cfg, "variant_b_weights")
	return h, nil
}

func BuildFeatureNode(cfg map[string]any) (pipeline.Node, error) {
	if deps.Interactions == nil {
		return nil, fmt.Errorf("feature.extract: interaction store not injected")
	}
	return &feature.Node{Extractor: &feature.Extractor{
		Interactions:         deps.Interactions,
		PopularityWindowDays: conv.ConfigGetInt(cfg, "popularity_window_days", 0),
		PopularitySaturation: conv.ConfigGetFloat(cfg, "popularity_saturation", 0),
	}}, nil
}

func BuildFilterNode(cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		filterType := conv.ConfigGet(filterMap, "type", "")
		switch filterType {
		case "interacted":
			if deps.Interactions == nil {
				return nil, fmt.Errorf("filter interacted: interaction store not injected")
			}
			filters = append(filters, &filter.InteractedFilter{
				Interactions: deps.Interactions,
				WindowDays:   conv.ConfigGetInt(filterMap, "window_days", 0),
			})
		case "rule":
			expr := conv.ConfigGet(filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("filter rule: expr is required")
			}
			f, err := filter.NewRuleFilter(expr)
			if err != nil {
				return nil, fmt.Errorf("filter rule: %w", err)
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.Node{Filters: filters}, nil
}

func BuildRuleNode(cfg map[string]any) (pipeline.Node, error) {
	return &rank.RuleNode{Model: model.NewRuleModel(
		conv.ConfigGetFloat(cfg, "max_distance_km", 0),
		conv.ConfigGetFloat(cfg, "max_age_days", 0),
	)}, nil
}

func BuildClusterNode(cfg map[string]any) (pipeline.Node, error) {
	if deps.Provider == nil {
		return nil, fmt.Errorf("rank.cluster: model provider not injected")
	}
	return &rank.ClusterNode{
		Provider:     deps.Provider,
		Interactions: deps.Interactions,
		Rule:         ruleFromConfig(cfg),
		WindowDays:   conv.ConfigGetInt(cfg, "window_days", 0),
	}, nil
}

func BuildLearnedNode(cfg map[string]any) (pipeline.Node, error) {
	if deps.Provider == nil {
		return nil, fmt.Errorf("rank.learned: model provider not injected")
	}
	return &rank.LearnedNode{
		Provider:     deps.Provider,
		Interactions: deps.Interactions,
		Rule:         ruleFromConfig(cfg),
		WindowDays:   conv.ConfigGetInt(cfg, "window_days", 0),
	}, nil
}

func BuildCombineNode(cfg map[string]any) (pipeline.Node, error) {
	rankCfg := core.DefaultConfig().Rank
	return &rank.CombineNode{Config: &rankCfg}, nil
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: conv.ConfigGetInt(cfg, "n", 0)}, nil
}

func BuildDiversityNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Diversity{LabelKey: conv.ConfigGet(cfg, "label_key", "category")}, nil
}

func ruleFromConfig(cfg map[string]any) *model.RuleModel {
	return model.NewRuleModel(
		conv.ConfigGetFloat(cfg, "max_distance_km", 0),
		conv.ConfigGetFloat(cfg, "max_age_days", 0),
	)
}

func weightsFromConfig(cfg map[string]any, key string) [3]float64 {
	var out [3]float64
	raw, ok := cfg[key].([]any)
	if !ok {
		return out
	}
	for i := 0; i < len(raw) && i < 3; i++ {
		if f, ok := conv.ToFloat64(raw[i]); ok {
			out[i] = f
		}
	}
	return out
}
