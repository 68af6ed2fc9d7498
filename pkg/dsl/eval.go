// Package dsl 提供基于 CEL (Common Expression Language) 的候选规则表达式求值，
// 用于配置驱动的候选准入/剔除规则。
//
// 表达式可访问三个变量：
//   - item:  候选信息，如 item.score / item.entity_type / item.features.rating
//   - label: 候选标签值，如 label.recall_source
//   - rctx:  请求上下文，如 rctx.user_id / rctx.scene / rctx.variant
//
// 示例：
//   - `item.features.rating >= 3.0`               → 评分不低于 3 分
//   - `label.recall_source.contains("hot")`        → 召回来源包含热门
//   - `rctx.scene == "nearby" && item.score > 0.5` → 附近场景且分数达标
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/shoprank/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是一条编译后的规则表达式，可对多个候选复用求值。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译规则表达式。表达式必须返回布尔值。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// Expr 返回原始表达式文本。
func (p *Program) Expr() string { return p.expr }

// EvalItem 对单个候选求值，返回表达式的布尔结果。
// 表达式求值失败或结果非布尔时返回错误，由调用方决定降级策略。
func (p *Program) EvalItem(item *core.Item, rctx *core.RankContext) (bool, error) {
	out, _, err := p.prg.Eval(activation(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", p.expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("eval %q: non-bool result %T", p.expr, out.Value())
	}
	return b, nil
}

// activation 把 Item/RankContext 展开为表达式可访问的 map 结构。
func activation(item *core.Item, rctx *core.RankContext) map[string]any {
	itemMap := map[string]any{}
	labelMap := map[string]any{}
	rctxMap := map[string]any{}

	if item != nil {
		features := make(map[string]any, len(item.Features))
		for k, v := range item.Features {
			features[k] = v
		}
		itemMap["entity_type"] = string(item.Entity.Type)
		itemMap["entity_id"] = item.Entity.ID
		itemMap["score"] = item.Score
		itemMap["features"] = features
		for k, lbl := range item.Labels {
			labelMap[k] = lbl.Value
		}
	}
	if rctx != nil {
		rctxMap["user_id"] = rctx.UserID
		rctxMap["scene"] = rctx.Scene
		rctxMap["variant"] = rctx.Variant
	}

	return map[string]any{
		"item":  itemMap,
		"label": labelMap,
		"rctx":  rctxMap,
	}
}
