package filter

import (
	"context"

	"github.com/rushteam/shoprank/core"
	"github.com/rushteam/shoprank/pkg/dsl"
)

// RuleFilter 是配置驱动的规则过滤器：用 CEL 表达式描述"哪些候选要被剔除"。
// 典型用法是按场景下发准入规则，例如排除未认证店铺或低评分候选。
//
// 表达式返回 true 表示剔除该候选。
type RuleFilter struct {
	program *dsl.Program
}

// NewRuleFilter 编译表达式并创建规则过滤器。
func NewRuleFilter(expr string) (*RuleFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &RuleFilter{program: prg}, nil
}

func (f *RuleFilter) Name() string { return "filter.rule" }

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RankContext,
	item *core.Item,
) (bool, error) {
	if f.program == nil || item == nil {
		return false, nil
	}
	return f.program.EvalItem(item, rctx)
}
