package core

import (
	"time"

	"github.com/rushteam/shoprank/pkg/geo"
)

// ActionType 是用户行为类型。行为事件既是特征信号（热度/CTR/CVR），
// 也是训练标签（隐式相关性）的来源。
type ActionType string

const (
	ActionView     ActionType = "view"
	ActionViewShop ActionType = "view_shop"
	ActionClick    ActionType = "click"
	ActionFavorite ActionType = "favorite"
	ActionPurchase ActionType = "purchase"
	ActionSearch   ActionType = "search"
)

// ActionWeight 返回行为类型的权重，用于交互分与热度统计。
// view=1 click=2 favorite=3 purchase=5，其余视同 view。
func ActionWeight(a ActionType) float64 {
	switch a {
	case ActionClick:
		return 2
	case ActionFavorite:
		return 3
	case ActionPurchase:
		return 5
	default:
		return 1
	}
}

// RelevanceLabel 返回行为类型对应的隐式相关性标签，用于 Learn-to-Rank 训练。
func RelevanceLabel(a ActionType) float64 {
	switch a {
	case ActionView, ActionViewShop:
		return 0.2
	case ActionClick:
		return 0.5
	case ActionFavorite:
		return 0.8
	case ActionPurchase:
		return 1.0
	default:
		return 0.1
	}
}

// InteractionEvent 是一条不可变的用户行为日志。
// 由外部行为采集方追加写入，本引擎只读消费（特征抽取 + 模型训练）。
type InteractionEvent struct {
	UserID   string     `json:"user_id"`
	Target   EntityRef  `json:"target"`
	Action   ActionType `json:"action"`
	Category string     `json:"category"` // 目标实体当时的类目快照
	At       time.Time  `json:"at"`
	Session  string     `json:"session,omitempty"`
	Location *geo.Point `json:"location,omitempty"`
}
