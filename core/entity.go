package core

import (
	"time"

	"github.com/rushteam/shoprank/pkg/geo"
)

// EntityType 标识候选实体的类型。排序与推荐对店铺（shop）和优惠（offer）统一处理，
// 仅在特征抽取与候选生成阶段区分。
type EntityType string

const (
	EntityShop  EntityType = "shop"
	EntityOffer EntityType = "offer"
)

// EntityRef 是候选实体的唯一引用：(类型, ID) 二元组。
// 推荐结果按 EntityRef 去重合并。
type EntityRef struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

// Key 返回 "type:id" 形式的合并用 key。
func (r EntityRef) Key() string {
	return string(r.Type) + ":" + r.ID
}

// Shop 是店铺候选实体。由外部 CRUD 维护，本引擎只读。
type Shop struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Rating      float64   `json:"rating"`       // 0-5
	ReviewCount int64     `json:"review_count"`
	AvgPrice    float64   `json:"avg_price"`
	Location    geo.Point `json:"location"`
	Active      bool      `json:"active"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Ref 返回店铺的实体引用。
func (s *Shop) Ref() EntityRef { return EntityRef{Type: EntityShop, ID: s.ID} }

// DiscountType 是优惠的折扣类型。
type DiscountType string

const (
	DiscountPercent DiscountType = "percent" // 百分比折扣，DiscountValue ∈ (0,100]
	DiscountAmount  DiscountType = "amount"  // 固定减免金额
)

// Offer 是优惠候选实体。优惠挂在店铺之下：候选生成时要求其所属店铺
// 同样通过激活/认证检查，且当前时间落在有效期窗口内。
type Offer struct {
	ID            string       `json:"id"`
	ShopID        string       `json:"shop_id"`
	Title         string       `json:"title"`
	Category      string       `json:"category"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue float64      `json:"discount_value"`
	StartAt       time.Time    `json:"start_at"`
	EndAt         time.Time    `json:"end_at"`
	UsedCount     int64        `json:"used_count"`
	MaxUses       int64        `json:"max_uses"` // 0 表示不限量
	Active        bool         `json:"active"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Ref 返回优惠的实体引用。
func (o *Offer) Ref() EntityRef { return EntityRef{Type: EntityOffer, ID: o.ID} }

// ValidAt 判断优惠在给定时刻是否处于有效期窗口内且未用尽。
func (o *Offer) ValidAt(t time.Time) bool {
	if !o.Active {
		return false
	}
	if t.Before(o.StartAt) || t.After(o.EndAt) {
		return false
	}
	if o.MaxUses > 0 && o.UsedCount >= o.MaxUses {
		return false
	}
	return true
}

// UserPreferences 是用户偏好画像：类目权重、价格区间、最大距离。
// 由外部画像服务维护，本引擎只读，缺失时各特征退化为中性默认值。
type UserPreferences struct {
	UserID          string             `json:"user_id"`
	CategoryWeights map[string]float64 `json:"category_weights"` // 类目 -> 权重 (0-1)
	PriceMin        float64            `json:"price_min"`
	PriceMax        float64            `json:"price_max"`
	MaxDistanceKm   float64            `json:"max_distance_km"`
}
