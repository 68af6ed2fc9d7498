package core

import (
	"context"
	"time"

	"github.com/rushteam/shoprank/pkg/geo"
)

// Store 是通用 KV 存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//
// 使用场景：
//   - 行为事件/热度榜的 KV 后端（store.MemoryStore / store.RedisStore）
//   - 候选实体与偏好画像的序列化存储
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取（减少网络往返）
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// BatchSet 批量写入
	BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error

	// Close 关闭连接/释放资源
	Close() error
}

// KeyValueStore 是 Store 的扩展接口，支持有序集合与哈希表。
// 有序集合用于按时间戳组织行为事件和全局热度榜。
type KeyValueStore interface {
	Store

	// ZAdd 向有序集合添加成员
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRange 按分数降序获取有序集合成员（用于 TopN）
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// ZRangeByScore 按分数区间获取成员（升序，用于时间窗口查询）
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)

	// ZRemRangeByScore 删除分数区间内的成员，返回删除数（用于滚动窗口裁剪）
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error)

	// ZScore 获取成员的分数
	ZScore(ctx context.Context, key string, member string) (float64, error)

	// HGet 读取哈希表字段
	HGet(ctx context.Context, key, field string) ([]byte, error)

	// HSet 写入哈希表字段
	HSet(ctx context.Context, key, field string, value []byte) error

	// HGetAll 读取哈希表所有字段
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)
}

// CandidateQuery 是候选实体查询条件。各字段为零值时不过滤。
type CandidateQuery struct {
	Category      string     // 类目过滤
	OnlyActive    bool       // 仅激活实体
	OnlyVerified  bool       // 仅认证店铺
	Near          *geo.Point // 地理位置中心
	MaxDistanceKm float64    // 与 Near 配合使用；Near 为空时忽略
	Limit         int        // 返回上限；0 表示由实现决定
}

// CandidateStore 是候选实体（店铺/优惠）的数据访问契约。
// 持久化与 CRUD 属于外部协作方，本引擎只读。
type CandidateStore interface {
	// QueryShops 按条件查询店铺
	QueryShops(ctx context.Context, q CandidateQuery) ([]*Shop, error)

	// QueryOffers 按条件查询优惠（不含有效期判断，由候选生成器负责）
	QueryOffers(ctx context.Context, q CandidateQuery) ([]*Offer, error)

	// GetShop 按 ID 读取店铺（用于解析优惠所属店铺）
	GetShop(ctx context.Context, id string) (*Shop, error)

	// GetOffer 按 ID 读取优惠（训练阶段重建历史交互实体时使用）
	GetOffer(ctx context.Context, id string) (*Offer, error)
}

// EventQuery 是行为事件查询条件。各字段为零值时不过滤。
type EventQuery struct {
	UserID string     // 按用户过滤
	Target *EntityRef // 按目标实体过滤
	Action ActionType // 按行为类型过滤
	Since  time.Time  // 时间窗口下界（含）
	Until  time.Time  // 时间窗口上界（含）；零值表示不设上界
	Limit  int        // 返回上限；0 表示不限
}

// InteractionStore 是行为事件的数据访问契约。
// 事件由外部行为采集方追加写入（Append），本引擎读取用于特征与训练。
type InteractionStore interface {
	// Append 追加一条行为事件（行为采集写入路径）
	Append(ctx context.Context, ev *InteractionEvent) error

	// Query 按条件查询事件
	Query(ctx context.Context, q EventQuery) ([]*InteractionEvent, error)

	// CountByTarget 统计时间窗口内指向某实体的事件数（热度信号）
	CountByTarget(ctx context.Context, target EntityRef, since time.Time) (int64, error)
}

// PreferenceStore 是用户偏好画像的数据访问契约。
// 画像缺失时返回 ErrPrefsNotFound，调用方据此退化为中性默认值。
type PreferenceStore interface {
	// GetPreferences 读取用户偏好画像
	GetPreferences(ctx context.Context, userID string) (*UserPreferences, error)
}
