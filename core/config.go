package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 汇总引擎的全部可调常量。所有默认值来自线上验证过的经验值，
// 融合分层阈值（0.8/0.5）与权重三元组为经验选定，按配置保留而非写死。
type Config struct {
	// Rank 排序相关
	Rank RankConfig `yaml:"rank"`

	// Recall 候选生成与推荐召回相关
	Recall RecallConfig `yaml:"recall"`

	// Trainer 模型训练相关
	Trainer TrainerConfig `yaml:"trainer"`
}

// RankConfig 是打分与融合的配置。
type RankConfig struct {
	// MaxDistanceKm 距离子分归零的距离上限：score = max(0, 1 - d/MaxDistanceKm)
	MaxDistanceKm float64 `yaml:"max_distance_km"`

	// MaxAgeDays 新鲜度子分归零的天数上限：score = max(0, 1 - age/MaxAgeDays)
	MaxAgeDays float64 `yaml:"max_age_days"`

	// QualityTiers 数据质量分层：按质量分从高到低匹配第一个命中的档位。
	QualityTiers []QualityTier `yaml:"quality_tiers"`
}

// QualityTier 是一档数据质量对应的融合权重 (rule, cluster, learned)。
type QualityTier struct {
	MinQuality float64 `yaml:"min_quality"` // 质量分需严格大于该值
	Rule       float64 `yaml:"rule"`
	Cluster    float64 `yaml:"cluster"`
	Learned    float64 `yaml:"learned"`
}

// RecallConfig 是候选生成与推荐召回的配置。
type RecallConfig struct {
	// PoolSize 候选池上限，约束下游打分成本
	PoolSize int `yaml:"pool_size"`

	// PopularityWindowDays 热度统计的时间窗口（天）
	PopularityWindowDays int `yaml:"popularity_window_days"`

	// PopularitySaturation 热度饱和常数：窗口内事件数达到该值时热度分为 1.0
	PopularitySaturation float64 `yaml:"popularity_saturation"`

	// VariantAWeights / VariantBWeights 混合推荐的来源权重
	// 顺序为 (collaborative, content, location)
	VariantAWeights [3]float64 `yaml:"variant_a_weights"`
	VariantBWeights [3]float64 `yaml:"variant_b_weights"`
}

// TrainerConfig 是后台训练的配置。
type TrainerConfig struct {
	// Interval 两次训练的最小间隔
	Interval time.Duration `yaml:"interval"`

	// WindowDays 训练读取的行为事件滚动窗口（天）
	WindowDays int `yaml:"window_days"`

	// ClusterK 行为聚类的簇数
	ClusterK int `yaml:"cluster_k"`

	// KMeansIterations k-means 最大迭代次数
	KMeansIterations int `yaml:"kmeans_iterations"`

	// MinEvents 触发聚类训练所需的最少事件数，不足则整轮跳过
	MinEvents int `yaml:"min_events"`

	// MinClusterExamples 单簇训练排序模型所需的最少样本数，不足则跳过该簇
	MinClusterExamples int `yaml:"min_cluster_examples"`

	// Trees 每个簇的 boosting 树（单分裂树桩）数量
	Trees int `yaml:"trees"`

	// LearningRate boosting 学习率
	LearningRate float64 `yaml:"learning_rate"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		Rank: RankConfig{
			MaxDistanceKm: 50,
			MaxAgeDays:    365,
			QualityTiers: []QualityTier{
				{MinQuality: 0.8, Rule: 0.2, Cluster: 0.3, Learned: 0.5},
				{MinQuality: 0.5, Rule: 0.3, Cluster: 0.35, Learned: 0.35},
				{MinQuality: -1, Rule: 0.5, Cluster: 0.25, Learned: 0.25},
			},
		},
		Recall: RecallConfig{
			PoolSize:             100,
			PopularityWindowDays: 30,
			PopularitySaturation: 100,
			VariantAWeights:      [3]float64{0.3, 0.4, 0.3},
			VariantBWeights:      [3]float64{0.4, 0.3, 0.3},
		},
		Trainer: TrainerConfig{
			Interval:           24 * time.Hour,
			WindowDays:         90,
			ClusterK:           5,
			KMeansIterations:   20,
			MinEvents:          100,
			MinClusterExamples: 50,
			Trees:              10,
			LearningRate:       0.1,
		},
	}
}

// LoadConfig 从 YAML 文件加载配置，未出现的字段保持默认值。
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// BlendWeights 按数据质量分选择融合权重三元组 (rule, cluster, learned)。
func (c *RankConfig) BlendWeights(quality float64) (float64, float64, float64) {
	for _, tier := range c.QualityTiers {
		if quality > tier.MinQuality {
			return tier.Rule, tier.Cluster, tier.Learned
		}
	}
	// 兜底：全部信任规则分
	return 1, 0, 0
}
