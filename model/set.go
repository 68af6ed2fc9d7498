package model

import "time"

// Set 是一个训练周期产出的完整模型集合：聚类质心 + 各簇的排序集成。
// 两者在同一周期内一起训练、一起替换，保持内部一致；
// 读取方通过 atomic 指针拿到的永远是某个完整周期的 Set，绝不混代。
// 部分失败的训练周期（例如聚类成功但排序训练失败）不产出新 Set，旧 Set 保持生效。
type Set struct {
	TrainedAt time.Time
	Clusters  map[int]*ClusterModel
	Rankers   map[int]*StumpEnsemble
}

// Empty 判断模型集合是否为空（冷系统：从未完成过训练周期）。
func (s *Set) Empty() bool {
	return s == nil || len(s.Clusters) == 0
}

// Cluster 按簇 ID 取质心模型，不存在时返回 nil。
func (s *Set) Cluster(id int) *ClusterModel {
	if s == nil {
		return nil
	}
	return s.Clusters[id]
}

// Ranker 按簇 ID 取排序集成，该簇未训练（样本不足）时返回 nil。
func (s *Set) Ranker(id int) *StumpEnsemble {
	if s == nil {
		return nil
	}
	return s.Rankers[id]
}
