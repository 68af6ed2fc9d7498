package model

import (
	"math"
	"time"
)

// ClusterModel 是一个行为用户分段的质心模型：质心向量 + 元信息。
// 每轮训练整体替换，绝不原地修改（并发读取方只会看到完整的新旧两代之一）。
type ClusterModel struct {
	ID        int       `json:"id"`
	Centroid  []float64 `json:"centroid"`
	Members   int       `json:"members"`
	TrainedAt time.Time `json:"trained_at"`
}

// AssignCluster 把用户行为向量分配到最近质心（欧氏距离）。
// clusters 为空或向量为空时默认归入簇 0。
func AssignCluster(vec []float64, clusters map[int]*ClusterModel) int {
	if len(clusters) == 0 || len(vec) == 0 {
		return 0
	}
	best := -1
	bestDist := math.MaxFloat64
	for id, c := range clusters {
		if c == nil || len(c.Centroid) == 0 {
			continue
		}
		d := EuclideanDistance(vec, c.Centroid)
		if d < bestDist || (d == bestDist && (best == -1 || id < best)) {
			best = id
			bestDist = d
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// CentroidScorer 按与指定簇质心的相似度为候选打分：
// score = 0.6 * cosine + 0.4 * exp(-euclidean/10)，截断到 [0,1]。
type CentroidScorer struct {
	Centroid []float64
}

func (s *CentroidScorer) Name() string { return "cluster" }

// PredictVector 对已展平的特征向量打分。
func (s *CentroidScorer) PredictVector(vec []float64) float64 {
	if len(s.Centroid) == 0 || len(vec) == 0 {
		return 0
	}
	sim := CosineSimilarity(vec, s.Centroid)
	decay := math.Exp(-EuclideanDistance(vec, s.Centroid) / 10)
	return Clamp01(0.6*sim + 0.4*decay)
}
