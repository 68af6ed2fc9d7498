package model

import (
	"math"
	"testing"
)

func TestAssignCluster(t *testing.T) {
	clusters := map[int]*ClusterModel{
		0: {ID: 0, Centroid: []float64{0, 0}},
		1: {ID: 1, Centroid: []float64{1, 1}},
		2: {ID: 2, Centroid: []float64{5, 5}},
	}

	tests := []struct {
		name string
		vec  []float64
		want int
	}{
		{"near origin", []float64{0.1, 0.1}, 0},
		{"near second centroid", []float64{0.9, 1.1}, 1},
		{"near far centroid", []float64{4, 6}, 2},
		{"empty vector defaults to 0", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AssignCluster(tt.vec, clusters); got != tt.want {
				t.Errorf("AssignCluster(%v) = %d, want %d", tt.vec, got, tt.want)
			}
		})
	}
}

func TestAssignCluster_NoClusters(t *testing.T) {
	if got := AssignCluster([]float64{1, 2}, nil); got != 0 {
		t.Errorf("AssignCluster with no clusters = %d, want 0", got)
	}
}

func TestAssignCluster_TieBreaksToLowestID(t *testing.T) {
	clusters := map[int]*ClusterModel{
		3: {ID: 3, Centroid: []float64{1, 0}},
		7: {ID: 7, Centroid: []float64{-1, 0}},
	}
	// 与两个质心等距，取较小的簇 ID 保证可复现
	if got := AssignCluster([]float64{0, 0}, clusters); got != 3 {
		t.Errorf("AssignCluster tie = %d, want 3", got)
	}
}

func TestCentroidScorer_PredictVector(t *testing.T) {
	s := &CentroidScorer{Centroid: []float64{0.5, 0.5, 0.5}}

	// 与质心完全一致：cosine=1，distance=0 → 0.6 + 0.4 = 1.0
	if got := s.PredictVector([]float64{0.5, 0.5, 0.5}); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("identical vector score = %v, want 1.0", got)
	}

	// 越远分越低
	near := s.PredictVector([]float64{0.6, 0.5, 0.4})
	far := s.PredictVector([]float64{5, 0, 0})
	if near <= far {
		t.Errorf("closer vector should score higher: near=%v far=%v", near, far)
	}

	// 边界情况
	if got := s.PredictVector(nil); got != 0 {
		t.Errorf("empty vector score = %v, want 0", got)
	}
	empty := &CentroidScorer{}
	if got := empty.PredictVector([]float64{1}); got != 0 {
		t.Errorf("empty centroid score = %v, want 0", got)
	}
}

func TestSet_Accessors(t *testing.T) {
	var nilSet *Set
	if !nilSet.Empty() {
		t.Error("nil set should be empty")
	}
	if nilSet.Cluster(0) != nil || nilSet.Ranker(0) != nil {
		t.Error("nil set accessors should return nil")
	}

	set := &Set{
		Clusters: map[int]*ClusterModel{0: {ID: 0, Centroid: []float64{1}}},
		Rankers:  map[int]*StumpEnsemble{},
	}
	if set.Empty() {
		t.Error("set with clusters should not be empty")
	}
	if set.Cluster(0) == nil {
		t.Error("Cluster(0) should exist")
	}
	if set.Ranker(0) != nil {
		t.Error("Ranker(0) should be nil when the cluster had too few examples")
	}
}
