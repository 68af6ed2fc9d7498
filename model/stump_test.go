package model

import (
	"math"
	"testing"
)

func TestStump_Predict(t *testing.T) {
	s := &Stump{FeatureIndex: 1, Threshold: 0.5, LeftValue: 0.2, RightValue: 0.8}

	tests := []struct {
		name string
		vec  []float64
		want float64
	}{
		{"below threshold goes left", []float64{0, 0.3}, 0.2},
		{"at threshold goes left", []float64{0, 0.5}, 0.2},
		{"above threshold goes right", []float64{0, 0.7}, 0.8},
		{"feature index out of range goes left", []float64{0}, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Predict(tt.vec); got != tt.want {
				t.Errorf("Predict(%v) = %v, want %v", tt.vec, got, tt.want)
			}
		})
	}
}

func TestFitStump_FindsSeparatingSplit(t *testing.T) {
	// Feature 0 is noise, feature 1 cleanly separates the two label classes.
	examples := [][]float64{
		{0.9, 0.1},
		{0.1, 0.2},
		{0.5, 0.8},
		{0.4, 0.9},
	}
	labels := []float64{0.2, 0.2, 1.0, 1.0}

	s := FitStump(examples, labels)
	if s == nil {
		t.Fatal("FitStump() = nil")
	}
	if s.FeatureIndex != 1 {
		t.Errorf("FeatureIndex = %d, want 1", s.FeatureIndex)
	}
	if s.Threshold <= 0.2 || s.Threshold >= 0.8 {
		t.Errorf("Threshold = %v, want between the two label groups", s.Threshold)
	}

	// Both leaves carry the mean of this round's labels.
	wantMean := 0.6
	if math.Abs(s.LeftValue-wantMean) > 1e-9 || math.Abs(s.RightValue-wantMean) > 1e-9 {
		t.Errorf("leaf values = (%v, %v), want both %v", s.LeftValue, s.RightValue, wantMean)
	}
}

func TestFitStump_EmptyInput(t *testing.T) {
	if s := FitStump(nil, nil); s != nil {
		t.Errorf("FitStump(nil) = %+v, want nil", s)
	}
	if s := FitStump([][]float64{{1}}, []float64{0.1, 0.2}); s != nil {
		t.Errorf("FitStump with mismatched lengths = %+v, want nil", s)
	}
}

func TestGiniImpurity(t *testing.T) {
	tests := []struct {
		name   string
		labels []float64
		want   float64
	}{
		{"pure labels", []float64{1, 1, 1}, 0},
		{"even two-class split", []float64{0.2, 0.2, 1, 1}, 0.5},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := giniImpurity(tt.labels); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("giniImpurity(%v) = %v, want %v", tt.labels, got, tt.want)
			}
		})
	}
}

func TestFitEnsemble_ResidualDecay(t *testing.T) {
	// Both leaves take the residual mean, so each round shrinks the mean
	// residual by the learning rate. For uniform labels the prediction
	// after n rounds is exactly 1-(1-lr)^n times the label.
	examples := [][]float64{{0.1}, {0.5}, {0.9}}
	labels := []float64{1, 1, 1}

	e := FitEnsemble(examples, labels, 10, 0.1)
	if e == nil {
		t.Fatal("FitEnsemble() = nil")
	}
	if len(e.Trees) != 10 {
		t.Fatalf("len(Trees) = %d, want 10", len(e.Trees))
	}

	want := 1 - math.Pow(0.9, 10)
	got := e.Predict([]float64{0.5})
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Predict() = %v, want %v", got, want)
	}
}

func TestStumpEnsemble_Predict_Bounds(t *testing.T) {
	e := &StumpEnsemble{
		Trees: []Stump{
			{FeatureIndex: 0, Threshold: 0.5, LeftValue: 5, RightValue: 5},
			{FeatureIndex: 0, Threshold: 0.5, LeftValue: 5, RightValue: 5},
		},
		LearningRate: 2,
	}
	if got := e.Predict([]float64{0.1}); got != 1 {
		t.Errorf("Predict() = %v, want clamped to 1", got)
	}

	var nilEnsemble *StumpEnsemble
	if got := nilEnsemble.Predict([]float64{0.1}); got != 0 {
		t.Errorf("nil ensemble Predict() = %v, want 0", got)
	}
}
