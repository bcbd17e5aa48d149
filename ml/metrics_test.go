package ml

import (
	"math"
	"testing"
)

func TestRegressionMetrics(t *testing.T) {
	actual := []float64{3, -0.5, 2, 7}
	predicted := []float64{2.5, 0, 2, 8}

	if got := MSE(actual, predicted); math.Abs(got-0.375) > 1e-12 {
		t.Errorf("MSE = %v, want 0.375", got)
	}
	if got := RMSE(actual, predicted); math.Abs(got-math.Sqrt(0.375)) > 1e-12 {
		t.Errorf("RMSE = %v", got)
	}
	if got := MAE(actual, predicted); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("MAE = %v, want 0.5", got)
	}
	if got := R2(actual, predicted); math.Abs(got-0.9486081370449679) > 1e-9 {
		t.Errorf("R2 = %v, want 0.9486", got)
	}
}

func TestR2EdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		actual    []float64
		predicted []float64
		want      float64
	}{
		{"perfect fit", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"constant target matched", []float64{4, 4}, []float64{4, 4}, 1},
		{"constant target missed", []float64{4, 4}, []float64{4, 5}, 0},
		{"single sample matched", []float64{2}, []float64{2}, 1},
		{"worse than mean", []float64{1, 2, 3}, []float64{3, 2, 1}, -3},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := R2(tt.actual, tt.predicted); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("R2 = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccuracyAndConfusionMatrix(t *testing.T) {
	actual := []int{0, 0, 1, 1, 2}
	predicted := []int{0, 1, 1, 1, 0}

	if got := Accuracy(actual, predicted); got != 0.6 {
		t.Errorf("Accuracy = %v, want 0.6", got)
	}

	cm := ConfusionMatrix(actual, predicted, 3)
	want := [][]int{{1, 1, 0}, {0, 2, 0}, {1, 0, 0}}
	for i := range want {
		for j := range want[i] {
			if cm[i][j] != want[i][j] {
				t.Errorf("cm[%d][%d] = %d, want %d", i, j, cm[i][j], want[i][j])
			}
		}
	}
}
