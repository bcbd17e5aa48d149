package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"equipment-analytics-api/analytics"
)

// RegressionMetrics are held-out scores of one regressor.
type RegressionMetrics struct {
	R2    float64       `json:"r2"`
	RMSE  float64       `json:"rmse"`
	MAE   float64       `json:"mae"`
	MSE   float64       `json:"mse"`
	Model RegressorKind `json:"model"`
}

// ClassificationMetrics are held-out scores of the type classifier.
// ConfusionMatrix rows are actual classes, columns predicted, both in
// KnownCategories order.
type ClassificationMetrics struct {
	Accuracy        float64  `json:"accuracy"`
	KnownCategories []string `json:"known_categories"`
	CategoriesSeen  int      `json:"categories_seen"`
	ConfusionMatrix [][]int  `json:"confusion_matrix"`
}

// Metrics is computed once by Train and stored alongside the dataset. A nil
// target means its model was skipped; Unavailable says why.
type Metrics struct {
	Flowrate        *RegressionMetrics     `json:"flowrate"`
	Pressure        *RegressionMetrics     `json:"pressure"`
	Temperature     *RegressionMetrics     `json:"temperature"`
	Classification  *ClassificationMetrics `json:"classification"`
	TrainingSamples int                    `json:"training_samples"`
	TestSamples     int                    `json:"test_samples"`
	TotalSamples    int                    `json:"total_samples"`
	OutliersRemoved int                    `json:"outliers_removed"`
	EquipmentTypes  []string               `json:"equipment_types"`
	Unavailable     map[string]string      `json:"unavailable,omitempty"`
}

// Regression returns the metrics for m, nil when that regressor was skipped.
func (m Metrics) Regression(meas analytics.Measurement) *RegressionMetrics {
	switch meas {
	case analytics.Flowrate:
		return m.Flowrate
	case analytics.Pressure:
		return m.Pressure
	case analytics.Temperature:
		return m.Temperature
	}
	return nil
}

func (m *Metrics) setRegression(meas analytics.Measurement, rm *RegressionMetrics) {
	switch meas {
	case analytics.Flowrate:
		m.Flowrate = rm
	case analytics.Pressure:
		m.Pressure = rm
	case analytics.Temperature:
		m.Temperature = rm
	}
}

func (m *Metrics) markUnavailable(target, reason string) {
	if m.Unavailable == nil {
		m.Unavailable = make(map[string]string)
	}
	m.Unavailable[target] = reason
}

// MSE is the mean squared error.
func MSE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return sum / float64(len(actual))
}

func RMSE(actual, predicted []float64) float64 {
	return math.Sqrt(MSE(actual, predicted))
}

// MAE is the mean absolute error.
func MAE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	return floats.Distance(actual, predicted, 1) / float64(len(actual))
}

// R2 is the coefficient of determination of predicted against actual. When
// actual has no variance it is 1 for a perfect fit and 0 otherwise.
func R2(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	if len(actual) < 2 || stat.Variance(actual, nil) == 0 {
		if floats.Distance(actual, predicted, math.Inf(1)) == 0 {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(predicted, actual, nil)
}

// Accuracy is the share of exact label matches.
func Accuracy(actual, predicted []int) float64 {
	if len(actual) == 0 {
		return 0
	}
	hits := 0
	for i := range actual {
		if actual[i] == predicted[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(actual))
}

// ConfusionMatrix counts (actual, predicted) pairs over k classes.
func ConfusionMatrix(actual, predicted []int, k int) [][]int {
	m := make([][]int, k)
	for i := range m {
		m[i] = make([]int, k)
	}
	for i := range actual {
		if actual[i] < k && predicted[i] < k {
			m[actual[i]][predicted[i]]++
		}
	}
	return m
}
