package ml

import (
	"gonum.org/v1/gonum/stat"
)

// LinearModel is y = Alpha + Beta*x.
type LinearModel struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

func fitLinear(x, y []float64) LinearModel {
	if len(x) < 2 || stat.Variance(x, nil) == 0 {
		return LinearModel{Alpha: stat.Mean(y, nil)}
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return LinearModel{Alpha: alpha, Beta: beta}
}

func (m LinearModel) Predict(x float64) float64 {
	return m.Alpha + m.Beta*x
}
