package ml

// Regressor predicts one measurement from an equipment category.
type Regressor interface {
	Predict(category string) (float64, error)
}

// RegressorKind names the technique a CategoryRegressor uses.
type RegressorKind string

const (
	KindCategoryMean RegressorKind = "category_mean"
	KindLinear       RegressorKind = "linear"
	KindForest       RegressorKind = "forest"
)

// regressorKinds is the candidate order; earlier kinds win R² ties.
var regressorKinds = []RegressorKind{KindCategoryMean, KindLinear, KindForest}

// CategoryRegressor maps the encoded category to a measurement using one of
// the techniques above. Only the field matching Kind is set.
type CategoryRegressor struct {
	Kind   RegressorKind `json:"kind"`
	Means  []float64     `json:"means,omitempty"`
	Linear *LinearModel  `json:"linear,omitempty"`
	Forest *Forest       `json:"forest,omitempty"`

	encoder *LabelEncoder
}

// Predict returns the expected value for category, or an UnknownCategoryError
// when the category is not in the training encoder.
func (r *CategoryRegressor) Predict(category string) (float64, error) {
	code, err := r.encoder.Encode(category)
	if err != nil {
		return 0, err
	}
	return r.predictCode(code), nil
}

func (r *CategoryRegressor) predictCode(code int) float64 {
	switch r.Kind {
	case KindCategoryMean:
		return r.Means[code]
	case KindLinear:
		return r.Linear.Predict(float64(code))
	case KindForest:
		return r.Forest.PredictValue([]float64{float64(code)})
	}
	return 0
}

// fitCategoryMean stores the training mean of each class. Classes missing
// from the training rows fall back to the overall training mean.
func fitCategoryMean(codes []int, y []float64, nClasses int) []float64 {
	sums := make([]float64, nClasses)
	counts := make([]int, nClasses)
	var total float64
	for i, c := range codes {
		sums[c] += y[i]
		counts[c]++
		total += y[i]
	}
	fallback := 0.0
	if len(y) > 0 {
		fallback = total / float64(len(y))
	}
	means := make([]float64, nClasses)
	for c := range means {
		if counts[c] == 0 {
			means[c] = fallback
			continue
		}
		means[c] = sums[c] / float64(counts[c])
	}
	return means
}
