package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"equipment-analytics-api/analytics"
)

// Trainer fits the per-dataset models. The zero value is not usable; start
// from DefaultTrainer.
type Trainer struct {
	Seed         uint64
	TestFraction float64
	MinRows      int
	Trees        int
	MaxDepth     int
}

func DefaultTrainer() Trainer {
	return Trainer{
		Seed:         42,
		TestFraction: 0.2,
		MinRows:      10,
		Trees:        100,
		MaxDepth:     10,
	}
}

const classificationTarget = "classification"

// Train fits three regressors and the type classifier on records, which
// should already be outlier-filtered. It never fails: a target that cannot be
// trained is left out of the bundle and recorded in Metrics.Unavailable.
func (t Trainer) Train(records []analytics.Record) (*Bundle, Metrics) {
	encoder := NewLabelEncoder(analytics.Categories(records))
	bundle := &Bundle{
		Encoder:    encoder,
		Regressors: make(map[analytics.Measurement]*CategoryRegressor),
	}
	metrics := Metrics{
		TotalSamples:   len(records),
		EquipmentTypes: append([]string(nil), encoder.Classes...),
	}

	if len(records) < t.MinRows || len(records) < 2 {
		for _, m := range analytics.Measurements {
			metrics.markUnavailable(string(m), ReasonInsufficientSamples)
		}
		metrics.markUnavailable(classificationTarget, ReasonInsufficientSamples)
		return bundle, metrics
	}

	codes, err := encoder.EncodeAll(analytics.Categories(records))
	if err != nil {
		for _, m := range analytics.Measurements {
			metrics.markUnavailable(string(m), ReasonTrainingFailed)
		}
		metrics.markUnavailable(classificationTarget, ReasonTrainingFailed)
		return bundle, metrics
	}

	train, test := splitIndices(codes, t.TestFraction, rand.New(rand.NewPCG(t.Seed, 0)))
	metrics.TrainingSamples = len(train)
	metrics.TestSamples = len(test)

	for i, m := range analytics.Measurements {
		rng := rand.New(rand.NewPCG(t.Seed, uint64(i+1)))
		var reg *CategoryRegressor
		var rm *RegressionMetrics
		err := guard(func() error {
			var err error
			reg, rm, err = t.fitRegressor(records, codes, m, train, test, encoder, rng)
			return err
		})
		if err != nil {
			metrics.markUnavailable(string(m), ReasonTrainingFailed)
			continue
		}
		bundle.Regressors[m] = reg
		metrics.setRegression(m, rm)
	}

	var clf *ForestClassifier
	var cm *ClassificationMetrics
	err = guard(func() error {
		var err error
		clf, cm, err = t.fitClassifier(records, codes, train, test, encoder, rand.New(rand.NewPCG(t.Seed, 4)))
		return err
	})
	switch {
	case errors.Is(err, errSingleCategory):
		metrics.markUnavailable(classificationTarget, ReasonSingleCategory)
	case err != nil:
		metrics.markUnavailable(classificationTarget, ReasonTrainingFailed)
	default:
		bundle.TypeClassifier = clf
		metrics.Classification = cm
	}

	return bundle, metrics
}

func (t Trainer) fitRegressor(records []analytics.Record, codes []int, m analytics.Measurement, train, test []int, encoder *LabelEncoder, rng *rand.Rand) (*CategoryRegressor, *RegressionMetrics, error) {
	y := analytics.Column(records, m)

	trainCodes := pick(codes, train)
	trainX := make([][]float64, len(train))
	trainXs := make([]float64, len(train))
	for i, c := range trainCodes {
		trainX[i] = []float64{float64(c)}
		trainXs[i] = float64(c)
	}
	trainY := pick(y, train)
	testY := pick(y, test)

	candidates := make([]*CategoryRegressor, 0, len(regressorKinds))
	for _, kind := range regressorKinds {
		r := &CategoryRegressor{Kind: kind, encoder: encoder}
		switch kind {
		case KindCategoryMean:
			r.Means = fitCategoryMean(trainCodes, trainY, encoder.Len())
		case KindLinear:
			lm := fitLinear(trainXs, trainY)
			r.Linear = &lm
		case KindForest:
			r.Forest = fitForest(trainX, trainY, treeConfig{
				maxDepth:    t.MaxDepth,
				minSplit:    2,
				maxFeatures: 1,
			}, t.Trees, rng)
		}
		candidates = append(candidates, r)
	}

	var best *CategoryRegressor
	var bestMetrics *RegressionMetrics
	for _, r := range candidates {
		pred := make([]float64, len(test))
		for i, row := range test {
			pred[i] = r.predictCode(codes[row])
		}
		rm := &RegressionMetrics{
			R2:    R2(testY, pred),
			RMSE:  RMSE(testY, pred),
			MAE:   MAE(testY, pred),
			MSE:   MSE(testY, pred),
			Model: r.Kind,
		}
		if !finite(rm.R2, rm.RMSE, rm.MAE, rm.MSE) {
			continue
		}
		if best == nil || rm.R2 > bestMetrics.R2 {
			best, bestMetrics = r, rm
		}
	}
	if best == nil {
		return nil, nil, fmt.Errorf("%s: no candidate produced finite metrics", m)
	}
	return best, bestMetrics, nil
}

var errSingleCategory = errors.New("training partition holds a single category")

func (t Trainer) fitClassifier(records []analytics.Record, codes []int, train, test []int, encoder *LabelEncoder, rng *rand.Rand) (*ForestClassifier, *ClassificationMetrics, error) {
	seen := make(map[int]struct{})
	for _, row := range train {
		seen[codes[row]] = struct{}{}
	}
	if len(seen) < 2 {
		return nil, nil, errSingleCategory
	}

	x := make([][]float64, len(train))
	y := make([]float64, len(train))
	for i, row := range train {
		x[i] = records[row].Features()
		y[i] = float64(codes[row])
	}

	maxFeatures := int(math.Sqrt(float64(len(analytics.Measurements))))
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	forest := fitForest(x, y, treeConfig{
		maxDepth:    t.MaxDepth,
		minSplit:    2,
		maxFeatures: maxFeatures,
		nClasses:    encoder.Len(),
	}, t.Trees, rng)
	clf := &ForestClassifier{Forest: forest, encoder: encoder}

	actual := make([]int, len(test))
	predicted := make([]int, len(test))
	for i, row := range test {
		actual[i] = codes[row]
		predicted[i], _ = forest.PredictClass(records[row].Features())
	}

	return clf, &ClassificationMetrics{
		Accuracy:        Accuracy(actual, predicted),
		KnownCategories: append([]string(nil), encoder.Classes...),
		CategoriesSeen:  len(seen),
		ConfusionMatrix: ConfusionMatrix(actual, predicted, encoder.Len()),
	}, nil
}

// guard turns a panic inside one target's fit into an error so the other
// targets still train.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("training panicked: %v", r)
		}
	}()
	return fn()
}

func pick[T any](values []T, rows []int) []T {
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = values[r]
	}
	return out
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
