package ml

import (
	"fmt"
	"math"

	"equipment-analytics-api/analytics"
)

// Classifier predicts the equipment category from the three measurements.
type Classifier interface {
	Classify(flowrate, pressure, temperature float64) (Classification, error)
}

// Classification is the outcome of one Classify call. Confidence is the
// averaged probability of the predicted category.
type Classification struct {
	Category      string             `json:"predicted_type"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// ForestClassifier is a random forest over (flowrate, pressure, temperature).
type ForestClassifier struct {
	Forest *Forest `json:"forest"`

	encoder *LabelEncoder
}

func (c *ForestClassifier) Classify(flowrate, pressure, temperature float64) (Classification, error) {
	x := []float64{flowrate, pressure, temperature}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Classification{}, fmt.Errorf("%s must be a finite number", analytics.Measurements[i])
		}
	}

	probs := c.Forest.PredictProba(x)
	out := Classification{Probabilities: make(map[string]float64, len(probs))}
	best := 0
	for code, p := range probs {
		out.Probabilities[c.encoder.Decode(code)] = p
		if p > probs[best] {
			best = code
		}
	}
	out.Category = c.encoder.Decode(best)
	out.Confidence = probs[best]
	return out, nil
}
