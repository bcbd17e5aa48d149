package ml

import (
	"encoding/json"
	"fmt"

	"equipment-analytics-api/analytics"
)

// Bundle owns every model trained for one dataset. It is immutable once Train
// returns and is persisted as a single JSON document.
type Bundle struct {
	Encoder        *LabelEncoder                                `json:"encoder"`
	Regressors     map[analytics.Measurement]*CategoryRegressor `json:"regressors,omitempty"`
	TypeClassifier *ForestClassifier                            `json:"classifier,omitempty"`
}

// Regressor returns the model for m if it was trained.
func (b *Bundle) Regressor(m analytics.Measurement) (Regressor, bool) {
	if b == nil {
		return nil, false
	}
	r, ok := b.Regressors[m]
	if !ok || r == nil {
		return nil, false
	}
	return r, true
}

// Classifier returns the type classifier if it was trained.
func (b *Bundle) Classifier() (Classifier, bool) {
	if b == nil || b.TypeClassifier == nil {
		return nil, false
	}
	return b.TypeClassifier, true
}

// Trained reports whether at least one model is present.
func (b *Bundle) Trained() bool {
	return b != nil && (len(b.Regressors) > 0 || b.TypeClassifier != nil)
}

// KnownCategories lists the categories the models were trained on, sorted.
func (b *Bundle) KnownCategories() []string {
	if b == nil || b.Encoder == nil {
		return nil
	}
	return append([]string(nil), b.Encoder.Classes...)
}

func (b *Bundle) Knows(category string) bool {
	if b == nil || b.Encoder == nil {
		return false
	}
	_, err := b.Encoder.Encode(category)
	return err == nil
}

func (b *Bundle) Encode() ([]byte, error) {
	return json.Marshal(b)
}

// DecodeBundle restores a bundle written by Encode and relinks every model to
// the shared encoder.
func DecodeBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode model bundle: %w", err)
	}
	if b.Encoder == nil {
		b.Encoder = &LabelEncoder{}
	}
	b.link()
	return &b, nil
}

func (b *Bundle) link() {
	for _, r := range b.Regressors {
		r.encoder = b.Encoder
	}
	if b.TypeClassifier != nil {
		b.TypeClassifier.encoder = b.Encoder
	}
}

// Importance lists per-feature importances of one model.
type Importance struct {
	Features   []string  `json:"features"`
	Importance []float64 `json:"importance"`
}

// FeatureImportance reports impurity-based importances for every forest in
// the bundle, keyed by target ("flowrate", ..., "classification").
func (b *Bundle) FeatureImportance() map[string]Importance {
	out := make(map[string]Importance)
	if b == nil {
		return out
	}
	for _, m := range analytics.Measurements {
		r, ok := b.Regressors[m]
		if !ok || r.Forest == nil {
			continue
		}
		out[string(m)] = Importance{
			Features:   []string{analytics.ColumnType},
			Importance: append([]float64(nil), r.Forest.Importance...),
		}
	}
	if b.TypeClassifier != nil {
		out["classification"] = Importance{
			Features:   []string{analytics.ColumnFlowrate, analytics.ColumnPressure, analytics.ColumnTemperature},
			Importance: append([]float64(nil), b.TypeClassifier.Forest.Importance...),
		}
	}
	return out
}
