package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"equipment-analytics-api/analytics"
	"equipment-analytics-api/history"
	"equipment-analytics-api/ml"
	"equipment-analytics-api/models"
)

// PredictionResult holds the expected measurements of one category. A nil
// value means the target has no model; Unavailable gives the reason.
type PredictionResult struct {
	DatasetID            uint64            `json:"source_dataset_id"`
	Category             string            `json:"equipment_type"`
	PredictedFlowrate    *float64          `json:"predicted_flowrate"`
	PredictedPressure    *float64          `json:"predicted_pressure"`
	PredictedTemperature *float64          `json:"predicted_temperature"`
	Unavailable          map[string]string `json:"unavailable,omitempty"`
	// ConfidenceR2 is the held-out R² of the model behind each predicted value.
	ConfidenceR2 map[string]float64 `json:"confidence_r2,omitempty"`
}

func (r *PredictionResult) set(m analytics.Measurement, v float64) {
	switch m {
	case analytics.Flowrate:
		r.PredictedFlowrate = &v
	case analytics.Pressure:
		r.PredictedPressure = &v
	case analytics.Temperature:
		r.PredictedTemperature = &v
	}
}

// DatasetPredictions groups the predictions made from one stored dataset.
type DatasetPredictions struct {
	DatasetID   uint64             `json:"dataset_id"`
	Filename    string             `json:"filename"`
	UploadedAt  time.Time          `json:"uploaded_at"`
	Predictions []PredictionResult `json:"predictions"`
}

// TypePrediction is the classifier's answer for one set of measurements.
type TypePrediction struct {
	DatasetID uint64 `json:"source_dataset_id"`
	ml.Classification
}

// reasonNotTrained covers targets missing from both the bundle and the
// stored metrics, which only happens for datasets written without models.
const reasonNotTrained = "not_trained"

type PredictionService struct {
	store  history.Store
	logger *slog.Logger
}

func NewPredictionService(store history.Store, logger *slog.Logger) *PredictionService {
	return &PredictionService{store: store, logger: logger.With("component", "prediction")}
}

func (s *PredictionService) load(ctx context.Context, owner uint, id uint64) (*models.Dataset, *ml.Bundle, error) {
	d, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return nil, nil, err
	}
	bundle, err := d.Bundle()
	if err != nil {
		return nil, nil, fmt.Errorf("dataset %d: %w", id, err)
	}
	return d, bundle, nil
}

// Predict answers with the expected measurements of category using the models
// trained on one dataset.
func (s *PredictionService) Predict(ctx context.Context, owner uint, datasetID uint64, category string) (*PredictionResult, error) {
	d, bundle, err := s.load(ctx, owner, datasetID)
	if err != nil {
		return nil, err
	}
	res, err := predictWith(d, bundle, category)
	if err != nil {
		return nil, err
	}
	predictionsServed.WithLabelValues("single").Inc()
	return res, nil
}

// PredictAll predicts every known category for each of the owner's datasets
// that trained at least one model, newest dataset first.
func (s *PredictionService) PredictAll(ctx context.Context, owner uint) ([]DatasetPredictions, error) {
	datasets, err := s.store.List(ctx, owner)
	if err != nil {
		return nil, err
	}

	out := make([]DatasetPredictions, 0, len(datasets))
	for i := range datasets {
		d := &datasets[i]
		bundle, err := d.Bundle()
		if err != nil {
			s.logger.Warn("skipping dataset with unreadable models", "dataset_id", d.ID, "error", err)
			continue
		}
		if !bundle.Trained() {
			continue
		}

		group := DatasetPredictions{
			DatasetID:  d.ID,
			Filename:   d.Filename,
			UploadedAt: d.UploadedAt,
		}
		for _, category := range bundle.KnownCategories() {
			res, err := predictWith(d, bundle, category)
			if err != nil {
				return nil, err
			}
			group.Predictions = append(group.Predictions, *res)
		}
		out = append(out, group)
	}
	predictionsServed.WithLabelValues("all").Inc()
	return out, nil
}

func predictWith(d *models.Dataset, bundle *ml.Bundle, category string) (*PredictionResult, error) {
	if !bundle.Knows(category) {
		return nil, &ml.UnknownCategoryError{Category: category}
	}

	metrics := d.Metrics.Data()
	res := &PredictionResult{DatasetID: d.ID, Category: category}
	for _, m := range analytics.Measurements {
		reg, ok := bundle.Regressor(m)
		if !ok {
			if res.Unavailable == nil {
				res.Unavailable = make(map[string]string)
			}
			reason := metrics.Unavailable[string(m)]
			if reason == "" {
				reason = reasonNotTrained
			}
			res.Unavailable[string(m)] = reason
			continue
		}
		v, err := reg.Predict(category)
		if err != nil {
			return nil, err
		}
		res.set(m, v)
		if rm := metrics.Regression(m); rm != nil {
			if res.ConfidenceR2 == nil {
				res.ConfidenceR2 = make(map[string]float64)
			}
			res.ConfidenceR2[string(m)] = rm.R2
		}
	}
	return res, nil
}

// ClassifyType predicts the equipment category of a set of measurements.
func (s *PredictionService) ClassifyType(ctx context.Context, owner uint, datasetID uint64, flowrate, pressure, temperature float64) (*TypePrediction, error) {
	d, bundle, err := s.load(ctx, owner, datasetID)
	if err != nil {
		return nil, err
	}

	clf, ok := bundle.Classifier()
	if !ok {
		reason := d.Metrics.Data().Unavailable["classification"]
		if reason == "" {
			reason = reasonNotTrained
		}
		return nil, &ml.ModelUnavailableError{Target: "classification", Reason: reason}
	}

	c, err := clf.Classify(flowrate, pressure, temperature)
	if err != nil {
		return nil, err
	}
	predictionsServed.WithLabelValues("type").Inc()
	return &TypePrediction{DatasetID: d.ID, Classification: c}, nil
}

// FeatureImportance reports the impurity importances of a dataset's forests.
func (s *PredictionService) FeatureImportance(ctx context.Context, owner uint, datasetID uint64) (map[string]ml.Importance, error) {
	_, bundle, err := s.load(ctx, owner, datasetID)
	if err != nil {
		return nil, err
	}
	fi := bundle.FeatureImportance()
	if len(fi) == 0 {
		return nil, &ml.ModelUnavailableError{Target: "feature_importance", Reason: "no forest models were trained"}
	}
	return fi, nil
}
