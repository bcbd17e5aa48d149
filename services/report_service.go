package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"equipment-analytics-api/analytics"
	"equipment-analytics-api/history"
	"equipment-analytics-api/ml"
	"equipment-analytics-api/models"
)

// ReportPayload is everything an external renderer needs to lay out a
// dataset report. It is a selection of stored data; nothing is recomputed.
type ReportPayload struct {
	Dataset        ReportDataset      `json:"dataset"`
	Summary        analytics.Summary  `json:"summary"`
	CategoryCounts map[string]int     `json:"category_counts"`
	Metrics        ml.Metrics         `json:"metrics"`
	RawRecords     []analytics.Record `json:"raw_records"`
	Charts         ChartSeries        `json:"charts"`
}

type ReportDataset struct {
	ID         uint64    `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
	RowCount   int       `json:"row_count"`
}

// ChartSeries holds chart-ready views of the stored data. Category series are
// in lexical category order; the trend keeps input row order.
type ChartSeries struct {
	Distribution []CategoryCount   `json:"type_distribution"`
	Averages     []CategoryAverage `json:"type_averages"`
	Trend        TrendSeries       `json:"trend"`
}

type CategoryCount struct {
	Category string `json:"type"`
	Count    int    `json:"count"`
}

type CategoryAverage struct {
	Category    string  `json:"type"`
	Flowrate    float64 `json:"flowrate"`
	Pressure    float64 `json:"pressure"`
	Temperature float64 `json:"temperature"`
}

type TrendSeries struct {
	Sample      []int     `json:"sample"`
	Flowrate    []float64 `json:"flowrate"`
	Pressure    []float64 `json:"pressure"`
	Temperature []float64 `json:"temperature"`
}

// ReportService assembles report payloads and caches their encoded form.
type ReportService struct {
	store  history.Store
	cache  *CacheService
	ttl    time.Duration
	logger *slog.Logger
}

func NewReportService(store history.Store, cache *CacheService, ttl time.Duration, logger *slog.Logger) *ReportService {
	return &ReportService{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With("component", "report"),
	}
}

func reportCacheKey(owner uint, id uint64) string {
	return fmt.Sprintf("equiviz:report:%d:%d", owner, id)
}

// Assemble builds the payload of one dataset.
func (s *ReportService) Assemble(ctx context.Context, owner uint, id uint64) (*ReportPayload, error) {
	d, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return buildReport(d), nil
}

// AssembleJSON returns the encoded payload. The store is consulted on every
// call, so a deleted or foreign dataset is NotFound even while a cache entry
// for it survives; the cache only saves the encoding. Stored datasets are
// immutable and ids are never reused, so a cached body is always current.
// Repeated calls without an intervening change return identical bytes.
func (s *ReportService) AssembleJSON(ctx context.Context, owner uint, id uint64) ([]byte, error) {
	d, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	key := reportCacheKey(owner, id)
	if data, ok, err := s.cache.GetBytes(ctx, key); err != nil {
		s.logger.Warn("report cache read failed", "dataset_id", id, "error", err)
	} else if ok {
		return data, nil
	}

	data, err := json.Marshal(buildReport(d))
	if err != nil {
		return nil, fmt.Errorf("encode report %d: %w", id, err)
	}

	if err := s.cache.SetBytes(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn("report cache write failed", "dataset_id", id, "error", err)
	}
	return data, nil
}

func (s *ReportService) Invalidate(ctx context.Context, owner uint, id uint64) error {
	return s.cache.Delete(ctx, reportCacheKey(owner, id))
}

func buildReport(d *models.Dataset) *ReportPayload {
	summary := d.Summary.Data()
	records := d.RawRecords.Data()
	if records == nil {
		records = []analytics.Record{}
	}

	p := &ReportPayload{
		Dataset: ReportDataset{
			ID:         d.ID,
			Filename:   d.Filename,
			UploadedAt: d.UploadedAt,
			RowCount:   d.RowCount,
		},
		Summary:        summary,
		CategoryCounts: d.CategoryCounts.Data(),
		Metrics:        d.Metrics.Data(),
		RawRecords:     records,
	}

	for _, name := range summary.CategoryNames() {
		p.Charts.Distribution = append(p.Charts.Distribution, CategoryCount{
			Category: name,
			Count:    summary.CategoryCounts[name],
		})
		cs := summary.Categories[name]
		p.Charts.Averages = append(p.Charts.Averages, CategoryAverage{
			Category:    name,
			Flowrate:    cs.Flowrate.Mean,
			Pressure:    cs.Pressure.Mean,
			Temperature: cs.Temperature.Mean,
		})
	}

	p.Charts.Trend = TrendSeries{
		Sample:      make([]int, len(records)),
		Flowrate:    analytics.Column(records, analytics.Flowrate),
		Pressure:    analytics.Column(records, analytics.Pressure),
		Temperature: analytics.Column(records, analytics.Temperature),
	}
	for i := range records {
		p.Charts.Trend.Sample[i] = i + 1
	}
	return p
}
