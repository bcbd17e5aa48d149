package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"equipment-analytics-api/analytics"
	"equipment-analytics-api/history"
	"equipment-analytics-api/ml"
	"equipment-analytics-api/models"
)

// AnalysisService runs the ingestion pipeline and owns the history side
// effects: report cache invalidation, events and upload archiving.
type AnalysisService struct {
	store   history.Store
	trainer ml.Trainer
	reports *ReportService
	events  EventPublisher
	archive Archiver
	logger  *slog.Logger
	now     func() time.Time
}

func NewAnalysisService(store history.Store, trainer ml.Trainer, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		store:   store,
		trainer: trainer,
		logger:  logger.With("component", "analysis"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *AnalysisService) WithReports(r *ReportService) *AnalysisService {
	s.reports = r
	return s
}

func (s *AnalysisService) WithEvents(p EventPublisher) *AnalysisService {
	s.events = p
	return s
}

func (s *AnalysisService) WithArchive(a Archiver) *AnalysisService {
	s.archive = a
	return s
}

// Ingest validates, summarises and trains on one upload, then stores it. The
// dataset is persisted only after every stage has completed; validation errors
// and cancellation leave the history untouched.
func (s *AnalysisService) Ingest(ctx context.Context, owner uint, filename string, data []byte) (*models.Dataset, error) {
	records, err := analytics.ParseCSV(bytes.NewReader(data))
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	summary, err := analytics.Summarize(records)
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		uploadsTotal.WithLabelValues("cancelled").Inc()
		return nil, err
	}

	filtered := analytics.FilterOutliers(records)

	start := time.Now()
	bundle, metrics := s.trainer.Train(filtered)
	trainingDuration.Observe(time.Since(start).Seconds())
	metrics.OutliersRemoved = len(records) - len(filtered)
	for target, reason := range metrics.Unavailable {
		degradedTargets.WithLabelValues(target, reason).Inc()
	}

	if err := ctx.Err(); err != nil {
		uploadsTotal.WithLabelValues("cancelled").Inc()
		return nil, err
	}

	d, err := models.NewDataset(owner, filename, records, summary, metrics, bundle)
	if err != nil {
		uploadsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	d.UploadedAt = s.now()

	evicted, err := s.store.Put(ctx, d)
	if err != nil {
		uploadsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("store dataset: %w", err)
	}
	uploadsTotal.WithLabelValues("stored").Inc()
	datasetsEvicted.Add(float64(len(evicted)))

	s.logger.Info("dataset analysed",
		"owner", owner,
		"dataset_id", d.ID,
		"rows", len(records),
		"outliers_removed", metrics.OutliersRemoved,
		"unavailable", len(metrics.Unavailable),
		"evicted", len(evicted),
		"elapsed_seconds", time.Since(start).Seconds(),
	)

	s.afterPut(context.WithoutCancel(ctx), d, evicted, data)
	return d, nil
}

// afterPut runs the best-effort side effects of a committed upload. Failures
// are logged; the dataset is already stored.
func (s *AnalysisService) afterPut(ctx context.Context, d *models.Dataset, evicted []uint64, data []byte) {
	for _, id := range evicted {
		s.forget(ctx, d.OwnerID, id)
	}

	if s.archive != nil {
		if err := s.archive.Archive(ctx, d.OwnerID, d.ID, d.Filename, data); err != nil {
			s.logger.Warn("archive upload failed", "dataset_id", d.ID, "error", err)
		}
	}

	s.publish(ctx, AnalysisEvent{
		Type:       EventAnalysisCreated,
		DatasetID:  d.ID,
		OwnerID:    d.OwnerID,
		Filename:   d.Filename,
		RowCount:   d.RowCount,
		EvictedIDs: evicted,
		At:         d.UploadedAt,
	})
}

func (s *AnalysisService) List(ctx context.Context, owner uint) ([]models.Dataset, error) {
	return s.store.List(ctx, owner)
}

func (s *AnalysisService) Get(ctx context.Context, owner uint, id uint64) (*models.Dataset, error) {
	return s.store.Get(ctx, owner, id)
}

func (s *AnalysisService) Delete(ctx context.Context, owner uint, id uint64) error {
	if err := s.store.Delete(ctx, owner, id); err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	s.forget(ctx, owner, id)
	s.publish(ctx, AnalysisEvent{
		Type:      EventAnalysisDeleted,
		DatasetID: id,
		OwnerID:   owner,
		At:        s.now(),
	})
	return nil
}

// forget drops everything kept outside the store for a removed dataset.
func (s *AnalysisService) forget(ctx context.Context, owner uint, id uint64) {
	if s.reports != nil {
		if err := s.reports.Invalidate(ctx, owner, id); err != nil {
			s.logger.Warn("report cache invalidation failed", "dataset_id", id, "error", err)
		}
	}
	if s.archive != nil {
		if err := s.archive.Remove(ctx, owner, id); err != nil {
			s.logger.Warn("archive removal failed", "dataset_id", id, "error", err)
		}
	}
}

func (s *AnalysisService) publish(ctx context.Context, ev AnalysisEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		eventsFailed.Inc()
		s.logger.Warn("publish event failed", "type", ev.Type, "dataset_id", ev.DatasetID, "error", err)
	}
}
