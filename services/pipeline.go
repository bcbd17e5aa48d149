package services

import (
	"context"
	"errors"
	"log/slog"

	"equipment-analytics-api/config"
	"equipment-analytics-api/history"
	"equipment-analytics-api/ml"
)

// NewTrainer applies the training settings on top of the defaults. Zero
// values keep the default.
func NewTrainer(cfg config.TrainingConfig) ml.Trainer {
	t := ml.DefaultTrainer()
	t.Seed = cfg.Seed
	if cfg.MinRows > 0 {
		t.MinRows = cfg.MinRows
	}
	if cfg.Trees > 0 {
		t.Trees = cfg.Trees
	}
	if cfg.MaxDepth > 0 {
		t.MaxDepth = cfg.MaxDepth
	}
	return t
}

// Pipeline is the service graph shared by the API and the collector.
type Pipeline struct {
	Cache       *CacheService
	Analysis    *AnalysisService
	Predictions *PredictionService
	Reports     *ReportService

	closers []func() error
}

// NewPipeline wires the services over store. Redis, object storage and the
// broker are optional: a failure to reach one is logged and the pipeline
// runs without it.
func NewPipeline(ctx context.Context, cfg *config.Config, store history.Store, logger *slog.Logger) *Pipeline {
	p := &Pipeline{Cache: NewCacheServiceFromClient(nil)}

	if cfg.Redis.Enabled {
		cache, err := NewCacheService(cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis unavailable, running without cache and live updates", "error", err)
		} else {
			p.Cache = cache
			p.closers = append(p.closers, cache.Close)
		}
	}

	p.Reports = NewReportService(store, p.Cache, cfg.Redis.ReportTTL, logger)
	p.Predictions = NewPredictionService(store, logger)
	p.Analysis = NewAnalysisService(store, NewTrainer(cfg.Training), logger).WithReports(p.Reports)

	var publishers MultiPublisher
	if p.Cache.Available() {
		publishers = append(publishers, NewRedisEventPublisher(p.Cache))
	}
	if cfg.Broker.URL != "" {
		broker, err := NewBrokerPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events stay local", "error", err)
		} else {
			publishers = append(publishers, broker)
			p.closers = append(p.closers, broker.Close)
		}
	}
	if len(publishers) > 0 {
		p.Analysis.WithEvents(publishers)
	}

	if cfg.Storage.Endpoint != "" {
		archive, err := NewObjectArchive(ctx, cfg.Storage)
		if err != nil {
			logger.Warn("object storage unavailable, uploads are not archived", "error", err)
		} else {
			p.Analysis.WithArchive(archive)
		}
	}

	return p
}

func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
