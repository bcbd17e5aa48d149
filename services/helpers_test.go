package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"equipment-analytics-api/history"
	"equipment-analytics-api/ml"
)

const sampleCSV = `Equipment Name,Type,Flowrate,Pressure,Temperature
Pump-1,Pump,120,5.2,110
Compressor-1,Compressor,95,8.4,95
Valve-1,Valve,60,4.1,105
HeatExchanger-1,HeatExchanger,150,6.8,120
Reactor-1,Reactor,200,9.2,150
Condenser-1,Condenser,80,4.5,85
`

// clusteredCSV has perType rows for each of Pump, Valve and Compressor.
func clusteredCSV(perType int) []byte {
	var b strings.Builder
	b.WriteString("Equipment Name,Type,Flowrate,Pressure,Temperature\n")
	for i := 0; i < perType; i++ {
		j := float64(i%4) - 1.5
		fmt.Fprintf(&b, "Pump-%d,Pump,%g,%g,%g\n", i, 100+j, 5+j/10, 110+j)
		fmt.Fprintf(&b, "Valve-%d,Valve,%g,%g,%g\n", i, 50+j, 3+j/10, 90+j)
		fmt.Fprintf(&b, "Compressor-%d,Compressor,%g,%g,%g\n", i, 200+j, 9+j/10, 150+j)
	}
	return []byte(b.String())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTrainer() ml.Trainer {
	t := ml.DefaultTrainer()
	t.Trees = 10
	return t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []AnalysisEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev AnalysisEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type memoryArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []uint64
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{objects: make(map[string][]byte)}
}

func (a *memoryArchive) Archive(_ context.Context, owner uint, id uint64, filename string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[archiveKey(owner, id, filename)] = data
	return nil
}

func (a *memoryArchive) Remove(_ context.Context, owner uint, id uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	prefix := archivePrefix(owner, id)
	for k := range a.objects {
		if strings.HasPrefix(k, prefix) {
			delete(a.objects, k)
		}
	}
	a.removed = append(a.removed, id)
	return nil
}

type fixture struct {
	store       history.Store
	analysis    *AnalysisService
	predictions *PredictionService
	reports     *ReportService
	events      *recordingPublisher
	archive     *memoryArchive
}

func newFixture() *fixture {
	return newFixtureWithCache(history.NewMemoryStore(), NewCacheServiceFromClient(nil))
}

// newRedisFixture backs the report cache with an in-process Redis.
func newRedisFixture(t *testing.T, store history.Store) (*fixture, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return newFixtureWithCache(store, NewCacheServiceFromClient(client)), mr
}

func newFixtureWithCache(store history.Store, cache *CacheService) *fixture {
	logger := discardLogger()
	f := &fixture{
		store:       store,
		predictions: NewPredictionService(store, logger),
		reports:     NewReportService(store, cache, time.Minute, logger),
		events:      &recordingPublisher{},
		archive:     newMemoryArchive(),
	}
	f.analysis = NewAnalysisService(store, testTrainer(), logger).
		WithReports(f.reports).
		WithEvents(f.events).
		WithArchive(f.archive)
	return f
}
