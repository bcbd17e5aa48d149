package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment-analytics-api/analytics"
	"equipment-analytics-api/history"
	"equipment-analytics-api/ml"
)

func TestIngestSampleDataset(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	d, err := f.analysis.Ingest(ctx, 1, "plant.csv", []byte(sampleCSV))
	require.NoError(t, err)

	assert.NotZero(t, d.ID)
	assert.Equal(t, 6, d.RowCount)
	assert.Len(t, d.CategoryCounts.Data(), 6)
	for category, n := range d.CategoryCounts.Data() {
		assert.Equal(t, 1, n, category)
	}
	assert.Len(t, d.RawRecords.Data(), 6)

	metrics := d.Metrics.Data()
	assert.Nil(t, metrics.Flowrate)
	assert.Nil(t, metrics.Classification)
	assert.Equal(t, ml.ReasonInsufficientSamples, metrics.Unavailable["classification"])

	stored, err := f.analysis.Get(ctx, 1, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "plant.csv", stored.Filename)

	assert.Equal(t, []string{EventAnalysisCreated}, f.events.types())
	assert.Contains(t, f.archive.objects, archiveKey(1, d.ID, "plant.csv"))
}

func TestIngestRejectsInvalidUploads(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  string
	}{
		{"missing column", "Equipment Name,Type,Flowrate\nP,Pump,1\n", "schema_error"},
		{"bad number", "Equipment Name,Type,Flowrate,Pressure,Temperature\nP,Pump,fast,1,1\n", "parse_error"},
		{"no rows", "Equipment Name,Type,Flowrate,Pressure,Temperature\n", "empty_dataset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()

			_, err := f.analysis.Ingest(ctx, 1, "bad.csv", []byte(tt.input))
			require.Error(t, err)

			var kinded interface{ Kind() string }
			require.True(t, errors.As(err, &kinded))
			assert.Equal(t, tt.kind, kinded.Kind())

			items, err := f.analysis.List(ctx, 1)
			require.NoError(t, err)
			assert.Empty(t, items)
			assert.Empty(t, f.events.types())
		})
	}
}

func TestIngestCancelledStoresNothing(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.analysis.Ingest(ctx, 1, "plant.csv", clusteredCSV(5))
	assert.ErrorIs(t, err, context.Canceled)

	items, err := f.analysis.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestIngestRowCountMatchesInput(t *testing.T) {
	f := newFixture()

	d, err := f.analysis.Ingest(context.Background(), 1, "c.csv", clusteredCSV(9))
	require.NoError(t, err)
	assert.Equal(t, 27, d.RowCount)
	assert.Equal(t, 27, d.Summary.Data().Count)
	assert.Empty(t, d.Metrics.Data().Unavailable)
}

func TestIngestOutliersOnlyAffectTraining(t *testing.T) {
	f := newFixture()

	var b strings.Builder
	b.WriteString("Equipment Name,Type,Flowrate,Pressure,Temperature\n")
	for i := 0; i < 19; i++ {
		fmt.Fprintf(&b, "P-%d,Pump,10,5,100\n", i)
	}
	b.WriteString("P-spike,Pump,100,5,100\n")

	d, err := f.analysis.Ingest(context.Background(), 1, "spike.csv", []byte(b.String()))
	require.NoError(t, err)

	summary := d.Summary.Data()
	assert.Equal(t, 20, summary.Count)
	assert.Equal(t, 100.0, summary.Flowrate.Max)
	assert.Equal(t, map[string]int{"Pump": 20}, d.CategoryCounts.Data())

	metrics := d.Metrics.Data()
	assert.Equal(t, 1, metrics.OutliersRemoved)
	assert.Equal(t, 19, metrics.TotalSamples)
	assert.Equal(t, ml.ReasonSingleCategory, metrics.Unavailable["classification"])
}

func TestIngestEvictsOldestUpload(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	calls := 0
	f.analysis.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	}

	var ids []uint64
	for i := 1; i <= 6; i++ {
		d, err := f.analysis.Ingest(ctx, 1, fmt.Sprintf("upload-%d.csv", i), []byte(sampleCSV))
		require.NoError(t, err)
		ids = append(ids, d.ID)
	}

	items, err := f.analysis.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, history.MaxPerOwner)
	for i, d := range items {
		assert.Equal(t, fmt.Sprintf("upload-%d.csv", 6-i), d.Filename)
	}

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, []uint64{ids[0]}, last.EvictedIDs)
	assert.Equal(t, []uint64{ids[0]}, f.archive.removed)
	assert.NotContains(t, f.archive.objects, archiveKey(1, ids[0], "upload-1.csv"))

	_, err = f.reports.Assemble(ctx, 1, ids[0])
	var nf *history.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestIngestSurvivesPublisherFailure(t *testing.T) {
	f := newFixture()
	f.events.err = errors.New("broker down")

	d, err := f.analysis.Ingest(context.Background(), 1, "plant.csv", []byte(sampleCSV))
	require.NoError(t, err)

	_, err = f.analysis.Get(context.Background(), 1, d.ID)
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	d, err := f.analysis.Ingest(ctx, 1, "plant.csv", []byte(sampleCSV))
	require.NoError(t, err)

	var nf *history.NotFoundError
	assert.ErrorAs(t, f.analysis.Delete(ctx, 2, d.ID), &nf, "foreign owner must not delete")

	require.NoError(t, f.analysis.Delete(ctx, 1, d.ID))
	assert.Equal(t, []string{EventAnalysisCreated, EventAnalysisDeleted}, f.events.types())
	assert.Empty(t, f.archive.objects)

	_, err = f.analysis.Get(ctx, 1, d.ID)
	assert.ErrorAs(t, err, &nf)
}

func TestIngestConcurrentUploadsStayBounded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	errs := make(chan error, 12)
	for i := 0; i < 12; i++ {
		go func(i int) {
			_, err := f.analysis.Ingest(ctx, 3, fmt.Sprintf("c-%d.csv", i), []byte(sampleCSV))
			errs <- err
		}(i)
	}
	for i := 0; i < 12; i++ {
		require.NoError(t, <-errs)
	}

	items, err := f.analysis.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, items, history.MaxPerOwner)
}

func TestRawRecordsKeepInputOrder(t *testing.T) {
	f := newFixture()

	d, err := f.analysis.Ingest(context.Background(), 1, "plant.csv", []byte(sampleCSV))
	require.NoError(t, err)

	want := []string{"Pump", "Compressor", "Valve", "HeatExchanger", "Reactor", "Condenser"}
	assert.Equal(t, want, analytics.Categories(d.RawRecords.Data()))
}
