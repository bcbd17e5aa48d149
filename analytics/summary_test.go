package analytics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeSample(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	s, err := Summarize(records)
	require.NoError(t, err)

	assert.Equal(t, 6, s.Count)
	assert.Len(t, s.CategoryCounts, 6)
	for name, count := range s.CategoryCounts {
		assert.Equal(t, 1, count, name)
	}

	assert.InDelta(t, 117.5, s.Flowrate.Mean, 1e-9)
	assert.Equal(t, 60.0, s.Flowrate.Min)
	assert.Equal(t, 200.0, s.Flowrate.Max)
	assert.InDelta(t, 51.16151, s.Flowrate.StdDev, 1e-5)

	pump := s.Categories["Pump"]
	assert.Equal(t, 1, pump.Count)
	assert.Equal(t, Stats{Mean: 5.2, Min: 5.2, Max: 5.2}, pump.Pressure)

	assert.Equal(t, []string{"Compressor", "Condenser", "HeatExchanger", "Pump", "Reactor", "Valve"}, s.CategoryNames())
}

func TestSummarizeStdDev(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		mean   float64
		sd     float64
	}{
		{"single value", []float64{4}, 4, 0},
		{"sample std dev", []float64{1, 2, 3}, 2, 1},
		{"identical values", []float64{7, 7, 7, 7}, 7, 0},
		{"two values", []float64{2, 4}, 3, 1.4142135623730951},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]Record, len(tt.values))
			for i, v := range tt.values {
				records[i] = Record{Category: "Pump", Flowrate: v, Pressure: v, Temperature: v}
			}

			s, err := Summarize(records)
			require.NoError(t, err)
			assert.InDelta(t, tt.mean, s.Temperature.Mean, 1e-12)
			assert.InDelta(t, tt.sd, s.Temperature.StdDev, 1e-12)
			assert.InDelta(t, tt.sd, s.Categories["Pump"].Flowrate.StdDev, 1e-12)
		})
	}
}

func TestSummarizeGroupsByCategory(t *testing.T) {
	records := []Record{
		{Category: "Pump", Flowrate: 100, Pressure: 5, Temperature: 100},
		{Category: "Valve", Flowrate: 50, Pressure: 3, Temperature: 90},
		{Category: "Pump", Flowrate: 120, Pressure: 7, Temperature: 110},
	}

	s, err := Summarize(records)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"Pump": 2, "Valve": 1}, s.CategoryCounts)
	assert.Equal(t, Stats{Mean: 110, Min: 100, Max: 120, StdDev: s.Categories["Pump"].Flowrate.StdDev}, s.Categories["Pump"].Flowrate)
	assert.InDelta(t, 14.142135, s.Categories["Pump"].Flowrate.StdDev, 1e-6)
	assert.Equal(t, 6.0, s.Categories["Pump"].Stats(Pressure).Mean)
	assert.Equal(t, 90.0, s.Categories["Valve"].Temperature.Max)
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := Summarize(nil)
	require.Error(t, err)
	assert.Equal(t, "empty_dataset", err.(*EmptyDatasetError).Kind())
}
