package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises one measurement. StdDev is the sample standard deviation
// (n-1 denominator) and is 0 for a single observation.
type Stats struct {
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// CategoryStats is the type-wise breakdown for one category.
type CategoryStats struct {
	Count       int   `json:"count"`
	Flowrate    Stats `json:"flowrate"`
	Pressure    Stats `json:"pressure"`
	Temperature Stats `json:"temperature"`
}

// Stats returns the breakdown for m.
func (c CategoryStats) Stats(m Measurement) Stats {
	switch m {
	case Flowrate:
		return c.Flowrate
	case Pressure:
		return c.Pressure
	case Temperature:
		return c.Temperature
	}
	return Stats{}
}

// Summary holds everything the summarizer derives from the full, unfiltered
// record set.
type Summary struct {
	Count          int                      `json:"count"`
	Flowrate       Stats                    `json:"flowrate"`
	Pressure       Stats                    `json:"pressure"`
	Temperature    Stats                    `json:"temperature"`
	CategoryCounts map[string]int           `json:"category_counts"`
	Categories     map[string]CategoryStats `json:"type_wise_breakdown"`
}

// Stats returns the overall statistics for m.
func (s Summary) Stats(m Measurement) Stats {
	switch m {
	case Flowrate:
		return s.Flowrate
	case Pressure:
		return s.Pressure
	case Temperature:
		return s.Temperature
	}
	return Stats{}
}

// CategoryNames returns the observed categories in lexical order.
func (s Summary) CategoryNames() []string {
	names := make([]string, 0, len(s.CategoryCounts))
	for name := range s.CategoryCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summarize computes counts, overall statistics and the per-category
// breakdown. An empty input is rejected before any statistic is computed.
func Summarize(records []Record) (Summary, error) {
	if len(records) == 0 {
		return Summary{}, &EmptyDatasetError{}
	}

	s := Summary{
		Count:       len(records),
		Flowrate:    computeStats(Column(records, Flowrate)),
		Pressure:    computeStats(Column(records, Pressure)),
		Temperature: computeStats(Column(records, Temperature)),
	}

	groups := make(map[string][]Record)
	for _, r := range records {
		groups[r.Category] = append(groups[r.Category], r)
	}

	s.CategoryCounts = make(map[string]int, len(groups))
	s.Categories = make(map[string]CategoryStats, len(groups))
	for name, group := range groups {
		s.CategoryCounts[name] = len(group)
		s.Categories[name] = CategoryStats{
			Count:       len(group),
			Flowrate:    computeStats(Column(group, Flowrate)),
			Pressure:    computeStats(Column(group, Pressure)),
			Temperature: computeStats(Column(group, Temperature)),
		}
	}

	return s, nil
}

func computeStats(values []float64) Stats {
	mean, sd := meanStdDev(values)
	return Stats{
		Mean:   mean,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		StdDev: sd,
	}
}

// meanStdDev wraps stat.MeanStdDev, which yields NaN for a single value.
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 1 {
		return values[0], 0
	}
	mean, sd := stat.MeanStdDev(values, nil)
	if math.IsNaN(sd) {
		sd = 0
	}
	return mean, sd
}
