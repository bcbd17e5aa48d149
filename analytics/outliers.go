package analytics

import "math"

// ZScoreThreshold is the distance, in standard deviations from the column
// mean, at which a reading is treated as anomalous.
const ZScoreThreshold = 3.0

// FilterOutliers drops every record with at least one measurement whose
// |z| >= ZScoreThreshold. Column moments come from the full input; a column
// with zero spread excludes nothing. The input slice is left untouched.
func FilterOutliers(records []Record) []Record {
	kept := make([]Record, 0, len(records))
	if len(records) == 0 {
		return kept
	}

	type moments struct{ mean, sd float64 }
	cols := make(map[Measurement]moments, len(Measurements))
	for _, m := range Measurements {
		mean, sd := meanStdDev(Column(records, m))
		cols[m] = moments{mean: mean, sd: sd}
	}

	for _, r := range records {
		outlier := false
		for _, m := range Measurements {
			c := cols[m]
			if c.sd == 0 {
				continue
			}
			if math.Abs(r.Value(m)-c.mean)/c.sd >= ZScoreThreshold {
				outlier = true
				break
			}
		}
		if !outlier {
			kept = append(kept, r)
		}
	}

	return kept
}
