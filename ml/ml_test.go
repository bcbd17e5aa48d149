package ml

import (
	"fmt"

	"equipment-analytics-api/analytics"
)

type profile struct {
	category                        string
	flowrate, pressure, temperature float64
}

var profiles = []profile{
	{"Pump", 100, 5, 110},
	{"Valve", 50, 3, 90},
	{"Compressor", 200, 9, 150},
}

// clusteredRecords returns perRow rows for each profile with a small,
// deterministic jitter around the profile values.
func clusteredRecords(perRow int) []analytics.Record {
	var records []analytics.Record
	for i := 0; i < perRow; i++ {
		for _, p := range profiles {
			jitter := float64(i%4) - 1.5
			records = append(records, analytics.Record{
				Name:        fmt.Sprintf("%s-%d", p.category, i+1),
				Category:    p.category,
				Flowrate:    p.flowrate + jitter,
				Pressure:    p.pressure + jitter/10,
				Temperature: p.temperature + jitter,
			})
		}
	}
	return records
}

func fastTrainer() Trainer {
	t := DefaultTrainer()
	t.Trees = 15
	return t
}
