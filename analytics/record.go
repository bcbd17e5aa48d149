package analytics

// Header names an upload must carry. Matching is exact and case-sensitive.
const (
	ColumnName        = "Equipment Name"
	ColumnType        = "Type"
	ColumnFlowrate    = "Flowrate"
	ColumnPressure    = "Pressure"
	ColumnTemperature = "Temperature"
)

// RequiredColumns lists the headers in the order they are reported when missing.
var RequiredColumns = []string{ColumnName, ColumnType, ColumnFlowrate, ColumnPressure, ColumnTemperature}

// Measurement identifies one of the three continuous columns.
type Measurement string

const (
	Flowrate    Measurement = "flowrate"
	Pressure    Measurement = "pressure"
	Temperature Measurement = "temperature"
)

// Measurements is the fixed iteration order used everywhere a per-measurement
// loop needs to be deterministic.
var Measurements = []Measurement{Flowrate, Pressure, Temperature}

// Column returns the CSV header a measurement is read from.
func (m Measurement) Column() string {
	switch m {
	case Flowrate:
		return ColumnFlowrate
	case Pressure:
		return ColumnPressure
	case Temperature:
		return ColumnTemperature
	}
	return string(m)
}

// Record is one validated equipment row. JSON keys mirror the upload headers
// so the raw table can be handed to renderers as-is.
type Record struct {
	Name        string  `json:"Equipment Name"`
	Category    string  `json:"Type"`
	Flowrate    float64 `json:"Flowrate"`
	Pressure    float64 `json:"Pressure"`
	Temperature float64 `json:"Temperature"`
}

// Value returns the record's reading for m.
func (r Record) Value(m Measurement) float64 {
	switch m {
	case Flowrate:
		return r.Flowrate
	case Pressure:
		return r.Pressure
	case Temperature:
		return r.Temperature
	}
	return 0
}

// Features returns the three measurements in Measurements order.
func (r Record) Features() []float64 {
	return []float64{r.Flowrate, r.Pressure, r.Temperature}
}

// Column extracts one measurement from every record, preserving order.
func Column(records []Record, m Measurement) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Value(m)
	}
	return out
}

// Categories extracts the category of every record, preserving order.
func Categories(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Category
	}
	return out
}
