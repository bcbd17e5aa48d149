package analytics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const utf8BOM = "\ufeff"

// ParseCSV validates an upload and converts it into typed records. The first
// line is the header; data rows keep their input order because the row index
// doubles as the sample axis of trend charts.
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SchemaError{Missing: append([]string(nil), RequiredColumns...)}
		}
		return nil, csvError(0, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	records := make([]Record, 0, 64)
	for row := 1; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(row, err)
		}

		rec, err := parseRow(row, fields, index)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseRow(row int, fields []string, index map[string]int) (Record, error) {
	cell := func(col string) (string, bool) {
		i := index[col]
		if i >= len(fields) {
			return "", false
		}
		return strings.TrimSpace(fields[i]), true
	}

	var rec Record
	rec.Name, _ = cell(ColumnName)

	category, ok := cell(ColumnType)
	if !ok || category == "" {
		return Record{}, &ParseError{Row: row, Column: ColumnType, Reason: "category is empty"}
	}
	rec.Category = category

	for _, m := range Measurements {
		raw, ok := cell(m.Column())
		if !ok || raw == "" {
			return Record{}, &ParseError{Row: row, Column: m.Column(), Reason: "value is empty"}
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Record{}, &ParseError{Row: row, Column: m.Column(), Value: raw, Reason: "value is not a finite number"}
		}
		switch m {
		case Flowrate:
			rec.Flowrate = v
		case Pressure:
			rec.Pressure = v
		case Temperature:
			rec.Temperature = v
		}
	}

	return rec, nil
}

func csvError(row int, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Row: row, Reason: fmt.Sprintf("malformed csv at line %d: %v", pe.Line, pe.Err)}
	}
	return fmt.Errorf("read csv: %w", err)
}
