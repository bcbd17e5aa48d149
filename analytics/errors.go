package analytics

import (
	"fmt"
	"strings"
)

// SchemaError reports required headers absent from the upload.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Kind() string { return "schema_error" }

// ParseError pinpoints the first cell that could not be coerced. Row is the
// 1-based data row, header excluded.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	if e.Value == "" {
		return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Column, e.Reason)
	}
	return fmt.Sprintf("row %d, column %q: %s (got %q)", e.Row, e.Column, e.Reason, e.Value)
}

func (e *ParseError) Kind() string { return "parse_error" }

// EmptyDatasetError is returned when an upload has a valid header but no rows.
type EmptyDatasetError struct{}

func (e *EmptyDatasetError) Error() string { return "dataset contains no data rows" }

func (e *EmptyDatasetError) Kind() string { return "empty_dataset" }
