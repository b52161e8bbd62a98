package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gennadiy1g/csvbulkload/parser"
	"github.com/gennadiy1g/csvbulkload/version"
)

// SchemaReport is the complete analysis output for one run: one entry per
// input file plus any warnings and errors collected along the way.
type SchemaReport struct {
	Metadata Metadata     `json:"metadata"`
	Files    []FileResult `json:"files"`
	Warnings []Warning    `json:"warnings"`
	Errors   []Error      `json:"errors"`

	// Mutex for thread-safe file/warning/error appending
	mu sync.Mutex `json:"-"`
}

// Metadata contains information about the analysis run
type Metadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`
	DurationMS  int64     `json:"duration_ms"`
}

// FileResult is the inferred schema of one input file
type FileResult struct {
	Path              string       `json:"path"`
	Table             string       `json:"table,omitempty"`
	NumLines          uint64       `json:"num_lines"`
	NumMalformedLines uint64       `json:"num_malformed_lines"`
	Columns           []ColumnInfo `json:"columns"`
	RejectedRecords   *int64       `json:"rejected_records,omitempty"`
}

// ColumnInfo is the JSON view of one inferred column
type ColumnInfo struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Nullable     bool     `json:"nullable"`
	MinLength    *int     `json:"min_length,omitempty"`
	MaxLength    int      `json:"max_length"`
	DigitsBefore *int     `json:"digits_before,omitempty"`
	DigitsAfter  *int     `json:"digits_after,omitempty"`
	MinValue     *float64 `json:"min_value,omitempty"`
	MaxValue     *float64 `json:"max_value,omitempty"`
}

// Warning represents a warning message
type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Error represents an error message
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewSchemaReport creates an empty report with run metadata filled in.
func NewSchemaReport(startTime time.Time) *SchemaReport {
	return &SchemaReport{
		Metadata: Metadata{
			GeneratedAt: time.Now().UTC(),
			Version:     version.Version,
			DurationMS:  time.Since(startTime).Milliseconds(),
		},
		Files:    []FileResult{},
		Warnings: []Warning{},
		Errors:   []Error{},
	}
}

// NewFileResult converts one file's parsing results into report form.
func NewFileResult(path, table string, results *parser.ParsingResults) FileResult {
	columns := results.Columns()
	file := FileResult{
		Path:              path,
		Table:             table,
		NumLines:          results.NumLines(),
		NumMalformedLines: results.NumMalformedLines(),
		Columns:           make([]ColumnInfo, 0, len(columns)),
	}
	for i := range columns {
		column := &columns[i]
		info := ColumnInfo{
			Name:      column.Name(),
			Type:      column.Type().String(),
			Nullable:  column.IsNull(),
			MaxLength: column.MaxLength(),
		}
		if v, ok := column.MinLength(); ok {
			info.MinLength = &v
		}
		if v, ok := column.DigitsBeforeDecimalPoint(); ok {
			info.DigitsBefore = &v
		}
		if v, ok := column.DigitsAfterDecimalPoint(); ok {
			info.DigitsAfter = &v
		}
		if v, ok := column.MinValue(); ok {
			info.MinValue = &v
		}
		if v, ok := column.MaxValue(); ok {
			info.MaxValue = &v
		}
		file.Columns = append(file.Columns, info)
	}
	return file
}

// AddFile appends one file's result (thread-safe).
func (r *SchemaReport) AddFile(file FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Files = append(r.Files, file)
}

// AddWarning adds a warning to the report (thread-safe).
func (r *SchemaReport) AddWarning(warningType, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, Warning{Type: warningType, Message: message})
}

// AddError adds an error to the report (thread-safe).
func (r *SchemaReport) AddError(errorType, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, Error{Type: errorType, Message: message})
}

// UpdateDuration refreshes the run duration before rendering.
func (r *SchemaReport) UpdateDuration(startTime time.Time) {
	r.Metadata.DurationMS = time.Since(startTime).Milliseconds()
}

// ToJSON converts the report to pretty-printed JSON.
func (r *SchemaReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ToCompactJSON converts the report to compact JSON.
func (r *SchemaReport) ToCompactJSON() ([]byte, error) {
	return json.Marshal(r)
}

// ToPlainText renders the report as a readable text table.
func (r *SchemaReport) ToPlainText() string {
	var buf strings.Builder
	for _, file := range r.Files {
		fmt.Fprintf(&buf, "%s\n", file.Path)
		fmt.Fprintf(&buf, "  lines: %d  malformed: %d\n", file.NumLines, file.NumMalformedLines)
		for _, column := range file.Columns {
			nullable := "NOT NULL"
			if column.Nullable {
				nullable = "NULL"
			}
			fmt.Fprintf(&buf, "  %-24s %-10s %-8s max length %d", column.Name, column.Type, nullable, column.MaxLength)
			if column.MinValue != nil && column.MaxValue != nil {
				fmt.Fprintf(&buf, "  range [%g, %g]", *column.MinValue, *column.MaxValue)
			}
			buf.WriteByte('\n')
		}
		if file.RejectedRecords != nil {
			fmt.Fprintf(&buf, "  rejected records: %d\n", *file.RejectedRecords)
		}
		buf.WriteByte('\n')
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(&buf, "warning (%s): %s\n", warning.Type, warning.Message)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&buf, "error (%s): %s\n", e.Type, e.Message)
	}
	return buf.String()
}
