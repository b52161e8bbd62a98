package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteCSVFile writes the given lines to a temporary CSV file, joined with
// newlines, and returns its path. The file lives in t.TempDir and is
// removed automatically.
func WriteCSVFile(t *testing.T, lines []string) string {
	t.Helper()
	return WriteRawFile(t, "data_*.csv", []byte(strings.Join(lines, "\n")+"\n"))
}

// WriteRawFile writes raw bytes to a temporary file matching pattern and
// returns its path.
func WriteRawFile(t *testing.T, pattern string, data []byte) string {
	t.Helper()

	file, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := file.Write(data); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("Failed to close temp file: %v", err)
	}
	return file.Name()
}

// MixedTypeHeader is the header used by the mixed-type fixtures.
const MixedTypeHeader = "col_str,col_int,col_date,col_time,col_time_stamp,col_decimal,col_bool"

// GenerateMixedTypeCSV creates a well-formed file with one column each of
// String, Int, Date, Time, TimeStamp, Decimal and Bool (no Float column).
// Integer values span [-789, 1200] and decimals span [-48.05, 125.66].
func GenerateMixedTypeCSV(t *testing.T, numLines int) string {
	t.Helper()

	sampleRows := []string{
		`alpha,12,2019-02-28,23:59:59,2019-02-28 23:59:59.999,125.66,true`,
		`beta,-789,2020-01-01,00:00:00,2020-01-01 00:00:00,-48.05,false`,
		`gamma,1200,2021-06-15,12:30:45.5,2021-06-15 12:30:45.5,0.10000,true`,
		`delta,45,2018-11-02,06:15:00,2018-11-02 06:15:00.25,99.9,false`,
		`epsilon,-33,2022-03-09,18:05:59,2022-03-09 18:05:59,7.25,true`,
	}

	var content strings.Builder
	content.WriteString(MixedTypeHeader)
	content.WriteString("\n")
	for i := 0; i < numLines; i++ {
		content.WriteString(sampleRows[i%len(sampleRows)])
		content.WriteString("\n")
	}
	return WriteRawFile(t, "mixed_*.csv", []byte(content.String()))
}

// TempFilePath returns a path inside t.TempDir without creating the file.
func TempFilePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// NumberedRows builds numLines rows via the format callback, which
// receives the 0-based row index.
func NumberedRows(numLines int, format func(i int) string) []string {
	rows := make([]string, 0, numLines)
	for i := 0; i < numLines; i++ {
		rows = append(rows, format(i))
	}
	return rows
}
