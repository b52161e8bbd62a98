package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/gennadiy1g/csvbulkload/testutil"
)

func parseFile(t *testing.T, path string, separator rune, numThreads, linesPerBuffer int) *ParsingResults {
	t.Helper()
	p := NewCsvFileParser(path)
	p.LinesPerBuffer = linesPerBuffer
	results, err := p.Parse(separator, '"', '\\', numThreads)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return results
}

func columnTypes(results *ParsingResults) []ColumnType {
	types := make([]ColumnType, 0, len(results.Columns()))
	for i := range results.Columns() {
		types = append(types, results.Columns()[i].Type())
	}
	return types
}

func TestParse_MixedTypeHappyPath(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := testutil.GenerateMixedTypeCSV(t, 10)
	results := parseFile(t, path, ',', 4, 10)

	if results.NumLines() != 10 {
		t.Errorf("numLines = %d, want 10", results.NumLines())
	}
	if results.NumMalformedLines() != 0 {
		t.Errorf("numMalformedLines = %d, want 0", results.NumMalformedLines())
	}
	if len(results.Columns()) != 7 {
		t.Fatalf("column count = %d, want 7", len(results.Columns()))
	}

	want := []ColumnType{
		ColumnTypeString, ColumnTypeInt, ColumnTypeDate, ColumnTypeTime,
		ColumnTypeTimeStamp, ColumnTypeDecimal, ColumnTypeBool,
	}
	got := columnTypes(results)
	for i, wantType := range want {
		if got[i] != wantType {
			t.Errorf("column %d (%s): type = %v, want %v", i, results.Columns()[i].Name(), got[i], wantType)
		}
	}

	colInt := &results.Columns()[1]
	if before, _ := colInt.DigitsBeforeDecimalPoint(); before != 4 {
		t.Errorf("col_int digitsBefore = %d, want 4", before)
	}
	colDecimal := &results.Columns()[5]
	if before, _ := colDecimal.DigitsBeforeDecimalPoint(); before != 3 {
		t.Errorf("col_decimal digitsBefore = %d, want 3", before)
	}
	if after, _ := colDecimal.DigitsAfterDecimalPoint(); after != 5 {
		t.Errorf("col_decimal digitsAfter = %d, want 5", after)
	}

	for i := range results.Columns() {
		if results.Columns()[i].IsNull() {
			t.Errorf("column %s unexpectedly nullable", results.Columns()[i].Name())
		}
	}
}

func TestParse_NullsWidenNothingButHasNull(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Blank out one field per row, cycling through all seven columns so
	// every column sees at least one empty-after-trim token.
	base := []string{"alpha", "12", "2019-02-28", "23:59:59", "2019-02-28 23:59:59.999", "125.66", "true"}
	rows := testutil.NumberedRows(20, func(i int) string {
		fields := append([]string(nil), base...)
		fields[i%len(fields)] = ""
		return strings.Join(fields, ",")
	})

	lines := append([]string{testutil.MixedTypeHeader}, rows...)
	path := testutil.WriteCSVFile(t, lines)
	results := parseFile(t, path, ',', 3, 10)

	if results.NumLines() != 20 {
		t.Errorf("numLines = %d, want 20", results.NumLines())
	}
	if results.NumMalformedLines() != 0 {
		t.Errorf("numMalformedLines = %d, want 0", results.NumMalformedLines())
	}

	want := []ColumnType{
		ColumnTypeString, ColumnTypeInt, ColumnTypeDate, ColumnTypeTime,
		ColumnTypeTimeStamp, ColumnTypeDecimal, ColumnTypeBool,
	}
	got := columnTypes(results)
	for i, wantType := range want {
		if got[i] != wantType {
			t.Errorf("column %d: type = %v, want %v", i, got[i], wantType)
		}
		if !results.Columns()[i].IsNull() {
			t.Errorf("column %d should be nullable", i)
		}
	}
}

func TestParse_MalformedRowsCounted(t *testing.T) {
	defer goleak.VerifyNone(t)

	lines := []string{"id\tname\tscore"}
	for i := 0; i < 65; i++ {
		switch i {
		case 10, 30, 50:
			// Fewer fields than the header.
			lines = append(lines, fmt.Sprintf("%d\tshort", i))
		default:
			lines = append(lines, fmt.Sprintf("%d\tname%d\t%d.5", i, i, i))
		}
	}
	path := testutil.WriteCSVFile(t, lines)
	results := parseFile(t, path, '\t', 4, 10)

	if results.NumLines() != 65 {
		t.Errorf("numLines = %d, want 65", results.NumLines())
	}
	if results.NumMalformedLines() != 3 {
		t.Errorf("numMalformedLines = %d, want 3", results.NumMalformedLines())
	}

	got := columnTypes(results)
	want := []ColumnType{ColumnTypeInt, ColumnTypeString, ColumnTypeDecimal}
	for i, wantType := range want {
		if got[i] != wantType {
			t.Errorf("column %d: type = %v, want %v", i, got[i], wantType)
		}
	}
}

func TestParse_DecodeFailureMidFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	var content strings.Builder
	content.WriteString("name,value\n")
	for i := 0; i < 109; i++ {
		fmt.Fprintf(&content, "row%d,%d\n", i, i)
	}
	// Data line 110 (file line 111) has an illegal UTF-8 byte after a
	// five-code-point prefix.
	content.WriteString("abc,1\xffrest\n")
	content.WriteString("never,2\n")

	path := testutil.WriteRawFile(t, "broken_*.csv", []byte(content.String()))

	p := NewCsvFileParser(path)
	p.LinesPerBuffer = 10
	_, err := p.Parse(',', '"', '\\', 4)
	if err == nil {
		t.Fatal("Parse should fail on an undecodable line")
	}

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error type = %T, want *DecodeError", err)
	}
	if decodeErr.Line != 111 {
		t.Errorf("line = %d, want 111", decodeErr.Line)
	}
	if decodeErr.Column != 6 {
		t.Errorf("column = %d, want 6", decodeErr.Column)
	}
}

func TestParse_DecodeFailureOnHeader(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := testutil.WriteRawFile(t, "badheader_*.csv", []byte("a,\xffb\n1,2\n"))

	p := NewCsvFileParser(path)
	_, err := p.Parse(',', '"', '\\', 2)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error type = %T, want *DecodeError", err)
	}
	if decodeErr.Line != 1 {
		t.Errorf("line = %d, want 1", decodeErr.Line)
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := testutil.WriteCSVFile(t, []string{"a,b,c"})
	results := parseFile(t, path, ',', 2, 10)

	if results.NumLines() != 0 {
		t.Errorf("numLines = %d, want 0", results.NumLines())
	}
	if results.NumMalformedLines() != 0 {
		t.Errorf("numMalformedLines = %d, want 0", results.NumMalformedLines())
	}
	if len(results.Columns()) != 3 {
		t.Fatalf("column count = %d, want 3", len(results.Columns()))
	}
	for i, name := range []string{"a", "b", "c"} {
		if got := results.Columns()[i].Name(); got != name {
			t.Errorf("column %d name = %q, want %q", i, got, name)
		}
	}
}

func TestParse_SingleAnalyzer(t *testing.T) {
	defer goleak.VerifyNone(t)

	// One analyzer means a one-slot pool shared between reader and worker;
	// a small batch size forces many rotations through it.
	path := testutil.GenerateMixedTypeCSV(t, 57)
	results := parseFile(t, path, ',', 1, 10)

	if results.NumLines() != 57 {
		t.Errorf("numLines = %d, want 57", results.NumLines())
	}
	if got := columnTypes(results)[4]; got != ColumnTypeTimeStamp {
		t.Errorf("col_time_stamp type = %v, want TimeStamp", got)
	}
}

func TestParse_LineConservationAcrossBufferSizes(t *testing.T) {
	defer goleak.VerifyNone(t)

	const numLines = 105
	path := testutil.GenerateMixedTypeCSV(t, numLines)

	for _, linesPerBuffer := range []int{1, 7, 10, 1000} {
		for _, threads := range []int{1, 2, 8} {
			results := parseFile(t, path, ',', threads, linesPerBuffer)
			if results.NumLines() != numLines {
				t.Errorf("linesPerBuffer=%d threads=%d: numLines = %d, want %d",
					linesPerBuffer, threads, results.NumLines(), numLines)
			}
			if results.NumMalformedLines() != 0 {
				t.Errorf("linesPerBuffer=%d threads=%d: numMalformedLines = %d, want 0",
					linesPerBuffer, threads, results.NumMalformedLines())
			}
		}
	}
}

func TestParse_PartialFinalBuffer(t *testing.T) {
	defer goleak.VerifyNone(t)

	// 13 lines with a batch size of 10: the final partial batch of 3 must
	// still be analyzed.
	path := testutil.GenerateMixedTypeCSV(t, 13)
	results := parseFile(t, path, ',', 2, 10)

	if results.NumLines() != 13 {
		t.Errorf("numLines = %d, want 13", results.NumLines())
	}
}

func TestParse_EmptyTokenRegistersNull(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := testutil.WriteCSVFile(t, []string{"a,b", "1,", "2,5"})
	results := parseFile(t, path, ',', 2, 10)

	b := &results.Columns()[1]
	if !b.IsNull() {
		t.Error("column b should be nullable after an empty token")
	}
	if got := b.Type(); got != ColumnTypeInt {
		t.Errorf("column b type = %v, want Int (empty token must not clear flags)", got)
	}
}

func TestParse_PreflightErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("not found", func(t *testing.T) {
		p := NewCsvFileParser(testutil.TempFilePath(t, "missing.csv"))
		_, err := p.Parse(',', '"', '\\', 2)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("not a regular file", func(t *testing.T) {
		p := NewCsvFileParser(t.TempDir())
		_, err := p.Parse(',', '"', '\\', 2)
		if !errors.Is(err, ErrNotRegularFile) {
			t.Errorf("error = %v, want ErrNotRegularFile", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := testutil.WriteRawFile(t, "empty_*.csv", nil)
		p := NewCsvFileParser(path)
		_, err := p.Parse(',', '"', '\\', 2)
		if !errors.Is(err, ErrEmptyFile) {
			t.Errorf("error = %v, want ErrEmptyFile", err)
		}
	})
}

func TestParse_QuotedSeparators(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := testutil.WriteCSVFile(t, []string{
		"name,comment",
		`x,"hello, world"`,
		`y,"a\"b"`,
	})
	results := parseFile(t, path, ',', 2, 10)

	if results.NumMalformedLines() != 0 {
		t.Errorf("numMalformedLines = %d, want 0 (quoted separators must not split)", results.NumMalformedLines())
	}
	comment := &results.Columns()[1]
	if got := comment.Type(); got != ColumnTypeString {
		t.Errorf("comment type = %v, want String", got)
	}
	if comment.MaxLength() != 12 {
		t.Errorf("comment maxLength = %d, want 12", comment.MaxLength())
	}
}

func writeLines(path string, lines []string) error {
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

func BenchmarkParse(b *testing.B) {
	sample := []string{testutil.MixedTypeHeader}
	for i := 0; i < 20000; i++ {
		sample = append(sample, "alpha,12,2019-02-28,23:59:59,2019-02-28 23:59:59.999,125.66,true")
	}
	dir := b.TempDir()
	path := dir + "/bench.csv"
	if err := writeLines(path, sample); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := NewCsvFileParser(path)
		if _, err := p.Parse(',', '"', '\\', 0); err != nil {
			b.Fatal(err)
		}
	}
}
