// Package ddl renders the MonetDB statements that create a table matching
// a set of parsing results and bulk-load the source file into it.
package ddl

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gennadiy1g/csvbulkload/parser"
)

// Statements is one file's load plan, executed in order. Drop failures are
// ignored by loaders because the table may not exist yet.
type Statements struct {
	Drop   string
	Create string
	Copy   string
}

// RejectedRecordsQuery counts the rows MonetDB rejected during the last
// COPY INTO on this connection.
const RejectedRecordsQuery = `SELECT COUNT(*) FROM sys.rejects`

// TableNameFromPath derives the default table name: the file stem, trimmed.
// A .lz4 suffix is peeled first so data.csv.lz4 still maps to "data".
func TableNameFromPath(path string) string {
	base := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(base), ".lz4") {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSpace(base)
}

// DropTable renders the statement that clears the way for CreateTable.
func DropTable(table string) string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(table))
}

// CreateTable renders a CREATE TABLE whose column types are the narrowest
// MonetDB types admitting the inferred results. Columns are NOT NULL
// unless a null was observed (or the column was never analyzed).
func CreateTable(table string, results *parser.ParsingResults) string {
	var buf strings.Builder
	buf.WriteString("CREATE TABLE ")
	buf.WriteString(quoteIdent(table))
	buf.WriteString(" (")
	for i := range results.Columns() {
		column := &results.Columns()[i]
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(quoteIdent(strings.TrimSpace(column.Name())))
		buf.WriteByte(' ')
		buf.WriteString(columnType(column))
		if !column.IsNull() {
			buf.WriteString(" NOT NULL")
		}
	}
	buf.WriteString(")")
	return buf.String()
}

// CopyInto renders the bulk-load statement. OFFSET 2 skips the header
// line; empty fields load as NULL. MonetDB decompresses .gz/.lz4 sources
// server-side, so compressed paths pass through unchanged.
func CopyInto(table, sourcePath string, separator, quote rune) string {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		abs = sourcePath
	}
	return fmt.Sprintf(`COPY OFFSET 2 INTO %s FROM %s DELIMITERS '%c','\n','%c' NULL AS ''`,
		quoteIdent(table), quoteLiteral(abs), separator, quote)
}

// columnType maps one inferred column to a MonetDB type.
func columnType(column *parser.ColumnInfo) string {
	switch column.Type() {
	case parser.ColumnTypeInt:
		return intType(column)
	case parser.ColumnTypeDecimal:
		before, _ := column.DigitsBeforeDecimalPoint()
		after, _ := column.DigitsAfterDecimalPoint()
		precision := before + after
		if precision < 1 {
			precision = 1
		}
		return fmt.Sprintf("DECIMAL(%d, %d)", precision, after)
	case parser.ColumnTypeFloat:
		before, okBefore := column.DigitsBeforeDecimalPoint()
		after, okAfter := column.DigitsAfterDecimalPoint()
		if okBefore || okAfter {
			precision := before + after
			if precision < 1 {
				precision = 1
			}
			if precision > 53 {
				precision = 53
			}
			return fmt.Sprintf("FLOAT(%d)", precision)
		}
		return "FLOAT"
	case parser.ColumnTypeTimeStamp:
		return "TIMESTAMP"
	case parser.ColumnTypeDate:
		return "DATE"
	case parser.ColumnTypeTime:
		return "TIME"
	case parser.ColumnTypeBool:
		return "BOOLEAN"
	default:
		return stringType(column)
	}
}

// intType picks the narrowest signed width containing the observed range.
func intType(column *parser.ColumnInfo) string {
	minValue, okMin := column.MinValue()
	maxValue, okMax := column.MaxValue()
	if !okMin || !okMax {
		return "BIGINT"
	}
	switch {
	case minValue >= -128 && maxValue <= 127:
		return "TINYINT"
	case minValue >= -32768 && maxValue <= 32767:
		return "SMALLINT"
	case minValue >= -2147483648 && maxValue <= 2147483647:
		return "INT"
	default:
		return "BIGINT"
	}
}

// stringType is fixed-width when every value had the same length,
// variable-width otherwise.
func stringType(column *parser.ColumnInfo) string {
	maxLength := column.MaxLength()
	if maxLength < 1 {
		maxLength = 1
	}
	if minLength, ok := column.MinLength(); ok && minLength == maxLength {
		return fmt.Sprintf("CHAR(%d)", maxLength)
	}
	return fmt.Sprintf("VARCHAR(%d)", maxLength)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
