package parser

import "fmt"

// ParsingResults carries the header-ordered column states plus line
// counters. Analyzers build private deltas against a Snapshot and fold them
// back with Update, so the struct itself is not synchronized.
type ParsingResults struct {
	columns           []ColumnInfo
	numLines          uint64
	numMalformedLines uint64
}

// AddColumn appends a fresh column for one header field. Called once per
// header field by the reader before any data line is published.
func (r *ParsingResults) AddColumn(name string) {
	r.columns = append(r.columns, NewColumnInfo(name))
}

// Columns returns the header-ordered column states.
func (r *ParsingResults) Columns() []ColumnInfo { return r.columns }

// NumLines reports how many data lines were tokenized, header excluded.
// Malformed lines are included.
func (r *ParsingResults) NumLines() uint64 { return r.numLines }

// NumMalformedLines reports how many data lines had a field count different
// from the header's.
func (r *ParsingResults) NumMalformedLines() uint64 { return r.numMalformedLines }

// Snapshot copies the column schema with zeroed counters. The column flag
// state is idempotent under Merge, so a delta that starts from a snapshot
// can be folded back into the shared results without skew; the counters
// are not idempotent and therefore start at zero.
func (r *ParsingResults) Snapshot() *ParsingResults {
	s := &ParsingResults{columns: make([]ColumnInfo, len(r.columns))}
	copy(s.columns, r.columns)
	return s
}

// Update merges another result set produced from a disjoint subset of data
// lines: element-wise column merges plus counter sums. The column counts
// must match; a mismatch is a logic error in the caller.
func (r *ParsingResults) Update(other *ParsingResults) error {
	if len(r.columns) != len(other.columns) {
		return fmt.Errorf("column count mismatch: %d vs %d", len(r.columns), len(other.columns))
	}
	for i := range r.columns {
		r.columns[i].Merge(&other.columns[i])
	}
	r.numLines += other.numLines
	r.numMalformedLines += other.numMalformedLines
	return nil
}
