// Package parser streams a delimited text file once, infers a column-by-
// column schema from every token, and returns the merged ParsingResults.
// One reader goroutine decodes lines into a fixed pool of reusable buffers;
// a configurable number of analyzer goroutines tokenize the buffers and
// fold their per-buffer deltas into the shared results.
package parser

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gennadiy1g/csvbulkload/decode"
	"github.com/gennadiy1g/csvbulkload/tokenizer"
)

// CsvFileParser is the public façade. Construct one per input file, adjust
// the tuning fields if needed, then call Parse.
type CsvFileParser struct {
	path string

	// LinesPerBuffer is how many lines each pool buffer batches before it
	// is handed to an analyzer. Tests set a small value to exercise buffer
	// rotation; the default suits production files.
	LinesPerBuffer int

	// Encoding names the input character set, resolved by the decode
	// package. Empty means strict UTF-8.
	Encoding string
}

// NewCsvFileParser binds a parser to an input path.
func NewCsvFileParser(path string) *CsvFileParser {
	return &CsvFileParser{
		path:           path,
		LinesPerBuffer: DefaultLinesPerBuffer,
	}
}

// Path returns the bound input path.
func (p *CsvFileParser) Path() string { return p.path }

// parseRun holds the state shared between the reader and the analyzers for
// the duration of one Parse call.
type parseRun struct {
	pool *bufferPool

	// readerDone and decodeFailed are atomics; the analyzers read them in
	// acquireFull while holding the full-queue mutex. The transitions a
	// waiting analyzer depends on happen while holding that mutex too,
	// because a condvar wakeup only guarantees visibility of memory
	// released under it.
	readerDone   atomic.Bool
	decodeFailed atomic.Bool

	resultsMu sync.RWMutex
	results   ParsingResults

	escape    rune
	separator rune
	quote     rune
}

// Parse reads the file exactly once and returns the merged results.
// numThreads is the analyzer count; zero selects the hardware parallelism.
// All analyzers are joined before Parse returns, on every path.
func (p *CsvFileParser) Parse(separator, quote, escape rune, numThreads int) (*ParsingResults, error) {
	if err := p.preflight(); err != nil {
		return nil, err
	}

	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	run := &parseRun{
		pool:      newBufferPool(numThreads),
		escape:    escape,
		separator: separator,
		quote:     quote,
	}

	var wg sync.WaitGroup
	for i := 0; i < numThreads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run.analyzeLoop()
		}()
	}

	err := p.readLines(run)

	// Every reader exit path must wake all analyzers, whether the file
	// ended, failed to open, or failed to decode.
	run.pool.fullMu.Lock()
	run.readerDone.Store(true)
	run.pool.fullMu.Unlock()
	run.pool.fullCond.Broadcast()

	wg.Wait()

	if err != nil {
		return nil, err
	}
	return &run.results, nil
}

// preflight rejects inputs before any concurrent work starts.
func (p *CsvFileParser) preflight() error {
	info, err := os.Stat(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", p.path, ErrNotFound)
		}
		return fmt.Errorf("%s: %w", p.path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", p.path, ErrNotRegularFile)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: %w", p.path, ErrEmptyFile)
	}
	return nil
}

// readLines is the single producer: it decodes the header, registers the
// columns, batches data lines into pool buffers and publishes them. The
// returned error is what Parse surfaces after the analyzers have joined.
func (p *CsvFileParser) readLines(run *parseRun) error {
	source, err := decode.Open(p.path, p.Encoding)
	if err != nil {
		return &OpenError{Path: p.path, Err: err}
	}
	defer source.Close()

	completedLines := 0

	header, err := source.Next()
	if err != nil {
		if err == io.EOF {
			// Preflight guarantees a non-empty file, so a missing header
			// means the file shrank underneath us.
			return &OpenError{Path: p.path, Err: io.ErrUnexpectedEOF}
		}
		return p.decodeError(run, completedLines, err)
	}
	completedLines++

	tok := tokenizer.New(run.escape, run.separator, run.quote)
	run.resultsMu.Lock()
	for _, name := range tok.AppendFields(nil, header) {
		run.results.AddColumn(strings.TrimSpace(name))
	}
	run.resultsMu.Unlock()

	fillIndex := 0 // slot 0 is pre-reserved for the reader
	fill := run.pool.buffer(fillIndex)

	for {
		line, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return p.decodeError(run, completedLines, err)
		}
		completedLines++

		fill.AddLine(line)
		if fill.Size() >= p.LinesPerBuffer {
			run.pool.publishFull(fillIndex)
			fillIndex = run.pool.acquireEmpty()
			fill = run.pool.buffer(fillIndex)
		}
	}

	// A final partial batch still carries data lines.
	if fill.Size() > 0 {
		run.pool.publishFull(fillIndex)
	}
	return nil
}

// decodeError marks the run as failed and builds the error surfaced after
// join. The flag transition happens under the full-queue mutex so waiting
// analyzers observe it; the partial fill buffer is deliberately not
// published, because a half-decoded file must yield no results.
func (p *CsvFileParser) decodeError(run *parseRun, completedLines int, err error) error {
	run.pool.fullMu.Lock()
	run.decodeFailed.Store(true)
	run.pool.fullMu.Unlock()
	run.pool.fullCond.Broadcast()

	column := 1
	var derr *decode.Error
	if errors.As(err, &derr) {
		column = derr.Column
	}
	return &DecodeError{Path: p.path, Line: completedLines + 1, Column: column, Err: err}
}

// analyzeLoop is one analyzer: it drains full buffers until the reader is
// done and the full queue is empty, or the run failed to decode.
func (r *parseRun) analyzeLoop() {
	for {
		index, ok := r.acquireFull()
		if !ok {
			return
		}
		r.analyzeBuffer(r.pool.buffer(index))
		r.pool.buffer(index).Clear()
		r.pool.releaseEmpty(index)
	}
}

// acquireFull blocks until a full buffer is available or the run is over.
// The exit predicate is re-evaluated after every wakeup.
func (r *parseRun) acquireFull() (int, bool) {
	r.pool.fullMu.Lock()
	defer r.pool.fullMu.Unlock()
	for {
		if r.decodeFailed.Load() {
			return 0, false
		}
		if len(r.pool.full) > 0 {
			index := r.pool.full[0]
			r.pool.full = r.pool.full[1:]
			return index, true
		}
		if r.readerDone.Load() {
			return 0, false
		}
		r.pool.fullCond.Wait()
	}
}

// analyzeBuffer tokenizes every line in the buffer against a private delta
// and folds the delta into the shared results. The snapshot/merge split
// keeps the hot tokenization loop free of any shared lock; the merge is
// O(columns) and commutative, so interleaving with other analyzers is safe.
func (r *parseRun) analyzeBuffer(buffer *ParserBuffer) {
	r.resultsMu.RLock()
	local := r.results.Snapshot()
	r.resultsMu.RUnlock()

	numColumns := len(local.columns)
	tok := tokenizer.New(r.escape, r.separator, r.quote)
	fields := make([]string, 0, numColumns)

	for _, line := range buffer.Lines() {
		fields = tok.AppendFields(fields[:0], line)
		for i, field := range fields {
			if i < numColumns {
				local.columns[i].AnalyzeToken(field)
			}
		}
		local.numLines++
		if len(fields) != numColumns {
			local.numMalformedLines++
		}
	}

	r.resultsMu.Lock()
	err := r.results.Update(local)
	r.resultsMu.Unlock()
	if err != nil {
		// The delta was cloned from the shared results; a shape mismatch
		// here is a corrupted pool invariant.
		panic(err)
	}
}
