// Package registry caches parsing results by input path so that a file
// already registered is not analyzed again. CLI workers racing on the same
// input may each parse it, but all of them receive the one entry kept.
package registry

import (
	"path/filepath"

	"github.com/alphadose/haxmap"

	"github.com/gennadiy1g/csvbulkload/parser"
)

// Registry is a concurrent map from cleaned absolute input path to its
// parsing results.
type Registry struct {
	entries *haxmap.Map[string, *parser.ParsingResults]
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: haxmap.New[string, *parser.ParsingResults]()}
}

// Put stores results for a path, replacing any previous entry.
func (r *Registry) Put(path string, results *parser.ParsingResults) {
	r.entries.Set(normalize(path), results)
}

// Get returns the cached results for a path.
func (r *Registry) Get(path string) (*parser.ParsingResults, bool) {
	return r.entries.Get(normalize(path))
}

// GetOrParse returns the cached results for a path, running parse on a
// miss. When two workers race, both may parse but only one result is kept,
// so callers always observe a single consistent entry per path.
func (r *Registry) GetOrParse(path string, parse func() (*parser.ParsingResults, error)) (*parser.ParsingResults, error) {
	key := normalize(path)
	if results, ok := r.entries.Get(key); ok {
		return results, nil
	}
	results, err := parse()
	if err != nil {
		return nil, err
	}
	actual, _ := r.entries.GetOrSet(key, results)
	return actual, nil
}

// Del removes a path's entry.
func (r *Registry) Del(path string) {
	r.entries.Del(normalize(path))
}

// Len reports how many paths have cached results.
func (r *Registry) Len() int {
	return int(r.entries.Len())
}

func normalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
