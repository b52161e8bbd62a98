// Package decode turns an input file into a stream of logical lines in the
// requested character encoding. Decoding failures are reported with the
// exact code-point position so the parser can surface line/column to the
// user instead of silently substituting replacement characters.
package decode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pierrec/lz4/v4"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Error reports a character set conversion failure on one line. Column is
// 1-based: the number of code points decoded on the failing line, plus one.
type Error struct {
	Column int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("character set conversion error at column %d", e.Column)
}

func (e *Error) Unwrap() error { return e.Err }

var errIllegalByte = fmt.Errorf("byte sequence is not valid in the source encoding")

// LineSource yields decoded logical lines from a file. A trailing \r is
// stripped from every line and a byte order mark from the first. Inputs
// ending in .lz4 are transparently decompressed.
type LineSource struct {
	file      *os.File
	reader    *bufio.Reader
	decoder   *encoding.Decoder // nil means strict UTF-8
	firstLine bool
}

// Open opens path and prepares a line source for the named encoding.
// Supported names: utf-8 (default, strict) and the single-byte codepages
// listed in resolveEncoding.
func Open(path, encodingName string) (*LineSource, error) {
	enc, err := resolveEncoding(encodingName)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var r io.Reader = file
	if strings.HasSuffix(strings.ToLower(path), ".lz4") {
		r = lz4.NewReader(file)
	}

	s := &LineSource{
		file:      file,
		reader:    bufio.NewReaderSize(r, 256*1024),
		firstLine: true,
	}
	if enc != nil {
		s.decoder = enc.NewDecoder()
	}
	return s, nil
}

// Next returns the next decoded line. It returns io.EOF after the last
// line, and *Error when the line cannot be decoded.
func (s *LineSource) Next() (string, error) {
	raw, err := s.reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return "", &Error{Column: 1, Err: err}
	}
	if len(raw) == 0 {
		return "", io.EOF
	}

	// Strip the line terminator; the final line may not have one.
	if raw[len(raw)-1] == '\n' {
		raw = raw[:len(raw)-1]
	}
	if len(raw) > 0 && raw[len(raw)-1] == '\r' {
		raw = raw[:len(raw)-1]
	}

	line, derr := s.decodeLine(raw)
	if derr != nil {
		return "", derr
	}

	if s.firstLine {
		s.firstLine = false
		line = strings.TrimPrefix(line, "\ufeff")
	}
	return line, nil
}

func (s *LineSource) decodeLine(raw []byte) (string, *Error) {
	if s.decoder == nil {
		// Strict UTF-8: the stdlib decoder would substitute U+FFFD, the
		// original behavior is to abort at the offending position.
		column := 1
		for i := 0; i < len(raw); {
			r, size := utf8.DecodeRune(raw[i:])
			if r == utf8.RuneError && size == 1 {
				return "", &Error{Column: column, Err: errIllegalByte}
			}
			i += size
			column++
		}
		return string(raw), nil
	}

	decoded, err := s.decoder.Bytes(raw)
	if err != nil {
		return "", &Error{Column: 1, Err: err}
	}
	// Single-byte codepages map unassigned bytes to U+FFFD; treat the
	// first occurrence as the failure site.
	column := 1
	for _, r := range string(decoded) {
		if r == utf8.RuneError {
			return "", &Error{Column: column, Err: errIllegalByte}
		}
		column++
	}
	return string(decoded), nil
}

// Close releases the underlying file.
func (s *LineSource) Close() error {
	return s.file.Close()
}

// resolveEncoding maps a user-facing encoding name to a decoder. A nil
// result with nil error selects the strict UTF-8 path.
func resolveEncoding(name string) (encoding.Encoding, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")

	switch normalized {
	case "", "utf-8", "utf8":
		return nil, nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "iso-8859-2":
		return charmap.ISO8859_2, nil
	case "iso-8859-5":
		return charmap.ISO8859_5, nil
	case "windows-1250", "cp1250":
		return charmap.Windows1250, nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "cp437":
		return charmap.CodePage437, nil
	case "cp850":
		return charmap.CodePage850, nil
	case "cp863":
		return charmap.CodePage863, nil
	case "cp866":
		return charmap.CodePage866, nil
	case "koi8-r":
		return charmap.KOI8R, nil
	case "koi8-u":
		return charmap.KOI8U, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}
