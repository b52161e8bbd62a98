package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/gennadiy1g/csvbulkload/ddl"
)

// Mclient loads by writing the statements to a script and running the
// MonetDB command line client. The reject count is unknown on this path
// because the script runs in its own session.
type Mclient struct {
	Settings ConnectionSettings

	// Binary overrides the client executable. Empty selects mclient.
	Binary string
}

// Load writes the plan to a temporary script and invokes mclient on it.
func (l *Mclient) Load(ctx context.Context, stmts ddl.Statements) (int64, error) {
	if err := l.Settings.Validate(); err != nil {
		return RejectsUnknown, err
	}

	script, err := WriteScript(stmts)
	if err != nil {
		return RejectsUnknown, err
	}
	defer os.Remove(script)

	binary := l.Binary
	if binary == "" {
		binary = "mclient"
	}
	cmd := exec.CommandContext(ctx, binary, l.args(script)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return RejectsUnknown, fmt.Errorf("mclient: %v: %s", err, bytes.TrimSpace(stderr.Bytes()))
		}
		return RejectsUnknown, fmt.Errorf("mclient: %w", err)
	}
	return RejectsUnknown, nil
}

func (l *Mclient) args(script string) []string {
	return []string{
		"-h", l.Settings.Host,
		"-p", fmt.Sprint(l.Settings.Port),
		"-d", l.Settings.Database,
		script,
	}
}

// WriteScript renders the plan into a temporary .sql file, one statement
// per line, each terminated with a semicolon. The caller removes the file.
func WriteScript(stmts ddl.Statements) (string, error) {
	file, err := os.CreateTemp("", "csvbulkload_*.sql")
	if err != nil {
		return "", fmt.Errorf("creating script: %w", err)
	}

	var buf bytes.Buffer
	for _, stmt := range []string{stmts.Drop, stmts.Create, stmts.Copy} {
		if stmt == "" {
			continue
		}
		buf.WriteString(stmt)
		buf.WriteString(";\n")
	}

	if _, err := file.Write(buf.Bytes()); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("writing script: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("writing script: %w", err)
	}
	return file.Name(), nil
}
