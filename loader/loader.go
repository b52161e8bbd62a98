// Package loader executes a rendered load plan against MonetDB. Two
// backends exist: an in-process one speaking ODBC over database/sql, and
// an out-of-process one that writes a script and invokes mclient.
package loader

import (
	"context"
	"fmt"

	"github.com/gennadiy1g/csvbulkload/ddl"
)

// RejectsUnknown is returned as the reject count by backends that cannot
// query sys.rejects.
const RejectsUnknown int64 = -1

// Loader executes a load plan and reports how many records the server
// rejected, or RejectsUnknown when the backend cannot tell.
type Loader interface {
	Load(ctx context.Context, stmts ddl.Statements) (rejected int64, err error)
}

// ConnectionSettings locates the target MonetDB server.
type ConnectionSettings struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// Validate fills defaults and rejects settings no backend can use.
func (s *ConnectionSettings) Validate() error {
	if s.Host == "" {
		s.Host = "127.0.0.1"
	}
	if s.Port == 0 {
		s.Port = 50000
	}
	if s.User == "" {
		s.User = "monetdb"
	}
	if s.Password == "" {
		s.Password = "monetdb"
	}
	if s.Database == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}
