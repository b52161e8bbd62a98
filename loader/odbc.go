package loader

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "odbc" database/sql driver.
	_ "github.com/alexbrainman/odbc"

	"github.com/gennadiy1g/csvbulkload/ddl"
)

// ODBC loads through the MonetDB ODBC driver over a live connection.
type ODBC struct {
	Settings ConnectionSettings

	// DriverName is the database/sql driver to open. Empty selects the
	// registered odbc driver.
	DriverName string
}

// ConnectionString renders the MonetDB ODBC connection string.
func (l *ODBC) ConnectionString() string {
	s := l.Settings
	return fmt.Sprintf("DRIVER={MonetDB ODBC Driver};HOST=%s;PORT=%d;DATABASE=%s;UID=%s;PWD=%s",
		s.Host, s.Port, s.Database, s.User, s.Password)
}

// Load executes DROP, CREATE and COPY in order on one connection, then
// queries sys.rejects for the reject count. The DROP is allowed to fail:
// the table may not exist yet.
func (l *ODBC) Load(ctx context.Context, stmts ddl.Statements) (int64, error) {
	if err := l.Settings.Validate(); err != nil {
		return RejectsUnknown, err
	}

	driverName := l.DriverName
	if driverName == "" {
		driverName = "odbc"
	}
	db, err := sql.Open(driverName, l.ConnectionString())
	if err != nil {
		return RejectsUnknown, fmt.Errorf("opening connection: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, stmts.Drop); err != nil && ctx.Err() != nil {
		return RejectsUnknown, ctx.Err()
	}
	if _, err := db.ExecContext(ctx, stmts.Create); err != nil {
		return RejectsUnknown, fmt.Errorf("creating table: %w", err)
	}
	if _, err := db.ExecContext(ctx, stmts.Copy); err != nil {
		return RejectsUnknown, fmt.Errorf("bulk load: %w", err)
	}

	var rejected int64
	if err := db.QueryRowContext(ctx, ddl.RejectedRecordsQuery).Scan(&rejected); err != nil {
		return RejectsUnknown, nil
	}
	return rejected, nil
}
