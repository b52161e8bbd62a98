package loader

import (
	"os"
	"strings"
	"testing"

	"github.com/gennadiy1g/csvbulkload/ddl"
)

func TestConnectionSettings_Validate(t *testing.T) {
	settings := ConnectionSettings{Database: "demo"}
	if err := settings.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if settings.Host != "127.0.0.1" || settings.Port != 50000 {
		t.Errorf("defaults not applied: %+v", settings)
	}
	if settings.User != "monetdb" || settings.Password != "monetdb" {
		t.Errorf("credential defaults not applied: %+v", settings)
	}

	var missing ConnectionSettings
	if err := missing.Validate(); err == nil {
		t.Error("Validate should require a database name")
	}
}

func TestODBC_ConnectionString(t *testing.T) {
	l := &ODBC{Settings: ConnectionSettings{
		Host:     "db.example.com",
		Port:     50001,
		Database: "warehouse",
		User:     "loader",
		Password: "secret",
	}}
	got := l.ConnectionString()
	want := "DRIVER={MonetDB ODBC Driver};HOST=db.example.com;PORT=50001;DATABASE=warehouse;UID=loader;PWD=secret"
	if got != want {
		t.Errorf("ConnectionString = %q, want %q", got, want)
	}
}

func TestWriteScript(t *testing.T) {
	stmts := ddl.Statements{
		Drop:   `DROP TABLE IF EXISTS "t"`,
		Create: `CREATE TABLE "t" ("a" INT)`,
		Copy:   `COPY OFFSET 2 INTO "t" FROM '/data/t.csv' DELIMITERS ',','\n','"' NULL AS ''`,
	}

	script, err := WriteScript(stmts)
	if err != nil {
		t.Fatalf("WriteScript failed: %v", err)
	}
	defer os.Remove(script)

	data, err := os.ReadFile(script)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("script has %d lines, want 3:\n%s", len(lines), content)
	}
	for i, stmt := range []string{stmts.Drop, stmts.Create, stmts.Copy} {
		if lines[i] != stmt+";" {
			t.Errorf("line %d = %q, want %q", i, lines[i], stmt+";")
		}
	}
}

func TestWriteScript_SkipsEmptyStatements(t *testing.T) {
	script, err := WriteScript(ddl.Statements{Create: `CREATE TABLE "t" ("a" INT)`})
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(script)

	data, _ := os.ReadFile(script)
	if strings.Count(string(data), ";\n") != 1 {
		t.Errorf("script should contain exactly one statement:\n%s", data)
	}
}

func TestMclient_Args(t *testing.T) {
	l := &Mclient{Settings: ConnectionSettings{
		Host:     "localhost",
		Port:     50000,
		Database: "demo",
	}}
	got := l.args("/tmp/load.sql")
	want := []string{"-h", "localhost", "-p", "50000", "-d", "demo", "/tmp/load.sql"}
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
