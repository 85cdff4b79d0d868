package database

import (
	"strings"
	"testing"

	"github.com/iliyamo/venue-reservation/internal/config"
)

func TestSchemaStatements(t *testing.T) {
	stmts := statements(schemaSQL)
	want := []string{"rooms", "services", "event_types", "reservations", "reservation_targets", "reservation_services"}
	if len(stmts) != len(want) {
		t.Fatalf("statements = %d, want %d", len(stmts), len(want))
	}
	for i, name := range want {
		if !strings.Contains(stmts[i], "CREATE TABLE IF NOT EXISTS "+name+" ") {
			t.Errorf("statement %d does not create %s:\n%s", i, name, stmts[i])
		}
	}
}

func TestStatementsSkipsBlanks(t *testing.T) {
	got := statements("SELECT 1;\n\n ; SELECT 2;")
	if len(got) != 2 || got[0] != "SELECT 1" || got[1] != "SELECT 2" {
		t.Errorf("statements = %q", got)
	}
}

func TestDSN(t *testing.T) {
	cases := []struct {
		cfg  config.DBConfig
		want string
	}{
		{config.DBConfig{User: "app", Host: "db", Port: "3306", Name: "venue"}, "app@tcp(db:3306)/venue?"},
		{config.DBConfig{User: "app", Pass: "pw", Host: "db", Port: "3306", Name: "venue"}, "app:pw@tcp(db:3306)/venue?"},
	}
	for _, tc := range cases {
		got := DSN(tc.cfg)
		if !strings.HasPrefix(got, tc.want) || !strings.Contains(got, "parseTime=true") {
			t.Errorf("DSN = %q, want prefix %q", got, tc.want)
		}
	}
}
