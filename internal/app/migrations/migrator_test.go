package migrations

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

func TestPendingOrdersSQLFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"010_later.sql":  {Data: []byte("SELECT 1;")},
		"002_second.sql": {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("notes")},
		"001_init.sql":   {Data: []byte("SELECT 1;")},
	}
	got, err := Pending(fsys)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	want := "001_init.sql,002_second.sql,010_later.sql"
	if strings.Join(got, ",") != want {
		t.Fatalf("Pending: want=%s got=%v", want, got)
	}
	if v := Version(got[2]); v != "010" {
		t.Fatalf("Version: want=010 got=%s", v)
	}
}

func TestEmbeddedSchema(t *testing.T) {
	content, err := fs.ReadFile(Files(), "001_init.sql")
	if err != nil {
		t.Fatalf("read embedded migration: %v", err)
	}
	for _, table := range []string{"prerequisites", "transcript_sessions", "course_records"} {
		if !strings.Contains(string(content), "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("schema missing table %s", table)
		}
	}
}
