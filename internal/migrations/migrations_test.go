package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsHaveUpAndDown(t *testing.T) {
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		t.Fatalf("read embedded dir: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("no migrations embedded")
	}
	for _, e := range entries {
		raw, err := fs.ReadFile(files, dir+"/"+e.Name())
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		body := string(raw)
		if !strings.Contains(body, "-- +goose Up") || !strings.Contains(body, "-- +goose Down") {
			t.Fatalf("%s lacks goose annotations", e.Name())
		}
	}
}

func TestUsersTableHasQuotaColumns(t *testing.T) {
	raw, err := fs.ReadFile(files, dir+"/00001_users.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, col := range []string{"plan", "properties", "display_name"} {
		if !strings.Contains(string(raw), col) {
			t.Fatalf("users table missing %s", col)
		}
	}
}
