package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFilesPrecedence(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	base := filepath.Join(dir, ".env")
	if err := os.WriteFile(local, []byte("GATEWAY_TEST_A=local\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(base, []byte("GATEWAY_TEST_A=base\nGATEWAY_TEST_B=base\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GATEWAY_TEST_A", "")
	t.Setenv("GATEWAY_TEST_B", "")
	os.Unsetenv("GATEWAY_TEST_A")
	os.Unsetenv("GATEWAY_TEST_B")

	loaded, err := LoadEnvFiles(local, base, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("LoadEnvFiles() error: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded = %v, want 2 files", loaded)
	}
	if got := os.Getenv("GATEWAY_TEST_A"); got != "local" {
		t.Fatalf("GATEWAY_TEST_A = %q, want local", got)
	}
	if got := os.Getenv("GATEWAY_TEST_B"); got != "base" {
		t.Fatalf("GATEWAY_TEST_B = %q, want base", got)
	}
}
