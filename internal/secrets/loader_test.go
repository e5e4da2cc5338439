package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  file-secret \n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	got, err := Load(Source{Name: "api key", File: path, Value: "inline", Env: "UNUSED"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != "file-secret" {
		t.Errorf("Load() = %q, want trimmed file content", got)
	}
}

func TestLoadFromValue(t *testing.T) {
	got, err := Load(Source{Name: "api key", Value: "inline-secret"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != "inline-secret" {
		t.Errorf("Load() = %q", got)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JOBMATCH_TEST_SECRET", "env-secret")

	got, err := Load(Source{Name: "api key", Env: "JOBMATCH_TEST_SECRET"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != "env-secret" {
		t.Errorf("Load() = %q", got)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(Source{Name: "api key"}); err == nil {
		t.Fatalf("Load() error = nil, want not-configured error")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("   \n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := Load(Source{Name: "api key", File: path}); err == nil {
		t.Fatalf("Load() error = nil, want empty-file error")
	}
}
