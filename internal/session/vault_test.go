package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileVaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	v := NewFileVault(path)

	if err := v.Set("k1", "v1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := v.Get("k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "v1" {
		t.Errorf("Get(k1) = %q, want v1", got)
	}

	if err := v.Delete("k1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, _ = v.Get("k1")
	if got != "" {
		t.Errorf("Get(k1) after delete = %q, want empty", got)
	}
}

func TestFileVaultMissingKey(t *testing.T) {
	v := NewFileVault(filepath.Join(t.TempDir(), "session.json"))
	got, err := v.Get("absent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "" {
		t.Errorf("Get(absent) = %q, want empty", got)
	}
}

func TestFileVaultPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	v := NewFileVault(path)
	if err := v.Set("k", "secret"); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestFileVaultCorruptFileTreatedEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{garbage"), 0600); err != nil {
		t.Fatal(err)
	}

	v := NewFileVault(path)
	got, err := v.Get("k")
	if err != nil {
		t.Fatalf("Get() on corrupt vault error = %v", err)
	}
	if got != "" {
		t.Errorf("Get(k) = %q, want empty", got)
	}

	// Writing recovers the vault.
	if err := v.Set("k", "v"); err != nil {
		t.Fatalf("Set() after corruption error = %v", err)
	}
	if got, _ := v.Get("k"); got != "v" {
		t.Errorf("Get(k) = %q, want v", got)
	}
}
