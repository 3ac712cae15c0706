package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := &Config{BaseURL: "https://chat.example.com/api", DefaultProfile: "work", SearchDebounceMS: 150}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.BaseURL != "https://chat.example.com/api" {
		t.Errorf("BaseURL = %q, want saved value", loaded.BaseURL)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.SearchDebounce() != 150*time.Millisecond {
		t.Errorf("SearchDebounce() = %v, want 150ms", loaded.SearchDebounce())
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.SearchDebounce() != DefaultSearchDebounce {
		t.Errorf("SearchDebounce() = %v, want %v", cfg.SearchDebounce(), DefaultSearchDebounce)
	}
	if cfg.MessagePageSize != DefaultPageSize {
		t.Errorf("MessagePageSize = %d, want %d", cfg.MessagePageSize, DefaultPageSize)
	}
}

func TestLoadFillsAbsentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("default_profile = \"main\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want default applied", cfg.BaseURL)
	}
	if cfg.MessagePageSize != DefaultPageSize {
		t.Errorf("MessagePageSize = %d, want default applied", cfg.MessagePageSize)
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := Save(path, Default()); err != nil {
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
