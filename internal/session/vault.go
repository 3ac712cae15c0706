package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Vault is the opaque key-value store the session is persisted in.
// Implementations must survive process restarts; an empty string means
// the key is absent.
type Vault interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// FileVault persists keys as a single JSON object on disk, created with
// 0600 permissions since it holds the bearer credential.
type FileVault struct {
	mu   sync.Mutex
	path string
}

// NewFileVault creates a vault backed by the given file path.
func NewFileVault(path string) *FileVault {
	return &FileVault{path: path}
}

func (v *FileVault) load() (map[string]string, error) {
	data, err := os.ReadFile(v.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vault: %w", err)
	}
	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		// A corrupt vault is treated as empty rather than wedging the
		// client; the user logs in again.
		return map[string]string{}, nil
	}
	return m, nil
}

func (v *FileVault) save(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(v.path), 0700); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(v.path, data, 0600)
}

func (v *FileVault) Get(key string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	m, err := v.load()
	if err != nil {
		return "", err
	}
	return m[key], nil
}

func (v *FileVault) Set(key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	m, err := v.load()
	if err != nil {
		return err
	}
	m[key] = value
	return v.save(m)
}

func (v *FileVault) Delete(key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	m, err := v.load()
	if err != nil {
		return err
	}
	delete(m, key)
	return v.save(m)
}

// MemVault is an in-memory vault for tests.
type MemVault struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemVault creates an empty in-memory vault.
func NewMemVault() *MemVault {
	return &MemVault{m: map[string]string{}}
}

func (v *MemVault) Get(key string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.m[key], nil
}

func (v *MemVault) Set(key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.m[key] = value
	return nil
}

func (v *MemVault) Delete(key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.m, key)
	return nil
}
