package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInvalidName is returned for logical names that cannot be used as a file
// name inside the output directory
var ErrInvalidName = errors.New("invalid file name")

// Manager persists JSON documents as <name>.json files in one directory.
// Every write replaces the previous content atomically.
type Manager struct {
	outputDir string
	mu        sync.Mutex
}

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{outputDir: outputDir}, nil
}

// Path returns the file path used for a logical name
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name+".json")
}

// WriteJSON serializes v with two-space indentation and replaces
// <dir>/<name>.json with it
func (m *Manager) WriteJSON(name string, v interface{}) error {
	if err := validateName(name); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.writeAtomic(m.Path(name), &buf)
}

// writeAtomic writes to a temporary file first and renames it over the target
func (m *Manager) writeAtomic(filename string, r io.Reader) error {
	tempFile, err := os.CreateTemp(m.outputDir, ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := io.Copy(tempFile, r); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tempPath, filename); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// ReadJSON decodes <dir>/<name>.json into v
func (m *Manager) ReadJSON(name string, v interface{}) error {
	if err := validateName(name); err != nil {
		return err
	}

	data, err := os.ReadFile(m.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// Exists reports whether <dir>/<name>.json exists
func (m *Manager) Exists(name string) bool {
	if validateName(name) != nil {
		return false
	}
	_, err := os.Stat(m.Path(name))
	return err == nil
}

func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}
