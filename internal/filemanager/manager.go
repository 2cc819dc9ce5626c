// Package filemanager provides file access confined to a single directory.
package filemanager

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

var (
	// ErrPathEscape is returned for names that leave the root.
	ErrPathEscape = errors.New("filemanager: path escapes root")

	// ErrNotFound is returned when a file does not exist.
	ErrNotFound = errors.New("filemanager: file not found")
)

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// Manager reads and writes files beneath a root directory. Names are
// slash-separated and relative to the root.
type Manager struct {
	root *os.Root
	path string
}

// Open creates the root directory if needed and returns a manager for it.
//
// Parameters:
//   - dir: Directory all operations are confined to
//
// Returns:
//   - *Manager: Manager ready for use; Close releases the root handle
//   - error: nil on success, otherwise the directory or open error
func Open(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating file root: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("opening file root: %w", err)
	}
	return &Manager{root: root, path: dir}, nil
}

// Path returns the root directory.
func (m *Manager) Path() string {
	return m.path
}

// Close releases the root handle.
func (m *Manager) Close() error {
	return m.root.Close()
}

// Exists reports whether name exists. Invalid names report false.
func (m *Manager) Exists(name string) bool {
	clean, err := cleanName(name)
	if err != nil {
		return false
	}
	_, err = m.root.Stat(clean)
	return err == nil
}

// Read returns the contents of name.
func (m *Manager) Read(name string) ([]byte, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	data, err := m.root.ReadFile(clean)
	if err != nil {
		return nil, mapError(name, err)
	}
	return data, nil
}

// Write replaces the contents of name, creating parent directories.
func (m *Manager) Write(name string, data []byte) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(clean); dir != "." {
		if err := m.root.MkdirAll(dir, dirPerm); err != nil {
			return mapError(name, err)
		}
	}
	if err := m.root.WriteFile(clean, data, filePerm); err != nil {
		return mapError(name, err)
	}
	return nil
}

// Delete removes a file or an empty directory.
func (m *Manager) Delete(name string) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	if clean == "." {
		return fmt.Errorf("%w: refusing to delete root", ErrPathEscape)
	}
	if err := m.root.Remove(clean); err != nil {
		return mapError(name, err)
	}
	return nil
}

// List returns the sorted entry names of dir. Directories carry a
// trailing slash. An empty dir lists the root.
func (m *Manager) List(dir string) ([]string, error) {
	clean, err := cleanName(dir)
	if err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(m.root.FS(), filepath.ToSlash(clean))
	if err != nil {
		return nil, mapError(dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() {
			n += "/"
		}
		names = append(names, n)
	}
	slices.Sort(names)
	return names, nil
}

func cleanName(name string) (string, error) {
	if name == "" || name == "/" {
		return ".", nil
	}
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, name)
	}
	return filepath.Clean(local), nil
}

func mapError(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return fmt.Errorf("accessing %q: %w", name, err)
}
