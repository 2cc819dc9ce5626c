package filemanager

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { m.Close() }) //nolint:errcheck // Test cleanup
	return m
}

func TestManager_WriteReadDelete(t *testing.T) {
	m := newTestManager(t)

	if m.Exists("notes/today.txt") {
		t.Fatal("Exists() = true before Write")
	}
	if err := m.Write("notes/today.txt", []byte("hello")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !m.Exists("notes/today.txt") {
		t.Fatal("Exists() = false after Write")
	}

	got, err := m.Read("notes/today.txt")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Read() = %q, want hello", got)
	}

	if err := m.Delete("notes/today.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Read("notes/today.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() after delete error = %v, want ErrNotFound", err)
	}
	if err := m.Delete("notes/today.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() missing error = %v, want ErrNotFound", err)
	}
}

func TestManager_List(t *testing.T) {
	m := newTestManager(t)
	for _, name := range []string{"b.txt", "a.txt", "sub/c.txt"} {
		if err := m.Write(name, []byte("x")); err != nil {
			t.Fatalf("Write(%q) error = %v", name, err)
		}
	}

	got, err := m.List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"a.txt", "b.txt", "sub/"}
	if !slices.Equal(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	got, err = m.List("sub")
	if err != nil {
		t.Fatalf("List(sub) error = %v", err)
	}
	if !slices.Equal(got, []string{"c.txt"}) {
		t.Errorf("List(sub) = %v", got)
	}

	if _, err := m.List("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("List(missing) error = %v, want ErrNotFound", err)
	}
}

func TestManager_RejectsEscape(t *testing.T) {
	m := newTestManager(t)
	outside := filepath.Join(filepath.Dir(m.Path()), "outside.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	names := []string{"../outside.txt", "a/../../outside.txt", "/etc/passwd"}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			if _, err := m.Read(name); !errors.Is(err, ErrPathEscape) {
				t.Errorf("Read() error = %v, want ErrPathEscape", err)
			}
			if err := m.Write(name, []byte("x")); !errors.Is(err, ErrPathEscape) {
				t.Errorf("Write() error = %v, want ErrPathEscape", err)
			}
			if err := m.Delete(name); !errors.Is(err, ErrPathEscape) {
				t.Errorf("Delete() error = %v, want ErrPathEscape", err)
			}
			if m.Exists(name) {
				t.Error("Exists() = true for escaping path")
			}
		})
	}
}

func TestManager_SymlinkEscapeBlocked(t *testing.T) {
	m := newTestManager(t)
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "x.txt"), []byte("secret"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(m.Path(), "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, err := m.Read("link/x.txt"); err == nil {
		t.Error("Read() through escaping symlink succeeded")
	}
}

func TestManager_DeleteRootRefused(t *testing.T) {
	m := newTestManager(t)
	if err := m.Delete(""); !errors.Is(err, ErrPathEscape) {
		t.Errorf("Delete(root) error = %v, want ErrPathEscape", err)
	}
}
