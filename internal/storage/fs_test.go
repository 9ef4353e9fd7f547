package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("notes/note_a_1.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("notes/note_a_1.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadMissingIsNotExist(t *testing.T) {
	s := tempVault(t)
	_, err := s.Read("notes/gone.md")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestListDirCreatesMissingDir(t *testing.T) {
	s := tempVault(t)
	names, err := s.ListDir("plans")
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("names = %v, want empty", names)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "plans")); err != nil {
		t.Errorf("plans dir not created: %v", err)
	}
}

func TestListDirSkipsSubdirs(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("notes/note_a_1.md", []byte("a"))
	_ = os.MkdirAll(filepath.Join(s.Root(), "notes", "nested"), 0o755)

	names, err := s.ListDir("notes")
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	if len(names) != 1 || names[0] != "note_a_1.md" {
		t.Errorf("names = %v", names)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("notes/del.md", []byte("bye"))
	if err := s.Delete("notes/del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("notes/del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestRename(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("notes/old.md", []byte("data"))
	if err := s.Rename("notes/old.md", "notes/new.md"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	got, err := s.Read("notes/new.md")
	if err != nil {
		t.Fatalf("Read after rename: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("notes/old.md"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestListAll(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("notes/a.md", []byte("a"))
	_ = s.Write("plans/b.md", []byte("b"))
	_ = s.Write("notes/readme.txt", []byte("not md"))

	items, err := s.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.Checksum == "" {
			t.Errorf("missing checksum for %s", it.Path)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicOverwrite(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("notes/atomic.md", []byte("original content"))
	if err := s.Write("notes/atomic.md", []byte("updated content")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("notes/atomic.md")
	if string(got) != "updated content" {
		t.Errorf("content = %q", got)
	}
	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Join(s.Root(), "notes"))
	for _, e := range entries {
		if e.Name() != "atomic.md" {
			t.Errorf("unexpected leftover file %s", e.Name())
		}
	}
}
