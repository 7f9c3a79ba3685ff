package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"paper (双语).pdf", "paper (双语).pdf"},
		{"  spaced.pdf  ", "spaced.pdf"},
		{"../../etc/passwd", "passwd"},
		{"/tmp/abs.pdf", "abs.pdf"},
		{"", "translated.pdf"},
		{".", "translated.pdf"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in, "translated.pdf"); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUniquePathSuffixes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.pdf")

	got, err := UniquePath(path)
	if err != nil {
		t.Fatalf("UniquePath: %v", err)
	}
	if got != path {
		t.Fatalf("expected unchanged path, got %q", got)
	}

	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err = UniquePath(path)
	if err != nil {
		t.Fatalf("UniquePath with collision: %v", err)
	}
	if got != filepath.Join(dir, "out (1).pdf") {
		t.Fatalf("unexpected suffixed path: %q", got)
	}
}

func TestWriteFileUnique(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	first, err := WriteFileUnique(dir, "doc.pdf", []byte("one"))
	if err != nil {
		t.Fatalf("WriteFileUnique: %v", err)
	}
	second, err := WriteFileUnique(dir, "doc.pdf", []byte("two"))
	if err != nil {
		t.Fatalf("WriteFileUnique second: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct paths, both %q", first)
	}

	data, err := os.ReadFile(first)
	if err != nil || string(data) != "one" {
		t.Fatalf("first content = %q, err %v", data, err)
	}
	data, err = os.ReadFile(second)
	if err != nil || string(data) != "two" {
		t.Fatalf("second content = %q, err %v", data, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if entry.Name()[0] == '.' {
			t.Fatalf("leftover temporary file %q", entry.Name())
		}
	}
}
