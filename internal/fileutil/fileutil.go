// Package fileutil provides filesystem helpers for saving translated
// documents: collision-free naming and atomic writes.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SanitizeFilename reduces a worker-supplied filename to its base name so it
// cannot escape the output directory. Empty or degenerate names fall back to
// the provided default.
func SanitizeFilename(name, fallback string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return fallback
	}
	return base
}

// UniquePath returns path unchanged when nothing exists there, or the first
// available " (n)"-suffixed variant otherwise.
func UniquePath(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path, nil
	} else if err != nil {
		return "", err
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; i < 1000; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no available output name for %s", path)
}

// WriteFileUnique writes data into dir under name, creating the directory as
// needed and never overwriting an existing file. The write goes through a
// temporary file and rename so readers never observe a partial document.
// Returns the final path.
func WriteFileUnique(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	target, err := UniquePath(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".glossa-*")
	if err != nil {
		return "", fmt.Errorf("create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	return target, nil
}
