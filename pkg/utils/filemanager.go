// Package utils provides small filesystem helpers shared by the batch tools:
// directory creation, ledger discovery, and archival of processed inputs.
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// DiscoverFiles returns the non-directory entries in dir matching pattern,
// e.g. "*.csv".
func DiscoverFiles(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dir, err)
	}
	var files []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			files = append(files, match)
		}
	}
	return files, nil
}

// ArchiveFile moves a processed input into archiveDir, stamping the name so
// repeated runs over the same ledger never collide.
func ArchiveFile(path, archiveDir string) (string, error) {
	if err := EnsureDir(archiveDir); err != nil {
		return "", err
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stamped := fmt.Sprintf("%s_%s%s",
		base[:len(base)-len(ext)], time.Now().Format("20060102_150405"), ext)
	dest := filepath.Join(archiveDir, stamped)

	if err := os.Rename(path, dest); err != nil {
		// Cross-device moves fall back to copy and delete.
		if err := copyFile(path, dest); err != nil {
			return "", fmt.Errorf("failed to archive %s: %w", path, err)
		}
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("failed to remove original %s: %w", path, err)
		}
	}
	return dest, nil
}

func copyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	dest, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dest.Close()

	if _, err := io.Copy(dest, source); err != nil {
		return err
	}
	return dest.Sync()
}
