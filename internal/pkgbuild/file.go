package pkgbuild

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BackupSuffix is appended to the recipe path by Backup.
const BackupSuffix = ".curbot-backup"

// ReadLines reads a PKGBUILD and splits it into lines without trailing
// newlines. Join with "\n" reproduces the file byte for byte.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return strings.Split(string(data), "\n"), nil
}

// WriteLines writes lines to path atomically: temp file in the same
// directory, fsync, then rename. A failed patch never leaves a partially
// written recipe behind.
func WriteLines(path string, lines []string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pkgbuild-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(strings.Join(lines, "\n")); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Backup copies the recipe to path+BackupSuffix and returns the backup
// path.
func Backup(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	backup := path + BackupSuffix
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}
	return backup, nil
}

// Restore moves the backup created by Backup back over the recipe.
func Restore(path string) error {
	backup := path + BackupSuffix
	if _, err := os.Stat(backup); err != nil {
		return fmt.Errorf("no backup at %s: %w", backup, err)
	}
	return os.Rename(backup, path)
}
