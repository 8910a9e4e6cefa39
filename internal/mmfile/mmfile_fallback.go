//go:build !unix && !windows

// Package mmfile provides platform-specific helpers for mapping dump files
// read-only into memory.
package mmfile

import (
	"fmt"
	"os"
)

// Map reads the whole file on platforms without mmap. Non-regular files
// report ErrNotRegular so callers can stream them instead.
func Map(path string) ([]byte, func() error, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("mmfile: %s: %w", path, ErrNotRegular)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("mmfile: read %s: %w", path, err)
	}
	return data, func() error { return nil }, nil
}
