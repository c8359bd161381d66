package adapter

import (
	"fmt"
	"os"
	"path/filepath"
)

// ClassWriter stores materialized class files.
type ClassWriter interface {
	// WriteClass writes data as className under dir, laid out by package,
	// and returns the file path.
	WriteClass(dir, className string, data []byte) (string, error)
}

type localClassWriter struct{}

// NewClassWriter creates a ClassWriter writing to the local filesystem.
func NewClassWriter() ClassWriter {
	return &localClassWriter{}
}

func (w *localClassWriter) WriteClass(dir, className string, data []byte) (string, error) {
	path := filepath.Join(dir, filepath.FromSlash(className)+classSuffix)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create class directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write class %s: %w", className, err)
	}

	return path, nil
}
