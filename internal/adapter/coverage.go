package adapter

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	m "mutafix.dev/pkg/mutafix/internal/model"
)

// CoverageLoader reads the block coverage table of a test run.
type CoverageLoader interface {
	LoadCoverage(path string) ([]m.CoverageRow, error)
}

// FailingTestsLoader reads the names of the originally failing tests.
type FailingTestsLoader interface {
	LoadFailingTests(path string) ([]string, error)
}

// YAMLCoverageLoader reads coverage rows of the form
//
//	- class: demo.Calc
//	  method: add
//	  desc: (II)I
//	  block: 0
//	  tests: [demo.CalcTest.adds]
//
// Class names may be dotted or internal; rows come back with internal names.
type YAMLCoverageLoader struct{}

// NewYAMLCoverageLoader creates a YAMLCoverageLoader.
func NewYAMLCoverageLoader() *YAMLCoverageLoader {
	return &YAMLCoverageLoader{}
}

// LoadCoverage implements CoverageLoader.
func (l *YAMLCoverageLoader) LoadCoverage(path string) ([]m.CoverageRow, error) {
	// #nosec G304 - path comes from the user configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read coverage: %w", err)
	}

	var rows []m.CoverageRow
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode coverage %s: %w", path, err)
	}

	for i := range rows {
		rows[i].Class = InternalName(rows[i].Class)

		if rows[i].Method == "" || rows[i].Desc == "" {
			return nil, fmt.Errorf("coverage %s: row %d has no method signature", path, i)
		}
	}

	return rows, nil
}

// InternalName turns a dotted Java class name into its internal form.
func InternalName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), ".", "/")
}

// FileFailingTestsLoader reads a YAML list when the file ends in .yaml or
// .yml, and one test per line otherwise. Blank lines and lines starting with
// # are skipped.
type FileFailingTestsLoader struct{}

// NewFileFailingTestsLoader creates a FileFailingTestsLoader.
func NewFileFailingTestsLoader() *FileFailingTestsLoader {
	return &FileFailingTestsLoader{}
}

// LoadFailingTests implements FailingTestsLoader.
func (l *FileFailingTestsLoader) LoadFailingTests(path string) ([]string, error) {
	// #nosec G304 - path comes from the user configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read failing tests: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var names []string
		if err := yaml.Unmarshal(data, &names); err != nil {
			return nil, fmt.Errorf("failed to decode failing tests %s: %w", path, err)
		}

		return compact(names), nil
	}

	var names []string

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		names = append(names, sc.Text())
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan failing tests %s: %w", path, err)
	}

	return compact(names), nil
}

func compact(names []string) []string {
	out := make([]string, 0, len(names))

	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || strings.HasPrefix(n, "#") {
			continue
		}

		out = append(out, n)
	}

	return out
}
