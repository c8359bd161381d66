package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	m "mutafix.dev/pkg/mutafix/internal/model"
)

// ErrNoReports is returned when a reports directory holds no report.
var ErrNoReports = errors.New("no reports found")

const (
	reportPrefix = "report-"
	reportSuffix = ".yaml"
)

// ReportStore persists candidate reports as YAML documents.
type ReportStore interface {
	// SaveReport writes r under dir and returns the file path. A report
	// without a run id gets a fresh one.
	SaveReport(dir string, r *m.Report) (string, error)
	LoadReport(path string) (*m.Report, error)
	// LatestReport returns the path of the most recently created report in dir.
	LatestReport(dir string) (string, error)
}

type reportStore struct {
	now func() time.Time
}

// NewReportStore creates a ReportStore backed by the local filesystem.
func NewReportStore() ReportStore {
	return &reportStore{now: time.Now}
}

// NewRunID returns a fresh report run id.
func NewRunID() string {
	return uuid.NewString()
}

func reportFile(runID string) string {
	return reportPrefix + runID + reportSuffix
}

func (s *reportStore) SaveReport(dir string, r *m.Report) (string, error) {
	if r.RunID == "" {
		r.RunID = NewRunID()
	}

	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	path := filepath.Join(dir, reportFile(r.RunID))

	tmp, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return "", fmt.Errorf("failed to write report: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to publish report: %w", err)
	}

	return path, nil
}

func (s *reportStore) LoadReport(path string) (*m.Report, error) {
	// #nosec G304 - path comes from the user or from LatestReport
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r m.Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}

	if _, err := uuid.Parse(r.RunID); err != nil {
		return nil, fmt.Errorf("report %s has an invalid run id %q: %w", path, r.RunID, err)
	}

	return &r, nil
}

func (s *reportStore) LatestReport(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w in %s", ErrNoReports, dir)
	}

	if err != nil {
		return "", fmt.Errorf("failed to list reports: %w", err)
	}

	type found struct {
		path    string
		created time.Time
	}

	var reports []found

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, reportPrefix) || !strings.HasSuffix(name, reportSuffix) {
			continue
		}

		path := filepath.Join(dir, name)

		r, err := s.LoadReport(path)
		if err != nil {
			return "", err
		}

		reports = append(reports, found{path: path, created: r.CreatedAt})
	}

	if len(reports) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoReports, dir)
	}

	latest := slices.MaxFunc(reports, func(a, b found) int {
		return a.created.Compare(b.created)
	})

	return latest.path, nil
}
