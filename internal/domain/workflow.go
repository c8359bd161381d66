package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mutafix.dev/pkg/mutafix/internal/adapter"
	"mutafix.dev/pkg/mutafix/internal/controller"
	"mutafix.dev/pkg/mutafix/internal/domain/classinfo"
	"mutafix.dev/pkg/mutafix/internal/domain/hierarchy"
	"mutafix.dev/pkg/mutafix/internal/domain/mutagens"
	"mutafix.dev/pkg/mutafix/internal/domain/susp"
	m "mutafix.dev/pkg/mutafix/internal/model"
)

// SessionArgs describes the code under mutation and the test evidence about it.
type SessionArgs struct {
	ClassPath []string
	// Codebase is scanned for the hierarchy index; empty means ClassPath.
	Codebase       []string
	Coverage       string
	Failing        string
	Checker        string
	Mutators       []string
	ExcludeMethods []string
	CacheSize      int
	Parallel       int
}

// ListArgs contains the arguments for enumerating candidates.
type ListArgs struct {
	SessionArgs
	Reports  string
	SpillDir string

	ShardIndex      int
	TotalShardCount int
}

// MutateArgs contains the arguments for materializing one candidate.
type MutateArgs struct {
	SessionArgs
	ID     string
	Output string
	Diff   bool
}

// ScoreArgs contains the arguments for ranking the candidates of a report.
type ScoreArgs struct {
	Reports string
	// Report is a report file; empty means the latest one under Reports.
	Report   string
	Coverage string
	Failing  string
	Formula  string
	Top      int
}

// IndexArgs contains the arguments for building the hierarchy index.
type IndexArgs struct {
	Codebase []string
	Parallel int
}

// ViewArgs contains the arguments for browsing a report.
type ViewArgs struct {
	Reports string
	Report  string
}

// Workflow runs the mutafix commands over whole classpaths.
type Workflow interface {
	List(ctx context.Context, args ListArgs) error
	Mutate(ctx context.Context, args MutateArgs) error
	Score(ctx context.Context, args ScoreArgs) error
	Index(ctx context.Context, args IndexArgs) error
	View(ctx context.Context, args ViewArgs) error
}

type workflow struct {
	adapter.ReportStore
	adapter.CoverageLoader
	adapter.FailingTestsLoader
	adapter.ClassWriter
	controller.UI

	openClassPath func(paths []string) (adapter.ClassPath, error)
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	reportStore adapter.ReportStore,
	coverage adapter.CoverageLoader,
	failing adapter.FailingTestsLoader,
	classWriter adapter.ClassWriter,
	ui controller.UI,
) Workflow {
	return &workflow{
		ReportStore:        reportStore,
		CoverageLoader:     coverage,
		FailingTestsLoader: failing,
		ClassWriter:        classWriter,
		UI:                 ui,
		openClassPath:      adapter.NewClassPath,
	}
}

// session is an engine together with the inputs it was built from.
type session struct {
	Engine

	classpath adapter.ClassPath
	codebase  adapter.ClassPath
	rows      []m.CoverageRow
	index     susp.Index
	mutators  []mutagens.Mutator
}

func (s *session) Close() error {
	var errs []error

	if s.codebase != nil && s.codebase != s.classpath {
		errs = append(errs, s.codebase.Close())
	}

	if s.classpath != nil {
		errs = append(errs, s.classpath.Close())
	}

	return errors.Join(errs...)
}

func (s *session) mutatorNames() []string {
	names := make([]string, len(s.mutators))
	for i, mu := range s.mutators {
		names[i] = mu.UniqueID()
	}

	return names
}

// openSession loads every input named by args and builds the engine over it.
func (w *workflow) openSession(ctx context.Context, args SessionArgs) (_ *session, err error) {
	if len(args.ClassPath) == 0 {
		return nil, errors.New("no classpath given")
	}

	mutators, err := mutagens.Resolve(args.Mutators)
	if err != nil {
		return nil, err
	}

	s := &session{mutators: mutators}

	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if s.classpath, err = w.openClassPath(args.ClassPath); err != nil {
		return nil, fmt.Errorf("open classpath: %w", err)
	}

	s.codebase = s.classpath
	if len(args.Codebase) > 0 {
		if s.codebase, err = w.openClassPath(args.Codebase); err != nil {
			return nil, fmt.Errorf("open codebase: %w", err)
		}
	}

	if s.rows, err = w.loadCoverage(args.Coverage); err != nil {
		return nil, err
	}

	failing, err := w.loadFailing(args.Failing)
	if err != nil {
		return nil, err
	}

	checker := args.Checker
	if len(failing) == 0 && checker != susp.CheckerDummy {
		slog.Warn("no failing tests given, every method is a candidate", "checker", checker)

		checker = susp.CheckerDummy
	}

	if s.index, err = susp.New(checker, s.rows, failing); err != nil {
		return nil, err
	}

	hier, err := hierarchy.Build(ctx, hierarchySources(s.codebase), args.Parallel)
	if err != nil {
		return nil, fmt.Errorf("build hierarchy index: %w", err)
	}

	size := args.CacheSize
	if size <= 0 {
		size = classinfo.DefaultCacheSize
	}

	cache, err := classinfo.NewCache(s.classpath, size)
	if err != nil {
		return nil, err
	}

	s.Engine, err = NewEngine(EngineConfig{
		Source:         s.classpath,
		Susp:           s.index,
		Hierarchy:      hier,
		Classes:        cache,
		Mutators:       mutators,
		ExcludeMethods: args.ExcludeMethods,
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("session ready",
		"classpath", s.classpath.Name(),
		"coverage_rows", len(s.rows),
		"failing", len(failing),
		"checker", checker,
		"mutators", len(mutators))

	return s, nil
}

func (w *workflow) loadCoverage(path string) ([]m.CoverageRow, error) {
	if path == "" {
		return nil, nil
	}

	rows, err := w.LoadCoverage(path)
	if err != nil {
		return nil, fmt.Errorf("load coverage: %w", err)
	}

	return rows, nil
}

func (w *workflow) loadFailing(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	names, err := w.LoadFailingTests(path)
	if err != nil {
		return nil, fmt.Errorf("load failing tests: %w", err)
	}

	return names, nil
}

func hierarchySources(cp adapter.ClassPath) []hierarchy.Source {
	entries := cp.Entries()

	sources := make([]hierarchy.Source, len(entries))
	for i, e := range entries {
		sources[i] = e
	}

	return sources
}
