package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/pmezard/go-difflib/difflib"

	"mutafix.dev/pkg/mutafix/internal/classfile"
	"mutafix.dev/pkg/mutafix/internal/domain/hierarchy"
	m "mutafix.dev/pkg/mutafix/internal/model"
	pkg "mutafix.dev/pkg/mutafix/pkg"
)

// List enumerates every class of the classpath, keeps the candidates covered
// by a failing test and saves them as a report.
func (w *workflow) List(ctx context.Context, args ListArgs) error {
	s, err := w.openSession(ctx, args.SessionArgs)
	if err != nil {
		slog.Error("Failed to open session", "error", err)
		return err
	}
	defer closeSession(s)

	classes, err := s.classpath.Classes()
	if err != nil {
		return fmt.Errorf("list classes: %w", err)
	}

	classes, err = shardClasses(classes, args.ShardIndex, args.TotalShardCount)
	if err != nil {
		return err
	}

	cands, err := collectCandidates(ctx, s, classes, args.Parallel, args.SpillDir)
	if err != nil {
		slog.Error("Failed to enumerate candidates", "error", err)
		return fmt.Errorf("enumerate: %w", err)
	}

	annotateTests(cands, s.rows)

	total := len(cands)
	cands = slices.DeleteFunc(cands, func(c m.Candidate) bool {
		return !s.index.IsCandidateHit(c.Tests)
	})

	slog.Info("enumeration done", "classes", len(classes), "candidates", len(cands), "dropped", total-len(cands))

	report := &m.Report{
		Mutators:   s.mutatorNames(),
		Classes:    len(classes),
		Candidates: cands,
	}

	path, err := w.SaveReport(args.Reports, report)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	return w.DisplayCandidates(ctx, report, path)
}

// collectCandidates streams the classes through the engine, spilling each
// batch to disk, and returns the candidates in class order.
func collectCandidates(ctx context.Context, e Engine, classes []string, threads int, spillDir string) ([]m.Candidate, error) {
	spill, err := pkg.NewFileSpill[classBatch](spillDir)
	if err != nil {
		return nil, fmt.Errorf("create spill: %w", err)
	}

	defer func() {
		if err := spill.Close(); err != nil {
			slog.Warn("failed to remove spill file", "path", spill.Path(), "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches, errs := streamCandidates(ctx, e, classes, threads)

	var spillErr error

	for b := range batches {
		if spillErr != nil {
			continue
		}

		if err := spill.Append(b); err != nil {
			spillErr = fmt.Errorf("spill candidates of %s: %w", b.Class, err)
			cancel()
		}
	}

	streamErr := <-errs

	if spillErr != nil {
		return nil, spillErr
	}

	if streamErr != nil {
		return nil, streamErr
	}

	perClass := make([][]m.Candidate, len(classes))

	err = spill.Range(func(_ uint64, b classBatch) error {
		perClass[b.Ordinal] = b.Candidates
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read spill: %w", err)
	}

	return slices.Concat(perClass...), nil
}

// annotateTests fills in the tests covering the block of every candidate.
func annotateTests(cands []m.Candidate, rows []m.CoverageRow) {
	if len(rows) == 0 {
		return
	}

	byBlock := make(map[m.BlockLocation][]string, len(rows))
	for _, r := range rows {
		byBlock[r.BlockLocation] = append(byBlock[r.BlockLocation], r.Tests...)
	}

	for i := range cands {
		c := &cands[i]

		tests := slices.Clone(byBlock[blockOf(c)])
		slices.Sort(tests)
		c.Tests = slices.Compact(tests)
	}
}

func blockOf(c *m.Candidate) m.BlockLocation {
	return m.BlockLocation{Class: c.ID.Class, Method: c.ID.Method, Desc: c.ID.Desc, Block: c.Block}
}

// Mutate materializes one candidate and writes the mutated class file.
func (w *workflow) Mutate(ctx context.Context, args MutateArgs) error {
	id, err := m.ParseMutationID(args.ID)
	if err != nil {
		return err
	}

	s, err := w.openSession(ctx, args.SessionArgs)
	if err != nil {
		slog.Error("Failed to open session", "error", err)
		return err
	}
	defer closeSession(s)

	mutant, err := s.Materialize(ctx, id)
	if err != nil {
		return fmt.Errorf("materialize %s: %w", id, err)
	}

	annotated := []m.Candidate{mutant.Candidate}
	annotateTests(annotated, s.rows)
	mutant.Candidate = annotated[0]

	var path string

	if args.Output != "" {
		if path, err = w.WriteClass(args.Output, id.Class, mutant.Bytes); err != nil {
			return fmt.Errorf("write mutant: %w", err)
		}

		slog.Info("mutant written", "id", id.String(), "path", path)
	}

	var diff string

	if args.Diff {
		original, err := s.classpath.Bytes(id.Class)
		if err != nil {
			return fmt.Errorf("read %s: %w", id.Class, err)
		}

		if diff, err = methodDiff(id, original, mutant.Bytes); err != nil {
			return err
		}
	}

	return w.DisplayMutant(ctx, mutant, path, diff)
}

// methodDiff is the unified diff between the disassembly of the mutated
// method in both class files.
func methodDiff(id m.MutationID, original, mutated []byte) (string, error) {
	before, err := disassemble(id, original)
	if err != nil {
		return "", fmt.Errorf("disassemble original: %w", err)
	}

	after, err := disassemble(id, mutated)
	if err != nil {
		return "", fmt.Errorf("disassemble mutant: %w", err)
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: id.Location() + " (original)",
		ToFile:   id.Location() + " (mutant)",
		Context:  3,
	})
}

func disassemble(id m.MutationID, data []byte) (string, error) {
	c, err := classfile.Parse(data)
	if err != nil {
		return "", err
	}

	mth := c.Method(id.Method, id.Desc)
	if mth == nil {
		return "", fmt.Errorf("no method %s%s in %s", id.Method, id.Desc, id.Class)
	}

	return c.Textify(mth)
}

// Index builds the hierarchy index of the codebase and shows its statistics.
func (w *workflow) Index(ctx context.Context, args IndexArgs) error {
	if len(args.Codebase) == 0 {
		return errors.New("no codebase given")
	}

	cp, err := w.openClassPath(args.Codebase)
	if err != nil {
		return fmt.Errorf("open codebase: %w", err)
	}

	defer func() {
		if err := cp.Close(); err != nil {
			slog.Warn("failed to close codebase", "error", err)
		}
	}()

	idx, err := hierarchy.Build(ctx, hierarchySources(cp), args.Parallel)
	if err != nil {
		return fmt.Errorf("build hierarchy index: %w", err)
	}

	return w.DisplayHierarchy(ctx, idx.Stats())
}

// View opens a saved report.
func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	report, _, err := w.loadReport(args.Reports, args.Report)
	if err != nil {
		return err
	}

	return w.UI.View(ctx, report)
}

// loadReport loads path, or the latest report under dir when path is empty.
func (w *workflow) loadReport(dir, path string) (*m.Report, string, error) {
	if path == "" {
		latest, err := w.LatestReport(dir)
		if err != nil {
			return nil, "", err
		}

		path = latest
	}

	report, err := w.LoadReport(path)
	if err != nil {
		return nil, "", err
	}

	return report, path, nil
}

func closeSession(s *session) {
	if err := s.Close(); err != nil {
		slog.Warn("failed to close session", "error", err)
	}
}
