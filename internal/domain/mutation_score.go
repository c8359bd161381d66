package domain

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"mutafix.dev/pkg/mutafix/internal/domain/susp"
	m "mutafix.dev/pkg/mutafix/internal/model"
)

// Score ranks the candidates of a report by suspiciousness and saves the
// ranking back next to the report.
func (w *workflow) Score(ctx context.Context, args ScoreArgs) error {
	formula, err := susp.FormulaByName(args.Formula)
	if err != nil {
		return err
	}

	report, path, err := w.loadReport(args.Reports, args.Report)
	if err != nil {
		return err
	}

	rows, err := w.loadCoverage(args.Coverage)
	if err != nil {
		return err
	}

	failing, err := w.loadFailing(args.Failing)
	if err != nil {
		return err
	}

	if len(failing) == 0 {
		return errors.New("scoring needs at least one failing test")
	}

	annotateTests(report.Candidates, rows)
	scoreCandidates(report.Candidates, formula, failing, rows)

	report.Formula = strings.ToLower(args.Formula)

	if _, err := w.SaveReport(filepath.Dir(path), report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	return w.DisplayScores(ctx, report, args.Top)
}

// scoreCandidates sets the suspiciousness of every candidate and sorts them
// by decreasing score; ties keep their enumeration order.
func scoreCandidates(cands []m.Candidate, f susp.Formula, failing []string, rows []m.CoverageRow) {
	failing = sanitizedSet(failing)
	allTests := countTests(cands, failing, rows)

	for i := range cands {
		cands[i].Susp = susp.Score(f, cands[i].Tests, failing, allTests)
	}

	slices.SortStableFunc(cands, func(a, b m.Candidate) int {
		return cmp.Compare(b.Susp, a.Susp)
	})
}

// countTests sizes the suite as every test named by the coverage rows, the
// candidates or the failing list.
func countTests(cands []m.Candidate, failing []string, rows []m.CoverageRow) int {
	var names []string

	names = append(names, failing...)

	for _, r := range rows {
		names = append(names, r.Tests...)
	}

	for _, c := range cands {
		names = append(names, c.Tests...)
	}

	return len(sanitizedSet(names))
}

func sanitizedSet(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, susp.SanitizeTestName(n))
	}

	slices.Sort(out)

	return slices.Compact(out)
}
