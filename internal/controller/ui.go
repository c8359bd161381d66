// Package controller renders mutafix results: plain tables for pipes and
// logs, and an interactive report viewer on terminals.
package controller

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "mutafix.dev/pkg/mutafix/internal/model"
)

// UI displays the results of the workflow commands.
type UI interface {
	// DisplayCandidates summarizes an enumeration run, one row per mutator.
	DisplayCandidates(ctx context.Context, report *m.Report, path string) error
	// DisplayScores lists the top candidates by suspiciousness; top <= 0 lists all.
	DisplayScores(ctx context.Context, report *m.Report, top int) error
	DisplayHierarchy(ctx context.Context, stats m.HierarchyStats) error
	// DisplayMutant reports a materialized candidate and, when not empty, the
	// diff of the disassembled method.
	DisplayMutant(ctx context.Context, mutant *m.Mutant, path, diff string) error
	// View browses every candidate of a report.
	View(ctx context.Context, report *m.Report) error
}

// NewUI returns the interactive UI on terminals and the plain one otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd)
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
