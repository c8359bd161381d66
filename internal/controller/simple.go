package controller

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "mutafix.dev/pkg/mutafix/internal/model"
)

// SimpleUI prints tables through the command's output stream.
type SimpleUI struct {
	cmd *cobra.Command
}

var _ UI = (*SimpleUI)(nil)

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// DisplayCandidates prints the per-mutator counts of a report.
func (s *SimpleUI) DisplayCandidates(ctx context.Context, report *m.Report, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderMutatorTable(report))

	if path != "" {
		s.printf("Report %s saved to %s\n", report.RunID, path)
	}

	return nil
}

func renderMutatorTable(report *m.Report) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Mutator", "Candidates"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	counts := report.CountByMutator()
	slices.SortStableFunc(counts, func(a, b m.MutatorCount) int {
		return strings.Compare(a.Mutator, b.Mutator)
	})

	for _, c := range counts {
		table.Append([]string{c.Mutator, strconv.Itoa(c.Count)})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Classes %d", report.Classes),
		strconv.Itoa(len(report.Candidates)),
	})

	table.Render()

	return buf.String()
}

// DisplayScores prints candidates in report order, which the workflow keeps
// sorted by decreasing suspiciousness.
func (s *SimpleUI) DisplayScores(ctx context.Context, report *m.Report, top int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cands := report.Candidates
	if top > 0 && top < len(cands) {
		cands = cands[:top]
	}

	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"#", "Susp", "Location", "Mutator", "Description"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	for i, c := range cands {
		table.Append([]string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(c.Susp, 'f', 4, 64),
			location(c),
			c.Name,
			c.Description,
		})
	}

	table.Render()

	s.printf("\nFormula: %s\n%s", report.Formula, buf.String())

	return nil
}

// DisplayHierarchy prints the statistics of a hierarchy index.
func (s *SimpleUI) DisplayHierarchy(ctx context.Context, stats m.HierarchyStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Metric", "Count"})
	table.SetBorder(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	rows := []struct {
		name  string
		count int
	}{
		{"classes", stats.Classes},
		{"supertypes", stats.Supertypes},
		{"subtype edges", stats.SubtypeEdges},
		{"factory return types", stats.FactoryTypes},
		{"factory methods", stats.FactoryMethods},
		{"skipped entries", stats.SkippedEntries},
	}

	for _, row := range rows {
		table.Append([]string{row.name, strconv.Itoa(row.count)})
	}

	table.Render()

	s.printf("\n%s", buf.String())

	return nil
}

// DisplayMutant prints where a mutant was written.
func (s *SimpleUI) DisplayMutant(ctx context.Context, mutant *m.Mutant, path, diff string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c := mutant.Candidate
	s.printf("%s\n  %s at %s\n", c.ID, c.Description, location(c))

	if path != "" {
		s.printf("  written to %s (%d bytes)\n", path, len(mutant.Bytes))
	}

	if diff != "" {
		s.printf("\n%s", diff)
	}

	return nil
}

// View prints every candidate; SimpleUI has nothing to browse with.
func (s *SimpleUI) View(ctx context.Context, report *m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("Report %s (%s)\n", report.RunID, report.CreatedAt.Format("2006-01-02 15:04:05"))

	for _, c := range report.Candidates {
		s.printf("%s\t%s\n", c.ID, c.Description)
	}

	return nil
}

func (s *SimpleUI) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

// location renders where a candidate sits in the source, falling back to the
// method when the class has no line table.
func location(c m.Candidate) string {
	if c.File != "" && c.Line > 0 {
		return c.File + ":" + strconv.Itoa(c.Line)
	}

	return c.ID.Location()
}
