package domain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mutafix.dev/pkg/mutafix/internal/adapter"
	"mutafix.dev/pkg/mutafix/internal/domain/susp"
	m "mutafix.dev/pkg/mutafix/internal/model"
)

// recordingUI keeps whatever the workflow asked it to display.
type recordingUI struct {
	report *m.Report
	path   string
	top    int
	stats  *m.HierarchyStats
	mutant *m.Mutant
	diff   string
	viewed *m.Report
}

func (u *recordingUI) DisplayCandidates(_ context.Context, report *m.Report, path string) error {
	u.report, u.path = report, path
	return nil
}

func (u *recordingUI) DisplayScores(_ context.Context, report *m.Report, top int) error {
	u.report, u.top = report, top
	return nil
}

func (u *recordingUI) DisplayHierarchy(_ context.Context, stats m.HierarchyStats) error {
	u.stats = &stats
	return nil
}

func (u *recordingUI) DisplayMutant(_ context.Context, mutant *m.Mutant, path, diff string) error {
	u.mutant, u.path, u.diff = mutant, path, diff
	return nil
}

func (u *recordingUI) View(_ context.Context, report *m.Report) error {
	u.viewed = report
	return nil
}

func newTestWorkflow() (Workflow, *recordingUI) {
	ui := &recordingUI{}

	return NewWorkflow(
		adapter.NewReportStore(),
		adapter.NewYAMLCoverageLoader(),
		adapter.NewFileFailingTestsLoader(),
		adapter.NewClassWriter(),
		ui,
	), ui
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

// classDir lays out demo/Calc and an undecodable demo/Broken.
func classDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "demo", "Calc.class"), calcClass(t))
	writeFile(t, filepath.Join(dir, "demo", "Broken.class"), []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00})

	return dir
}

func sessionArgs(t *testing.T) SessionArgs {
	t.Helper()

	return SessionArgs{
		ClassPath: []string{classDir(t)},
		Mutators:  []string{"LOCAL_NAME_MUTATOR"},
		Parallel:  2,
	}
}

func TestWorkflow_List(t *testing.T) {
	wf, ui := newTestWorkflow()
	reports := t.TempDir()

	err := wf.List(context.Background(), ListArgs{
		SessionArgs: sessionArgs(t),
		Reports:     reports,
		SpillDir:    t.TempDir(),
	})
	require.NoError(t, err)

	require.NotNil(t, ui.report)
	assert.Equal(t, 2, ui.report.Classes)
	assert.Len(t, ui.report.Mutators, 6)
	assert.Equal(t, "LOCAL_NAME_MUTATOR_0", ui.report.Mutators[0])

	var methods []string
	for _, c := range ui.report.Candidates {
		methods = append(methods, c.ID.Method)
	}

	assert.Equal(t, []string{"sum", "sum", "check", "lambda$run$0", "lambda$run$0"}, methods)

	saved, err := adapter.NewReportStore().LoadReport(ui.path)
	require.NoError(t, err)
	assert.Equal(t, ui.report.RunID, saved.RunID)
	assert.Len(t, saved.Candidates, 5)
	assert.Equal(t, reports, filepath.Dir(ui.path))
}

func TestWorkflow_List_Coverage(t *testing.T) {
	wf, ui := newTestWorkflow()
	dir := t.TempDir()

	coverage := filepath.Join(dir, "coverage.yaml")
	writeFile(t, coverage, []byte(`
- class: demo.Calc
  method: sum
  desc: (II)I
  block: 0
  tests: ["demo.CalcTest::sums", demo.CalcTest.sums]
- class: demo.Calc
  method: lambda$run$0
  desc: (II)I
  block: 0
  tests: [demo.CalcTest.passes]
`))

	failing := filepath.Join(dir, "failing.txt")
	writeFile(t, failing, []byte("demo.CalcTest::sums\n"))

	args := sessionArgs(t)
	args.Coverage = coverage
	args.Failing = failing
	args.Checker = susp.CheckerStrict

	require.NoError(t, wf.List(context.Background(), ListArgs{SessionArgs: args, Reports: dir, SpillDir: dir}))

	require.Len(t, ui.report.Candidates, 2)

	for _, c := range ui.report.Candidates {
		assert.Equal(t, "sum", c.ID.Method)
		assert.Equal(t, []string{"demo.CalcTest.sums", "demo.CalcTest::sums"}, c.Tests)
	}
}

func TestWorkflow_List_Shards(t *testing.T) {
	tests := []struct {
		name       string
		shard      int
		candidates int
	}{
		{name: "broken only", shard: 0, candidates: 0},
		{name: "calc only", shard: 1, candidates: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, ui := newTestWorkflow()

			err := wf.List(context.Background(), ListArgs{
				SessionArgs:     sessionArgs(t),
				Reports:         t.TempDir(),
				SpillDir:        t.TempDir(),
				ShardIndex:      tt.shard,
				TotalShardCount: 2,
			})
			require.NoError(t, err)

			assert.Equal(t, 1, ui.report.Classes)
			assert.Len(t, ui.report.Candidates, tt.candidates)
		})
	}
}

func TestWorkflow_List_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(args *ListArgs)
	}{
		{name: "no classpath", mutate: func(args *ListArgs) { args.ClassPath = nil }},
		{name: "unknown mutator", mutate: func(args *ListArgs) { args.Mutators = []string{"NOPE"} }},
		{name: "unknown checker", mutate: func(args *ListArgs) {
			args.Checker = "fuzzy"
			args.Failing = writeFailing(t, "demo.CalcTest.sums")
		}},
		{name: "missing coverage", mutate: func(args *ListArgs) { args.Coverage = filepath.Join(t.TempDir(), "none.yaml") }},
		{name: "bad shard", mutate: func(args *ListArgs) { args.ShardIndex, args.TotalShardCount = 3, 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, ui := newTestWorkflow()

			args := ListArgs{SessionArgs: sessionArgs(t), Reports: t.TempDir(), SpillDir: t.TempDir()}
			tt.mutate(&args)

			require.Error(t, wf.List(context.Background(), args))
			assert.Nil(t, ui.report)
		})
	}
}

func writeFailing(t *testing.T, names ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "failing.yaml")

	var body []byte
	for _, n := range names {
		body = append(body, "- "+n+"\n"...)
	}

	writeFile(t, path, body)

	return path
}

func TestWorkflow_Mutate(t *testing.T) {
	wf, ui := newTestWorkflow()
	out := t.TempDir()

	err := wf.Mutate(context.Background(), MutateArgs{
		SessionArgs: sessionArgs(t),
		ID:          "demo/Calc#sum#(II)I#3#LOCAL_NAME_MUTATOR_0",
		Output:      out,
		Diff:        true,
	})
	require.NoError(t, err)

	require.NotNil(t, ui.mutant)
	assert.Equal(t, "local a is replaced by local b to be used", ui.mutant.Candidate.Description)
	assert.Equal(t, filepath.Join(out, "demo", "Calc.class"), ui.path)

	written, err := os.ReadFile(ui.path)
	require.NoError(t, err)
	assert.Equal(t, ui.mutant.Bytes, written)

	assert.Contains(t, ui.diff, "-    ILOAD 1\n")
	assert.Contains(t, ui.diff, "+    ILOAD 2\n")
	assert.Contains(t, ui.diff, "demo/Calc.sum(II)I (mutant)")
}

func TestWorkflow_Mutate_Errors(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want error
	}{
		{name: "malformed id", id: "demo/Calc#sum", want: m.ErrInvalidMutationID},
		{name: "never enumerated", id: "demo/Calc#sum#(II)I#99#LOCAL_NAME_MUTATOR_0", want: ErrInconsistentEnumeration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, ui := newTestWorkflow()

			err := wf.Mutate(context.Background(), MutateArgs{SessionArgs: sessionArgs(t), ID: tt.id})
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, ui.mutant)
		})
	}
}

func scoredReport() *m.Report {
	cand := func(index int, tests ...string) m.Candidate {
		return m.Candidate{
			ID:    m.MutationID{Class: calc, Method: "sum", Desc: "(II)I", Index: index, Mutator: "LOCAL_NAME_MUTATOR_0"},
			Name:  "LOCAL_NAME_MUTATOR_0",
			Tests: tests,
		}
	}

	return &m.Report{
		Mutators: []string{"LOCAL_NAME_MUTATOR_0"},
		Classes:  1,
		Candidates: []m.Candidate{
			cand(1, "demo.CalcTest.other"),
			cand(2, "demo.CalcTest.sums", "demo.CalcTest.other"),
			cand(3, "demo.CalcTest::sums"),
		},
	}
}

func TestWorkflow_Score(t *testing.T) {
	wf, ui := newTestWorkflow()
	reports := t.TempDir()

	path, err := adapter.NewReportStore().SaveReport(reports, scoredReport())
	require.NoError(t, err)

	err = wf.Score(context.Background(), ScoreArgs{
		Reports: reports,
		Failing: writeFailing(t, "demo.CalcTest.sums"),
		Formula: "Ochiai",
		Top:     2,
	})
	require.NoError(t, err)

	require.NotNil(t, ui.report)
	assert.Equal(t, 2, ui.top)
	assert.Equal(t, "ochiai", ui.report.Formula)

	var order []int
	for _, c := range ui.report.Candidates {
		order = append(order, c.ID.Index)
	}

	assert.Equal(t, []int{3, 2, 1}, order)
	assert.InDelta(t, 1.0, ui.report.Candidates[0].Susp, 1e-9)
	assert.InDelta(t, 0.7071, ui.report.Candidates[1].Susp, 1e-4)
	assert.Zero(t, ui.report.Candidates[2].Susp)

	saved, err := adapter.NewReportStore().LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, "ochiai", saved.Formula)
	assert.Equal(t, 3, saved.Candidates[0].ID.Index)
}

func TestWorkflow_Score_Errors(t *testing.T) {
	reports := t.TempDir()

	_, err := adapter.NewReportStore().SaveReport(reports, scoredReport())
	require.NoError(t, err)

	tests := []struct {
		name string
		args ScoreArgs
		want error
	}{
		{name: "unknown formula", args: ScoreArgs{Reports: reports, Formula: "jaccard"}, want: susp.ErrUnknownFormula},
		{name: "no reports", args: ScoreArgs{Reports: t.TempDir(), Formula: "ochiai"}, want: adapter.ErrNoReports},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, _ := newTestWorkflow()
			require.ErrorIs(t, wf.Score(context.Background(), tt.args), tt.want)
		})
	}

	wf, _ := newTestWorkflow()
	require.Error(t, wf.Score(context.Background(), ScoreArgs{Reports: reports, Formula: "ochiai"}))
}

func TestWorkflow_Index(t *testing.T) {
	wf, ui := newTestWorkflow()

	require.NoError(t, wf.Index(context.Background(), IndexArgs{Codebase: []string{classDir(t)}, Parallel: 2}))

	require.NotNil(t, ui.stats)
	assert.Equal(t, 1, ui.stats.Classes)
	assert.Equal(t, 1, ui.stats.SkippedEntries)

	require.Error(t, wf.Index(context.Background(), IndexArgs{}))
}

func TestWorkflow_View(t *testing.T) {
	reports := t.TempDir()

	report := scoredReport()
	path, err := adapter.NewReportStore().SaveReport(reports, report)
	require.NoError(t, err)

	t.Run("latest", func(t *testing.T) {
		wf, ui := newTestWorkflow()

		require.NoError(t, wf.View(context.Background(), ViewArgs{Reports: reports}))
		require.NotNil(t, ui.viewed)
		assert.Equal(t, report.RunID, ui.viewed.RunID)
	})

	t.Run("explicit path", func(t *testing.T) {
		wf, ui := newTestWorkflow()

		require.NoError(t, wf.View(context.Background(), ViewArgs{Report: path}))
		assert.Len(t, ui.viewed.Candidates, 3)
	})

	t.Run("no reports", func(t *testing.T) {
		wf, _ := newTestWorkflow()
		require.ErrorIs(t, wf.View(context.Background(), ViewArgs{Reports: t.TempDir()}), adapter.ErrNoReports)
	})
}

func TestShardClasses(t *testing.T) {
	classes := []string{"a/A", "a/B", "a/C", "a/D", "a/E"}

	tests := []struct {
		name         string
		index, total int
		want         []string
		wantErr      bool
	}{
		{name: "disabled", index: 0, total: 0, want: classes},
		{name: "first of two", index: 0, total: 2, want: []string{"a/A", "a/C", "a/E"}},
		{name: "second of two", index: 1, total: 2, want: []string{"a/B", "a/D"}},
		{name: "more shards than classes", index: 6, total: 7, want: nil},
		{name: "index out of range", index: 2, total: 2, wantErr: true},
		{name: "negative index", index: -1, total: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := shardClasses(classes, tt.index, tt.total)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnnotateTests(t *testing.T) {
	block := m.BlockLocation{Class: calc, Method: "sum", Desc: "(II)I", Block: 1}
	rows := []m.CoverageRow{
		{BlockLocation: block, Tests: []string{"b", "a"}},
		{BlockLocation: block, Tests: []string{"a"}},
	}

	cands := []m.Candidate{
		{ID: m.MutationID{Class: calc, Method: "sum", Desc: "(II)I"}, Block: 1},
		{ID: m.MutationID{Class: calc, Method: "sum", Desc: "(II)I"}, Block: 0},
	}

	annotateTests(cands, rows)

	assert.Equal(t, []string{"a", "b"}, cands[0].Tests)
	assert.Empty(t, cands[1].Tests)
}

func TestCountTests(t *testing.T) {
	cands := []m.Candidate{{Tests: []string{"demo.T::a", "demo.T.b"}}}
	rows := []m.CoverageRow{{Tests: []string{"demo.T.a", "demo.T.c"}}}

	assert.Equal(t, 4, countTests(cands, []string{"demo.T.d"}, rows))
}
