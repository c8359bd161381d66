package adapter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "mutafix.dev/pkg/mutafix/internal/model"
)

const coverageYAML = `
- class: demo.Calc
  method: add
  desc: (II)I
  block: 0
  tests: [demo.CalcTest.adds, "demo.CalcTest::negatives"]
- class: demo/Calc
  method: <init>
  desc: ()V
  block: 2
  tests: []
`

func TestYAMLCoverageLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.yaml")
	writeTestFile(t, path, []byte(coverageYAML))

	rows, err := NewYAMLCoverageLoader().LoadCoverage(path)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, m.CoverageRow{
		BlockLocation: m.BlockLocation{Class: "demo/Calc", Method: "add", Desc: "(II)I", Block: 0},
		Tests:         []string{"demo.CalcTest.adds", "demo.CalcTest::negatives"},
	}, rows[0])
	assert.Equal(t, m.BlockLocation{Class: "demo/Calc", Method: "<init>", Desc: "()V", Block: 2}, rows[1].BlockLocation)
	assert.Empty(t, rows[1].Tests)
}

func TestYAMLCoverageLoader_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
	}{
		{"not a list", "class: demo.Calc\n"},
		{"missing descriptor", "- class: demo.Calc\n  method: add\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			writeTestFile(t, path, []byte(tt.body))

			_, err := NewYAMLCoverageLoader().LoadCoverage(path)
			require.Error(t, err)
		})
	}

	_, err := NewYAMLCoverageLoader().LoadCoverage(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestFileFailingTestsLoader(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
		body string
	}{
		{"text", "failing.txt", "# from the last run\ndemo.CalcTest::adds\n\n  demo.CalcTest.negatives  \n"},
		{"yaml", "failing.yml", "- demo.CalcTest::adds\n- demo.CalcTest.negatives\n- ''\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeTestFile(t, path, []byte(tt.body))

			names, err := NewFileFailingTestsLoader().LoadFailingTests(path)
			require.NoError(t, err)
			assert.Equal(t, []string{"demo.CalcTest::adds", "demo.CalcTest.negatives"}, names)
		})
	}
}

func TestInternalName(t *testing.T) {
	assert.Equal(t, "demo/util/Box$Inner", InternalName(" demo.util.Box$Inner "))
	assert.Equal(t, "demo/Calc", InternalName("demo/Calc"))
}
