package susp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "mutafix.dev/pkg/mutafix/internal/model"
)

func row(class, method, desc string, block int, tests ...string) m.CoverageRow {
	return m.CoverageRow{
		BlockLocation: m.BlockLocation{Class: class, Method: method, Desc: desc, Block: block},
		Tests:         tests,
	}
}

func coverage() []m.CoverageRow {
	return []m.CoverageRow{
		row("demo/Calc", "add", "(II)I", 0, "demo.CalcTest::testAdd(x)", "demo.CalcTest::testSub"),
		row("demo/Calc", "sub", "(II)I", 0, "demo.CalcTest::testSub"),
		row("demo/Calc", "sub", "(II)I", 1, "demo.CalcTest:testAdd"),
		row("demo/Util", "pad", "(Ljava/lang/String;)Ljava/lang/String;", 0, "demo.UtilTest.testPad"),
	}
}

func TestSanitizeTestName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"pkg.T::case(x)", "pkg.T.case"},
		{"pkg.T:case", "pkg.T.case"},
		{"pkg.T.case", "pkg.T.case"},
		{"pkg.T.case[1](y)", "pkg.T.case[1]"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeTestName(tt.in))
		})
	}
}

func TestIndex_Implementations(t *testing.T) {
	failing := []string{"demo.CalcTest::testAdd"}

	for _, kind := range []string{CheckerStrict, CheckerWeak} {
		t.Run(kind, func(t *testing.T) {
			idx, err := New(kind, coverage(), failing)
			require.NoError(t, err)

			assert.True(t, idx.IsClassHit("demo/Calc"))
			assert.False(t, idx.IsClassHit("demo/Util"))
			assert.False(t, idx.IsClassHit("demo/Unknown"))

			assert.True(t, idx.IsMethodHit("demo/Calc", "add", "(II)I"))
			assert.True(t, idx.IsMethodHit("demo/Calc", "sub", "(II)I"))
			assert.False(t, idx.IsMethodHit("demo/Calc", "add", "(JJ)J"))
			assert.False(t, idx.IsMethodHit("demo/Util", "pad", "(Ljava/lang/String;)Ljava/lang/String;"))

			assert.True(t, idx.IsCandidateHit([]string{"demo.CalcTest:testAdd"}))
			assert.False(t, idx.IsCandidateHit([]string{"demo.CalcTest.testSub"}))
			assert.False(t, idx.IsCandidateHit(nil))

			assert.Equal(t, []string{"demo.CalcTest.testAdd"}, idx.FailingTests())
		})
	}
}

func TestIndex_Dummy(t *testing.T) {
	idx, err := New(CheckerDummy, nil, []string{"a.B::c"})
	require.NoError(t, err)

	assert.True(t, idx.IsClassHit("anything"))
	assert.True(t, idx.IsMethodHit("anything", "m", "()V"))
	assert.True(t, idx.IsCandidateHit(nil))
	assert.Equal(t, []string{"a.B.c"}, idx.FailingTests())
}

func TestNew_UnknownChecker(t *testing.T) {
	_, err := New("fuzzy", nil, nil)
	require.ErrorIs(t, err, ErrUnknownChecker)
}

func TestFormulas(t *testing.T) {
	tests := []struct {
		name           string
		f              Formula
		ef, ep, nf, np int
		want           float64
	}{
		{name: "ochiai zero denominator", f: Ochiai, np: 7, want: 0},
		{name: "ochiai perfect", f: Ochiai, ef: 2, np: 5, want: 1.0},
		{name: "ochiai partial", f: Ochiai, ef: 1, ep: 3, nf: 0, np: 2, want: 0.5},
		{name: "tarantula half", f: Tarantula, ef: 1, ep: 1, nf: 1, np: 1, want: 0.5},
		{name: "tarantula zero", f: Tarantula, want: 0},
		{name: "tarantula only failing", f: Tarantula, ef: 3, np: 4, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.f(tt.ef, tt.ep, tt.nf, tt.np), 1e-9)
		})
	}
}

func TestFormulaByName(t *testing.T) {
	f, err := FormulaByName("Ochiai")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, f(2, 0, 0, 5), 1e-9)

	_, err = FormulaByName("dstar")
	require.ErrorIs(t, err, ErrUnknownFormula)
}

func TestScore(t *testing.T) {
	failing := []string{"T.a", "T.b"}

	// ef=1 (T.a), ep=2 (T.c and the repeated T.a), nf=1 (T.b), np=10-2-2=6
	got := Score(Tarantula, []string{"T::a", "T.c", "T:a"}, failing, 10)
	want := Tarantula(1, 2, 1, 6)
	assert.InDelta(t, want, got, 1e-9)

	assert.InDelta(t, 1.0, Score(Ochiai, []string{"T.a", "T.b"}, failing, 4), 1e-9)
	assert.InDelta(t, 0.0, Score(Ochiai, nil, failing, 4), 1e-9)
}
