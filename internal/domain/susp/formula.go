package susp

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownFormula is returned by FormulaByName for an unregistered name.
var ErrUnknownFormula = errors.New("unknown suspiciousness formula")

// Formula computes suspiciousness from ef (failing tests covering a point),
// ep (passing tests covering it), nf (failing tests not covering it) and np
// (passing tests not covering it).
type Formula func(ef, ep, nf, np int) float64

// Ochiai is ef / sqrt((ef+ep)*(ef+nf)), zero when the denominator is zero.
func Ochiai(ef, ep, nf, _ int) float64 {
	denom := math.Sqrt(float64((ef + ep) * (ef + nf)))
	if denom <= 0 {
		return 0
	}

	return float64(ef) / denom
}

// Tarantula is r1/(r1+r2) with r1 = ef/(ef+nf) and r2 = ep/(ep+np).
func Tarantula(ef, ep, nf, np int) float64 {
	var r1, r2 float64

	if ef+nf != 0 {
		r1 = float64(ef) / float64(ef+nf)
	}

	if ep+np != 0 {
		r2 = float64(ep) / float64(ep+np)
	}

	if r1+r2 <= 0 {
		return 0
	}

	return r1 / (r1 + r2)
}

var formulas = map[string]Formula{
	"ochiai":    Ochiai,
	"tarantula": Tarantula,
}

// FormulaByName returns "ochiai" or "tarantula".
func FormulaByName(name string) (Formula, error) {
	f, ok := formulas[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormula, name)
	}

	return f, nil
}

// Score counts ef, ep, nf and np for a candidate covered by covering, given
// the sanitized failing tests and the number of tests in the whole suite,
// then applies f. A failing test is counted once; repeats count as passing.
func Score(f Formula, covering, failing []string, allTests int) float64 {
	remaining := newTestSet(failing)

	var ef, ep int

	for _, t := range covering {
		name := SanitizeTestName(t)
		if _, ok := remaining[name]; ok {
			ef++
			delete(remaining, name)

			continue
		}

		ep++
	}

	nf := len(remaining)
	np := allTests - len(failing) - ep

	return f(ef, ep, nf, np)
}
