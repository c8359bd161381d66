// Package susp decides which classes, methods and candidates are covered by
// failing tests and scores candidates by suspiciousness.
package susp

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	m "mutafix.dev/pkg/mutafix/internal/model"
)

// ErrUnknownChecker is returned by New for an unregistered checker name.
var ErrUnknownChecker = errors.New("unknown suspicion checker")

// Checker names accepted by New.
const (
	CheckerDummy  = "dummy"
	CheckerStrict = "strict"
	CheckerWeak   = "weak"
)

// Index answers whether code is hit by the originally failing tests.
// Implementations are read-only after construction.
type Index interface {
	IsClassHit(class string) bool
	IsMethodHit(class, name, desc string) bool
	// IsCandidateHit reports whether any of the tests covering a candidate is failing.
	IsCandidateHit(tests []string) bool
	FailingTests() []string
}

// New builds the index called kind. Failing test names are sanitized.
func New(kind string, rows []m.CoverageRow, failing []string) (Index, error) {
	switch strings.ToLower(kind) {
	case CheckerDummy:
		return NewDummy(failing), nil
	case "", CheckerStrict, "default":
		return NewStrict(rows, failing), nil
	case CheckerWeak:
		return NewWeak(rows, failing), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChecker, kind)
	}
}

// SanitizeTestName normalizes a test identifier: "Class::name" and
// "Class:name" both become "Class.name", and everything from the first
// parenthesis on is dropped.
func SanitizeTestName(name string) string {
	name = strings.ReplaceAll(name, ":", ".")
	name = strings.ReplaceAll(name, "..", ".")

	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}

	return name
}

func sanitizeAll(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, SanitizeTestName(n))
	}

	return out
}

type testSet map[string]struct{}

func newTestSet(sanitized []string) testSet {
	s := make(testSet, len(sanitized))
	for _, n := range sanitized {
		s[n] = struct{}{}
	}

	return s
}

// intersects reports whether one of tests, once sanitized, is in s.
func (s testSet) intersects(tests []string) bool {
	for _, t := range tests {
		if _, ok := s[SanitizeTestName(t)]; ok {
			return true
		}
	}

	return false
}

type dummy struct {
	failing []string
}

// NewDummy returns an index where everything is hit.
func NewDummy(failing []string) Index {
	return &dummy{failing: sanitizeAll(failing)}
}

func (d *dummy) IsClassHit(string) bool {
	return true
}

func (d *dummy) IsMethodHit(string, string, string) bool {
	return true
}

func (d *dummy) IsCandidateHit([]string) bool {
	return true
}

func (d *dummy) FailingTests() []string {
	return slices.Clone(d.failing)
}

// strict keeps every coverage row and checks them on demand.
type strict struct {
	failing []string
	set     testSet
	byClass map[string][]m.CoverageRow
}

// NewStrict returns an index where a class or method is hit iff one of its
// blocks is covered by a failing test.
func NewStrict(rows []m.CoverageRow, failing []string) Index {
	s := &strict{
		failing: sanitizeAll(failing),
		byClass: make(map[string][]m.CoverageRow),
	}

	s.set = newTestSet(s.failing)

	for _, r := range rows {
		s.byClass[r.Class] = append(s.byClass[r.Class], r)
	}

	return s
}

func (s *strict) IsClassHit(class string) bool {
	for _, r := range s.byClass[class] {
		if s.set.intersects(r.Tests) {
			return true
		}
	}

	return false
}

func (s *strict) IsMethodHit(class, name, desc string) bool {
	for _, r := range s.byClass[class] {
		if r.Method == name && r.Desc == desc && s.set.intersects(r.Tests) {
			return true
		}
	}

	return false
}

func (s *strict) IsCandidateHit(tests []string) bool {
	return s.set.intersects(tests)
}

func (s *strict) FailingTests() []string {
	return slices.Clone(s.failing)
}

// weak indexes, up front, the method signatures of blocks covered by a failing test.
type weak struct {
	failing  []string
	set      testSet
	coverage map[string]map[string]struct{}
}

// NewWeak returns an index with the same class and method answers as
// NewStrict, precomputed into a class to method signature set.
func NewWeak(rows []m.CoverageRow, failing []string) Index {
	w := &weak{
		failing:  sanitizeAll(failing),
		coverage: make(map[string]map[string]struct{}),
	}

	w.set = newTestSet(w.failing)

	for _, r := range rows {
		if !w.set.intersects(r.Tests) {
			continue
		}

		methods, ok := w.coverage[r.Class]
		if !ok {
			methods = make(map[string]struct{})
			w.coverage[r.Class] = methods
		}

		methods[r.Signature()] = struct{}{}
	}

	return w
}

func (w *weak) IsClassHit(class string) bool {
	_, ok := w.coverage[class]
	return ok
}

func (w *weak) IsMethodHit(class, name, desc string) bool {
	_, ok := w.coverage[class][name+desc]
	return ok
}

func (w *weak) IsCandidateHit(tests []string) bool {
	return w.set.intersects(tests)
}

func (w *weak) FailingTests() []string {
	return slices.Clone(w.failing)
}
