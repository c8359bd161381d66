// Package model defines the data structures shared by the mutation engine,
// its adapters and its user interfaces.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidMutationID is returned when a textual identifier cannot be parsed.
var ErrInvalidMutationID = errors.New("invalid mutation id")

const idSeparator = "#"

// MutationID keys one candidate. The same program point yields the same
// identifier in the enumeration and in the materialization pass.
type MutationID struct {
	Class   string `yaml:"class"`  // internal class name, e.g. demo/Calc
	Method  string `yaml:"method"` // method name
	Desc    string `yaml:"desc"`   // method descriptor
	Index   int    `yaml:"index"`  // instruction index inside the method
	Mutator string `yaml:"mutator"`
}

// String renders the identifier in the form accepted by ParseMutationID.
func (id MutationID) String() string {
	return strings.Join([]string{id.Class, id.Method, id.Desc, strconv.Itoa(id.Index), id.Mutator}, idSeparator)
}

// Location is the method part of the identifier, e.g. demo/Calc.add(II)I.
func (id MutationID) Location() string {
	return id.Class + "." + id.Method + id.Desc
}

// ParseMutationID parses the form produced by MutationID.String.
func ParseMutationID(s string) (MutationID, error) {
	parts := strings.Split(s, idSeparator)
	if len(parts) != 5 {
		return MutationID{}, fmt.Errorf("%w: %q", ErrInvalidMutationID, s)
	}

	index, err := strconv.Atoi(parts[3])
	if err != nil {
		return MutationID{}, fmt.Errorf("%w: index %q: %w", ErrInvalidMutationID, parts[3], err)
	}

	for _, p := range []string{parts[0], parts[1], parts[2], parts[4]} {
		if p == "" {
			return MutationID{}, fmt.Errorf("%w: %q", ErrInvalidMutationID, s)
		}
	}

	return MutationID{
		Class:   parts[0],
		Method:  parts[1],
		Desc:    parts[2],
		Index:   index,
		Mutator: parts[4],
	}, nil
}

// Candidate is one site plus one proposed substitution.
type Candidate struct {
	ID          MutationID `yaml:"id"`
	Name        string     `yaml:"name"` // variant name of the mutator
	Description string     `yaml:"description"`
	File        string     `yaml:"file,omitempty"`
	Line        int        `yaml:"line"`
	Block       int        `yaml:"block"`

	// Tests lists the tests covering the block of the candidate, filled in
	// from the coverage table after enumeration.
	Tests []string `yaml:"tests,omitempty"`
	// Susp is the suspiciousness of the candidate, zero until scored.
	Susp float64 `yaml:"susp,omitempty"`
}

// Mutant is a materialized candidate: the full class file with exactly one
// program point altered.
type Mutant struct {
	Candidate Candidate
	Bytes     []byte
}
