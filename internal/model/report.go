package model

import "time"

// Report is a saved enumeration run.
type Report struct {
	RunID      string      `yaml:"run_id"`
	CreatedAt  time.Time   `yaml:"created_at"`
	Formula    string      `yaml:"formula,omitempty"`
	Mutators   []string    `yaml:"mutators"`
	Classes    int         `yaml:"classes"`
	Candidates []Candidate `yaml:"candidates"`
}

// MutatorCount is the number of candidates one mutator produced.
type MutatorCount struct {
	Mutator string
	Count   int
}

// CountByMutator groups the candidates of r by variant name, in first-seen order.
func (r *Report) CountByMutator() []MutatorCount {
	var (
		counts []MutatorCount
		seen   = make(map[string]int)
	)

	for _, c := range r.Candidates {
		i, ok := seen[c.Name]
		if !ok {
			i = len(counts)
			seen[c.Name] = i
			counts = append(counts, MutatorCount{Mutator: c.Name})
		}

		counts[i].Count++
	}

	return counts
}

// HierarchyStats summarizes a class hierarchy index.
type HierarchyStats struct {
	Classes        int // classes scanned
	Supertypes     int // types with at least one direct subtype
	SubtypeEdges   int
	FactoryTypes   int // types with at least one factory method
	FactoryMethods int
	SkippedEntries int
}
