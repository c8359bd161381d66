package mutagens

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// AllGroup activates every registered group.
const AllGroup = "ALL"

type group struct {
	name     string
	mutators func() []Mutator
}

func concat(fns ...func() []Mutator) func() []Mutator {
	return func() []Mutator {
		var out []Mutator
		for _, fn := range fns {
			out = append(out, fn()...)
		}

		return out
	}
}

// groups is ordered; activation lists and ALL resolve against it.
var groups = []group{
	{"LOCAL_NAME_MUTATOR", LocalNameMutators},
	{"ARGUMENTS_LIST_MUTATOR", concat(ArgumentsListMutators, ArgumentsListSecondPhaseMutators)},
	{"FIELD_NAME_MUTATOR", FieldNameMutators},
	{"METHOD_NAME_MUTATOR", concat(MethodNameMutators, FactoryMethodMutators)},
	{"FIELD_ACCESS_TO_METHOD_CALL_MUTATOR", FieldAccessToMethodCallMutators},
	{"LOCAL_TO_FIELD_ACCESS_MUTATOR", LocalToFieldAccessMutators},
	{"FIELD_TO_LOCAL_ACCESS_MUTATOR", FieldToLocalAccessMutators},
	{"LOCAL_TO_METHOD_MUTATOR", LocalToMethodCallMutators},
	{"TYPE_REPLACEMENT", CatchTypeWideningMutators},
	{"RET_METHOD_CALL_GUARD_MUTATOR", ReturningMethodCallGuardMutators},
	{"VOID_METHOD_CALL_GUARD_MUTATOR", VoidMethodCallGuardMutators},
	{"PRECONDITION_ADDITION_MUTATOR", PreconditionAdditionMutators},
	{"NON_VOID_METHOD_CALL_GUARD_MUTATOR", NonVoidMethodCallGuardMutators},
	{"RET_DEREFERENCE_GUARD_MUTATOR", ReturningDereferenceGuardMutators},
	{"DEREFERENCE_GUARD_MUTATOR", DereferenceGuardMutators},
	{"NON_VOID_METHOD_CALL_MUTATOR", NonVoidMethodCallRemovalMutators},
}

// Groups lists the names an activation list may use, ALL last.
func Groups() []string {
	names := make([]string, 0, len(groups)+1)
	for _, g := range groups {
		names = append(names, g.name)
	}

	return append(names, AllGroup)
}

func lookupGroup(name string) ([]Mutator, bool) {
	if name == AllGroup {
		var out []Mutator
		for _, g := range groups {
			out = append(out, g.mutators()...)
		}

		return out, true
	}

	for _, g := range groups {
		if g.name == name {
			return g.mutators(), true
		}
	}

	return nil, false
}

// Resolve turns an activation list into variants, without duplicates and
// ordered by unique id. An empty list means ALL. Names are case-insensitive.
func Resolve(names []string) ([]Mutator, error) {
	if len(names) == 0 {
		names = []string{AllGroup}
	}

	seen := make(map[string]bool)

	var out []Mutator

	for _, raw := range names {
		name := strings.ToUpper(strings.TrimSpace(raw))

		mus, ok := lookupGroup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownMutator, raw, strings.Join(Groups(), ", "))
		}

		for _, mu := range mus {
			if seen[mu.UniqueID()] {
				continue
			}

			seen[mu.UniqueID()] = true
			out = append(out, mu)
		}
	}

	slices.SortFunc(out, func(a, b Mutator) int {
		return cmp.Compare(a.UniqueID(), b.UniqueID())
	})

	return out, nil
}

// Lookup finds a variant among mus by unique id.
func Lookup(mus []Mutator, uniqueID string) (Mutator, bool) {
	for _, mu := range mus {
		if mu.UniqueID() == uniqueID {
			return mu, true
		}
	}

	return nil, false
}

// FamilyOf strips the variant suffix of a variant name.
func FamilyOf(name string) string {
	i := strings.LastIndexByte(name, '_')
	if i < 0 || i == len(name)-1 {
		return name
	}

	suffix := name[i+1:]
	if len(suffix) == 1 || strings.Trim(suffix, "0123456789") == "" {
		return name[:i]
	}

	return name
}
