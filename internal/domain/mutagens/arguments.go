package mutagens

import (
	"fmt"

	"mutafix.dev/pkg/mutafix/internal/classfile"
)

const (
	argumentsListFamily   = "ARGUMENTS_LIST_MUTATOR"
	argumentsPhase2Family = "ARGUMENTS_LIST_MUTATOR_SECOND_PHASE"
)

// ArgumentsList replaces a call with a call to an overload of the same
// name and return type. Each parameter of the overload is fed an unused
// argument of the same type when there is one, else a value chosen by
// preference.
type ArgumentsList struct {
	variant
	overload int
	pref     preference
	index    int
}

var argumentsListTable = []struct {
	overload int
	pref     preference
	index    int
}{
	{0, prefDefault, 0}, {1, prefDefault, 0},
	{0, prefLocal, 0}, {0, prefLocal, 1}, {1, prefLocal, 0}, {1, prefLocal, 1},
	{0, prefField, 0}, {0, prefField, 1}, {0, prefField, 2},
	{1, prefField, 0}, {1, prefField, 1}, {1, prefField, 2},
	{2, prefField, 0}, {2, prefField, 1}, {2, prefField, 2}, {2, prefField, 3},
	{3, prefField, 0}, {3, prefField, 1}, {3, prefField, 2}, {3, prefField, 3},
	{2, prefLocal, 0}, {2, prefLocal, 1}, {3, prefLocal, 0}, {3, prefLocal, 1},
}

const variantSuffixes = "0123456789abcdefghijklmn"

// ArgumentsListMutators returns the variants of the family.
func ArgumentsListMutators() []Mutator {
	out := make([]Mutator, len(argumentsListTable))
	for i, row := range argumentsListTable {
		out[i] = ArgumentsList{
			variant:  namedVariant(argumentsListFamily, "ARGUMENT_LIST_MUTATOR_"+variantSuffixes[i:i+1], i),
			overload: row.overload,
			pref:     row.pref,
			index:    row.index,
		}
	}

	return out
}

func (mu ArgumentsList) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	return &argumentsListVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type argumentsListVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  ArgumentsList
}

func (v *argumentsListVisitor) pickOverload(op classfile.Opcode, owner, name, desc string) (string, bool) {
	static := op == classfile.INVOKESTATIC
	ret := classfile.ReturnType(desc)
	u := v.ctx.unitOf(owner)
	count := 0

	for _, d := range u.MethodDescs() {
		if d == desc || classfile.ReturnType(d) != ret {
			continue
		}

		for _, mi := range u.Methods(d) {
			if mi.Name != name || !visible(v.ctx, mi.Owner, mi.Public) || mi.Static != static {
				continue
			}

			if count == v.mu.overload {
				return d, true
			}

			count++
		}
	}

	return "", false
}

func (v *argumentsListVisitor) VisitMethodInsn(op classfile.Opcode, owner, name, desc string, itf bool) {
	other, ok := v.pickOverload(op, owner, name, desc)
	if !ok {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	if !v.ctx.Register(v.mu, fmt.Sprintf("replaced call to %s%s with a call to %s%s", name, desc, name, other)) {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	asis := classfile.ArgumentTypes(desc)
	temps := storeArgs(v.ctx, v.Next, asis)
	used := make([]bool, len(asis))

	for _, t := range classfile.ArgumentTypes(other) {
		if i := firstUnused(asis, used, t); i >= 0 {
			used[i] = true
			injectLocal(v.Next, temps[i], t)

			continue
		}

		v.fallback(t).inject(v.Next, t)
	}

	v.Next.VisitMethodInsn(op, owner, name, other, itf)
}

// fallback picks the value of a parameter no argument can feed. A missing
// field falls back to the first local and a missing local to the first
// field; the default value comes last.
func (v *argumentsListVisitor) fallback(t classfile.Type) value {
	desc := t.Descriptor()

	switch v.mu.pref {
	case prefField:
		if fi := pickField(v.ctx, desc, v.mu.index); fi != nil {
			return value{field: fi}
		}

		if lv, ok := pickLocal(v.ctx, desc, 0); ok {
			return value{local: &lv}
		}
	case prefLocal:
		if lv, ok := pickLocal(v.ctx, desc, v.mu.index); ok {
			return value{local: &lv}
		}

		if fi := pickField(v.ctx, desc, 0); fi != nil {
			return value{field: fi}
		}
	}

	return value{}
}

func firstUnused(args []classfile.Type, used []bool, t classfile.Type) int {
	for i, a := range args {
		if a == t && !used[i] {
			return i
		}
	}

	return -1
}

// slotSource says how one argument position is fed in the second phase.
type slotSource int

const (
	slotKeep slotSource = iota
	slotDefault
	slotLocal
	slotField
)

// ArgumentsListSecondPhase keeps the callee but feeds some argument
// positions from live locals or fields instead of the original arguments.
// It only applies to calls whose arity equals the pattern length.
type ArgumentsListSecondPhase struct {
	variant
	pattern []slotSource
}

// ArgumentsListSecondPhaseMutators returns the variants of the family.
func ArgumentsListSecondPhaseMutators() []Mutator {
	pattern := []slotSource{slotKeep, slotKeep, slotLocal, slotLocal, slotKeep}

	return []Mutator{
		ArgumentsListSecondPhase{newVariant(argumentsPhase2Family, 0), pattern},
		ArgumentsListSecondPhase{newVariant(argumentsPhase2Family, 1), pattern},
	}
}

func (mu ArgumentsListSecondPhase) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	return &secondPhaseVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type secondPhaseVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  ArgumentsListSecondPhase
}

// plan resolves every position of the pattern; ok is false as soon as a
// local or a field is missing.
func (v *secondPhaseVisitor) plan(args []classfile.Type) ([]value, bool) {
	values := make([]value, len(args))

	for i, t := range args {
		switch v.mu.pattern[i] {
		case slotLocal:
			lv, ok := pickLocal(v.ctx, t.Descriptor(), v.mu.ordinal)
			if !ok {
				return nil, false
			}

			values[i] = value{local: &lv}
		case slotField:
			fi := pickField(v.ctx, t.Descriptor(), v.mu.ordinal)
			if fi == nil {
				return nil, false
			}

			values[i] = value{field: fi}
		}
	}

	return values, true
}

func (v *secondPhaseVisitor) VisitMethodInsn(op classfile.Opcode, owner, name, desc string, itf bool) {
	args := classfile.ArgumentTypes(desc)
	if len(args) != len(v.mu.pattern) {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	values, ok := v.plan(args)
	if !ok || !v.ctx.Register(v.mu, fmt.Sprintf("replaced call to %s%s with a call to %s%s", name, desc, name, desc)) {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	temps := storeArgs(v.ctx, v.Next, args)

	for i, t := range args {
		if v.mu.pattern[i] == slotKeep {
			injectLocal(v.Next, temps[i], t)
			continue
		}

		values[i].inject(v.Next, t)
	}

	v.Next.VisitMethodInsn(op, owner, name, desc, itf)
}
