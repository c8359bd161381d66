package mutagens

import (
	"fmt"

	"mutafix.dev/pkg/mutafix/internal/classfile"
)

const (
	voidCallGuardFamily      = "VOID_METHOD_CALL_GUARD_MUTATOR"
	retCallGuardFamily       = "RET_METHOD_CALL_GUARD_MUTATOR"
	nonVoidCallGuardFamily   = "NON_VOID_METHOD_CALL_GUARD_MUTATOR"
	retDerefGuardFamily      = "RET_DEREFERENCE_GUARD_MUTATOR"
	derefGuardFamily         = "DEREFERENCE_GUARD_MUTATOR"
	nonVoidCallRemovalFamily = "NON_VOID_METHOD_CALL_MUTATOR"
	preconditionFamily       = "PRECONDITION_ADDITION_MUTATOR"
)

// choice is the value a guard or removal variant substitutes.
type choice struct {
	ordinal int
	pref    preference
	index   int
}

// valueChoices is the common variant table: default value, first and
// second local, first and second field.
var valueChoices = []choice{
	{0, prefDefault, 0},
	{1, prefLocal, 0},
	{2, prefLocal, 1},
	{3, prefField, 0},
	{4, prefField, 1},
}

// sparseChoices keeps ordinal 2 unassigned so saved identifiers stay
// stable.
var sparseChoices = []choice{
	{0, prefDefault, 0},
	{1, prefLocal, 0},
	{3, prefField, 0},
}

// VoidMethodCallGuard skips a void instance call when its receiver is null.
type VoidMethodCallGuard struct {
	variant
}

// VoidMethodCallGuardMutators returns the variants of the family.
func VoidMethodCallGuardMutators() []Mutator {
	return []Mutator{VoidMethodCallGuard{singleVariant(voidCallGuardFamily)}}
}

func (mu VoidMethodCallGuard) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	return &voidGuardVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type voidGuardVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  VoidMethodCallGuard
}

func (v *voidGuardVisitor) VisitMethodInsn(op classfile.Opcode, owner, name, desc string, itf bool) {
	eligible := isVirtualCall(op) && name != classfile.ConstructorName &&
		classfile.ReturnType(desc).Sort() == classfile.SortVoid
	if !eligible || !v.ctx.Register(v.mu, fmt.Sprintf("the call to %s is guarded", callString(owner, name, desc))) {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	args := classfile.ArgumentTypes(desc)
	temps := storeArgs(v.ctx, v.Next, args)
	escape, end := classfile.NewLabel(), classfile.NewLabel()

	v.Next.VisitInsn(classfile.DUP)
	v.Next.VisitJumpInsn(classfile.IFNONNULL, escape)
	v.Next.VisitInsn(classfile.POP)
	v.Next.VisitJumpInsn(classfile.GOTO, end)
	v.Next.VisitLabel(escape)
	restoreArgs(v.Next, args, temps)
	v.Next.VisitMethodInsn(op, owner, name, desc, itf)
	v.Next.VisitLabel(end)
}

// ReturningMethodCallGuard leaves the mutated method early when the
// receiver of an instance call is null.
type ReturningMethodCallGuard struct {
	variant
	choice
}

// ReturningMethodCallGuardMutators returns the variants of the family.
func ReturningMethodCallGuardMutators() []Mutator {
	out := make([]Mutator, len(valueChoices))
	for i, c := range valueChoices {
		out[i] = ReturningMethodCallGuard{newVariant(retCallGuardFamily, c.ordinal), c}
	}

	return out
}

func (mu ReturningMethodCallGuard) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	if ctx.InClassInit() {
		return next
	}

	return &retCallGuardVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type retCallGuardVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  ReturningMethodCallGuard
}

// returnValue picks what an early return of the mutated method yields.
func returnValue(ctx *Context, c choice) (value, bool) {
	ret := ctx.ReturnType()
	if c.pref == prefDefault || ret.Sort() == classfile.SortVoid {
		return value{}, true
	}

	return pickValue(ctx, c.pref, c.index, ret)
}

func describeReturn(ctx *Context, val value) string {
	ret := ctx.ReturnType()
	if ret.Sort() == classfile.SortVoid {
		return "enclosing method"
	}

	return val.describe(ret)
}

func (v *retCallGuardVisitor) VisitMethodInsn(op classfile.Opcode, owner, name, desc string, itf bool) {
	if !isVirtualCall(op) || name == classfile.ConstructorName {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	val, ok := returnValue(v.ctx, v.mu.choice)
	if !ok || !v.ctx.Register(v.mu, fmt.Sprintf("the call to %s%s is guarded returning %s", name, desc, describeReturn(v.ctx, val))) {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	args := classfile.ArgumentTypes(desc)
	temps := storeArgs(v.ctx, v.Next, args)
	escape := classfile.NewLabel()

	v.Next.VisitInsn(classfile.DUP)
	v.Next.VisitJumpInsn(classfile.IFNONNULL, escape)
	injectReturn(v.Next, v.ctx.ReturnType(), val)
	v.Next.VisitLabel(escape)
	restoreArgs(v.Next, args, temps)
	v.Next.VisitMethodInsn(op, owner, name, desc, itf)
}

// NonVoidMethodCallGuard substitutes a value for the result of an
// instance call whose receiver is null.
type NonVoidMethodCallGuard struct {
	variant
	choice
}

// NonVoidMethodCallGuardMutators returns the variants of the family.
func NonVoidMethodCallGuardMutators() []Mutator {
	out := make([]Mutator, len(valueChoices))
	for i, c := range valueChoices {
		out[i] = NonVoidMethodCallGuard{newVariant(nonVoidCallGuardFamily, c.ordinal), c}
	}

	return out
}

func (mu NonVoidMethodCallGuard) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	return &nonVoidGuardVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type nonVoidGuardVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  NonVoidMethodCallGuard
}

func (v *nonVoidGuardVisitor) VisitMethodInsn(op classfile.Opcode, owner, name, desc string, itf bool) {
	ret := classfile.ReturnType(desc)
	if !isVirtualCall(op) || ret.Sort() == classfile.SortVoid {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	val, ok := pickValue(v.ctx, v.mu.pref, v.mu.index, ret)
	if !ok || !v.ctx.Register(v.mu, fmt.Sprintf("the call to %s is guarded using %s", callString(owner, name, desc), val.describe(ret))) {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	args := classfile.ArgumentTypes(desc)
	temps := storeArgs(v.ctx, v.Next, args)
	escape, end := classfile.NewLabel(), classfile.NewLabel()

	v.Next.VisitInsn(classfile.DUP)
	v.Next.VisitJumpInsn(classfile.IFNONNULL, escape)
	v.Next.VisitInsn(classfile.POP)
	val.inject(v.Next, ret)
	v.Next.VisitJumpInsn(classfile.GOTO, end)
	v.Next.VisitLabel(escape)
	restoreArgs(v.Next, args, temps)
	v.Next.VisitMethodInsn(op, owner, name, desc, itf)
	v.Next.VisitLabel(end)
}

// ReturningDereferenceGuard leaves the mutated method early when the
// object of an instance field read is null.
type ReturningDereferenceGuard struct {
	variant
	choice
}

// ReturningDereferenceGuardMutators returns the variants of the family.
func ReturningDereferenceGuardMutators() []Mutator {
	out := make([]Mutator, len(sparseChoices))
	for i, c := range sparseChoices {
		out[i] = ReturningDereferenceGuard{newVariant(retDerefGuardFamily, c.ordinal), c}
	}

	return out
}

func (mu ReturningDereferenceGuard) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	if ctx.InClassInit() {
		return next
	}

	return &retDerefGuardVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type retDerefGuardVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  ReturningDereferenceGuard
}

func (v *retDerefGuardVisitor) VisitFieldInsn(op classfile.Opcode, owner, name, desc string) {
	if op != classfile.GETFIELD {
		v.Next.VisitFieldInsn(op, owner, name, desc)
		return
	}

	val, ok := returnValue(v.ctx, v.mu.choice)
	if !ok || !v.ctx.Register(v.mu, fmt.Sprintf("the access to %s is guarded returning %s", name, describeReturn(v.ctx, val))) {
		v.Next.VisitFieldInsn(op, owner, name, desc)
		return
	}

	escape := classfile.NewLabel()

	v.Next.VisitInsn(classfile.DUP)
	v.Next.VisitJumpInsn(classfile.IFNONNULL, escape)
	injectReturn(v.Next, v.ctx.ReturnType(), val)
	v.Next.VisitLabel(escape)
	v.Next.VisitFieldInsn(op, owner, name, desc)
}

// DereferenceGuard substitutes a value for an instance field read whose
// object is null.
type DereferenceGuard struct {
	variant
	choice
}

// DereferenceGuardMutators returns the variants of the family.
func DereferenceGuardMutators() []Mutator {
	out := make([]Mutator, len(valueChoices))
	for i, c := range valueChoices {
		out[i] = DereferenceGuard{newVariant(derefGuardFamily, c.ordinal), c}
	}

	return out
}

func (mu DereferenceGuard) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	return &derefGuardVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type derefGuardVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  DereferenceGuard
}

func (v *derefGuardVisitor) VisitFieldInsn(op classfile.Opcode, owner, name, desc string) {
	if op != classfile.GETFIELD {
		v.Next.VisitFieldInsn(op, owner, name, desc)
		return
	}

	t := classfile.TypeOf(desc)

	val, ok := pickValue(v.ctx, v.mu.pref, v.mu.index, t)
	if !ok || !v.ctx.Register(v.mu, fmt.Sprintf("the access to %s is guarded using %s", name, val.describe(t))) {
		v.Next.VisitFieldInsn(op, owner, name, desc)
		return
	}

	escape, end := classfile.NewLabel(), classfile.NewLabel()

	v.Next.VisitInsn(classfile.DUP)
	v.Next.VisitJumpInsn(classfile.IFNONNULL, escape)
	v.Next.VisitInsn(classfile.POP)
	val.inject(v.Next, t)
	v.Next.VisitJumpInsn(classfile.GOTO, end)
	v.Next.VisitLabel(escape)
	v.Next.VisitFieldInsn(op, owner, name, desc)
	v.Next.VisitLabel(end)
}

// NonVoidMethodCallRemoval drops a call with a result and pushes a
// substitute value instead.
type NonVoidMethodCallRemoval struct {
	variant
	choice
}

// NonVoidMethodCallRemovalMutators returns the variants of the family.
func NonVoidMethodCallRemovalMutators() []Mutator {
	out := make([]Mutator, len(sparseChoices))
	for i, c := range sparseChoices {
		out[i] = NonVoidMethodCallRemoval{newVariant(nonVoidCallRemovalFamily, c.ordinal), c}
	}

	return out
}

func (mu NonVoidMethodCallRemoval) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	return &removalVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type removalVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  NonVoidMethodCallRemoval
}

func (v *removalVisitor) VisitMethodInsn(op classfile.Opcode, owner, name, desc string, itf bool) {
	ret := classfile.ReturnType(desc)
	if ret.Sort() == classfile.SortVoid {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	val, ok := pickValue(v.ctx, v.mu.pref, v.mu.index, ret)
	if !ok || !v.ctx.Register(v.mu, fmt.Sprintf("the call to %s is replaced with the used of %s", callString(owner, name, desc), val.describe(ret))) {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	args := classfile.ArgumentTypes(desc)
	for i := len(args) - 1; i >= 0; i-- {
		popValue(v.Next, args[i])
	}

	if op != classfile.INVOKESTATIC {
		v.Next.VisitInsn(classfile.POP)
	}

	val.inject(v.Next, ret)
}

// PreconditionAddition returns early from the mutated method when any of
// its reference parameters is null.
type PreconditionAddition struct {
	variant
}

// PreconditionAdditionMutators returns the variants of the family.
func PreconditionAdditionMutators() []Mutator {
	return []Mutator{PreconditionAddition{singleVariant(preconditionFamily)}}
}

func (mu PreconditionAddition) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	if ctx.InConstructor() || ctx.InClassInit() {
		return next
	}

	return &preconditionVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type preconditionVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  PreconditionAddition
}

func (v *preconditionVisitor) VisitCode() {
	v.Next.VisitCode()

	params := v.ctx.Method.NullableParams
	if len(params) == 0 {
		return
	}

	msg := fmt.Sprintf("nullity checks are added for %d nullable parameters of the method %s", len(params), v.ctx.Method.Name)
	if !v.ctx.Register(v.mu, msg) {
		return
	}

	for _, slot := range params {
		escape := classfile.NewLabel()

		v.Next.VisitVarInsn(classfile.ALOAD, slot)
		v.Next.VisitJumpInsn(classfile.IFNONNULL, escape)
		injectReturn(v.Next, v.ctx.ReturnType(), value{})
		v.Next.VisitLabel(escape)
	}
}
