package mutagens

import (
	"fmt"

	"mutafix.dev/pkg/mutafix/internal/classfile"
	"mutafix.dev/pkg/mutafix/internal/domain/classinfo"
)

const localNameFamily = "LOCAL_NAME_MUTATOR"

// LocalName swaps a read or write of a local for the ordinal-th other live
// local of the same type.
type LocalName struct {
	variant
}

// LocalNameMutators returns the variants of the family.
func LocalNameMutators() []Mutator {
	out := make([]Mutator, 6)
	for i := range out {
		out[i] = LocalName{newVariant(localNameFamily, i)}
	}

	return out
}

func (mu LocalName) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	return &localNameVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type localNameVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  LocalName
}

func (v *localNameVisitor) VisitVarInsn(op classfile.Opcode, slot int) {
	if op == classfile.RET {
		v.Next.VisitVarInsn(op, slot)
		return
	}

	// A store may open the scope of its own variable, so the slot is not
	// always live yet.
	this, ok := v.ctx.Scope.Find(slot)
	if !ok {
		v.Next.VisitVarInsn(op, slot)
		return
	}

	other, ok := v.ctx.Scope.Pick(v.mu.ordinal, func(lv classinfo.LocalVarInfo) bool {
		return lv.Slot != slot && lv.Desc == this.Desc
	})
	if !ok {
		v.Next.VisitVarInsn(op, slot)
		return
	}

	role := "used"
	if op.IsStore() {
		role = "defined"
	}

	desc := fmt.Sprintf("local %s is replaced by local %s to be %s", this.Name, other.Name, role)
	if v.ctx.Register(v.mu, desc) {
		v.Next.VisitVarInsn(op, other.Slot)
		return
	}

	v.Next.VisitVarInsn(op, slot)
}
