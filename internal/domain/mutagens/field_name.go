package mutagens

import (
	"fmt"

	"mutafix.dev/pkg/mutafix/internal/classfile"
)

const fieldNameFamily = "FIELD_NAME_MUTATOR"

// FieldName redirects a field access to another field of the same type
// declared by the same owner. Inherited fields are not considered.
type FieldName struct {
	variant
}

// FieldNameMutators returns the variants of the family.
func FieldNameMutators() []Mutator {
	out := make([]Mutator, 6)
	for i := range out {
		out[i] = FieldName{newVariant(fieldNameFamily, i)}
	}

	return out
}

func (mu FieldName) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	return &fieldNameVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type fieldNameVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  FieldName
}

func (v *fieldNameVisitor) pick(op classfile.Opcode, owner, name, desc string) (string, bool) {
	static := isStaticAccess(op)
	count := 0

	for _, fi := range v.ctx.unitOf(owner).Fields(desc) {
		if fi.Name == name || !visible(v.ctx, fi.Owner, fi.Public) {
			continue
		}

		if fi.Static != static || (isFieldStore(op) && fi.Final) {
			continue
		}

		if count == v.mu.ordinal {
			return fi.Name, true
		}

		count++
	}

	return "", false
}

func (v *fieldNameVisitor) VisitFieldInsn(op classfile.Opcode, owner, name, desc string) {
	other, ok := v.pick(op, owner, name, desc)
	if ok && v.ctx.Register(v.mu, fmt.Sprintf("replaced access to %s with an access to %s", name, other)) {
		v.Next.VisitFieldInsn(op, owner, other, desc)
		return
	}

	v.Next.VisitFieldInsn(op, owner, name, desc)
}

func isStaticAccess(op classfile.Opcode) bool {
	return op == classfile.GETSTATIC || op == classfile.PUTSTATIC
}

func isFieldStore(op classfile.Opcode) bool {
	return op == classfile.PUTFIELD || op == classfile.PUTSTATIC
}
