package mutagens

import (
	"fmt"

	"mutafix.dev/pkg/mutafix/internal/classfile"
)

const methodNameFamily = "METHOD_NAME_MUTATOR"

// MethodName redirects a call to another method of the same descriptor
// declared by the same owner.
type MethodName struct {
	variant
}

// MethodNameMutators returns the variants of the family.
func MethodNameMutators() []Mutator {
	out := make([]Mutator, 10)
	for i := range out {
		out[i] = MethodName{newVariant(methodNameFamily, i)}
	}

	return out
}

func (mu MethodName) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	return &methodNameVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type methodNameVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  MethodName
}

func (v *methodNameVisitor) pick(op classfile.Opcode, owner, name, desc string) (string, bool) {
	static := op == classfile.INVOKESTATIC
	count := 0

	for _, mi := range v.ctx.unitOf(owner).Methods(desc) {
		if mi.Name == name || isInitializer(mi.Name) || !visible(v.ctx, mi.Owner, mi.Public) {
			continue
		}

		if mi.Static != static {
			continue
		}

		if count == v.mu.ordinal {
			return mi.Name, true
		}

		count++
	}

	return "", false
}

func (v *methodNameVisitor) VisitMethodInsn(op classfile.Opcode, owner, name, desc string, itf bool) {
	if name == classfile.ConstructorName {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	other, ok := v.pick(op, owner, name, desc)
	if ok && v.ctx.Register(v.mu, fmt.Sprintf("replaced call to %s with a call to %s", name, other)) {
		v.Next.VisitMethodInsn(op, owner, other, desc, itf)
		return
	}

	v.Next.VisitMethodInsn(op, owner, name, desc, itf)
}
