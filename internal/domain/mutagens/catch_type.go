package mutagens

import (
	"fmt"

	"mutafix.dev/pkg/mutafix/internal/classfile"
)

const catchTypeFamily = "CATCH_TYPE_WIDENING_MUTATOR"

// CatchTypeWidening replaces the type caught by a handler with its direct
// supertype.
type CatchTypeWidening struct {
	variant
}

// CatchTypeWideningMutators returns the variants of the family.
func CatchTypeWideningMutators() []Mutator {
	out := make([]Mutator, 4)
	for i := range out {
		out[i] = CatchTypeWidening{newVariant(catchTypeFamily, i)}
	}

	return out
}

func (mu CatchTypeWidening) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	return &catchTypeVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type tryCatchBlock struct {
	start, end, handler *classfile.Label
	typ                 string
}

// catchTypeVisitor holds back the exception table: the candidate is only
// registered when its handler label is reached, and the table is replayed
// before the maxs.
type catchTypeVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  CatchTypeWidening

	blocks  []tryCatchBlock
	count   int
	chosen  int
	handler *classfile.Label
	widened string
	desc    string
	reached bool
	mutate  bool
}

func (v *catchTypeVisitor) superOf(typ string) (string, bool) {
	supers := v.ctx.supertypes(typ)
	if len(supers) == 0 || supers[0] == classfile.ObjectClass {
		return "", false
	}

	return supers[0], true
}

func (v *catchTypeVisitor) VisitTryCatchBlock(start, end, handler *classfile.Label, typ string) {
	v.blocks = append(v.blocks, tryCatchBlock{start: start, end: end, handler: handler, typ: typ})

	if typ == "" || v.desc != "" {
		return
	}

	if v.count == v.mu.ordinal {
		sup, ok := v.superOf(typ)
		if !ok {
			return
		}

		v.chosen = len(v.blocks) - 1
		v.handler = handler
		v.widened = sup
		v.desc = fmt.Sprintf("catch type %s is replaced with %s", typ, sup)
	}

	v.count++
}

func (v *catchTypeVisitor) VisitLabel(l *classfile.Label) {
	if v.desc != "" && !v.reached && l == v.handler {
		v.reached = true
		v.mutate = v.ctx.Register(v.mu, v.desc)
	}

	v.Next.VisitLabel(l)
}

func (v *catchTypeVisitor) VisitMaxs(maxStack, maxLocals int) {
	v.flush()
	v.Next.VisitMaxs(maxStack, maxLocals)
}

func (v *catchTypeVisitor) VisitEnd() {
	v.flush()
	v.Next.VisitEnd()
}

func (v *catchTypeVisitor) flush() {
	for i, b := range v.blocks {
		typ := b.typ
		if v.mutate && i == v.chosen {
			typ = v.widened
		}

		v.Next.VisitTryCatchBlock(b.start, b.end, b.handler, typ)
	}

	v.blocks = nil
}
