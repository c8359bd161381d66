package mutagens

import (
	"fmt"
	"slices"

	"mutafix.dev/pkg/mutafix/internal/classfile"
	"mutafix.dev/pkg/mutafix/internal/domain/classinfo"
)

const (
	localToFieldFamily = "LOCAL_TO_FIELD_ACCESS_MUTATOR"
	fieldToLocalFamily = "FIELD_TO_LOCAL_ACCESS_MUTATOR"
)

// LocalToFieldAccess replaces a local access with an access to a field of
// the mutated class of the same type.
type LocalToFieldAccess struct {
	variant
}

// LocalToFieldAccessMutators returns the variants of the family.
func LocalToFieldAccessMutators() []Mutator {
	out := make([]Mutator, 5)
	for i := range out {
		out[i] = LocalToFieldAccess{newVariant(localToFieldFamily, i)}
	}

	return out
}

func (mu LocalToFieldAccess) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	// Initializers would get code ahead of the super call.
	if ctx.InConstructor() || ctx.InClassInit() {
		return next
	}

	return &localToFieldVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type localToFieldVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  LocalToFieldAccess
}

func (v *localToFieldVisitor) pick(desc string, store bool) *classinfo.FieldInfo {
	count := 0

	for _, fi := range v.ctx.Unit.Fields(desc) {
		if (v.ctx.IsStatic() && !fi.Static) || (store && fi.Final) {
			continue
		}

		if count == v.mu.ordinal {
			return fi
		}

		count++
	}

	return nil
}

func (v *localToFieldVisitor) VisitVarInsn(op classfile.Opcode, slot int) {
	if op == classfile.RET {
		v.Next.VisitVarInsn(op, slot)
		return
	}

	local, ok := v.ctx.Scope.Find(slot)
	if !ok {
		v.Next.VisitVarInsn(op, slot)
		return
	}

	store := op.IsStore()

	fi := v.pick(local.Desc, store)
	if fi == nil {
		v.Next.VisitVarInsn(op, slot)
		return
	}

	desc := fmt.Sprintf("access to local %s is replaced by access to field %s", local.Name, fi.Name)
	if !v.ctx.Register(v.mu, desc) {
		v.Next.VisitVarInsn(op, slot)
		return
	}

	switch {
	case store && fi.Static:
		v.Next.VisitFieldInsn(classfile.PUTSTATIC, fi.Owner, fi.Name, local.Desc)
	case store:
		v.Next.VisitVarInsn(classfile.ALOAD, 0)

		if classfile.TypeOf(local.Desc).Size() == 2 {
			v.Next.VisitInsn(classfile.DUP_X2)
			v.Next.VisitInsn(classfile.POP)
		} else {
			v.Next.VisitInsn(classfile.SWAP)
		}

		v.Next.VisitFieldInsn(classfile.PUTFIELD, fi.Owner, fi.Name, local.Desc)
	case fi.Static:
		v.Next.VisitFieldInsn(classfile.GETSTATIC, fi.Owner, fi.Name, local.Desc)
	default:
		v.Next.VisitVarInsn(classfile.ALOAD, 0)
		v.Next.VisitFieldInsn(classfile.GETFIELD, fi.Owner, fi.Name, local.Desc)
	}
}

// FieldToLocalAccess replaces a field access with an access to a live
// local of the same type. Reads of an object field may also use a local
// whose type is a subtype of the field type.
type FieldToLocalAccess struct {
	variant
}

// FieldToLocalAccessMutators returns the variants of the family.
func FieldToLocalAccessMutators() []Mutator {
	out := make([]Mutator, 3)
	for i := range out {
		out[i] = FieldToLocalAccess{newVariant(fieldToLocalFamily, i)}
	}

	return out
}

func (mu FieldToLocalAccess) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	return &fieldToLocalVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type fieldToLocalVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  FieldToLocalAccess
}

func (v *fieldToLocalVisitor) pick(desc string, store bool) (classinfo.LocalVarInfo, bool) {
	if lv, ok := v.ctx.Scope.PickNth(desc, 0, v.mu.ordinal); ok {
		return lv, true
	}

	want := classfile.TypeOf(desc)
	if store || want.Sort() != classfile.SortObject {
		return classinfo.LocalVarInfo{}, false
	}

	return v.ctx.Scope.Pick(v.mu.ordinal, func(lv classinfo.LocalVarInfo) bool {
		t := classfile.TypeOf(lv.Desc)
		if t.Sort() != classfile.SortObject || lv.Desc == desc {
			return false
		}

		return slices.Contains(v.ctx.supertypes(t.InternalName()), want.InternalName())
	})
}

func (v *fieldToLocalVisitor) VisitFieldInsn(op classfile.Opcode, owner, name, desc string) {
	local, ok := v.pick(desc, isFieldStore(op))
	if !ok {
		v.Next.VisitFieldInsn(op, owner, name, desc)
		return
	}

	if !v.ctx.Register(v.mu, fmt.Sprintf("access to field %s is replaced by access to local %s", name, local.Name)) {
		v.Next.VisitFieldInsn(op, owner, name, desc)
		return
	}

	t := classfile.TypeOf(desc)

	switch op {
	case classfile.GETFIELD:
		v.Next.VisitInsn(classfile.POP)
		v.Next.VisitVarInsn(classfile.LoadOpcode(t), local.Slot)
	case classfile.GETSTATIC:
		v.Next.VisitVarInsn(classfile.LoadOpcode(t), local.Slot)
	case classfile.PUTFIELD:
		if t.Size() == 2 {
			v.Next.VisitInsn(classfile.DUP2_X1)
			v.Next.VisitInsn(classfile.POP2)
		} else {
			v.Next.VisitInsn(classfile.SWAP)
		}

		v.Next.VisitInsn(classfile.POP)
		v.Next.VisitVarInsn(classfile.StoreOpcode(t), local.Slot)
	default:
		v.Next.VisitVarInsn(classfile.StoreOpcode(t), local.Slot)
	}
}
