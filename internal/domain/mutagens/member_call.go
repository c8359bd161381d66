package mutagens

import (
	"fmt"

	"mutafix.dev/pkg/mutafix/internal/classfile"
	"mutafix.dev/pkg/mutafix/internal/domain/classinfo"
)

const (
	localToMethodFamily       = "LOCAL_TO_METHOD_CALL_MUTATOR"
	fieldAccessToMethodFamily = "FIELD_ACCESS_TO_METHOD_CALL_MUTATOR"
)

// methodPicker walks the methods of a unit descriptor by descriptor and
// returns the ordinal-th one accepted by keep.
func methodPicker(u *classinfo.CodeUnit, ordinal int, keep func(*classinfo.MethodInfo) bool) *classinfo.MethodInfo {
	count := 0

	for _, desc := range u.MethodDescs() {
		for _, mi := range u.Methods(desc) {
			if !keep(mi) {
				continue
			}

			if count == ordinal {
				return mi
			}

			count++
		}
	}

	return nil
}

// LocalToMethodCall replaces a read of an object local v with v.m() or
// C.m(v), where m returns the type of v.
type LocalToMethodCall struct {
	variant
}

// LocalToMethodCallMutators returns the variants of the family.
func LocalToMethodCallMutators() []Mutator {
	return []Mutator{LocalToMethodCall{newVariant(localToMethodFamily, 0)}}
}

func (mu LocalToMethodCall) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	if ctx.InConstructor() {
		return next
	}

	return &localToMethodVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type localToMethodVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  LocalToMethodCall
}

func isObjectMethod(name string) bool {
	switch name {
	case "equals", "hashCode", "toString", "clone":
		return true
	}

	return false
}

func (v *localToMethodVisitor) pick(u *classinfo.CodeUnit, t classfile.Type, mustPublic bool) *classinfo.MethodInfo {
	return methodPicker(u, v.mu.ordinal, func(mi *classinfo.MethodInfo) bool {
		if classfile.ReturnType(mi.Desc) != t || isObjectMethod(mi.Name) || isInitializer(mi.Name) {
			return false
		}

		if mustPublic && !mi.Public {
			return false
		}

		args := classfile.ArgumentTypes(mi.Desc)
		if mi.Static {
			return len(args) == 1 && args[0] == t
		}

		return !v.ctx.IsStatic() && len(args) == 0
	})
}

func (v *localToMethodVisitor) VisitVarInsn(op classfile.Opcode, slot int) {
	if op != classfile.ALOAD {
		v.Next.VisitVarInsn(op, slot)
		return
	}

	local, ok := v.ctx.Scope.Find(slot)
	t := classfile.TypeOf(local.Desc)

	if !ok || t.Sort() != classfile.SortObject {
		v.Next.VisitVarInsn(op, slot)
		return
	}

	u := v.ctx.unitOf(t.InternalName())
	own := t.InternalName() == v.ctx.ClassName()

	mi := v.pick(u, t, !own)
	if mi == nil {
		v.Next.VisitVarInsn(op, slot)
		return
	}

	invoke, ok := invokeFor(mi, u.IsInterface())
	if !ok {
		v.Next.VisitVarInsn(op, slot)
		return
	}

	var desc string
	if mi.Static {
		desc = fmt.Sprintf("the access to the local %s is replaced a call %s(%s)", local.Name, mi.Name, local.Name)
	} else {
		desc = fmt.Sprintf("the access to the local %s is replaced a call %s.%s()", local.Name, local.Name, mi.Name)
	}

	v.Next.VisitVarInsn(op, slot)

	if v.ctx.Register(v.mu, desc) {
		v.Next.VisitMethodInsn(invoke, mi.Owner, mi.Name, mi.Desc, u.IsInterface())
	}
}

// FieldAccessToMethodCall replaces a field read with a getter-shaped call
// and a field write with a setter-shaped call on the field owner.
type FieldAccessToMethodCall struct {
	variant
}

// FieldAccessToMethodCallMutators returns the variants of the family.
func FieldAccessToMethodCallMutators() []Mutator {
	out := make([]Mutator, 5)
	for i := range out {
		out[i] = FieldAccessToMethodCall{newVariant(fieldAccessToMethodFamily, i)}
	}

	return out
}

func (mu FieldAccessToMethodCall) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	return &fieldAccessToMethodVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type fieldAccessToMethodVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  FieldAccessToMethodCall
}

func (v *fieldAccessToMethodVisitor) pick(u *classinfo.CodeUnit, t classfile.Type, static, read bool) *classinfo.MethodInfo {
	return methodPicker(u, v.mu.ordinal, func(mi *classinfo.MethodInfo) bool {
		if !visible(v.ctx, mi.Owner, mi.Public) || mi.Static != static {
			return false
		}

		if v.ctx.IsStatic() && !mi.Static {
			return false
		}

		args := classfile.ArgumentTypes(mi.Desc)
		if read {
			return len(args) == 0 && classfile.ReturnType(mi.Desc) == t
		}

		return mi.Name != classfile.ConstructorName &&
			classfile.ReturnType(mi.Desc).Sort() == classfile.SortVoid &&
			len(args) == 1 && args[0] == t
	})
}

func (v *fieldAccessToMethodVisitor) VisitFieldInsn(op classfile.Opcode, owner, name, desc string) {
	u := v.ctx.unitOf(owner)

	mi := v.pick(u, classfile.TypeOf(desc), isStaticAccess(op), !isFieldStore(op))
	if mi == nil {
		v.Next.VisitFieldInsn(op, owner, name, desc)
		return
	}

	invoke, ok := invokeFor(mi, u.IsInterface())
	if !ok {
		v.Next.VisitFieldInsn(op, owner, name, desc)
		return
	}

	msg := fmt.Sprintf("the access to field %s.%s is replaced by the call to %s", dotted(owner), name, callString(mi.Owner, mi.Name, mi.Desc))
	if v.ctx.Register(v.mu, msg) {
		v.Next.VisitMethodInsn(invoke, mi.Owner, mi.Name, mi.Desc, u.IsInterface())
		return
	}

	v.Next.VisitFieldInsn(op, owner, name, desc)
}
