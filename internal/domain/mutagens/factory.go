package mutagens

import (
	"fmt"

	"mutafix.dev/pkg/mutafix/internal/classfile"
	"mutafix.dev/pkg/mutafix/internal/domain/classinfo"
)

const factoryMethodFamily = "FACTORY_METHOD_MUTATOR"

// FactoryMethod replaces a call to a static factory with the direct
// construction of the returned type or of one of its known subtypes.
type FactoryMethod struct {
	variant
	// class 0 is the returned type itself, class k its k-th direct subtype.
	class int
	ctor  int
}

// FactoryMethodMutators returns the variants of the family: four classes
// with their first constructor, then the same four with the second one.
func FactoryMethodMutators() []Mutator {
	out := make([]Mutator, 0, 8)

	for ctor := range 2 {
		for class := range 4 {
			out = append(out, FactoryMethod{
				variant: newVariant(factoryMethodFamily, ctor*4+class),
				class:   class,
				ctor:    ctor,
			})
		}
	}

	return out
}

func (mu FactoryMethod) CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor {
	if ctx.InConstructor() {
		return next
	}

	return &factoryVisitor{MethodAdapter: classfile.MethodAdapter{Next: next}, ctx: ctx, mu: mu}
}

type factoryVisitor struct {
	classfile.MethodAdapter
	ctx *Context
	mu  FactoryMethod
}

func (v *factoryVisitor) pickClass(returned string) (string, bool) {
	if v.mu.class == 0 {
		return returned, true
	}

	subs := v.ctx.subclassesOf(returned)
	if v.mu.class-1 < len(subs) {
		return subs[v.mu.class-1], true
	}

	return "", false
}

func (v *factoryVisitor) pickConstructor(u *classinfo.CodeUnit, mustPublic bool) *classinfo.MethodInfo {
	return methodPicker(u, v.mu.ctor, func(mi *classinfo.MethodInfo) bool {
		return mi.Name == classfile.ConstructorName && (!mustPublic || mi.Public)
	})
}

func (v *factoryVisitor) VisitMethodInsn(op classfile.Opcode, owner, name, desc string, itf bool) {
	ret := classfile.ReturnType(desc)
	if op != classfile.INVOKESTATIC || ret.Sort() != classfile.SortObject {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	class, ok := v.pickClass(ret.InternalName())
	if !ok {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	u := v.ctx.unitOf(class)

	ctor := v.pickConstructor(u, class != v.ctx.ClassName())
	if ctor == nil || u.IsInterface() {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	msg := fmt.Sprintf("the call to factory method %s.%s%s is replaced by an instantiation of type %s using %s",
		dotted(owner), name, desc, dotted(class), ctor.Desc)
	if !v.ctx.Register(v.mu, msg) {
		v.Next.VisitMethodInsn(op, owner, name, desc, itf)
		return
	}

	asis := classfile.ArgumentTypes(desc)
	temps := storeArgs(v.ctx, v.Next, asis)

	v.Next.VisitTypeInsn(classfile.NEW, class)
	v.Next.VisitInsn(classfile.DUP)

	used := make([]bool, len(asis))

	for _, t := range classfile.ArgumentTypes(ctor.Desc) {
		i := firstAssignable(asis, used, t)
		if i < 0 {
			injectDefault(v.Next, t)
			continue
		}

		used[i] = true

		switch {
		case asis[i] == t:
			injectLocal(v.Next, temps[i], t)
		case !t.IsReference():
			injectDefault(v.Next, t)
		default:
			injectLocal(v.Next, temps[i], asis[i])
			v.Next.VisitTypeInsn(classfile.CHECKCAST, t.InternalName())
		}
	}

	v.Next.VisitMethodInsn(classfile.INVOKESPECIAL, class, classfile.ConstructorName, ctor.Desc, false)
}

// firstAssignable finds the first unused argument of type t or of type
// java/lang/Object.
func firstAssignable(args []classfile.Type, used []bool, t classfile.Type) int {
	object := classfile.ObjectType(classfile.ObjectClass)

	for i, a := range args {
		if !used[i] && (a == t || a == object) {
			return i
		}
	}

	return -1
}
