package mutagens

import (
	"fmt"

	"mutafix.dev/pkg/mutafix/internal/classfile"
	"mutafix.dev/pkg/mutafix/internal/domain/classinfo"
)

// preference says where a substituted value comes from when no existing
// value can be reused.
type preference int

const (
	prefDefault preference = iota
	prefLocal
	prefField
)

func (p preference) String() string {
	switch p {
	case prefLocal:
		return "LOCAL"
	case prefField:
		return "FIELD"
	default:
		return "DEFAULT"
	}
}

// value is a substituted value: a live local, a field of this class or,
// when both are nil, the default value of its type.
type value struct {
	local *classinfo.LocalVarInfo
	field *classinfo.FieldInfo
}

func (v value) describe(t classfile.Type) string {
	switch {
	case v.local != nil:
		return "local " + v.local.Name
	case v.field != nil:
		return "field " + v.field.Name
	default:
		return "default value " + defValString(t)
	}
}

func (v value) inject(mv classfile.MethodVisitor, t classfile.Type) {
	switch {
	case v.local != nil:
		injectLocal(mv, v.local.Slot, t)
	case v.field != nil:
		injectField(mv, v.field, t)
	default:
		injectDefault(mv, t)
	}
}

// pickValue chooses the value of type t for preference pref. ok is false
// when the preference asks for a local or a field that does not exist.
func pickValue(ctx *Context, pref preference, index int, t classfile.Type) (value, bool) {
	switch pref {
	case prefLocal:
		lv, ok := pickLocal(ctx, t.Descriptor(), index)
		if !ok {
			return value{}, false
		}

		return value{local: &lv}, true
	case prefField:
		fi := pickField(ctx, t.Descriptor(), index)
		if fi == nil {
			return value{}, false
		}

		return value{field: fi}, true
	default:
		return value{}, true
	}
}

func pickLocal(ctx *Context, desc string, index int) (classinfo.LocalVarInfo, bool) {
	return ctx.Scope.PickNth(desc, 0, index)
}

// pickField returns the index-th field of this class of type desc. Static
// methods only see static fields; constructors see none, since a field read
// could precede the super call.
func pickField(ctx *Context, desc string, index int) *classinfo.FieldInfo {
	if ctx.InConstructor() {
		return nil
	}

	count := 0

	for _, fi := range ctx.Unit.Fields(desc) {
		if ctx.IsStatic() && !fi.Static {
			continue
		}

		if count == index {
			return fi
		}

		count++
	}

	return nil
}

func injectDefault(mv classfile.MethodVisitor, t classfile.Type) {
	switch t.Sort() {
	case classfile.SortObject, classfile.SortArray, classfile.SortMethod:
		mv.VisitInsn(classfile.ACONST_NULL)
	case classfile.SortFloat:
		mv.VisitInsn(classfile.FCONST_0)
	case classfile.SortLong:
		mv.VisitInsn(classfile.LCONST_0)
	case classfile.SortDouble:
		mv.VisitInsn(classfile.DCONST_0)
	default:
		mv.VisitInsn(classfile.ICONST_0)
	}
}

func injectLocal(mv classfile.MethodVisitor, slot int, t classfile.Type) {
	mv.VisitVarInsn(classfile.LoadOpcode(t), slot)
}

func injectField(mv classfile.MethodVisitor, fi *classinfo.FieldInfo, t classfile.Type) {
	if fi.Static {
		mv.VisitFieldInsn(classfile.GETSTATIC, fi.Owner, fi.Name, t.Descriptor())
		return
	}

	mv.VisitVarInsn(classfile.ALOAD, 0)
	mv.VisitFieldInsn(classfile.GETFIELD, fi.Owner, fi.Name, t.Descriptor())
}

// injectReturn leaves the mutated method, returning v when it is not void.
func injectReturn(mv classfile.MethodVisitor, ret classfile.Type, v value) {
	if ret.Sort() == classfile.SortVoid {
		mv.VisitInsn(classfile.RETURN)
		return
	}

	v.inject(mv, ret)
	mv.VisitInsn(classfile.ReturnOpcode(ret))
}

func defValString(t classfile.Type) string {
	switch t.Sort() {
	case classfile.SortObject, classfile.SortArray, classfile.SortMethod:
		return "null"
	case classfile.SortFloat:
		return "0.F"
	case classfile.SortLong:
		return "0L"
	case classfile.SortDouble:
		return "0.D"
	case classfile.SortBoolean:
		return "false"
	case classfile.SortChar:
		return "'\\0'"
	default:
		return "0"
	}
}

// storeArgs pops the arguments of desc into fresh temporaries, last first.
func storeArgs(ctx *Context, mv classfile.MethodVisitor, args []classfile.Type) []int {
	temps := make([]int, len(args))
	for i, t := range args {
		temps[i] = ctx.NewLocal(t)
	}

	for i := len(args) - 1; i >= 0; i-- {
		mv.VisitVarInsn(classfile.StoreOpcode(args[i]), temps[i])
	}

	return temps
}

func restoreArgs(mv classfile.MethodVisitor, args []classfile.Type, temps []int) {
	for i, t := range args {
		mv.VisitVarInsn(classfile.LoadOpcode(t), temps[i])
	}
}

// popValue discards a value of type t from the operand stack.
func popValue(mv classfile.MethodVisitor, t classfile.Type) {
	if t.Size() == 2 {
		mv.VisitInsn(classfile.POP2)
		return
	}

	mv.VisitInsn(classfile.POP)
}

func isVirtualCall(op classfile.Opcode) bool {
	return op == classfile.INVOKEINTERFACE || op == classfile.INVOKESPECIAL || op == classfile.INVOKEVIRTUAL
}

func isInitializer(name string) bool {
	return name == classfile.ConstructorName || name == classfile.ClassInitName
}

// visible reports whether code of the mutated class may name a member of
// owner declared public or not.
func visible(ctx *Context, owner string, public bool) bool {
	return owner == ctx.ClassName() || public
}

// invokeFor picks the instruction calling mi. Package-private instance
// methods have no safe choice and are rejected.
func invokeFor(mi *classinfo.MethodInfo, itf bool) (classfile.Opcode, bool) {
	switch {
	case mi.Static:
		return classfile.INVOKESTATIC, true
	case mi.Public || mi.Protected:
		if itf {
			return classfile.INVOKEINTERFACE, true
		}

		return classfile.INVOKEVIRTUAL, true
	case mi.Private:
		return classfile.INVOKESPECIAL, true
	default:
		return 0, false
	}
}

// dotted renders an internal name the way Java source does.
func dotted(internalName string) string {
	return classfile.ObjectType(internalName).ClassName()
}

func callString(owner, name, desc string) string {
	return fmt.Sprintf("%s::%s%s", dotted(owner), name, desc)
}
