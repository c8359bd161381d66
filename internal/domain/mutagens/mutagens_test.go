package mutagens

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mutafix.dev/pkg/mutafix/internal/classfile"
	"mutafix.dev/pkg/mutafix/internal/domain/classinfo"
	"mutafix.dev/pkg/mutafix/internal/domain/hierarchy"
)

const (
	java8    = 52
	shop     = "demo/Shop"
	shopDesc = "Ldemo/Shop;"
	str      = "Ljava/lang/String;"
)

// recorder registers every candidate and reports the target-th as the one
// to materialize.
type recorder struct {
	target int
	descs  []string
	ids    []string
}

func (r *recorder) Register(mu Mutator, desc string) bool {
	r.descs = append(r.descs, desc)
	r.ids = append(r.ids, mu.UniqueID())

	return len(r.descs)-1 == r.target
}

// units answers class lookups from a fixed set and falls back to the
// platform supertypes the tests need.
type units map[string]*classinfo.CodeUnit

var platform = map[string]string{
	"java/lang/ArithmeticException": "java/lang/RuntimeException",
	"java/lang/RuntimeException":    "java/lang/Exception",
	"java/lang/Exception":           "java/lang/Throwable",
	"java/lang/Throwable":           classfile.ObjectClass,
	"java/lang/String":              classfile.ObjectClass,
}

func (u units) Get(name string) *classinfo.CodeUnit {
	if unit, ok := u[name]; ok {
		return unit
	}

	return classinfo.Empty()
}

func (u units) SuperClass(name string) (string, bool) {
	if unit, ok := u[name]; ok && unit.Super != "" {
		return unit.Super, true
	}

	sup, ok := platform[name]

	return sup, ok
}

func (u units) IsInterface(name string) bool {
	return u.Get(name).IsInterface()
}

func (u units) Supertypes(name string) []string {
	var out []string

	for sup, ok := u.SuperClass(name); ok; sup, ok = u.SuperClass(sup) {
		out = append(out, sup)
	}

	return out
}

type scoped struct {
	classfile.MethodAdapter
	scope *classinfo.ScopeTracker
}

func (s *scoped) VisitLabel(l *classfile.Label) {
	s.scope.Transfer(l.Ordinal)
	s.Next.VisitLabel(l)
}

type local struct {
	name, desc string
	slot       int
}

// withLocals wraps body with labels spanning the whole method and declares
// the given locals over that range.
func withLocals(body func(v classfile.MethodVisitor), locals ...local) func(v classfile.MethodVisitor) {
	return func(v classfile.MethodVisitor) {
		start, end := classfile.NewLabel(), classfile.NewLabel()
		v.VisitLabel(start)
		body(v)
		v.VisitLabel(end)

		for _, l := range locals {
			v.VisitLocalVariable(l.name, l.desc, "", start, end, l.slot)
		}
	}
}

func addMethod(t *testing.T, c *classfile.Class, access uint16, name, desc string, body func(v classfile.MethodVisitor)) {
	t.Helper()

	_, err := c.AddMethod(access, name, desc, units{}, body)
	require.NoError(t, err)
}

var self = local{"this", shopDesc, 0}

// shopClass builds the class most tests mutate.
func shopClass(t *testing.T) []byte {
	t.Helper()

	c := classfile.New(java8, classfile.AccPublic|classfile.AccSuper, shop, classfile.ObjectClass)
	c.AddField(classfile.AccPrivate, "count", "I")
	c.AddField(classfile.AccPrivate, "total", "I")
	c.AddField(classfile.AccPrivate|classfile.AccFinal, "limit", "I")
	c.AddField(classfile.AccPrivate|classfile.AccStatic, "shared", "I")
	c.AddField(classfile.AccPrivate, "name", str)
	c.AddField(classfile.AccPrivate, "alias", str)

	pub := classfile.AccPublic
	static := classfile.AccPublic | classfile.AccStatic

	addMethod(t, c, pub, classfile.ConstructorName, "()V", withLocals(func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ALOAD, 0)
		v.VisitMethodInsn(classfile.INVOKESPECIAL, classfile.ObjectClass, classfile.ConstructorName, "()V", false)
		v.VisitInsn(classfile.RETURN)
	}, self))

	addMethod(t, c, pub, "sum", "(II)I", withLocals(func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ILOAD, 1)
		v.VisitVarInsn(classfile.ILOAD, 2)
		v.VisitInsn(classfile.IADD)
		v.VisitInsn(classfile.IRETURN)
	}, self, local{"a", "I", 1}, local{"b", "I", 2}))

	addMethod(t, c, pub, "getCount", "()I", withLocals(func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ALOAD, 0)
		v.VisitFieldInsn(classfile.GETFIELD, shop, "count", "I")
		v.VisitInsn(classfile.IRETURN)
	}, self))

	addMethod(t, c, pub, "getTotal", "()I", withLocals(func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ALOAD, 0)
		v.VisitFieldInsn(classfile.GETFIELD, shop, "total", "I")
		v.VisitInsn(classfile.IRETURN)
	}, self))

	addMethod(t, c, pub, "setCount", "(I)V", withLocals(func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ALOAD, 0)
		v.VisitVarInsn(classfile.ILOAD, 1)
		v.VisitFieldInsn(classfile.PUTFIELD, shop, "count", "I")
		v.VisitInsn(classfile.RETURN)
	}, self, local{"n", "I", 1}))

	addMethod(t, c, pub, "bump", "(I)I", withLocals(func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ALOAD, 0)
		v.VisitFieldInsn(classfile.GETFIELD, shop, "count", "I")
		v.VisitVarInsn(classfile.ILOAD, 1)
		v.VisitInsn(classfile.IADD)
		v.VisitInsn(classfile.IRETURN)
	}, self, local{"n", "I", 1}))

	addMethod(t, c, pub, "describe", "("+str+")"+str, withLocals(func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ALOAD, 1)
		v.VisitMethodInsn(classfile.INVOKEVIRTUAL, "java/lang/String", "trim", "()"+str, false)
		v.VisitInsn(classfile.ARETURN)
	}, self, local{"s", str, 1}))

	addMethod(t, c, pub, "log", "("+str+")V", withLocals(func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ALOAD, 0)
		v.VisitVarInsn(classfile.ALOAD, 1)
		v.VisitMethodInsn(classfile.INVOKEVIRTUAL, shop, "print", "("+str+")V", false)
		v.VisitInsn(classfile.RETURN)
	}, self, local{"s", str, 1}))

	addMethod(t, c, pub, "print", "("+str+")V", withLocals(func(v classfile.MethodVisitor) {
		v.VisitInsn(classfile.RETURN)
	}, self, local{"s", str, 1}))

	addMethod(t, c, pub, "warn", "("+str+")V", withLocals(func(v classfile.MethodVisitor) {
		v.VisitInsn(classfile.RETURN)
	}, self, local{"s", str, 1}))

	addMethod(t, c, pub, "add", "(I)I", withLocals(func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ILOAD, 1)
		v.VisitInsn(classfile.IRETURN)
	}, self, local{"x", "I", 1}))

	addMethod(t, c, pub, "add", "(II)I", withLocals(func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ILOAD, 1)
		v.VisitVarInsn(classfile.ILOAD, 2)
		v.VisitInsn(classfile.IADD)
		v.VisitInsn(classfile.IRETURN)
	}, self, local{"x", "I", 1}, local{"y", "I", 2}))

	addMethod(t, c, pub, "compute", "(I)I", withLocals(func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ALOAD, 0)
		v.VisitVarInsn(classfile.ILOAD, 1)
		v.VisitMethodInsn(classfile.INVOKEVIRTUAL, shop, "add", "(I)I", false)
		v.VisitInsn(classfile.IRETURN)
	}, self, local{"x", "I", 1}))

	addMethod(t, c, pub, "self", "()"+shopDesc, withLocals(func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ALOAD, 0)
		v.VisitInsn(classfile.ARETURN)
	}, self))

	addMethod(t, c, static, "create", "()"+shopDesc, func(v classfile.MethodVisitor) {
		v.VisitTypeInsn(classfile.NEW, shop)
		v.VisitInsn(classfile.DUP)
		v.VisitMethodInsn(classfile.INVOKESPECIAL, shop, classfile.ConstructorName, "()V", false)
		v.VisitInsn(classfile.ARETURN)
	})

	addMethod(t, c, static, "make", "()"+shopDesc, func(v classfile.MethodVisitor) {
		v.VisitMethodInsn(classfile.INVOKESTATIC, shop, "create", "()"+shopDesc, false)
		v.VisitInsn(classfile.ARETURN)
	})

	addMethod(t, c, static, "mix", "(IIIII)I", func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ILOAD, 4)
		v.VisitInsn(classfile.IRETURN)
	})

	addMethod(t, c, static, "callMix", "(II)I", withLocals(func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ILOAD, 0)
		v.VisitVarInsn(classfile.ILOAD, 1)
		v.VisitVarInsn(classfile.ILOAD, 0)
		v.VisitVarInsn(classfile.ILOAD, 1)
		v.VisitVarInsn(classfile.ILOAD, 0)
		v.VisitMethodInsn(classfile.INVOKESTATIC, shop, "mix", "(IIIII)I", false)
		v.VisitInsn(classfile.IRETURN)
	}, local{"a", "I", 0}, local{"b", "I", 1}))

	addMethod(t, c, static, "safe", "()I", func(v classfile.MethodVisitor) {
		start, end, handler := classfile.NewLabel(), classfile.NewLabel(), classfile.NewLabel()
		v.VisitTryCatchBlock(start, end, handler, "java/lang/ArithmeticException")
		v.VisitLabel(start)
		v.VisitInsn(classfile.ICONST_1)
		v.VisitInsn(classfile.ICONST_0)
		v.VisitInsn(classfile.IDIV)
		v.VisitLabel(end)
		v.VisitInsn(classfile.IRETURN)
		v.VisitLabel(handler)
		v.VisitInsn(classfile.POP)
		v.VisitInsn(classfile.ICONST_M1)
		v.VisitInsn(classfile.IRETURN)
	})

	data, err := c.Bytes()
	require.NoError(t, err)

	return data
}

// outletClass is a public subclass of the shop.
func outletClass(t *testing.T) []byte {
	t.Helper()

	c := classfile.New(java8, classfile.AccPublic|classfile.AccSuper, "demo/Outlet", shop)
	addMethod(t, c, classfile.AccPublic, classfile.ConstructorName, "()V", func(v classfile.MethodVisitor) {
		v.VisitVarInsn(classfile.ALOAD, 0)
		v.VisitMethodInsn(classfile.INVOKESPECIAL, shop, classfile.ConstructorName, "()V", false)
		v.VisitInsn(classfile.RETURN)
	})

	data, err := c.Bytes()
	require.NoError(t, err)

	return data
}

type walkResult struct {
	rec  *recorder
	text string
}

type env struct {
	data      []byte
	others    units
	hierarchy *hierarchy.Index
}

func newEnv(t *testing.T) *env {
	t.Helper()

	outlet := outletClass(t)

	unit, err := classinfo.Collect(outlet)
	require.NoError(t, err)

	b := hierarchy.NewBuilder()
	require.NoError(t, b.AddClass(outlet))

	return &env{
		data:      shopClass(t),
		others:    units{"demo/Outlet": unit},
		hierarchy: b.Freeze(),
	}
}

// walk runs mu, when not nil, over one method of the shop. target is the index of the
// candidate to materialize, -1 for none. The result holds the registered
// candidates and the disassembly of the rewritten method.
func (e *env) walk(t *testing.T, mu Mutator, name, desc string, target int) walkResult {
	t.Helper()

	c, err := classfile.Parse(e.data)
	require.NoError(t, err)

	unit, err := classinfo.CollectClass(c)
	require.NoError(t, err)

	member := c.Method(name, desc)
	require.NotNil(t, member)

	mi := unit.FindMethod(name, desc)
	require.NotNil(t, mi)

	rec := &recorder{target: target}
	scope := classinfo.NewScopeTracker(mi.Locals)
	lookup := units{shop: unit}

	for k, u := range e.others {
		lookup[k] = u
	}

	ctx := &Context{
		Unit:      unit,
		Method:    mi,
		Scope:     scope,
		Classes:   lookup,
		Hierarchy: e.hierarchy,
		Registrar: rec,
		MaxLocals: member.Code.MaxLocals,
	}

	err = c.ReplaceMethod(member, lookup, func(w classfile.MethodVisitor) error {
		next := w
		if mu != nil {
			next = mu.CreateVisitor(ctx, w)
		}

		return c.AcceptMethod(member, &scoped{MethodAdapter: classfile.MethodAdapter{Next: next}, scope: scope})
	})
	require.NoError(t, err)

	text, err := c.Textify(member)
	require.NoError(t, err)

	return walkResult{rec: rec, text: text}
}
