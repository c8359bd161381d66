package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHierarchy map[string]string

func (h fakeHierarchy) SuperClass(name string) (string, bool) {
	s, ok := h[name]
	return s, ok
}

func (h fakeHierarchy) IsInterface(string) bool {
	return false
}

func methodOf(t *testing.T, c *Class, access uint16, name, desc string, body func(MethodVisitor)) *Member {
	t.Helper()

	m, err := c.AddMethod(access, name, desc, fakeHierarchy{"demo/Dog": "demo/Animal", "demo/Cat": "demo/Animal", "demo/Animal": ObjectClass}, body)
	require.NoError(t, err)

	return m
}

func TestAnalyze_BranchNeedsFrame(t *testing.T) {
	c := New(java8, AccPublic, "demo/Abs", ObjectClass)

	m := methodOf(t, c, AccStatic, "abs", "(I)I", func(v MethodVisitor) {
		positive := NewLabel()
		v.VisitVarInsn(ILOAD, 0)
		v.VisitJumpInsn(IFGE, positive)
		v.VisitVarInsn(ILOAD, 0)
		v.VisitInsn(INEG)
		v.VisitInsn(IRETURN)
		v.VisitLabel(positive)
		v.VisitVarInsn(ILOAD, 0)
		v.VisitInsn(IRETURN)
	})

	res, err := analyze(c, m, m.Code.Bytecode, nil, m.Code.MaxLocals, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.maxStack)
	require.Len(t, res.frames, 1)
	assert.Equal(t, 7, res.frames[0].offset)
	assert.Equal(t, []vtype{intType}, res.frames[0].frame.locals)
	assert.Empty(t, res.frames[0].frame.stack)

	encoded := res.encodeFrames(c.Pool)
	assert.Equal(t, []byte{0, 1, 255, 0, 7, 0, 1, 1, 0, 0}, encoded)
}

func TestAnalyze_MergesReferencesToCommonSuper(t *testing.T) {
	c := New(java8, AccPublic, "demo/Zoo", ObjectClass)

	m := methodOf(t, c, AccStatic, "pick", "(ZLdemo/Dog;Ldemo/Cat;)Ldemo/Animal;", func(v MethodVisitor) {
		other, join := NewLabel(), NewLabel()
		v.VisitVarInsn(ILOAD, 0)
		v.VisitJumpInsn(IFEQ, other)
		v.VisitVarInsn(ALOAD, 1)
		v.VisitJumpInsn(GOTO, join)
		v.VisitLabel(other)
		v.VisitVarInsn(ALOAD, 2)
		v.VisitLabel(join)
		v.VisitInsn(ARETURN)
	})

	resolver := fakeHierarchy{"demo/Dog": "demo/Animal", "demo/Cat": "demo/Animal", "demo/Animal": ObjectClass}

	res, err := analyze(c, m, m.Code.Bytecode, nil, m.Code.MaxLocals, resolver)
	require.NoError(t, err)
	require.Len(t, res.frames, 2)

	last := res.frames[1].frame
	assert.Equal(t, []vtype{objectType("demo/Animal")}, last.stack)
}

func TestAnalyze_ConstructorTracksUninitializedValues(t *testing.T) {
	c := New(java8, AccPublic, "demo/Box", ObjectClass)

	m := methodOf(t, c, AccPublic, ConstructorName, "()V", func(v MethodVisitor) {
		v.VisitVarInsn(ALOAD, 0)
		v.VisitMethodInsn(INVOKESPECIAL, ObjectClass, ConstructorName, "()V", false)
		v.VisitTypeInsn(NEW, "java/lang/StringBuilder")
		v.VisitInsn(DUP)
		v.VisitMethodInsn(INVOKESPECIAL, "java/lang/StringBuilder", ConstructorName, "()V", false)
		v.VisitInsn(POP)
		v.VisitInsn(RETURN)
	})

	assert.Equal(t, 2, m.Code.MaxStack)
	assert.Equal(t, 1, m.Code.MaxLocals)
}

func TestAnalyze_DeadCodeBecomesThrow(t *testing.T) {
	c := New(java8, AccPublic, "demo/Dead", ObjectClass)

	m := methodOf(t, c, AccStatic, "skip", "()V", func(v MethodVisitor) {
		end := NewLabel()
		v.VisitJumpInsn(GOTO, end)
		v.VisitInsn(ICONST_0)
		v.VisitInsn(POP)
		v.VisitLabel(end)
		v.VisitInsn(RETURN)
	})

	assert.Equal(t, []byte{byte(GOTO), 0, 5, byte(NOP), byte(ATHROW), byte(RETURN)}, m.Code.Bytecode)
}

func TestAnalyze_HandlersGetExceptionFrame(t *testing.T) {
	c := New(java8, AccPublic, "demo/Try", ObjectClass)

	m := methodOf(t, c, AccStatic, "safe", "()I", func(v MethodVisitor) {
		start, end, handler := NewLabel(), NewLabel(), NewLabel()
		v.VisitTryCatchBlock(start, end, handler, "java/lang/ArithmeticException")
		v.VisitLabel(start)
		v.VisitInsn(ICONST_1)
		v.VisitInsn(ICONST_0)
		v.VisitInsn(IDIV)
		v.VisitLabel(end)
		v.VisitInsn(IRETURN)
		v.VisitLabel(handler)
		v.VisitInsn(POP)
		v.VisitInsn(ICONST_M1)
		v.VisitInsn(IRETURN)
	})

	require.Len(t, m.Code.Handlers, 1)
	assert.Equal(t, Handler{StartPC: 0, EndPC: 3, HandlerPC: 4, CatchType: "java/lang/ArithmeticException"}, m.Code.Handlers[0])

	res, err := analyze(c, m, m.Code.Bytecode, m.Code.Handlers, m.Code.MaxLocals, nil)
	require.NoError(t, err)
	require.Len(t, res.frames, 1)
	assert.Equal(t, 4, res.frames[0].offset)
	assert.Equal(t, []vtype{objectType("java/lang/ArithmeticException")}, res.frames[0].frame.stack)
}

func TestCodeWriter_WidensLongJumps(t *testing.T) {
	c := New(java8, AccPublic, "demo/Far", ObjectClass)

	m := methodOf(t, c, AccStatic, "far", "(I)I", func(v MethodVisitor) {
		target := NewLabel()
		v.VisitVarInsn(ILOAD, 0)
		v.VisitJumpInsn(IFEQ, target)

		for range 40000 {
			v.VisitInsn(NOP)
		}

		v.VisitLabel(target)
		v.VisitInsn(ICONST_0)
		v.VisitInsn(IRETURN)
	})

	code := m.Code.Bytecode
	assert.Equal(t, byte(ILOAD_0), code[0])
	assert.Equal(t, byte(IFNE), code[1])
	assert.Equal(t, []byte{0, 8}, code[2:4])
	assert.Equal(t, byte(GOTO_W), code[4])
	assert.Equal(t, byte(ICONST_0), code[len(code)-2])
}

func TestCodeWriter_UnknownLabelFails(t *testing.T) {
	c := New(java8, AccPublic, "demo/Bad", ObjectClass)

	_, err := c.AddMethod(AccStatic, "bad", "()V", nil, func(v MethodVisitor) {
		v.VisitJumpInsn(GOTO, NewLabel())
		v.VisitInsn(RETURN)
	})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestCommonSuper(t *testing.T) {
	a := &analyzer{resolver: fakeHierarchy{
		"demo/Dog":    "demo/Animal",
		"demo/Puppy":  "demo/Dog",
		"demo/Cat":    "demo/Animal",
		"demo/Animal": ObjectClass,
	}}

	tests := []struct {
		x, y, want string
	}{
		{"demo/Puppy", "demo/Cat", "demo/Animal"},
		{"demo/Puppy", "demo/Dog", "demo/Dog"},
		{"demo/Dog", "demo/Unknown", ObjectClass},
		{"[Ldemo/Dog;", "[Ldemo/Cat;", "[Ldemo/Animal;"},
		{"[I", "[J", ObjectClass},
		{"[I", "demo/Dog", ObjectClass},
	}

	for _, tt := range tests {
		t.Run(tt.x+"+"+tt.y, func(t *testing.T) {
			assert.Equal(t, tt.want, a.commonSuper(tt.x, tt.y))
		})
	}
}
