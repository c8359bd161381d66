package classinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mutafix.dev/pkg/mutafix/internal/classfile"
)

const java8 = 52

func calcClass(t *testing.T) []byte {
	t.Helper()

	c := classfile.New(java8, classfile.AccPublic|classfile.AccSuper, "demo/Calc", classfile.ObjectClass)
	c.AddField(classfile.AccPrivate, "count", "I")
	c.AddField(classfile.AccPublic|classfile.AccStatic|classfile.AccFinal, "NAME", "Ljava/lang/String;")
	c.AddField(classfile.AccPrivate, "total", "I")

	_, err := c.AddMethod(classfile.AccPublic|classfile.AccStatic, "add", "(II)I", nil, func(v classfile.MethodVisitor) {
		start, end := classfile.NewLabel(), classfile.NewLabel()
		v.VisitLabel(start)
		v.VisitVarInsn(classfile.ILOAD, 0)
		v.VisitVarInsn(classfile.ILOAD, 1)
		v.VisitInsn(classfile.IADD)
		v.VisitInsn(classfile.IRETURN)
		v.VisitLabel(end)
		v.VisitLocalVariable("a", "I", "", start, end, 0)
		v.VisitLocalVariable("b", "I", "", start, end, 1)
	})
	require.NoError(t, err)

	_, err = c.AddMethod(classfile.AccPrivate|classfile.AccSynthetic, "greet", "(Ljava/lang/String;[IJLjava/lang/Object;)V", nil, func(v classfile.MethodVisitor) {
		v.VisitInsn(classfile.RETURN)
	})
	require.NoError(t, err)

	_, err = c.AddMethod(classfile.AccAbstract|classfile.AccProtected, "sub", "(II)I", nil, nil)
	require.NoError(t, err)

	c.AddAttribute("SourceFile", c.SourceFile("Calc.java"))

	data, err := c.Bytes()
	require.NoError(t, err)

	return data
}

func TestCollect(t *testing.T) {
	u, err := Collect(calcClass(t))
	require.NoError(t, err)

	assert.True(t, u.Resolved())
	assert.False(t, u.IsInterface())
	assert.Equal(t, "demo/Calc", u.Name)
	assert.Equal(t, classfile.ObjectClass, u.Super)
	assert.Equal(t, "Calc.java", u.SourceFile)

	assert.Equal(t, []string{"I", "Ljava/lang/String;"}, u.FieldDescs())
	ints := u.Fields("I")
	require.Len(t, ints, 2)
	assert.Equal(t, "count", ints[0].Name)
	assert.Equal(t, "total", ints[1].Name)
	assert.Equal(t, &FieldInfo{Name: "NAME", Desc: "Ljava/lang/String;", Owner: "demo/Calc", Static: true, Public: true, Final: true},
		u.FindField("NAME", "Ljava/lang/String;"))

	assert.Equal(t, []string{"(II)I", "(Ljava/lang/String;[IJLjava/lang/Object;)V"}, u.MethodDescs())
	require.Len(t, u.Methods("(II)I"), 2)

	add := u.FindMethod("add", "(II)I")
	require.NotNil(t, add)
	assert.True(t, add.Static)
	assert.True(t, add.Public)
	assert.Empty(t, add.NullableParams)
	assert.Equal(t, []LocalVarInfo{
		{Name: "a", Desc: "I", Slot: 0, Start: 0, End: 1},
		{Name: "b", Desc: "I", Slot: 1, Start: 0, End: 1},
	}, add.Locals)

	greet := u.FindMethod("greet", "(Ljava/lang/String;[IJLjava/lang/Object;)V")
	require.NotNil(t, greet)
	assert.True(t, greet.Private)
	assert.True(t, greet.Synthetic)
	assert.Equal(t, []int{1, 2, 5}, greet.NullableParams)
	assert.Empty(t, greet.Locals)

	sub := u.FindMethod("sub", "(II)I")
	require.NotNil(t, sub)
	assert.True(t, sub.Protected)
	assert.False(t, sub.Static)

	assert.Nil(t, u.FindMethod("missing", "()V"))
}

func TestCollect_ParseFailure(t *testing.T) {
	u, err := Collect([]byte{0xCA, 0xFE})
	require.ErrorIs(t, err, ErrParse)
	require.NotNil(t, u)

	assert.False(t, u.Resolved())
	assert.Empty(t, u.FieldDescs())
	assert.Empty(t, u.MethodDescs())
	assert.Nil(t, u.Fields("I"))
}

func TestNullableParams(t *testing.T) {
	tests := []struct {
		desc   string
		static bool
		want   []int
	}{
		{desc: "()V", static: true, want: nil},
		{desc: "(Ljava/lang/String;)V", static: true, want: []int{0}},
		{desc: "(Ljava/lang/String;)V", static: false, want: []int{1}},
		{desc: "(DLjava/lang/Object;[[I)V", static: false, want: []int{3, 4}},
		{desc: "(IJF)V", static: true, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, nullableParams(tt.desc, tt.static))
		})
	}
}
