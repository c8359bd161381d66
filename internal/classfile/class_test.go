package classfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const java8 = 52

func buildClass(t *testing.T, major uint16, methods map[string]func(MethodVisitor)) *Class {
	t.Helper()

	c := New(major, AccPublic|AccSuper, "demo/Calc", ObjectClass)
	c.AddField(AccPrivate, "count", "I")
	c.AddField(AccStatic, "NAME", "Ljava/lang/String;")

	for desc, body := range methods {
		_, err := c.AddMethod(AccPublic|AccStatic, "m", desc, nil, body)
		require.NoError(t, err)
	}

	c.AddAttribute("SourceFile", c.SourceFile("Calc.java"))

	return c
}

func addBody(v MethodVisitor) {
	start := NewLabel()
	v.VisitLabel(start)
	v.VisitLineNumber(7, start)
	v.VisitVarInsn(ILOAD, 0)
	v.VisitVarInsn(ILOAD, 1)
	v.VisitInsn(IADD)
	v.VisitInsn(IRETURN)
}

func TestClass_BuildAndParse(t *testing.T) {
	c := buildClass(t, java8, map[string]func(MethodVisitor){"(II)I": addBody})

	data, err := c.Bytes()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), binary.BigEndian.Uint32(data))

	parsed, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "demo/Calc", parsed.Name)
	assert.Equal(t, ObjectClass, parsed.Super)
	assert.Equal(t, uint16(java8), parsed.Major)
	require.Len(t, parsed.Fields, 2)
	assert.Equal(t, "count", parsed.Fields[0].Name)
	assert.True(t, parsed.Fields[1].Is(AccStatic))

	m := parsed.Method("m", "(II)I")
	require.NotNil(t, m)
	require.NotNil(t, m.Code)
	assert.Equal(t, 2, m.Code.MaxStack)
	assert.Equal(t, 2, m.Code.MaxLocals)
	assert.Equal(t, []byte{byte(ILOAD_0), byte(ILOAD_1), byte(IADD), byte(IRETURN)}, m.Code.Bytecode)
	assert.Equal(t, []LineNumber{{PC: 0, Line: 7}}, m.Code.Lines)

	_, ok := parsed.Attribute("SourceFile")
	assert.True(t, ok)
}

func TestClass_RoundTripIsByteIdentical(t *testing.T) {
	c := buildClass(t, java8, map[string]func(MethodVisitor){"(II)I": addBody})

	data, err := c.Bytes()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)

	again, err := parsed.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestClass_ReplaceMethodWithCopyKeepsText(t *testing.T) {
	c := buildClass(t, java8, map[string]func(MethodVisitor){"(II)I": addBody})

	data, err := c.Bytes()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)

	m := parsed.Method("m", "(II)I")
	before, err := parsed.Textify(m)
	require.NoError(t, err)

	err = parsed.ReplaceMethod(m, nil, func(v MethodVisitor) error {
		return parsed.AcceptMethod(m, v)
	})
	require.NoError(t, err)

	after, err := parsed.Textify(m)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Contains(t, after, "IADD")
	assert.Contains(t, after, "LINENUMBER 7 L0")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "bad magic", data: []byte{0xCA, 0xFE, 0xBA, 0xBF, 0, 0, 0, 52}},
		{name: "truncated pool", data: []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 52, 0, 3, 1, 0, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestPool_AddDeduplicates(t *testing.T) {
	c := New(java8, AccPublic, "demo/A", ObjectClass)

	first := c.Pool.AddMethodref("demo/B", "run", "()V", false)
	second := c.Pool.AddMethodref("demo/B", "run", "()V", false)
	itf := c.Pool.AddMethodref("demo/B", "run", "()V", true)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, itf)
	assert.Equal(t, TagInterfaceMethodref, c.Pool.Tag(itf))

	owner, name, desc, err := c.Pool.MemberRef(first)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo/B", "run", "()V"}, []string{owner, name, desc})

	long := c.Pool.AddLong(42)
	next := c.Pool.AddUtf8("after-long")
	assert.Equal(t, long+2, next)
}

func TestModifiedUTF8(t *testing.T) {
	for _, s := range []string{"plain", "", "café", "nul\x00byte", "emoji \U0001F600"} {
		assert.Equal(t, s, decodeModifiedUTF8(encodeModifiedUTF8(s)))
	}

	assert.Equal(t, []byte{0xC0, 0x80}, encodeModifiedUTF8("\x00"))
}
