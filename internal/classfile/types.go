package classfile

import "strings"

// Sort classifies a Type.
type Sort int

// Type sorts.
const (
	SortVoid Sort = iota
	SortBoolean
	SortChar
	SortByte
	SortShort
	SortInt
	SortFloat
	SortLong
	SortDouble
	SortArray
	SortObject
	SortMethod
)

// Type is a field or method descriptor.
type Type struct {
	desc string
}

// TypeOf wraps a descriptor.
func TypeOf(desc string) Type {
	return Type{desc: desc}
}

// ObjectType returns the type of an internal class name. Array names are kept as descriptors.
func ObjectType(internalName string) Type {
	if strings.HasPrefix(internalName, "[") {
		return Type{desc: internalName}
	}

	return Type{desc: "L" + internalName + ";"}
}

// Descriptor returns the raw descriptor.
func (t Type) Descriptor() string {
	return t.desc
}

// Sort returns the sort of t.
func (t Type) Sort() Sort {
	if t.desc == "" {
		return SortVoid
	}

	switch t.desc[0] {
	case 'V':
		return SortVoid
	case 'Z':
		return SortBoolean
	case 'C':
		return SortChar
	case 'B':
		return SortByte
	case 'S':
		return SortShort
	case 'I':
		return SortInt
	case 'F':
		return SortFloat
	case 'J':
		return SortLong
	case 'D':
		return SortDouble
	case '[':
		return SortArray
	case '(':
		return SortMethod
	default:
		return SortObject
	}
}

// IsReference reports whether values of t live in reference slots.
func (t Type) IsReference() bool {
	s := t.Sort()
	return s == SortObject || s == SortArray
}

// Size is the number of local or stack slots a value of t occupies.
func (t Type) Size() int {
	switch t.Sort() {
	case SortVoid:
		return 0
	case SortLong, SortDouble:
		return 2
	default:
		return 1
	}
}

// InternalName returns the internal name of an object type, or the descriptor of an array.
func (t Type) InternalName() string {
	if t.Sort() == SortObject {
		return t.desc[1 : len(t.desc)-1]
	}

	return t.desc
}

// ClassName is the dotted, human readable name of t.
func (t Type) ClassName() string {
	switch t.Sort() {
	case SortVoid:
		return "void"
	case SortBoolean:
		return "boolean"
	case SortChar:
		return "char"
	case SortByte:
		return "byte"
	case SortShort:
		return "short"
	case SortInt:
		return "int"
	case SortFloat:
		return "float"
	case SortLong:
		return "long"
	case SortDouble:
		return "double"
	case SortArray:
		return t.ElementType().ClassName() + strings.Repeat("[]", t.Dimensions())
	case SortObject:
		return strings.ReplaceAll(t.InternalName(), "/", ".")
	default:
		return t.desc
	}
}

// Dimensions returns the number of array dimensions of t.
func (t Type) Dimensions() int {
	n := 0
	for n < len(t.desc) && t.desc[n] == '[' {
		n++
	}

	return n
}

// ElementType strips every array dimension.
func (t Type) ElementType() Type {
	return Type{desc: t.desc[t.Dimensions():]}
}

// ComponentType strips one array dimension.
func (t Type) ComponentType() Type {
	if t.Sort() != SortArray {
		return t
	}

	return Type{desc: t.desc[1:]}
}

func (t Type) String() string {
	return t.desc
}

// ArgumentTypes splits a method descriptor into its parameter types.
func ArgumentTypes(methodDesc string) []Type {
	var args []Type

	i := 1
	for i < len(methodDesc) && methodDesc[i] != ')' {
		start := i
		for i < len(methodDesc) && methodDesc[i] == '[' {
			i++
		}

		if i >= len(methodDesc) {
			return args
		}

		if methodDesc[i] == 'L' {
			end := strings.IndexByte(methodDesc[i:], ';')
			if end < 0 {
				return args
			}

			i += end
		}

		i++

		args = append(args, Type{desc: methodDesc[start:i]})
	}

	return args
}

// ReturnType returns the return type of a method descriptor.
func ReturnType(methodDesc string) Type {
	i := strings.LastIndexByte(methodDesc, ')')
	if i < 0 {
		return Type{desc: "V"}
	}

	return Type{desc: methodDesc[i+1:]}
}

// ArgumentsSize counts the slots used by the parameters of methodDesc, without the receiver.
func ArgumentsSize(methodDesc string) int {
	size := 0
	for _, a := range ArgumentTypes(methodDesc) {
		size += a.Size()
	}

	return size
}

// MethodDescriptor assembles a method descriptor.
func MethodDescriptor(ret Type, args ...Type) string {
	var b strings.Builder

	b.WriteByte('(')

	for _, a := range args {
		b.WriteString(a.desc)
	}

	b.WriteByte(')')
	b.WriteString(ret.desc)

	return b.String()
}
