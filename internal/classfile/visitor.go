package classfile

// Label marks a position in a method body.
type Label struct {
	// Ordinal is the visit order of labels produced by AcceptMethod.
	// Labels created by NewLabel have ordinal -1.
	Ordinal int

	offset int
}

// NewLabel creates a label that is not part of the original code.
func NewLabel() *Label {
	return &Label{Ordinal: -1}
}

// Offset returns the original bytecode offset of a label produced by AcceptMethod.
func (l *Label) Offset() int {
	return l.offset
}

// Constant is an LDC operand, identified by its index in the pool of the class being visited.
type Constant struct {
	Index uint16
	Tag   Tag
	Value string
}

// IsWide reports whether the constant takes two stack slots.
func (c Constant) IsWide() bool {
	if c.Tag == TagLong || c.Tag == TagDouble {
		return true
	}

	if c.Tag == TagDynamic {
		s := TypeOf(c.Value).Sort()
		return s == SortLong || s == SortDouble
	}

	return false
}

// MethodVisitor receives the events that describe a method body, in code order.
type MethodVisitor interface {
	VisitCode()
	VisitInsn(op Opcode)
	VisitIntInsn(op Opcode, operand int)
	VisitVarInsn(op Opcode, slot int)
	VisitTypeInsn(op Opcode, typ string)
	VisitFieldInsn(op Opcode, owner, name, desc string)
	VisitMethodInsn(op Opcode, owner, name, desc string, itf bool)
	VisitInvokeDynamicInsn(index uint16, name, desc string)
	VisitJumpInsn(op Opcode, target *Label)
	VisitLabel(l *Label)
	VisitLdcInsn(c Constant)
	VisitIincInsn(slot, incr int)
	VisitTableSwitchInsn(low, high int, dflt *Label, labels []*Label)
	VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label)
	VisitMultiANewArrayInsn(desc string, dims int)
	VisitTryCatchBlock(start, end, handler *Label, typ string)
	VisitLocalVariable(name, desc, signature string, start, end *Label, slot int)
	VisitLineNumber(line int, start *Label)
	VisitMaxs(maxStack, maxLocals int)
	VisitEnd()
}

// MethodAdapter forwards every event to Next. Embed it and override the
// events of interest to build a decorating visitor. A nil Next drops events.
type MethodAdapter struct {
	Next MethodVisitor
}

var _ MethodVisitor = (*MethodAdapter)(nil)

func (a *MethodAdapter) VisitCode() {
	if a.Next != nil {
		a.Next.VisitCode()
	}
}

func (a *MethodAdapter) VisitInsn(op Opcode) {
	if a.Next != nil {
		a.Next.VisitInsn(op)
	}
}

func (a *MethodAdapter) VisitIntInsn(op Opcode, operand int) {
	if a.Next != nil {
		a.Next.VisitIntInsn(op, operand)
	}
}

func (a *MethodAdapter) VisitVarInsn(op Opcode, slot int) {
	if a.Next != nil {
		a.Next.VisitVarInsn(op, slot)
	}
}

func (a *MethodAdapter) VisitTypeInsn(op Opcode, typ string) {
	if a.Next != nil {
		a.Next.VisitTypeInsn(op, typ)
	}
}

func (a *MethodAdapter) VisitFieldInsn(op Opcode, owner, name, desc string) {
	if a.Next != nil {
		a.Next.VisitFieldInsn(op, owner, name, desc)
	}
}

func (a *MethodAdapter) VisitMethodInsn(op Opcode, owner, name, desc string, itf bool) {
	if a.Next != nil {
		a.Next.VisitMethodInsn(op, owner, name, desc, itf)
	}
}

func (a *MethodAdapter) VisitInvokeDynamicInsn(index uint16, name, desc string) {
	if a.Next != nil {
		a.Next.VisitInvokeDynamicInsn(index, name, desc)
	}
}

func (a *MethodAdapter) VisitJumpInsn(op Opcode, target *Label) {
	if a.Next != nil {
		a.Next.VisitJumpInsn(op, target)
	}
}

func (a *MethodAdapter) VisitLabel(l *Label) {
	if a.Next != nil {
		a.Next.VisitLabel(l)
	}
}

func (a *MethodAdapter) VisitLdcInsn(c Constant) {
	if a.Next != nil {
		a.Next.VisitLdcInsn(c)
	}
}

func (a *MethodAdapter) VisitIincInsn(slot, incr int) {
	if a.Next != nil {
		a.Next.VisitIincInsn(slot, incr)
	}
}

func (a *MethodAdapter) VisitTableSwitchInsn(low, high int, dflt *Label, labels []*Label) {
	if a.Next != nil {
		a.Next.VisitTableSwitchInsn(low, high, dflt, labels)
	}
}

func (a *MethodAdapter) VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label) {
	if a.Next != nil {
		a.Next.VisitLookupSwitchInsn(dflt, keys, labels)
	}
}

func (a *MethodAdapter) VisitMultiANewArrayInsn(desc string, dims int) {
	if a.Next != nil {
		a.Next.VisitMultiANewArrayInsn(desc, dims)
	}
}

func (a *MethodAdapter) VisitTryCatchBlock(start, end, handler *Label, typ string) {
	if a.Next != nil {
		a.Next.VisitTryCatchBlock(start, end, handler, typ)
	}
}

func (a *MethodAdapter) VisitLocalVariable(name, desc, signature string, start, end *Label, slot int) {
	if a.Next != nil {
		a.Next.VisitLocalVariable(name, desc, signature, start, end, slot)
	}
}

func (a *MethodAdapter) VisitLineNumber(line int, start *Label) {
	if a.Next != nil {
		a.Next.VisitLineNumber(line, start)
	}
}

func (a *MethodAdapter) VisitMaxs(maxStack, maxLocals int) {
	if a.Next != nil {
		a.Next.VisitMaxs(maxStack, maxLocals)
	}
}

func (a *MethodAdapter) VisitEnd() {
	if a.Next != nil {
		a.Next.VisitEnd()
	}
}

// LoadOpcode returns the xLOAD instruction for values of t.
func LoadOpcode(t Type) Opcode {
	switch t.Sort() {
	case SortFloat:
		return FLOAD
	case SortLong:
		return LLOAD
	case SortDouble:
		return DLOAD
	case SortObject, SortArray, SortMethod:
		return ALOAD
	default:
		return ILOAD
	}
}

// StoreOpcode returns the xSTORE instruction for values of t.
func StoreOpcode(t Type) Opcode {
	return LoadOpcode(t) + (ISTORE - ILOAD)
}

// ReturnOpcode returns the xRETURN instruction for values of t.
func ReturnOpcode(t Type) Opcode {
	switch t.Sort() {
	case SortVoid:
		return RETURN
	case SortFloat:
		return FRETURN
	case SortLong:
		return LRETURN
	case SortDouble:
		return DRETURN
	case SortObject, SortArray, SortMethod:
		return ARETURN
	default:
		return IRETURN
	}
}
