package classfile

import (
	"fmt"
	"strings"
)

// Textify renders the body of m as one instruction per line, the way a
// disassembler would. Labels are named after their ordinal.
func (c *Class) Textify(m *Member) (string, error) {
	p := &printer{}
	if err := c.AcceptMethod(m, p); err != nil {
		return "", err
	}

	return p.sb.String(), nil
}

type printer struct {
	sb strings.Builder
}

func labelName(l *Label) string {
	if l == nil {
		return "L?"
	}

	return fmt.Sprintf("L%d", l.Ordinal)
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(&p.sb, "    "+format+"\n", args...)
}

func (p *printer) VisitCode() {}

func (p *printer) VisitInsn(op Opcode) {
	p.line("%s", op)
}

func (p *printer) VisitIntInsn(op Opcode, operand int) {
	p.line("%s %d", op, operand)
}

func (p *printer) VisitVarInsn(op Opcode, slot int) {
	p.line("%s %d", op, slot)
}

func (p *printer) VisitTypeInsn(op Opcode, typ string) {
	p.line("%s %s", op, typ)
}

func (p *printer) VisitFieldInsn(op Opcode, owner, name, desc string) {
	p.line("%s %s.%s : %s", op, owner, name, desc)
}

func (p *printer) VisitMethodInsn(op Opcode, owner, name, desc string, itf bool) {
	suffix := ""
	if itf {
		suffix = " (itf)"
	}

	p.line("%s %s.%s%s%s", op, owner, name, desc, suffix)
}

func (p *printer) VisitInvokeDynamicInsn(_ uint16, name, desc string) {
	p.line("%s %s%s", INVOKEDYNAMIC, name, desc)
}

func (p *printer) VisitJumpInsn(op Opcode, target *Label) {
	p.line("%s %s", op, labelName(target))
}

func (p *printer) VisitLabel(l *Label) {
	fmt.Fprintf(&p.sb, "  %s\n", labelName(l))
}

func (p *printer) VisitLdcInsn(c Constant) {
	p.line("%s %s", LDC, c.Value)
}

func (p *printer) VisitIincInsn(slot, incr int) {
	p.line("%s %d %d", IINC, slot, incr)
}

func (p *printer) VisitTableSwitchInsn(low, high int, dflt *Label, labels []*Label) {
	p.line("%s %d..%d", TABLESWITCH, low, high)

	for i, l := range labels {
		p.line("  %d: %s", low+i, labelName(l))
	}

	p.line("  default: %s", labelName(dflt))
}

func (p *printer) VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label) {
	p.line("%s", LOOKUPSWITCH)

	for i, l := range labels {
		p.line("  %d: %s", keys[i], labelName(l))
	}

	p.line("  default: %s", labelName(dflt))
}

func (p *printer) VisitMultiANewArrayInsn(desc string, dims int) {
	p.line("%s %s %d", MULTIANEWARRAY, desc, dims)
}

func (p *printer) VisitTryCatchBlock(start, end, handler *Label, typ string) {
	if typ == "" {
		typ = "finally"
	}

	p.line("TRYCATCHBLOCK %s %s %s %s", labelName(start), labelName(end), labelName(handler), typ)
}

func (p *printer) VisitLocalVariable(name, desc, _ string, start, end *Label, slot int) {
	p.line("LOCALVARIABLE %s %s %s %s %d", name, desc, labelName(start), labelName(end), slot)
}

func (p *printer) VisitLineNumber(line int, start *Label) {
	p.line("LINENUMBER %d %s", line, labelName(start))
}

func (p *printer) VisitMaxs(maxStack, maxLocals int) {
	p.line("MAXSTACK = %d", maxStack)
	p.line("MAXLOCALS = %d", maxLocals)
}

func (p *printer) VisitEnd() {}
