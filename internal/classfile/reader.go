package classfile

import (
	"fmt"
	"sort"
)

// AcceptMethod replays the body of m as MethodVisitor events: VisitCode, the
// try/catch blocks, then labels, line numbers and instructions in offset order,
// followed by local variables, VisitMaxs and VisitEnd. Methods without code only
// receive VisitEnd.
func (c *Class) AcceptMethod(m *Member, v MethodVisitor) error {
	if m.Code == nil {
		v.VisitEnd()
		return nil
	}

	code := m.Code

	insns, err := decodeCode(code.Bytecode)
	if err != nil {
		return fmt.Errorf("%s%s: %w", m.Name, m.Desc, err)
	}

	labels, err := collectLabels(code, insns)
	if err != nil {
		return fmt.Errorf("%s%s: %w", m.Name, m.Desc, err)
	}

	lines := make(map[int][]int)
	for _, ln := range code.Lines {
		if _, ok := labels[ln.PC]; ok {
			lines[ln.PC] = append(lines[ln.PC], ln.Line)
		}
	}

	v.VisitCode()

	for _, h := range code.Handlers {
		v.VisitTryCatchBlock(labels[h.StartPC], labels[h.EndPC], labels[h.HandlerPC], h.CatchType)
	}

	for i := range insns {
		in := &insns[i]

		if l, ok := labels[in.offset]; ok {
			v.VisitLabel(l)

			for _, line := range lines[in.offset] {
				v.VisitLineNumber(line, l)
			}
		}

		if err := c.emit(in, labels, v); err != nil {
			return fmt.Errorf("%s%s at %d: %w", m.Name, m.Desc, in.offset, err)
		}
	}

	if l, ok := labels[len(code.Bytecode)]; ok {
		v.VisitLabel(l)
	}

	for _, lv := range code.Locals {
		start, okStart := labels[lv.StartPC]
		end, okEnd := labels[lv.StartPC+lv.Length]

		if !okStart || !okEnd {
			continue
		}

		v.VisitLocalVariable(lv.Name, lv.Desc, lv.Signature, start, end, lv.Slot)
	}

	v.VisitMaxs(code.MaxStack, code.MaxLocals)
	v.VisitEnd()

	return nil
}

// collectLabels creates one label per referenced offset. Ordinals follow offset
// order, which is also the order AcceptMethod visits them in.
func collectLabels(code *Code, insns []insn) (map[int]*Label, error) {
	starts := make(map[int]bool, len(insns)+1)
	for i := range insns {
		starts[insns[i].offset] = true
	}

	starts[len(code.Bytecode)] = true

	offsets := make(map[int]bool)
	add := func(pc int, strict bool) error {
		if !starts[pc] {
			if strict {
				return fmt.Errorf("%w: offset %d is not an instruction boundary", ErrMalformed, pc)
			}

			return nil
		}

		offsets[pc] = true

		return nil
	}

	for i := range insns {
		in := &insns[i]

		switch {
		case in.op.IsJump():
			if err := add(in.target, true); err != nil {
				return nil, err
			}
		case in.op == TABLESWITCH || in.op == LOOKUPSWITCH:
			if err := add(in.dflt, true); err != nil {
				return nil, err
			}

			for _, t := range in.targets {
				if err := add(t, true); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, h := range code.Handlers {
		for _, pc := range []int{h.StartPC, h.EndPC, h.HandlerPC} {
			if err := add(pc, true); err != nil {
				return nil, err
			}
		}
	}

	for _, lv := range code.Locals {
		_ = add(lv.StartPC, false)
		_ = add(lv.StartPC+lv.Length, false)
	}

	for _, ln := range code.Lines {
		_ = add(ln.PC, false)
	}

	sorted := make([]int, 0, len(offsets))
	for pc := range offsets {
		sorted = append(sorted, pc)
	}

	sort.Ints(sorted)

	labels := make(map[int]*Label, len(sorted))
	for i, pc := range sorted {
		labels[pc] = &Label{Ordinal: i, offset: pc}
	}

	return labels, nil
}

func (c *Class) emit(in *insn, labels map[int]*Label, v MethodVisitor) error {
	op := in.op

	switch {
	case op == BIPUSH || op == SIPUSH || op == NEWARRAY:
		v.VisitIntInsn(op, in.operand)
	case (op >= ILOAD && op <= ALOAD) || (op >= ISTORE && op <= ASTORE) || op == RET:
		v.VisitVarInsn(op, in.slot)
	case op == IINC:
		v.VisitIincInsn(in.slot, in.incr)
	case op == LDC:
		cst, err := c.Pool.Constant(in.index)
		if err != nil {
			return err
		}

		v.VisitLdcInsn(cst)
	case op.IsJump():
		v.VisitJumpInsn(op, labels[in.target])
	case op == TABLESWITCH:
		v.VisitTableSwitchInsn(in.low, in.high, labels[in.dflt], labelsAt(labels, in.targets))
	case op == LOOKUPSWITCH:
		v.VisitLookupSwitchInsn(labels[in.dflt], append([]int(nil), in.keys...), labelsAt(labels, in.targets))
	case op >= GETSTATIC && op <= PUTFIELD:
		owner, name, desc, err := c.Pool.MemberRef(in.index)
		if err != nil {
			return err
		}

		v.VisitFieldInsn(op, owner, name, desc)
	case op >= INVOKEVIRTUAL && op <= INVOKEINTERFACE:
		owner, name, desc, err := c.Pool.MemberRef(in.index)
		if err != nil {
			return err
		}

		v.VisitMethodInsn(op, owner, name, desc, c.Pool.Tag(in.index) == TagInterfaceMethodref)
	case op == INVOKEDYNAMIC:
		name, desc, err := c.Pool.DynamicRef(in.index)
		if err != nil {
			return err
		}

		v.VisitInvokeDynamicInsn(in.index, name, desc)
	case op == NEW || op == ANEWARRAY || op == CHECKCAST || op == INSTANCEOF:
		name, err := c.Pool.ClassName(in.index)
		if err != nil {
			return err
		}

		v.VisitTypeInsn(op, name)
	case op == MULTIANEWARRAY:
		name, err := c.Pool.ClassName(in.index)
		if err != nil {
			return err
		}

		v.VisitMultiANewArrayInsn(name, in.dims)
	default:
		v.VisitInsn(op)
	}

	return nil
}

func labelsAt(labels map[int]*Label, offsets []int) []*Label {
	out := make([]*Label, len(offsets))
	for i, pc := range offsets {
		out[i] = labels[pc]
	}

	return out
}
