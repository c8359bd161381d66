package classfile

import (
	"encoding/binary"
	"fmt"
)

// insn is one decoded instruction. Short forms are normalized: ILOAD_1 becomes
// ILOAD with slot 1, GOTO_W becomes GOTO, LDC_W and LDC2_W become LDC.
type insn struct {
	offset int
	next   int
	raw    Opcode
	op     Opcode

	slot    int
	incr    int
	operand int
	index   uint16
	dims    int
	target  int

	dflt    int
	low     int
	high    int
	keys    []int
	targets []int
}

func decodeCode(code []byte) ([]insn, error) {
	var out []insn

	for pc := 0; pc < len(code); {
		in, err := decodeInsn(code, pc)
		if err != nil {
			return nil, err
		}

		out = append(out, in)
		pc = in.next
	}

	return out, nil
}

func decodeInsn(code []byte, pc int) (insn, error) {
	in := insn{offset: pc, raw: Opcode(code[pc]), op: Opcode(code[pc])}

	need := func(n int) error {
		if pc+n > len(code) {
			return fmt.Errorf("%w: truncated %s at %d", ErrMalformed, in.raw, pc)
		}

		return nil
	}
	u2 := func(at int) uint16 { return binary.BigEndian.Uint16(code[at:]) }
	s2 := func(at int) int { return int(int16(u2(at))) }
	s4 := func(at int) int { return int(int32(binary.BigEndian.Uint32(code[at:]))) }

	op := in.raw

	switch {
	case op >= ILOAD_0 && op <= ALOAD_3:
		in.op = ILOAD + (op-ILOAD_0)/4
		in.slot = int(op-ILOAD_0) % 4
		in.next = pc + 1
	case op >= ISTORE_0 && op <= ASTORE_3:
		in.op = ISTORE + (op-ISTORE_0)/4
		in.slot = int(op-ISTORE_0) % 4
		in.next = pc + 1
	case (op >= ILOAD && op <= ALOAD) || (op >= ISTORE && op <= ASTORE) || op == RET:
		if err := need(2); err != nil {
			return in, err
		}

		in.slot = int(code[pc+1])
		in.next = pc + 2
	case op == BIPUSH:
		if err := need(2); err != nil {
			return in, err
		}

		in.operand = int(int8(code[pc+1]))
		in.next = pc + 2
	case op == NEWARRAY:
		if err := need(2); err != nil {
			return in, err
		}

		in.operand = int(code[pc+1])
		in.next = pc + 2
	case op == SIPUSH:
		if err := need(3); err != nil {
			return in, err
		}

		in.operand = s2(pc + 1)
		in.next = pc + 3
	case op == LDC:
		if err := need(2); err != nil {
			return in, err
		}

		in.index = uint16(code[pc+1])
		in.next = pc + 2
	case op == LDC_W || op == LDC2_W:
		if err := need(3); err != nil {
			return in, err
		}

		in.op = LDC
		in.index = u2(pc + 1)
		in.next = pc + 3
	case op == IINC:
		if err := need(3); err != nil {
			return in, err
		}

		in.slot = int(code[pc+1])
		in.incr = int(int8(code[pc+2]))
		in.next = pc + 3
	case (op >= IFEQ && op <= JSR) || op == IFNULL || op == IFNONNULL:
		if err := need(3); err != nil {
			return in, err
		}

		in.target = pc + s2(pc+1)
		in.next = pc + 3
	case op == GOTO_W || op == JSR_W:
		if err := need(5); err != nil {
			return in, err
		}

		in.op = GOTO
		if op == JSR_W {
			in.op = JSR
		}

		in.target = pc + s4(pc+1)
		in.next = pc + 5
	case op == TABLESWITCH:
		base := pc + 1 + (4-(pc+1)%4)%4
		if err := need(base - pc + 12); err != nil {
			return in, err
		}

		in.dflt = pc + s4(base)
		in.low = s4(base + 4)
		in.high = s4(base + 8)

		n := in.high - in.low + 1
		if n < 0 || n > len(code) {
			return in, fmt.Errorf("%w: bad tableswitch bounds at %d", ErrMalformed, pc)
		}

		if err := need(base - pc + 12 + 4*n); err != nil {
			return in, err
		}

		for i := range n {
			in.targets = append(in.targets, pc+s4(base+12+4*i))
		}

		in.next = base + 12 + 4*n
	case op == LOOKUPSWITCH:
		base := pc + 1 + (4-(pc+1)%4)%4
		if err := need(base - pc + 8); err != nil {
			return in, err
		}

		in.dflt = pc + s4(base)

		n := s4(base + 4)
		if n < 0 || n > len(code) {
			return in, fmt.Errorf("%w: bad lookupswitch size at %d", ErrMalformed, pc)
		}

		if err := need(base - pc + 8 + 8*n); err != nil {
			return in, err
		}

		for i := range n {
			in.keys = append(in.keys, s4(base+8+8*i))
			in.targets = append(in.targets, pc+s4(base+12+8*i))
		}

		in.next = base + 8 + 8*n
	case (op >= GETSTATIC && op <= INVOKESTATIC) || op == NEW || op == ANEWARRAY ||
		op == CHECKCAST || op == INSTANCEOF:
		if err := need(3); err != nil {
			return in, err
		}

		in.index = u2(pc + 1)
		in.next = pc + 3
	case op == INVOKEINTERFACE || op == INVOKEDYNAMIC:
		if err := need(5); err != nil {
			return in, err
		}

		in.index = u2(pc + 1)
		in.next = pc + 5
	case op == MULTIANEWARRAY:
		if err := need(4); err != nil {
			return in, err
		}

		in.index = u2(pc + 1)
		in.dims = int(code[pc+3])
		in.next = pc + 4
	case op == WIDE:
		if err := need(4); err != nil {
			return in, err
		}

		in.op = Opcode(code[pc+1])
		in.slot = int(u2(pc + 2))
		in.next = pc + 4

		if in.op == IINC {
			if err := need(6); err != nil {
				return in, err
			}

			in.incr = s2(pc + 4)
			in.next = pc + 6
		}
	case op <= MONITOREXIT:
		in.next = pc + 1
	default:
		return in, fmt.Errorf("%w: unknown opcode %d at %d", ErrMalformed, op, pc)
	}

	return in, nil
}

// isUnconditional reports whether control never falls through to the next instruction.
func (in *insn) isUnconditional() bool {
	switch in.op {
	case GOTO, RET, TABLESWITCH, LOOKUPSWITCH, ATHROW:
		return true
	}

	return in.op.IsReturn()
}
