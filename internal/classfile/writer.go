package classfile

import (
	"encoding/binary"
	"fmt"
	"log/slog"
)

type winsnKind uint8

const (
	kindInsn winsnKind = iota
	kindLabel
)

// winsn is an instruction waiting to be assembled.
type winsn struct {
	kind    winsnKind
	op      Opcode
	operand int
	incr    int
	index   uint16
	dims    int
	wideLdc bool
	label   *Label
	dflt    *Label
	labels  []*Label
	keys    []int
	low     int
	high    int

	longJump bool
	offset   int
}

type tryCatch struct {
	start, end, handler *Label
	typ                 string
}

type lineEntry struct {
	label *Label
	line  int
}

type localEntry struct {
	name, desc, signature string
	start, end            *Label
	slot                  int
}

// CodeWriter is a MethodVisitor that assembles a new Code attribute for a method
// of an existing class. New constants are interned in the class pool.
type CodeWriter struct {
	class    *Class
	method   *Member
	resolver SuperResolver

	insns     []winsn
	handlers  []tryCatch
	lines     []lineEntry
	locals    []localEntry
	maxStack  int
	maxLocals int
	done      bool
}

var _ MethodVisitor = (*CodeWriter)(nil)

// NewCodeWriter creates a writer for the body of method m in class c. The
// resolver answers superclass questions while frames are computed; it may be nil.
func NewCodeWriter(c *Class, m *Member, resolver SuperResolver) *CodeWriter {
	return &CodeWriter{class: c, method: m, resolver: resolver}
}

func (w *CodeWriter) add(in winsn) {
	w.insns = append(w.insns, in)
}

func (w *CodeWriter) useLocal(slot, size int) {
	if slot+size > w.maxLocals {
		w.maxLocals = slot + size
	}
}

func (w *CodeWriter) VisitCode() {}

func (w *CodeWriter) VisitInsn(op Opcode) {
	w.add(winsn{op: op})
}

func (w *CodeWriter) VisitIntInsn(op Opcode, operand int) {
	w.add(winsn{op: op, operand: operand})
}

func (w *CodeWriter) VisitVarInsn(op Opcode, slot int) {
	size := 1
	if op == LLOAD || op == DLOAD || op == LSTORE || op == DSTORE {
		size = 2
	}

	w.useLocal(slot, size)
	w.add(winsn{op: op, operand: slot})
}

func (w *CodeWriter) VisitTypeInsn(op Opcode, typ string) {
	w.add(winsn{op: op, index: w.class.Pool.AddClass(typ)})
}

func (w *CodeWriter) VisitFieldInsn(op Opcode, owner, name, desc string) {
	w.add(winsn{op: op, index: w.class.Pool.AddFieldref(owner, name, desc)})
}

func (w *CodeWriter) VisitMethodInsn(op Opcode, owner, name, desc string, itf bool) {
	w.add(winsn{
		op:      op,
		index:   w.class.Pool.AddMethodref(owner, name, desc, itf),
		operand: ArgumentsSize(desc) + 1,
	})
}

func (w *CodeWriter) VisitInvokeDynamicInsn(index uint16, _, _ string) {
	w.add(winsn{op: INVOKEDYNAMIC, index: index})
}

func (w *CodeWriter) VisitJumpInsn(op Opcode, target *Label) {
	w.add(winsn{op: op, label: target})
}

func (w *CodeWriter) VisitLabel(l *Label) {
	w.add(winsn{kind: kindLabel, label: l})
}

func (w *CodeWriter) VisitLdcInsn(c Constant) {
	w.add(winsn{op: LDC, index: c.Index, wideLdc: c.IsWide()})
}

func (w *CodeWriter) VisitIincInsn(slot, incr int) {
	w.useLocal(slot, 1)
	w.add(winsn{op: IINC, operand: slot, incr: incr})
}

func (w *CodeWriter) VisitTableSwitchInsn(low, high int, dflt *Label, labels []*Label) {
	w.add(winsn{op: TABLESWITCH, low: low, high: high, dflt: dflt, labels: labels})
}

func (w *CodeWriter) VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label) {
	w.add(winsn{op: LOOKUPSWITCH, dflt: dflt, keys: keys, labels: labels})
}

func (w *CodeWriter) VisitMultiANewArrayInsn(desc string, dims int) {
	w.add(winsn{op: MULTIANEWARRAY, index: w.class.Pool.AddClass(desc), dims: dims})
}

func (w *CodeWriter) VisitTryCatchBlock(start, end, handler *Label, typ string) {
	w.handlers = append(w.handlers, tryCatch{start: start, end: end, handler: handler, typ: typ})
}

func (w *CodeWriter) VisitLocalVariable(name, desc, signature string, start, end *Label, slot int) {
	w.locals = append(w.locals, localEntry{name: name, desc: desc, signature: signature, start: start, end: end, slot: slot})
}

func (w *CodeWriter) VisitLineNumber(line int, start *Label) {
	w.lines = append(w.lines, lineEntry{label: start, line: line})
}

func (w *CodeWriter) VisitMaxs(maxStack, maxLocals int) {
	w.maxStack = maxStack
	w.useLocal(0, maxLocals)
}

func (w *CodeWriter) VisitEnd() {
	w.done = true
}

func (in *winsn) size() int {
	if in.kind == kindLabel {
		return 0
	}

	switch op := in.op; {
	case op == BIPUSH || op == NEWARRAY:
		return 2
	case op == SIPUSH:
		return 3
	case (op >= ILOAD && op <= ALOAD) || (op >= ISTORE && op <= ASTORE) || op == RET:
		switch {
		case in.operand <= 3 && op != RET:
			return 1
		case in.operand <= 0xFF:
			return 2
		default:
			return 4
		}
	case op == IINC:
		if in.operand <= 0xFF && in.incr >= -128 && in.incr <= 127 {
			return 3
		}

		return 6
	case op == LDC:
		if in.wideLdc || in.index > 0xFF {
			return 3
		}

		return 2
	case op.IsJump():
		switch {
		case !in.longJump:
			return 3
		case op == GOTO || op == JSR:
			return 5
		default:
			return 8
		}
	case op == TABLESWITCH:
		return 1 + switchPad(in.offset) + 12 + 4*len(in.labels)
	case op == LOOKUPSWITCH:
		return 1 + switchPad(in.offset) + 8 + 8*len(in.labels)
	case (op >= GETSTATIC && op <= INVOKESTATIC) || op == NEW || op == ANEWARRAY ||
		op == CHECKCAST || op == INSTANCEOF:
		return 3
	case op == INVOKEINTERFACE || op == INVOKEDYNAMIC:
		return 5
	case op == MULTIANEWARRAY:
		return 4
	default:
		return 1
	}
}

func switchPad(offset int) int {
	return (4 - (offset+1)%4) % 4
}

func invertJump(op Opcode) Opcode {
	switch {
	case op == IFNULL:
		return IFNONNULL
	case op == IFNONNULL:
		return IFNULL
	case (op-IFEQ)%2 == 0:
		return op + 1
	default:
		return op - 1
	}
}

// layout assigns offsets until no short jump is out of range. It returns the
// code length and the offset of every label.
func (w *CodeWriter) layout() (int, map[*Label]int, error) {
	for {
		pos := make(map[*Label]int)
		offset := 0

		for i := range w.insns {
			in := &w.insns[i]
			in.offset = offset

			if in.kind == kindLabel {
				pos[in.label] = offset
			}

			offset += in.size()
		}

		changed := false

		for i := range w.insns {
			in := &w.insns[i]
			if in.kind != kindInsn || !in.op.IsJump() || in.longJump {
				continue
			}

			target, ok := pos[in.label]
			if !ok {
				return 0, nil, fmt.Errorf("%w: jump to a label that was never visited", ErrMalformed)
			}

			if d := target - in.offset; d < -0x8000 || d > 0x7FFF {
				in.longJump = true
				changed = true
			}
		}

		if !changed {
			return offset, pos, nil
		}
	}
}

func (w *CodeWriter) assemble() ([]byte, map[*Label]int, error) {
	length, pos, err := w.layout()
	if err != nil {
		return nil, nil, err
	}

	if length == 0 || length > 0xFFFF {
		return nil, nil, fmt.Errorf("%w: code length %d out of range", ErrMalformed, length)
	}

	code := make([]byte, 0, length)
	u2 := func(v int) { code = binary.BigEndian.AppendUint16(code, uint16(v)) }
	u4 := func(v int) { code = binary.BigEndian.AppendUint32(code, uint32(int32(v))) }

	for i := range w.insns {
		in := &w.insns[i]
		if in.kind == kindLabel {
			continue
		}

		op := in.op

		switch {
		case op == BIPUSH || op == NEWARRAY:
			code = append(code, byte(op), byte(in.operand))
		case op == SIPUSH:
			code = append(code, byte(op))
			u2(in.operand)
		case (op >= ILOAD && op <= ALOAD) || (op >= ISTORE && op <= ASTORE) || op == RET:
			switch in.size() {
			case 1:
				if op <= ALOAD {
					code = append(code, byte(ILOAD_0+(op-ILOAD)*4+Opcode(in.operand)))
				} else {
					code = append(code, byte(ISTORE_0+(op-ISTORE)*4+Opcode(in.operand)))
				}
			case 2:
				code = append(code, byte(op), byte(in.operand))
			default:
				code = append(code, byte(WIDE), byte(op))
				u2(in.operand)
			}
		case op == IINC:
			if in.size() == 3 {
				code = append(code, byte(IINC), byte(in.operand), byte(int8(in.incr)))
			} else {
				code = append(code, byte(WIDE), byte(IINC))
				u2(in.operand)
				u2(in.incr)
			}
		case op == LDC:
			switch {
			case in.wideLdc:
				code = append(code, byte(LDC2_W))
				u2(int(in.index))
			case in.index > 0xFF:
				code = append(code, byte(LDC_W))
				u2(int(in.index))
			default:
				code = append(code, byte(LDC), byte(in.index))
			}
		case op.IsJump():
			d := pos[in.label] - in.offset

			switch {
			case !in.longJump:
				code = append(code, byte(op))
				u2(d)
			case op == GOTO:
				code = append(code, byte(GOTO_W))
				u4(d)
			case op == JSR:
				code = append(code, byte(JSR_W))
				u4(d)
			default:
				code = append(code, byte(invertJump(op)))
				u2(8)
				code = append(code, byte(GOTO_W))
				u4(d - 3)
			}
		case op == TABLESWITCH || op == LOOKUPSWITCH:
			code = append(code, byte(op))
			for range switchPad(in.offset) {
				code = append(code, 0)
			}

			dflt, ok := pos[in.dflt]
			if !ok {
				return nil, nil, fmt.Errorf("%w: switch to a label that was never visited", ErrMalformed)
			}

			u4(dflt - in.offset)

			if op == TABLESWITCH {
				u4(in.low)
				u4(in.high)
			} else {
				u4(len(in.keys))
			}

			for j, l := range in.labels {
				target, ok := pos[l]
				if !ok {
					return nil, nil, fmt.Errorf("%w: switch to a label that was never visited", ErrMalformed)
				}

				if op == LOOKUPSWITCH {
					u4(in.keys[j])
				}

				u4(target - in.offset)
			}
		case (op >= GETSTATIC && op <= INVOKESTATIC) || op == NEW || op == ANEWARRAY ||
			op == CHECKCAST || op == INSTANCEOF:
			code = append(code, byte(op))
			u2(int(in.index))
		case op == INVOKEINTERFACE:
			code = append(code, byte(op))
			u2(int(in.index))
			code = append(code, byte(in.operand), 0)
		case op == INVOKEDYNAMIC:
			code = append(code, byte(op))
			u2(int(in.index))
			code = append(code, 0, 0)
		case op == MULTIANEWARRAY:
			code = append(code, byte(op))
			u2(int(in.index))
			code = append(code, byte(in.dims))
		default:
			code = append(code, byte(op))
		}
	}

	return code, pos, nil
}

// Bytes assembles the Code attribute body: instructions, exception table, line
// numbers, local variables and, for class versions that need them, stack map frames.
func (w *CodeWriter) Bytes() ([]byte, error) {
	if !w.done {
		return nil, fmt.Errorf("%w: method body not finished", ErrMalformed)
	}

	code, pos, err := w.assemble()
	if err != nil {
		return nil, err
	}

	var handlers []Handler

	for _, tc := range w.handlers {
		start, ok1 := pos[tc.start]
		end, ok2 := pos[tc.end]
		handler, ok3 := pos[tc.handler]

		if !ok1 || !ok2 || !ok3 {
			return nil, fmt.Errorf("%w: try/catch block uses a label that was never visited", ErrMalformed)
		}

		if start >= end {
			continue
		}

		handlers = append(handlers, Handler{StartPC: start, EndPC: end, HandlerPC: handler, CatchType: tc.typ})
	}

	minLocals := ArgumentsSize(w.method.Desc)
	if !w.method.Is(AccStatic) {
		minLocals++
	}

	w.useLocal(0, minLocals)

	res, err := analyze(w.class, w.method, code, handlers, w.maxLocals, w.resolver)
	if err != nil {
		if w.class.Major >= firstFrameVersion {
			return nil, fmt.Errorf("compute frames of %s%s: %w", w.method.Name, w.method.Desc, err)
		}

		slog.Debug("falling back to a conservative max stack", "method", w.method.Name+w.method.Desc, "error", err)

		res = &analysis{code: code, handlers: handlers, maxStack: w.maxStack + 8}
	}

	out := &writer{}
	out.u2(uint16(res.maxStack))
	out.u2(uint16(w.maxLocals))
	out.u4(uint32(len(res.code)))
	out.bytes(res.code)
	out.u2(uint16(len(res.handlers)))

	pool := w.class.Pool

	for _, h := range res.handlers {
		out.u2(uint16(h.StartPC))
		out.u2(uint16(h.EndPC))
		out.u2(uint16(h.HandlerPC))

		if h.CatchType == "" {
			out.u2(0)
		} else {
			out.u2(pool.AddClass(h.CatchType))
		}
	}

	var attrs []Attribute

	if w.class.Major >= firstFrameVersion && len(res.frames) > 0 {
		attrs = append(attrs, Attribute{Name: "StackMapTable", Data: res.encodeFrames(pool)})
	}

	if data := w.lineTable(pos); data != nil {
		attrs = append(attrs, Attribute{Name: "LineNumberTable", Data: data})
	}

	if data := w.localTable(pos, false); data != nil {
		attrs = append(attrs, Attribute{Name: "LocalVariableTable", Data: data})
	}

	if data := w.localTable(pos, true); data != nil {
		attrs = append(attrs, Attribute{Name: "LocalVariableTypeTable", Data: data})
	}

	w.class.writeAttributes(out, attrs)

	return out.buf, nil
}

func (w *CodeWriter) lineTable(pos map[*Label]int) []byte {
	var entries [][2]int

	for _, ln := range w.lines {
		if pc, ok := pos[ln.label]; ok {
			entries = append(entries, [2]int{pc, ln.line})
		}
	}

	if len(entries) == 0 {
		return nil
	}

	out := &writer{}
	out.u2(uint16(len(entries)))

	for _, e := range entries {
		out.u2(uint16(e[0]))
		out.u2(uint16(e[1]))
	}

	return out.buf
}

func (w *CodeWriter) localTable(pos map[*Label]int, signatures bool) []byte {
	out := &writer{}
	count := 0

	for _, lv := range w.locals {
		if signatures && lv.signature == "" {
			continue
		}

		start, ok1 := pos[lv.start]
		end, ok2 := pos[lv.end]

		if !ok1 || !ok2 || end < start {
			continue
		}

		desc := lv.desc
		if signatures {
			desc = lv.signature
		}

		out.u2(uint16(start))
		out.u2(uint16(end - start))
		out.u2(w.class.Pool.AddUtf8(lv.name))
		out.u2(w.class.Pool.AddUtf8(desc))
		out.u2(uint16(lv.slot))

		count++
	}

	if count == 0 {
		return nil
	}

	return append(binary.BigEndian.AppendUint16(nil, uint16(count)), out.buf...)
}

// ReplaceMethod runs fn against a fresh CodeWriter for m and installs the result.
func (c *Class) ReplaceMethod(m *Member, resolver SuperResolver, fn func(MethodVisitor) error) error {
	w := NewCodeWriter(c, m, resolver)
	if err := fn(w); err != nil {
		return err
	}

	body, err := w.Bytes()
	if err != nil {
		return err
	}

	return c.SetCode(m, body)
}
